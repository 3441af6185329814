package scheduler

// unknownModelError signals a key absent from the catalog.
// A configuration error: fatal to the operation, never auto-repaired.
type unknownModelError struct{ key string }

func (e unknownModelError) Error() string { return "unknown model key: " + e.key }

// ErrUnknownModel constructs an unknownModelError.
func ErrUnknownModel(key string) error { return unknownModelError{key: key} }

// IsUnknownModel reports whether err indicates a key missing from the catalog.
func IsUnknownModel(err error) bool {
	_, ok := err.(unknownModelError)
	return ok
}

// cloudUnavailableError signals that a cloud key's model is not
// reachable through the daemon. Local state is never touched on this
// path: cloud use must not displace local VRAM.
type cloudUnavailableError struct{ key string }

func (e cloudUnavailableError) Error() string { return "cloud model unavailable: " + e.key }

// ErrCloudUnavailable constructs a cloudUnavailableError.
func ErrCloudUnavailable(key string) error { return cloudUnavailableError{key: key} }

// IsCloudUnavailable reports whether err indicates an unreachable cloud key.
func IsCloudUnavailable(err error) bool {
	_, ok := err.(cloudUnavailableError)
	return ok
}

// loadFailedError signals that the daemon rejected or failed the load.
// The previous current key stays in effect.
type loadFailedError struct {
	model string
	err   error
}

func (e loadFailedError) Error() string { return "load failed: " + e.model + ": " + e.err.Error() }
func (e loadFailedError) Unwrap() error { return e.err }

// IsLoadFailed reports whether err came from the load step.
func IsLoadFailed(err error) bool {
	_, ok := err.(loadFailedError)
	return ok
}
