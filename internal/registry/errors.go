package registry

import "fmt"

// layerNotFoundError signals a missing (model, id) pair.
type layerNotFoundError struct{ model, id string }

func (e layerNotFoundError) Error() string {
	return fmt.Sprintf("layer not found: %s/%s", e.model, e.id)
}

// ErrLayerNotFound constructs a layerNotFoundError.
func ErrLayerNotFound(model, id string) error { return layerNotFoundError{model: model, id: id} }

// IsLayerNotFound reports whether err indicates a missing layer.
func IsLayerNotFound(err error) bool {
	_, ok := err.(layerNotFoundError)
	return ok
}

// layerExistsError signals an id collision without overwrite.
type layerExistsError struct{ model, id string }

func (e layerExistsError) Error() string {
	return fmt.Sprintf("layer already exists: %s/%s", e.model, e.id)
}

// ErrLayerExists constructs a layerExistsError.
func ErrLayerExists(model, id string) error { return layerExistsError{model: model, id: id} }

// IsLayerExists reports whether err indicates an id collision.
func IsLayerExists(err error) bool {
	_, ok := err.(layerExistsError)
	return ok
}

// badDocumentError signals a malformed or wrong-version persisted file.
// Always fatal to the load, never auto-repaired.
type badDocumentError struct{ msg string }

func (e badDocumentError) Error() string { return "registry document: " + e.msg }

// ErrBadDocument constructs a badDocumentError.
func ErrBadDocument(msg string) error { return badDocumentError{msg: msg} }

// IsBadDocument reports whether err indicates an unusable document.
func IsBadDocument(err error) bool {
	_, ok := err.(badDocumentError)
	return ok
}

// persistError signals a failed write/rename. The on-disk document is
// whole (old or new), but the save did not take effect.
type persistError struct{ err error }

func (e persistError) Error() string { return "registry persist: " + e.err.Error() }
func (e persistError) Unwrap() error { return e.err }

// IsPersistError reports whether err came from the save path.
func IsPersistError(err error) bool {
	_, ok := err.(persistError)
	return ok
}
