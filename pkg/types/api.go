package types

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Service readiness: the local daemon answers its tag listing.
	Ready bool `json:"ready"`
	// Scheduler snapshot, possibly a few seconds stale.
	Scheduler SchedulerStats `json:"scheduler"`
}

// ModelsResponse wraps the catalog listing returned by GET /models.
type ModelsResponse struct {
	Models []ModelDescriptor `json:"models"`
}

// LayerInfo is the read-only projection of one registry layer for
// GET /layers.
type LayerInfo struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
}

// LayersResponse maps base model name to its layers.
type LayersResponse struct {
	Models map[string][]LayerInfo `json:"models"`
}

// ErrorResponse is the uniform JSON error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
