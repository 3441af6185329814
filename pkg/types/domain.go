package types

import "time"

// ModelKey is an internal role identifier ("code", "cloud_universal", ...)
// distinct from the underlying model's real name.
type ModelKey string

const (
	KeyCode           ModelKey = "code"
	KeyReason         ModelKey = "reason"
	KeyPersonality    ModelKey = "personality"
	KeyCloudCode      ModelKey = "cloud_code"
	KeyCloudUniversal ModelKey = "cloud_universal"
	KeyCloudVision    ModelKey = "cloud_vision"
)

// Locality says where a model runs.
type Locality string

const (
	LocalityLocal Locality = "local"
	LocalityCloud Locality = "cloud"
)

// ModelDescriptor is the static catalog entry for one model key.
// Loaded once at startup, read-only afterwards.
type ModelDescriptor struct {
	// Role key this descriptor answers to.
	Key ModelKey `json:"key" yaml:"key" toml:"key"`
	// Underlying model name as known by the inference daemon.
	Model string `json:"model" yaml:"model" toml:"model"`
	// Approximate VRAM footprint in GB when resident.
	SizeGB float64 `json:"size_gb" yaml:"size_gb" toml:"size_gb"`
	// Where the model runs (local VRAM or a cloud endpoint).
	Locality Locality `json:"locality" yaml:"locality" toml:"locality"`
	// Free-form purpose string shown by operator tooling.
	Purpose string `json:"purpose,omitempty" yaml:"purpose,omitempty" toml:"purpose,omitempty"`
}

// IsLocal reports whether the descriptor occupies local VRAM when active.
func (d ModelDescriptor) IsLocal() bool { return d.Locality == LocalityLocal }

// SchedulerStats is a read-only snapshot of scheduler state.
// It may be slightly stale: the stats path never waits for an
// in-flight switch to finish.
type SchedulerStats struct {
	CurrentKey        ModelKey          `json:"current_key"`
	SwapCount         int64             `json:"swap_count"`
	LoadedLocalModels []string          `json:"loaded_local_models"`
	CloudAvailability map[ModelKey]bool `json:"cloud_availability"`
	MaxVRAMBudgetGB   float64           `json:"max_vram_budget_gb"`
	// When the loaded-models cache was last refreshed from the daemon.
	ProbedAt time.Time `json:"probed_at"`
}

// TaskProfile is what the task classifier extracts from free text.
type TaskProfile struct {
	// Broad task type, e.g. "code", "reasoning", "chat", "vision".
	Type string `json:"type"`
	// Subject/topic hint, free-form.
	Subject string `json:"subject,omitempty"`
	// Declared complexity on a 1..10 scale.
	Complexity int `json:"complexity"`
}

// StageResult is the unit of output exchanged with executor/verifier
// collaborators: free-form content plus loosely typed metadata.
type StageResult struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
