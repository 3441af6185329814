package registry

import "time"

// CurrentVersion is the only persisted document version we accept.
// Anything else is a hard load error; there is no silent migration.
const CurrentVersion = 1

// LayerKind classifies what a layer attaches to the base model.
type LayerKind string

const (
	KindAdapter LayerKind = "adapter"
	KindPrompt  LayerKind = "prompt"
	KindProfile LayerKind = "profile"
)

// ValidKind reports whether k is a known layer kind.
func ValidKind(k LayerKind) bool {
	switch k {
	case KindAdapter, KindPrompt, KindProfile:
		return true
	}
	return false
}

// Layer is one adapter/prompt-overlay/profile attached to a base model.
// Identity is (base model name, ID).
type Layer struct {
	ID          string    `json:"id"`
	Kind        LayerKind `json:"kind"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	SizeGB      float64   `json:"size_gb,omitempty"`
	// Adapter reference name passed to the daemon on load.
	// Meaningful only for KindAdapter.
	Adapter string `json:"adapter,omitempty"`
	// System prompt text for KindPrompt / KindProfile layers.
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// LayerSet holds all layers of one base model plus the active selection.
// ActiveLayerID, when non-empty, always references an existing layer id.
type LayerSet struct {
	ActiveLayerID string  `json:"active_layer_id,omitempty"`
	Layers        []Layer `json:"layers"`
}

func (s *LayerSet) find(id string) int {
	for i := range s.Layers {
		if s.Layers[i].ID == id {
			return i
		}
	}
	return -1
}

// document is the persisted registry schema.
type document struct {
	Version int                  `json:"version"`
	Models  map[string]*LayerSet `json:"models"`
}

// LayerUpdate carries optional field changes for UpdateLayer.
// Nil pointers leave the field untouched.
type LayerUpdate struct {
	NewID        *string
	Kind         *LayerKind
	Description  *string
	SizeGB       *float64
	Adapter      *string
	SystemPrompt *string
}
