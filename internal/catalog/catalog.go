package catalog

import (
	"orchd/pkg/types"
)

// Catalog is the read-only model key -> descriptor mapping.
// Built once at startup; safe for concurrent reads.
type Catalog struct {
	byKey map[types.ModelKey]types.ModelDescriptor
	order []types.ModelKey
}

// Default returns the built-in catalog for the six role keys.
func Default() *Catalog {
	return New([]types.ModelDescriptor{
		{Key: types.KeyCode, Model: "qwen2.5-coder:7b", SizeGB: 4.7, Locality: types.LocalityLocal, Purpose: "code generation and refactoring"},
		{Key: types.KeyReason, Model: "deepseek-r1:8b", SizeGB: 5.2, Locality: types.LocalityLocal, Purpose: "multi-step reasoning and planning"},
		{Key: types.KeyPersonality, Model: "llama3.1:8b", SizeGB: 4.9, Locality: types.LocalityLocal, Purpose: "conversational replies"},
		{Key: types.KeyCloudCode, Model: "qwen2.5-coder:32b-cloud", SizeGB: 0, Locality: types.LocalityCloud, Purpose: "escalation target for code tasks"},
		{Key: types.KeyCloudUniversal, Model: "llama3.3:70b-cloud", SizeGB: 0, Locality: types.LocalityCloud, Purpose: "escalation target for general tasks"},
		{Key: types.KeyCloudVision, Model: "llama3.2-vision:90b-cloud", SizeGB: 0, Locality: types.LocalityCloud, Purpose: "image understanding"},
	})
}

// New builds a catalog from descriptors. Later duplicates of a key
// replace earlier ones.
func New(descriptors []types.ModelDescriptor) *Catalog {
	c := &Catalog{byKey: make(map[types.ModelKey]types.ModelDescriptor, len(descriptors))}
	for _, d := range descriptors {
		if _, seen := c.byKey[d.Key]; !seen {
			c.order = append(c.order, d.Key)
		}
		c.byKey[d.Key] = d
	}
	return c
}

// Get returns the descriptor for key.
func (c *Catalog) Get(key types.ModelKey) (types.ModelDescriptor, bool) {
	d, ok := c.byKey[key]
	return d, ok
}

// List returns descriptors in declaration order.
func (c *Catalog) List() []types.ModelDescriptor {
	out := make([]types.ModelDescriptor, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.byKey[k])
	}
	return out
}

// LocalModelNames returns the underlying names of all local descriptors.
// Used by the scheduler's degraded (best-effort) unload path.
func (c *Catalog) LocalModelNames() []string {
	var names []string
	for _, k := range c.order {
		if d := c.byKey[k]; d.IsLocal() {
			names = append(names, d.Model)
		}
	}
	return names
}

// CloudKeys returns all cloud-locality keys in declaration order.
func (c *Catalog) CloudKeys() []types.ModelKey {
	var keys []types.ModelKey
	for _, k := range c.order {
		if !c.byKey[k].IsLocal() {
			keys = append(keys, k)
		}
	}
	return keys
}
