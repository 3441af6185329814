// Package registry is the persisted store of model layers: adapters,
// prompt overlays and profiles keyed by base model name, with at most
// one active layer per model.
//
// The backing file is a single versioned JSON document rewritten
// atomically on Save. External edits are picked up by comparing the
// file's modification time at the start of every public method.
package registry

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"orchd/internal/common/fsutil"
	"orchd/pkg/types"
)

// Registry is the in-memory view of the layer document.
// Safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	path    string
	doc     document
	lastMod time.Time
}

// Open loads the registry at path, creating an empty in-memory
// document when the file does not exist yet (it is written on the
// first Save).
func Open(path string) (*Registry, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	r := &Registry{path: p, doc: document{Version: CurrentVersion, Models: map[string]*LayerSet{}}}
	if err := r.loadLocked(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return r, nil
}

// Path returns the backing file path after home expansion.
func (r *Registry) Path() string { return r.path }

func (r *Registry) loadLocked() error {
	st, err := os.Stat(r.path)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(r.path)
	if err != nil {
		return err
	}
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return ErrBadDocument(err.Error())
	}
	if doc.Version != CurrentVersion {
		return ErrBadDocument("unsupported version")
	}
	if doc.Models == nil {
		doc.Models = map[string]*LayerSet{}
	}
	r.doc = doc
	r.lastMod = st.ModTime()
	return nil
}

// maybeReloadLocked re-reads the document when the file's mtime has
// advanced past the last load. Called at the top of every public
// method, under the lock, so a reload never interleaves a mutation.
func (r *Registry) maybeReloadLocked() error {
	st, err := os.Stat(r.path)
	if err != nil {
		// Missing file is fine: the in-memory document stands.
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if !st.ModTime().After(r.lastMod) {
		return nil
	}
	return r.loadLocked()
}

// Save persists the current document atomically.
func (r *Registry) Save() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := json.MarshalIndent(r.doc, "", "  ")
	if err != nil {
		return persistError{err: err}
	}
	if dir := filepath.Dir(r.path); !fsutil.PathExists(dir) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return persistError{err: err}
		}
	}
	if err := fsutil.WriteFileAtomic(r.path, append(b, '\n'), 0o644); err != nil {
		return persistError{err: err}
	}
	if st, err := os.Stat(r.path); err == nil {
		r.lastMod = st.ModTime()
	}
	return nil
}

func (r *Registry) setFor(model string) *LayerSet {
	s, ok := r.doc.Models[model]
	if !ok {
		s = &LayerSet{}
		r.doc.Models[model] = s
	}
	return s
}

// AddLayer inserts (or, with overwrite, replaces) a layer and
// optionally activates it. A zero CreatedAt is stamped with now.
func (r *Registry) AddLayer(model string, layer Layer, activate, overwrite bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.maybeReloadLocked(); err != nil {
		return err
	}
	s := r.setFor(model)
	if i := s.find(layer.ID); i >= 0 {
		if !overwrite {
			return ErrLayerExists(model, layer.ID)
		}
		if layer.CreatedAt.IsZero() {
			layer.CreatedAt = s.Layers[i].CreatedAt
		}
		s.Layers[i] = layer
	} else {
		if layer.CreatedAt.IsZero() {
			layer.CreatedAt = time.Now().UTC()
		}
		s.Layers = append(s.Layers, layer)
	}
	if activate {
		s.ActiveLayerID = layer.ID
	}
	return nil
}

// UpdateLayer applies field changes to an existing layer. Renaming to
// an id held by a different layer fails; renaming an active layer
// keeps it active under the new id.
func (r *Registry) UpdateLayer(model, id string, upd LayerUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.maybeReloadLocked(); err != nil {
		return err
	}
	s, ok := r.doc.Models[model]
	if !ok {
		return ErrLayerNotFound(model, id)
	}
	i := s.find(id)
	if i < 0 {
		return ErrLayerNotFound(model, id)
	}
	if upd.NewID != nil && *upd.NewID != id {
		if j := s.find(*upd.NewID); j >= 0 {
			return ErrLayerExists(model, *upd.NewID)
		}
		s.Layers[i].ID = *upd.NewID
		if s.ActiveLayerID == id {
			s.ActiveLayerID = *upd.NewID
		}
	}
	if upd.Kind != nil {
		s.Layers[i].Kind = *upd.Kind
	}
	if upd.Description != nil {
		s.Layers[i].Description = *upd.Description
	}
	if upd.SizeGB != nil {
		s.Layers[i].SizeGB = *upd.SizeGB
	}
	if upd.Adapter != nil {
		s.Layers[i].Adapter = *upd.Adapter
	}
	if upd.SystemPrompt != nil {
		s.Layers[i].SystemPrompt = *upd.SystemPrompt
	}
	return nil
}

// RemoveLayer deletes a layer; removing the active layer clears the
// active selection.
func (r *Registry) RemoveLayer(model, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.maybeReloadLocked(); err != nil {
		return err
	}
	s, ok := r.doc.Models[model]
	if !ok {
		return ErrLayerNotFound(model, id)
	}
	i := s.find(id)
	if i < 0 {
		return ErrLayerNotFound(model, id)
	}
	s.Layers = append(s.Layers[:i], s.Layers[i+1:]...)
	if s.ActiveLayerID == id {
		s.ActiveLayerID = ""
	}
	return nil
}

// SetActiveLayer marks id active for model; an empty id clears the
// selection.
func (r *Registry) SetActiveLayer(model, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.maybeReloadLocked(); err != nil {
		return err
	}
	s, ok := r.doc.Models[model]
	if !ok {
		if id == "" {
			return nil
		}
		return ErrLayerNotFound(model, id)
	}
	if id == "" {
		s.ActiveLayerID = ""
		return nil
	}
	if s.find(id) < 0 {
		return ErrLayerNotFound(model, id)
	}
	s.ActiveLayerID = id
	return nil
}

// Dedupe removes duplicate layer ids (keeping the first occurrence)
// for one model, or for every model when model is empty. Returns the
// per-model removal counts; models with zero removals are omitted.
func (r *Registry) Dedupe(model string) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.maybeReloadLocked(); err != nil {
		return nil, err
	}
	removed := map[string]int{}
	for name, s := range r.doc.Models {
		if model != "" && name != model {
			continue
		}
		seen := map[string]bool{}
		kept := s.Layers[:0]
		for _, l := range s.Layers {
			if seen[l.ID] {
				removed[name]++
				continue
			}
			seen[l.ID] = true
			kept = append(kept, l)
		}
		s.Layers = kept
		if s.ActiveLayerID != "" && s.find(s.ActiveLayerID) < 0 {
			s.ActiveLayerID = ""
		}
		if removed[name] == 0 {
			delete(removed, name)
		}
	}
	return removed, nil
}

// GetActiveLayerID returns the active layer id for model, empty when
// none is active.
func (r *Registry) GetActiveLayerID(model string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.maybeReloadLocked(); err != nil {
		return "", err
	}
	if s, ok := r.doc.Models[model]; ok {
		return s.ActiveLayerID, nil
	}
	return "", nil
}

// GetActiveAdapter returns the adapter reference of the active layer,
// but only when the active layer is of the adapter kind. Prompt and
// profile layers never surface as an adapter reference.
func (r *Registry) GetActiveAdapter(model string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.maybeReloadLocked(); err != nil {
		return "", err
	}
	s, ok := r.doc.Models[model]
	if !ok || s.ActiveLayerID == "" {
		return "", nil
	}
	i := s.find(s.ActiveLayerID)
	if i < 0 {
		return "", nil
	}
	if s.Layers[i].Kind != KindAdapter {
		return "", nil
	}
	return s.Layers[i].Adapter, nil
}

// Layers returns a copy of model's layers.
func (r *Registry) Layers(model string) ([]Layer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.maybeReloadLocked(); err != nil {
		return nil, err
	}
	s, ok := r.doc.Models[model]
	if !ok {
		return nil, nil
	}
	out := make([]Layer, len(s.Layers))
	copy(out, s.Layers)
	return out, nil
}

// Snapshot projects the whole registry for the read-only API surface.
func (r *Registry) Snapshot() (types.LayersResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.maybeReloadLocked(); err != nil {
		return types.LayersResponse{}, err
	}
	resp := types.LayersResponse{Models: map[string][]types.LayerInfo{}}
	names := make([]string, 0, len(r.doc.Models))
	for name := range r.doc.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := r.doc.Models[name]
		infos := make([]types.LayerInfo, 0, len(s.Layers))
		for _, l := range s.Layers {
			infos = append(infos, types.LayerInfo{
				ID:          l.ID,
				Kind:        string(l.Kind),
				Description: l.Description,
				Active:      l.ID == s.ActiveLayerID,
			})
		}
		resp.Models[name] = infos
	}
	return resp, nil
}

// ModelNames returns the base model names present in the document.
func (r *Registry) ModelNames() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.maybeReloadLocked(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(r.doc.Models))
	for name := range r.doc.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
