// Package scheduler decides which model is resident. It enforces at
// most one local model in VRAM at a time: switching to a different
// local model unloads every other resident model first, sequentially,
// before the target is loaded.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"orchd/internal/catalog"
	"orchd/pkg/types"
)

// Daemon is the slice of the inference daemon client the scheduler
// needs.
type Daemon interface {
	Tags(ctx context.Context) ([]string, error)
	Load(ctx context.Context, model, adapter string) error
	Unload(ctx context.Context, model string) error
}

// AdapterSource resolves the active adapter reference for a base model
// name. Implemented by the layer registry.
type AdapterSource interface {
	GetActiveAdapter(model string) (string, error)
}

// After this many consecutive probe failures the unload step degrades
// to best effort: every catalog local name is unloaded, not only the
// ones known resident.
const probeFailureLimit = 3

// cloudProbeTTL bounds how often cloud availability is re-checked.
const cloudProbeTTL = 30 * time.Second

// Config tunes a Scheduler.
type Config struct {
	Catalog      *catalog.Catalog
	Daemon       Daemon
	Adapters     AdapterSource
	Logger       zerolog.Logger
	VRAMBudgetGB float64
	// Pause between sequential unloads.
	UnloadGrace time.Duration
	// Freshness window for the loaded-models cache.
	ProbeTTL time.Duration
}

// Scheduler owns the shared "which model is current" state. A switch
// is a critical section from "decide to unload" through "confirm load
// succeeded"; the stats read path uses a separate lock over a snapshot
// so it can tolerate staleness instead of waiting out a switch.
type Scheduler struct {
	cat      *catalog.Catalog
	daemon   Daemon
	adapters AdapterSource
	log      zerolog.Logger

	budgetGB    float64
	unloadGrace time.Duration
	probeTTL    time.Duration

	switchMu chanMutex // serializes SwitchTo end to end, context-aware

	snap struct {
		rw            sync.RWMutex
		currentKey    types.ModelKey
		swapCount     int64
		loaded        []string
		probedAt      time.Time
		probeFailures int
		cloudAvail    map[types.ModelKey]bool
		cloudProbedAt time.Time
	}
}

// New builds a Scheduler. Catalog and Daemon are required; a nil
// Adapters source simply disables adapter annotation on load.
func New(cfg Config) *Scheduler {
	s := &Scheduler{
		cat:         cfg.Catalog,
		daemon:      cfg.Daemon,
		adapters:    cfg.Adapters,
		log:         cfg.Logger,
		budgetGB:    cfg.VRAMBudgetGB,
		unloadGrace: cfg.UnloadGrace,
		probeTTL:    cfg.ProbeTTL,
		switchMu:    newChanMutex(),
	}
	if s.unloadGrace <= 0 {
		s.unloadGrace = 300 * time.Millisecond
	}
	if s.probeTTL <= 0 {
		s.probeTTL = 5 * time.Second
	}
	s.snap.cloudAvail = map[types.ModelKey]bool{}
	return s
}

// SwitchTo makes key the current model. For cloud keys this only
// verifies availability and records intent; for local keys it adopts
// an already-resident model by name, or unloads everything else and
// loads the target. Returns the key that is current afterwards.
func (s *Scheduler) SwitchTo(ctx context.Context, key types.ModelKey) (types.ModelKey, error) {
	desc, ok := s.cat.Get(key)
	if !ok {
		return s.currentKeySnapshot(), ErrUnknownModel(string(key))
	}

	if err := s.switchMu.Lock(ctx); err != nil {
		return s.currentKeySnapshot(), err
	}
	defer s.switchMu.Unlock()

	if !desc.IsLocal() {
		if !s.cloudAvailable(ctx, key, desc.Model) {
			return s.currentKeySnapshot(), ErrCloudUnavailable(string(key))
		}
		s.snap.rw.Lock()
		s.snap.currentKey = key
		s.snap.rw.Unlock()
		return key, nil
	}

	// Idempotent no-op: same key, nothing to do.
	if s.currentKeySnapshot() == key {
		return key, nil
	}

	loaded, degraded := s.refreshLoaded(ctx, false)

	// Adopt by name match: resident already, no reload, no swap count.
	if contains(loaded, desc.Model) {
		s.snap.rw.Lock()
		s.snap.currentKey = key
		s.snap.rw.Unlock()
		return key, nil
	}

	// Unload phase. Sequential with a grace pause so the daemon never
	// sees parallel evictions.
	victims := victimsFor(loaded, desc.Model)
	if degraded {
		victims = victimsFor(s.cat.LocalModelNames(), desc.Model)
	}
	for i, name := range victims {
		if i > 0 {
			select {
			case <-time.After(s.unloadGrace):
			case <-ctx.Done():
				return s.currentKeySnapshot(), ctx.Err()
			}
		}
		if err := s.daemon.Unload(ctx, name); err != nil {
			s.log.Warn().Err(err).Str("model", name).Msg("unload failed, continuing")
		}
	}

	adapter := ""
	if s.adapters != nil {
		a, err := s.adapters.GetActiveAdapter(desc.Model)
		if err != nil {
			s.log.Warn().Err(err).Str("model", desc.Model).Msg("active adapter lookup failed")
		} else {
			adapter = a
		}
	}

	if err := s.daemon.Load(ctx, desc.Model, adapter); err != nil {
		// Current key stays as it was.
		return s.currentKeySnapshot(), loadFailedError{model: desc.Model, err: err}
	}

	s.snap.rw.Lock()
	s.snap.currentKey = key
	s.snap.swapCount++
	s.snap.loaded = []string{desc.Model}
	s.snap.probedAt = time.Now()
	s.snap.rw.Unlock()
	swapsTotal.Inc()
	s.log.Info().Str("key", string(key)).Str("model", desc.Model).Msg("model switched")
	return key, nil
}

// Stats returns a snapshot of scheduler state. It refreshes the
// loaded-models cache when stale but never waits for an in-flight
// switch; the snapshot may therefore lag a switch by one probe.
func (s *Scheduler) Stats(ctx context.Context) types.SchedulerStats {
	s.snap.rw.RLock()
	stale := time.Since(s.snap.probedAt) > s.probeTTL
	s.snap.rw.RUnlock()
	if stale {
		s.refreshLoaded(ctx, true)
	}

	s.snap.rw.RLock()
	defer s.snap.rw.RUnlock()
	loaded := make([]string, len(s.snap.loaded))
	copy(loaded, s.snap.loaded)
	avail := make(map[types.ModelKey]bool, len(s.snap.cloudAvail))
	for k, v := range s.snap.cloudAvail {
		avail[k] = v
	}
	return types.SchedulerStats{
		CurrentKey:        s.snap.currentKey,
		SwapCount:         s.snap.swapCount,
		LoadedLocalModels: loaded,
		CloudAvailability: avail,
		MaxVRAMBudgetGB:   s.budgetGB,
		ProbedAt:          s.snap.probedAt,
	}
}

// CurrentModelName resolves the current key to its underlying model
// name. Used by the executor/verifier collaborators.
func (s *Scheduler) CurrentModelName() (string, bool) {
	key := s.currentKeySnapshot()
	if key == "" {
		return "", false
	}
	d, ok := s.cat.Get(key)
	if !ok {
		return "", false
	}
	return d.Model, true
}

func (s *Scheduler) currentKeySnapshot() types.ModelKey {
	s.snap.rw.RLock()
	defer s.snap.rw.RUnlock()
	return s.snap.currentKey
}

// refreshLoaded returns the loaded-models cache, re-probing the daemon
// when the cache is stale (always, when fromStats is set, since the
// stats path pre-checks staleness). The second result reports degraded
// mode: probeFailureLimit consecutive probe failures.
func (s *Scheduler) refreshLoaded(ctx context.Context, fromStats bool) ([]string, bool) {
	s.snap.rw.RLock()
	fresh := time.Since(s.snap.probedAt) <= s.probeTTL
	cached := make([]string, len(s.snap.loaded))
	copy(cached, s.snap.loaded)
	failures := s.snap.probeFailures
	s.snap.rw.RUnlock()
	if fresh && !fromStats {
		return cached, failures >= probeFailureLimit
	}

	names, err := s.daemon.Tags(ctx)
	if err != nil {
		// Fall back to last-known cache; a probe failure must not
		// crash the caller.
		s.snap.rw.Lock()
		s.snap.probeFailures++
		failures = s.snap.probeFailures
		s.snap.rw.Unlock()
		probeFailuresTotal.Inc()
		s.log.Warn().Err(err).Int("consecutive", failures).Msg("loaded-models probe failed, using cache")
		return cached, failures >= probeFailureLimit
	}

	local := s.filterLocal(names)
	s.snap.rw.Lock()
	s.snap.loaded = local
	s.snap.probedAt = time.Now()
	s.snap.probeFailures = 0
	s.snap.rw.Unlock()
	out := make([]string, len(local))
	copy(out, local)
	return out, false
}

// filterLocal keeps only names that belong to local catalog entries,
// so resident cloud aliases never count against the VRAM invariant.
func (s *Scheduler) filterLocal(names []string) []string {
	localSet := map[string]bool{}
	for _, n := range s.cat.LocalModelNames() {
		localSet[n] = true
	}
	var out []string
	for _, n := range names {
		if localSet[n] {
			out = append(out, n)
		}
	}
	return out
}

// cloudAvailable answers from the per-key cache, probing the daemon's
// listing at most once per cloudProbeTTL.
func (s *Scheduler) cloudAvailable(ctx context.Context, key types.ModelKey, model string) bool {
	s.snap.rw.RLock()
	fresh := time.Since(s.snap.cloudProbedAt) <= cloudProbeTTL
	avail, known := s.snap.cloudAvail[key]
	s.snap.rw.RUnlock()
	if fresh && known {
		return avail
	}

	names, err := s.daemon.Tags(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("key", string(key)).Msg("cloud availability probe failed")
		// Unknown beats optimistic: refuse the cloud path only.
		return known && avail
	}
	now := time.Now()
	s.snap.rw.Lock()
	for _, ck := range s.cat.CloudKeys() {
		if d, ok := s.cat.Get(ck); ok {
			s.snap.cloudAvail[ck] = contains(names, d.Model)
		}
	}
	s.snap.cloudProbedAt = now
	avail = s.snap.cloudAvail[key]
	s.snap.rw.Unlock()
	_ = model
	return avail
}

func victimsFor(loaded []string, target string) []string {
	var victims []string
	for _, n := range loaded {
		if n != target {
			victims = append(victims, n)
		}
	}
	return victims
}

func contains(list []string, name string) bool {
	for _, n := range list {
		if n == name {
			return true
		}
	}
	return false
}
