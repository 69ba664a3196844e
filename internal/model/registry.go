package model

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// LoadStatus tells how a handle came to exist
type LoadStatus string

const (
	LoadStatusLoaded       LoadStatus = "loaded"
	LoadStatusCreatedFresh LoadStatus = "created_fresh"
	LoadStatusFailed       LoadStatus = "load_failed"
)

// LoadResult is the outcome of restoring a category model. A failed load still
// yields a usable fresh network; Err keeps the cause for logs and status.
type LoadResult struct {
	Status LoadStatus
	Err    error
}

// Registry owns at most one live Handle per category
type Registry struct {
	store Store
	arch  Architecture
	seed  uint64

	mu      sync.Mutex
	handles map[int64]*Handle
	loads   singleflight.Group

	logger zerolog.Logger
}

func NewRegistry(store Store, arch Architecture, seed uint64) *Registry {
	return &Registry{
		store:   store,
		arch:    arch,
		seed:    seed,
		handles: make(map[int64]*Handle),
		logger:  log.With().Str("component", "model_registry").Logger(),
	}
}

func (r *Registry) rngFor(categoryID int64) *rand.Rand {
	return rand.New(rand.NewPCG(r.seed, uint64(categoryID)))
}

func (r *Registry) lookup(categoryID int64) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[categoryID]
	return h, ok
}

// Get returns the live handle for the category, restoring or creating it on
// first use. Concurrent first calls for one category share a single load.
func (r *Registry) Get(ctx context.Context, categoryID int64) (*Handle, error) {
	if h, ok := r.lookup(categoryID); ok {
		return h, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The shared load is detached from the first caller's cancellation so a
	// cancelled caller cannot install a fallback network for everyone else.
	shared := context.WithoutCancel(ctx)
	ch := r.loads.DoChan(strconv.FormatInt(categoryID, 10), func() (any, error) {
		if h, ok := r.lookup(categoryID); ok {
			return h, nil
		}
		h := r.restore(shared, categoryID)

		r.mu.Lock()
		r.handles[categoryID] = h
		r.mu.Unlock()
		return h, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val.(*Handle), nil
	}
}

// Load restores the category model from the store, replacing any live handle.
// It never fails: on any problem a freshly initialised network is installed.
func (r *Registry) Load(ctx context.Context, categoryID int64) LoadResult {
	h := r.restore(ctx, categoryID)

	r.mu.Lock()
	prev := r.handles[categoryID]
	r.handles[categoryID] = h
	r.mu.Unlock()

	if prev != nil {
		prev.dispose()
	}
	return h.load
}

func (r *Registry) restore(ctx context.Context, categoryID int64) *Handle {
	rng := r.rngFor(categoryID)
	logger := r.logger.With().Int64("category_id", categoryID).Logger()

	data, err := r.store.Load(ctx, categoryID)
	if err == nil {
		var snap *Snapshot
		snap, err = DecodeSnapshot(data)
		if err == nil {
			var net *Network
			net, err = snap.Restore(r.arch, rng)
			if err == nil {
				h := newHandle(categoryID, net, LoadResult{Status: LoadStatusLoaded})
				h.trainings = snap.Trainings
				h.samplesSeen = snap.SamplesSeen
				h.trainedAt = snap.TrainedAt
				logger.Debug().Int("trainings", snap.Trainings).Msg("Model restored")
				return h
			}
		}
	}

	net := NewNetwork(r.arch, rng)
	if errors.Is(err, ErrModelNotFound) {
		logger.Debug().Msg("No stored model, created fresh network")
		return newHandle(categoryID, net, LoadResult{Status: LoadStatusCreatedFresh})
	}
	logger.Warn().Err(err).Msg("Failed to restore model, created fresh network")
	return newHandle(categoryID, net, LoadResult{Status: LoadStatusFailed, Err: err})
}

// Persist writes the category snapshot to the store, overwriting any previous one
func (r *Registry) Persist(ctx context.Context, categoryID int64) error {
	h, ok := r.lookup(categoryID)
	if !ok {
		return fmt.Errorf("category %d: %w", categoryID, ErrModelNotFound)
	}
	return r.persist(ctx, h)
}

func (r *Registry) persist(ctx context.Context, h *Handle) error {
	snap, err := h.snapshot()
	if err != nil {
		return fmt.Errorf("category %d: %w", h.categoryID, err)
	}
	data, err := snap.Encode()
	if err != nil {
		return err
	}
	if err := r.store.Save(ctx, h.categoryID, data); err != nil {
		return fmt.Errorf("save model for category %d: %w", h.categoryID, err)
	}
	h.markCleanIf(snap.Trainings)
	r.logger.Debug().Int64("category_id", h.categoryID).Int("bytes", len(data)).Msg("Model persisted")
	return nil
}

// PersistAll saves every handle trained since its last save. All handles are
// attempted; the failures are joined.
func (r *Registry) PersistAll(ctx context.Context) error {
	var errs []error
	for _, h := range r.snapshotHandles() {
		if !h.isDirty() {
			continue
		}
		if err := r.persist(ctx, h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dispose releases the category network and forgets the handle
func (r *Registry) Dispose(categoryID int64) {
	r.mu.Lock()
	h, ok := r.handles[categoryID]
	delete(r.handles, categoryID)
	r.mu.Unlock()

	if ok {
		h.dispose()
	}
}

func (r *Registry) DisposeAll() {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[int64]*Handle)
	r.mu.Unlock()

	for _, h := range handles {
		h.dispose()
	}
	r.logger.Info().Int("handles", len(handles)).Msg("Model registry disposed")
}

// Prime makes sure a handle exists for each category and reports how each came to be
func (r *Registry) Prime(ctx context.Context, categoryIDs []int64) map[int64]LoadStatus {
	out := make(map[int64]LoadStatus, len(categoryIDs))
	for _, id := range categoryIDs {
		h, err := r.Get(ctx, id)
		if err != nil {
			r.logger.Warn().Err(err).Int64("category_id", id).Msg("Priming interrupted")
			break
		}
		out[id] = h.Status().Load
	}
	return out
}

// StoredCategories lists the categories with a persisted snapshot. Stores that
// cannot enumerate return nothing.
func (r *Registry) StoredCategories(ctx context.Context) ([]int64, error) {
	lister, ok := r.store.(SnapshotLister)
	if !ok {
		return nil, nil
	}
	return lister.Snapshots(ctx)
}

// Status lists every live handle ordered by category
func (r *Registry) Status() []HandleStatus {
	handles := r.snapshotHandles()
	out := make([]HandleStatus, 0, len(handles))
	for _, h := range handles {
		out = append(out, h.Status())
	}
	return out
}

func (r *Registry) snapshotHandles() []*Handle {
	r.mu.Lock()
	out := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].categoryID < out[j].categoryID })
	return out
}
