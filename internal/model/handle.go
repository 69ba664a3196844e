package model

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrHandleDisposed is returned when a disposed handle is used
var ErrHandleDisposed = errors.New("model handle disposed")

// TrainingStatus is the lifecycle state of a category model
type TrainingStatus string

const (
	StatusUntrained TrainingStatus = "untrained"
	StatusTraining  TrainingStatus = "training"
	StatusTrained   TrainingStatus = "trained"
	StatusFailed    TrainingStatus = "failed"
)

// HandleStatus is a point-in-time view of a handle for observability
type HandleStatus struct {
	CategoryID  int64          `json:"category_id"`
	Status      TrainingStatus `json:"status"`
	Load        LoadStatus     `json:"load_status"`
	LoadError   string         `json:"load_error,omitempty"`
	Trainings   int            `json:"trainings"`
	SamplesSeen int            `json:"samples_seen"`
	LastLoss    float64        `json:"last_loss"`
	TrainedAt   *time.Time     `json:"trained_at,omitempty"`
	Dirty       bool           `json:"dirty"`
}

// Handle owns the trainable network of one category. Training takes the write
// lock; inference takes the read lock, so predictions never observe a
// half-applied weight update.
type Handle struct {
	categoryID int64

	mu          sync.RWMutex
	net         *Network
	status      TrainingStatus
	load        LoadResult
	trainings   int
	samplesSeen int
	lastLoss    float64
	trainedAt   time.Time
	dirty       bool
	disposed    bool
}

func newHandle(categoryID int64, net *Network, load LoadResult) *Handle {
	status := StatusUntrained
	if load.Status == LoadStatusLoaded {
		status = StatusTrained
	}
	return &Handle{
		categoryID: categoryID,
		net:        net,
		status:     status,
		load:       load,
	}
}

// CategoryID returns the category this handle serves
func (h *Handle) CategoryID() int64 { return h.categoryID }

// Train fits the network in place. Concurrent calls on the same handle are
// serialised.
func (h *Handle) Train(ctx context.Context, x [][]float64, y []float64, cfg TrainConfig) (TrainReport, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.disposed {
		return TrainReport{}, ErrHandleDisposed
	}

	prev := h.status
	h.status = StatusTraining
	report, err := h.net.Fit(ctx, x, y, cfg)
	if err != nil {
		h.status = StatusFailed
		if prev == StatusTrained && !errors.Is(err, ErrTrainingDiverged) {
			h.status = prev
		}
		return report, err
	}

	h.status = StatusTrained
	h.trainings++
	h.samplesSeen += report.TrainSamples
	h.lastLoss = report.Loss
	h.trainedAt = time.Now().UTC()
	h.dirty = true
	return report, nil
}

// View runs fn with read access to the network. Multiple views may run
// concurrently, never alongside Train.
func (h *Handle) View(fn func(p Predictor) error) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.disposed {
		return ErrHandleDisposed
	}
	return fn(h.net)
}

// Status returns a snapshot of the handle state
func (h *Handle) Status() HandleStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s := HandleStatus{
		CategoryID:  h.categoryID,
		Status:      h.status,
		Load:        h.load.Status,
		Trainings:   h.trainings,
		SamplesSeen: h.samplesSeen,
		LastLoss:    h.lastLoss,
		Dirty:       h.dirty,
	}
	if h.load.Err != nil {
		s.LoadError = h.load.Err.Error()
	}
	if !h.trainedAt.IsZero() {
		t := h.trainedAt
		s.TrainedAt = &t
	}
	return s
}

func (h *Handle) snapshot() (*Snapshot, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.disposed {
		return nil, ErrHandleDisposed
	}
	return newSnapshot(h.categoryID, h.net, h.trainings, h.samplesSeen, h.trainedAt), nil
}

// markCleanIf clears the dirty flag only when no training completed after the
// snapshot taken at the given training count.
func (h *Handle) markCleanIf(trainings int) {
	h.mu.Lock()
	if h.trainings == trainings {
		h.dirty = false
	}
	h.mu.Unlock()
}

func (h *Handle) isDirty() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dirty && !h.disposed
}

// dispose drops the network so its weight buffers can be reclaimed
func (h *Handle) dispose() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.net = nil
	h.disposed = true
}
