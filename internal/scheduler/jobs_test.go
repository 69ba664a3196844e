package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type velocityProducts map[domain.Velocity][]int64

func (p velocityProducts) GetProduct(context.Context, int64) (*domain.Product, error) {
	return nil, domain.ErrProductNotFound
}

func (p velocityProducts) ListProductIDsByVelocity(_ context.Context, v domain.Velocity, limit int) ([]int64, error) {
	ids := p[v]
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

type recordingRefresher struct {
	invalidated []int64
	batches     [][]int64
}

func (r *recordingRefresher) InvalidateForecast(_ context.Context, id int64) error {
	r.invalidated = append(r.invalidated, id)
	return nil
}

func (r *recordingRefresher) ForecastBatch(_ context.Context, ids []int64, _ int) (domain.BatchResult[domain.ForecastResult], error) {
	r.batches = append(r.batches, ids)
	out := domain.BatchResult[domain.ForecastResult]{}
	for _, id := range ids {
		out.Results = append(out.Results, domain.ForecastResult{ProductID: id})
	}
	return out, nil
}

type stubCategories []domain.Category

func (c stubCategories) ListCategories(context.Context) ([]domain.Category, error) {
	return c, nil
}

type stubRegistry struct {
	stored     []int64
	primed     []int64
	persisted  int
	persistErr error
}

func (r *stubRegistry) StoredCategories(context.Context) ([]int64, error) {
	return r.stored, nil
}

func (r *stubRegistry) Prime(_ context.Context, ids []int64) map[int64]model.LoadStatus {
	r.primed = ids
	out := make(map[int64]model.LoadStatus, len(ids))
	for _, id := range ids {
		out[id] = model.LoadStatusCreatedFresh
	}
	return out
}

func (r *stubRegistry) PersistAll(context.Context) error {
	r.persisted++
	return r.persistErr
}

func TestRefreshJob_FastestFirstWithinLimit(t *testing.T) {
	products := velocityProducts{
		domain.VelocityLow:    {7, 8},
		domain.VelocityHigh:   {1, 2},
		domain.VelocityMedium: {4, 5},
	}
	refresher := &recordingRefresher{}
	job := NewRefreshJob(products, refresher, 3)

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, [][]int64{{1, 2}, {4}}, refresher.batches)
	assert.Equal(t, []int64{1, 2, 4}, refresher.invalidated)
}

func TestRefreshJob_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	refresher := &recordingRefresher{}
	err := NewRefreshJob(velocityProducts{domain.VelocityHigh: {1}}, refresher, 10).Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, refresher.batches)
}

func TestPrimeJob_PrimesCategoriesAndStoredSnapshots(t *testing.T) {
	registry := &stubRegistry{stored: []int64{5, 9}}
	job := NewPrimeJob(stubCategories{{ID: 3, Name: "Beverages"}, {ID: 5, Name: "Snacks"}}, registry)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []int64{3, 5, 9}, registry.primed)
}

func TestPersistJob_PropagatesError(t *testing.T) {
	registry := &stubRegistry{persistErr: errors.New("disk full")}

	err := NewPersistJob(registry).Run(context.Background())
	assert.EqualError(t, err, "disk full")
	assert.Equal(t, 1, registry.persisted)
}

func TestScheduler_AddJobValidatesSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	registry := &stubRegistry{}

	require.NoError(t, s.AddJob("@every 30m", NewPersistJob(registry)))
	require.NoError(t, s.AddJob("0 0 2 * * *", NewPersistJob(registry)))
	assert.Error(t, s.AddJob("not a schedule", NewPersistJob(registry)))

	require.NoError(t, s.RunNow(NewPersistJob(registry)))
	assert.Equal(t, 1, registry.persisted)

	s.Start()
	s.Stop()
}
