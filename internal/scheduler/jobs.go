package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/model"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
)

type Refresher interface {
	InvalidateForecast(ctx context.Context, productID int64) error
	ForecastBatch(ctx context.Context, productIDs []int64, horizon int) (domain.BatchResult[domain.ForecastResult], error)
}

type ModelRegistry interface {
	StoredCategories(ctx context.Context) ([]int64, error)
	Prime(ctx context.Context, categoryIDs []int64) map[int64]model.LoadStatus
	PersistAll(ctx context.Context) error
}

// RefreshJob recomputes cached forecasts, fastest-moving products first
type RefreshJob struct {
	products  repository.ProductRepository
	forecasts Refresher
	limit     int
}

func NewRefreshJob(products repository.ProductRepository, forecasts Refresher, limit int) *RefreshJob {
	return &RefreshJob{products: products, forecasts: forecasts, limit: limit}
}

func (j *RefreshJob) Name() string { return "forecast_refresh" }

func (j *RefreshJob) Run(ctx context.Context) error {
	remaining := j.limit
	refreshed, failed := 0, 0

	for _, velocity := range domain.VelocityPriority() {
		if remaining <= 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		ids, err := j.products.ListProductIDsByVelocity(ctx, velocity, remaining)
		if err != nil {
			return fmt.Errorf("list %s velocity products: %w", velocity, err)
		}
		if len(ids) == 0 {
			continue
		}

		for _, id := range ids {
			if err := j.forecasts.InvalidateForecast(ctx, id); err != nil {
				log.Warn().Err(err).Int64("product_id", id).Msg("forecast_refresh: invalidate failed")
			}
		}

		out, err := j.forecasts.ForecastBatch(ctx, ids, 0)
		if err != nil {
			return err
		}
		refreshed += len(out.Results)
		failed += len(out.Errors)
		remaining -= len(ids)
	}

	log.Info().Int("refreshed", refreshed).Int("failed", failed).Msg("forecast_refresh: done")
	return nil
}

// PrimeJob loads the model of every known category, plus any category that
// only has a stored snapshot, into the registry
type PrimeJob struct {
	categories repository.CategoryRepository
	registry   ModelRegistry
}

func NewPrimeJob(categories repository.CategoryRepository, registry ModelRegistry) *PrimeJob {
	return &PrimeJob{categories: categories, registry: registry}
}

func (j *PrimeJob) Name() string { return "model_prime" }

func (j *PrimeJob) Run(ctx context.Context) error {
	categories, err := j.categories.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}

	seen := make(map[int64]bool, len(categories))
	ids := make([]int64, 0, len(categories))
	for _, c := range categories {
		seen[c.ID] = true
		ids = append(ids, c.ID)
	}

	stored, err := j.registry.StoredCategories(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("model_prime: could not list stored snapshots")
	}
	for _, id := range stored {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	var failed []error
	for id, status := range j.registry.Prime(ctx, ids) {
		if status == model.LoadStatusFailed {
			failed = append(failed, fmt.Errorf("category %d: %s", id, status))
		}
	}
	if len(failed) > 0 {
		log.Warn().Err(errors.Join(failed...)).Int("categories", len(ids)).Msg("model_prime: some snapshots could not be restored")
	}
	return nil
}

// PersistJob flushes trained models to the snapshot store
type PersistJob struct {
	registry ModelRegistry
}

func NewPersistJob(registry ModelRegistry) *PersistJob {
	return &PersistJob{registry: registry}
}

func (j *PersistJob) Name() string { return "model_persist" }

func (j *PersistJob) Run(ctx context.Context) error {
	return j.registry.PersistAll(ctx)
}
