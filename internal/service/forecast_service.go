package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/analytics"
	"github.com/andresuchdata/stockcast/backend-go/internal/cache"
	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/events"
	"github.com/andresuchdata/stockcast/backend-go/internal/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// ForecastService picks a forecaster per product and caches the result
type ForecastService struct {
	series      *SeriesService
	neural      *NeuralForecaster
	statistical analytics.StatisticalForecaster
	cache       cache.ForecastCache
	events      events.Publisher
	metrics     *metrics.Recorder
	cfg         config.ForecastConfig
	workers     int
	inflight    singleflight.Group
}

// NewForecastService wires the orchestrator. neural may be nil to run
// statistical forecasts only.
func NewForecastService(
	series *SeriesService,
	neural *NeuralForecaster,
	cacheImpl cache.ForecastCache,
	publisher events.Publisher,
	rec *metrics.Recorder,
	cfg config.ForecastConfig,
	workers int,
) *ForecastService {
	if cacheImpl == nil {
		cacheImpl = cache.NewMemoryForecastCache(time.Hour, 0)
	}
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	return &ForecastService{
		series:  series,
		neural:  neural,
		cache:   cacheImpl,
		events:  publisher,
		metrics: rec,
		cfg:     cfg,
		workers: workers,
	}
}

// ResolveHorizon applies the default horizon to 0 and rejects values outside 1..MaxHorizon
func (s *ForecastService) ResolveHorizon(horizon int) (int, error) {
	if horizon == 0 {
		horizon = s.cfg.DefaultHorizon
	}
	maxHorizon := s.cfg.MaxHorizon
	if maxHorizon <= 0 {
		maxHorizon = 365
	}
	if horizon < 1 || horizon > maxHorizon {
		return 0, fmt.Errorf("%w: %d (allowed 1..%d)", domain.ErrInvalidHorizon, horizon, maxHorizon)
	}
	return horizon, nil
}

// Forecast returns the demand forecast of a product over horizon days
func (s *ForecastService) Forecast(ctx context.Context, productID int64, horizon int) (*domain.ForecastResult, error) {
	horizon, err := s.ResolveHorizon(horizon)
	if err != nil {
		return nil, err
	}

	if result, ok, err := s.cache.Get(ctx, productID, horizon); err == nil && ok {
		s.metrics.RecordCacheLookup("hit")
		return result, nil
	} else if err != nil {
		s.metrics.RecordCacheLookup("error")
		log.Warn().Err(err).Int64("product_id", productID).Msg("forecast: cache get failed")
	} else {
		s.metrics.RecordCacheLookup("miss")
	}

	key := cache.ForecastKey(productID, horizon)
	// The shared computation outlives any single caller; each caller still
	// stops waiting when its own context ends.
	shared := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(key, func() (any, error) {
		return s.compute(shared, productID, horizon)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.ForecastResult), nil
	}
}

func (s *ForecastService) compute(ctx context.Context, productID int64, horizon int) (*domain.ForecastResult, error) {
	defer s.metrics.RecordLatency("forecast", time.Now())

	product, series, err := s.series.Build(ctx, productID, s.cfg.HistoryDays)
	if err != nil {
		return nil, err
	}

	result := s.forecastSeries(ctx, product, series, horizon)

	if err := s.cache.Set(ctx, horizon, result); err != nil {
		log.Warn().Err(err).Int64("product_id", productID).Msg("forecast: cache set failed")
	}

	event := events.Event{
		Type:      events.TypeForecastUpdated,
		ProductID: productID,
		Payload: map[string]any{
			"horizon":    horizon,
			"model_type": result.ModelType,
			"accuracy":   result.Accuracy,
		},
	}
	if err := s.events.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Int64("product_id", productID).Msg("forecast: publish event failed")
	}

	return result, nil
}

func (s *ForecastService) forecastSeries(ctx context.Context, product *domain.Product, series []domain.DemandObservation, horizon int) *domain.ForecastResult {
	result := &domain.ForecastResult{
		ProductID:   product.ID,
		GeneratedAt: time.Now().UTC(),
	}

	active := analytics.ActiveSpan(series)
	if s.neural != nil && product.HasCategory() && len(active) >= s.cfg.MinNeuralHistory {
		points, accuracy, err := s.neural.Forecast(ctx, product.CategoryID, active, horizon)
		if err == nil {
			result.Predictions = points
			result.Accuracy = accuracy
			result.ModelType = domain.ModelNeuralNetwork
			s.metrics.RecordForecast(string(result.ModelType))
			return result
		}

		reason := "training_failed"
		if errors.Is(err, domain.ErrInsufficientData) {
			reason = "insufficient_windows"
		}
		s.metrics.RecordFallback(reason)
		log.Warn().Err(err).
			Int64("product_id", product.ID).
			Int64("category_id", product.CategoryID).
			Msg("forecast: neural path failed, using statistical model")
	}

	// a product without any demand keeps its all-zero window
	history := active
	if len(history) == 0 {
		history = series
	}
	from := s.series.Today().AddDate(0, 0, 1)
	points, accuracy := s.statistical.Forecast(history, from, horizon)
	result.Predictions = points
	result.Accuracy = accuracy
	result.ModelType = domain.ModelStatistical
	s.metrics.RecordForecast(string(result.ModelType))
	return result
}

// InvalidateForecast drops every cached horizon of the product
func (s *ForecastService) InvalidateForecast(ctx context.Context, productID int64) error {
	if err := s.cache.InvalidateProduct(ctx, productID); err != nil {
		return fmt.Errorf("invalidate forecast cache for product %d: %w", productID, err)
	}
	return nil
}

// ForecastBatch forecasts every product independently
func (s *ForecastService) ForecastBatch(ctx context.Context, productIDs []int64, horizon int) (domain.BatchResult[domain.ForecastResult], error) {
	horizon, err := s.ResolveHorizon(horizon)
	if err != nil {
		return domain.BatchResult[domain.ForecastResult]{}, err
	}

	out := runBatch(ctx, productIDs, s.workers, func(ctx context.Context, id int64) (*domain.ForecastResult, error) {
		return s.Forecast(ctx, id, horizon)
	})
	s.metrics.RecordBatchErrors("forecast", len(out.Errors))
	return out, nil
}
