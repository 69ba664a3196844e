package service

import (
	"context"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/analytics"
	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/metrics"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository"
)

// EOQParamsFrom maps the configured cost parameters onto the optimizer's
func EOQParamsFrom(c config.EOQConfig) analytics.EOQParams {
	return analytics.EOQParams{
		OrderingCost:       c.OrderingCost,
		HoldingCostRate:    c.HoldingCostRate,
		DefaultHoldingCost: c.DefaultHoldingCost,
		LeadTimeDays:       c.LeadTimeDays,
		ServiceLevelZ:      c.ServiceLevelZ,
	}
}

type OptimizationService struct {
	forecasts *ForecastService
	products  repository.ProductRepository
	params    analytics.EOQParams
	metrics   *metrics.Recorder
	workers   int
}

func NewOptimizationService(forecasts *ForecastService, products repository.ProductRepository, params analytics.EOQParams, rec *metrics.Recorder, workers int) *OptimizationService {
	return &OptimizationService{
		forecasts: forecasts,
		products:  products,
		params:    params,
		metrics:   rec,
		workers:   workers,
	}
}

// Optimize recommends stock levels from the product's default-horizon forecast
func (s *OptimizationService) Optimize(ctx context.Context, productID int64) (*domain.OptimizationResult, error) {
	defer s.metrics.RecordLatency("optimize", time.Now())

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ProductNotFound(productID)
	}

	forecast, err := s.forecasts.Forecast(ctx, productID, 0)
	if err != nil {
		return nil, err
	}

	result := analytics.Optimize(analytics.OptimizeInput{
		ProductID:    product.ID,
		CurrentStock: product.CurrentStock,
		UnitPrice:    product.UnitPrice,
		Predictions:  forecast.PredictedValues(),
	}, s.params)
	return &result, nil
}

func (s *OptimizationService) OptimizeBatch(ctx context.Context, productIDs []int64) domain.BatchResult[domain.OptimizationResult] {
	out := runBatch(ctx, productIDs, s.workers, s.Optimize)
	s.metrics.RecordBatchErrors("optimize", len(out.Errors))
	return out
}
