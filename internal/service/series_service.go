package service

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/analytics"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository"
)

// SeriesService loads a product and its gap-free daily demand series
type SeriesService struct {
	products  repository.ProductRepository
	movements repository.MovementRepository
	now       func() time.Time
}

func NewSeriesService(products repository.ProductRepository, movements repository.MovementRepository) *SeriesService {
	return &SeriesService{
		products:  products,
		movements: movements,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Build returns the product and one observation per day for the windowDays
// days ending today.
func (s *SeriesService) Build(ctx context.Context, productID int64, windowDays int) (*domain.Product, []domain.DemandObservation, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	if product == nil {
		return nil, nil, domain.ProductNotFound(productID)
	}

	if windowDays < 1 {
		windowDays = 1
	}
	end := analytics.Day(s.now())
	start := end.AddDate(0, 0, -(windowDays - 1))

	movements, err := s.movements.ListOutboundMovements(ctx, productID, start)
	if err != nil {
		return nil, nil, fmt.Errorf("load movements for product %d: %w", productID, err)
	}

	return product, analytics.BuildDailySeries(movements, start, end), nil
}

// Today is the last day covered by series built now
func (s *SeriesService) Today() time.Time {
	return analytics.Day(s.now())
}
