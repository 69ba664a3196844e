package service

import (
	"context"

	"github.com/andresuchdata/stockcast/backend-go/internal/analytics"
	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

func AnomalyParamsFrom(c config.AnomalyConfig) analytics.AnomalyParams {
	return analytics.AnomalyParams{
		Window:          c.WindowDays,
		MinObservations: c.MinObservations,
		Threshold:       c.ZThreshold,
		Medium:          c.ZMedium,
		High:            c.ZHigh,
	}
}

type AnomalyService struct {
	series      *SeriesService
	params      analytics.AnomalyParams
	historyDays int
}

func NewAnomalyService(series *SeriesService, params analytics.AnomalyParams, historyDays int) *AnomalyService {
	if historyDays <= 0 {
		historyDays = 90
	}
	return &AnomalyService{series: series, params: params, historyDays: historyDays}
}

// Detect flags abnormal demand days over the anomaly history window. Days
// before the product's first sale are excluded, as they are for forecasting.
func (s *AnomalyService) Detect(ctx context.Context, productID int64) ([]domain.AnomalyRecord, error) {
	_, series, err := s.series.Build(ctx, productID, s.historyDays)
	if err != nil {
		return nil, err
	}
	return analytics.DetectAnomalies(analytics.ActiveSpan(series), s.params), nil
}
