package service

import (
	"context"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/analytics"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/events"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type InsightsService struct {
	forecasts *ForecastService
	optimizer *OptimizationService
	anomalies *AnomalyService
	events    events.Publisher
	now       func() time.Time
}

func NewInsightsService(forecasts *ForecastService, optimizer *OptimizationService, anomalies *AnomalyService, publisher events.Publisher) *InsightsService {
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	return &InsightsService{
		forecasts: forecasts,
		optimizer: optimizer,
		anomalies: anomalies,
		events:    publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Generate runs forecast, optimization and anomaly detection concurrently and
// turns their results into prioritised insights.
func (s *InsightsService) Generate(ctx context.Context, productID int64) ([]domain.Insight, error) {
	in := analytics.InsightInput{ProductID: productID, Now: s.now()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		forecast, err := s.forecasts.Forecast(gctx, productID, 0)
		in.Forecast = forecast
		return err
	})
	g.Go(func() error {
		optimization, err := s.optimizer.Optimize(gctx, productID)
		in.Optimization = optimization
		return err
	})
	g.Go(func() error {
		anomalies, err := s.anomalies.Detect(gctx, productID)
		in.Anomalies = anomalies
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	insights := analytics.SynthesizeInsights(in)

	event := events.Event{
		Type:      events.TypeInsightsGenerated,
		ProductID: productID,
		Payload:   map[string]any{"count": len(insights)},
	}
	if err := s.events.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Int64("product_id", productID).Msg("insights: publish event failed")
	}

	return insights, nil
}
