package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/events"
	"github.com/andresuchdata/stockcast/backend-go/internal/model"
)

var testNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

type fakeProducts struct {
	products map[int64]*domain.Product
}

func (f *fakeProducts) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, domain.ProductNotFound(id)
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProducts) ListProductIDsByVelocity(_ context.Context, v domain.Velocity, limit int) ([]int64, error) {
	var ids []int64
	for id, p := range f.products {
		if p.Velocity == v && len(ids) < limit {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type fakeMovements struct {
	byProduct map[int64][]domain.Movement
	calls     atomic.Int64

	// entered is closed on the first call; when release is set every call
	// waits on it and then reports the context's error, if any.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeMovements) ListOutboundMovements(ctx context.Context, productID int64, since time.Time) ([]domain.Movement, error) {
	if f.calls.Add(1) == 1 && f.entered != nil {
		close(f.entered)
	}
	if f.release != nil {
		<-f.release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	out := make([]domain.Movement, 0)
	for _, m := range f.byProduct[productID] {
		if !m.Date.Before(since) {
			out = append(out, m)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// history returns one outbound movement per day for the days ending at testNow
func history(productID int64, quantities []int) []domain.Movement {
	end := time.Date(testNow.Year(), testNow.Month(), testNow.Day(), 9, 0, 0, 0, time.UTC)
	out := make([]domain.Movement, 0, len(quantities))
	for i, q := range quantities {
		if q == 0 {
			continue
		}
		out = append(out, domain.Movement{
			ProductID: productID,
			Date:      end.AddDate(0, 0, -(len(quantities) - 1 - i)),
			Quantity:  -q,
			Type:      domain.MovementOutbound,
		})
	}
	return out
}

func weeklyPattern(days int) []int {
	q := make([]int, days)
	for i := range q {
		q[i] = 10 + (i%7)*2
	}
	return q
}

type fixture struct {
	products  *fakeProducts
	movements *fakeMovements
	publisher *recordingPublisher
	registry  *model.Registry
	series    *SeriesService
	forecasts *ForecastService
	optimizer *OptimizationService
	anomalies *AnomalyService
	insights  *InsightsService
}

func testNeuralConfig() NeuralConfig {
	return NeuralConfig{
		MinTrainingWindows: 10,
		Train:              model.TrainConfig{Epochs: 3, BatchSize: 32, ValidationSplit: 0.2},
		TrainingTimeout:    time.Minute,
	}
}

func newFixture(products map[int64]*domain.Product, movements map[int64][]domain.Movement) *fixture {
	cfg := config.Default()
	f := &fixture{
		products:  &fakeProducts{products: products},
		movements: &fakeMovements{byProduct: movements},
		publisher: &recordingPublisher{},
		registry:  model.NewRegistry(model.NewMemoryStore(), model.DefaultArchitecture(), 7),
	}

	f.series = NewSeriesService(f.products, f.movements)
	f.series.now = func() time.Time { return testNow }

	neural := NewNeuralForecaster(f.registry, testNeuralConfig(), nil)
	f.forecasts = NewForecastService(f.series, neural, nil, f.publisher, nil, cfg.Forecast, 3)
	f.optimizer = NewOptimizationService(f.forecasts, f.products, EOQParamsFrom(cfg.EOQ), nil, 3)
	f.anomalies = NewAnomalyService(f.series, AnomalyParamsFrom(cfg.Anomaly), cfg.Anomaly.HistoryDays)
	f.insights = NewInsightsService(f.forecasts, f.optimizer, f.anomalies, f.publisher)
	f.insights.now = func() time.Time { return testNow }
	return f
}
