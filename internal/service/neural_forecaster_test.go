package service

import (
	"context"
	"testing"

	"github.com/andresuchdata/stockcast/backend-go/internal/analytics"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constPredictor float64

func (c constPredictor) Predict([]float64) float64 { return float64(c) }

func TestNeuralConfidence(t *testing.T) {
	assert.InDelta(t, 0.95, neuralConfidence(10, 10, 2), 1e-9)
	assert.InDelta(t, 0.95, neuralConfidence(50, 10, 0), 1e-9)
	assert.InDelta(t, 0.9, neuralConfidence(100, 10, 2), 1e-9)
	assert.InDelta(t, 0.95, neuralConfidence(11, 10, 2), 1e-9)
	assert.InDelta(t, 0.92, neuralConfidence(13.6, 10, 4.5), 1e-9)
}

func TestTrainingAccuracy(t *testing.T) {
	x := [][]float64{{0}, {0}, {0}}
	assert.InDelta(t, 0.75, trainingAccuracy(constPredictor(1), x, []float64{1, 2, 0}), 1e-9)
	assert.Equal(t, 0.0, trainingAccuracy(constPredictor(1), x, []float64{0, 0, 0}))
	assert.Equal(t, 0.0, trainingAccuracy(constPredictor(100), x[:1], []float64{1}))
}

func TestNeuralForecaster_InsufficientWindows(t *testing.T) {
	registry := model.NewRegistry(model.NewMemoryStore(), model.DefaultArchitecture(), 1)
	nf := NewNeuralForecaster(registry, testNeuralConfig(), nil)

	series := make([]domain.DemandObservation, 15)
	for i := range series {
		series[i] = analytics.NewObservation(testNow.AddDate(0, 0, i-15), 4)
	}

	_, _, err := nf.Forecast(context.Background(), 1, series, 7)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
	assert.Empty(t, registry.Status())
}

func TestNeuralForecaster_PersistsAfterTraining(t *testing.T) {
	store := model.NewMemoryStore()
	registry := model.NewRegistry(store, model.DefaultArchitecture(), 1)
	cfg := testNeuralConfig()
	cfg.PersistAfterTraining = true
	nf := NewNeuralForecaster(registry, cfg, nil)

	q := weeklyPattern(40)
	series := make([]domain.DemandObservation, len(q))
	for i, v := range q {
		series[i] = analytics.NewObservation(testNow.AddDate(0, 0, i-len(q)+1), v)
	}

	points, _, err := nf.Forecast(context.Background(), 8, series, 5)
	require.NoError(t, err)
	assert.Len(t, points, 5)

	_, err = store.Load(context.Background(), 8)
	assert.NoError(t, err)
	assert.False(t, registry.Status()[0].Dirty)
}
