package model

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearDataset(rng *rand.Rand, n int) ([][]float64, []float64) {
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range x {
		row := make([]float64, FeatureWidth)
		for j := range row {
			row[j] = rng.Float64()
		}
		x[i] = row
		y[i] = 0.5*row[0] + 0.25*row[1] + 0.1
	}
	return x, y
}

func TestNetwork_FitReducesError(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	arch := Architecture{Inputs: FeatureWidth, Hidden: []int{16}, LearningRate: 0.01}
	net := NewNetwork(arch, rng)
	x, y := linearDataset(rng, 64)

	before := net.mse(x, y)
	report, err := net.Fit(context.Background(), x, y, TrainConfig{Epochs: 200, BatchSize: 16})
	require.NoError(t, err)

	after := net.mse(x, y)
	assert.Less(t, after, before)
	assert.Less(t, after, 0.05)
	assert.Equal(t, 200, report.Epochs)
	assert.Equal(t, 64, report.TrainSamples)
}

func TestNetwork_ValidationSplitHoldsOutTail(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	net := NewNetwork(DefaultArchitecture(), rng)
	x, y := linearDataset(rng, 50)

	report, err := net.Fit(context.Background(), x, y, TrainConfig{Epochs: 2, BatchSize: 8, ValidationSplit: 0.2})
	require.NoError(t, err)
	assert.Equal(t, 50, report.Samples)
	assert.Equal(t, 40, report.TrainSamples)
	assert.False(t, math.IsNaN(report.ValidationMSE))
}

func TestNetwork_DivergedLoss(t *testing.T) {
	net := NewNetwork(DefaultArchitecture(), rand.New(rand.NewPCG(1, 1)))
	row := make([]float64, FeatureWidth)
	row[0] = math.NaN()

	_, err := net.Fit(context.Background(), [][]float64{row}, []float64{1}, TrainConfig{Epochs: 1})
	assert.ErrorIs(t, err, ErrTrainingDiverged)
}

func TestNetwork_FitHonoursContext(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	net := NewNetwork(DefaultArchitecture(), rng)
	x, y := linearDataset(rng, 20)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := net.Fit(ctx, x, y, TrainConfig{Epochs: 10})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNetwork_FitRejectsEmptyInput(t *testing.T) {
	net := NewNetwork(DefaultArchitecture(), rand.New(rand.NewPCG(1, 1)))
	_, err := net.Fit(context.Background(), nil, nil, TrainConfig{})
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestNetwork_PredictIsDeterministic(t *testing.T) {
	net := NewNetwork(DefaultArchitecture(), rand.New(rand.NewPCG(9, 9)))
	f := make([]float64, FeatureWidth)
	for i := range f {
		f[i] = float64(i) / 10
	}
	assert.Equal(t, net.Predict(f), net.Predict(f))
}
