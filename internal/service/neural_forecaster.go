package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/analytics"
	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/metrics"
	"github.com/andresuchdata/stockcast/backend-go/internal/model"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	neuralConfidenceFloor   = 0.3
	neuralConfidenceCeiling = 0.95
	neuralDeviationPenalty  = 0.1
	neuralIntervalRatio     = 0.2
)

// NeuralConfig controls training of the per-category models
type NeuralConfig struct {
	MinTrainingWindows   int
	Train                model.TrainConfig
	TrainingTimeout      time.Duration
	PersistAfterTraining bool
}

func NeuralConfigFrom(f config.ForecastConfig, m config.ModelConfig) NeuralConfig {
	return NeuralConfig{
		MinTrainingWindows: f.MinTrainingWindows,
		Train: model.TrainConfig{
			Epochs:          f.TrainingEpochs,
			BatchSize:       f.BatchSize,
			ValidationSplit: f.ValidationSplit,
			LearningRate:    f.LearningRate,
		},
		TrainingTimeout:      m.TrainingTimeout(),
		PersistAfterTraining: m.PersistAfterTraining,
	}
}

// NeuralForecaster trains the category model on a product's history and rolls
// its one-day predictions forward over the horizon.
type NeuralForecaster struct {
	registry *model.Registry
	cfg      NeuralConfig
	metrics  *metrics.Recorder
	logger   zerolog.Logger
}

func NewNeuralForecaster(registry *model.Registry, cfg NeuralConfig, rec *metrics.Recorder) *NeuralForecaster {
	return &NeuralForecaster{
		registry: registry,
		cfg:      cfg,
		metrics:  rec,
		logger:   log.With().Str("component", "neural_forecaster").Logger(),
	}
}

// Forecast returns horizon points starting the day after the series and the
// model's accuracy on the training windows. Errors mean the caller should fall
// back to the statistical model.
func (f *NeuralForecaster) Forecast(ctx context.Context, categoryID int64, series []domain.DemandObservation, horizon int) ([]domain.ForecastPoint, float64, error) {
	values := analytics.Quantities(series)
	scale := model.DemandScale(values)

	x, y := model.TrainingSet(series, scale)
	if len(x) < f.cfg.MinTrainingWindows || len(x) == 0 {
		return nil, 0, fmt.Errorf("%w: %d training windows", domain.ErrInsufficientData, len(x))
	}

	handle, err := f.registry.Get(ctx, categoryID)
	if err != nil {
		return nil, 0, err
	}

	if err := f.train(ctx, handle, x, y); err != nil {
		return nil, 0, err
	}

	mean := analytics.Mean(values)
	std := analytics.PopStdDev(values)

	var (
		points   []domain.ForecastPoint
		accuracy float64
	)
	err = handle.View(func(p model.Predictor) error {
		accuracy = trainingAccuracy(p, x, y)
		points = rollForward(p, series, values, scale, horizon, mean, std)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return points, accuracy, nil
}

func (f *NeuralForecaster) train(ctx context.Context, handle *model.Handle, x [][]float64, y []float64) error {
	trainCtx := ctx
	if f.cfg.TrainingTimeout > 0 {
		var cancel context.CancelFunc
		trainCtx, cancel = context.WithTimeout(ctx, f.cfg.TrainingTimeout)
		defer cancel()
	}

	start := time.Now()
	report, err := handle.Train(trainCtx, x, y, f.cfg.Train)
	if err != nil {
		f.metrics.RecordTraining("failed", time.Since(start))
		return fmt.Errorf("train category %d: %w", handle.CategoryID(), err)
	}
	f.metrics.RecordTraining("ok", time.Since(start))

	f.logger.Debug().
		Int64("category_id", handle.CategoryID()).
		Int("samples", report.Samples).
		Float64("loss", report.Loss).
		Float64("validation_mse", report.ValidationMSE).
		Dur("took", time.Since(start)).
		Msg("Category model trained")

	if f.cfg.PersistAfterTraining {
		if err := f.registry.Persist(ctx, handle.CategoryID()); err != nil {
			f.logger.Warn().Err(err).Int64("category_id", handle.CategoryID()).Msg("Failed to persist model after training")
		}
	}
	return nil
}

func rollForward(p model.Predictor, series []domain.DemandObservation, values []float64, scale float64, horizon int, mean, std float64) []domain.ForecastPoint {
	seed := values
	if pad := model.LagDays - len(values); pad > 0 {
		seed = append(make([]float64, pad), values...)
	}
	window := model.NewLagWindow(model.LagDays, seed)

	date := analytics.NextDay(series, time.Now().UTC())
	points := make([]domain.ForecastPoint, horizon)
	for i := 0; i < horizon; i++ {
		predicted := p.Predict(model.Features(window.Values(), date, scale)) * scale
		if math.IsNaN(predicted) || math.IsInf(predicted, 0) {
			predicted = 0
		}
		predicted = math.Max(0, predicted)

		margin := predicted * neuralIntervalRatio
		points[i] = domain.ForecastPoint{
			Date:            date,
			PredictedDemand: predicted,
			Confidence:      neuralConfidence(predicted, mean, std),
			UpperBound:      predicted + margin,
			LowerBound:      math.Max(0, predicted-margin),
		}

		window.Push(predicted)
		date = date.AddDate(0, 0, 1)
	}
	return points
}

// neuralConfidence lowers confidence as a prediction strays from the historical mean
func neuralConfidence(predicted, mean, std float64) float64 {
	ratio := 0.0
	if std > 0 {
		ratio = math.Min(1, math.Abs(predicted-mean)/std)
	}
	return analytics.Clamp(1-ratio*neuralDeviationPenalty, neuralConfidenceFloor, neuralConfidenceCeiling)
}

// trainingAccuracy is 1 - MAPE over the windows with non-zero labels
func trainingAccuracy(p model.Predictor, x [][]float64, y []float64) float64 {
	sum, n := 0.0, 0
	for i := range x {
		if y[i] == 0 {
			continue
		}
		sum += math.Abs(p.Predict(x[i])-y[i]) / math.Abs(y[i])
		n++
	}
	if n == 0 {
		return 0
	}
	return analytics.Clamp01(1 - sum/float64(n))
}
