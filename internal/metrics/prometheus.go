package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the engine's Prometheus collectors. A nil *Recorder is a
// valid no-op recorder.
type Recorder struct {
	forecasts     *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	trainings     *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	trainDuration prometheus.Histogram
	batchErrors   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		forecasts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_forecasts_total",
				Help: "Forecasts produced, by model type",
			},
			[]string{"model"},
		),
		fallbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_forecast_fallbacks_total",
				Help: "Neural forecasts that fell back to the statistical model",
			},
			[]string{"reason"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_forecast_cache_lookups_total",
				Help: "Forecast cache lookups by result",
			},
			[]string{"result"},
		),
		trainings: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_model_trainings_total",
				Help: "Category model training runs by outcome",
			},
			[]string{"outcome"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockcast_operation_duration_seconds",
				Help:    "Duration of engine operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		trainDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stockcast_model_training_duration_seconds",
				Help:    "Duration of category model training runs",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
		batchErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_batch_item_errors_total",
				Help: "Failed items inside batch operations",
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordForecast(model string) {
	if r == nil {
		return
	}
	r.forecasts.WithLabelValues(model).Inc()
}

func (r *Recorder) RecordFallback(reason string) {
	if r == nil {
		return
	}
	r.fallbacks.WithLabelValues(reason).Inc()
}

// RecordCacheLookup records a cache hit, miss or error
func (r *Recorder) RecordCacheLookup(result string) {
	if r == nil {
		return
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordTraining(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.trainings.WithLabelValues(outcome).Inc()
	r.trainDuration.Observe(d.Seconds())
}

// RecordLatency records operation latency since start
func (r *Recorder) RecordLatency(op string, start time.Time) {
	if r == nil {
		return
	}
	r.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (r *Recorder) RecordBatchErrors(op string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.batchErrors.WithLabelValues(op).Add(float64(n))
}
