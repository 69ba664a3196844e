package main

import (
	"fmt"

	"github.com/andresuchdata/stockcast/backend-go/internal/cache"
	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/events"
	"github.com/andresuchdata/stockcast/backend-go/internal/metrics"
	"github.com/andresuchdata/stockcast/backend-go/internal/model"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/stockcast/backend-go/internal/service"
	"github.com/andresuchdata/stockcast/backend-go/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// engine holds every collaborator of the forecasting services
type engine struct {
	cfg *config.Config
	db  *postgres.DB

	products   repository.ProductRepository
	categories repository.CategoryRepository

	redis    *redis.Client
	cache    cache.ForecastCache
	events   events.Publisher
	promReg  *prometheus.Registry
	recorder *metrics.Recorder

	registry  *model.Registry
	forecasts *service.ForecastService
	optimizer *service.OptimizationService
	anomalies *service.AnomalyService
	insights  *service.InsightsService
}

func newEngine(cfg *config.Config, db *postgres.DB) (*engine, error) {
	e := &engine{
		cfg:        cfg,
		db:         db,
		products:   repository.NewProductRepository(db.DB),
		categories: repository.NewCategoryRepository(db.DB),
		promReg:    prometheus.NewRegistry(),
	}
	e.promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	e.recorder = metrics.New(e.promReg)

	e.connectRedis()

	store, err := newModelStore(cfg)
	if err != nil {
		return nil, err
	}
	e.registry = model.NewRegistry(store, model.DefaultArchitecture(), cfg.Model.Seed)

	movements := repository.NewMovementRepository(db.DB)
	series := service.NewSeriesService(e.products, movements)
	neural := service.NewNeuralForecaster(e.registry, service.NeuralConfigFrom(cfg.Forecast, cfg.Model), e.recorder)

	e.forecasts = service.NewForecastService(series, neural, e.cache, e.events, e.recorder, cfg.Forecast, cfg.Server.BatchWorkers)
	e.optimizer = service.NewOptimizationService(e.forecasts, e.products, service.EOQParamsFrom(cfg.EOQ), e.recorder, cfg.Server.BatchWorkers)
	e.anomalies = service.NewAnomalyService(series, service.AnomalyParamsFrom(cfg.Anomaly), cfg.Anomaly.HistoryDays)
	e.insights = service.NewInsightsService(e.forecasts, e.optimizer, e.anomalies, e.events)

	log.Info().
		Str("cache", e.cache.Backend()).
		Str("model_store", cfg.Model.Store).
		Bool("events", e.redis != nil && cfg.Events.Enabled).
		Msg("Engine ready")
	return e, nil
}

// connectRedis shares one client between the forecast cache and the event
// publisher. Without redis the cache stays in process and events are dropped.
func (e *engine) connectRedis() {
	e.events = events.NewNoopPublisher()

	if e.cfg.Cache.Enabled || e.cfg.Events.Enabled {
		client, err := cache.NewRedisClient(e.cfg.Cache)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, using in-memory forecast cache and no events")
		} else {
			e.redis = client
		}
	}

	e.cache = cache.NewForecastCache(e.cfg.Cache, e.redis)
	if e.redis != nil && e.cfg.Events.Enabled {
		e.events = events.NewRedisPublisher(e.redis, e.cfg.Events.Channel)
	}
}

func newModelStore(cfg *config.Config) (model.Store, error) {
	switch cfg.Model.Store {
	case "", "file":
		return model.NewFileStore(cfg.Model.Dir)
	case "object", "minio", "s3":
		client, err := storage.NewMinioClient(storage.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return model.NewObjectStore(client, cfg.Model.ObjectPrefix), nil
	case "memory":
		return model.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown model store %q", cfg.Model.Store)
	}
}

func (e *engine) close() {
	if e.redis != nil {
		if err := e.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close redis client")
		}
	}
}
