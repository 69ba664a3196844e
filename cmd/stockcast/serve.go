package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/api"
	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/scheduler"
	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 10 * time.Second

func runServe(c *cli.Context) error {
	cfg := config.Load()
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	e, err := newEngine(cfg, dbFrom(c))
	if err != nil {
		return err
	}
	defer e.close()

	router := api.NewRouter(&api.Services{
		Forecasts:     e.forecasts,
		Optimizer:     e.optimizer,
		Anomalies:     e.anomalies,
		Insights:      e.insights,
		Models:        e.registry,
		BatchMaxItems: cfg.Server.BatchMaxItems,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}
	admin := &http.Server{
		Addr:        ":" + cfg.Server.AdminPort,
		Handler:     api.NewAdminRouter(e.promReg, e.healthChecks()),
		ReadTimeout: 5 * time.Second,
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = newScheduler(cfg, e)
		if err != nil {
			return err
		}
		go func() {
			if err := sched.RunNow(scheduler.NewPrimeJob(e.categories, e.registry)); err != nil {
				logger.Log.Warn().Err(err).Msg("Initial model priming failed")
			}
		}()
		sched.Start()
	}

	errCh := make(chan error, 2)
	for _, s := range []*http.Server{srv, admin} {
		go func(s *http.Server) {
			logger.Log.Info().Str("addr", s.Addr).Msg("Starting server")
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(s)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		logger.Log.Error().Err(err).Msg("Server failed")
	}
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if sched != nil {
		sched.Stop()
	}
	for _, s := range []*http.Server{srv, admin} {
		if err := s.Shutdown(ctx); err != nil {
			logger.Log.Error().Err(err).Str("addr", s.Addr).Msg("Server forced to shutdown")
		}
	}

	if err := e.registry.PersistAll(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to persist models on shutdown")
	}
	e.registry.DisposeAll()

	logger.Log.Info().Msg("Server exiting")
	return nil
}

func newScheduler(cfg *config.Config, e *engine) (*scheduler.Scheduler, error) {
	s := scheduler.New(logger.Log)
	jobs := []struct {
		schedule string
		job      scheduler.Job
	}{
		{cfg.Scheduler.RefreshSchedule, scheduler.NewRefreshJob(e.products, e.forecasts, cfg.Scheduler.RefreshLimit)},
		{cfg.Scheduler.PrimeSchedule, scheduler.NewPrimeJob(e.categories, e.registry)},
		{cfg.Scheduler.PersistSchedule, scheduler.NewPersistJob(e.registry)},
	}
	for _, j := range jobs {
		if j.schedule == "" {
			continue
		}
		if err := s.AddJob(j.schedule, j.job); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (e *engine) healthChecks() map[string]api.HealthCheck {
	checks := map[string]api.HealthCheck{
		"database": func(ctx context.Context) error { return e.db.PingContext(ctx) },
	}
	if e.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return e.redis.Ping(ctx).Err() }
	}
	return checks
}
