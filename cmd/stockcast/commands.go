package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/scheduler"
	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
	"github.com/urfave/cli/v2"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withEngine builds the engine for a one-shot command and flushes any model
// trained while it ran.
func withEngine(c *cli.Context, fn func(e *engine) (any, error)) error {
	e, err := newEngine(config.Load(), dbFrom(c))
	if err != nil {
		return err
	}
	defer e.close()
	defer func() {
		if err := e.registry.PersistAll(c.Context); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to persist models")
		}
		e.registry.DisposeAll()
	}()

	out, err := fn(e)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, out)
}

func runForecast(c *cli.Context) error {
	return withEngine(c, func(e *engine) (any, error) {
		return e.forecasts.Forecast(c.Context, c.Int64("product"), c.Int("days"))
	})
}

func runOptimize(c *cli.Context) error {
	return withEngine(c, func(e *engine) (any, error) {
		return e.optimizer.Optimize(c.Context, c.Int64("product"))
	})
}

func runAnomalies(c *cli.Context) error {
	return withEngine(c, func(e *engine) (any, error) {
		return e.anomalies.Detect(c.Context, c.Int64("product"))
	})
}

func runInsights(c *cli.Context) error {
	return withEngine(c, func(e *engine) (any, error) {
		return e.insights.Generate(c.Context, c.Int64("product"))
	})
}

func runPrime(c *cli.Context) error {
	return withEngine(c, func(e *engine) (any, error) {
		if err := scheduler.NewPrimeJob(e.categories, e.registry).Run(c.Context); err != nil {
			return nil, err
		}
		return e.registry.Status(), nil
	})
}

func runMigrate(c *cli.Context) error {
	if err := dbFrom(c).Migrate(c.Context); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Log.Info().Msg("Schema applied")
	return nil
}
