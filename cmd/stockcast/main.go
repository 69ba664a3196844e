package main

import (
	"context"
	"fmt"
	"os"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
	"github.com/urfave/cli/v2"
)

type ctxKey string

const dbKey ctxKey = "db"

func productFlag() *cli.Int64Flag {
	return &cli.Int64Flag{
		Name:     "product",
		Aliases:  []string{"p"},
		Usage:    "Product id",
		Required: true,
	}
}

func initDB(c *cli.Context) error {
	cfg := config.Load()
	if url := c.String("db-url"); url != "" {
		cfg.Database.URL = url
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) *postgres.DB {
	db, _ := c.Context.Value(dbKey).(*postgres.DB)
	return db
}

func main() {
	app := &cli.App{
		Name:  "stockcast",
		Usage: "Demand forecasting, stock optimization and anomaly detection",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db-url",
				Usage:   "Database connection string",
				EnvVars: []string{"DATABASE_URL"},
			},
		},
		Before: func(c *cli.Context) error {
			cfg := config.Load()
			logger.Setup(cfg.Server.LogLevel, cfg.Server.Mode)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, admin endpoints and scheduled jobs",
				Before: initDB,
				After:  closeDB,
				Action: runServe,
			},
			{
				Name:  "forecast",
				Usage: "Print the demand forecast of a product",
				Flags: []cli.Flag{
					productFlag(),
					&cli.IntFlag{Name: "days", Usage: "Forecast horizon in days (0 uses the default)"},
				},
				Before: initDB,
				After:  closeDB,
				Action: runForecast,
			},
			{
				Name:   "optimize",
				Usage:  "Print the stock recommendation of a product",
				Flags:  []cli.Flag{productFlag()},
				Before: initDB,
				After:  closeDB,
				Action: runOptimize,
			},
			{
				Name:   "anomalies",
				Usage:  "Print the demand anomalies of a product",
				Flags:  []cli.Flag{productFlag()},
				Before: initDB,
				After:  closeDB,
				Action: runAnomalies,
			},
			{
				Name:   "insights",
				Usage:  "Print the prioritised insights of a product",
				Flags:  []cli.Flag{productFlag()},
				Before: initDB,
				After:  closeDB,
				Action: runInsights,
			},
			{
				Name:   "prime",
				Usage:  "Load every category model and report how each was restored",
				Before: initDB,
				After:  closeDB,
				Action: runPrime,
			},
			{
				Name:   "migrate",
				Usage:  "Apply the database schema",
				Before: initDB,
				After:  closeDB,
				Action: runMigrate,
			},
			{
				Name:  "seed",
				Usage: "Seed the database with demo data",
				Subcommands: []*cli.Command{
					{
						Name:  "movements",
						Usage: "Import products and outbound movements from a CSV file",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:    "file",
								Usage:   "CSV with header sku,name,category,current_stock,unit_price,velocity,date,quantity,type",
								Value:   "./data/seeds/movements.csv",
								EnvVars: []string{"SEED_MOVEMENTS_FILE"},
							},
						},
						Before: initDB,
						After:  closeDB,
						Action: runSeedMovements,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("stockcast failed")
	}
}
