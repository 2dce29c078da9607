package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/restock-engine/internal/app"
	"github.com/andresuchdata/restock-engine/internal/config"
	"github.com/andresuchdata/restock-engine/internal/repository/csvfile"
	"github.com/andresuchdata/restock-engine/internal/repository/postgres"
	"github.com/andresuchdata/restock-engine/pkg/logger"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newDataDirFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "data-dir",
		Usage:   "Directory holding items.csv, suppliers.csv and sales.csv",
		EnvVars: []string{"APP_DATA_DIR"},
		Value:   "./data",
	}
}

func openDB(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return sqlx.NewDb(db, "pgx"), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("replenish failed")
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:  "replenish",
		Usage: "Operate the restock decision engine",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "info", EnvVars: []string{"LOG_LEVEL"}},
		},
		Before: func(c *cli.Context) error {
			logger.Configure(os.Stderr, "console")
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "run-once",
				Usage: "Run a single replenishment cycle over a CSV catalog and print the result",
				Flags: []cli.Flag{newDataDirFlag()},
				Action: func(c *cli.Context) error {
					return runOnce(c.Context, out, c.String("data-dir"))
				},
			},
			{
				Name:  "check-config",
				Usage: "Validate the environment configuration",
				Action: func(c *cli.Context) error {
					return checkConfig(out, config.New())
				},
			},
			{
				Name:  "migrate",
				Usage: "Apply the database schema",
				Flags: []cli.Flag{newDBURLFlag()},
				Action: func(c *cli.Context) error {
					db, err := openDB(c.Context, c.String("db-url"))
					if err != nil {
						return err
					}
					defer db.Close()
					return postgres.RunMigrations(c.Context, db)
				},
			},
			{
				Name:  "seed",
				Usage: "Load a CSV catalog into the database",
				Flags: []cli.Flag{newDBURLFlag(), newDataDirFlag()},
				Action: func(c *cli.Context) error {
					return seed(c.Context, out, c.String("db-url"), c.String("data-dir"))
				},
			},
		},
	}
}

func runOnce(ctx context.Context, out io.Writer, dataDir string) error {
	cfg := config.New()
	// run-once always reads the CSV catalog and keeps results local
	cfg.Database.Enabled = false
	cfg.Cache.Enabled = false
	cfg.PubSub.Enabled = false
	if err := cfg.Validate(); err != nil {
		return err
	}

	engine, err := app.Build(ctx, cfg, app.Options{DataDir: dataDir})
	if err != nil {
		return err
	}
	defer engine.Close(context.Background())

	res, runErr := engine.Scheduler.RunOnce(ctx)
	if res != nil {
		if err := writeJSON(out, res); err != nil {
			return err
		}
	}
	return runErr
}

func checkConfig(out io.Writer, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			for _, p := range verr.Problems {
				fmt.Fprintln(out, "  -", p)
			}
		}
		return err
	}

	return writeJSON(out, map[string]interface{}{
		"valid":          true,
		"check_interval": cfg.Replenishment.CheckInterval.String(),
		"workers":        cfg.Replenishment.WorkerCount,
		"collaborators": map[string]bool{
			"database":  cfg.Database.Enabled,
			"cache":     cfg.Cache.Enabled,
			"llm":       cfg.LLM.Enabled,
			"storage":   cfg.Storage.Enabled,
			"pubsub":    cfg.PubSub.Enabled,
			"telemetry": cfg.Telemetry.Enabled,
		},
	})
}

func seed(ctx context.Context, out io.Writer, dbURL, dataDir string) error {
	catalog, err := csvfile.Load(dataDir)
	if err != nil {
		return err
	}
	items, err := catalog.ListItems(ctx)
	if err != nil {
		return err
	}
	suppliers, err := catalog.ListSuppliers(ctx)
	if err != nil {
		return err
	}

	db, err := openDB(ctx, dbURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.RunMigrations(ctx, db); err != nil {
		return err
	}

	stats, err := postgres.NewCatalogWriter(postgres.Wrap(db, 0)).Seed(ctx, items, suppliers, catalog.Sales())
	if err != nil {
		return err
	}
	return writeJSON(out, stats)
}
