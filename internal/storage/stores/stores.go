// Package stores opens the configured storage backends.
package stores

import (
	"context"
	"fmt"

	"taxi-duration-lab/internal/storage"
	chstore "taxi-duration-lab/internal/storage/clickhouse"
	"taxi-duration-lab/internal/storage/memory"
	"taxi-duration-lab/internal/storage/migrations"
	pgstore "taxi-duration-lab/internal/storage/postgres"
)

// Stores holds the storage implementations shared by the commands.
// Either field may be nil when no backend is configured for it.
type Stores struct {
	Predictions storage.PredictionStore
	BatchRuns   storage.BatchRunStore
}

// Config selects the backends.
type Config struct {
	UseMemory     bool
	PostgresDSN   string // batch runs and predictions
	ClickhouseDSN string // predictions, takes precedence over Postgres
}

// Memory returns in-memory stores.
func Memory() *Stores {
	return &Stores{
		Predictions: memory.NewPredictionStore(),
		BatchRuns:   memory.NewBatchRunStore(),
	}
}

// Open connects to the configured databases and applies migrations.
// The returned cleanup closes every connection that was opened.
func Open(ctx context.Context, cfg Config) (*Stores, func(), error) {
	if cfg.UseMemory {
		return Memory(), func() {}, nil
	}

	s := &Stores{}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// PostgreSQL
	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		s.BatchRuns = pgstore.NewBatchRunStore(pool)
		s.Predictions = pgstore.NewPredictionStore(pool)
	}

	// ClickHouse (analytics)
	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		closers = append(closers, func() { _ = conn.Close() })
		s.Predictions = chstore.NewPredictionStore(conn)
	}

	return s, cleanup, nil
}
