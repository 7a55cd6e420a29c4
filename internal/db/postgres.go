package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Options configures the PostgreSQL connection.
type Options struct {
	DSN      string
	Name     string
	MaxConns int
}

// Connect creates a connection to PostgreSQL with OpenTelemetry instrumentation
func Connect(ctx context.Context, opts Options) (*sql.DB, error) {
	if opts.DSN == "" {
		return nil, fmt.Errorf("missing database connection string")
	}

	db, err := otelsql.Open("postgres", opts.DSN,
		otelsql.WithAttributes(
			semconv.DBSystemPostgreSQL,
			semconv.DBName(opts.Name),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = otelsql.RegisterDBStatsMetrics(db,
		otelsql.WithAttributes(
			semconv.DBSystemPostgreSQL,
			semconv.DBName(opts.Name),
		),
	)
	if err != nil {
		log.Warn().Err(err).Msg("failed to register database stats metrics")
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	maxConns := opts.MaxConns
	if maxConns <= 0 {
		maxConns = 25
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(5)

	log.Info().Str("db", opts.Name).Msg("connected to PostgreSQL")
	return db, nil
}
