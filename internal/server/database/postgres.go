// Package database opens the PostgreSQL pool the server runs on.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sethvargo/go-retry"
	"github.com/zekret/zekret/internal/logging"
	"github.com/zekret/zekret/internal/server/config"
)

const pingBackoffBase = 200 * time.Millisecond

// Seams for testing.
var (
	sqlOpen = sql.Open
	pingDB  = func(ctx context.Context, db *sql.DB) error { return db.PingContext(ctx) }
)

// Open connects to cfg.DSN and waits until the server answers a ping,
// retrying with exponential backoff for at most cfg.ConnectTimeout.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger logging.Logger) (*sql.DB, error) {
	db, err := sqlOpen("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}

	backoff := retry.WithMaxDuration(cfg.ConnectTimeout, retry.NewExponential(pingBackoffBase))

	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := pingDB(ctx, db); err != nil {
			logger.Warn(ctx, "database not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	logger.Info(ctx, "database connected", "attempts", attempt)
	return db, nil
}
