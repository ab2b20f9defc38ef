package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

type PoolConfig struct {
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetimeS int
	ConnMaxIdleTimeS int
}

func NewPostgresDB(ctx context.Context, databaseURL string, pool PoolConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresDB: open: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeS) * time.Second)
	db.SetConnMaxIdleTime(time.Duration(pool.ConnMaxIdleTimeS) * time.Second)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewPostgresDB: ping: %w", err)
	}

	return db, nil
}

// WaitForPostgres retries NewPostgresDB once per interval until the database
// answers, attempts run out, or ctx is done.
func WaitForPostgres(ctx context.Context, databaseURL string, pool PoolConfig, attempts int, interval time.Duration) (*sql.DB, error) {
	var err error
	for i := range attempts {
		var db *sql.DB
		if db, err = NewPostgresDB(ctx, databaseURL, pool); err == nil {
			return db, nil
		}
		slog.Info("waiting for database", "attempt", i+1, "error", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("WaitForPostgres: %w", ctx.Err())
		case <-time.After(interval):
		}
	}
	return nil, fmt.Errorf("WaitForPostgres: gave up after %d attempts: %w", attempts, err)
}
