// Package postgres is the production transcript store backed by pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/claritycopilot/transcripts/migrations"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// DB wraps a pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// New connects to databaseURL and verifies the connection.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Migrate applies the embedded postgres schema.
func (db *DB) Migrate(ctx context.Context) error {
	scripts, err := migrations.Up(migrations.Postgres)
	if err != nil {
		return err
	}
	for _, script := range scripts {
		if _, err := db.Pool.Exec(ctx, script); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}
	return nil
}

// Ping checks if the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Close releases all pooled connections.
func (db *DB) Close() error {
	db.Pool.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
