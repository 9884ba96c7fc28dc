package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/claritycopilot/transcripts/migrations"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	memory := dataSourceName == ":memory:" || strings.Contains(dataSourceName, "mode=memory")
	if !memory && !strings.Contains(dataSourceName, "_pragma") {
		sep := "?"
		if strings.Contains(dataSourceName, "?") {
			sep = "&"
		}
		// Concurrent webhook deliveries write from separate goroutines.
		dataSourceName += sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if memory {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	return &DB{db}, nil
}

// Migrate applies the embedded sqlite schema.
func (db *DB) Migrate(ctx context.Context) error {
	scripts, err := migrations.Up(migrations.SQLite)
	if err != nil {
		return err
	}
	for _, script := range scripts {
		if _, err := db.ExecContext(ctx, script); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}
	return nil
}

// RunMigrations runs the migrations without a caller context (for tests).
func (db *DB) RunMigrations() error {
	return db.Migrate(context.Background())
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.DB.PingContext(ctx)
}
