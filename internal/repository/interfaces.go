// Package repository holds the store-agnostic errors and lifecycle contract
// shared by the sqlite and postgres backends. Entity repositories are declared
// next to their domain types.
package repository

import "context"

// Store is the lifecycle surface every backend exposes to the server.
type Store interface {
	// Migrate applies the embedded schema. It is idempotent.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
