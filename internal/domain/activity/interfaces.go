package activity

import "context"

// Repository provides persistence operations for activity entries.
// List returns newest first.
type Repository interface {
	Log(ctx context.Context, entry *Entry) error
	List(ctx context.Context, opts ListOptions) ([]Entry, error)
}
