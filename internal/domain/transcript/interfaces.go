package transcript

import "context"

// Repository provides persistence for transcript records. Implementations
// return repository.ErrNotFound and repository.ErrDuplicate.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
	ExistsByKey(ctx context.Context, key NaturalKey) (bool, error)
	List(ctx context.Context, opts ListOptions) ([]Ref, error)
	Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error)
}
