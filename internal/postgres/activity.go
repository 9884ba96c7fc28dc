package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/claritycopilot/transcripts/internal/domain/activity"
)

// ActivityRepository implements activity.Repository for Postgres.
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Log inserts an entry and fills in its id.
func (r *ActivityRepository) Log(ctx context.Context, entry *activity.Entry) error {
	query := `
		INSERT INTO activity_log (record_id, activity_type, actor, detail, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.db.Pool.QueryRow(ctx, query,
		entry.RecordID,
		string(entry.Type),
		entry.Actor,
		entry.Detail,
		entry.CreatedAt.UTC(),
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("log activity: %w", err)
	}
	return nil
}

// List returns entries newest first.
func (r *ActivityRepository) List(ctx context.Context, opts activity.ListOptions) ([]activity.Entry, error) {
	var (
		conditions []string
		args       []any
	)
	if opts.RecordID != "" {
		args = append(args, opts.RecordID)
		conditions = append(conditions, fmt.Sprintf("record_id = $%d", len(args)))
	}
	if opts.Type != "" {
		args = append(args, string(opts.Type))
		conditions = append(conditions, fmt.Sprintf("activity_type = $%d", len(args)))
	}

	query := `SELECT id, record_id, activity_type, actor, detail, created_at FROM activity_log`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC"
	query, args = paginate(query, args, opts.Limit, opts.Offset)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	entries := []activity.Entry{}
	for rows.Next() {
		var (
			entry activity.Entry
			typ   string
		)
		if err := rows.Scan(&entry.ID, &entry.RecordID, &typ, &entry.Actor, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		entry.Type = activity.Type(typ)
		entry.CreatedAt = entry.CreatedAt.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}
	return entries, nil
}
