package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/claritycopilot/transcripts/internal/domain/activity"
)

// ActivityRepository implements activity.Repository for SQLite
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Log inserts a new activity entry
func (r *ActivityRepository) Log(ctx context.Context, entry *activity.Entry) error {
	query := `
		INSERT INTO activity_log (record_id, activity_type, actor, detail, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		entry.RecordID,
		string(entry.Type),
		entry.Actor,
		entry.Detail,
		formatTime(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to log activity: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		entry.ID = id
	}
	return nil
}

// List returns activity entries matching the given filters, newest first
func (r *ActivityRepository) List(ctx context.Context, opts activity.ListOptions) ([]activity.Entry, error) {
	query := `
		SELECT id, record_id, activity_type, actor, detail, created_at
		FROM activity_log
	`

	var conditions []string
	var args []interface{}
	if opts.RecordID != "" {
		conditions = append(conditions, "record_id = ?")
		args = append(args, opts.RecordID)
	}
	if opts.Type != "" {
		conditions = append(conditions, "activity_type = ?")
		args = append(args, string(opts.Type))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC"
	query, args = paginate(query, args, opts.Limit, opts.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	entries := []activity.Entry{}
	for rows.Next() {
		var (
			entry   activity.Entry
			typ     string
			created string
		)
		if err := rows.Scan(&entry.ID, &entry.RecordID, &typ, &entry.Actor, &entry.Detail, &created); err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		entry.Type = activity.Type(typ)
		if entry.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}
	return entries, nil
}
