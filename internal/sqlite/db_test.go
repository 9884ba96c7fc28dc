package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// TestMigrations verifies that migrations run successfully
func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	for _, table := range []string{"transcripts", "transcripts_fts", "activity_log"} {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}
}

// TestMigrations_Idempotent verifies the schema can be re-applied on start-up
func TestMigrations_Idempotent(t *testing.T) {
	db := NewTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))
}

func TestPing(t *testing.T) {
	db := NewTestDB(t)
	require.NoError(t, db.Ping(context.Background()))
}

// TestTranscriptsTable verifies the natural-key constraint at the schema level
func TestTranscriptsTable(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	insert := `INSERT INTO transcripts (
		id, external_meeting_id, external_meeting_instance_id, recording_start, recording_end,
		content, is_relevant, meeting_type, view_secret, created_at
	) VALUES (?, 'm1', 'i1', '2024-05-01T15:00:00Z', '2024-05-01T15:30:00Z', '{}', 1, ?, 's', '2024-05-01T16:00:00Z')`

	_, err := db.ExecContext(ctx, insert, "r1", "internal")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, insert, "r2", "internal")
	require.Error(t, err)
	require.True(t, isUniqueViolation(err))

	_, err = db.ExecContext(ctx, `UPDATE transcripts SET meeting_type = 'hybrid' WHERE id = 'r1'`)
	require.Error(t, err, "meeting_type check constraint")
}
