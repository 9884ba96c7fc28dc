package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/claritycopilot/transcripts/internal/domain/activity"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_LogAndList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewActivityRepository(db)

	at := time.Date(2024, 5, 1, 16, 0, 0, 0, time.UTC)
	stored := &activity.Entry{RecordID: "r1", Type: activity.TypeStored, CreatedAt: at}
	require.NoError(t, repo.Log(ctx, stored))
	require.NotZero(t, stored.ID)

	require.NoError(t, repo.Log(ctx, &activity.Entry{RecordID: "r1", Type: activity.TypeNotified, CreatedAt: at.Add(time.Second)}))
	require.NoError(t, repo.Log(ctx, &activity.Entry{RecordID: "r2", Type: activity.TypeStored, CreatedAt: at.Add(2 * time.Second)}))
	require.NoError(t, repo.Log(ctx, &activity.Entry{
		RecordID:  "r1",
		Type:      activity.TypeDeleted,
		Actor:     "U0HOST",
		Detail:    "slack",
		CreatedAt: at.Add(3 * time.Second),
	}))

	all, err := repo.List(ctx, activity.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.Equal(t, activity.TypeDeleted, all[0].Type)
	require.Equal(t, "U0HOST", all[0].Actor)
	require.Equal(t, at.Add(3*time.Second), all[0].CreatedAt)

	forRecord, err := repo.List(ctx, activity.ListOptions{RecordID: "r1"})
	require.NoError(t, err)
	require.Len(t, forRecord, 3)

	deletes, err := repo.List(ctx, activity.ListOptions{Type: activity.TypeDeleted})
	require.NoError(t, err)
	require.Len(t, deletes, 1)

	page, err := repo.List(ctx, activity.ListOptions{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "r2", page[0].RecordID)
}

func TestActivityRepository_ListEmpty(t *testing.T) {
	db := NewTestDB(t)
	entries, err := NewActivityRepository(db).List(context.Background(), activity.ListOptions{RecordID: "missing"})
	require.NoError(t, err)
	require.NotNil(t, entries)
	require.Empty(t, entries)
}
