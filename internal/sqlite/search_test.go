package sqlite

import (
	"context"
	"testing"

	"github.com/claritycopilot/transcripts/internal/domain/transcript"
	"github.com/stretchr/testify/require"
)

func TestTranscriptRepository_Search(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewTranscriptRepository(db)

	rec := newRecord("r1", "m1")
	rec.Summary = "The team agreed on the invoicing migration timeline."
	require.NoError(t, repo.Create(ctx, rec))

	other := newRecord("r2", "m2")
	other.Meeting.Topic = "Hiring sync"
	other.Summary = "Interview loop changes."
	require.NoError(t, repo.Create(ctx, other))

	results, err := repo.Search(ctx, "invoicing", transcript.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "r1", results[0].Ref.ID)
	require.Contains(t, results[0].Snippet, "invoicing")

	results, err = repo.Search(ctx, "hiring", transcript.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "r2", results[0].Ref.ID)
}

func TestTranscriptRepository_SearchIgnoresSyntax(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewTranscriptRepository(db)
	require.NoError(t, repo.Create(ctx, newRecord("r1", "m1")))

	results, err := repo.Search(ctx, `portal"*(`, transcript.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	results, err = repo.Search(ctx, `"*"`, transcript.SearchOptions{})
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestTranscriptRepository_SearchAfterDelete(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewTranscriptRepository(db)
	require.NoError(t, repo.Create(ctx, newRecord("r1", "m1")))
	require.NoError(t, repo.Delete(ctx, "r1"))

	results, err := repo.Search(ctx, "portal", transcript.SearchOptions{})
	require.NoError(t, err)
	require.Empty(t, results)
}
