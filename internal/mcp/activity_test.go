package mcp

import (
	"context"
	"testing"

	"github.com/claritycopilot/transcripts/internal/domain/activity"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

type activityStub struct {
	got     activity.ListOptions
	entries []activity.Entry
	err     error
}

func (s *activityStub) Recent(_ context.Context, opts activity.ListOptions) ([]activity.Entry, error) {
	s.got = opts
	return s.entries, s.err
}

func TestRecentActivity(t *testing.T) {
	stub := &activityStub{entries: []activity.Entry{
		{ID: 2, RecordID: "rec-1", Type: activity.TypeDeleted, Actor: "U1", Detail: "slack", CreatedAt: recordedAt},
	}}
	session := connectWith(t, Config{Transcripts: transcriptStub{}, Activity: stub})

	res := callTool(t, session, "recent_activity", map[string]any{"record_id": " rec-1 ", "type": "Deleted", "limit": 5})
	require.False(t, res.IsError)
	require.Equal(t, activity.ListOptions{RecordID: "rec-1", Type: activity.TypeDeleted, Limit: 5}, stub.got)

	var out ActivityOutput
	decodeStructured(t, res, &out)
	require.Equal(t, []ActivityEvent{{
		RecordID:  "rec-1",
		Type:      "deleted",
		Actor:     "U1",
		Detail:    "slack",
		CreatedAt: "2024-05-01T15:00:00Z",
	}}, out.Events)
}

func TestRecentActivity_InvalidType(t *testing.T) {
	stub := &activityStub{err: activity.ErrInvalidInput}
	session := connectWith(t, Config{Transcripts: transcriptStub{}, Activity: stub})

	res := callTool(t, session, "recent_activity", map[string]any{"type": "renamed"})
	require.True(t, res.IsError)
}

func TestRecentActivity_RegisteredOnlyWhenConfigured(t *testing.T) {
	session := connectWith(t, Config{Transcripts: transcriptStub{}, Activity: &activityStub{}})

	res, err := session.ListTools(context.Background(), &sdkmcp.ListToolsParams{})
	require.NoError(t, err)
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	require.Contains(t, names, "recent_activity")
}
