package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/claritycopilot/transcripts/internal/domain/activity"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ActivityInput filters recent_activity.
type ActivityInput struct {
	RecordID string `json:"record_id,omitempty" jsonschema:"only events for this record id"`
	Type     string `json:"type,omitempty" jsonschema:"stored, notified, notify_skipped, notify_failed, deleted or delete_rejected"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum results, default 50, at most 200"`
	Offset   int    `json:"offset,omitempty" jsonschema:"results to skip"`
}

// ActivityEvent is one audit entry.
type ActivityEvent struct {
	RecordID  string `json:"record_id"`
	Type      string `json:"type"`
	Actor     string `json:"actor,omitempty"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ActivityOutput is returned by recent_activity.
type ActivityOutput struct {
	Events []ActivityEvent `json:"events"`
}

func registerActivityTool(server *sdkmcp.Server, svc ActivityService) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "recent_activity",
		Description: "List what happened to stored summaries (stored, notified, deleted), newest first. Entries remain after a summary is deleted",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in ActivityInput) (*sdkmcp.CallToolResult, ActivityOutput, error) {
		entries, err := svc.Recent(ctx, activity.ListOptions{
			RecordID: strings.TrimSpace(in.RecordID),
			Type:     activity.Type(strings.ToLower(strings.TrimSpace(in.Type))),
			Limit:    in.Limit,
			Offset:   in.Offset,
		})
		if err != nil {
			if errors.Is(err, activity.ErrInvalidInput) {
				return nil, ActivityOutput{}, errors.New("invalid arguments")
			}
			return nil, ActivityOutput{}, err
		}
		out := ActivityOutput{Events: make([]ActivityEvent, 0, len(entries))}
		for _, e := range entries {
			out.Events = append(out.Events, ActivityEvent{
				RecordID:  e.RecordID,
				Type:      string(e.Type),
				Actor:     e.Actor,
				Detail:    e.Detail,
				CreatedAt: formatTime(e.CreatedAt),
			})
		}
		return nil, out, nil
	})
}
