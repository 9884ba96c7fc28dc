package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/claritycopilot/transcripts/internal/domain/transcript"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ListInput filters list_transcripts.
type ListInput struct {
	HostEmail   string `json:"host_email,omitempty" jsonschema:"only meetings hosted by this email"`
	MeetingType string `json:"meeting_type,omitempty" jsonschema:"internal, external or unknown"`
	Since       string `json:"since,omitempty" jsonschema:"RFC 3339 timestamp; only records created at or after it"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum results, default 20, at most 100"`
	Offset      int    `json:"offset,omitempty" jsonschema:"results to skip"`
}

// GetInput selects one record.
type GetInput struct {
	ID                string `json:"id" jsonschema:"record id"`
	IncludeTranscript bool   `json:"include_transcript,omitempty" jsonschema:"also return the cleaned transcript text"`
}

// SearchInput is a full-text query over topics and summaries.
type SearchInput struct {
	Query  string `json:"query" jsonschema:"search terms"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum results, default 20, at most 100"`
	Offset int    `json:"offset,omitempty" jsonschema:"results to skip"`
}

// RecordRef is a listing entry.
type RecordRef struct {
	ID             string   `json:"id"`
	Topic          string   `json:"topic"`
	HostEmail      string   `json:"host_email"`
	MeetingType    string   `json:"meeting_type"`
	RecordingStart string   `json:"recording_start"`
	Projects       []string `json:"projects"`
	Clients        []string `json:"clients"`
	CreatedAt      string   `json:"created_at"`
}

// SearchHit is a ranked search result.
type SearchHit struct {
	Record  RecordRef `json:"record"`
	Rank    float64   `json:"rank"`
	Snippet string    `json:"snippet,omitempty"`
}

// ListOutput is returned by list_transcripts.
type ListOutput struct {
	Records []RecordRef `json:"records"`
}

// SearchOutput is returned by search_transcripts.
type SearchOutput struct {
	Results []SearchHit `json:"results"`
}

// RecordDetail is a full record without its view secret or raw VTT.
type RecordDetail struct {
	Record                    RecordRef `json:"record"`
	RecordingEnd              string    `json:"recording_end"`
	DurationMinutes           int       `json:"duration_minutes"`
	Summary                   string    `json:"summary"`
	RelevanceReasoning        string    `json:"relevance_reasoning"`
	ExternalParticipants      []string  `json:"external_participants"`
	ExtractedParticipants     []string  `json:"extracted_participants"`
	VerifiedParticipantEmails []string  `json:"verified_participant_emails"`
	Transcript                string    `json:"transcript,omitempty"`
}

func registerTools(server *sdkmcp.Server, svc TranscriptService) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_transcripts",
		Description: "List stored meeting summaries, newest first, optionally filtered by host, meeting type or creation time",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in ListInput) (*sdkmcp.CallToolResult, ListOutput, error) {
		opts, err := listOptions(in)
		if err != nil {
			return nil, ListOutput{}, err
		}
		refs, err := svc.List(ctx, opts)
		if err != nil {
			return nil, ListOutput{}, toolError(err)
		}
		out := ListOutput{Records: make([]RecordRef, 0, len(refs))}
		for _, ref := range refs {
			out.Records = append(out.Records, toRecordRef(ref))
		}
		return nil, out, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_transcript",
		Description: "Get one stored meeting summary with its metadata",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in GetInput) (*sdkmcp.CallToolResult, RecordDetail, error) {
		rec, err := svc.Get(ctx, strings.TrimSpace(in.ID))
		if err != nil {
			return nil, RecordDetail{}, toolError(err)
		}
		return nil, toRecordDetail(rec, in.IncludeTranscript), nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "search_transcripts",
		Description: "Full-text search over meeting topics and summaries, best matches first",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in SearchInput) (*sdkmcp.CallToolResult, SearchOutput, error) {
		results, err := svc.Search(ctx, in.Query, transcript.SearchOptions{Limit: in.Limit, Offset: in.Offset})
		if err != nil {
			return nil, SearchOutput{}, toolError(err)
		}
		out := SearchOutput{Results: make([]SearchHit, 0, len(results))}
		for _, res := range results {
			out.Results = append(out.Results, SearchHit{
				Record:  toRecordRef(res.Ref),
				Rank:    res.Rank,
				Snippet: res.Snippet,
			})
		}
		return nil, out, nil
	})
}

func listOptions(in ListInput) (transcript.ListOptions, error) {
	opts := transcript.ListOptions{
		HostEmail:   strings.TrimSpace(in.HostEmail),
		MeetingType: transcript.MeetingType(strings.ToLower(strings.TrimSpace(in.MeetingType))),
		Limit:       in.Limit,
		Offset:      in.Offset,
	}
	if in.Since != "" {
		since, err := time.Parse(time.RFC3339, in.Since)
		if err != nil {
			return opts, fmt.Errorf("since must be an RFC 3339 timestamp: %w", err)
		}
		opts.Since = since
	}
	return opts, nil
}

func toolError(err error) error {
	switch {
	case errors.Is(err, transcript.ErrNotFound):
		return errors.New("transcript not found")
	case errors.Is(err, transcript.ErrInvalidInput):
		return errors.New("invalid arguments")
	}
	return err
}

func toRecordRef(ref transcript.Ref) RecordRef {
	return RecordRef{
		ID:             ref.ID,
		Topic:          ref.Topic,
		HostEmail:      ref.HostEmail,
		MeetingType:    string(ref.MeetingType),
		RecordingStart: formatTime(ref.RecordingStart),
		Projects:       nonNil(ref.Projects),
		Clients:        nonNil(ref.Clients),
		CreatedAt:      formatTime(ref.CreatedAt),
	}
}

func toRecordDetail(rec *transcript.Record, includeTranscript bool) RecordDetail {
	detail := RecordDetail{
		Record: toRecordRef(transcript.Ref{
			ID:             rec.ID,
			Topic:          rec.Meeting.Topic,
			HostEmail:      rec.Meeting.HostEmail,
			MeetingType:    rec.MeetingType,
			RecordingStart: rec.Key.RecordingStart,
			Projects:       rec.Projects,
			Clients:        rec.Clients,
			CreatedAt:      rec.CreatedAt,
		}),
		RecordingEnd:              formatTime(rec.Key.RecordingEnd),
		DurationMinutes:           rec.Meeting.DurationMinutes,
		Summary:                   rec.Summary,
		RelevanceReasoning:        rec.RelevanceReasoning,
		ExternalParticipants:      nonNil(rec.ExternalParticipants),
		ExtractedParticipants:     nonNil(rec.ExtractedParticipants),
		VerifiedParticipantEmails: nonNil(rec.VerifiedParticipantEmails),
	}
	if includeTranscript {
		detail.Transcript = rec.Content.Cleaned
	}
	return detail
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
