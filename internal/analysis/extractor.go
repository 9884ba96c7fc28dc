package analysis

import (
	"context"
	"log/slog"
	"strings"

	"github.com/claritycopilot/transcripts/internal/llm"
	"github.com/claritycopilot/transcripts/internal/observability"
	"github.com/claritycopilot/transcripts/internal/retry"
)

// MeetingType classifies who attended a meeting.
type MeetingType string

const (
	MeetingInternal MeetingType = "internal"
	MeetingExternal MeetingType = "external"
	MeetingUnknown  MeetingType = "unknown"
)

// Valid reports whether t is one of the known meeting types.
func (t MeetingType) Valid() bool {
	switch t {
	case MeetingInternal, MeetingExternal, MeetingUnknown:
		return true
	}
	return false
}

// Metadata is the model's classification of a meeting.
type Metadata struct {
	MeetingType                    MeetingType `json:"meetingType"`
	IdentifiedExternalParticipants []string    `json:"identifiedExternalParticipants"`
	Projects                       []string    `json:"projects"`
	Clients                        []string    `json:"clients"`
}

func unknownMetadata() Metadata {
	return Metadata{
		MeetingType:                    MeetingUnknown,
		IdentifiedExternalParticipants: []string{},
		Projects:                       []string{},
		Clients:                        []string{},
	}
}

// Extractor classifies meetings against a static roster.
type Extractor struct {
	gen     llm.Generator
	roster  Roster
	policy  retry.Policy
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewExtractor creates an Extractor. Empty roster lists fall back to DefaultRoster.
func NewExtractor(gen llm.Generator, roster Roster, policy retry.Policy, metrics *observability.Metrics, logger *slog.Logger) *Extractor {
	if policy.MaxAttempts == 0 {
		policy = DefaultPolicy
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		gen:     gen,
		roster:  roster.withDefaults(),
		policy:  policy,
		metrics: metrics,
		logger:  logger,
	}
}

// Extract classifies the meeting. Only the first 5000 characters of transcript
// are sent to the model.
func (e *Extractor) Extract(ctx context.Context, summary, transcript string, speakers []string) (Metadata, error) {
	if HasBypassPhrase(transcript) || HasBypassPhrase(summary) {
		e.metrics.ModelCall("extract_metadata", "bypass")
		return bypassMetadata, nil
	}
	if strings.TrimSpace(summary) == "" && strings.TrimSpace(transcript) == "" {
		return unknownMetadata(), nil
	}

	var out Metadata
	err := call(ctx, e.gen, e.policy, e.metrics, e.logger, "extract_metadata", llm.ObjectRequest{
		System:     metadataSystemPrompt,
		Prompt:     metadataPrompt(e.roster, summary, transcript, speakers),
		SchemaName: "meeting_metadata",
		Schema:     metadataSchema,
	}, &out, nil)
	if err != nil {
		return Metadata{}, err
	}
	return normalize(out), nil
}

func normalize(m Metadata) Metadata {
	if !m.MeetingType.Valid() {
		m.MeetingType = MeetingUnknown
	}
	m.IdentifiedExternalParticipants = dedupe(m.IdentifiedExternalParticipants)
	m.Projects = dedupe(m.Projects)
	m.Clients = dedupe(m.Clients)
	return m
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
