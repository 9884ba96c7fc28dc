package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/claritycopilot/transcripts/internal/llm"
	"github.com/claritycopilot/transcripts/internal/retry"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	responses []string
	errs      []error
	requests  []llm.ObjectRequest
}

func (f *fakeGenerator) GenerateObject(_ context.Context, req llm.ObjectRequest, out any) error {
	i := len(f.requests)
	f.requests = append(f.requests, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return f.errs[i]
	}
	return json.Unmarshal([]byte(f.responses[i]), out)
}

var noWait = retry.Policy{MaxAttempts: 3, Delay: retry.Fixed(0)}

func TestSummarize_Relevant(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{
		"isRelevant": true,
		"reasoning": "client delivery planning",
		"summary": {
			"topic": "Q3 rollout",
			"overview": "The team planned the rollout.",
			"takeaways": ["Launch moves to July"],
			"nextSteps": ["Alice drafts the plan"],
			"potentialGaps": []
		}
	}`}}

	res, err := NewSummarizer(gen, noWait, nil, nil).Summarize(context.Background(), "Alice: Let's plan")
	require.NoError(t, err)
	require.True(t, res.IsRelevant)
	require.Equal(t, "client delivery planning", res.Reasoning)
	require.Contains(t, res.Summary, "**Topic:** Q3 rollout")
	require.Contains(t, res.Summary, "- Alice drafts the plan")
	require.NotContains(t, res.Summary, "Potential Gaps")
	require.Equal(t, "meeting_summary", gen.requests[0].SchemaName)
}

func TestSummarize_IrrelevantHasNoSummary(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{"isRelevant": false, "reasoning": "social chat", "summary": null}`}}

	res, err := NewSummarizer(gen, noWait, nil, nil).Summarize(context.Background(), "Bob: How was the weekend?")
	require.NoError(t, err)
	require.False(t, res.IsRelevant)
	require.Empty(t, res.Summary)
	require.Equal(t, "social chat", res.Reasoning)
}

func TestSummarize_RelevantWithoutSummaryIsRetried(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		`{"isRelevant": true, "reasoning": "client call", "summary": null}`,
		`{"isRelevant": true, "reasoning": "client call", "summary": {"topic": "Renewal", "overview": "Discussed renewal terms."}}`,
	}}

	res, err := NewSummarizer(gen, noWait, nil, nil).Summarize(context.Background(), "Alice: renewal")
	require.NoError(t, err)
	require.True(t, res.IsRelevant)
	require.Contains(t, res.Summary, "Discussed renewal terms.")
	require.Len(t, gen.requests, 2)
}

func TestSummarize_RelevantWithoutSummaryFails(t *testing.T) {
	empty := `{"isRelevant": true, "reasoning": "client call", "summary": null}`
	gen := &fakeGenerator{responses: []string{empty, empty, empty}}

	_, err := NewSummarizer(gen, noWait, nil, nil).Summarize(context.Background(), "Alice: renewal")
	require.ErrorIs(t, err, llm.ErrNoOutput)
	require.ErrorIs(t, err, retry.ErrExhausted)
	require.Len(t, gen.requests, 3)
}

func TestSummarize_BypassSkipsModel(t *testing.T) {
	gen := &fakeGenerator{}

	res, err := NewSummarizer(gen, noWait, nil, nil).Summarize(context.Background(), "Alice: this is a CLARITY Copilot Test call")
	require.NoError(t, err)
	require.True(t, res.IsRelevant)
	require.Equal(t, bypassSummary, res)
	require.Empty(t, gen.requests)
}

func TestSummarize_EmptyTranscriptIsClassified(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{"isRelevant": false, "reasoning": "no content", "summary": null}`}}

	res, err := NewSummarizer(gen, noWait, nil, nil).Summarize(context.Background(), "")
	require.NoError(t, err)
	require.False(t, res.IsRelevant)
	require.Len(t, gen.requests, 1)
}

func TestSummarize_RetriesThenFails(t *testing.T) {
	boom := errors.New("overloaded")
	gen := &fakeGenerator{errs: []error{boom, boom, boom}}

	_, err := NewSummarizer(gen, noWait, nil, nil).Summarize(context.Background(), "Alice: hi")
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, err, retry.ErrExhausted)
	require.Len(t, gen.requests, 3)
}

func TestSummarize_RetriesThenSucceeds(t *testing.T) {
	gen := &fakeGenerator{
		errs:      []error{errors.New("timeout")},
		responses: []string{"", `{"isRelevant": false, "reasoning": "test call", "summary": null}`},
	}

	res, err := NewSummarizer(gen, noWait, nil, nil).Summarize(context.Background(), "Alice: hi")
	require.NoError(t, err)
	require.False(t, res.IsRelevant)
	require.Len(t, gen.requests, 2)
}

func TestSummarize_NotConfiguredIsNotRetried(t *testing.T) {
	gen := &fakeGenerator{errs: []error{llm.ErrNotConfigured}}

	_, err := NewSummarizer(gen, noWait, nil, nil).Summarize(context.Background(), "Alice: hi")
	require.ErrorIs(t, err, llm.ErrNotConfigured)
	require.Len(t, gen.requests, 1)
}

func TestExtract(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{
		"meetingType": "external",
		"identifiedExternalParticipants": ["Dana from Contoso", "Dana from Contoso", " "],
		"projects": ["Portal"],
		"clients": ["Contoso"]
	}`}}

	meta, err := NewExtractor(gen, Roster{}, noWait, nil, nil).Extract(context.Background(), "summary", "Alice: hi\nDana: hello", []string{"Alice", "Dana"})
	require.NoError(t, err)
	require.Equal(t, MeetingExternal, meta.MeetingType)
	require.Equal(t, []string{"Dana from Contoso"}, meta.IdentifiedExternalParticipants)
	require.Equal(t, []string{"Contoso"}, meta.Clients)

	prompt := gen.requests[0].Prompt
	require.Contains(t, prompt, "Speakers found in the transcript: Alice, Dana")
	require.Contains(t, prompt, DefaultRoster.InternalStaff[0])
	require.Contains(t, prompt, DefaultRoster.Clients[0])
}

func TestExtract_TruncatesTranscript(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{"meetingType":"internal","identifiedExternalParticipants":[],"projects":[],"clients":[]}`}}
	long := "Alice: " + strings.Repeat("a", 6000) + "ZZZ"

	_, err := NewExtractor(gen, Roster{}, noWait, nil, nil).Extract(context.Background(), "s", long, nil)
	require.NoError(t, err)
	require.NotContains(t, gen.requests[0].Prompt, "ZZZ")
}

func TestExtract_InvalidTypeBecomesUnknown(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{"meetingType":"hybrid","identifiedExternalParticipants":null,"projects":null,"clients":null}`}}

	meta, err := NewExtractor(gen, Roster{}, noWait, nil, nil).Extract(context.Background(), "s", "Alice: hi", nil)
	require.NoError(t, err)
	require.Equal(t, MeetingUnknown, meta.MeetingType)
	require.NotNil(t, meta.Projects)
}

func TestExtract_EmptyInputSkipsModel(t *testing.T) {
	gen := &fakeGenerator{}

	meta, err := NewExtractor(gen, Roster{}, noWait, nil, nil).Extract(context.Background(), "  ", "\n", nil)
	require.NoError(t, err)
	require.Equal(t, unknownMetadata(), meta)
	require.Empty(t, gen.requests)
}

func TestExtract_Bypass(t *testing.T) {
	gen := &fakeGenerator{}

	meta, err := NewExtractor(gen, Roster{}, noWait, nil, nil).Extract(context.Background(), "", "Alice: clarity copilot test", nil)
	require.NoError(t, err)
	require.Equal(t, MeetingInternal, meta.MeetingType)
	require.Empty(t, meta.Clients)
	require.Empty(t, gen.requests)
}

func TestExtract_FailsAfterRetries(t *testing.T) {
	boom := errors.New("boom")
	gen := &fakeGenerator{errs: []error{boom, boom, boom}}

	_, err := NewExtractor(gen, Roster{}, noWait, nil, nil).Extract(context.Background(), "s", "Alice: hi", nil)
	require.ErrorIs(t, err, boom)
	require.Len(t, gen.requests, 3)
}
