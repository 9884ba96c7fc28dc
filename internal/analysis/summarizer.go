// Package analysis derives summaries, relevance and meeting metadata from
// cleaned transcripts using a schema-constrained model.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/claritycopilot/transcripts/internal/llm"
	"github.com/claritycopilot/transcripts/internal/observability"
	"github.com/claritycopilot/transcripts/internal/retry"
)

// DefaultPolicy is three attempts with a fixed two second pause.
var DefaultPolicy = retry.Policy{MaxAttempts: 3, Delay: retry.Fixed(2 * time.Second)}

// SummaryResult is the fused summary and relevance decision.
type SummaryResult struct {
	Summary    string `json:"summary"`
	IsRelevant bool   `json:"isRelevant"`
	Reasoning  string `json:"reasoning"`
}

type structuredSummary struct {
	Topic         string   `json:"topic"`
	Overview      string   `json:"overview"`
	Takeaways     []string `json:"takeaways"`
	NextSteps     []string `json:"nextSteps"`
	PotentialGaps []string `json:"potentialGaps"`
}

type summaryOutput struct {
	IsRelevant bool               `json:"isRelevant"`
	Reasoning  string             `json:"reasoning"`
	Summary    *structuredSummary `json:"summary"`
}

// Summarizer decides relevance and, for relevant meetings, writes the summary.
type Summarizer struct {
	gen     llm.Generator
	policy  retry.Policy
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewSummarizer creates a Summarizer. A zero policy uses DefaultPolicy.
func NewSummarizer(gen llm.Generator, policy retry.Policy, metrics *observability.Metrics, logger *slog.Logger) *Summarizer {
	if policy.MaxAttempts == 0 {
		policy = DefaultPolicy
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{gen: gen, policy: policy, metrics: metrics, logger: logger}
}

// Summarize classifies transcript and summarizes it when relevant. An empty
// transcript is classified like any other. When IsRelevant is false Summary is empty.
func (s *Summarizer) Summarize(ctx context.Context, transcript string) (SummaryResult, error) {
	if HasBypassPhrase(transcript) {
		s.logger.Info("bypass phrase found, skipping summary model call")
		s.metrics.ModelCall("summarize", "bypass")
		return bypassSummary, nil
	}

	var out summaryOutput
	err := call(ctx, s.gen, s.policy, s.metrics, s.logger, "summarize", llm.ObjectRequest{
		System:     summarySystemPrompt,
		Prompt:     summaryPrompt(transcript),
		SchemaName: "meeting_summary",
		Schema:     summarySchema,
	}, &out, out.check)
	if err != nil {
		return SummaryResult{}, err
	}

	result := SummaryResult{IsRelevant: out.IsRelevant, Reasoning: out.Reasoning}
	if out.IsRelevant && out.Summary != nil {
		result.Summary = renderSummary(*out.Summary)
	}
	return result, nil
}

// check rejects a relevant verdict that carries no summary to store.
func (o *summaryOutput) check() error {
	if o.IsRelevant && (o.Summary == nil || strings.TrimSpace(o.Summary.Overview) == "") {
		return fmt.Errorf("%w: relevant meeting without summary", llm.ErrNoOutput)
	}
	return nil
}

func renderSummary(s structuredSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Topic:** %s\n\n", strings.TrimSpace(s.Topic))
	fmt.Fprintf(&b, "**Overview**\n%s\n", strings.TrimSpace(s.Overview))
	writeList(&b, "Key Takeaways", s.Takeaways)
	writeList(&b, "Next Steps", s.NextSteps)
	writeList(&b, "Potential Gaps", s.PotentialGaps)
	return strings.TrimSpace(b.String())
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n**%s**\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", strings.TrimSpace(item))
	}
}

// call runs one schema-constrained request under policy. A non-nil check
// runs after each decode; its error fails that attempt.
func call(ctx context.Context, gen llm.Generator, policy retry.Policy, metrics *observability.Metrics, logger *slog.Logger, op string, req llm.ObjectRequest, out any, check func() error) error {
	policy.OnRetry = func(attempt int, err error) {
		logger.Warn("model call failed, retrying", "operation", op, "attempt", attempt, "error", err)
	}
	_, err := retry.Do(ctx, policy, func(ctx context.Context, _ int) (struct{}, error) {
		err := gen.GenerateObject(ctx, req, out)
		if err == nil && check != nil {
			err = check()
		}
		switch {
		case err == nil:
			metrics.ModelCall(op, "ok")
			return struct{}{}, nil
		case errors.Is(err, llm.ErrNotConfigured):
			metrics.ModelCall(op, "not_configured")
			return struct{}{}, retry.Permanent(err)
		default:
			metrics.ModelCall(op, "error")
			return struct{}{}, err
		}
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
