// Package pipeline turns a transcript_completed webhook into a stored,
// summarized record and a host notification.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/claritycopilot/transcripts/internal/analysis"
	"github.com/claritycopilot/transcripts/internal/domain/activity"
	"github.com/claritycopilot/transcripts/internal/domain/transcript"
	"github.com/claritycopilot/transcripts/internal/notify"
	"github.com/claritycopilot/transcripts/internal/observability"
	"github.com/claritycopilot/transcripts/internal/vtt"
	"github.com/claritycopilot/transcripts/internal/zoom"
	"go.opentelemetry.io/otel/attribute"
)

// ErrNoTranscriptFile is returned when a recording carries no downloadable transcript.
var ErrNoTranscriptFile = errors.New("recording has no transcript file")

// Store is the duplicate guard and persistence writer.
type Store interface {
	Exists(ctx context.Context, key transcript.NaturalKey) (bool, error)
	Create(ctx context.Context, req transcript.CreateRequest) (*transcript.Record, error)
}

// Fetcher downloads the VTT file.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, accessToken string) ([]byte, error)
}

// Summarizer decides relevance and summarizes.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (analysis.SummaryResult, error)
}

// Extractor classifies the meeting.
type Extractor interface {
	Extract(ctx context.Context, summary, transcript string, speakers []string) (analysis.Metadata, error)
}

// Attendance returns verified participant emails for a meeting instance.
type Attendance interface {
	Participants(ctx context.Context, meetingUUID string) ([]string, error)
}

// Notifier tells the host about a stored record.
type Notifier interface {
	Notify(ctx context.Context, note notify.Notification) error
}

// ActivityLog records lifecycle events. It must not fail the caller.
type ActivityLog interface {
	Record(ctx context.Context, recordID string, typ activity.Type, actor, detail string)
}

// Deps are the collaborators of a Pipeline. Attendance, Notifier, Activity,
// Metrics and Tracer may be nil.
type Deps struct {
	Store      Store
	Fetcher    Fetcher
	Summarizer Summarizer
	Extractor  Extractor
	Attendance Attendance
	Notifier   Notifier
	Activity   ActivityLog
	Metrics    *observability.Metrics
	Tracer     *observability.Tracer
	Logger     *slog.Logger
}

// Pipeline processes one recording at a time; it holds no per-run state.
type Pipeline struct {
	Deps
}

// New creates a Pipeline.
func New(deps Deps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Pipeline{Deps: deps}
}

// Job is one accepted transcript_completed delivery.
type Job struct {
	Payload       zoom.RecordingPayload
	DownloadToken string
}

// Result reports how a run ended.
type Result struct {
	Outcome  string
	RecordID string
}

// Process runs the full pipeline. Duplicates and irrelevant meetings are not
// errors. Nothing is stored unless the meeting is relevant, and nothing is
// sent unless the record was stored.
func (p *Pipeline) Process(ctx context.Context, job Job) (res Result, err error) {
	obj := job.Payload.Object
	ctx, span := p.Tracer.StartRun(ctx, obj.ID.String(), obj.UUID)
	logger := p.Logger.With("meeting_id", obj.ID.String(), "meeting_uuid", obj.UUID)
	defer func() {
		span.SetAttributes(attribute.String(observability.AttrOutcome, res.Outcome))
		if res.RecordID != "" {
			span.SetAttributes(attribute.String(observability.AttrRecordID, res.RecordID))
		}
		observability.EndSpan(span, err)
		p.Metrics.PipelineRun(res.Outcome)
	}()

	file, ok := obj.TranscriptFile()
	if !ok {
		return Result{Outcome: observability.OutcomeInvalid}, ErrNoTranscriptFile
	}
	key := transcript.NaturalKey{
		MeetingID:      obj.ID.String(),
		InstanceID:     obj.UUID,
		RecordingStart: file.RecordingStart.Time,
		RecordingEnd:   file.RecordingEnd.Time,
	}
	if err := transcript.ValidateKey(key); err != nil {
		return Result{Outcome: observability.OutcomeInvalid}, fmt.Errorf("natural key: %w", err)
	}

	var exists bool
	err = p.step(ctx, "duplicate_check", func(ctx context.Context) (err error) {
		exists, err = p.Store.Exists(ctx, key)
		return err
	})
	if err != nil {
		return Result{Outcome: observability.OutcomeFailed}, err
	}
	if exists {
		logger.Info("transcript already processed, skipping")
		return Result{Outcome: observability.OutcomeDuplicate}, nil
	}

	var raw []byte
	err = p.step(ctx, "download", func(ctx context.Context) (err error) {
		raw, err = p.Fetcher.Fetch(ctx, file.DownloadURL, job.DownloadToken)
		return err
	})
	if err != nil {
		return Result{Outcome: observability.OutcomeFailed}, fmt.Errorf("download transcript: %w", err)
	}

	cleaned := vtt.Clean(string(raw))
	logger.Debug("transcript cleaned", "raw_bytes", len(raw), "cleaned_bytes", len(cleaned))

	var summary analysis.SummaryResult
	err = p.step(ctx, "summarize", func(ctx context.Context) (err error) {
		summary, err = p.Summarizer.Summarize(ctx, cleaned)
		return err
	})
	if err != nil {
		return Result{Outcome: observability.OutcomeFailed}, err
	}
	span.SetAttributes(attribute.Bool(observability.AttrIsRelevant, summary.IsRelevant))
	if !summary.IsRelevant {
		logger.Info("meeting not relevant, nothing stored", "reasoning", summary.Reasoning)
		return Result{Outcome: observability.OutcomeIrrelevant}, nil
	}

	speakers := vtt.ExtractSpeakers(cleaned)

	var meta analysis.Metadata
	err = p.step(ctx, "extract", func(ctx context.Context) (err error) {
		meta, err = p.Extractor.Extract(ctx, summary.Summary, cleaned, speakers)
		return err
	})
	if err != nil {
		return Result{Outcome: observability.OutcomeFailed}, err
	}

	verified := p.verifiedAttendance(ctx, logger, obj.UUID)

	// A concurrent delivery may have finished while the model calls ran.
	err = p.step(ctx, "duplicate_recheck", func(ctx context.Context) (err error) {
		exists, err = p.Store.Exists(ctx, key)
		return err
	})
	if err != nil {
		return Result{Outcome: observability.OutcomeFailed}, err
	}
	if exists {
		logger.Info("transcript stored by a concurrent delivery, skipping")
		return Result{Outcome: observability.OutcomeDuplicate}, nil
	}

	var rec *transcript.Record
	err = p.step(ctx, "persist", func(ctx context.Context) (err error) {
		rec, err = p.Store.Create(ctx, transcript.CreateRequest{
			Key: key,
			Meeting: transcript.MeetingInfo{
				Topic:           obj.Topic,
				HostEmail:       obj.HostEmail,
				HostID:          obj.HostID,
				ScheduledStart:  obj.StartTime.Time,
				DurationMinutes: obj.Duration,
				AccountID:       job.Payload.Account(),
			},
			Content:                   transcript.Content{Raw: string(raw), Cleaned: cleaned},
			Summary:                   summary.Summary,
			IsRelevant:                summary.IsRelevant,
			RelevanceReasoning:        summary.Reasoning,
			MeetingType:               transcript.MeetingType(meta.MeetingType),
			ExternalParticipants:      meta.IdentifiedExternalParticipants,
			Projects:                  meta.Projects,
			Clients:                   meta.Clients,
			ExtractedParticipants:     speakers,
			VerifiedParticipantEmails: verified,
		})
		if errors.Is(err, transcript.ErrDuplicate) {
			return nil
		}
		return err
	})
	if err != nil {
		return Result{Outcome: observability.OutcomeFailed}, err
	}
	if rec == nil {
		logger.Info("uniqueness conflict on insert, treating as duplicate")
		return Result{Outcome: observability.OutcomeDuplicate}, nil
	}

	p.audit(ctx, rec.ID, activity.TypeStored, string(rec.MeetingType))
	p.notify(ctx, logger, rec)

	return Result{Outcome: observability.OutcomePersisted, RecordID: rec.ID}, nil
}

func (p *Pipeline) step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, span := p.Tracer.StartStep(ctx, name)
	err := fn(ctx)
	observability.EndSpan(span, err)
	p.Metrics.ObserveStep(name, start)
	return err
}

// verifiedAttendance is best effort: any failure yields an empty list.
func (p *Pipeline) verifiedAttendance(ctx context.Context, logger *slog.Logger, meetingUUID string) []string {
	if p.Attendance == nil {
		return []string{}
	}
	var emails []string
	err := p.step(ctx, "attendance", func(ctx context.Context) (err error) {
		emails, err = p.Attendance.Participants(ctx, meetingUUID)
		return err
	})
	if err != nil {
		if errors.Is(err, zoom.ErrNotConfigured) {
			logger.Debug("verified attendance disabled")
		} else {
			logger.Warn("verified attendance unavailable", "error", err)
		}
		return []string{}
	}
	if emails == nil {
		return []string{}
	}
	return emails
}

// notify never fails the run; the record is already committed.
func (p *Pipeline) notify(ctx context.Context, logger *slog.Logger, rec *transcript.Record) {
	if p.Notifier == nil {
		return
	}
	err := p.step(ctx, "notify", func(ctx context.Context) error {
		return p.Notifier.Notify(ctx, notify.Notification{
			RecordID:       rec.ID,
			ViewSecret:     rec.ViewSecret,
			HostEmail:      rec.Meeting.HostEmail,
			Topic:          rec.Meeting.Topic,
			RecordingStart: rec.Key.RecordingStart,
			RecordingEnd:   rec.Key.RecordingEnd,
			Summary:        rec.Summary,
		})
	})
	switch {
	case err == nil:
		p.audit(ctx, rec.ID, activity.TypeNotified, "")
	case errors.Is(err, notify.ErrNotAllowed):
		logger.Info("host outside notification allow-list", "record_id", rec.ID)
		p.audit(ctx, rec.ID, activity.TypeNotifySkipped, "allow-list")
	default:
		logger.Error("notification failed", "record_id", rec.ID, "error", err)
		p.audit(ctx, rec.ID, activity.TypeNotifyFailed, err.Error())
	}
}

func (p *Pipeline) audit(ctx context.Context, recordID string, typ activity.Type, detail string) {
	if p.Activity == nil {
		return
	}
	p.Activity.Record(ctx, recordID, typ, "", detail)
}
