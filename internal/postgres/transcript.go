package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/claritycopilot/transcripts/internal/domain/transcript"
	"github.com/claritycopilot/transcripts/internal/repository"
	"github.com/jackc/pgx/v5"
)

// TranscriptRepository implements transcript.Repository for Postgres.
type TranscriptRepository struct {
	db *DB
}

// NewTranscriptRepository creates a new TranscriptRepository.
func NewTranscriptRepository(db *DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

// Create inserts a record. A natural-key conflict returns repository.ErrDuplicate.
func (r *TranscriptRepository) Create(ctx context.Context, rec *transcript.Record) error {
	query := `
		INSERT INTO transcripts (
			id, external_meeting_id, external_meeting_instance_id, recording_start, recording_end,
			topic, host_email, host_id, scheduled_start_time, duration, account_id,
			content, summary, is_relevant, relevance_reasoning, meeting_type,
			external_participants, projects, clients, extracted_participants, verified_participant_emails,
			view_secret, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		rec.ID,
		rec.Key.MeetingID,
		rec.Key.InstanceID,
		rec.Key.RecordingStart.UTC(),
		rec.Key.RecordingEnd.UTC(),
		rec.Meeting.Topic,
		rec.Meeting.HostEmail,
		rec.Meeting.HostID,
		nullableTime(rec.Meeting.ScheduledStart),
		rec.Meeting.DurationMinutes,
		rec.Meeting.AccountID,
		rec.Content,
		rec.Summary,
		rec.IsRelevant,
		rec.RelevanceReasoning,
		string(rec.MeetingType),
		nonNil(rec.ExternalParticipants),
		nonNil(rec.Projects),
		nonNil(rec.Clients),
		nonNil(rec.ExtractedParticipants),
		nonNil(rec.VerifiedParticipantEmails),
		rec.ViewSecret,
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert transcript: %w", err)
	}
	return nil
}

// Get retrieves a record by id.
func (r *TranscriptRepository) Get(ctx context.Context, id string) (*transcript.Record, error) {
	query := `
		SELECT
			id, external_meeting_id, external_meeting_instance_id, recording_start, recording_end,
			topic, host_email, host_id, scheduled_start_time, duration, account_id,
			content, summary, is_relevant, relevance_reasoning, meeting_type,
			external_participants, projects, clients, extracted_participants, verified_participant_emails,
			view_secret, created_at
		FROM transcripts
		WHERE id = $1
	`

	var (
		rec         transcript.Record
		scheduled   *time.Time
		meetingType string
	)
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&rec.ID,
		&rec.Key.MeetingID,
		&rec.Key.InstanceID,
		&rec.Key.RecordingStart,
		&rec.Key.RecordingEnd,
		&rec.Meeting.Topic,
		&rec.Meeting.HostEmail,
		&rec.Meeting.HostID,
		&scheduled,
		&rec.Meeting.DurationMinutes,
		&rec.Meeting.AccountID,
		&rec.Content,
		&rec.Summary,
		&rec.IsRelevant,
		&rec.RelevanceReasoning,
		&meetingType,
		&rec.ExternalParticipants,
		&rec.Projects,
		&rec.Clients,
		&rec.ExtractedParticipants,
		&rec.VerifiedParticipantEmails,
		&rec.ViewSecret,
		&rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}

	rec.MeetingType = transcript.MeetingType(meetingType)
	rec.Key.RecordingStart = rec.Key.RecordingStart.UTC()
	rec.Key.RecordingEnd = rec.Key.RecordingEnd.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	if scheduled != nil {
		rec.Meeting.ScheduledStart = scheduled.UTC()
	}
	return &rec, nil
}

// Delete permanently removes a record.
func (r *TranscriptRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM transcripts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete transcript: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ExistsByKey reports whether a record with the natural key exists.
func (r *TranscriptRepository) ExistsByKey(ctx context.Context, key transcript.NaturalKey) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM transcripts
			WHERE external_meeting_id = $1 AND external_meeting_instance_id = $2
			  AND recording_start = $3 AND recording_end = $4
		)
	`
	var exists bool
	err := r.db.Pool.QueryRow(ctx, query,
		key.MeetingID,
		key.InstanceID,
		key.RecordingStart.UTC(),
		key.RecordingEnd.UTC(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check transcript: %w", err)
	}
	return exists, nil
}

const refColumns = `t.id, t.topic, t.host_email, t.meeting_type, t.recording_start, t.projects, t.clients, t.created_at`

// List returns records newest first.
func (r *TranscriptRepository) List(ctx context.Context, opts transcript.ListOptions) ([]transcript.Ref, error) {
	var (
		conditions []string
		args       []any
	)
	if opts.HostEmail != "" {
		args = append(args, opts.HostEmail)
		conditions = append(conditions, fmt.Sprintf("lower(t.host_email) = lower($%d)", len(args)))
	}
	if opts.MeetingType != "" {
		args = append(args, string(opts.MeetingType))
		conditions = append(conditions, fmt.Sprintf("t.meeting_type = $%d", len(args)))
	}
	if !opts.Since.IsZero() {
		args = append(args, opts.Since.UTC())
		conditions = append(conditions, fmt.Sprintf("t.recording_start >= $%d", len(args)))
	}

	query := `SELECT ` + refColumns + ` FROM transcripts t`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY t.created_at DESC, t.id"
	query, args = paginate(query, args, opts.Limit, opts.Offset)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	defer rows.Close()

	refs := []transcript.Ref{}
	for rows.Next() {
		ref, err := scanRef(rows)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcripts: %w", err)
	}
	return refs, nil
}

// Search ranks records against a web-search style query over topic and summary.
func (r *TranscriptRepository) Search(ctx context.Context, query string, opts transcript.SearchOptions) ([]transcript.SearchResult, error) {
	sql := `
		SELECT ` + refColumns + `,
			ts_rank(t.search_vector, q) AS rank,
			ts_headline('english', t.summary, q, 'MaxWords=16, MinWords=5') AS snippet
		FROM transcripts t, websearch_to_tsquery('english', $1) q
		WHERE t.search_vector @@ q
		ORDER BY rank DESC, t.created_at DESC
	`
	sql, args := paginate(sql, []any{query}, opts.Limit, opts.Offset)

	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("search transcripts: %w", err)
	}
	defer rows.Close()

	results := []transcript.SearchResult{}
	for rows.Next() {
		var (
			result transcript.SearchResult
			rank   float32
		)
		ref, err := scanRef(rows, &rank, &result.Snippet)
		if err != nil {
			return nil, err
		}
		result.Ref = ref
		result.Rank = float64(rank)
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}
	return results, nil
}

func scanRef(row pgx.Row, extra ...any) (transcript.Ref, error) {
	var (
		ref         transcript.Ref
		meetingType string
	)
	dest := []any{&ref.ID, &ref.Topic, &ref.HostEmail, &meetingType, &ref.RecordingStart, &ref.Projects, &ref.Clients, &ref.CreatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return transcript.Ref{}, fmt.Errorf("scan transcript: %w", err)
	}
	ref.MeetingType = transcript.MeetingType(meetingType)
	ref.RecordingStart = ref.RecordingStart.UTC()
	ref.CreatedAt = ref.CreatedAt.UTC()
	return ref, nil
}

func paginate(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
