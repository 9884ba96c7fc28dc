package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/claritycopilot/transcripts/internal/domain/transcript"
	"github.com/claritycopilot/transcripts/internal/repository"
)

// Times are stored as RFC 3339 text in UTC so the natural-key UNIQUE
// constraint compares identical strings for identical instants.
const timeLayout = time.RFC3339Nano

// TranscriptRepository implements transcript.Repository for SQLite
type TranscriptRepository struct {
	db *DB
}

// NewTranscriptRepository creates a new TranscriptRepository
func NewTranscriptRepository(db *DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

// Create inserts a record
func (r *TranscriptRepository) Create(ctx context.Context, rec *transcript.Record) error {
	query := `
		INSERT INTO transcripts (
			id, external_meeting_id, external_meeting_instance_id, recording_start, recording_end,
			topic, host_email, host_id, scheduled_start_time, duration, account_id,
			content, summary, is_relevant, relevance_reasoning, meeting_type,
			external_participants, projects, clients, extracted_participants, verified_participant_emails,
			view_secret, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	content, err := json.Marshal(rec.Content)
	if err != nil {
		return fmt.Errorf("failed to encode content: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		rec.ID,
		rec.Key.MeetingID,
		rec.Key.InstanceID,
		formatTime(rec.Key.RecordingStart),
		formatTime(rec.Key.RecordingEnd),
		rec.Meeting.Topic,
		rec.Meeting.HostEmail,
		rec.Meeting.HostID,
		formatTime(rec.Meeting.ScheduledStart),
		rec.Meeting.DurationMinutes,
		rec.Meeting.AccountID,
		string(content),
		rec.Summary,
		rec.IsRelevant,
		rec.RelevanceReasoning,
		string(rec.MeetingType),
		encodeList(rec.ExternalParticipants),
		encodeList(rec.Projects),
		encodeList(rec.Clients),
		encodeList(rec.ExtractedParticipants),
		encodeList(rec.VerifiedParticipantEmails),
		rec.ViewSecret,
		formatTime(rec.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create transcript: %w", err)
	}
	return nil
}

// Get retrieves a record by ID
func (r *TranscriptRepository) Get(ctx context.Context, id string) (*transcript.Record, error) {
	query := `
		SELECT
			id, external_meeting_id, external_meeting_instance_id, recording_start, recording_end,
			topic, host_email, host_id, scheduled_start_time, duration, account_id,
			content, summary, is_relevant, relevance_reasoning, meeting_type,
			external_participants, projects, clients, extracted_participants, verified_participant_emails,
			view_secret, created_at
		FROM transcripts
		WHERE id = ?
	`

	var (
		rec                                     transcript.Record
		start, end, scheduled, created, content string
		external, projects, clients             string
		extracted, verified                     string
		meetingType                             string
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.Key.MeetingID,
		&rec.Key.InstanceID,
		&start,
		&end,
		&rec.Meeting.Topic,
		&rec.Meeting.HostEmail,
		&rec.Meeting.HostID,
		&scheduled,
		&rec.Meeting.DurationMinutes,
		&rec.Meeting.AccountID,
		&content,
		&rec.Summary,
		&rec.IsRelevant,
		&rec.RelevanceReasoning,
		&meetingType,
		&external,
		&projects,
		&clients,
		&extracted,
		&verified,
		&rec.ViewSecret,
		&created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}

	rec.MeetingType = transcript.MeetingType(meetingType)
	if err := json.Unmarshal([]byte(content), &rec.Content); err != nil {
		return nil, fmt.Errorf("failed to decode content: %w", err)
	}
	times := []struct {
		dst *time.Time
		src string
	}{
		{&rec.Key.RecordingStart, start},
		{&rec.Key.RecordingEnd, end},
		{&rec.Meeting.ScheduledStart, scheduled},
		{&rec.CreatedAt, created},
	}
	for _, tm := range times {
		if *tm.dst, err = parseTime(tm.src); err != nil {
			return nil, err
		}
	}
	lists := []struct {
		dst *[]string
		src string
	}{
		{&rec.ExternalParticipants, external},
		{&rec.Projects, projects},
		{&rec.Clients, clients},
		{&rec.ExtractedParticipants, extracted},
		{&rec.VerifiedParticipantEmails, verified},
	}
	for _, l := range lists {
		if *l.dst, err = decodeList(l.src); err != nil {
			return nil, err
		}
	}

	return &rec, nil
}

// Delete permanently removes a record
func (r *TranscriptRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM transcripts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ExistsByKey reports whether a record with the natural key exists
func (r *TranscriptRepository) ExistsByKey(ctx context.Context, key transcript.NaturalKey) (bool, error) {
	query := `
		SELECT COUNT(*) FROM transcripts
		WHERE external_meeting_id = ? AND external_meeting_instance_id = ?
		  AND recording_start = ? AND recording_end = ?
	`
	var count int
	err := r.db.QueryRowContext(ctx, query,
		key.MeetingID,
		key.InstanceID,
		formatTime(key.RecordingStart),
		formatTime(key.RecordingEnd),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check transcript: %w", err)
	}
	return count > 0, nil
}

const refColumns = `t.id, t.topic, t.host_email, t.meeting_type, t.recording_start, t.projects, t.clients, t.created_at`

// List returns records newest first
func (r *TranscriptRepository) List(ctx context.Context, opts transcript.ListOptions) ([]transcript.Ref, error) {
	query := `SELECT ` + refColumns + ` FROM transcripts t WHERE 1 = 1`
	args := []interface{}{}

	if opts.HostEmail != "" {
		query += " AND t.host_email = ? COLLATE NOCASE"
		args = append(args, opts.HostEmail)
	}
	if opts.MeetingType != "" {
		query += " AND t.meeting_type = ?"
		args = append(args, string(opts.MeetingType))
	}
	if !opts.Since.IsZero() {
		query += " AND t.recording_start >= ?"
		args = append(args, formatTime(opts.Since))
	}

	query += " ORDER BY t.created_at DESC, t.id"
	query, args = paginate(query, args, opts.Limit, opts.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
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
		return nil, fmt.Errorf("error iterating transcripts: %w", err)
	}
	return refs, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRef(row scanner, extra ...interface{}) (transcript.Ref, error) {
	var (
		ref                       transcript.Ref
		meetingType, start, added string
		projects, clients         string
	)
	dest := []interface{}{&ref.ID, &ref.Topic, &ref.HostEmail, &meetingType, &start, &projects, &clients, &added}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return transcript.Ref{}, fmt.Errorf("failed to scan transcript: %w", err)
	}

	var err error
	ref.MeetingType = transcript.MeetingType(meetingType)
	if ref.RecordingStart, err = parseTime(start); err != nil {
		return transcript.Ref{}, err
	}
	if ref.CreatedAt, err = parseTime(added); err != nil {
		return transcript.Ref{}, err
	}
	if ref.Projects, err = decodeList(projects); err != nil {
		return transcript.Ref{}, err
	}
	if ref.Clients, err = decodeList(clients); err != nil {
		return transcript.Ref{}, err
	}
	return ref, nil
}

func paginate(query string, args []interface{}, limit, offset int) (string, []interface{}) {
	if limit <= 0 {
		limit = -1
	}
	query += " LIMIT ?"
	args = append(args, limit)
	if offset > 0 {
		query += " OFFSET ?"
		args = append(args, offset)
	}
	return query, args
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse time %q: %w", s, err)
	}
	return t, nil
}

func encodeList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeList(s string) ([]string, error) {
	items := []string{}
	if s == "" {
		return items, nil
	}
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	if items == nil {
		items = []string{}
	}
	return items, nil
}
