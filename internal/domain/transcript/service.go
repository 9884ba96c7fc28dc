// Package transcript owns the lifecycle of persisted meeting summaries: the
// duplicate guard, the single insert, capability-checked viewing and deletion.
package transcript

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/claritycopilot/transcripts/internal/repository"
	"github.com/google/uuid"
)

const viewSecretBytes = 32

// Service handles transcript business logic.
type Service struct {
	records Repository
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a new transcript service.
func NewService(records Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{records: records, logger: logger, now: time.Now}
}

// CreateRequest carries every derived field of a relevant meeting.
type CreateRequest struct {
	Key                       NaturalKey
	Meeting                   MeetingInfo
	Content                   Content
	Summary                   string
	IsRelevant                bool
	RelevanceReasoning        string
	MeetingType               MeetingType
	ExternalParticipants      []string
	Projects                  []string
	Clients                   []string
	ExtractedParticipants     []string
	VerifiedParticipantEmails []string
}

// Exists reports whether a record with the natural key is already stored.
func (s *Service) Exists(ctx context.Context, key NaturalKey) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	exists, err := s.records.ExistsByKey(ctx, normalizeKey(key))
	if err != nil {
		return false, fmt.Errorf("checking for existing transcript: %w", err)
	}
	return exists, nil
}

// Create inserts the record once with a fresh id and view secret. A
// uniqueness conflict on the natural key returns ErrDuplicate.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Record, error) {
	if err := ValidateCreateInput(req); err != nil {
		return nil, err
	}

	secret, err := newViewSecret()
	if err != nil {
		return nil, fmt.Errorf("generating view secret: %w", err)
	}

	meetingType := req.MeetingType
	if meetingType == "" {
		meetingType = MeetingUnknown
	}

	rec := &Record{
		ID:                        uuid.NewString(),
		Key:                       normalizeKey(req.Key),
		Meeting:                   req.Meeting,
		Content:                   req.Content,
		Summary:                   req.Summary,
		IsRelevant:                req.IsRelevant,
		RelevanceReasoning:        req.RelevanceReasoning,
		MeetingType:               meetingType,
		ExternalParticipants:      nonNil(req.ExternalParticipants),
		Projects:                  nonNil(req.Projects),
		Clients:                   nonNil(req.Clients),
		ExtractedParticipants:     nonNil(req.ExtractedParticipants),
		VerifiedParticipantEmails: nonNil(req.VerifiedParticipantEmails),
		ViewSecret:                secret,
		CreatedAt:                 s.now().UTC(),
	}
	rec.Meeting.ScheduledStart = rec.Meeting.ScheduledStart.UTC()

	if err := s.records.Create(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("creating transcript: %w", err)
	}

	s.logger.Info("transcript stored",
		"id", rec.ID,
		"meeting_id", rec.Key.MeetingID,
		"meeting_type", rec.MeetingType,
	)
	return rec, nil
}

// Get loads a record by id.
func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidInput
	}
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading transcript: %w", err)
	}
	return rec, nil
}

// View loads a record only if secret matches its view secret.
func (s *Service) View(ctx context.Context, id, secret string) (*Record, error) {
	if strings.TrimSpace(id) == "" || secret == "" {
		return nil, ErrInvalidInput
	}
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(rec.ViewSecret), []byte(secret)) != 1 {
		return nil, ErrSecretMismatch
	}
	return rec, nil
}

// Delete permanently removes a record and returns what was deleted.
func (s *Service) Delete(ctx context.Context, id string) (*Record, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.records.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("deleting transcript: %w", err)
	}
	s.logger.Info("transcript deleted", "id", id, "meeting_id", rec.Key.MeetingID)
	return rec, nil
}

// List returns records newest first.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Ref, error) {
	if opts.MeetingType != "" && !opts.MeetingType.Valid() {
		return nil, ErrInvalidInput
	}
	opts.Limit = clampLimit(opts.Limit)
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	refs, err := s.records.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing transcripts: %w", err)
	}
	return refs, nil
}

// Search runs a full-text query over topics and summaries.
func (s *Service) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidInput
	}
	opts.Limit = clampLimit(opts.Limit)
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	results, err := s.records.Search(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("searching transcripts: %w", err)
	}
	return results, nil
}

func normalizeKey(key NaturalKey) NaturalKey {
	key.MeetingID = strings.TrimSpace(key.MeetingID)
	key.InstanceID = strings.TrimSpace(key.InstanceID)
	key.RecordingStart = key.RecordingStart.UTC()
	key.RecordingEnd = key.RecordingEnd.UTC()
	return key
}

func newViewSecret() (string, error) {
	b := make([]byte, viewSecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
