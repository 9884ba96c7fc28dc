// Package activity keeps an append-only audit trail of what happened to
// transcript records: stored, notified, deleted.
package activity

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Service handles activity log operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new activity service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Log appends an entry, stamping CreatedAt when it is missing.
func (s *Service) Log(ctx context.Context, entry *Entry) error {
	if entry == nil || entry.RecordID == "" || !entry.Type.Valid() {
		return ErrInvalidInput
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if err := s.repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("logging activity: %w", err)
	}
	s.logger.Debug("activity logged", "record_id", entry.RecordID, "type", entry.Type)
	return nil
}

// Record is Log for callers that must not fail on audit errors.
func (s *Service) Record(ctx context.Context, recordID string, typ Type, actor, detail string) {
	err := s.Log(ctx, &Entry{RecordID: recordID, Type: typ, Actor: actor, Detail: detail})
	if err != nil {
		s.logger.Warn("activity not recorded", "record_id", recordID, "type", typ, "error", err)
	}
}

// Recent lists entries newest first.
func (s *Service) Recent(ctx context.Context, opts ListOptions) ([]Entry, error) {
	if opts.Type != "" && !opts.Type.Valid() {
		return nil, ErrInvalidInput
	}
	if opts.Offset < 0 {
		return nil, ErrInvalidInput
	}
	opts.Limit = clampLimit(opts.Limit)
	entries, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}
