package mocks

import (
	"context"

	"github.com/claritycopilot/transcripts/internal/domain/activity"
	"github.com/claritycopilot/transcripts/internal/domain/transcript"
	"github.com/stretchr/testify/mock"
)

// TranscriptRepository is a mock for transcript.Repository.
type TranscriptRepository struct {
	mock.Mock
}

func (m *TranscriptRepository) Create(ctx context.Context, rec *transcript.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *TranscriptRepository) Get(ctx context.Context, id string) (*transcript.Record, error) {
	args := m.Called(ctx, id)
	if rec, ok := args.Get(0).(*transcript.Record); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TranscriptRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *TranscriptRepository) ExistsByKey(ctx context.Context, key transcript.NaturalKey) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *TranscriptRepository) List(ctx context.Context, opts transcript.ListOptions) ([]transcript.Ref, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]transcript.Ref); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TranscriptRepository) Search(ctx context.Context, query string, opts transcript.SearchOptions) ([]transcript.SearchResult, error) {
	args := m.Called(ctx, query, opts)
	if results, ok := args.Get(0).([]transcript.SearchResult); ok {
		return results, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListOptions) ([]activity.Entry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
