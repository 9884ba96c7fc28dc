package transport

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/claritycopilot/transcripts/internal/domain/activity"
	"github.com/claritycopilot/transcripts/internal/domain/transcript"
	"github.com/claritycopilot/transcripts/internal/pipeline"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	zoomSecret  = "zoom-secret"
	slackSecret = "slack-secret"
)

type fakeRecords struct {
	mu      sync.Mutex
	records map[string]*transcript.Record
	err     error
	deleted []string
}

func (f *fakeRecords) View(_ context.Context, id, secret string) (*transcript.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.records[id]
	if !ok {
		return nil, transcript.ErrNotFound
	}
	if rec.ViewSecret != secret {
		return nil, transcript.ErrSecretMismatch
	}
	return rec, nil
}

func (f *fakeRecords) Delete(_ context.Context, id string) (*transcript.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.records[id]
	if !ok {
		return nil, transcript.ErrNotFound
	}
	delete(f.records, id)
	f.deleted = append(f.deleted, id)
	return rec, nil
}

type fakeProcessor struct {
	mu   sync.Mutex
	jobs []pipeline.Job
}

func (f *fakeProcessor) Process(_ context.Context, job pipeline.Job) (pipeline.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return pipeline.Result{}, nil
}

// inlineScheduler records scheduled tasks and runs them when run is called.
type inlineScheduler struct {
	closed bool
	names  []string
	tasks  []func(ctx context.Context) error
}

func (s *inlineScheduler) Go(name string, fn func(ctx context.Context) error) bool {
	if s.closed {
		return false
	}
	s.names = append(s.names, name)
	s.tasks = append(s.tasks, fn)
	return true
}

func (s *inlineScheduler) run(t *testing.T) {
	t.Helper()
	for _, fn := range s.tasks {
		require.NoError(t, fn(context.Background()))
	}
}

type mockReplier struct {
	mock.Mock
}

func (m *mockReplier) ConfirmDeleted(ctx context.Context, channelID, userID, topic string) error {
	return m.Called(ctx, channelID, userID, topic).Error(0)
}

func (m *mockReplier) ReportFailure(ctx context.Context, channelID, userID, text string) error {
	return m.Called(ctx, channelID, userID, text).Error(0)
}

type fakeAuditor struct {
	mu      sync.Mutex
	entries []activity.Entry
}

func (a *fakeAuditor) Record(_ context.Context, recordID string, typ activity.Type, actor, detail string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, activity.Entry{RecordID: recordID, Type: typ, Actor: actor, Detail: detail})
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type testEnv struct {
	records   *fakeRecords
	processor *fakeProcessor
	scheduler *inlineScheduler
	replier   *mockReplier
	audit     *fakeAuditor
	opts      Options
}

func newTestEnv() *testEnv {
	start := time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)
	env := &testEnv{
		records: &fakeRecords{records: map[string]*transcript.Record{
			"rec-1": {
				ID:         "rec-1",
				ViewSecret: "right-secret",
				Key: transcript.NaturalKey{
					MeetingID:      "123",
					InstanceID:     "inst==",
					RecordingStart: start,
					RecordingEnd:   start.Add(30 * time.Minute),
				},
				Meeting:     transcript.MeetingInfo{Topic: "Portal launch", HostEmail: "host@example.com"},
				Content:     transcript.Content{Cleaned: "Alice: hello"},
				Summary:     "**Topic:** Portal launch\n\nSECRET-SUMMARY-BODY <script>alert(1)</script>",
				MeetingType: transcript.MeetingExternal,
				Projects:    []string{"Portal"},
			},
		}},
		processor: &fakeProcessor{},
		scheduler: &inlineScheduler{},
		replier:   &mockReplier{},
		audit:     &fakeAuditor{},
	}
	env.opts = Options{
		ZoomWebhookSecret:  zoomSecret,
		SlackSigningSecret: slackSecret,
		Records:            env.records,
		Processor:          env.processor,
		Scheduler:          env.scheduler,
		Replier:            env.replier,
		Activity:           env.audit,
	}
	return env
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	NewServer(e.opts).ServeHTTP(rec, req)
	return rec
}

func hmacHex(secret, msg string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

func zoomRequest(body, secret string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/zoom", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		ts := strconv.FormatInt(time.Now().Unix(), 10)
		req.Header.Set("x-zm-request-timestamp", ts)
		req.Header.Set("x-zm-signature", "v0="+hmacHex(secret, "v0:"+ts+":"+body))
	}
	return req
}

func slackRequest(body, secret string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/slack/interactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", "v0="+hmacHex(secret, "v0:"+ts+":"+body))
	return req
}

func TestHealth(t *testing.T) {
	env := newTestEnv()
	env.opts.Health = fakePinger{}
	rec := env.serve(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	env.opts.Health = fakePinger{err: errors.New("db down")}
	rec = env.serve(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsAndMCPMounts(t *testing.T) {
	env := newTestEnv()
	env.opts.MetricsHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("metrics"))
	})
	env.opts.MCP = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("mcp"))
	})
	env.opts.MCPToken = "mcp-token"

	rec := env.serve(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, "metrics", rec.Body.String())

	rec = env.serve(httptest.NewRequest(http.MethodPost, "/mcp", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer mcp-token")
	rec = env.serve(req)
	require.Equal(t, "mcp", rec.Body.String())
}

func TestRecovererReturns500(t *testing.T) {
	handler := recoverer(slog.Default())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), `"error"`)
}
