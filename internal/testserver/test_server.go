// Package testserver runs the full HTTP stack in-process against in-memory
// sqlite, a fake Zoom file host and a fake Slack Web API.
package testserver

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/claritycopilot/transcripts/internal/analysis"
	"github.com/claritycopilot/transcripts/internal/domain/activity"
	"github.com/claritycopilot/transcripts/internal/domain/transcript"
	"github.com/claritycopilot/transcripts/internal/download"
	"github.com/claritycopilot/transcripts/internal/llm"
	"github.com/claritycopilot/transcripts/internal/notify"
	"github.com/claritycopilot/transcripts/internal/observability"
	"github.com/claritycopilot/transcripts/internal/pipeline"
	"github.com/claritycopilot/transcripts/internal/retry"
	"github.com/claritycopilot/transcripts/internal/sqlite"
	"github.com/claritycopilot/transcripts/internal/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/require"
)

const (
	ZoomSecret  = "zoom-test-secret"
	SlackSecret = "slack-test-secret"
	SlackUserID = "U0HOST"
	SlackDMID   = "D0HOST"
)

// TestServer is a running instance plus handles on its fakes.
type TestServer struct {
	Server   *httptest.Server
	DB       *sqlite.DB
	Service  *transcript.Service
	Activity *activity.Service
	Runner   *pipeline.Runner
	Files    *FileHost
	Slack    *FakeSlack
	Registry *prometheus.Registry
}

// New starts a server. The Slack fake resolves every email to SlackUserID.
func New(t *testing.T) *TestServer {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	files := newFileHost()
	fakeSlack := newFakeSlack()

	svc := transcript.NewService(sqlite.NewTranscriptRepository(db), logger)
	audit := activity.NewService(sqlite.NewActivityRepository(db), logger)
	quick := retry.Policy{MaxAttempts: 2, Delay: retry.Fixed(time.Millisecond)}

	// No API key: only bypass-phrase transcripts can be analyzed.
	gen := llm.NewClient(llm.Config{})
	api := slack.New("xoxb-test", slack.OptionAPIURL(fakeSlack.server.URL+"/"))
	notifier := notify.New(api, notify.Config{PublicURL: "https://copilot.test"}, nil, metrics, logger)

	pl := pipeline.New(pipeline.Deps{
		Store:      svc,
		Fetcher:    download.New(logger, download.WithPolicy(quick), download.WithMetrics(metrics)),
		Summarizer: analysis.NewSummarizer(gen, quick, metrics, logger),
		Extractor:  analysis.NewExtractor(gen, analysis.DefaultRoster, quick, metrics, logger),
		Notifier:   notifier,
		Activity:   audit,
		Metrics:    metrics,
		Tracer:     observability.NewTracer(),
		Logger:     logger,
	})
	runner := pipeline.NewRunner(10*time.Second, metrics, logger)

	router := transport.NewServer(transport.Options{
		ZoomWebhookSecret:  ZoomSecret,
		SlackSigningSecret: SlackSecret,
		Records:            svc,
		Processor:          pl,
		Scheduler:          runner,
		Replier:            notifier,
		Activity:           audit,
		Health:             db,
		Metrics:            metrics,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Logger:             logger,
	})
	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:   server,
		DB:       db,
		Service:  svc,
		Activity: audit,
		Runner:   runner,
		Files:    files,
		Slack:    fakeSlack,
		Registry: registry,
	}

	t.Cleanup(func() {
		server.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = runner.Wait(ctx)
		files.server.Close()
		fakeSlack.server.Close()
		_ = db.Close()
	})

	return ts
}

// Drain waits for every accepted delivery to finish. The server rejects
// new deliveries afterwards.
func (ts *TestServer) Drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, ts.Runner.Wait(ctx))
}

// PostWebhook sends body signed with ZoomSecret.
func (ts *TestServer) PostWebhook(t *testing.T, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/webhooks/zoom", bytes.NewReader(body))
	require.NoError(t, err)
	stamp := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-zm-request-timestamp", stamp)
	req.Header.Set("x-zm-signature", "v0="+sign(ZoomSecret, "v0:"+stamp+":"+string(body)))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// PostInteraction sends a Slack interaction payload signed with SlackSecret.
func (ts *TestServer) PostInteraction(t *testing.T, payload string) *http.Response {
	t.Helper()
	body := url.Values{"payload": {payload}}.Encode()
	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/slack/interactions", strings.NewReader(body))
	require.NoError(t, err)
	stamp := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Slack-Request-Timestamp", stamp)
	req.Header.Set("X-Slack-Signature", "v0="+sign(SlackSecret, "v0:"+stamp+":"+body))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// Get issues a GET against the server.
func (ts *TestServer) Get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.Server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// RecordingEvent builds a signed-ready transcript_completed body whose
// transcript is served by the file host.
func (ts *TestServer) RecordingEvent(meetingID, uuid string, start time.Time, vtt string) []byte {
	path := ts.Files.Put(vtt)
	return []byte(fmt.Sprintf(`{
  "event": "recording.transcript_completed",
  "event_ts": %d,
  "download_token": "dl-token",
  "payload": {
    "account_id": "acct-test",
    "object": {
      "id": %s,
      "uuid": %q,
      "host_id": "host-1",
      "host_email": "host@example.com",
      "topic": "Copilot pipeline check",
      "start_time": %q,
      "duration": 30,
      "recording_files": [{
        "id": "file-1",
        "file_type": "TRANSCRIPT",
        "file_extension": "VTT",
        "download_url": %q,
        "recording_start": %q,
        "recording_end": %q,
        "status": "completed"
      }]
    }
  }
}`,
		start.UnixMilli(), meetingID, uuid,
		start.UTC().Format(time.RFC3339),
		ts.Files.server.URL+path,
		start.UTC().Format(time.RFC3339),
		start.Add(30*time.Minute).UTC().Format(time.RFC3339),
	))
}

func sign(secret, msg string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

// FileHost serves transcripts the way Zoom does, requiring access_token.
type FileHost struct {
	mu       sync.Mutex
	files    map[string]string
	requests int
	server   *httptest.Server
}

func newFileHost() *FileHost {
	h := &FileHost{files: map[string]string{}}
	h.server = httptest.NewServer(http.HandlerFunc(h.serve))
	return h
}

// Put stores content and returns its path.
func (h *FileHost) Put(content string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	path := fmt.Sprintf("/rec/download/%d.vtt", len(h.files)+1)
	h.files[path] = content
	return path
}

// Requests reports how many downloads were attempted.
func (h *FileHost) Requests() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.requests
}

func (h *FileHost) serve(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.requests++
	content, ok := h.files[r.URL.Path]
	h.mu.Unlock()

	if r.URL.Query().Get("access_token") == "" {
		// Zoom answers unauthenticated downloads with a login page.
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<!DOCTYPE html><html><body>Sign in</body></html>"))
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/vtt")
	_, _ = w.Write([]byte(content))
}

// SlackCall is one Web API request received by FakeSlack.
type SlackCall struct {
	Method string
	Form   url.Values
}

// FakeSlack answers the Web API methods the notifier uses.
type FakeSlack struct {
	mu     sync.Mutex
	calls  []SlackCall
	server *httptest.Server
}

func newFakeSlack() *FakeSlack {
	f := &FakeSlack{}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	return f
}

// Calls returns the requests for method, in order.
func (f *FakeSlack) Calls(method string) []SlackCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []SlackCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeSlack) serve(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	method := strings.TrimPrefix(r.URL.Path, "/")

	f.mu.Lock()
	f.calls = append(f.calls, SlackCall{Method: method, Form: r.Form})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "users.lookupByEmail":
		fmt.Fprintf(w, `{"ok":true,"user":{"id":%q,"name":"host"}}`, SlackUserID)
	case "conversations.open":
		fmt.Fprintf(w, `{"ok":true,"channel":{"id":%q}}`, SlackDMID)
	case "chat.postMessage":
		fmt.Fprintf(w, `{"ok":true,"channel":%q,"ts":"1714575600.000100"}`, r.Form.Get("channel"))
	case "chat.postEphemeral":
		_, _ = w.Write([]byte(`{"ok":true,"message_ts":"1714575600.000200"}`))
	default:
		_, _ = w.Write([]byte(`{"ok":false,"error":"unknown_method"}`))
	}
}
