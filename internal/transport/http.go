// Package transport exposes the HTTP surface: the Zoom webhook, Slack
// interactions, the read-only view page, health, metrics and MCP.
package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/claritycopilot/transcripts/internal/domain/activity"
	"github.com/claritycopilot/transcripts/internal/domain/transcript"
	"github.com/claritycopilot/transcripts/internal/observability"
	"github.com/claritycopilot/transcripts/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Records is the transcript store as seen by the HTTP handlers.
type Records interface {
	View(ctx context.Context, id, secret string) (*transcript.Record, error)
	Delete(ctx context.Context, id string) (*transcript.Record, error)
}

// Processor runs the transcript pipeline for one delivery.
type Processor interface {
	Process(ctx context.Context, job pipeline.Job) (pipeline.Result, error)
}

// Scheduler runs work after the response has been sent.
type Scheduler interface {
	Go(name string, fn func(ctx context.Context) error) bool
}

// Replier answers Slack interactions.
type Replier interface {
	ConfirmDeleted(ctx context.Context, channelID, userID, topic string) error
	ReportFailure(ctx context.Context, channelID, userID, text string) error
}

// Auditor records lifecycle events without failing the request.
type Auditor interface {
	Record(ctx context.Context, recordID string, typ activity.Type, actor, detail string)
}

// Pinger reports store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wires the handlers. Replier, Activity, Health, MetricsHandler and
// MCP may be nil.
type Options struct {
	ZoomWebhookSecret  string
	SlackSigningSecret string

	Records   Records
	Processor Processor
	Scheduler Scheduler
	Replier   Replier
	Activity  Auditor
	Health    Pinger

	Metrics        *observability.Metrics
	MetricsHandler http.Handler
	MCP            http.Handler
	MCPToken       string
	Logger         *slog.Logger
}

// Server holds handler dependencies.
type Server struct {
	opts   Options
	logger *slog.Logger
}

// NewServer creates the HTTP router with middleware.
func NewServer(opts Options) *chi.Mux {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	srv := &Server{opts: opts, logger: opts.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(opts.Logger))
	r.Use(recoverer(opts.Logger))

	r.Post("/webhooks/zoom", srv.handleZoomWebhook)
	r.Post("/slack/interactions", srv.handleSlackInteraction)
	r.Get("/view", srv.handleView)
	r.Get("/health", srv.handleHealth)

	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}
	if opts.MCP != nil {
		r.With(BearerAuth(opts.MCPToken)).Handle("/mcp", opts.MCP)
		r.With(BearerAuth(opts.MCPToken)).Handle("/mcp/*", opts.MCP)
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.opts.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Health.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", "error", err)
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// recoverer turns a handler panic into a 500 with a JSON error body.
func recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					if p == http.ErrAbortHandler {
						panic(p)
					}
					logger.Error("handler panic", "path", r.URL.Path, "panic", p)
					writeError(w, http.StatusInternalServerError, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
