// Package mcp exposes stored meeting summaries as read-only MCP tools.
package mcp

import (
	"context"
	"log/slog"

	"github.com/claritycopilot/transcripts/internal/domain/activity"
	"github.com/claritycopilot/transcripts/internal/domain/transcript"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// TranscriptService defines the read operations needed by MCP.
type TranscriptService interface {
	Get(ctx context.Context, id string) (*transcript.Record, error)
	List(ctx context.Context, opts transcript.ListOptions) ([]transcript.Ref, error)
	Search(ctx context.Context, query string, opts transcript.SearchOptions) ([]transcript.SearchResult, error)
}

// ActivityService lists the record audit trail.
type ActivityService interface {
	Recent(ctx context.Context, opts activity.ListOptions) ([]activity.Entry, error)
}

// Config contains server configuration. Activity may be nil, in which case
// the recent_activity tool is not registered.
type Config struct {
	Transcripts TranscriptService
	Activity    ActivityService
	Version     string
	Logger      *slog.Logger
}

// NewServer creates an MCP server with the transcript tools and traffic logging.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "meeting-copilot",
		Version: cfg.Version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Transcripts)
	if cfg.Activity != nil {
		registerActivityTool(server, cfg.Activity)
	}

	return server
}
