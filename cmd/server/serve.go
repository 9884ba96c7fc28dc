package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/claritycopilot/transcripts/internal/analysis"
	"github.com/claritycopilot/transcripts/internal/config"
	"github.com/claritycopilot/transcripts/internal/domain/activity"
	"github.com/claritycopilot/transcripts/internal/domain/transcript"
	"github.com/claritycopilot/transcripts/internal/download"
	"github.com/claritycopilot/transcripts/internal/llm"
	"github.com/claritycopilot/transcripts/internal/mcp"
	"github.com/claritycopilot/transcripts/internal/notify"
	"github.com/claritycopilot/transcripts/internal/observability"
	"github.com/claritycopilot/transcripts/internal/pipeline"
	"github.com/claritycopilot/transcripts/internal/postgres"
	"github.com/claritycopilot/transcripts/internal/repository"
	"github.com/claritycopilot/transcripts/internal/retry"
	"github.com/claritycopilot/transcripts/internal/sqlite"
	"github.com/claritycopilot/transcripts/internal/transport"
	"github.com/claritycopilot/transcripts/internal/zoom"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/slack-go/slack"
)

const httpShutdownTimeout = 10 * time.Second

// backend is an opened store plus its entity repositories.
type backend struct {
	store    repository.Store
	records  transcript.Repository
	activity activity.Repository
}

func runMigrate(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	b, err := openStore(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer b.store.Close()

	if err := b.store.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("schema up to date", "driver", cfg.DB.Driver)
	return nil
}

// runServe wires every component and blocks until ctx is canceled.
func runServe(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	b, err := openStore(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer b.store.Close()

	if err := b.store.Migrate(ctx); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)
	tracer := observability.NewTracer()

	svc := transcript.NewService(b.records, logger)
	audit := activity.NewService(b.activity, logger)

	notifier := notify.New(slackAPI(cfg.Slack), notify.Config{
		PublicURL: cfg.Server.PublicURL,
		AllowList: cfg.Slack.NotifyAllowList,
	}, userCache(ctx, cfg.Redis, logger), metrics, logger)

	gen := llm.NewClient(llm.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})
	modelPolicy := retry.Policy{MaxAttempts: cfg.Pipeline.ModelAttempts, Delay: retry.Fixed(cfg.Pipeline.ModelDelay)}
	roster := analysis.Roster{InternalStaff: cfg.Roster.InternalStaff, Clients: cfg.Roster.Clients}

	pl := pipeline.New(pipeline.Deps{
		Store: svc,
		Fetcher: download.New(logger,
			download.WithPolicy(retry.Policy{
				MaxAttempts: cfg.Pipeline.DownloadAttempts,
				Delay:       retry.Exponential(cfg.Pipeline.DownloadBaseDelay),
			}),
			download.WithMetrics(metrics),
		),
		Summarizer: analysis.NewSummarizer(gen, modelPolicy, metrics, logger),
		Extractor:  analysis.NewExtractor(gen, roster, modelPolicy, metrics, logger),
		Attendance: zoom.NewClient(zoom.ClientConfig{
			AccountID:    cfg.Zoom.AccountID,
			ClientID:     cfg.Zoom.ClientID,
			ClientSecret: cfg.Zoom.ClientSecret,
			APIBaseURL:   cfg.Zoom.APIBaseURL,
			TokenURL:     cfg.Zoom.TokenURL,
		}, logger),
		Notifier: notifier,
		Activity: audit,
		Metrics:  metrics,
		Tracer:   tracer,
		Logger:   logger,
	})
	runner := pipeline.NewRunner(cfg.Pipeline.RunTimeout, metrics, logger)

	opts := transport.Options{
		ZoomWebhookSecret:  cfg.Zoom.WebhookSecret,
		SlackSigningSecret: cfg.Slack.SigningSecret,
		Records:            svc,
		Processor:          pl,
		Scheduler:          runner,
		Replier:            notifier,
		Activity:           audit,
		Health:             b.store,
		Metrics:            metrics,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Logger:             logger,
	}
	if cfg.MCP.Enabled {
		mcpServer := mcp.NewServer(mcp.Config{Transcripts: svc, Activity: audit, Version: version, Logger: logger})
		opts.MCP = sdkmcp.NewStreamableHTTPHandler(
			func(r *http.Request) *sdkmcp.Server { return mcpServer },
			&sdkmcp.StreamableHTTPOptions{SessionTimeout: 30 * time.Minute},
		)
		opts.MCPToken = cfg.MCP.Token
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           transport.NewServer(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "db_driver", cfg.DB.Driver, "mcp", cfg.MCP.Enabled)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	return shutdown(logger, httpServer, runner, cfg.Pipeline.ShutdownGrace)
}

// shutdown stops accepting requests, then lets accepted pipeline runs finish.
func shutdown(logger *slog.Logger, server *http.Server, runner *pipeline.Runner, grace time.Duration) error {
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), grace)
	defer waitCancel()
	if err := runner.Wait(waitCtx); err != nil {
		logger.Error("background work abandoned", "error", err)
		return err
	}
	logger.Info("background work drained")
	return nil
}

func openStore(ctx context.Context, cfg config.DBConfig) (backend, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.URL)
		if err != nil {
			return backend{}, err
		}
		return backend{
			store:    db,
			records:  postgres.NewTranscriptRepository(db),
			activity: postgres.NewActivityRepository(db),
		}, nil
	default:
		if err := ensureDBDir(cfg.Path); err != nil {
			return backend{}, fmt.Errorf("prepare database path: %w", err)
		}
		db, err := sqlite.New(cfg.Path)
		if err != nil {
			return backend{}, err
		}
		return backend{
			store:    db,
			records:  sqlite.NewTranscriptRepository(db),
			activity: sqlite.NewActivityRepository(db),
		}, nil
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// slackAPI returns nil when no bot token is configured.
func slackAPI(cfg config.SlackConfig) notify.SlackAPI {
	if cfg.BotToken == "" {
		return nil
	}
	var opts []slack.Option
	if cfg.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(cfg.APIURL))
	}
	return slack.New(cfg.BotToken, opts...)
}

// userCache returns nil when Redis is not configured or unreachable.
func userCache(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) notify.UserCache {
	if cfg.URL == "" {
		return nil
	}
	rdb, err := notify.DialRedis(ctx, cfg.URL)
	if err != nil {
		logger.Warn("redis unavailable, slack user cache disabled", "error", err)
		return nil
	}
	return notify.NewRedisUserCache(rdb, cfg.UserCacheTTL)
}
