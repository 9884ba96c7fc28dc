package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/claritycopilot/transcripts/internal/config"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "copilot",
		Short: "Meeting copilot - Zoom transcript summaries delivered over Slack",
		Long: `copilot receives Zoom transcript_completed webhooks, decides whether each
meeting is worth keeping, stores a structured summary and DMs the host a copy
with a delete control.

Configuration is read from the YAML file named by --config or
COPILOT_CONFIG_PATH, then overridden by COPILOT_* environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				return os.Setenv("COPILOT_CONFIG_PATH", configPath)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeCmd(cmd)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeCmd(cmd)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, closeLog, err := setup()
			if err != nil {
				return err
			}
			defer closeLog()
			return runMigrate(cmd.Context(), cfg, logger)
		},
	})

	return root
}

func runServeCmd(cmd *cobra.Command) error {
	cfg, logger, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()
	return runServe(cmd.Context(), cfg, logger)
}

func setup() (config.Config, *slog.Logger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("config: %w", err)
	}
	logger, closeLog := newLogger(cfg.Log, os.Stdout)
	for _, w := range cfg.Warnings() {
		logger.Warn("configuration", "warning", w)
	}
	return cfg, logger, closeLog, nil
}
