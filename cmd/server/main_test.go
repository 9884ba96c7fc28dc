package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/claritycopilot/transcripts/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestNewLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	logger, closeLog := newLogger(config.LogConfig{Level: "info", Format: "json"}, &buf)
	defer closeLog()

	logger.Debug("hidden")
	logger.Info("shown", "meeting_id", "123")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"meeting_id":"123"`)
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "copilot.log")
	var buf bytes.Buffer
	logger, closeLog := newLogger(config.LogConfig{Level: "debug", File: path}, &buf)

	logger.Debug("to the file")
	closeLog()

	assert.Empty(t, buf.String())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to the file")
}

func TestLogFileWriter_KeepsNewestBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "copilot.log")
	w, err := newSizedLogFileWriter(path, 100, 40)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte(strings.Repeat("a", 90)))
	require.NoError(t, err)
	_, err = w.Write([]byte(strings.Repeat("b", 30)))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 10)+strings.Repeat("b", 30), string(data))

	_, err = w.Write([]byte("c"))
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, 41)
}

func TestEnsureDBDir(t *testing.T) {
	require.NoError(t, ensureDBDir(":memory:"))
	require.NoError(t, ensureDBDir("local.db"))

	path := filepath.Join(t.TempDir(), "nested", "dir", "copilot.db")
	require.NoError(t, ensureDBDir(path))
	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["migrate"])
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestMigrateCommand_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "copilot.db")
	t.Setenv("COPILOT_CONFIG_PATH", "")
	t.Setenv("COPILOT_DB_DRIVER", "sqlite")
	t.Setenv("COPILOT_DB_PATH", dbPath)
	t.Setenv("COPILOT_LOG_LEVEL", "error")

	root := newRootCmd()
	root.SetArgs([]string{"migrate"})
	require.NoError(t, root.ExecuteContext(context.Background()))

	_, err := os.Stat(dbPath)
	require.NoError(t, err)
}

func TestOptionalIntegrations(t *testing.T) {
	assert.Nil(t, slackAPI(config.SlackConfig{}))
	assert.NotNil(t, slackAPI(config.SlackConfig{BotToken: "xoxb-1", APIURL: "http://127.0.0.1:1/"}))
	assert.Nil(t, userCache(context.Background(), config.RedisConfig{}, slog.Default()))
}
