package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/claritycopilot/transcripts/internal/config"
)

// newLogger builds the process logger. When cfg.File is set, records go to
// that file instead of w; the returned func closes it.
func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, func()) {
	closeFn := func() {}
	if cfg.File != "" {
		fileWriter, err := newLogFileWriter(cfg.File)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			w = fileWriter
			closeFn = func() { _ = fileWriter.Close() }
		}
	}

	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), closeFn
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const (
	maxLogSizeBytes  = 6 * 1024 * 1024
	keepLogSizeBytes = 5 * 1024 * 1024
)

// logFileWriter appends to a file and drops the oldest bytes once it grows
// past maxSize, keeping the newest keepSize.
type logFileWriter struct {
	path     string
	file     *os.File
	maxSize  int64
	keepSize int64
	mu       sync.Mutex
}

func newLogFileWriter(path string) (*logFileWriter, error) {
	return newSizedLogFileWriter(path, maxLogSizeBytes, keepLogSizeBytes)
}

func newSizedLogFileWriter(path string, maxSize, keepSize int64) (*logFileWriter, error) {
	if err := ensureLogDir(path); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	writer := &logFileWriter{path: path, file: file, maxSize: maxSize, keepSize: keepSize}
	if err := writer.truncateIfNeeded(); err != nil {
		file.Close()
		return nil, err
	}
	return writer, nil
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (w *logFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}
	if err := w.truncateIfNeeded(); err != nil {
		return n, err
	}
	return n, nil
}

func (w *logFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

func (w *logFileWriter) truncateIfNeeded() error {
	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= w.maxSize {
		return nil
	}

	buf := make([]byte, w.keepSize)
	if _, err := w.file.Seek(size-w.keepSize, io.SeekStart); err != nil {
		return err
	}
	n, err := io.ReadFull(w.file, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return err
	}
	buf = buf[:n]

	if err := w.file.Truncate(0); err != nil {
		return err
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.file.Write(buf); err != nil {
		return err
	}
	_, err = w.file.Seek(0, io.SeekEnd)
	return err
}
