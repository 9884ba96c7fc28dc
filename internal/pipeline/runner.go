package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claritycopilot/transcripts/internal/observability"
)

// Runner executes work detached from the request that accepted it and lets
// shutdown wait for in-flight work.
type Runner struct {
	mu      sync.Mutex
	wg      sync.WaitGroup
	closed  bool
	timeout time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewRunner creates a Runner. Each task gets its own timeout; zero means none.
func NewRunner(timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{timeout: timeout, metrics: metrics, logger: logger}
}

// Go starts fn in the background. Errors and panics are logged. It reports
// false once Wait has been called.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Warn("runner closed, dropping task", "task", name)
		return false
	}
	r.wg.Add(1)
	r.mu.Unlock()

	r.metrics.BackgroundStarted()
	go func() {
		defer r.wg.Done()
		defer r.metrics.BackgroundFinished()

		ctx := context.Background()
		if r.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}

		start := time.Now()
		err := safeRun(ctx, fn)
		if err != nil {
			r.logger.Error("background task failed", "task", name, "duration", time.Since(start), "error", err)
			return
		}
		r.logger.Debug("background task finished", "task", name, "duration", time.Since(start))
	}()
	return true
}

// Wait stops accepting work and blocks until running tasks finish or ctx ends.
func (r *Runner) Wait(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for background tasks: %w", ctx.Err())
	}
}

func safeRun(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx)
}
