// Package retry provides a bounded retry loop shared by the downloader and
// the model-calling components.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DelayFunc returns the wait before the next attempt. attempt is 1-based and
// names the attempt that just failed.
type DelayFunc func(attempt int) time.Duration

// Policy bounds a retry loop.
type Policy struct {
	MaxAttempts int
	Delay       DelayFunc
	// OnRetry, when set, is called after a failed attempt that will be retried.
	OnRetry func(attempt int, err error)
}

// Exponential doubles base for every failed attempt: base, 2*base, 4*base...
func Exponential(base time.Duration) DelayFunc {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return base << (attempt - 1)
	}
}

// Fixed waits d between every attempt.
func Fixed(d time.Duration) DelayFunc {
	return func(int) time.Duration { return d }
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as non-retryable; Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// ErrExhausted wraps the last error once all attempts have failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Do calls fn until it succeeds, returns a Permanent error, the context is
// done, or MaxAttempts is reached.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := fn(ctx, attempt)
		if err == nil {
			return v, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		var wait time.Duration
		if p.Delay != nil {
			wait = p.Delay(attempt)
		}
		if wait <= 0 {
			if ctx.Err() != nil {
				return zero, ctx.Err()
			}
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("waiting to retry: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}
