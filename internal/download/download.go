// Package download fetches recording files with bounded retries.
package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claritycopilot/transcripts/internal/observability"
	"github.com/claritycopilot/transcripts/internal/retry"
)

var (
	// ErrMissingToken is returned when no access token accompanies the download URL.
	ErrMissingToken = errors.New("download access token is required")
	// ErrHTMLResponse is returned when the server answers with an HTML page
	// instead of the file, which happens when the URL expired or the token was rejected.
	ErrHTMLResponse = errors.New("download returned an HTML page")
	// ErrUnexpectedStatus is returned for any non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected download status")
)

const maxBodyBytes = 50 << 20

// Downloader fetches remote resources using an access token query parameter.
type Downloader struct {
	client  *http.Client
	policy  retry.Policy
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) { d.client = c }
}

// WithPolicy overrides the retry policy.
func WithPolicy(p retry.Policy) Option {
	return func(d *Downloader) { d.policy = p }
}

// WithMetrics records attempt outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Downloader) { d.metrics = m }
}

// New creates a Downloader with three attempts and 1s/2s/4s backoff.
func New(logger *slog.Logger, opts ...Option) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Downloader{
		client: &http.Client{Timeout: 60 * time.Second},
		policy: retry.Policy{
			MaxAttempts: 3,
			Delay:       retry.Exponential(time.Second),
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetch downloads rawURL with accessToken appended as the access_token query parameter.
func (d *Downloader) Fetch(ctx context.Context, rawURL, accessToken string) ([]byte, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, ErrMissingToken
	}

	target, err := withToken(rawURL, accessToken)
	if err != nil {
		return nil, err
	}

	policy := d.policy
	policy.OnRetry = func(attempt int, err error) {
		d.logger.Warn("download attempt failed", "attempt", attempt, "max_attempts", policy.MaxAttempts, "error", err)
	}

	return retry.Do(ctx, policy, func(ctx context.Context, attempt int) ([]byte, error) {
		body, err := d.fetchOnce(ctx, target)
		if err != nil {
			d.metrics.DownloadAttempt(attemptStatus(err))
			return nil, err
		}
		d.metrics.DownloadAttempt("ok")
		return body, nil
	})
}

func (d *Downloader) fetchOnce(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("building request: %w", err))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if isHTMLContentType(resp.Header.Get("Content-Type")) {
		return nil, ErrHTMLResponse
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if looksLikeHTML(body) {
		return nil, ErrHTMLResponse
	}
	return body, nil
}

func withToken(rawURL, token string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing download url: %w", err)
	}
	q := u.Query()
	q.Set("access_token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func isHTMLContentType(ct string) bool {
	if ct == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.Contains(strings.ToLower(ct), "text/html")
	}
	return mediaType == "text/html"
}

func looksLikeHTML(body []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(body[:min(len(body), 512)]))
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

func attemptStatus(err error) string {
	switch {
	case errors.Is(err, ErrHTMLResponse):
		return "html"
	case errors.Is(err, ErrUnexpectedStatus):
		return "bad_status"
	default:
		return "error"
	}
}
