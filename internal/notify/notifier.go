// Package notify delivers meeting summaries to hosts over Slack.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/claritycopilot/transcripts/internal/observability"
	"github.com/slack-go/slack"
)

var (
	// ErrNotConfigured is returned when no Slack client is available.
	ErrNotConfigured = errors.New("slack notifier not configured")
	// ErrNotAllowed is returned when the host is outside the rollout allow-list.
	ErrNotAllowed = errors.New("host not in notification allow-list")
)

// SlackAPI is the subset of *slack.Client the notifier uses.
type SlackAPI interface {
	GetUserByEmailContext(ctx context.Context, email string) (*slack.User, error)
	OpenConversationContext(ctx context.Context, params *slack.OpenConversationParameters) (*slack.Channel, bool, bool, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	PostEphemeralContext(ctx context.Context, channelID, userID string, options ...slack.MsgOption) (string, error)
}

// Notification is what the host is told about a stored record.
type Notification struct {
	RecordID       string
	ViewSecret     string
	HostEmail      string
	Topic          string
	RecordingStart time.Time
	RecordingEnd   time.Time
	Summary        string
}

// Config controls link building and rollout gating.
type Config struct {
	PublicURL string
	// AllowList limits notifications to these host emails. Empty means everyone.
	AllowList []string
}

// Notifier sends summary DMs and interaction replies.
type Notifier struct {
	api     SlackAPI
	cfg     Config
	allow   map[string]struct{}
	cache   UserCache
	metrics *observability.Metrics
	logger  *slog.Logger
}

// New creates a Notifier. api may be nil, in which case every send fails
// with ErrNotConfigured. cache may be nil.
func New(api SlackAPI, cfg Config, cache UserCache, metrics *observability.Metrics, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	allow := make(map[string]struct{}, len(cfg.AllowList))
	for _, email := range cfg.AllowList {
		if email = normalizeEmail(email); email != "" {
			allow[email] = struct{}{}
		}
	}
	return &Notifier{api: api, cfg: cfg, allow: allow, cache: cache, metrics: metrics, logger: logger}
}

// Allowed reports whether hostEmail passes the rollout allow-list.
func (n *Notifier) Allowed(hostEmail string) bool {
	if len(n.allow) == 0 {
		return true
	}
	_, ok := n.allow[normalizeEmail(hostEmail)]
	return ok
}

// Notify DMs the host a summary with a delete control. Failures are
// returned for logging; the stored record is unaffected either way.
func (n *Notifier) Notify(ctx context.Context, note Notification) error {
	if !n.Allowed(note.HostEmail) {
		n.metrics.Notification("skipped")
		return ErrNotAllowed
	}
	if n.api == nil {
		n.metrics.Notification("failed")
		return ErrNotConfigured
	}
	if strings.TrimSpace(note.HostEmail) == "" {
		n.metrics.Notification("failed")
		return fmt.Errorf("host email missing for record %s", note.RecordID)
	}

	err := n.send(ctx, note)
	if err != nil {
		n.metrics.Notification("failed")
		return err
	}
	n.metrics.Notification("sent")
	return nil
}

func (n *Notifier) send(ctx context.Context, note Notification) error {
	userID, err := n.resolveUser(ctx, note.HostEmail)
	if err != nil {
		return err
	}

	channel, _, _, err := n.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{Users: []string{userID}})
	if err != nil {
		return fmt.Errorf("open dm: %w", err)
	}

	var link string
	if n.cfg.PublicURL != "" {
		link = ViewURL(n.cfg.PublicURL, note.RecordID, note.ViewSecret)
	}
	_, _, err = n.api.PostMessageContext(ctx, channel.ID,
		slack.MsgOptionText(fallbackText(note), false),
		slack.MsgOptionBlocks(buildSummaryBlocks(note, link)...),
	)
	if err != nil {
		return fmt.Errorf("post summary: %w", err)
	}

	n.logger.Info("summary sent", "record_id", note.RecordID, "slack_user", userID)
	return nil
}

func (n *Notifier) resolveUser(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if n.cache != nil {
		id, ok, err := n.cache.Get(ctx, email)
		if err != nil {
			n.logger.Warn("slack user cache read failed", "error", err)
		} else if ok {
			return id, nil
		}
	}

	user, err := n.api.GetUserByEmailContext(ctx, email)
	if err != nil {
		return "", fmt.Errorf("lookup slack user: %w", err)
	}

	if n.cache != nil {
		if err := n.cache.Set(ctx, email, user.ID); err != nil {
			n.logger.Warn("slack user cache write failed", "error", err)
		}
	}
	return user.ID, nil
}

// ConfirmDeleted posts a visible confirmation to the channel the action came from.
func (n *Notifier) ConfirmDeleted(ctx context.Context, channelID, userID, topic string) error {
	if n.api == nil {
		return ErrNotConfigured
	}
	text := fmt.Sprintf(":wastebasket: <@%s> deleted the summary for *%s*.", userID, displayTopic(topic))
	if _, _, err := n.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("post delete confirmation: %w", err)
	}
	return nil
}

// ReportFailure tells only the acting user that their action failed.
func (n *Notifier) ReportFailure(ctx context.Context, channelID, userID, text string) error {
	if n.api == nil {
		return ErrNotConfigured
	}
	if _, err := n.api.PostEphemeralContext(ctx, channelID, userID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("post ephemeral: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
