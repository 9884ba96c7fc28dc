package zoom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrNotConfigured is returned when server-to-server OAuth credentials are missing.
var ErrNotConfigured = errors.New("zoom api credentials not configured")

// ClientConfig holds server-to-server OAuth credentials.
type ClientConfig struct {
	AccountID    string
	ClientID     string
	ClientSecret string
	APIBaseURL   string
	TokenURL     string
}

func (c ClientConfig) configured() bool {
	return c.AccountID != "" && c.ClientID != "" && c.ClientSecret != ""
}

// Client calls the Zoom REST API.
type Client struct {
	http       *http.Client
	baseURL    string
	configured bool
	logger     *slog.Logger
}

const requestTimeout = 30 * time.Second

// NewClient builds a Client that obtains tokens with the account_credentials grant.
// Token fetches are not tied to any caller's context, so runs that outlive a
// shutdown signal can still authenticate.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := strings.TrimRight(cfg.APIBaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.zoom.us/v2"
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = "https://zoom.us/oauth/token"
	}

	c := &Client{baseURL: baseURL, configured: cfg.configured(), logger: logger}
	if !c.configured {
		return c
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
		EndpointParams: url.Values{
			"grant_type": {"account_credentials"},
			"account_id": {cfg.AccountID},
		},
	}
	base := &http.Client{Timeout: requestTimeout}
	c.http = cc.Client(context.WithValue(context.Background(), oauth2.HTTPClient, base))
	return c
}

type participantsPage struct {
	NextPageToken string `json:"next_page_token"`
	Participants  []struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		UserEmail string `json:"user_email"`
	} `json:"participants"`
}

// Participants returns the distinct, lower-cased emails of the people who
// attended a past meeting instance.
func (c *Client) Participants(ctx context.Context, meetingUUID string) ([]string, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}

	seen := make(map[string]struct{})
	emails := []string{}
	pageToken := ""
	for {
		q := url.Values{}
		q.Set("page_size", "300")
		if pageToken != "" {
			q.Set("next_page_token", pageToken)
		}
		endpoint := c.baseURL + "/past_meetings/" + encodeUUID(meetingUUID) + "/participants?" + q.Encode()

		page, err := c.fetchParticipants(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		for _, p := range page.Participants {
			email := strings.ToLower(strings.TrimSpace(p.UserEmail))
			if email == "" {
				continue
			}
			if _, ok := seen[email]; ok {
				continue
			}
			seen[email] = struct{}{}
			emails = append(emails, email)
		}
		if page.NextPageToken == "" {
			return emails, nil
		}
		pageToken = page.NextPageToken
	}
}

func (c *Client) fetchParticipants(ctx context.Context, endpoint string) (*participantsPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build participants request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request participants: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("participants status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var page participantsPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode participants: %w", err)
	}
	return &page, nil
}

// encodeUUID applies Zoom's rule that instance UUIDs beginning with "/" or
// containing "//" must be URL-encoded twice.
func encodeUUID(uuid string) string {
	if strings.HasPrefix(uuid, "/") || strings.Contains(uuid, "//") {
		return url.PathEscape(url.PathEscape(uuid))
	}
	return url.PathEscape(uuid)
}
