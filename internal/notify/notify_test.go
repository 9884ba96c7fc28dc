package notify

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSlack struct {
	mock.Mock
}

func (m *mockSlack) GetUserByEmailContext(ctx context.Context, email string) (*slack.User, error) {
	args := m.Called(ctx, email)
	if u, ok := args.Get(0).(*slack.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSlack) OpenConversationContext(ctx context.Context, params *slack.OpenConversationParameters) (*slack.Channel, bool, bool, error) {
	args := m.Called(ctx, params)
	if ch, ok := args.Get(0).(*slack.Channel); ok {
		return ch, false, false, args.Error(1)
	}
	return nil, false, false, args.Error(1)
}

func (m *mockSlack) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	args := m.Called(ctx, channelID, options)
	return channelID, "1700000000.000100", args.Error(0)
}

func (m *mockSlack) PostEphemeralContext(ctx context.Context, channelID, userID string, options ...slack.MsgOption) (string, error) {
	args := m.Called(ctx, channelID, userID, options)
	return "1700000000.000200", args.Error(0)
}

type memCache struct {
	ids  map[string]string
	gets int
}

func (c *memCache) Get(_ context.Context, email string) (string, bool, error) {
	c.gets++
	id, ok := c.ids[email]
	return id, ok, nil
}

func (c *memCache) Set(_ context.Context, email, userID string) error {
	c.ids[email] = userID
	return nil
}

func dmChannel(id string) *slack.Channel {
	ch := &slack.Channel{}
	ch.ID = id
	return ch
}

func testNotification() Notification {
	start := time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)
	return Notification{
		RecordID:       "rec-1",
		ViewSecret:     "s3cret",
		HostEmail:      "Host@Example.com",
		Topic:          "Weekly sync",
		RecordingStart: start,
		RecordingEnd:   start.Add(30 * time.Minute),
		Summary:        "**Topic:** Weekly sync\n\n**Overview**\nAll good.",
	}
}

func TestNotify_SendsDM(t *testing.T) {
	ctx := context.Background()
	api := &mockSlack{}
	api.On("GetUserByEmailContext", ctx, "host@example.com").Return(&slack.User{ID: "U1"}, nil)
	api.On("OpenConversationContext", ctx, &slack.OpenConversationParameters{Users: []string{"U1"}}).Return(dmChannel("D1"), nil)
	api.On("PostMessageContext", ctx, "D1", mock.Anything).Return(nil)

	cache := &memCache{ids: map[string]string{}}
	n := New(api, Config{PublicURL: "https://copilot.example.com"}, cache, nil, nil)

	require.NoError(t, n.Notify(ctx, testNotification()))
	require.NoError(t, n.Notify(ctx, testNotification()))

	api.AssertNumberOfCalls(t, "GetUserByEmailContext", 1)
	api.AssertNumberOfCalls(t, "PostMessageContext", 2)
	require.Equal(t, "U1", cache.ids["host@example.com"])
}

func TestNotify_UserLookupFails(t *testing.T) {
	ctx := context.Background()
	api := &mockSlack{}
	api.On("GetUserByEmailContext", ctx, "host@example.com").Return(nil, errors.New("users_not_found"))

	n := New(api, Config{}, nil, nil, nil)
	err := n.Notify(ctx, testNotification())
	require.Error(t, err)
	require.Contains(t, err.Error(), "users_not_found")
	api.AssertNotCalled(t, "PostMessageContext", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotify_AllowList(t *testing.T) {
	api := &mockSlack{}
	n := New(api, Config{AllowList: []string{" pilot@example.com "}}, nil, nil, nil)

	require.True(t, n.Allowed("PILOT@example.com"))
	require.False(t, n.Allowed("host@example.com"))
	require.ErrorIs(t, n.Notify(context.Background(), testNotification()), ErrNotAllowed)
	api.AssertNotCalled(t, "GetUserByEmailContext", mock.Anything, mock.Anything)
}

func TestNotify_NotConfigured(t *testing.T) {
	n := New(nil, Config{}, nil, nil, nil)
	require.ErrorIs(t, n.Notify(context.Background(), testNotification()), ErrNotConfigured)
}

func TestConfirmDeletedAndReportFailure(t *testing.T) {
	ctx := context.Background()
	api := &mockSlack{}
	api.On("PostMessageContext", ctx, "C1", mock.Anything).Return(nil)
	api.On("PostEphemeralContext", ctx, "C1", "U1", mock.Anything).Return(nil)

	n := New(api, Config{}, nil, nil, nil)
	require.NoError(t, n.ConfirmDeleted(ctx, "C1", "U1", "Weekly sync"))
	require.NoError(t, n.ReportFailure(ctx, "C1", "U1", "Could not delete"))
	api.AssertExpectations(t)
}

func TestBuildSummaryBlocks(t *testing.T) {
	note := testNotification()
	link := ViewURL("https://copilot.example.com/", note.RecordID, note.ViewSecret)
	require.Equal(t, "https://copilot.example.com/view?id=rec-1&secret=s3cret", link)

	blocks := buildSummaryBlocks(note, link)
	require.Len(t, blocks, 5)

	section := blocks[2].(*slack.SectionBlock)
	require.Contains(t, section.Text.Text, "*Topic:* Weekly sync")
	require.NotContains(t, section.Text.Text, "**")

	linkSection := blocks[3].(*slack.SectionBlock)
	require.Contains(t, linkSection.Text.Text, link)

	actions := blocks[4].(*slack.ActionBlock)
	button := actions.Elements.ElementSet[0].(*slack.ButtonBlockElement)
	require.Equal(t, DeleteActionID, button.ActionID)
	require.Equal(t, "rec-1", button.Value)
	require.Equal(t, slack.StyleDanger, button.Style)
	require.NotNil(t, button.Confirm, "delete must ask for confirmation")
}

func TestBuildSummaryBlocks_TruncatesLongSummary(t *testing.T) {
	note := testNotification()
	note.Summary = strings.Repeat("word ", 2000)

	blocks := buildSummaryBlocks(note, "https://x/view?id=1&secret=2")
	section := blocks[2].(*slack.SectionBlock)
	require.LessOrEqual(t, len([]rune(section.Text.Text)), summarySnippetLimit)
	require.Contains(t, blocks[3].(*slack.SectionBlock).Text.Text, "truncated")
}

func TestBuildSummaryBlocks_NoPublicURL(t *testing.T) {
	blocks := buildSummaryBlocks(testNotification(), "")
	require.Len(t, blocks, 4)
	_, ok := blocks[3].(*slack.ActionBlock)
	require.True(t, ok)
}

func TestRedisUserCache(t *testing.T) {
	url := os.Getenv("COPILOT_TEST_REDIS_URL")
	if url == "" {
		t.Skip("COPILOT_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	rdb, err := DialRedis(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	cache := NewRedisUserCache(rdb, time.Minute)
	email := "cache-test-" + time.Now().Format("150405.000000") + "@example.com"

	_, ok, err := cache.Get(ctx, email)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.Set(ctx, email, "U42"))
	id, ok, err := cache.Get(ctx, strings.ToUpper(email))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "U42", id)

	ttl, err := rdb.TTL(ctx, cacheKey(email)).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))
}
