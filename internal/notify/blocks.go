package notify

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

// DeleteActionID identifies the delete button in interaction payloads.
const DeleteActionID = "delete_summary"

const (
	summarySnippetLimit = 2800
	headerLimit         = 150
)

// ViewURL builds the capability link for a record.
func ViewURL(publicURL, id, secret string) string {
	q := url.Values{}
	q.Set("id", id)
	q.Set("secret", secret)
	return strings.TrimRight(publicURL, "/") + "/view?" + q.Encode()
}

func fallbackText(n Notification) string {
	return "Meeting summary: " + displayTopic(n.Topic)
}

func buildSummaryBlocks(n Notification, viewURL string) []slack.Block {
	header := slack.NewHeaderBlock(
		slack.NewTextBlockObject(slack.PlainTextType, truncate("Meeting summary: "+displayTopic(n.Topic), headerLimit), false, false),
	)
	window := slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType, formatWindow(n.RecordingStart, n.RecordingEnd), false, false),
	)

	body := toMrkdwn(n.Summary)
	if body == "" {
		body = "_No summary text._"
	}
	snippet := truncate(body, summarySnippetLimit)
	summary := slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, snippet, false, false), nil, nil)

	blocks := []slack.Block{header, window, summary}

	if viewURL != "" {
		link := fmt.Sprintf("<%s|View the full summary>", viewURL)
		if snippet != body {
			link = "Summary truncated. " + link
		}
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, link, false, false), nil, nil))
	}

	confirm := slack.NewConfirmationBlockObject(
		slack.NewTextBlockObject(slack.PlainTextType, "Delete summary?", false, false),
		slack.NewTextBlockObject(slack.MarkdownType, "This permanently deletes the stored summary and transcript for *"+displayTopic(n.Topic)+"*.", false, false),
		slack.NewTextBlockObject(slack.PlainTextType, "Delete", false, false),
		slack.NewTextBlockObject(slack.PlainTextType, "Cancel", false, false),
	)
	button := slack.NewButtonBlockElement(DeleteActionID, n.RecordID,
		slack.NewTextBlockObject(slack.PlainTextType, "Delete", false, false))
	button.Style = slack.StyleDanger
	button.Confirm = confirm

	return append(blocks, slack.NewActionBlock("summary_actions", button))
}

func displayTopic(topic string) string {
	if strings.TrimSpace(topic) == "" {
		return "Untitled meeting"
	}
	return strings.TrimSpace(topic)
}

func formatWindow(start, end time.Time) string {
	if start.IsZero() {
		return "Recording time unknown"
	}
	s := start.UTC().Format("Mon Jan 2 2006, 15:04")
	if end.IsZero() {
		return s + " UTC"
	}
	return s + " to " + end.UTC().Format("15:04") + " UTC"
}

// toMrkdwn converts the summary's **bold** markers to Slack's *bold*.
func toMrkdwn(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "**", "*"))
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
