package analysis

import "strings"

// bypassPhrases trigger canned output without a model call so the whole
// pipeline can be exercised in production with a scripted meeting.
// TODO: replace content scanning with a test-mode flag set by the webhook caller.
var bypassPhrases = []string{
	"clarity copilot test",
	"clarity copilot e2e",
}

// HasBypassPhrase reports whether text contains any bypass phrase, ignoring case.
func HasBypassPhrase(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range bypassPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

var bypassSummary = SummaryResult{
	Summary: "**Topic:** Clarity Copilot pipeline test\n\n" +
		"**Overview**\nThis is an automated end-to-end test of the transcript pipeline.\n\n" +
		"**Key Takeaways**\n- The webhook, download, analysis, storage and notification steps ran.\n\n" +
		"**Next Steps**\n- Delete this summary using the button below.",
	IsRelevant: true,
	Reasoning:  "Bypass phrase detected; returning canned test result.",
}

var bypassMetadata = Metadata{
	MeetingType:                    MeetingInternal,
	IdentifiedExternalParticipants: []string{},
	Projects:                       []string{"Clarity Copilot"},
	Clients:                        []string{},
}
