package analysis

import (
	"fmt"
	"strings"
)

const summarySystemPrompt = `You review meeting transcripts for a company knowledge base.

First decide whether the meeting is business relevant. Relevant meetings discuss
client work, projects, delivery, sales, planning or technical decisions.
Irrelevant meetings are purely personal conversations, HR or performance
matters, social chat, or test calls with no substantive content.

If the meeting is relevant, write a structured summary with a short topic, an
overview paragraph, key takeaways, next steps (with owners where stated) and
potential gaps or open questions. If it is not relevant, set summary to null
and explain the decision in reasoning.`

const metadataSystemPrompt = `You classify meetings for a company knowledge base.

Use the reference roster to decide whether each participant is internal staff.
A meeting is "internal" when every participant is internal staff, "external"
when any participant is from outside the company, and "unknown" when the
transcript does not allow a decision. List only external participants, the
projects discussed, and the client organizations involved. Prefer names from
the roster when they match; do not invent names that are not in the inputs.`

const transcriptPrefixLimit = 5000

func summaryPrompt(transcript string) string {
	if strings.TrimSpace(transcript) == "" {
		transcript = "(the transcript is empty)"
	}
	return "Transcript:\n\n" + transcript
}

func metadataPrompt(roster Roster, summary, transcript string, speakers []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Known internal staff: %s\n", strings.Join(roster.InternalStaff, ", "))
	fmt.Fprintf(&b, "Known clients: %s\n\n", strings.Join(roster.Clients, ", "))
	fmt.Fprintf(&b, "Speakers found in the transcript: %s\n\n", strings.Join(speakers, ", "))
	fmt.Fprintf(&b, "Summary:\n%s\n\n", summary)
	fmt.Fprintf(&b, "Transcript (beginning):\n%s", truncateRunes(transcript, transcriptPrefixLimit))
	return b.String()
}

func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func stringArray(description string) map[string]any {
	return map[string]any{
		"type":        "array",
		"description": description,
		"items":       map[string]any{"type": "string"},
	}
}

var summarySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"isRelevant": map[string]any{
			"type":        "boolean",
			"description": "Whether the meeting belongs in the knowledge base",
		},
		"reasoning": map[string]any{
			"type":        "string",
			"description": "Why the meeting is or is not relevant",
		},
		"summary": map[string]any{
			"anyOf": []any{
				map[string]any{
					"type": "object",
					"properties": map[string]any{
						"topic":         map[string]any{"type": "string"},
						"overview":      map[string]any{"type": "string"},
						"takeaways":     stringArray("Key takeaways"),
						"nextSteps":     stringArray("Next steps with owners where stated"),
						"potentialGaps": stringArray("Open questions or missing information"),
					},
					"required":             []string{"topic", "overview", "takeaways", "nextSteps", "potentialGaps"},
					"additionalProperties": false,
				},
				map[string]any{"type": "null"},
			},
		},
	},
	"required":             []string{"isRelevant", "reasoning", "summary"},
	"additionalProperties": false,
}

var metadataSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"meetingType": map[string]any{
			"type": "string",
			"enum": []string{string(MeetingInternal), string(MeetingExternal), string(MeetingUnknown)},
		},
		"identifiedExternalParticipants": stringArray("Participants who are not internal staff"),
		"projects":                       stringArray("Projects discussed"),
		"clients":                        stringArray("Client organizations involved"),
	},
	"required":             []string{"meetingType", "identifiedExternalParticipants", "projects", "clients"},
	"additionalProperties": false,
}
