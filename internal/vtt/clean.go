// Package vtt turns WebVTT meeting transcripts into speaker-attributed text.
package vtt

import (
	"regexp"
	"strings"
)

var (
	sequenceLine  = regexp.MustCompile(`^\d+$`)
	timestampLine = regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?([.,]\d{1,3})?`)
	speakerLine   = regexp.MustCompile(`^([^:]+?):\s*(\S.*)$`)
	turnPrefix    = regexp.MustCompile(`^([^:]+?):\s`)
)

// Clean converts raw WebVTT into one "Speaker: utterance" line per speaker turn.
// Consecutive cues from the same speaker are merged with a single space.
// Lines without a "speaker: text" shape are dropped.
func Clean(raw string) string {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	var (
		turns   []string
		speaker string
		text    []string
	)
	flush := func() {
		if speaker != "" && len(text) > 0 {
			turns = append(turns, speaker+": "+strings.Join(text, " "))
		}
		speaker, text = "", nil
	}

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if i == 0 && strings.HasPrefix(line, "WEBVTT") {
			continue
		}
		if line == "" || sequenceLine.MatchString(line) || timestampLine.MatchString(line) {
			continue
		}

		m := speakerLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name, utterance := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		if name != speaker {
			flush()
			speaker = name
		}
		text = append(text, utterance)
	}
	flush()

	return strings.Join(turns, "\n")
}

// ExtractSpeakers returns the distinct speaker names of a cleaned transcript
// in order of first appearance.
func ExtractSpeakers(cleaned string) []string {
	seen := make(map[string]struct{})
	speakers := []string{}
	for _, line := range strings.Split(cleaned, "\n") {
		m := turnPrefix.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		speakers = append(speakers, name)
	}
	return speakers
}
