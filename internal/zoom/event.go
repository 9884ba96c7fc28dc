// Package zoom models Zoom webhook payloads and calls the Zoom REST API.
package zoom

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Webhook event names.
const (
	EventURLValidation       = "endpoint.url_validation"
	EventTranscriptCompleted = "recording.transcript_completed"
)

// Event is the webhook envelope.
type Event struct {
	Event         string          `json:"event"`
	EventTS       int64           `json:"event_ts"`
	Payload       json.RawMessage `json:"payload"`
	DownloadToken string          `json:"download_token,omitempty"`
}

// ValidationPayload carries the URL validation challenge.
type ValidationPayload struct {
	PlainToken string `json:"plainToken"`
}

// RecordingPayload is the payload of recording.* events.
type RecordingPayload struct {
	AccountID string          `json:"account_id"`
	Object    RecordingObject `json:"object"`
}

// RecordingObject describes the meeting instance a recording belongs to.
type RecordingObject struct {
	ID             FlexibleID      `json:"id"`
	UUID           string          `json:"uuid"`
	HostID         string          `json:"host_id"`
	HostEmail      string          `json:"host_email"`
	AccountID      string          `json:"account_id"`
	Topic          string          `json:"topic"`
	StartTime      Time            `json:"start_time"`
	Duration       int             `json:"duration"`
	RecordingFiles []RecordingFile `json:"recording_files"`
}

// RecordingFile is one file produced for a recording.
type RecordingFile struct {
	ID             string `json:"id"`
	MeetingID      string `json:"meeting_id"`
	RecordingStart Time   `json:"recording_start"`
	RecordingEnd   Time   `json:"recording_end"`
	FileType       string `json:"file_type"`
	FileExtension  string `json:"file_extension"`
	RecordingType  string `json:"recording_type"`
	DownloadURL    string `json:"download_url"`
	Status         string `json:"status"`
}

// IsTranscript reports whether the file is a VTT transcript.
func (f RecordingFile) IsTranscript() bool {
	return strings.EqualFold(f.FileType, "TRANSCRIPT") || strings.EqualFold(f.RecordingType, "audio_transcript")
}

// TranscriptFile returns the first transcript file with a download URL.
func (o RecordingObject) TranscriptFile() (RecordingFile, bool) {
	for _, f := range o.RecordingFiles {
		if f.IsTranscript() && f.DownloadURL != "" {
			return f, true
		}
	}
	return RecordingFile{}, false
}

// Account returns the owning account id, preferring the object's own value.
func (p RecordingPayload) Account() string {
	if p.Object.AccountID != "" {
		return p.Object.AccountID
	}
	return p.AccountID
}

// FlexibleID decodes ids that Zoom sends as either JSON numbers or strings.
// Meeting ids exceed 2^53, so they are kept as decimal strings.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("zoom id: %w", err)
	}
	*id = FlexibleID(n.String())
	return nil
}

func (id FlexibleID) String() string { return string(id) }

// Time decodes Zoom timestamps, treating empty strings as the zero time.
type Time struct {
	time.Time
}

func (t *Time) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("zoom time: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("zoom time: %w", err)
	}
	t.Time = parsed.UTC()
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}
