package transcript

import "time"

// MeetingType classifies who attended a meeting.
type MeetingType string

const (
	MeetingInternal MeetingType = "internal"
	MeetingExternal MeetingType = "external"
	MeetingUnknown  MeetingType = "unknown"
)

// Valid reports whether t is a known meeting type.
func (t MeetingType) Valid() bool {
	switch t {
	case MeetingInternal, MeetingExternal, MeetingUnknown:
		return true
	}
	return false
}

// NaturalKey identifies one recorded segment of one meeting instance.
type NaturalKey struct {
	MeetingID      string    `json:"external_meeting_id"`
	InstanceID     string    `json:"external_meeting_instance_id"`
	RecordingStart time.Time `json:"recording_start"`
	RecordingEnd   time.Time `json:"recording_end"`
}

// MeetingInfo is the descriptive metadata delivered with the webhook.
type MeetingInfo struct {
	Topic           string    `json:"topic"`
	HostEmail       string    `json:"host_email"`
	HostID          string    `json:"host_id"`
	ScheduledStart  time.Time `json:"scheduled_start_time"`
	DurationMinutes int       `json:"duration"`
	AccountID       string    `json:"account_id"`
}

// Content holds the raw VTT and its cleaned form; stored as one blob.
type Content struct {
	Raw     string `json:"raw"`
	Cleaned string `json:"cleaned"`
}

// Record is one processed, relevant meeting recording.
type Record struct {
	ID                        string      `json:"id"`
	Key                       NaturalKey  `json:"key"`
	Meeting                   MeetingInfo `json:"meeting"`
	Content                   Content     `json:"content"`
	Summary                   string      `json:"summary"`
	IsRelevant                bool        `json:"is_relevant"`
	RelevanceReasoning        string      `json:"relevance_reasoning"`
	MeetingType               MeetingType `json:"meeting_type"`
	ExternalParticipants      []string    `json:"external_participants"`
	Projects                  []string    `json:"projects"`
	Clients                   []string    `json:"clients"`
	ExtractedParticipants     []string    `json:"extracted_participants"`
	VerifiedParticipantEmails []string    `json:"verified_participant_emails"`
	ViewSecret                string      `json:"-"`
	CreatedAt                 time.Time   `json:"created_at"`
}

// Ref is a lightweight listing entry. It never carries content or the view secret.
type Ref struct {
	ID             string      `json:"id"`
	Topic          string      `json:"topic"`
	HostEmail      string      `json:"host_email"`
	MeetingType    MeetingType `json:"meeting_type"`
	RecordingStart time.Time   `json:"recording_start"`
	Projects       []string    `json:"projects"`
	Clients        []string    `json:"clients"`
	CreatedAt      time.Time   `json:"created_at"`
}

// SearchResult is a full-text hit.
type SearchResult struct {
	Ref     Ref     `json:"record"`
	Rank    float64 `json:"rank"`
	Snippet string  `json:"snippet,omitempty"`
}
