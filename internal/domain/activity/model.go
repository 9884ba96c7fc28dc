package activity

import "time"

// Type names a record lifecycle event.
type Type string

const (
	TypeStored         Type = "stored"
	TypeNotified       Type = "notified"
	TypeNotifySkipped  Type = "notify_skipped"
	TypeNotifyFailed   Type = "notify_failed"
	TypeDeleted        Type = "deleted"
	TypeDeleteRejected Type = "delete_rejected"
)

// Valid reports whether t is a known event type.
func (t Type) Valid() bool {
	switch t {
	case TypeStored, TypeNotified, TypeNotifySkipped, TypeNotifyFailed, TypeDeleted, TypeDeleteRejected:
		return true
	}
	return false
}

// Entry is one audit event. Entries outlive the record they name and never
// carry transcript content, summaries or view secrets.
type Entry struct {
	ID        int64     `json:"id"`
	RecordID  string    `json:"record_id"`
	Type      Type      `json:"type"`
	Actor     string    `json:"actor,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
