package audit

import "time"

// Event is an immutable, append-only activity record.
//
// Invariants:
// - Events are never updated or deleted.
// - family_file_id is required for tenancy isolation.
// - Logging is best-effort; session and chat flows never block on it.
//
// These records back the parent-facing activity view: parents see when
// sessions happened, who called whom, and when chat moderation intervened.
type Event struct {
	ID           string `json:"id" db:"id"`
	FamilyFileID string `json:"family_file_id" db:"family_file_id"`

	// Type indicates the business category of the record.
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated user causing the event (if applicable).
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	// Target identifiers (optional, depending on the event type).
	SessionID string `json:"session_id,omitempty" db:"session_id"`
	MessageID string `json:"message_id,omitempty" db:"message_id"`
	ContactID string `json:"contact_id,omitempty" db:"contact_id"`
	ChildID   string `json:"child_id,omitempty" db:"child_id"`

	// Message is a short human-readable description.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeSessionCreated    EventType = "session_created"
	EventTypeSessionEnded      EventType = "session_ended"
	EventTypeCallRejected      EventType = "call_rejected"
	EventTypeMessageFlagged    EventType = "message_flagged"
	EventTypeModerationSkipped EventType = "moderation_skipped"
	EventTypePermissionChanged EventType = "permission_changed"
)
