package sessions

import "time"

// Session represents one scheduled or live communication inside a family
// file: a monitored video/voice call or a shared activity.
//
// Lifecycle invariant: status transitions are monotonic.
//
//	waiting → active → completed
//	waiting → cancelled
//
// Terminal states absorb every further transition; a session never re-enters
// waiting. Termination is idempotent: the second End is a no-op success.
type Session struct {
	ID           string `json:"id" db:"id"`
	FamilyFileID string `json:"family_file_id" db:"family_file_id"`

	Type   SessionType   `json:"type" db:"type"`
	Status SessionStatus `json:"status" db:"status"`

	Title       string `json:"title" db:"title"`
	InitiatorID string `json:"initiator_id" db:"initiator_id"`

	// StartedAt is set when the session first goes active.
	StartedAt *time.Time `json:"started_at,omitempty" db:"started_at"`

	Participants []Participant `json:"participants"`

	// Room fields are provider handles, created lazily on first join.
	RoomName string `json:"-" db:"room_name"`
	RoomURL  string `json:"room_url,omitempty" db:"room_url"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type SessionType string

const (
	SessionTypeVideoCall  SessionType = "video_call"
	SessionTypeVoiceCall  SessionType = "voice_call"
	SessionTypeTheater    SessionType = "theater"
	SessionTypeArcade     SessionType = "arcade"
	SessionTypeWhiteboard SessionType = "whiteboard"
)

func IsValidSessionType(t SessionType) bool {
	switch t {
	case SessionTypeVideoCall, SessionTypeVoiceCall, SessionTypeTheater, SessionTypeArcade, SessionTypeWhiteboard:
		return true
	default:
		return false
	}
}

type SessionStatus string

const (
	SessionStatusWaiting   SessionStatus = "waiting"
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// IsTerminal reports whether the status absorbs all transitions.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusCancelled
}

// canTransition is the single source of truth for the lifecycle machine.
func canTransition(from, to SessionStatus) bool {
	switch from {
	case SessionStatusWaiting:
		return to == SessionStatusActive || to == SessionStatusCancelled || to == SessionStatusCompleted
	case SessionStatusActive:
		return to == SessionStatusCompleted
	default:
		return false
	}
}

// Participant is one endpoint of a session. JoinedAt stays nil until the
// transport confirms the join.
type Participant struct {
	ID          string     `json:"id" db:"participant_id"`
	DisplayName string     `json:"display_name" db:"display_name"`
	Role        string     `json:"role" db:"role"`
	JoinedAt    *time.Time `json:"joined_at,omitempty" db:"joined_at"`
}

// IncomingCall is an ephemeral projection, not persisted session state. It
// exists only while a session is waiting with an invited-but-not-yet-joined
// counterpart, and vanishes from polls once the session resolves or the
// invitation times out.
type IncomingCall struct {
	SessionID        string      `json:"session_id"`
	CallerName       string      `json:"caller_name"`
	SessionType      SessionType `json:"session_type"`
	StartedRingingAt time.Time   `json:"started_ringing_at"`
}

// JoinGrant is what a joining endpoint needs to reach the media provider.
type JoinGrant struct {
	Token   string `json:"token"`
	RoomURL string `json:"room_url"`
}
