package transport

import (
	"context"
	"errors"
	"time"
)

// RoomProvider defines the provider-agnostic interface used by business logic.
//
// Rules:
// - No provider SDK/API calls outside transport adapters.
// - Keep request/response types provider-agnostic.
// - All media concerns (codecs, NAT traversal, quality) belong to the
//   external provider; this layer only handles rooms and join credentials.
type RoomProvider interface {
	Name() string
	HealthCheck(ctx context.Context) error

	CreateRoom(ctx context.Context, req CreateRoomRequest) (Room, error)
	MintToken(ctx context.Context, req TokenRequest) (MeetingToken, error)
	ReleaseRoom(ctx context.Context, roomName string) error
}

// ErrTransport marks media-provider failures. Joins abort on it; the caller
// may retry. Wrap with %w so callers can errors.Is against it.
var ErrTransport = errors.New("transport error")

type CreateRoomRequest struct {
	// SessionID is our internal session identifier; providers echo it back
	// in room metadata so rooms can be traced to sessions.
	SessionID string `json:"session_id"`

	// SessionType selects provider room features (video on/off etc).
	SessionType string `json:"session_type"`

	// MaxParticipants caps the room; supervised sessions are small.
	MaxParticipants int `json:"max_participants,omitempty"`
}

// Room is an opaque handle to a provider room. URL is what clients join.
type Room struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

type TokenRequest struct {
	RoomName    string        `json:"room_name"`
	UserID      string        `json:"user_id"`
	DisplayName string        `json:"display_name"`
	TTL         time.Duration `json:"-"`
}

// MeetingToken is the short-lived credential required to join a room.
type MeetingToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
