package sessions

import (
	"context"
	"time"
)

// Repository is the persistence contract for sessions.
//
// Status changes go through CompareAndSetStatus only: the guard makes the
// monotonic lifecycle hold even when two recipients race to accept the same
// ringing call. The loser of the race observes ok=false and surfaces
// ErrNotJoinable instead of corrupting state.
type Repository interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, bool, error)

	// ListByParticipant returns sessions the owner appears in,
	// most-recent-first, capped at limit.
	ListByParticipant(ctx context.Context, ownerID string, limit int) ([]Session, error)

	SetRoom(ctx context.Context, sessionID, roomName, roomURL string, at time.Time) error
	SetParticipantJoined(ctx context.Context, sessionID, participantID string, at time.Time) error

	// CompareAndSetStatus transitions from→to atomically. When to is active
	// it also stamps StartedAt. Returns false without error when the current
	// status is not from.
	CompareAndSetStatus(ctx context.Context, sessionID string, from, to SessionStatus, at time.Time) (bool, error)
}
