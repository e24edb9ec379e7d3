package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for activity events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.
type Repository interface {
	Append(ctx context.Context, e Event) error
	ListByFamily(ctx context.Context, familyFileID string, limit int) ([]Event, error)
}

// Service records family activity.
//
// Callers treat logging as best-effort: a failed append is logged and
// swallowed, never propagated into call or chat flows.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		return nil
	}
	if e.FamilyFileID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// ListByFamily returns recent activity for the parent-facing view.
func (s *Service) ListByFamily(ctx context.Context, familyFileID string, limit int) ([]Event, error) {
	if s == nil || s.repo == nil {
		return nil, nil
	}
	if familyFileID == "" {
		return nil, ErrInvalidEvent
	}
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListByFamily(ctx, familyFileID, limit)
}

// LogSession records a session lifecycle event.
func (s *Service) LogSession(ctx context.Context, typ EventType, familyFileID, actorUserID, actorRole, sessionID, message string) error {
	return s.Append(ctx, Event{
		FamilyFileID: familyFileID,
		Type:         typ,
		ActorUserID:  actorUserID,
		ActorRole:    actorRole,
		SessionID:    sessionID,
		Message:      message,
	})
}

// LogModeration records a moderation intervention on a chat message.
func (s *Service) LogModeration(ctx context.Context, typ EventType, familyFileID, senderID, sessionID, messageID string) error {
	return s.Append(ctx, Event{
		FamilyFileID: familyFileID,
		Type:         typ,
		ActorUserID:  senderID,
		SessionID:    sessionID,
		MessageID:    messageID,
		Message:      string(typ),
	})
}
