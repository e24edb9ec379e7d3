package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"kidcoms-platform/internal/audit"

	"github.com/google/uuid"
)

// Repository is the persistence contract for messages. Append-only: no
// update or delete methods exist by design.
type Repository interface {
	Append(ctx context.Context, m Message) error
	ListBySession(ctx context.Context, sessionID string) ([]Message, error)
}

var ErrInvalidMessage = errors.New("invalid message")

// Service is the moderated chat overlay for live sessions.
//
// Send policy: every outgoing message passes through the moderation
// collaborator. If the collaborator flags it, the stored content is the
// rewritten form and the original is preserved alongside. If the
// collaborator times out or fails, the message is delivered unmoderated and
// marked — never dropped, never blocked.
type Service struct {
	repo      Repository
	moderator Moderator
	log       *audit.Service

	// familyResolver maps a session to its family file for audit scoping.
	familyResolver func(ctx context.Context, sessionID string) (string, error)

	clock func() time.Time
}

func NewService(repo Repository, moderator Moderator, log *audit.Service, familyResolver func(ctx context.Context, sessionID string) (string, error)) *Service {
	return &Service{
		repo:           repo,
		moderator:      moderator,
		log:            log,
		familyResolver: familyResolver,
		clock:          time.Now,
	}
}

// Send reviews, stores and returns the message.
func (s *Service) Send(ctx context.Context, sessionID, senderID, text string) (Message, error) {
	if sessionID == "" || senderID == "" || text == "" {
		return Message{}, ErrInvalidMessage
	}

	now := s.clock().UTC()
	m := Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		SenderID:  senderID,
		Content:   text,
		SentAt:    now,
	}

	verdict, err := s.moderator.Review(ctx, text)
	switch {
	case err != nil:
		// Bounded fallback: deliver unmoderated and mark it. A down
		// moderation service must not silence children's chat.
		m.ModerationSkipped = true
		slog.Warn("moderation unavailable, delivering unreviewed",
			"session_id", sessionID, "timeout", errors.Is(err, ErrModerationTimeout), "err", err)
	case verdict.Flagged:
		m.ModerationFlagged = true
		if verdict.Rewritten != "" && verdict.Rewritten != text {
			m.OriginalContent = text
			m.Content = verdict.Rewritten
		}
	}

	if err := s.repo.Append(ctx, m); err != nil {
		return Message{}, err
	}

	s.logModeration(ctx, m)
	return m, nil
}

// List returns the session's messages in sent order.
func (s *Service) List(ctx context.Context, sessionID string) ([]Message, error) {
	if sessionID == "" {
		return nil, ErrInvalidMessage
	}
	return s.repo.ListBySession(ctx, sessionID)
}

func (s *Service) logModeration(ctx context.Context, m Message) {
	if !m.ModerationFlagged && !m.ModerationSkipped {
		return
	}
	typ := audit.EventTypeMessageFlagged
	if m.ModerationSkipped {
		typ = audit.EventTypeModerationSkipped
	}

	familyFileID := ""
	if s.familyResolver != nil {
		id, err := s.familyResolver(ctx, m.SessionID)
		if err != nil {
			slog.Warn("family resolve failed for audit", "session_id", m.SessionID, "err", err)
			return
		}
		familyFileID = id
	}
	if familyFileID == "" {
		return
	}
	if err := s.log.LogModeration(ctx, typ, familyFileID, m.SenderID, m.SessionID, m.ID); err != nil {
		slog.Warn("audit append failed", "message_id", m.ID, "err", err)
	}
}
