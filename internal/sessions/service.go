package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kidcoms-platform/internal/audit"
	"kidcoms-platform/internal/permissions"
	"kidcoms-platform/internal/rbac"
	"kidcoms-platform/internal/transport"

	"github.com/google/uuid"
)

var (
	// ErrValidation marks bad or missing input. Not retried.
	ErrValidation = errors.New("invalid session request")

	// ErrNotFound is returned for unknown session ids.
	ErrNotFound = errors.New("session not found")

	// ErrNotJoinable means the session has already resolved (completed or
	// cancelled), including losing an accept race to another device.
	ErrNotJoinable = errors.New("session not joinable")

	// ErrPermissionDenied wraps a permission denial for call actions. The
	// wrapped message carries the human-readable reason.
	ErrPermissionDenied = errors.New("not permitted")
)

// PermissionChecker gates contact↔child communication. Satisfied by
// *permissions.Service.
type PermissionChecker interface {
	CanCommunicate(ctx context.Context, familyFileID, contactID, childID string, kind permissions.Kind) (permissions.Decision, error)
}

// Actor identifies the endpoint performing a session operation. Built from
// the request identity; services never reach into ambient state for it.
type Actor struct {
	ID          string
	DisplayName string
	Role        string
}

// Invitee is a party invited into a session at creation time.
type Invitee struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// CreateRequest describes a new session.
type CreateRequest struct {
	Type    SessionType `json:"type"`
	Title   string      `json:"title"`
	Invited []Invitee   `json:"invited"`
}

// Service is the authoritative session store: it owns the lifecycle state
// machine, the participant roster, provider room handles and the ring
// registry side effects.
//
// Contract:
// - Permission denial surfaces as ErrPermissionDenied with a reason, only on
//   call-initiation and accept paths; the evaluator itself never errors on
//   denial.
// - End and Cancel are idempotent: terminal states absorb repeats silently.
// - Cross-device accept races resolve through status CAS; losers get
//   ErrNotJoinable.
type Service struct {
	repo  Repository
	ring  RingRegistry
	rooms transport.RoomProvider
	perms PermissionChecker
	log   *audit.Service

	clock func() time.Time
}

func NewService(repo Repository, ring RingRegistry, rooms transport.RoomProvider, perms PermissionChecker, log *audit.Service) *Service {
	return &Service{
		repo:  repo,
		ring:  ring,
		rooms: rooms,
		perms: perms,
		log:   log,
		clock: time.Now,
	}
}

// Create starts a session in waiting status and rings the invited parties.
//
// Exactly one side of the session must be a child: a child calling out, or a
// circle contact calling a child. Contact-initiated calls are gated by the
// pair's permission window and capability flag; the check runs here, not at
// render time, because windows can close between paint and click.
func (s *Service) Create(ctx context.Context, familyFileID string, actor Actor, req CreateRequest) (Session, error) {
	if familyFileID == "" || actor.ID == "" {
		return Session{}, ErrValidation
	}
	if !IsValidSessionType(req.Type) {
		return Session{}, fmt.Errorf("%w: unknown session type %q", ErrValidation, req.Type)
	}
	if len(req.Invited) == 0 {
		return Session{}, fmt.Errorf("%w: at least one invited party required", ErrValidation)
	}

	childID := childContext(actor, req.Invited)
	if childID == "" {
		return Session{}, fmt.Errorf("%w: no child context", ErrValidation)
	}

	// Gate contact↔child pairs. Parent↔child sessions are not governed by
	// circle permissions.
	kind := kindForSessionType(req.Type)
	switch actor.Role {
	case rbac.RoleCircleContact:
		if err := s.checkPair(ctx, familyFileID, actor.ID, childID, kind); err != nil {
			return Session{}, err
		}
	case rbac.RoleChild:
		for _, inv := range req.Invited {
			if inv.Role != rbac.RoleCircleContact {
				continue
			}
			if err := s.checkPair(ctx, familyFileID, inv.ID, actor.ID, kind); err != nil {
				return Session{}, err
			}
		}
	}

	now := s.clock().UTC()
	sess := Session{
		ID:           uuid.NewString(),
		FamilyFileID: familyFileID,
		Type:         req.Type,
		Status:       SessionStatusWaiting,
		Title:        req.Title,
		InitiatorID:  actor.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	sess.Participants = append(sess.Participants, Participant{
		ID:          actor.ID,
		DisplayName: actor.DisplayName,
		Role:        actor.Role,
	})
	for _, inv := range req.Invited {
		role := inv.Role
		if role == "" {
			role = rbac.RoleCircleContact
		}
		sess.Participants = append(sess.Participants, Participant{
			ID:          inv.ID,
			DisplayName: inv.DisplayName,
			Role:        role,
		})
	}

	if err := s.repo.Create(ctx, sess); err != nil {
		return Session{}, err
	}

	// Ring every invited party. Entries age out on their own; an unanswered
	// invitation needs no sweeper.
	call := IncomingCall{
		SessionID:        sess.ID,
		CallerName:       actor.DisplayName,
		SessionType:      sess.Type,
		StartedRingingAt: now,
	}
	for _, inv := range req.Invited {
		if err := s.ring.Ring(ctx, inv.ID, call); err != nil {
			slog.Warn("ring registration failed", "session_id", sess.ID, "contact_id", inv.ID, "err", err)
		}
	}

	if err := s.log.LogSession(ctx, audit.EventTypeSessionCreated, familyFileID, actor.ID, actor.Role, sess.ID, string(sess.Type)+" session created"); err != nil {
		slog.Warn("audit append failed", "session_id", sess.ID, "err", err)
	}
	return sess, nil
}

// Join hands the actor transport credentials for the session's room.
//
// The provider room is created lazily on the first join and reused after.
// Joining a resolved session returns ErrNotJoinable; the caller lost the
// race or arrived late, and routes back to its dashboard.
func (s *Service) Join(ctx context.Context, sessionID string, actor Actor) (JoinGrant, error) {
	if sessionID == "" || actor.ID == "" {
		return JoinGrant{}, ErrValidation
	}

	sess, ok, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return JoinGrant{}, err
	}
	if !ok {
		return JoinGrant{}, ErrNotFound
	}
	if sess.Status.IsTerminal() {
		return JoinGrant{}, ErrNotJoinable
	}

	part, ok := findParticipant(sess, actor.ID)
	if !ok {
		return JoinGrant{}, fmt.Errorf("%w: not a participant", ErrValidation)
	}

	// Contacts are re-checked at accept time: the permitted window may have
	// closed since the call started ringing.
	if part.Role == rbac.RoleCircleContact {
		if childID := childParticipant(sess); childID != "" {
			if err := s.checkPair(ctx, sess.FamilyFileID, part.ID, childID, kindForSessionType(sess.Type)); err != nil {
				return JoinGrant{}, err
			}
		}
	}

	now := s.clock().UTC()

	if sess.RoomName == "" {
		room, err := s.rooms.CreateRoom(ctx, transport.CreateRoomRequest{
			SessionID:       sess.ID,
			SessionType:     string(sess.Type),
			MaxParticipants: len(sess.Participants) + 1,
		})
		if err != nil {
			return JoinGrant{}, err
		}
		if err := s.repo.SetRoom(ctx, sess.ID, room.Name, room.URL, now); err != nil {
			return JoinGrant{}, err
		}
		// Re-read: a concurrent join may have won the room creation.
		sess, _, err = s.repo.Get(ctx, sess.ID)
		if err != nil {
			return JoinGrant{}, err
		}
	}

	tok, err := s.rooms.MintToken(ctx, transport.TokenRequest{
		RoomName:    sess.RoomName,
		UserID:      actor.ID,
		DisplayName: actor.DisplayName,
	})
	if err != nil {
		return JoinGrant{}, err
	}

	if err := s.repo.SetParticipantJoined(ctx, sess.ID, actor.ID, now); err != nil {
		return JoinGrant{}, err
	}

	// A callee joining activates the call; CAS keeps the transition
	// monotonic if several devices accept at once.
	if sess.Status == SessionStatusWaiting && actor.ID != sess.InitiatorID {
		if _, err := s.repo.CompareAndSetStatus(ctx, sess.ID, SessionStatusWaiting, SessionStatusActive, now); err != nil {
			return JoinGrant{}, err
		}
		// Accepted calls stop ringing everywhere on the next poll.
		if err := s.ring.ClearSession(ctx, sess.ID); err != nil {
			slog.Warn("ring clear failed", "session_id", sess.ID, "err", err)
		}
	}

	return JoinGrant{Token: tok.Token, RoomURL: sess.RoomURL}, nil
}

// End terminates a session. Idempotent: ending a resolved session is a
// no-op success, and the provider room release tolerates repeats.
func (s *Service) End(ctx context.Context, sessionID string, actor Actor) error {
	if sessionID == "" {
		return ErrValidation
	}

	sess, ok, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if sess.Status.IsTerminal() {
		return nil
	}

	now := s.clock().UTC()
	moved, err := s.repo.CompareAndSetStatus(ctx, sess.ID, sess.Status, SessionStatusCompleted, now)
	if err != nil {
		return err
	}
	if !moved {
		// Someone else resolved it first; End stays idempotent.
		return nil
	}

	if sess.RoomName != "" {
		if err := s.rooms.ReleaseRoom(ctx, sess.RoomName); err != nil {
			slog.Warn("room release failed", "session_id", sess.ID, "room", sess.RoomName, "err", err)
		}
	}
	if err := s.ring.ClearSession(ctx, sess.ID); err != nil {
		slog.Warn("ring clear failed", "session_id", sess.ID, "err", err)
	}

	if err := s.log.LogSession(ctx, audit.EventTypeSessionEnded, sess.FamilyFileID, actor.ID, actor.Role, sess.ID, "session ended"); err != nil {
		slog.Warn("audit append failed", "session_id", sess.ID, "err", err)
	}
	return nil
}

// Cancel rejects a waiting session. The caller side observes the
// cancellation on its next poll; there is no push notification. Terminal
// states absorb repeats; cancelling an active session is not valid.
func (s *Service) Cancel(ctx context.Context, sessionID string, actor Actor) error {
	if sessionID == "" {
		return ErrValidation
	}

	sess, ok, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if sess.Status.IsTerminal() {
		return nil
	}
	if !canTransition(sess.Status, SessionStatusCancelled) {
		return ErrNotJoinable
	}

	now := s.clock().UTC()
	moved, err := s.repo.CompareAndSetStatus(ctx, sess.ID, SessionStatusWaiting, SessionStatusCancelled, now)
	if err != nil {
		return err
	}
	if !moved {
		return nil
	}

	if sess.RoomName != "" {
		if err := s.rooms.ReleaseRoom(ctx, sess.RoomName); err != nil {
			slog.Warn("room release failed", "session_id", sess.ID, "room", sess.RoomName, "err", err)
		}
	}
	if err := s.ring.ClearSession(ctx, sess.ID); err != nil {
		slog.Warn("ring clear failed", "session_id", sess.ID, "err", err)
	}

	if err := s.log.LogSession(ctx, audit.EventTypeCallRejected, sess.FamilyFileID, actor.ID, actor.Role, sess.ID, "call rejected"); err != nil {
		slog.Warn("audit append failed", "session_id", sess.ID, "err", err)
	}
	return nil
}

// Get returns the current snapshot including the live roster.
func (s *Service) Get(ctx context.Context, sessionID string) (Session, error) {
	if sessionID == "" {
		return Session{}, ErrValidation
	}
	sess, ok, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

// List returns the owner's sessions most-recent-first for dashboards.
func (s *Service) List(ctx context.Context, ownerID string, limit int) ([]Session, error) {
	if ownerID == "" {
		return nil, ErrValidation
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByParticipant(ctx, ownerID, limit)
}

// RingingFor returns the ephemeral incoming-call view for one recipient.
func (s *Service) RingingFor(ctx context.Context, contactID string) ([]IncomingCall, error) {
	if contactID == "" {
		return nil, ErrValidation
	}
	return s.ring.RingingFor(ctx, contactID)
}

// AcceptIncoming answers a ringing call: it is Join plus ring cleanup.
func (s *Service) AcceptIncoming(ctx context.Context, sessionID string, actor Actor) (JoinGrant, error) {
	return s.Join(ctx, sessionID, actor)
}

// RejectIncoming declines a ringing call for all devices of all recipients.
// Local-only dismissal is a client concern and never reaches this server.
func (s *Service) RejectIncoming(ctx context.Context, sessionID string, actor Actor) error {
	return s.Cancel(ctx, sessionID, actor)
}

func (s *Service) checkPair(ctx context.Context, familyFileID, contactID, childID string, kind permissions.Kind) error {
	if s.perms == nil {
		return nil
	}
	d, err := s.perms.CanCommunicate(ctx, familyFileID, contactID, childID, kind)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, d.Reason)
	}
	return nil
}

// childContext finds the child the session is about: the initiator if they
// are a child, otherwise the first invited child. Empty means no child is
// involved and the session is invalid.
func childContext(actor Actor, invited []Invitee) string {
	if actor.Role == rbac.RoleChild {
		return actor.ID
	}
	for _, inv := range invited {
		if inv.Role == rbac.RoleChild {
			return inv.ID
		}
	}
	return ""
}

func findParticipant(s Session, id string) (Participant, bool) {
	for _, p := range s.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// childParticipant returns the id of the child endpoint, if any.
func childParticipant(s Session) string {
	for _, p := range s.Participants {
		if p.Role == rbac.RoleChild {
			return p.ID
		}
	}
	return ""
}

func kindForSessionType(t SessionType) permissions.Kind {
	switch t {
	case SessionTypeVideoCall:
		return permissions.KindVideoCall
	case SessionTypeVoiceCall:
		return permissions.KindVoiceCall
	case SessionTypeTheater:
		return permissions.KindTheater
	case SessionTypeArcade:
		return permissions.KindArcade
	case SessionTypeWhiteboard:
		return permissions.KindWhiteboard
	default:
		return permissions.Kind(t)
	}
}
