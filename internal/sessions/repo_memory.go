package sessions

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is a simple in-memory repository useful for tests and early
// development.
//
// NOTE: This is not intended for production; use the Postgres implementation.
type MemoryRepo struct {
	mu       sync.Mutex
	sessions map[string]Session
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{sessions: make(map[string]Session)}
}

func (r *MemoryRepo) Create(ctx context.Context, s Session) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = cloneSession(s)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Session, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return Session{}, false, nil
	}
	return cloneSession(s), true, nil
}

func (r *MemoryRepo) ListByParticipant(ctx context.Context, ownerID string, limit int) ([]Session, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Session
	for _, s := range r.sessions {
		for _, p := range s.Participants {
			if p.ID == ownerID {
				out = append(out, cloneSession(s))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) SetRoom(ctx context.Context, sessionID, roomName, roomURL string, at time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	s.RoomName = roomName
	s.RoomURL = roomURL
	s.UpdatedAt = at
	r.sessions[sessionID] = s
	return nil
}

func (r *MemoryRepo) SetParticipantJoined(ctx context.Context, sessionID, participantID string, at time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	for i := range s.Participants {
		if s.Participants[i].ID == participantID && s.Participants[i].JoinedAt == nil {
			t := at
			s.Participants[i].JoinedAt = &t
		}
	}
	s.UpdatedAt = at
	r.sessions[sessionID] = s
	return nil
}

func (r *MemoryRepo) CompareAndSetStatus(ctx context.Context, sessionID string, from, to SessionStatus, at time.Time) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.Status != from {
		return false, nil
	}
	s.Status = to
	if to == SessionStatusActive && s.StartedAt == nil {
		t := at
		s.StartedAt = &t
	}
	s.UpdatedAt = at
	r.sessions[sessionID] = s
	return true, nil
}

func cloneSession(s Session) Session {
	out := s
	out.Participants = make([]Participant, len(s.Participants))
	copy(out.Participants, s.Participants)
	return out
}
