package sessions

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRing is an in-memory ring registry useful for tests and early
// development. Entries expire lazily on read.
//
// NOTE: This is not intended for production; use the Redis implementation so
// ringing survives process restarts and is shared across API instances.
type MemoryRing struct {
	mu  sync.Mutex
	ttl time.Duration
	// entries[contactID][sessionID]
	entries map[string]map[string]ringEntry

	clock func() time.Time
}

type ringEntry struct {
	call      IncomingCall
	expiresAt time.Time
}

func NewMemoryRing(ttl time.Duration) *MemoryRing {
	if ttl <= 0 {
		ttl = 45 * time.Second
	}
	return &MemoryRing{
		ttl:     ttl,
		entries: make(map[string]map[string]ringEntry),
		clock:   time.Now,
	}
}

func (r *MemoryRing) Ring(ctx context.Context, contactID string, call IncomingCall) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.entries[contactID]
	if m == nil {
		m = make(map[string]ringEntry)
		r.entries[contactID] = m
	}
	m[call.SessionID] = ringEntry{call: call, expiresAt: r.clock().Add(r.ttl)}
	return nil
}

func (r *MemoryRing) RingingFor(ctx context.Context, contactID string) ([]IncomingCall, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock()

	var out []IncomingCall
	for sid, e := range r.entries[contactID] {
		if now.After(e.expiresAt) {
			delete(r.entries[contactID], sid)
			continue
		}
		out = append(out, e.call)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedRingingAt.Before(out[j].StartedRingingAt)
	})
	return out, nil
}

func (r *MemoryRing) ClearSession(ctx context.Context, sessionID string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.entries {
		delete(m, sessionID)
	}
	return nil
}
