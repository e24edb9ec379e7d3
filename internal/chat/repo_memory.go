package chat

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is a simple in-memory append-only repository useful for tests.
//
// NOTE: This is not intended for production; use the Postgres implementation.
type MemoryRepo struct {
	mu       sync.Mutex
	messages map[string][]Message // by session id
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{messages: make(map[string][]Message)}
}

func (r *MemoryRepo) Append(ctx context.Context, m Message) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[m.SessionID] = append(r.messages[m.SessionID], m)
	return nil
}

func (r *MemoryRepo) ListBySession(ctx context.Context, sessionID string) ([]Message, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	src := r.messages[sessionID]
	out := make([]Message, len(src))
	copy(out, src)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SentAt.Before(out[j].SentAt)
	})
	return out, nil
}
