package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryProvider is an in-process provider useful for tests and early
// development. It mints opaque tokens and tracks live rooms.
//
// NOTE: This is not intended for production.
type MemoryProvider struct {
	mu    sync.Mutex
	rooms map[string]Room

	// FailCreate forces CreateRoom to fail, for exercising error paths.
	FailCreate bool
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{rooms: make(map[string]Room)}
}

func (p *MemoryProvider) Name() string { return "memory" }

func (p *MemoryProvider) HealthCheck(ctx context.Context) error { return nil }

func (p *MemoryProvider) CreateRoom(ctx context.Context, req CreateRoomRequest) (Room, error) {
	_ = ctx
	if p.FailCreate {
		return Room{}, fmt.Errorf("%w: create forced to fail", ErrTransport)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	name := "room-" + uuid.NewString()
	r := Room{
		Name:      name,
		URL:       "https://rooms.local/" + name,
		CreatedAt: time.Now().UTC(),
	}
	p.rooms[name] = r
	return r, nil
}

func (p *MemoryProvider) MintToken(ctx context.Context, req TokenRequest) (MeetingToken, error) {
	_ = ctx
	if req.RoomName == "" || req.UserID == "" {
		return MeetingToken{}, fmt.Errorf("%w: room_name and user_id required", ErrTransport)
	}
	ttl := req.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return MeetingToken{
		Token:     "tok-" + uuid.NewString(),
		ExpiresAt: time.Now().Add(ttl).UTC(),
	}, nil
}

func (p *MemoryProvider) ReleaseRoom(ctx context.Context, roomName string) error {
	_ = ctx
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.rooms, roomName)
	return nil
}

// LiveRooms reports currently held rooms; test helper.
func (p *MemoryProvider) LiveRooms() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.rooms)
}
