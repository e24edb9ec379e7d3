package signaling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"kidcoms-platform/internal/chat"
	"kidcoms-platform/internal/sessions"
)

type fakeFetcher struct {
	mu       sync.Mutex
	session  sessions.Session
	messages []chat.Message
	ringing  []sessions.IncomingCall

	failures int // number of leading fetches that error
	fetches  int
}

func (f *fakeFetcher) FetchSession(ctx context.Context, sessionID string) (*sessions.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("network unreachable")
	}
	s := f.session
	return &s, nil
}

func (f *fakeFetcher) FetchMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chat.Message(nil), f.messages...), nil
}

func (f *fakeFetcher) FetchRinging(ctx context.Context) ([]sessions.IncomingCall, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sessions.IncomingCall(nil), f.ringing...), nil
}

func (f *fakeFetcher) set(fn func(*fakeFetcher)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func waitSnapshot(t *testing.T, p *Poller) Snapshot {
	t.Helper()
	select {
	case s, ok := <-p.Snapshots():
		if !ok {
			t.Fatalf("snapshot channel closed early")
		}
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("no snapshot delivered")
		return Snapshot{}
	}
}

func TestPoller_FirstFetchIsImmediate(t *testing.T) {
	f := &fakeFetcher{session: sessions.Session{ID: "s1", Status: sessions.SessionStatusWaiting}}
	p := NewPoller(f, "s1", time.Hour) // only the immediate fetch can fire
	p.Start(context.Background())
	defer p.Stop()

	snap := waitSnapshot(t, p)
	if snap.Session == nil || snap.Session.ID != "s1" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestPoller_FetchErrorRetriedNextTick(t *testing.T) {
	f := &fakeFetcher{
		session:  sessions.Session{ID: "s1"},
		failures: 2,
	}
	p := NewPoller(f, "s1", 10*time.Millisecond)
	p.Start(context.Background())
	defer p.Stop()

	snap := waitSnapshot(t, p)
	if snap.Session == nil || snap.Session.ID != "s1" {
		t.Fatalf("expected recovery after transient errors, got %+v", snap)
	}
	f.mu.Lock()
	fetches := f.fetches
	f.mu.Unlock()
	if fetches < 3 {
		t.Fatalf("expected at least 3 fetch attempts, got %d", fetches)
	}
}

func TestPoller_StopClosesChannel(t *testing.T) {
	f := &fakeFetcher{session: sessions.Session{ID: "s1"}}
	p := NewPoller(f, "s1", 5*time.Millisecond)
	p.Start(context.Background())

	waitSnapshot(t, p)
	p.Stop()
	p.Stop() // idempotent

	// Drain whatever was buffered before Stop; the channel must then close.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-p.Snapshots():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("channel not closed after Stop")
		}
	}
}

func TestPoller_ConsumerLagKeepsNewestSnapshot(t *testing.T) {
	p := NewPoller(&fakeFetcher{}, "s1", time.Hour)

	p.deliver(Snapshot{Session: &sessions.Session{ID: "old"}})
	p.deliver(Snapshot{Session: &sessions.Session{ID: "new"}})

	snap := <-p.snapshots
	if snap.Session.ID != "new" {
		t.Fatalf("expected newest snapshot to replace the stale one, got %s", snap.Session.ID)
	}
}

func TestPoller_DismissSuppressesRingingLocally(t *testing.T) {
	f := &fakeFetcher{ringing: []sessions.IncomingCall{
		{SessionID: "ring-1", CallerName: "Grandma"},
		{SessionID: "ring-2", CallerName: "Uncle Ben"},
	}}
	p := NewPoller(f, "", 10*time.Millisecond)
	p.Dismiss("ring-1")
	p.Start(context.Background())
	defer p.Stop()

	snap := waitSnapshot(t, p)
	if len(snap.Ringing) != 1 || snap.Ringing[0].SessionID != "ring-2" {
		t.Fatalf("dismissed call must be hidden, got %+v", snap.Ringing)
	}
}

func TestPoller_OptimisticMessageSurvivesUntilEchoed(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f := &fakeFetcher{
		session:  sessions.Session{ID: "s1"},
		messages: []chat.Message{msg("m1", "hi", base)},
	}
	p := NewPoller(f, "s1", 10*time.Millisecond)
	p.RecordLocal(msg("m2", "sent just now", base.Add(time.Second)))
	p.Start(context.Background())
	defer p.Stop()

	snap := waitSnapshot(t, p)
	if len(snap.Messages) != 2 || snap.Messages[1].ID != "m2" {
		t.Fatalf("optimistic message must be retained, got %+v", snap.Messages)
	}

	// Server echoes the message back; the next snapshot holds one copy.
	f.set(func(f *fakeFetcher) {
		f.messages = append(f.messages, msg("m2", "sent just now", base.Add(time.Second)))
	})
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-p.Snapshots():
			count := 0
			for _, m := range snap.Messages {
				if m.ID == "m2" {
					count++
				}
			}
			if count == 1 && len(snap.Messages) == 2 {
				return
			}
		case <-deadline:
			t.Fatalf("echoed message never deduplicated")
		}
	}
}
