package signaling

import (
	"testing"
	"time"

	"kidcoms-platform/internal/chat"
	"kidcoms-platform/internal/sessions"
)

func msg(id, content string, at time.Time) chat.Message {
	return chat.Message{ID: id, SessionID: "s1", SenderID: "kid-1", Content: content, SentAt: at}
}

func TestMerge_RemoteWinsForSessionAndRinging(t *testing.T) {
	local := Snapshot{
		Session: &sessions.Session{ID: "s1", Status: sessions.SessionStatusWaiting},
		Ringing: []sessions.IncomingCall{{SessionID: "s1"}},
	}
	remote := Snapshot{
		Session: &sessions.Session{ID: "s1", Status: sessions.SessionStatusActive},
	}

	got := Merge(local, remote)
	if got.Session.Status != sessions.SessionStatusActive {
		t.Fatalf("expected remote session state, got %s", got.Session.Status)
	}
	if len(got.Ringing) != 0 {
		t.Fatalf("stale local ringing must not survive, got %+v", got.Ringing)
	}
}

func TestMerge_RetainsOptimisticMessages(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	local := Snapshot{Messages: []chat.Message{
		msg("m1", "hi", base),
		msg("m2-pending", "not echoed yet", base.Add(2*time.Second)),
	}}
	remote := Snapshot{Messages: []chat.Message{
		msg("m1", "hi", base),
		msg("m3", "from the other side", base.Add(time.Second)),
	}}

	got := Merge(local, remote)
	if len(got.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got.Messages))
	}
	// sent_at order with the pending message slotted last
	want := []string{"m1", "m3", "m2-pending"}
	for i, id := range want {
		if got.Messages[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, got.Messages[i].ID)
		}
	}
}

func TestMerge_OptimisticMessageSupersededByEcho(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	local := Snapshot{Messages: []chat.Message{msg("m2", "pending copy", base)}}
	remote := Snapshot{Messages: []chat.Message{msg("m2", "server copy", base)}}

	got := Merge(local, remote)
	if len(got.Messages) != 1 {
		t.Fatalf("expected dedup by id, got %d messages", len(got.Messages))
	}
	if got.Messages[0].Content != "server copy" {
		t.Fatalf("server copy must win, got %q", got.Messages[0].Content)
	}
}

func TestMerge_EmptyLocalIsRemote(t *testing.T) {
	remote := Snapshot{Messages: []chat.Message{msg("m1", "hi", time.Now())}}
	got := Merge(Snapshot{}, remote)
	if len(got.Messages) != 1 || got.Messages[0].ID != "m1" {
		t.Fatalf("unexpected merge of empty local: %+v", got.Messages)
	}
}
