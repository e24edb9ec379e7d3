package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"kidcoms-platform/internal/audit"
)

func newChatService(mod Moderator, auditRepo *audit.MemoryRepo) *Service {
	resolver := func(ctx context.Context, sessionID string) (string, error) { return "f1", nil }
	return NewService(NewMemoryRepo(), mod, audit.NewService(auditRepo), resolver)
}

func TestSend_CleanMessagePassesThrough(t *testing.T) {
	svc := newChatService(&StaticModerator{}, audit.NewMemoryRepo())

	m, err := svc.Send(context.Background(), "s1", "kid-1", "hi grandma")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if m.Content != "hi grandma" || m.OriginalContent != "" {
		t.Fatalf("clean message must be unchanged, got %+v", m)
	}
	if m.ModerationFlagged || m.ModerationSkipped {
		t.Fatalf("clean message must be unflagged, got %+v", m)
	}
	if m.ID == "" || m.SentAt.IsZero() {
		t.Fatalf("expected generated id and sent_at")
	}
}

func TestSend_FlaggedMessageKeepsOriginal(t *testing.T) {
	mod := &StaticModerator{Rewrites: map[string]string{
		"you are stupid": "I'm feeling frustrated",
	}}
	auditRepo := audit.NewMemoryRepo()
	svc := newChatService(mod, auditRepo)

	m, err := svc.Send(context.Background(), "s1", "kid-1", "you are stupid")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !m.ModerationFlagged {
		t.Fatalf("expected flagged")
	}
	if m.Content != "I'm feeling frustrated" {
		t.Fatalf("expected rewritten content, got %q", m.Content)
	}
	if m.OriginalContent != "you are stupid" {
		t.Fatalf("expected original preserved, got %q", m.OriginalContent)
	}
	if m.Content == m.OriginalContent {
		t.Fatalf("original must differ from rewritten content")
	}

	evs := auditRepo.Events()
	if len(evs) != 1 || evs[0].Type != audit.EventTypeMessageFlagged {
		t.Fatalf("expected flagged audit event, got %+v", evs)
	}
}

func TestSend_FlaggedWithoutRewriteHasNoOriginal(t *testing.T) {
	// A flagged-but-not-rewritten verdict keeps content as typed and leaves
	// original_content empty: it is set iff the stored text differs.
	mod := &StaticModerator{Rewrites: map[string]string{"borderline": ""}}
	svc := newChatService(mod, audit.NewMemoryRepo())

	m, err := svc.Send(context.Background(), "s1", "kid-1", "borderline")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !m.ModerationFlagged {
		t.Fatalf("expected flagged")
	}
	if m.Content != "borderline" || m.OriginalContent != "" {
		t.Fatalf("unexpected contents: %+v", m)
	}
}

func TestSend_ModerationFailureDeliversUnreviewed(t *testing.T) {
	mod := &StaticModerator{Err: errors.New("service down")}
	auditRepo := audit.NewMemoryRepo()
	svc := newChatService(mod, auditRepo)

	m, err := svc.Send(context.Background(), "s1", "kid-1", "hello?")
	if err != nil {
		t.Fatalf("moderation failure must not fail the send, got %v", err)
	}
	if !m.ModerationSkipped {
		t.Fatalf("expected moderation_skipped mark")
	}
	if m.ModerationFlagged || m.OriginalContent != "" {
		t.Fatalf("unreviewed message must not be flagged, got %+v", m)
	}

	evs := auditRepo.Events()
	if len(evs) != 1 || evs[0].Type != audit.EventTypeModerationSkipped {
		t.Fatalf("expected skipped audit event, got %+v", evs)
	}
}

func TestSend_ModerationTimeoutDeliversUnreviewed(t *testing.T) {
	mod := &StaticModerator{Delay: 200 * time.Millisecond}
	svc := newChatService(mod, audit.NewMemoryRepo())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	m, err := svc.Send(ctx, "s1", "kid-1", "are you there")
	if err != nil {
		t.Fatalf("timeout must not fail the send, got %v", err)
	}
	if !m.ModerationSkipped {
		t.Fatalf("expected moderation_skipped after timeout")
	}
}

func TestSend_ValidatesInput(t *testing.T) {
	svc := newChatService(&StaticModerator{}, audit.NewMemoryRepo())
	for _, c := range []struct{ sid, sender, text string }{
		{"", "u", "x"},
		{"s", "", "x"},
		{"s", "u", ""},
	} {
		if _, err := svc.Send(context.Background(), c.sid, c.sender, c.text); !errors.Is(err, ErrInvalidMessage) {
			t.Fatalf("expected ErrInvalidMessage for %+v, got %v", c, err)
		}
	}
}

func TestList_OrderedBySentAt(t *testing.T) {
	svc := newChatService(&StaticModerator{}, audit.NewMemoryRepo())

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, text := range []string{"first", "second", "third"} {
		tick := base.Add(time.Duration(i) * time.Second)
		svc.clock = func() time.Time { return tick }
		if _, err := svc.Send(context.Background(), "s1", "kid-1", text); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	msgs, err := svc.List(context.Background(), "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "first" || msgs[2].Content != "third" {
		t.Fatalf("expected sent order, got %+v", msgs)
	}
}
