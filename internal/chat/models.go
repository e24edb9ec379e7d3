package chat

import "time"

// Message is one chat entry overlaid on a live session.
//
// Invariants:
// - Messages are immutable once created; the list is append-only per
//   session, ordered by sent_at.
// - OriginalContent is set if and only if moderation flagged the message AND
//   rewrote it; an unmodified flagged message keeps OriginalContent empty.
// - ModerationSkipped marks messages delivered without review because the
//   moderation service was unavailable or too slow.
type Message struct {
	ID        string `json:"id" db:"id"`
	SessionID string `json:"session_id" db:"session_id"`
	SenderID  string `json:"sender_id" db:"sender_id"`

	// Content is what recipients see; possibly a rewritten form.
	Content string `json:"content" db:"content"`

	// OriginalContent is what the sender typed, kept only when moderation
	// altered the text. Parents see both; recipients see Content.
	OriginalContent string `json:"original_content,omitempty" db:"original_content"`

	ModerationFlagged bool `json:"moderation_flagged" db:"moderation_flagged"`
	ModerationSkipped bool `json:"moderation_skipped,omitempty" db:"moderation_skipped"`

	SentAt time.Time `json:"sent_at" db:"sent_at"`
}
