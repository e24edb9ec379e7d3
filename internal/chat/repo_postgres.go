package chat

import (
	"context"
	"database/sql"
)

// PostgresRepo persists chat messages.
//
// Assumed table (INSERT-only; a trigger may enforce immutability):
//
//	session_messages (
//	  id, session_id, sender_id, content, original_content,
//	  moderation_flagged, moderation_skipped, sent_at
//	)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, m Message) error {
	const q = `
INSERT INTO session_messages (
  id, session_id, sender_id, content, original_content,
  moderation_flagged, moderation_skipped, sent_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.db.ExecContext(ctx, q,
		m.ID, m.SessionID, m.SenderID, m.Content, m.OriginalContent,
		m.ModerationFlagged, m.ModerationSkipped, m.SentAt,
	)
	return err
}

func (r *PostgresRepo) ListBySession(ctx context.Context, sessionID string) ([]Message, error) {
	const q = `
SELECT id, session_id, sender_id, content, original_content,
       moderation_flagged, moderation_skipped, sent_at
FROM session_messages
WHERE session_id = $1
ORDER BY sent_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.ID, &m.SessionID, &m.SenderID, &m.Content, &m.OriginalContent,
			&m.ModerationFlagged, &m.ModerationSkipped, &m.SentAt,
		); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
