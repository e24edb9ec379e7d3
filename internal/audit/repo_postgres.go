package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo persists activity events.
//
// Assumed table (INSERT-only; no update or delete paths exist):
//
//	audit_events (
//	  id, family_file_id, type, actor_user_id, actor_role,
//	  session_id, message_id, contact_id, child_id,
//	  message, metadata, created_at
//	)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, family_file_id, type, actor_user_id, actor_role,
  session_id, message_id, contact_id, child_id,
  message, metadata, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.FamilyFileID, e.Type, e.ActorUserID, e.ActorRole,
		e.SessionID, e.MessageID, e.ContactID, e.ChildID,
		e.Message, e.Metadata, e.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) ListByFamily(ctx context.Context, familyFileID string, limit int) ([]Event, error) {
	const q = `
SELECT id, family_file_id, type, actor_user_id, actor_role,
       session_id, message_id, contact_id, child_id,
       message, metadata, created_at
FROM audit_events
WHERE family_file_id = $1
ORDER BY created_at DESC
LIMIT $2`

	rows, err := r.db.QueryContext(ctx, q, familyFileID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.ID, &e.FamilyFileID, &e.Type, &e.ActorUserID, &e.ActorRole,
			&e.SessionID, &e.MessageID, &e.ContactID, &e.ChildID,
			&e.Message, &e.Metadata, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
