package sessions

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"kidcoms-platform/pkg/utils"
)

// PostgresRepo persists sessions and their participant rosters.
//
// Assumed tables:
//
//	sessions (
//	  id, family_file_id, type, status, title, initiator_id,
//	  started_at, room_name, room_url, created_at, updated_at
//	)
//	session_participants (
//	  session_id, participant_id, display_name, role, joined_at,
//	  PRIMARY KEY (session_id, participant_id)
//	)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Create(ctx context.Context, s Session) error {
	return utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const q = `
INSERT INTO sessions (
  id, family_file_id, type, status, title, initiator_id,
  started_at, room_name, room_url, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
		if _, err := tx.ExecContext(ctx, q,
			s.ID, s.FamilyFileID, s.Type, s.Status, s.Title, s.InitiatorID,
			s.StartedAt, s.RoomName, s.RoomURL, s.CreatedAt, s.UpdatedAt,
		); err != nil {
			return err
		}

		const pq = `
INSERT INTO session_participants (session_id, participant_id, display_name, role, joined_at)
VALUES ($1,$2,$3,$4,$5)`
		for _, p := range s.Participants {
			if _, err := tx.ExecContext(ctx, pq, s.ID, p.ID, p.DisplayName, p.Role, p.JoinedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Session, bool, error) {
	const q = `
SELECT id, family_file_id, type, status, title, initiator_id,
       started_at, room_name, room_url, created_at, updated_at
FROM sessions
WHERE id = $1`

	var s Session
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.FamilyFileID, &s.Type, &s.Status, &s.Title, &s.InitiatorID,
		&s.StartedAt, &s.RoomName, &s.RoomURL, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}

	parts, err := r.participants(ctx, id)
	if err != nil {
		return Session{}, false, err
	}
	s.Participants = parts
	return s, true, nil
}

func (r *PostgresRepo) participants(ctx context.Context, sessionID string) ([]Participant, error) {
	const q = `
SELECT participant_id, display_name, role, joined_at
FROM session_participants
WHERE session_id = $1
ORDER BY participant_id`

	rows, err := r.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.Role, &p.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListByParticipant(ctx context.Context, ownerID string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT s.id
FROM sessions s
JOIN session_participants sp ON sp.session_id = s.id
WHERE sp.participant_id = $1
ORDER BY s.created_at DESC
LIMIT $2`

	rows, err := r.db.QueryContext(ctx, q, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Session, 0, len(ids))
	for _, id := range ids {
		s, ok, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *PostgresRepo) SetRoom(ctx context.Context, sessionID, roomName, roomURL string, at time.Time) error {
	const q = `
UPDATE sessions
SET room_name = $2, room_url = $3, updated_at = $4
WHERE id = $1 AND room_name = ''`
	_, err := r.db.ExecContext(ctx, q, sessionID, roomName, roomURL, at)
	return err
}

func (r *PostgresRepo) SetParticipantJoined(ctx context.Context, sessionID, participantID string, at time.Time) error {
	const q = `
UPDATE session_participants
SET joined_at = $3
WHERE session_id = $1 AND participant_id = $2 AND joined_at IS NULL`
	_, err := r.db.ExecContext(ctx, q, sessionID, participantID, at)
	return err
}

func (r *PostgresRepo) CompareAndSetStatus(ctx context.Context, sessionID string, from, to SessionStatus, at time.Time) (bool, error) {
	const q = `
UPDATE sessions
SET status = $3,
    started_at = CASE WHEN $3 = 'active' AND started_at IS NULL THEN $4 ELSE started_at END,
    updated_at = $4
WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, q, sessionID, from, to, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
