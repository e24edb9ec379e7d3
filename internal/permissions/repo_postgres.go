package permissions

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"
)

// PostgresRepo persists circle permissions.
//
// Assumed table:
//
//	circle_permissions (
//	  id, family_file_id, contact_id, child_id,
//	  can_video_call, can_voice_call, can_chat, can_theater,
//	  allowed_days TEXT,         -- comma-joined weekday ints, '' = any day
//	  allowed_start_time TEXT,   -- 'HH:MM', '' = unset
//	  allowed_end_time TEXT,
//	  is_active, created_at, updated_at,
//	  UNIQUE (family_file_id, contact_id, child_id)
//	)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const permColumns = `
id, family_file_id, contact_id, child_id,
can_video_call, can_voice_call, can_chat, can_theater,
allowed_days, allowed_start_time, allowed_end_time,
is_active, created_at, updated_at`

func (r *PostgresRepo) Get(ctx context.Context, familyFileID, contactID, childID string) (CirclePermission, bool, error) {
	q := `SELECT ` + permColumns + `
FROM circle_permissions
WHERE family_file_id = $1 AND contact_id = $2 AND child_id = $3`

	p, err := scanPermission(r.db.QueryRowContext(ctx, q, familyFileID, contactID, childID))
	if errors.Is(err, sql.ErrNoRows) {
		return CirclePermission{}, false, nil
	}
	if err != nil {
		return CirclePermission{}, false, err
	}
	return p, true, nil
}

func (r *PostgresRepo) ListByFamily(ctx context.Context, familyFileID, contactID string) ([]CirclePermission, error) {
	q := `SELECT ` + permColumns + `
FROM circle_permissions
WHERE family_file_id = $1 AND ($2 = '' OR contact_id = $2)
ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, q, familyFileID, contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

func (r *PostgresRepo) ListByContact(ctx context.Context, contactID string) ([]CirclePermission, error) {
	q := `SELECT ` + permColumns + `
FROM circle_permissions
WHERE contact_id = $1
ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, q, contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

func (r *PostgresRepo) Upsert(ctx context.Context, p CirclePermission) (CirclePermission, error) {
	const q = `
INSERT INTO circle_permissions (
  id, family_file_id, contact_id, child_id,
  can_video_call, can_voice_call, can_chat, can_theater,
  allowed_days, allowed_start_time, allowed_end_time,
  is_active, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (family_file_id, contact_id, child_id) DO UPDATE SET
  can_video_call = EXCLUDED.can_video_call,
  can_voice_call = EXCLUDED.can_voice_call,
  can_chat = EXCLUDED.can_chat,
  can_theater = EXCLUDED.can_theater,
  allowed_days = EXCLUDED.allowed_days,
  allowed_start_time = EXCLUDED.allowed_start_time,
  allowed_end_time = EXCLUDED.allowed_end_time,
  is_active = EXCLUDED.is_active,
  updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, q,
		p.ID, p.FamilyFileID, p.ContactID, p.ChildID,
		p.CanVideoCall, p.CanVoiceCall, p.CanChat, p.CanTheater,
		encodeDays(p.AllowedDays), p.AllowedStartTime, p.AllowedEndTime,
		p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return CirclePermission{}, err
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPermission(row rowScanner) (CirclePermission, error) {
	var p CirclePermission
	var days string
	if err := row.Scan(
		&p.ID, &p.FamilyFileID, &p.ContactID, &p.ChildID,
		&p.CanVideoCall, &p.CanVoiceCall, &p.CanChat, &p.CanTheater,
		&days, &p.AllowedStartTime, &p.AllowedEndTime,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return CirclePermission{}, err
	}
	p.AllowedDays = decodeDays(days)
	return p, nil
}

func collectPermissions(rows *sql.Rows) ([]CirclePermission, error) {
	var out []CirclePermission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func encodeDays(days []time.Weekday) string {
	if len(days) == 0 {
		return ""
	}
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, strconv.Itoa(int(d)))
	}
	return strings.Join(parts, ",")
}

func decodeDays(s string) []time.Weekday {
	if s == "" {
		return nil
	}
	var out []time.Weekday
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 || n > 6 {
			continue
		}
		out = append(out, time.Weekday(n))
	}
	return out
}
