package permissions

import "time"

// CirclePermission governs one (contact, child) pair inside a family file.
//
// Authoring invariant: only parents create or update rows; circle contacts
// read their own rows and never mutate them.
//
// Open-by-default: an absent restriction imposes no constraint on that
// dimension. Empty AllowedDays means any day; empty start/end times mean any
// hour. IsActive=false blocks the pair entirely regardless of everything else.

type CirclePermission struct {
	ID           string `json:"id" db:"id"`
	FamilyFileID string `json:"family_file_id" db:"family_file_id"`
	ContactID    string `json:"contact_id" db:"contact_id"`
	ChildID      string `json:"child_id" db:"child_id"`

	CanVideoCall bool `json:"can_video_call" db:"can_video_call"`
	CanVoiceCall bool `json:"can_voice_call" db:"can_voice_call"`
	CanChat      bool `json:"can_chat" db:"can_chat"`
	CanTheater   bool `json:"can_theater" db:"can_theater"`

	// AllowedDays is empty for "any day".
	AllowedDays []time.Weekday `json:"allowed_days,omitempty" db:"allowed_days"`

	// AllowedStartTime/AllowedEndTime are local wall-clock "HH:MM" strings.
	// No timezone is stored; evaluation uses the evaluating process's local
	// clock, so multi-timezone households see device-dependent results.
	AllowedStartTime string `json:"allowed_start_time,omitempty" db:"allowed_start_time"`
	AllowedEndTime   string `json:"allowed_end_time,omitempty" db:"allowed_end_time"`

	IsActive bool `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
