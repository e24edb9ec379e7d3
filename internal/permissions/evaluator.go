package permissions

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Decision is the outcome of evaluating a permission window.
// Denial is a normal result, not an error; Reason is human-readable and is
// surfaced directly to the caller.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Denial reasons. These are user-facing strings; keep them stable.
const (
	ReasonNotActive    = "connection not active"
	ReasonWrongDay     = "not available on this day"
	ReasonOutsideHours = "outside allowed hours"
)

// Kind identifies the communication capability being requested.
type Kind string

const (
	KindVideoCall  Kind = "video_call"
	KindVoiceCall  Kind = "voice_call"
	KindChat       Kind = "chat"
	KindTheater    Kind = "theater"
	KindArcade     Kind = "arcade"
	KindWhiteboard Kind = "whiteboard"
)

// Evaluate decides whether the pair may communicate at the given instant.
//
// Pure function; checks run in order and the first failing check supplies the
// reason. Callers re-evaluate on every poll tick rather than caching, since
// an allowed window can expire while a session view is open.
//
// An inverted window (start > end, i.e. overnight) matches nothing and so
// denies everything. That mirrors the shipped product behavior; an
// overnight-wrap interpretation is a product decision we have not taken.
func Evaluate(p CirclePermission, at time.Time) Decision {
	if !p.IsActive {
		return Decision{Allowed: false, Reason: ReasonNotActive}
	}

	if len(p.AllowedDays) > 0 {
		day := at.Weekday()
		ok := false
		for _, d := range p.AllowedDays {
			if d == day {
				ok = true
				break
			}
		}
		if !ok {
			return Decision{Allowed: false, Reason: ReasonWrongDay}
		}
	}

	if p.AllowedStartTime != "" && p.AllowedEndTime != "" {
		start, err1 := parseClock(p.AllowedStartTime)
		end, err2 := parseClock(p.AllowedEndTime)
		if err1 == nil && err2 == nil {
			now := at.Hour()*60 + at.Minute()
			// Inclusive on both ends.
			if now < start || now > end {
				return Decision{Allowed: false, Reason: ReasonOutsideHours}
			}
		}
	}

	return Decision{Allowed: true}
}

// CapabilityAllowed checks the per-capability flag for the requested action.
// It is independent of the time window: both this and Evaluate must pass
// before a call action is enabled.
//
// Theater, arcade and whiteboard are all shared activities and ride the
// theater flag.
func CapabilityAllowed(p CirclePermission, kind Kind) bool {
	switch kind {
	case KindVideoCall:
		return p.CanVideoCall
	case KindVoiceCall:
		return p.CanVoiceCall
	case KindChat:
		return p.CanChat
	case KindTheater, KindArcade, KindWhiteboard:
		return p.CanTheater
	default:
		return false
	}
}

// parseClock parses a local wall-clock "HH:MM" string into minutes since
// midnight.
func parseClock(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock value out of range %q", s)
	}
	return h*60 + m, nil
}
