package permissions

import (
	"testing"
	"time"
)

// at builds a local time on a known weekday. 2024-01-01 is a Monday.
func at(day time.Weekday, hour, min int) time.Time {
	base := time.Date(2024, 1, 1, hour, min, 0, 0, time.Local)
	return base.AddDate(0, 0, int(day-time.Monday))
}

func activePerm() CirclePermission {
	return CirclePermission{
		ID: "p1", FamilyFileID: "f1", ContactID: "c1", ChildID: "k1",
		CanVideoCall: true, CanVoiceCall: true, CanChat: true,
		IsActive: true,
	}
}

func TestEvaluate_InactiveBlocksEverything(t *testing.T) {
	p := activePerm()
	p.IsActive = false
	p.AllowedDays = nil
	p.AllowedStartTime = ""
	p.AllowedEndTime = ""

	d := Evaluate(p, at(time.Monday, 12, 0))
	if d.Allowed {
		t.Fatalf("expected denial for inactive permission")
	}
	if d.Reason != ReasonNotActive {
		t.Fatalf("expected %q, got %q", ReasonNotActive, d.Reason)
	}
}

func TestEvaluate_DayRestriction(t *testing.T) {
	p := activePerm()
	p.AllowedDays = []time.Weekday{time.Saturday, time.Sunday}

	d := Evaluate(p, at(time.Wednesday, 12, 0))
	if d.Allowed || d.Reason != ReasonWrongDay {
		t.Fatalf("expected day denial, got %+v", d)
	}

	d = Evaluate(p, at(time.Saturday, 12, 0))
	if !d.Allowed {
		t.Fatalf("expected allow on saturday, got %+v", d)
	}
}

func TestEvaluate_TimeWindow(t *testing.T) {
	p := activePerm()
	p.AllowedStartTime = "09:00"
	p.AllowedEndTime = "20:00"

	// Before the window opens.
	d := Evaluate(p, at(time.Monday, 8, 0))
	if d.Allowed || d.Reason != ReasonOutsideHours {
		t.Fatalf("expected hours denial at 08:00, got %+v", d)
	}

	// Inside the window.
	d = Evaluate(p, at(time.Monday, 10, 0))
	if !d.Allowed {
		t.Fatalf("expected allow at 10:00, got %+v", d)
	}

	// Window is inclusive on both ends.
	if d := Evaluate(p, at(time.Monday, 9, 0)); !d.Allowed {
		t.Fatalf("expected allow at exactly 09:00, got %+v", d)
	}
	if d := Evaluate(p, at(time.Monday, 20, 0)); !d.Allowed {
		t.Fatalf("expected allow at exactly 20:00, got %+v", d)
	}
	if d := Evaluate(p, at(time.Monday, 20, 1)); d.Allowed {
		t.Fatalf("expected denial at 20:01, got %+v", d)
	}
}

func TestEvaluate_HoursCheckedAfterDay(t *testing.T) {
	p := activePerm()
	p.AllowedDays = []time.Weekday{time.Monday}
	p.AllowedStartTime = "09:00"
	p.AllowedEndTime = "20:00"

	// Wrong day wins over wrong hours.
	d := Evaluate(p, at(time.Tuesday, 6, 0))
	if d.Allowed || d.Reason != ReasonWrongDay {
		t.Fatalf("expected day denial first, got %+v", d)
	}

	// Right day, wrong hours.
	d = Evaluate(p, at(time.Monday, 21, 0))
	if d.Allowed || d.Reason != ReasonOutsideHours {
		t.Fatalf("expected hours denial, got %+v", d)
	}
}

func TestEvaluate_OpenByDefault(t *testing.T) {
	p := activePerm()
	// No day restriction, no window: allowed at any instant.
	if d := Evaluate(p, at(time.Sunday, 3, 30)); !d.Allowed {
		t.Fatalf("expected open-by-default allow, got %+v", d)
	}

	// Only one endpoint set does not form a window.
	p.AllowedStartTime = "09:00"
	if d := Evaluate(p, at(time.Sunday, 3, 30)); !d.Allowed {
		t.Fatalf("expected allow with half-open window fields, got %+v", d)
	}
}

func TestEvaluate_OvernightWindowDeniesAll(t *testing.T) {
	p := activePerm()
	p.AllowedStartTime = "22:00"
	p.AllowedEndTime = "06:00"

	// An inverted window matches nothing, even times inside either half.
	for _, h := range []int{23, 2, 12} {
		d := Evaluate(p, at(time.Monday, h, 0))
		if d.Allowed {
			t.Fatalf("expected denial at %02d:00 for inverted window", h)
		}
		if d.Reason != ReasonOutsideHours {
			t.Fatalf("expected hours reason, got %q", d.Reason)
		}
	}
}

func TestCapabilityAllowed(t *testing.T) {
	p := activePerm()
	p.CanVideoCall = true
	p.CanVoiceCall = false
	p.CanChat = true
	p.CanTheater = false

	if !CapabilityAllowed(p, KindVideoCall) {
		t.Fatalf("expected video allowed")
	}
	if CapabilityAllowed(p, KindVoiceCall) {
		t.Fatalf("expected voice denied")
	}
	if !CapabilityAllowed(p, KindChat) {
		t.Fatalf("expected chat allowed")
	}
	for _, k := range []Kind{KindTheater, KindArcade, KindWhiteboard} {
		if CapabilityAllowed(p, k) {
			t.Fatalf("expected %s denied via theater flag", k)
		}
	}
	if CapabilityAllowed(p, Kind("unknown")) {
		t.Fatalf("unknown kinds must be denied")
	}
}

func TestParseClock(t *testing.T) {
	if v, err := parseClock("09:30"); err != nil || v != 570 {
		t.Fatalf("expected 570, got %d err %v", v, err)
	}
	for _, bad := range []string{"", "9", "25:00", "09:75", "ab:cd"} {
		if _, err := parseClock(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
