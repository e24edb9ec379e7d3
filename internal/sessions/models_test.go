package sessions

import "testing"

func TestCanTransition_Monotonic(t *testing.T) {
	allowed := map[[2]SessionStatus]bool{
		{SessionStatusWaiting, SessionStatusActive}:    true,
		{SessionStatusWaiting, SessionStatusCancelled}: true,
		{SessionStatusWaiting, SessionStatusCompleted}: true,
		{SessionStatusActive, SessionStatusCompleted}:  true,
	}

	all := []SessionStatus{SessionStatusWaiting, SessionStatusActive, SessionStatusCompleted, SessionStatusCancelled}
	for _, from := range all {
		for _, to := range all {
			got := canTransition(from, to)
			want := allowed[[2]SessionStatus{from, to}]
			if got != want {
				t.Fatalf("canTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTerminalStatesAbsorb(t *testing.T) {
	for _, st := range []SessionStatus{SessionStatusCompleted, SessionStatusCancelled} {
		if !st.IsTerminal() {
			t.Fatalf("%s must be terminal", st)
		}
		for _, to := range []SessionStatus{SessionStatusWaiting, SessionStatusActive, SessionStatusCompleted, SessionStatusCancelled} {
			if canTransition(st, to) {
				t.Fatalf("terminal %s must not transition to %s", st, to)
			}
		}
	}
}

func TestIsValidSessionType(t *testing.T) {
	for _, ok := range []SessionType{SessionTypeVideoCall, SessionTypeVoiceCall, SessionTypeTheater, SessionTypeArcade, SessionTypeWhiteboard} {
		if !IsValidSessionType(ok) {
			t.Fatalf("%s should be valid", ok)
		}
	}
	if IsValidSessionType("screenshare") {
		t.Fatalf("unknown types must be rejected")
	}
}
