package sessions

import "context"

// RingRegistry is the ephemeral "calls ringing for me" view.
//
// Entries are TTL-bounded: an invitation that is never answered simply ages
// out, which is how invitation timeout is implemented. Entries are cleared
// eagerly when the session resolves (accept, reject, end) so the next poll
// stops showing them; there is no explicit "missed" event by design.
type RingRegistry interface {
	Ring(ctx context.Context, contactID string, call IncomingCall) error
	RingingFor(ctx context.Context, contactID string) ([]IncomingCall, error)

	// ClearSession removes the session's entries for every invited party.
	ClearSession(ctx context.Context, sessionID string) error
}
