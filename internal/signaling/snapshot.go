package signaling

import (
	"sort"

	"kidcoms-platform/internal/chat"
	"kidcoms-platform/internal/sessions"
)

// Snapshot is one coherent view of a live session as seen at a poll tick:
// the session record, its chat messages in sent order, and any calls
// currently ringing for the local user. All state convergence happens by
// replacing the previous snapshot with a merged one — there is no push
// channel and no partial patching.
type Snapshot struct {
	Session  *sessions.Session
	Messages []chat.Message
	Ringing  []sessions.IncomingCall
}

// Merge reconciles the locally held snapshot with a freshly fetched one.
// The server is authoritative: remote session state and ringing calls win
// wholesale. Messages the local side sent optimistically but the server has
// not echoed back yet are retained (deduplicated by message ID) so the
// sender's own text never flickers out of the transcript between ticks.
func Merge(local, remote Snapshot) Snapshot {
	merged := Snapshot{
		Session:  remote.Session,
		Messages: remote.Messages,
		Ringing:  remote.Ringing,
	}

	if len(local.Messages) == 0 {
		return merged
	}

	seen := make(map[string]struct{}, len(remote.Messages))
	for _, m := range remote.Messages {
		seen[m.ID] = struct{}{}
	}

	retained := false
	for _, m := range local.Messages {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		merged.Messages = append(merged.Messages, m)
		retained = true
	}
	if retained {
		sort.SliceStable(merged.Messages, func(i, j int) bool {
			return merged.Messages[i].SentAt.Before(merged.Messages[j].SentAt)
		})
	}
	return merged
}
