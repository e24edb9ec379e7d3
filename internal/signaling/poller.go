package signaling

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"kidcoms-platform/internal/chat"
	"kidcoms-platform/internal/sessions"
)

// DefaultPollInterval is the tick used when no interval is configured.
const DefaultPollInterval = 3 * time.Second

// Poller periodically fetches a session snapshot and delivers the merged
// result over a bounded channel. A fetch error on one tick is logged and
// retried on the next; the previous snapshot stays in effect meanwhile.
// The channel holds at most one snapshot: when the consumer lags, the stale
// snapshot is replaced by the newer one rather than queued behind it.
type Poller struct {
	fetch     Fetcher
	sessionID string
	interval  time.Duration

	snapshots chan Snapshot

	mu        sync.Mutex
	started   bool
	last      Snapshot
	dismissed map[string]struct{}

	cancel context.CancelFunc
	done   chan struct{}
	stop   sync.Once
}

func NewPoller(fetch Fetcher, sessionID string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		fetch:     fetch,
		sessionID: sessionID,
		interval:  interval,
		snapshots: make(chan Snapshot, 1),
		dismissed: make(map[string]struct{}),
		done:      make(chan struct{}),
	}
}

// Snapshots is the delivery channel. It is closed after Stop returns.
func (p *Poller) Snapshots() <-chan Snapshot { return p.snapshots }

// Start begins polling. The first fetch happens immediately, before the
// first tick. Polling ends when ctx is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	go p.run(ctx)
}

// Stop cancels polling and waits for the loop to exit. After Stop returns
// no further snapshot is delivered and the channel is closed. Safe to call
// more than once.
func (p *Poller) Stop() {
	p.stop.Do(func() {
		p.mu.Lock()
		cancel := p.cancel
		started := p.started
		p.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		if started {
			<-p.done
		}
		close(p.snapshots)
	})
}

// RecordLocal registers a message this client just sent so the transcript
// keeps showing it until the server echoes it back in a fetched snapshot.
func (p *Poller) RecordLocal(m chat.Message) {
	p.mu.Lock()
	p.last.Messages = append(p.last.Messages, m)
	p.mu.Unlock()
}

// Dismiss suppresses a ringing call locally without rejecting it on the
// server. The call keeps ringing for the caller and on the user's other
// devices; this device just stops surfacing it.
func (p *Poller) Dismiss(sessionID string) {
	p.mu.Lock()
	p.dismissed[sessionID] = struct{}{}
	p.mu.Unlock()
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	remote, err := p.fetchOnce(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("poll tick failed, retrying next interval",
			"session_id", p.sessionID, "err", err)
		return
	}

	p.mu.Lock()
	merged := Merge(p.last, remote)
	merged.Ringing = p.filterDismissedLocked(merged.Ringing)
	p.last = merged
	p.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	p.deliver(merged)
}

func (p *Poller) fetchOnce(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	if p.sessionID != "" {
		sess, err := p.fetch.FetchSession(ctx, p.sessionID)
		if err != nil {
			return Snapshot{}, err
		}
		snap.Session = sess

		msgs, err := p.fetch.FetchMessages(ctx, p.sessionID)
		if err != nil {
			return Snapshot{}, err
		}
		snap.Messages = msgs
	}

	ringing, err := p.fetch.FetchRinging(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Ringing = ringing
	return snap, nil
}

func (p *Poller) filterDismissedLocked(calls []sessions.IncomingCall) []sessions.IncomingCall {
	if len(p.dismissed) == 0 {
		return calls
	}
	kept := calls[:0]
	for _, c := range calls {
		if _, ok := p.dismissed[c.SessionID]; ok {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// deliver replaces the stale pending snapshot when the consumer has not
// drained the channel since the previous tick.
func (p *Poller) deliver(s Snapshot) {
	for {
		select {
		case p.snapshots <- s:
			return
		default:
		}
		select {
		case <-p.snapshots:
		default:
		}
	}
}
