package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// RoomState is the caller-visible media lifecycle.
//
//	Idle → Joining → Joined → Left | Errored
//
// Joined is reached only when the provider emits EventJoined; the Join call
// returning says nothing about media actually flowing, so UI "connecting"
// state must derive from this machine, never from the call resolving.
type RoomState string

const (
	StateIdle    RoomState = "idle"
	StateJoining RoomState = "joining"
	StateJoined  RoomState = "joined"
	StateLeft    RoomState = "left"
	StateErrored RoomState = "errored"
)

type EventType string

const (
	EventJoining           EventType = "joining"
	EventJoined            EventType = "joined"
	EventParticipantJoined EventType = "participant_joined"
	EventParticipantLeft   EventType = "participant_left"
	EventLeft              EventType = "left"
	EventError             EventType = "error"
)

// Event is one provider lifecycle notification.
type Event struct {
	Type          EventType
	ParticipantID string
	Err           error
}

// ErrQueueFull reports a dropped provider event. Dropping is preferable to
// blocking the media callback thread; the next snapshot poll repairs state.
var ErrQueueFull = errors.New("transport: event queue full")

const eventQueueSize = 32

// RoomSession is the client-side join lifecycle for one room.
//
// Provider callbacks push events through Deliver; a single consumer drains
// them via Next, which applies state transitions in arrival order. Funneling
// both transport events and poll-derived decisions through one consumer keeps
// reconciliation ordered.
type RoomSession struct {
	mu    sync.Mutex
	state RoomState
	room  Room

	videoOn bool
	audioOn bool

	events chan Event
	closed bool
}

func NewRoomSession() *RoomSession {
	return &RoomSession{
		state:   StateIdle,
		videoOn: true,
		audioOn: true,
		events:  make(chan Event, eventQueueSize),
	}
}

func (r *RoomSession) State() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *RoomSession) Room() Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.room
}

// Join moves Idle → Joining and records the room handle. The transition to
// Joined happens only when the provider's joined event is consumed.
func (r *RoomSession) Join(ctx context.Context, room Room, token MeetingToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if token.Token == "" {
		return fmt.Errorf("%w: token required", ErrTransport)
	}

	r.mu.Lock()
	if r.state != StateIdle {
		st := r.state
		r.mu.Unlock()
		return fmt.Errorf("%w: join from state %q", ErrTransport, st)
	}
	r.state = StateJoining
	r.room = room
	r.mu.Unlock()

	// Self-delivered so the consumer observes the joining edge in order.
	_ = r.Deliver(Event{Type: EventJoining})
	return nil
}

// Leave requests a local departure. Terminal states absorb it.
func (r *RoomSession) Leave() {
	r.mu.Lock()
	if r.state == StateLeft || r.state == StateErrored || r.state == StateIdle {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	_ = r.Deliver(Event{Type: EventLeft})
}

// Destroy tears the session down; no event is delivered afterwards.
func (r *RoomSession) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	close(r.events)
	if r.state == StateJoining || r.state == StateJoined {
		r.state = StateLeft
	}
}

func (r *RoomSession) SetLocalVideo(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.videoOn = on
}

func (r *RoomSession) SetLocalAudio(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audioOn = on
}

func (r *RoomSession) LocalVideo() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.videoOn
}

func (r *RoomSession) LocalAudio() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.audioOn
}

// Deliver enqueues a provider event without blocking. Returns ErrQueueFull
// when the bounded queue is saturated; the event is dropped.
//
// The send happens under the same lock as the closed check: Destroy closes
// the channel while holding the lock, so a concurrent callback must never
// observe closed=false and then race the close. The send is non-blocking,
// holding the mutex across it is safe.
func (r *RoomSession) Deliver(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}

	select {
	case r.events <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Next blocks for the next event, applies its state transition and returns
// it. Returns ctx.Err() on cancellation and io-style closed behavior (ok
// false) once Destroy has drained.
func (r *RoomSession) Next(ctx context.Context) (Event, bool, error) {
	select {
	case <-ctx.Done():
		return Event{}, false, ctx.Err()
	case ev, ok := <-r.events:
		if !ok {
			return Event{}, false, nil
		}
		r.apply(ev)
		return ev, true, nil
	}
}

// apply enforces the lifecycle. Transitions out of terminal states are
// ignored; participant events do not change the join state.
func (r *RoomSession) apply(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateLeft || r.state == StateErrored {
		return
	}

	switch ev.Type {
	case EventJoining:
		if r.state == StateIdle {
			r.state = StateJoining
		}
	case EventJoined:
		if r.state == StateJoining {
			r.state = StateJoined
		}
	case EventLeft:
		r.state = StateLeft
	case EventError:
		r.state = StateErrored
	case EventParticipantJoined, EventParticipantLeft:
		// roster only; join state unchanged
	}
}
