package session

import (
	"context"
	"time"

	"debatetimer/internal/clock"
)

// EventType names a session transition.
type EventType string

const (
	EventSessionStarted EventType = "session.started"
	EventStateChanged   EventType = "clock.state"
	EventClockExpired   EventType = "clock.expired"
	EventPhaseChanged   EventType = "phase.changed"
	EventSessionEnded   EventType = "session.ended"
)

// Event is emitted after every change of a session's clock.
type Event struct {
	Type     EventType      `json:"type"`
	DebateID string         `json:"debateId"`
	Snapshot clock.Snapshot `json:"snapshot"`
	// From and To are set on phase changes. From is also set when the
	// session ends.
	From *clock.Phase `json:"from,omitempty"`
	To   *clock.Phase `json:"to,omitempty"`
	// Key is the clock that ran out on clock.expired.
	Key     string    `json:"key,omitempty"`
	Aborted bool      `json:"aborted,omitempty"`
	At      time.Time `json:"at"`
}

// Observer receives session events in emission order. HandleEvent runs on the
// session's dispatcher goroutine and must not call back into the session.
type Observer interface {
	HandleEvent(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) HandleEvent(ctx context.Context, ev Event) { f(ctx, ev) }
