package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"debatetimer/internal/clock"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	defaultTickInterval = time.Second
	eventBufferSize     = 256
)

// Option configures a Session.
type Option func(*Session)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(s *Session) { s.wall = c }
}

// WithInterval changes how often the running countdown is decremented.
func WithInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithObservers registers observers for every event of the session.
func WithObservers(obs ...Observer) Option {
	return func(s *Session) { s.observers = append(s.observers, obs...) }
}

// WithClockOptions forwards options to the underlying debate clock.
func WithClockOptions(opts ...clock.Option) Option {
	return func(s *Session) { s.clockOpts = append(s.clockOpts, opts...) }
}

// Session serializes every mutation of one debate clock. User actions and the
// periodic tick take the same mutex, so a pause is effective before the call
// returns.
type Session struct {
	debateID  string
	wall      clockwork.Clock
	interval  time.Duration
	observers []Observer
	clockOpts []clock.Option

	mu     sync.Mutex
	state  *clock.Clock
	closed bool

	events     chan Event
	done       chan struct{}
	dispatched chan struct{}
	startOnce  sync.Once
}

// New validates the phases and builds a session that has not started ticking.
func New(debateID string, phases []clock.Phase, opts ...Option) (*Session, error) {
	s := &Session{
		debateID:   debateID,
		wall:       clockwork.NewRealClock(),
		interval:   defaultTickInterval,
		events:     make(chan Event, eventBufferSize),
		done:       make(chan struct{}),
		dispatched: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	state, err := clock.New(phases, s.clockOpts...)
	if err != nil {
		return nil, err
	}
	s.state = state
	return s, nil
}

// DebateID returns the debate the session times.
func (s *Session) DebateID() string { return s.debateID }

// Start launches the tick loop and the event dispatcher. It is a no-op after
// the first call.
func (s *Session) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go s.dispatch(context.WithoutCancel(ctx))

		s.mu.Lock()
		s.emitLocked(Event{Type: EventSessionStarted})
		s.mu.Unlock()

		go s.run(ctx)
	})
}

func (s *Session) run(ctx context.Context) {
	ticker := s.wall.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.Chan():
			s.Tick()
		}
	}
}

func (s *Session) dispatch(ctx context.Context) {
	defer close(s.dispatched)
	for ev := range s.events {
		for _, o := range s.observers {
			o.HandleEvent(ctx, ev)
		}
	}
}

// emitLocked queues an event. Tick updates are dropped when observers lag;
// transitions are never dropped.
func (s *Session) emitLocked(ev Event) {
	if s.closed {
		return
	}
	ev.DebateID = s.debateID
	ev.Snapshot = s.state.Snapshot()
	ev.At = s.wall.Now()

	if ev.Type == EventStateChanged {
		select {
		case s.events <- ev:
		default:
			log.Warn().Str("debate_id", s.debateID).Msg("dropping clock state event, observers are lagging")
		}
		return
	}
	s.events <- ev
}

// finishLocked emits the terminal event and stops the session.
func (s *Session) finishLocked(ev Event) {
	if s.closed {
		return
	}
	s.emitLocked(ev)
	s.closed = true
	close(s.events)
	close(s.done)
}

// Tick applies one interval to the running clock.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.state.Paused() {
		return
	}
	key := s.state.Snapshot().ActiveKey
	if s.state.Tick() {
		s.emitLocked(Event{Type: EventClockExpired, Key: key})
		return
	}
	s.emitLocked(Event{Type: EventStateChanged})
}

// TogglePause pauses or resumes the running clock.
func (s *Session) TogglePause() (clock.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.state.TogglePause(); err != nil {
		return s.state.Snapshot(), err
	}
	s.emitLocked(Event{Type: EventStateChanged})
	return s.state.Snapshot(), nil
}

// Select hands the floor to a clock of the current phase.
func (s *Session) Select(key string) (clock.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.state.SelectClock(key); err != nil {
		return s.state.Snapshot(), err
	}
	s.emitLocked(Event{Type: EventStateChanged})
	return s.state.Snapshot(), nil
}

// Advance moves to the next phase, ending the session after the last one.
func (s *Session) Advance() (clock.AdvanceResult, clock.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.state.AdvancePhase()
	if err != nil {
		return res, s.state.Snapshot(), err
	}
	from := res.From
	if res.Ended {
		s.finishLocked(Event{Type: EventSessionEnded, From: &from})
	} else {
		s.emitLocked(Event{Type: EventPhaseChanged, From: &from, To: res.To})
	}
	return res, s.state.Snapshot(), nil
}

// Abort ends the session before its last phase completed.
func (s *Session) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Abort() {
		return ErrSessionEnded
	}
	from := s.state.CurrentPhase()
	s.finishLocked(Event{Type: EventSessionEnded, From: &from, Aborted: true})
	return nil
}

// Snapshot returns the current clock state.
func (s *Session) Snapshot() clock.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Snapshot()
}

// Context returns the current phase and the clock holding the floor, which
// transcripts are tagged with.
func (s *Session) Context() (clock.Phase, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentPhase(), s.state.ActiveKey()
}

// Ended reports whether the session reached its terminal state.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Ended()
}

// Wait blocks until every event of an ended session has been dispatched.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.dispatched:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var ErrSessionEnded = errors.New("session already ended")
