// Package clock implements the phased debate timer.
//
// A Clock walks a fixed sequence of phases. Ordinary phases run a single
// countdown; free-debate phases give each side an independent time bank; Q&A
// phases give each answering role a fixed allotment. At most one countdown
// decrements at a time. Clock is not safe for concurrent use: callers
// serialize access (see internal/session).
package clock

import (
	"fmt"
)

// Option configures a Clock.
type Option func(*Clock)

// WithAnswerAllotment sets the per-role allotment of Q&A clocks in seconds.
func WithAnswerAllotment(seconds int) Option {
	return func(c *Clock) {
		c.answerAllotment = seconds
	}
}

// Clock is the runtime state of one debate session.
type Clock struct {
	phases          []Phase
	layouts         []Layout
	answerAllotment int

	index        int
	remaining    map[string]int
	activeKey    string
	paused       bool
	ended        bool
	answerCounts map[string]int
}

// AdvanceResult describes a phase transition.
type AdvanceResult struct {
	From Phase
	// To is nil when the session ended.
	To    *Phase
	Ended bool
}

// New creates a paused clock positioned on the first phase.
func New(phases []Phase, opts ...Option) (*Clock, error) {
	sorted, err := Normalize(phases)
	if err != nil {
		return nil, err
	}
	c := &Clock{
		phases:          sorted,
		layouts:         make([]Layout, len(sorted)),
		answerAllotment: DefaultAnswerSeconds,
		remaining:       make(map[string]int),
		answerCounts:    make(map[string]int),
		paused:          true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.answerAllotment <= 0 {
		return nil, fmt.Errorf("%w: answer allotment must be positive, got %d", ErrInvalidConfiguration, c.answerAllotment)
	}
	for i, p := range sorted {
		c.layouts[i] = LayoutOf(p)
	}
	c.seed(0)
	return c, nil
}

func (c *Clock) layout() Layout {
	return c.layouts[c.index]
}

// allotment is the full time of key in the current phase.
func (c *Clock) allotment(key string) int {
	switch c.layout().(type) {
	case RoleBased:
		return c.answerAllotment
	default:
		return c.phases[c.index].DurationSeconds
	}
}

func (c *Clock) seed(index int) {
	c.index = index
	for _, key := range c.layout().Keys() {
		c.remaining[key] = c.allotment(key)
	}
}

func (c *Clock) effectiveKey() string {
	if _, ok := c.layout().(Single); ok {
		return SingleKey
	}
	return c.activeKey
}

func (c *Clock) running() bool {
	return !c.paused && c.effectiveKey() != ""
}

func (c *Clock) validKey(key string) bool {
	switch l := c.layout().(type) {
	case Dual:
		return l.has(key)
	case RoleBased:
		_, ok := l.role(key)
		return ok
	default:
		return key == SingleKey
	}
}

// SelectClock hands the floor to the clock identified by key.
//
// In a free-debate phase a key can only start while no other side is
// running. In a Q&A phase selecting the active role stops it; starting a role
// counts as one answer.
func (c *Clock) SelectClock(key string) error {
	if c.ended {
		return fmt.Errorf("select %q: %w", key, ErrIllegalTransition)
	}
	switch l := c.layout().(type) {
	case Dual:
		if !l.has(key) {
			return fmt.Errorf("select %q: %w", key, ErrUnknownClock)
		}
		if c.running() {
			if c.activeKey == key {
				return nil
			}
			return fmt.Errorf("select %q: %w", key, ErrClockBusy)
		}
		if c.remaining[key] <= 0 {
			return fmt.Errorf("select %q: %w", key, ErrClockExhausted)
		}
		c.activeKey = key
		c.paused = false
	case RoleBased:
		if _, ok := l.role(key); !ok {
			return fmt.Errorf("select %q: %w", key, ErrUnknownClock)
		}
		if c.activeKey == key {
			c.activeKey = ""
			c.paused = true
			return nil
		}
		if c.running() {
			return fmt.Errorf("select %q: %w", key, ErrClockBusy)
		}
		if c.remaining[key] <= 0 {
			return fmt.Errorf("select %q: %w", key, ErrClockExhausted)
		}
		c.activeKey = key
		c.paused = false
		c.answerCounts[key]++
	default:
		return fmt.Errorf("select %q in phase %q: %w", key, c.phases[c.index].ID, ErrNotSelectable)
	}
	return nil
}

// TogglePause flips the paused flag of the running clock. Phases with
// selectable clocks ignore it until a clock has been selected.
func (c *Clock) TogglePause() error {
	if c.ended {
		return fmt.Errorf("toggle pause: %w", ErrIllegalTransition)
	}
	key := c.effectiveKey()
	if key == "" {
		return nil
	}
	if c.paused && c.remaining[key] <= 0 {
		return nil
	}
	c.paused = !c.paused
	return nil
}

// Tick applies one second to the running clock and reports whether that
// second exhausted it. Ticks while paused or ended are dropped.
func (c *Clock) Tick() bool {
	if c.ended || c.paused {
		return false
	}
	key := c.effectiveKey()
	if key == "" {
		return false
	}
	c.remaining[key]--
	if c.remaining[key] > 0 {
		return false
	}
	c.remaining[key] = 0
	c.paused = true
	c.activeKey = ""
	if _, ok := c.layout().(RoleBased); ok {
		// An expended answer clock is ready for the role's next answer.
		c.remaining[key] = c.answerAllotment
	}
	return true
}

// AdvancePhase moves to the next phase, or ends the session when the current
// phase is the last one. Advancing an ended session returns the terminal
// result together with ErrIllegalTransition.
func (c *Clock) AdvancePhase() (AdvanceResult, error) {
	from := c.phases[c.index]
	if c.ended {
		return AdvanceResult{From: from, Ended: true}, fmt.Errorf("advance: %w", ErrIllegalTransition)
	}
	c.paused = true
	c.activeKey = ""
	if c.index == len(c.phases)-1 {
		c.ended = true
		return AdvanceResult{From: from, Ended: true}, nil
	}
	c.seed(c.index + 1)
	to := c.phases[c.index]
	return AdvanceResult{From: from, To: &to}, nil
}

// Abort ends the session early. It reports false if it had already ended.
func (c *Clock) Abort() bool {
	if c.ended {
		return false
	}
	c.ended = true
	c.paused = true
	c.activeKey = ""
	return true
}

// ProgressFraction is the share of the effective clock's allotment left.
func (c *Clock) ProgressFraction() float64 {
	key := c.effectiveKey()
	if key == "" {
		return 1
	}
	return Fraction(c.remaining[key], c.allotment(key))
}

// Remaining returns the seconds left on key in the current phase.
func (c *Clock) Remaining(key string) (int, bool) {
	if !c.validKey(key) {
		return 0, false
	}
	return c.remaining[key], true
}

func (c *Clock) ActiveKey() string { return c.activeKey }

func (c *Clock) Paused() bool { return c.paused }

func (c *Clock) Ended() bool { return c.ended }

func (c *Clock) PhaseIndex() int { return c.index }

func (c *Clock) AnswerCount(role string) int { return c.answerCounts[role] }

// CurrentPhase returns the phase the clock is positioned on. After the
// session ended it is the last phase that ran.
func (c *Clock) CurrentPhase() Phase { return c.phases[c.index] }

// Phases returns the ordered phase sequence.
func (c *Clock) Phases() []Phase {
	return append([]Phase(nil), c.phases...)
}

// ValidKeys lists the clock-keys of the current phase.
func (c *Clock) ValidKeys() []string { return c.layout().Keys() }
