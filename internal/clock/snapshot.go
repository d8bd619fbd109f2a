package clock

// ClockView is the read-only state of one countdown.
type ClockView struct {
	Key       string  `json:"key"`
	Side      string  `json:"side,omitempty"`
	Remaining int     `json:"remaining"`
	Allotment int     `json:"allotment"`
	Formatted string  `json:"formatted"`
	Progress  float64 `json:"progress"`
	Active    bool    `json:"active"`
	Exhausted bool    `json:"exhausted"`
}

// Snapshot is what the UI renders once per tick or state change.
type Snapshot struct {
	PhaseIndex         int            `json:"phaseIndex"`
	PhaseCount         int            `json:"phaseCount"`
	PhaseID            string         `json:"phaseId"`
	PhaseName          string         `json:"phaseName"`
	SpeakerMode        SpeakerMode    `json:"speakerMode"`
	Layout             string         `json:"layout"`
	ActiveKey          string         `json:"activeKey,omitempty"`
	Remaining          int            `json:"remaining"`
	RemainingFormatted string         `json:"remainingFormatted"`
	ProgressFraction   float64        `json:"progressFraction"`
	IsPaused           bool           `json:"isPaused"`
	Ended              bool           `json:"ended"`
	Untimed            bool           `json:"untimed"`
	Clocks             []ClockView    `json:"clocks"`
	AnswerCounts       map[string]int `json:"answerCounts"`
}

// Snapshot captures the current state. The returned value shares nothing
// with the clock.
func (c *Clock) Snapshot() Snapshot {
	phase := c.phases[c.index]
	layout := c.layout()
	key := c.effectiveKey()

	s := Snapshot{
		PhaseIndex:       c.index,
		PhaseCount:       len(c.phases),
		PhaseID:          phase.ID,
		PhaseName:        phase.Name,
		SpeakerMode:      phase.SpeakerMode,
		Layout:           layout.Name(),
		ProgressFraction: c.ProgressFraction(),
		IsPaused:         c.paused,
		Ended:            c.ended,
		AnswerCounts:     make(map[string]int, len(c.answerCounts)),
	}
	if c.running() {
		s.ActiveKey = key
	} else if c.activeKey != "" {
		s.ActiveKey = c.activeKey
	}

	for _, k := range layout.Keys() {
		allot := c.allotment(k)
		view := ClockView{
			Key:       k,
			Remaining: c.remaining[k],
			Allotment: allot,
			Formatted: FormatClock(c.remaining[k]),
			Progress:  Fraction(c.remaining[k], allot),
			Active:    k == key && !c.paused,
			Exhausted: allot > 0 && c.remaining[k] <= 0,
		}
		switch l := layout.(type) {
		case Dual:
			view.Side = k
		case RoleBased:
			if role, ok := l.role(k); ok {
				view.Side = role.Side
			}
		}
		s.Clocks = append(s.Clocks, view)
	}

	if key != "" {
		s.Remaining = c.remaining[key]
		s.Untimed = c.allotment(key) == 0
	} else {
		// Nobody holds the floor: show a full clock.
		s.Remaining = c.allotment(layout.Keys()[0])
		s.Untimed = s.Remaining == 0
	}
	s.RemainingFormatted = FormatClock(s.Remaining)

	for role, n := range c.answerCounts {
		s.AnswerCounts[role] = n
	}
	return s
}
