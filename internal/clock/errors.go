package clock

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfiguration  = errors.New("invalid clock configuration")
	ErrInvalidClockSelection = errors.New("invalid clock selection")
	ErrIllegalTransition     = errors.New("illegal transition")
)

// Refinements of ErrInvalidClockSelection.
var (
	ErrUnknownClock   = fmt.Errorf("%w: unknown clock key", ErrInvalidClockSelection)
	ErrNotSelectable  = fmt.Errorf("%w: phase has no selectable clocks", ErrInvalidClockSelection)
	ErrClockBusy      = fmt.Errorf("%w: another clock is running", ErrInvalidClockSelection)
	ErrClockExhausted = fmt.Errorf("%w: clock has no time left", ErrInvalidClockSelection)
)
