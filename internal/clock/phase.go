package clock

import (
	"fmt"
	"sort"
)

// SpeakerMode is the speaking-rights rule of a phase.
type SpeakerMode string

const (
	SpeakerAffirmative SpeakerMode = "affirmative"
	SpeakerNegative    SpeakerMode = "negative"
	SpeakerBoth        SpeakerMode = "both"
	SpeakerQA          SpeakerMode = "qa"
)

// Valid reports whether m is one of the known speaker modes.
func (m SpeakerMode) Valid() bool {
	switch m {
	case SpeakerAffirmative, SpeakerNegative, SpeakerBoth, SpeakerQA:
		return true
	}
	return false
}

const (
	SideAffirmative = "affirmative"
	SideNegative    = "negative"

	// SingleKey is the clock-key of every phase with one shared countdown.
	SingleKey = "single"

	// DefaultAnswerSeconds is the allotment of each Q&A role clock.
	DefaultAnswerSeconds = 40
)

// Role is one answering position of a Q&A phase.
type Role struct {
	ID   string `json:"id" bson:"id"`
	Side string `json:"side" bson:"side"`
}

// DefaultRoles is the role set used by Q&A phases that configure none.
var DefaultRoles = []Role{
	{ID: SideAffirmative, Side: SideAffirmative},
	{ID: SideNegative, Side: SideNegative},
}

// FourRoles is the second/third debater layout of the Q&A format.
var FourRoles = []Role{
	{ID: "aff2", Side: SideAffirmative},
	{ID: "aff3", Side: SideAffirmative},
	{ID: "neg2", Side: SideNegative},
	{ID: "neg3", Side: SideNegative},
}

// Phase is one segment of a debate timeline.
type Phase struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	DurationSeconds int         `json:"durationSeconds"`
	SpeakerMode     SpeakerMode `json:"speakerMode"`
	Order           int         `json:"order"`
	// SharedClock makes a "both" phase run one countdown for the two sides
	// instead of two independent time banks.
	SharedClock bool   `json:"sharedClock,omitempty"`
	Roles       []Role `json:"roles,omitempty"`
}

// Layout describes which clocks a phase runs. It is one of Single, Dual or
// RoleBased.
type Layout interface {
	Name() string
	Keys() []string
	isLayout()
}

// Single is a phase with one countdown under the "single" key.
type Single struct{}

// Dual is a free-debate phase: each side owns a time bank seeded with the
// phase duration.
type Dual struct {
	Sides []string
}

// RoleBased is a Q&A phase: each role owns a fixed answer allotment.
type RoleBased struct {
	Roles []Role
}

func (Single) Name() string    { return "single" }
func (Dual) Name() string      { return "dual" }
func (RoleBased) Name() string { return "roles" }

func (Single) Keys() []string { return []string{SingleKey} }

func (d Dual) Keys() []string {
	return append([]string(nil), d.Sides...)
}

func (r RoleBased) Keys() []string {
	keys := make([]string, 0, len(r.Roles))
	for _, role := range r.Roles {
		keys = append(keys, role.ID)
	}
	return keys
}

func (Single) isLayout()    {}
func (Dual) isLayout()      {}
func (RoleBased) isLayout() {}

func (d Dual) has(key string) bool {
	for _, side := range d.Sides {
		if side == key {
			return true
		}
	}
	return false
}

func (r RoleBased) role(key string) (Role, bool) {
	for _, role := range r.Roles {
		if role.ID == key {
			return role, true
		}
	}
	return Role{}, false
}

// LayoutOf returns the clock layout of a phase.
func LayoutOf(p Phase) Layout {
	switch p.SpeakerMode {
	case SpeakerBoth:
		if p.SharedClock {
			return Single{}
		}
		return Dual{Sides: []string{SideAffirmative, SideNegative}}
	case SpeakerQA:
		roles := p.Roles
		if len(roles) == 0 {
			roles = DefaultRoles
		}
		return RoleBased{Roles: append([]Role(nil), roles...)}
	default:
		return Single{}
	}
}

// Normalize returns the phases sorted by order after checking that they form
// a well-formed debate timeline.
func Normalize(phases []Phase) ([]Phase, error) {
	if len(phases) == 0 {
		return nil, fmt.Errorf("%w: no phases", ErrInvalidConfiguration)
	}
	sorted := make([]Phase, len(phases))
	copy(sorted, phases)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	ids := make(map[string]struct{}, len(sorted))
	for i, p := range sorted {
		if p.Order != i {
			return nil, fmt.Errorf("%w: phase orders must be contiguous from 0, found %d at position %d", ErrInvalidConfiguration, p.Order, i)
		}
		if p.ID == "" {
			return nil, fmt.Errorf("%w: phase %d has no id", ErrInvalidConfiguration, i)
		}
		if _, dup := ids[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate phase id %q", ErrInvalidConfiguration, p.ID)
		}
		ids[p.ID] = struct{}{}
		if p.DurationSeconds < 0 {
			return nil, fmt.Errorf("%w: phase %q has negative duration", ErrInvalidConfiguration, p.ID)
		}
		if !p.SpeakerMode.Valid() {
			return nil, fmt.Errorf("%w: phase %q has unknown speaker mode %q", ErrInvalidConfiguration, p.ID, p.SpeakerMode)
		}
		if err := checkRoles(p); err != nil {
			return nil, err
		}
	}
	return sorted, nil
}

func checkRoles(p Phase) error {
	if p.SpeakerMode != SpeakerQA && len(p.Roles) > 0 {
		return fmt.Errorf("%w: phase %q declares roles but is not a qa phase", ErrInvalidConfiguration, p.ID)
	}
	seen := make(map[string]struct{}, len(p.Roles))
	for _, role := range p.Roles {
		if role.ID == "" || role.ID == SingleKey {
			return fmt.Errorf("%w: phase %q has invalid role id %q", ErrInvalidConfiguration, p.ID, role.ID)
		}
		if role.Side != SideAffirmative && role.Side != SideNegative {
			return fmt.Errorf("%w: role %q has unknown side %q", ErrInvalidConfiguration, role.ID, role.Side)
		}
		if _, dup := seen[role.ID]; dup {
			return fmt.Errorf("%w: duplicate role %q in phase %q", ErrInvalidConfiguration, role.ID, p.ID)
		}
		seen[role.ID] = struct{}{}
	}
	return nil
}
