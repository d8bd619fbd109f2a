package models

import (
	"time"

	"debatetimer/internal/clock"
)

// Debate formats.
const (
	FormatStandard = "standard"
	FormatFree     = "free"
	FormatQA       = "qa"
	FormatCustom   = "custom"
)

// Debate status values.
const (
	StatusCreated    = "created"
	StatusInProgress = "in_progress"
	StatusEnded      = "ended"
)

// DebatePhase is a timed phase as stored with its debate.
type DebatePhase struct {
	clock.Phase `bson:",inline"`
	StartedAt   *time.Time `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	EndedAt     *time.Time `bson:"endedAt,omitempty" json:"endedAt,omitempty"`
}

// Debate defines a single debate record
type Debate struct {
	ID              string        `bson:"_id" json:"id"`
	Topic           string        `bson:"topic" json:"topic"`
	Mode            string        `bson:"mode" json:"mode"`
	Affirmative     string        `bson:"affirmative" json:"affirmative"`
	Negative        string        `bson:"negative" json:"negative"`
	Status          string        `bson:"status" json:"status"`
	Phases          []DebatePhase `bson:"phases" json:"phases"`
	Statistics      Statistics    `bson:"statistics" json:"statistics"`
	TranscriptCount int           `bson:"transcriptCount" json:"transcriptCount"`
	NextSeq         int           `bson:"nextSeq" json:"-"`
	CreatedAt       time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time     `bson:"updatedAt" json:"updatedAt"`
	StartedAt       *time.Time    `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	EndedAt         *time.Time    `bson:"endedAt,omitempty" json:"endedAt,omitempty"`
}

// ClockPhases returns the phase configuration the timer runs on.
func (d *Debate) ClockPhases() []clock.Phase {
	out := make([]clock.Phase, len(d.Phases))
	for i, p := range d.Phases {
		out[i] = p.Phase
	}
	return out
}

// WrapPhases turns timer phases into stored phases with no marks.
func WrapPhases(phases []clock.Phase) []DebatePhase {
	out := make([]DebatePhase, len(phases))
	for i, p := range phases {
		out[i] = DebatePhase{Phase: p}
	}
	return out
}

// DebateUpdate holds the editable fields of a debate. Nil fields are left as is.
type DebateUpdate struct {
	Topic       *string `json:"topic,omitempty"`
	Affirmative *string `json:"affirmative,omitempty"`
	Negative    *string `json:"negative,omitempty"`
}

// DebateFilter narrows a debate listing.
type DebateFilter struct {
	Status string
	Limit  int64
	Skip   int64
}
