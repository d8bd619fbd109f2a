package models

import (
	"time"
)

// Transcript is one finalized utterance of a debate.
type Transcript struct {
	ID        string    `bson:"_id" json:"id"`
	DebateID  string    `bson:"debateId" json:"debateId"`
	Seq       int       `bson:"seq" json:"seq"`
	PhaseID   string    `bson:"phaseId" json:"phaseId"`
	PhaseName string    `bson:"phaseName" json:"phaseName"`
	Speaker   string    `bson:"speaker" json:"speaker"`
	Text      string    `bson:"text" json:"text"`
	Duration  int       `bson:"duration" json:"duration"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Suggestion types.
const (
	SuggestionArgument = "argument"
	SuggestionLogic    = "logic"
	SuggestionData     = "data"
	SuggestionRebuttal = "rebuttal"
	SuggestionGeneral  = "general"
)

// ValidSuggestionType reports whether t is a known suggestion type.
func ValidSuggestionType(t string) bool {
	switch t {
	case SuggestionArgument, SuggestionLogic, SuggestionData, SuggestionRebuttal, SuggestionGeneral:
		return true
	}
	return false
}

// Suggestion is an AI coaching hint stored with its debate.
type Suggestion struct {
	ID        string    `bson:"_id" json:"id"`
	DebateID  string    `bson:"debateId" json:"debateId"`
	Type      string    `bson:"type" json:"type"`
	Content   string    `bson:"content" json:"content"`
	Target    string    `bson:"target,omitempty" json:"target,omitempty"`
	Fallback  bool      `bson:"fallback,omitempty" json:"fallback,omitempty"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Highlight is the standout moment of a debate.
type Highlight struct {
	Content string `json:"content"`
	Speaker string `json:"speaker"`
	Phase   string `json:"phase"`
}

// Summary is the structured AI summary of a debate.
type Summary struct {
	Summary           string    `json:"summary"`
	AffirmativePoints []string  `json:"affirmativePoints"`
	NegativePoints    []string  `json:"negativePoints"`
	KeyIssues         []string  `json:"keyIssues"`
	Highlight         Highlight `json:"highlight"`
	Fallback          bool      `json:"fallback,omitempty"`
}
