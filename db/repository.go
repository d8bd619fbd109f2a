package db

import (
	"context"
	"errors"
	"time"

	"debatetimer/models"
)

var ErrNotFound = errors.New("not found")

// Attributor names the speaker of a transcript from its sequence number.
type Attributor func(seq int) string

// Repository stores debates and everything recorded during them.
type Repository interface {
	CreateDebate(ctx context.Context, debate *models.Debate) error
	GetDebate(ctx context.Context, id string) (*models.Debate, error)
	ListDebates(ctx context.Context, filter models.DebateFilter) ([]models.Debate, error)
	UpdateDebate(ctx context.Context, id string, update models.DebateUpdate) (*models.Debate, error)
	DeleteDebate(ctx context.Context, id string) error

	MarkDebateStarted(ctx context.Context, id string, at time.Time) error
	MarkDebateEnded(ctx context.Context, id string, at time.Time) error
	MarkPhaseStarted(ctx context.Context, debateID, phaseID string, at time.Time) error
	MarkPhaseEnded(ctx context.Context, debateID, phaseID string, at time.Time) error

	// AddTranscript reserves a sequence number for t, stores it and adds it
	// to the debate statistics. A transcript without a speaker is attributed
	// by attribute from the reserved number.
	AddTranscript(ctx context.Context, t *models.Transcript, attribute Attributor) error
	ListTranscripts(ctx context.Context, debateID string) ([]models.Transcript, error)
	// RecentTranscripts returns the last n transcripts, oldest first.
	RecentTranscripts(ctx context.Context, debateID string, n int) ([]models.Transcript, error)
	CountTranscripts(ctx context.Context, debateID string) (int, error)

	SaveSuggestion(ctx context.Context, s *models.Suggestion) error
	// ListSuggestions returns the newest suggestions first.
	ListSuggestions(ctx context.Context, debateID string, limit int) ([]models.Suggestion, error)
}

// addTranscript runs the steps of AddTranscript in order. Counters move only
// after the insert succeeded; a failed insert leaves a gap in the sequence.
func addTranscript(t *models.Transcript, attribute Attributor, reserve func() (int, error), insert, count func() error) error {
	seq, err := reserve()
	if err != nil {
		return err
	}
	t.Seq = seq
	if t.Speaker == "" && attribute != nil {
		t.Speaker = attribute(seq)
	}
	if err := insert(); err != nil {
		return err
	}
	return count()
}
