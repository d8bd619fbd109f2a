package recording

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"debatetimer/internal/session"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

var (
	ErrAlreadyRecording = errors.New("a recording is already in progress for this debate")
	ErrNotRecording     = errors.New("no recording in progress for this debate")
)

// Result is a finalized recording ready to be stored as a transcript.
type Result struct {
	ID              string    `json:"id"`
	Text            string    `json:"text"`
	Speaker         string    `json:"speaker,omitempty"`
	PhaseID         string    `json:"phaseId"`
	StartedAt       time.Time `json:"startedAt"`
	DurationSeconds int       `json:"durationSeconds"`
}

// Status describes a recording still in progress.
type Status struct {
	ID        string    `json:"id"`
	Speaker   string    `json:"speaker,omitempty"`
	PhaseID   string    `json:"phaseId"`
	StartedAt time.Time `json:"startedAt"`
	Committed string    `json:"committed"`
	Interim   string    `json:"interim"`
}

type recording struct {
	id        string
	speaker   string
	phaseID   string
	startedAt time.Time
	committed strings.Builder
	interim   string
}

// Registry tracks at most one in-flight recording per debate.
type Registry struct {
	clock clockwork.Clock

	mu     sync.Mutex
	active map[string]*recording
}

func NewRegistry(c clockwork.Clock) *Registry {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	return &Registry{clock: c, active: make(map[string]*recording)}
}

// Start opens a recording. An empty speaker is resolved when the transcript
// is saved.
func (r *Registry) Start(debateID, speaker, phaseID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.active[debateID]; ok {
		return "", ErrAlreadyRecording
	}
	rec := &recording{
		id:        uuid.NewString(),
		speaker:   speaker,
		phaseID:   phaseID,
		startedAt: r.clock.Now(),
	}
	r.active[debateID] = rec
	return rec.id, nil
}

// AppendInterim records recognizer output. Final segments are kept; a
// non-final segment replaces the previous non-final one.
func (r *Registry) AppendInterim(debateID, text string, final bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.active[debateID]
	if !ok {
		return ErrNotRecording
	}
	if !final {
		rec.interim = text
		return nil
	}
	text = strings.TrimSpace(text)
	if text != "" {
		rec.committed.WriteString(text)
		rec.committed.WriteByte(' ')
	}
	rec.interim = ""
	return nil
}

// Status returns the in-flight recording of a debate.
func (r *Registry) Status(debateID string) (Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.active[debateID]
	if !ok {
		return Status{}, false
	}
	return Status{
		ID:        rec.id,
		Speaker:   rec.speaker,
		PhaseID:   rec.phaseID,
		StartedAt: rec.startedAt,
		Committed: strings.TrimSpace(rec.committed.String()),
		Interim:   rec.interim,
	}, true
}

// Finish closes the recording. The text is the committed segments, or the
// pending interim text when nothing was committed.
func (r *Registry) Finish(debateID string) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.active[debateID]
	if !ok {
		return Result{}, ErrNotRecording
	}
	delete(r.active, debateID)

	text := strings.TrimSpace(rec.committed.String())
	if text == "" {
		text = strings.TrimSpace(rec.interim)
	}
	return Result{
		ID:              rec.id,
		Text:            text,
		Speaker:         rec.speaker,
		PhaseID:         rec.phaseID,
		StartedAt:       rec.startedAt,
		DurationSeconds: int(r.clock.Since(rec.startedAt) / time.Second),
	}, nil
}

// Discard drops a recording without producing a result.
func (r *Registry) Discard(debateID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.active[debateID]; !ok {
		return false
	}
	delete(r.active, debateID)
	return true
}

// HandleEvent stops recordings that outlive their phase.
func (r *Registry) HandleEvent(_ context.Context, ev session.Event) {
	switch ev.Type {
	case session.EventPhaseChanged, session.EventSessionEnded:
		if r.Discard(ev.DebateID) {
			log.Info().Str("debate_id", ev.DebateID).Str("event", string(ev.Type)).Msg("discarded in-flight recording")
		}
	}
}
