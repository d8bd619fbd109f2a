package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"debatetimer/db"
	"debatetimer/internal/clock"
	"debatetimer/internal/events"
	"debatetimer/internal/recording"
	"debatetimer/internal/session"
	"debatetimer/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidDebate   = errors.New("invalid debate")
	ErrEmptyTranscript = errors.New("transcript text is empty")
)

// Notifier pushes domain events to the clients of a debate.
type Notifier interface {
	PublishPayload(ctx context.Context, debateID, eventType string, payload interface{}) error
}

type nopNotifier struct{}

func (nopNotifier) PublishPayload(context.Context, string, string, interface{}) error { return nil }

// CreateDebateInput is the request to create a debate.
type CreateDebateInput struct {
	Topic       string        `json:"topic"`
	Mode        string        `json:"mode"`
	Affirmative string        `json:"affirmative"`
	Negative    string        `json:"negative"`
	Times       TimeSettings  `json:"times"`
	Phases      []clock.Phase `json:"phases,omitempty"`
}

// TranscriptInput is a finalized utterance to store. Empty fields are filled
// from the running session.
type TranscriptInput struct {
	Text     string `json:"text"`
	Speaker  string `json:"speaker,omitempty" binding:"omitempty,oneof=affirmative negative"`
	PhaseID  string `json:"phaseId,omitempty"`
	Duration int    `json:"duration"`
}

// DebateService owns debates, their timer sessions and their transcripts.
type DebateService struct {
	repo       db.Repository
	sessions   *session.Manager
	recordings *recording.Registry
	notifier   Notifier
	clock      clockwork.Clock
}

func NewDebateService(repo db.Repository, sessions *session.Manager, recordings *recording.Registry, notifier Notifier, c clockwork.Clock) *DebateService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if c == nil {
		c = clockwork.NewRealClock()
	}
	return &DebateService{
		repo:       repo,
		sessions:   sessions,
		recordings: recordings,
		notifier:   notifier,
		clock:      c,
	}
}

func (s *DebateService) Create(ctx context.Context, in CreateDebateInput) (*models.Debate, error) {
	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", ErrInvalidDebate)
	}
	mode := in.Mode
	if mode == "" {
		mode = models.FormatStandard
	}
	phases, err := BuildPhases(mode, in.Times, in.Phases)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	debate := &models.Debate{
		ID:          uuid.NewString(),
		Topic:       topic,
		Mode:        mode,
		Affirmative: strings.TrimSpace(in.Affirmative),
		Negative:    strings.TrimSpace(in.Negative),
		Status:      models.StatusCreated,
		Phases:      models.WrapPhases(phases),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateDebate(ctx, debate); err != nil {
		return nil, err
	}
	log.Info().Str("debate_id", debate.ID).Str("mode", mode).Msg("debate created")
	return debate, nil
}

func (s *DebateService) Get(ctx context.Context, id string) (*models.Debate, error) {
	return s.repo.GetDebate(ctx, id)
}

func (s *DebateService) List(ctx context.Context, filter models.DebateFilter) ([]models.Debate, error) {
	return s.repo.ListDebates(ctx, filter)
}

func (s *DebateService) Update(ctx context.Context, id string, update models.DebateUpdate) (*models.Debate, error) {
	if update.Topic != nil && strings.TrimSpace(*update.Topic) == "" {
		return nil, fmt.Errorf("%w: topic is required", ErrInvalidDebate)
	}
	return s.repo.UpdateDebate(ctx, id, update)
}

// Delete removes a debate, aborting its session first.
func (s *DebateService) Delete(ctx context.Context, id string) error {
	if err := s.sessions.Stop(id); err != nil && !errors.Is(err, session.ErrNoSession) {
		return err
	}
	if s.recordings != nil {
		s.recordings.Discard(id)
	}
	return s.repo.DeleteDebate(ctx, id)
}

// StartSession starts the timer of a debate on its stored phases.
func (s *DebateService) StartSession(ctx context.Context, id string) (*session.Session, error) {
	debate, err := s.repo.GetDebate(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.sessions.Start(debate.ID, debate.ClockPhases())
}

// Session returns the timer session of a debate.
func (s *DebateService) Session(id string) (*session.Session, error) {
	return s.sessions.Get(id)
}

// StopSession aborts the timer of a debate.
func (s *DebateService) StopSession(id string) error {
	return s.sessions.Stop(id)
}

// currentContext returns the phase and floor holder a new transcript belongs
// to: the live session when there is one, else the last started phase.
func (s *DebateService) currentContext(debate *models.Debate, phaseID string) (clock.Phase, string) {
	if sess, err := s.sessions.Get(debate.ID); err == nil {
		p, key := sess.Context()
		if phaseID == "" || phaseID == p.ID {
			return p, key
		}
	}
	var last *models.DebatePhase
	for i := range debate.Phases {
		p := &debate.Phases[i]
		if phaseID != "" && p.ID == phaseID {
			return p.Phase, ""
		}
		if p.StartedAt != nil {
			last = p
		}
	}
	if last != nil {
		return last.Phase, ""
	}
	if len(debate.Phases) > 0 {
		return debate.Phases[0].Phase, ""
	}
	return clock.Phase{ID: phaseID}, ""
}

// SaveTranscript stores a finalized utterance and updates the statistics. A
// transcript without a speaker is attributed from the sequence number the
// repository reserves for it.
func (s *DebateService) SaveTranscript(ctx context.Context, debateID string, in TranscriptInput) (*models.Transcript, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrEmptyTranscript
	}
	debate, err := s.repo.GetDebate(ctx, debateID)
	if err != nil {
		return nil, err
	}
	phase, activeKey := s.currentContext(debate, in.PhaseID)

	t := &models.Transcript{
		ID:        uuid.NewString(),
		DebateID:  debateID,
		PhaseID:   phase.ID,
		PhaseName: phase.Name,
		Speaker:   in.Speaker,
		Text:      text,
		Duration:  in.Duration,
		Timestamp: s.clock.Now(),
	}
	attribute := func(seq int) string { return clock.AttributeSpeaker(phase, activeKey, seq) }
	if err := s.repo.AddTranscript(ctx, t, attribute); err != nil {
		return nil, err
	}

	if err := s.notifier.PublishPayload(ctx, debateID, events.TypeTranscriptAdded, events.TranscriptPayload{
		ID:       t.ID,
		Speaker:  t.Speaker,
		PhaseID:  t.PhaseID,
		Text:     t.Text,
		Duration: t.Duration,
	}); err != nil {
		log.Warn().Err(err).Str("debate_id", debateID).Msg("notify transcript")
	}
	return t, nil
}

func (s *DebateService) Transcripts(ctx context.Context, debateID string) ([]models.Transcript, error) {
	if _, err := s.repo.GetDebate(ctx, debateID); err != nil {
		return nil, err
	}
	return s.repo.ListTranscripts(ctx, debateID)
}

// StartRecording opens a recording tagged with the current phase. An empty
// speaker is attributed when the recording stops.
func (s *DebateService) StartRecording(ctx context.Context, debateID, speaker string) (recording.Status, error) {
	debate, err := s.repo.GetDebate(ctx, debateID)
	if err != nil {
		return recording.Status{}, err
	}
	phase, _ := s.currentContext(debate, "")
	if _, err := s.recordings.Start(debateID, speaker, phase.ID); err != nil {
		return recording.Status{}, err
	}
	st, _ := s.recordings.Status(debateID)
	return st, nil
}

// AppendRecording adds recognizer output to the open recording.
func (s *DebateService) AppendRecording(debateID, text string, final bool) (recording.Status, error) {
	if err := s.recordings.AppendInterim(debateID, text, final); err != nil {
		return recording.Status{}, err
	}
	st, _ := s.recordings.Status(debateID)
	return st, nil
}

// StopRecording closes the open recording and stores it as a transcript.
func (s *DebateService) StopRecording(ctx context.Context, debateID string) (*models.Transcript, error) {
	res, err := s.recordings.Finish(debateID)
	if err != nil {
		return nil, err
	}
	return s.SaveTranscript(ctx, debateID, TranscriptInput{
		Text:     res.Text,
		Speaker:  res.Speaker,
		PhaseID:  res.PhaseID,
		Duration: res.DurationSeconds,
	})
}

const bookkeepingTimeout = 5 * time.Second

// HandleEvent keeps the stored phase and debate marks in step with the timer.
func (s *DebateService) HandleEvent(ctx context.Context, ev session.Event) {
	ctx, cancel := context.WithTimeout(ctx, bookkeepingTimeout)
	defer cancel()

	var errs []error
	switch ev.Type {
	case session.EventSessionStarted:
		errs = append(errs,
			s.repo.MarkDebateStarted(ctx, ev.DebateID, ev.At),
			s.repo.MarkPhaseStarted(ctx, ev.DebateID, ev.Snapshot.PhaseID, ev.At))
	case session.EventPhaseChanged:
		if ev.From != nil {
			errs = append(errs, s.repo.MarkPhaseEnded(ctx, ev.DebateID, ev.From.ID, ev.At))
		}
		if ev.To != nil {
			errs = append(errs, s.repo.MarkPhaseStarted(ctx, ev.DebateID, ev.To.ID, ev.At))
		}
	case session.EventSessionEnded:
		if ev.From != nil {
			errs = append(errs, s.repo.MarkPhaseEnded(ctx, ev.DebateID, ev.From.ID, ev.At))
		}
		errs = append(errs, s.repo.MarkDebateEnded(ctx, ev.DebateID, ev.At))
	default:
		return
	}

	if err := errors.Join(errs...); err != nil {
		log.Error().Err(err).Str("debate_id", ev.DebateID).Str("event", string(ev.Type)).Msg("record session transition")
	}
}
