package services

import (
	"context"
	"fmt"
	"strings"

	"debatetimer/db"
	"debatetimer/internal/clock"
	"debatetimer/internal/events"
	"debatetimer/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	suggestionContextSize = 5
	suggestionListLimit   = 10
	fallbackSuggestion    = "Unable to generate a suggestion right now, please try again later."
)

var suggestionFocus = map[string]string{
	models.SuggestionArgument: "argument",
	models.SuggestionLogic:    "logic",
	models.SuggestionData:     "supporting data",
	models.SuggestionRebuttal: "rebuttal",
	models.SuggestionGeneral:  "general",
}

// SuggestionRequest asks for a coaching hint. Target defaults to the side
// holding the floor.
type SuggestionRequest struct {
	Type   string `json:"type"`
	Target string `json:"target,omitempty" binding:"omitempty,oneof=affirmative negative"`
}

// SuggestionService generates and stores AI coaching hints.
type SuggestionService struct {
	repo     db.Repository
	debates  *DebateService
	gen      Generator
	notifier Notifier
	clock    clockwork.Clock
}

func NewSuggestionService(repo db.Repository, debates *DebateService, gen Generator, notifier Notifier, c clockwork.Clock) *SuggestionService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if c == nil {
		c = clockwork.NewRealClock()
	}
	return &SuggestionService{repo: repo, debates: debates, gen: gen, notifier: notifier, clock: c}
}

// Suggest generates a suggestion from the recent transcripts. A failed
// generation is stored as fallback content instead of an error.
func (s *SuggestionService) Suggest(ctx context.Context, debateID string, req SuggestionRequest) (*models.Suggestion, error) {
	typ := req.Type
	if typ == "" {
		typ = models.SuggestionGeneral
	}
	if !models.ValidSuggestionType(typ) {
		return nil, fmt.Errorf("%w: unknown suggestion type %q", ErrInvalidDebate, typ)
	}

	debate, err := s.repo.GetDebate(ctx, debateID)
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.RecentTranscripts(ctx, debateID, suggestionContextSize)
	if err != nil {
		return nil, err
	}

	phase, activeKey := s.debates.currentContext(debate, "")
	target := req.Target
	if target == "" {
		target = currentSide(phase, activeKey)
	}

	suggestion := &models.Suggestion{
		ID:        uuid.NewString(),
		DebateID:  debateID,
		Type:      typ,
		Target:    target,
		Timestamp: s.clock.Now(),
	}

	text, err := generate(ctx, s.gen, suggestionPrompt(debate, phase, target, typ, recent))
	if err != nil {
		log.Warn().Err(err).Str("debate_id", debateID).Msg("suggestion generation failed, using fallback")
		suggestion.Type = models.SuggestionGeneral
		suggestion.Content = fallbackSuggestion
		suggestion.Fallback = true
	} else {
		suggestion.Content = text
	}

	if err := s.repo.SaveSuggestion(ctx, suggestion); err != nil {
		return nil, err
	}
	if err := s.notifier.PublishPayload(ctx, debateID, events.TypeSuggestionAdded, events.SuggestionPayload{
		ID:      suggestion.ID,
		Type:    suggestion.Type,
		Content: suggestion.Content,
	}); err != nil {
		log.Warn().Err(err).Str("debate_id", debateID).Msg("notify suggestion")
	}
	return suggestion, nil
}

// List returns the latest suggestions of a debate, newest first.
func (s *SuggestionService) List(ctx context.Context, debateID string) ([]models.Suggestion, error) {
	if _, err := s.repo.GetDebate(ctx, debateID); err != nil {
		return nil, err
	}
	return s.repo.ListSuggestions(ctx, debateID, suggestionListLimit)
}

// currentSide is the side a phase or floor holder speaks for, or "" when
// both sides share the phase.
func currentSide(p clock.Phase, activeKey string) string {
	switch p.SpeakerMode {
	case clock.SpeakerAffirmative:
		return clock.SideAffirmative
	case clock.SpeakerNegative:
		return clock.SideNegative
	}
	if activeKey == "" || activeKey == clock.SingleKey {
		return ""
	}
	return clock.AttributeSpeaker(p, activeKey, 0)
}

func sideLabel(debate *models.Debate, side string) string {
	switch side {
	case clock.SideAffirmative:
		if debate.Affirmative != "" {
			return "Affirmative (" + debate.Affirmative + ")"
		}
		return "Affirmative"
	case clock.SideNegative:
		if debate.Negative != "" {
			return "Negative (" + debate.Negative + ")"
		}
		return "Negative"
	}
	return "Both sides"
}

func transcriptLines(debate *models.Debate, transcripts []models.Transcript) string {
	var b strings.Builder
	for _, t := range transcripts {
		fmt.Fprintf(&b, "%s: %s\n", sideLabel(debate, t.Speaker), t.Text)
	}
	return b.String()
}

func suggestionPrompt(debate *models.Debate, phase clock.Phase, target, typ string, recent []models.Transcript) string {
	return fmt.Sprintf(`You are a debate coach. Give one short, concrete %s suggestion.

Motion: %s
Current phase: %s
Speaking side: %s

Recent speeches:
%s
Help %s gain the upper hand. Be specific and substantive, not generic. Reply with the suggestion text only.`,
		suggestionFocus[typ],
		debate.Topic,
		phase.Name,
		sideLabel(debate, target),
		transcriptLines(debate, recent),
		sideLabel(debate, target),
	)
}
