package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"debatetimer/db"
	"debatetimer/models"

	"github.com/rs/zerolog/log"
)

var ErrNoTranscripts = errors.New("debate has no transcripts")

// SummaryService produces structured AI summaries of debates.
type SummaryService struct {
	repo db.Repository
	gen  Generator
}

func NewSummaryService(repo db.Repository, gen Generator) *SummaryService {
	return &SummaryService{repo: repo, gen: gen}
}

// Summarize summarizes every transcript of a debate. A failed or malformed
// generation yields fallback content.
func (s *SummaryService) Summarize(ctx context.Context, debateID string) (*models.Summary, error) {
	debate, err := s.repo.GetDebate(ctx, debateID)
	if err != nil {
		return nil, err
	}
	transcripts, err := s.repo.ListTranscripts(ctx, debateID)
	if err != nil {
		return nil, err
	}
	if len(transcripts) == 0 {
		return nil, ErrNoTranscripts
	}

	text, err := generate(ctx, s.gen, summaryPrompt(debate, transcripts))
	if err != nil {
		log.Warn().Err(err).Str("debate_id", debateID).Msg("summary generation failed, using fallback")
		return fallbackSummary(), nil
	}
	summary, err := parseSummary(text)
	if err != nil {
		log.Warn().Err(err).Str("debate_id", debateID).Msg("summary output malformed, using fallback")
		return fallbackSummary(), nil
	}
	return summary, nil
}

func parseSummary(text string) (*models.Summary, error) {
	var summary models.Summary
	if err := json.Unmarshal([]byte(text), &summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	if summary.Summary == "" && len(summary.AffirmativePoints) == 0 && len(summary.NegativePoints) == 0 {
		return nil, errors.New("summary is empty")
	}
	if summary.AffirmativePoints == nil {
		summary.AffirmativePoints = []string{}
	}
	if summary.NegativePoints == nil {
		summary.NegativePoints = []string{}
	}
	if summary.KeyIssues == nil {
		summary.KeyIssues = []string{}
	}
	return &summary, nil
}

func fallbackSummary() *models.Summary {
	return &models.Summary{
		Summary:           "A summary could not be generated for this debate.",
		AffirmativePoints: []string{"Unable to summarize the affirmative arguments"},
		NegativePoints:    []string{"Unable to summarize the negative arguments"},
		KeyIssues:         []string{"Unable to identify the key issues"},
		Highlight:         models.Highlight{Content: "Unable to extract a highlight"},
		Fallback:          true,
	}
}

func summaryPrompt(debate *models.Debate, transcripts []models.Transcript) string {
	return fmt.Sprintf(`You are a debate analyst. Summarize the debate below.

Motion: %s
Affirmative: %s
Negative: %s

Transcript:
%s
Respond with JSON only, in this shape:
{
  "summary": "one paragraph overview",
  "affirmativePoints": ["3 to 5 main affirmative arguments"],
  "negativePoints": ["3 to 5 main negative arguments"],
  "keyIssues": ["3 key points of contention"],
  "highlight": {"content": "the strongest quoted argument", "speaker": "affirmative or negative", "phase": "phase name"}
}`,
		debate.Topic,
		debate.Affirmative,
		debate.Negative,
		transcriptLines(debate, transcripts),
	)
}
