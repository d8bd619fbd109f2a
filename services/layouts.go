package services

import (
	"errors"
	"fmt"

	"debatetimer/internal/clock"
	"debatetimer/models"
)

var ErrUnknownFormat = errors.New("unknown debate format")

// TimeSettings are the per-phase durations in seconds chosen when a debate is
// created. Zero values take the defaults.
type TimeSettings struct {
	Prep       int `json:"prep"`
	Opening    int `json:"opening"`
	Debate     int `json:"debate"`
	Free       int `json:"free"`
	Conclusion int `json:"conclusion"`
	Total      int `json:"total"`
	Closing    int `json:"closing"`
}

// DefaultTimeSettings are the durations used when none are given.
func DefaultTimeSettings() TimeSettings {
	return TimeSettings{
		Prep:       120,
		Opening:    180,
		Debate:     900,
		Free:       300,
		Conclusion: 120,
		Total:      1800,
		Closing:    180,
	}
}

func (t TimeSettings) withDefaults() TimeSettings {
	d := DefaultTimeSettings()
	pick := func(v, def int) int {
		if v > 0 {
			return v
		}
		return def
	}
	return TimeSettings{
		Prep:       pick(t.Prep, d.Prep),
		Opening:    pick(t.Opening, d.Opening),
		Debate:     pick(t.Debate, d.Debate),
		Free:       pick(t.Free, d.Free),
		Conclusion: pick(t.Conclusion, d.Conclusion),
		Total:      pick(t.Total, d.Total),
		Closing:    pick(t.Closing, d.Closing),
	}
}

// qaFreeDebateSeconds is the free-debate allotment of the qa format when no
// free time is given.
const qaFreeDebateSeconds = 240

// BuildPhases returns the phase list of a debate format. The custom format
// validates and returns the given phases.
func BuildPhases(format string, settings TimeSettings, custom []clock.Phase) ([]clock.Phase, error) {
	t := settings.withDefaults()

	var phases []clock.Phase
	switch format {
	case models.FormatStandard, "":
		phases = []clock.Phase{
			{ID: "prep", Name: "Preparation", DurationSeconds: t.Prep, SpeakerMode: clock.SpeakerBoth, SharedClock: true},
			{ID: "opening_aff", Name: "Opening Statement (Affirmative)", DurationSeconds: t.Opening, SpeakerMode: clock.SpeakerAffirmative},
			{ID: "opening_neg", Name: "Opening Statement (Negative)", DurationSeconds: t.Opening, SpeakerMode: clock.SpeakerNegative},
			{ID: "debate", Name: "Cross-Examination", DurationSeconds: t.Debate, SpeakerMode: clock.SpeakerBoth},
			{ID: "free", Name: "Free Debate", DurationSeconds: t.Free, SpeakerMode: clock.SpeakerBoth},
			{ID: "conclusion_aff", Name: "Conclusion (Affirmative)", DurationSeconds: t.Conclusion, SpeakerMode: clock.SpeakerAffirmative},
			{ID: "conclusion_neg", Name: "Conclusion (Negative)", DurationSeconds: t.Conclusion, SpeakerMode: clock.SpeakerNegative},
		}
	case models.FormatFree:
		phases = []clock.Phase{
			{ID: "prep", Name: "Preparation", DurationSeconds: t.Prep, SpeakerMode: clock.SpeakerBoth, SharedClock: true},
			{ID: "free", Name: "Free Debate", DurationSeconds: t.Total, SpeakerMode: clock.SpeakerBoth},
			{ID: "conclusion_aff", Name: "Conclusion (Affirmative)", DurationSeconds: t.Conclusion, SpeakerMode: clock.SpeakerAffirmative},
			{ID: "conclusion_neg", Name: "Conclusion (Negative)", DurationSeconds: t.Conclusion, SpeakerMode: clock.SpeakerNegative},
		}
	case models.FormatQA:
		free := settings.Free
		if free <= 0 {
			free = qaFreeDebateSeconds
		}
		phases = []clock.Phase{
			{ID: "opening_aff", Name: "Opening (Affirmative)", DurationSeconds: t.Opening, SpeakerMode: clock.SpeakerAffirmative},
			{ID: "opening_neg", Name: "Opening (Negative)", DurationSeconds: t.Opening, SpeakerMode: clock.SpeakerNegative},
			{ID: "free_debate", Name: "Free Debate", DurationSeconds: free, SpeakerMode: clock.SpeakerBoth},
			{ID: "qa", Name: "Questions & Answers", DurationSeconds: 0, SpeakerMode: clock.SpeakerQA, Roles: clock.FourRoles},
			{ID: "closing_aff", Name: "Closing (Affirmative)", DurationSeconds: t.Closing, SpeakerMode: clock.SpeakerAffirmative},
			{ID: "closing_neg", Name: "Closing (Negative)", DurationSeconds: t.Closing, SpeakerMode: clock.SpeakerNegative},
		}
	case models.FormatCustom:
		if len(custom) == 0 {
			return nil, fmt.Errorf("%w: custom format needs phases", clock.ErrInvalidConfiguration)
		}
		return clock.Normalize(custom)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	for i := range phases {
		phases[i].Order = i
	}
	return phases, nil
}
