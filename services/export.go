package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"debatetimer/db"
	"debatetimer/internal/clock"
	"debatetimer/models"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// Export formats.
const (
	ExportTXT  = "txt"
	ExportJSON = "json"
	ExportCSV  = "csv"
)

type ExportOptions struct {
	Format             string
	IncludeStatistics  bool
	IncludeSuggestions bool
}

type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

var suggestionLabels = map[string]string{
	models.SuggestionArgument: "Argument suggestion",
	models.SuggestionLogic:    "Logic analysis",
	models.SuggestionData:     "Supporting data",
	models.SuggestionRebuttal: "Rebuttal suggestion",
	models.SuggestionGeneral:  "General suggestion",
}

var modeLabels = map[string]string{
	models.FormatStandard: "Standard",
	models.FormatFree:     "Free",
	models.FormatQA:       "Q&A",
	models.FormatCustom:   "Custom",
}

// ExportService renders a debate record for download.
type ExportService struct {
	repo db.Repository
}

func NewExportService(repo db.Repository) *ExportService {
	return &ExportService{repo: repo}
}

type exportData struct {
	debate      *models.Debate
	transcripts []models.Transcript
	suggestions []models.Suggestion
}

func (s *ExportService) Export(ctx context.Context, debateID string, opts ExportOptions) (*ExportResult, error) {
	if opts.Format == "" {
		opts.Format = ExportTXT
	}
	switch opts.Format {
	case ExportTXT, ExportJSON, ExportCSV:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, opts.Format)
	}

	debate, err := s.repo.GetDebate(ctx, debateID)
	if err != nil {
		return nil, err
	}
	transcripts, err := s.repo.ListTranscripts(ctx, debateID)
	if err != nil {
		return nil, err
	}
	data := exportData{debate: debate, transcripts: transcripts}
	if opts.IncludeSuggestions {
		if data.suggestions, err = s.repo.ListSuggestions(ctx, debateID, 0); err != nil {
			return nil, err
		}
	}

	res := &ExportResult{Filename: fmt.Sprintf("debate-%s.%s", debateID, opts.Format)}
	switch opts.Format {
	case ExportTXT:
		res.ContentType = "text/plain; charset=utf-8"
		res.Body = []byte(renderTXT(data, opts))
	case ExportJSON:
		res.ContentType = "application/json"
		res.Body, err = renderJSON(data, opts)
	case ExportCSV:
		res.ContentType = "text/csv; charset=utf-8"
		res.Body, err = renderCSV(data)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func speakerName(debate *models.Debate, side string) string {
	switch side {
	case clock.SideAffirmative:
		if debate.Affirmative != "" {
			return debate.Affirmative
		}
		return "Affirmative"
	case clock.SideNegative:
		if debate.Negative != "" {
			return debate.Negative
		}
		return "Negative"
	}
	return "General"
}

func renderTXT(data exportData, opts ExportOptions) string {
	d := data.debate
	var b strings.Builder

	fmt.Fprintf(&b, "Motion: %s\n", d.Topic)
	fmt.Fprintf(&b, "Date: %s\n", d.CreatedAt.UTC().Format("2006-01-02"))
	mode := modeLabels[d.Mode]
	if mode == "" {
		mode = d.Mode
	}
	fmt.Fprintf(&b, "Mode: %s\n", mode)
	fmt.Fprintf(&b, "Affirmative: %s\n", d.Affirmative)
	fmt.Fprintf(&b, "Negative: %s\n\n", d.Negative)

	b.WriteString("Phases:\n")
	for _, p := range d.Phases {
		if p.DurationSeconds == 0 {
			fmt.Fprintf(&b, "- %s (untimed)\n", p.Name)
			continue
		}
		fmt.Fprintf(&b, "- %s (%d min)\n", p.Name, p.DurationSeconds/60)
	}
	b.WriteString("\n")

	b.WriteString("Transcript:\n\n")
	for _, t := range data.transcripts {
		fmt.Fprintf(&b, "[%s] %s: %s\n\n", t.Timestamp.UTC().Format(time.TimeOnly), speakerName(d, t.Speaker), t.Text)
	}

	if opts.IncludeStatistics {
		st := d.Statistics
		b.WriteString("Statistics:\n")
		fmt.Fprintf(&b, "Total speaking time: %s\n", clock.FormatDuration(st.TotalDuration))
		fmt.Fprintf(&b, "Affirmative speaking time: %s\n", clock.FormatDuration(st.AffirmativeDuration))
		fmt.Fprintf(&b, "Negative speaking time: %s\n", clock.FormatDuration(st.NegativeDuration))
		fmt.Fprintf(&b, "Affirmative speeches: %d\n", st.AffirmativeCount)
		fmt.Fprintf(&b, "Negative speeches: %d\n", st.NegativeCount)
		b.WriteString("\n")
	}

	if opts.IncludeSuggestions && len(data.suggestions) > 0 {
		b.WriteString("AI suggestions:\n\n")
		for _, s := range data.suggestions {
			label := suggestionLabels[s.Type]
			if label == "" {
				label = s.Type
			}
			fmt.Fprintf(&b, "[%s] %s (for: %s):\n", s.Timestamp.UTC().Format(time.TimeOnly), label, speakerName(d, s.Target))
			fmt.Fprintf(&b, "%s\n\n", s.Content)
		}
	}
	return b.String()
}

type exportDocument struct {
	ID          string               `json:"id"`
	Topic       string               `json:"topic"`
	Mode        string               `json:"mode"`
	Affirmative string               `json:"affirmative"`
	Negative    string               `json:"negative"`
	Status      string               `json:"status"`
	CreatedAt   time.Time            `json:"createdAt"`
	StartedAt   *time.Time           `json:"startedAt,omitempty"`
	EndedAt     *time.Time           `json:"endedAt,omitempty"`
	Phases      []models.DebatePhase `json:"phases"`
	Transcripts []models.Transcript  `json:"transcripts"`
	Statistics  *models.Statistics   `json:"statistics,omitempty"`
	Suggestions []models.Suggestion  `json:"aiSuggestions,omitempty"`
}

func renderJSON(data exportData, opts ExportOptions) ([]byte, error) {
	d := data.debate
	doc := exportDocument{
		ID:          d.ID,
		Topic:       d.Topic,
		Mode:        d.Mode,
		Affirmative: d.Affirmative,
		Negative:    d.Negative,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt,
		StartedAt:   d.StartedAt,
		EndedAt:     d.EndedAt,
		Phases:      d.Phases,
		Transcripts: data.transcripts,
	}
	if opts.IncludeStatistics {
		st := d.Statistics
		doc.Statistics = &st
	}
	if opts.IncludeSuggestions {
		doc.Suggestions = data.suggestions
	}
	return json.MarshalIndent(doc, "", "  ")
}

func renderCSV(data exportData) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"timestamp", "speaker", "content"}); err != nil {
		return nil, err
	}
	for _, t := range data.transcripts {
		record := []string{
			t.Timestamp.UTC().Format(time.RFC3339),
			speakerName(data.debate, t.Speaker),
			t.Text,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
