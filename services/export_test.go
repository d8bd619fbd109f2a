package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"debatetimer/db"
	"debatetimer/models"
)

func exportFixture(t *testing.T) (*testEnv, *models.Debate) {
	t.Helper()
	e := newTestEnv(t)
	d := e.create(t, models.FormatStandard)
	addTranscripts(t, e, d.ID, "Streets are for people", `Cars mean "freedom", really`)
	svc := NewSuggestionService(e.repo, e.svc, &fakeGenerator{text: "Cite the pollution study."}, nil, e.fc)
	if _, err := svc.Suggest(context.Background(), d.ID, SuggestionRequest{Type: models.SuggestionData, Target: "affirmative"}); err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	return e, d
}

func TestExportTXT(t *testing.T) {
	e, d := exportFixture(t)
	res, err := NewExportService(e.repo).Export(context.Background(), d.ID, ExportOptions{
		Format:             ExportTXT,
		IncludeStatistics:  true,
		IncludeSuggestions: true,
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	body := string(res.Body)
	for _, want := range []string{
		"Motion: Cities should ban cars",
		"Mode: Standard",
		"- Preparation (2 min)",
		"Team A: Streets are for people",
		"Team B: Cars mean \"freedom\", really",
		"Total speaking time: 0:20",
		"Affirmative speeches: 1",
		"Supporting data (for: Team A):",
		"Cite the pollution study.",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in:\n%s", want, body)
		}
	}
	if res.Filename != "debate-"+d.ID+".txt" || !strings.HasPrefix(res.ContentType, "text/plain") {
		t.Errorf("result = %s %s", res.Filename, res.ContentType)
	}
}

func TestExportTXTWithoutExtras(t *testing.T) {
	e, d := exportFixture(t)
	res, err := NewExportService(e.repo).Export(context.Background(), d.ID, ExportOptions{})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	body := string(res.Body)
	if strings.Contains(body, "Statistics:") || strings.Contains(body, "AI suggestions:") {
		t.Errorf("extras exported without being asked:\n%s", body)
	}
}

func TestExportJSON(t *testing.T) {
	e, d := exportFixture(t)
	res, err := NewExportService(e.repo).Export(context.Background(), d.ID, ExportOptions{Format: ExportJSON, IncludeStatistics: true})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(res.Body, &doc); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if doc["topic"] != "Cities should ban cars" {
		t.Errorf("topic = %v", doc["topic"])
	}
	if ts, _ := doc["transcripts"].([]interface{}); len(ts) != 2 {
		t.Errorf("transcripts = %v", doc["transcripts"])
	}
	if _, ok := doc["statistics"]; !ok {
		t.Error("statistics missing")
	}
	if _, ok := doc["aiSuggestions"]; ok {
		t.Error("suggestions exported without being asked")
	}
}

func TestExportCSV(t *testing.T) {
	e, d := exportFixture(t)
	res, err := NewExportService(e.repo).Export(context.Background(), d.ID, ExportOptions{Format: ExportCSV})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(string(res.Body))).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records", len(records))
	}
	if strings.Join(records[0], ",") != "timestamp,speaker,content" {
		t.Errorf("header = %v", records[0])
	}
	if records[2][1] != "Team B" || records[2][2] != `Cars mean "freedom", really` {
		t.Errorf("row = %v", records[2])
	}
}

func TestExportErrors(t *testing.T) {
	e, d := exportFixture(t)
	svc := NewExportService(e.repo)
	if _, err := svc.Export(context.Background(), d.ID, ExportOptions{Format: "pdf"}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("pdf: %v", err)
	}
	if _, err := svc.Export(context.Background(), "missing", ExportOptions{Format: ExportCSV}); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("missing: %v", err)
	}
}
