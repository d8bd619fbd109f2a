package models

import (
	"testing"

	"debatetimer/internal/clock"
)

func TestStatisticsApply(t *testing.T) {
	var s Statistics
	s.Apply("affirmative", 30)
	s.Apply("negative", 20)
	s.Apply("affirmative", 10)
	s.Apply("negative", -5)

	want := Statistics{
		TotalDuration:       60,
		AffirmativeDuration: 40,
		NegativeDuration:    20,
		AffirmativeCount:    2,
		NegativeCount:       2,
	}
	if s != want {
		t.Fatalf("got %+v, want %+v", s, want)
	}
}

func TestStatisticsIncrementMatchesApply(t *testing.T) {
	tests := []struct {
		speaker  string
		duration int
		keys     int
	}{
		{"affirmative", 12, 3},
		{"negative", 7, 3},
		{"", 5, 1},
	}
	for _, tt := range tests {
		inc := StatisticsIncrement(tt.speaker, tt.duration)
		if len(inc) != tt.keys {
			t.Errorf("%q: got %d keys, want %d", tt.speaker, len(inc), tt.keys)
		}
		if inc["statistics.totalDuration"] != tt.duration {
			t.Errorf("%q: totalDuration = %v", tt.speaker, inc["statistics.totalDuration"])
		}
	}
}

func TestStatisticsShare(t *testing.T) {
	aff, neg := Statistics{AffirmativeDuration: 30, NegativeDuration: 10}.Share()
	if aff != 75 || neg != 25 {
		t.Fatalf("Share() = %v, %v", aff, neg)
	}
	aff, neg = Statistics{}.Share()
	if aff != 0 || neg != 0 {
		t.Fatalf("empty Share() = %v, %v", aff, neg)
	}
}

func TestClockPhasesRoundTrip(t *testing.T) {
	phases := []clock.Phase{{ID: "a", Order: 0}, {ID: "b", Order: 1}}
	d := Debate{Phases: WrapPhases(phases)}
	got := d.ClockPhases()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("ClockPhases() = %+v", got)
	}
}

func TestValidSuggestionType(t *testing.T) {
	for _, typ := range []string{"argument", "logic", "data", "rebuttal", "general"} {
		if !ValidSuggestionType(typ) {
			t.Errorf("%q should be valid", typ)
		}
	}
	if ValidSuggestionType("poem") {
		t.Error("unknown type accepted")
	}
}
