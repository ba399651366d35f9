package analysis

import (
	"strings"
	"testing"
)

func findPhrase(reps []PhraseCount, phrase string) *PhraseCount {
	for i := range reps {
		if reps[i].Phrase == phrase {
			return &reps[i]
		}
	}
	return nil
}

func TestAnalyzeTextCountsFillers(t *testing.T) {
	report := AnalyzeText("Um, this is basically the idea. Basically we ship it. Um yes.")

	um := findPhrase(report.Repetitions, "um")
	if um == nil {
		t.Fatal("expected 'um' to be flagged")
	}
	if um.Count != 2 {
		t.Errorf("expected 2 occurrences of 'um', got %d", um.Count)
	}
	if len(um.Examples) == 0 {
		t.Error("expected example sentences for 'um'")
	}

	basically := findPhrase(report.Repetitions, "basically")
	if basically == nil || basically.Count != 2 {
		t.Errorf("expected 2 occurrences of 'basically', got %+v", basically)
	}
}

func TestAnalyzeTextWordBoundaries(t *testing.T) {
	// "drum" contains "um" but must not be flagged.
	report := AnalyzeText("The drum section played. A triumph of music.")
	if p := findPhrase(report.Repetitions, "um"); p != nil {
		t.Errorf("'um' inside other words must not count, got %d", p.Count)
	}
}

func TestAnalyzeTextClean(t *testing.T) {
	report := AnalyzeText("Our product reduces latency. Customers love it.")
	if len(report.Repetitions) != 0 {
		t.Errorf("expected no repetitions, got %+v", report.Repetitions)
	}
	if report.Summary != "No occurrences detected." {
		t.Errorf("unexpected summary: %q", report.Summary)
	}
	if len(report.Suggestions) == 0 || !strings.Contains(report.Suggestions[0], "No obvious") {
		t.Errorf("expected the clean-transcript suggestion, got %v", report.Suggestions)
	}
}

func TestAnalyzeTextRepeatedTrigrams(t *testing.T) {
	text := "At the end of the day we win. At the end of the day we ship. At the end of the day we learn."
	report := AnalyzeText(text)

	tri := findPhrase(report.Repetitions, "at the end")
	if tri == nil {
		t.Fatal("expected repeated trigram 'at the end' to be flagged")
	}
	if tri.Count != 3 {
		t.Errorf("expected trigram count 3, got %d", tri.Count)
	}

	// Each repeated trigram is reported once.
	seen := 0
	for _, r := range report.Repetitions {
		if r.Phrase == "at the end" {
			seen++
		}
	}
	if seen != 1 {
		t.Errorf("trigram reported %d times, expected once", seen)
	}
}

func TestAnalyzeTextSummaryTotals(t *testing.T) {
	report := AnalyzeText("Um, well, um.")
	if !strings.Contains(report.Summary, "Detected") {
		t.Errorf("expected occurrence summary, got %q", report.Summary)
	}
}
