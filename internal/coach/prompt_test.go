package coach

import (
	"context"
	"strings"
	"testing"

	"github.com/edgecoach/engine/internal/analysis"
	"github.com/edgecoach/engine/internal/session"
)

func TestBuildPromptIncludesSignals(t *testing.T) {
	in := &Input{
		Transcript: "So basically our product is great.",
		Stats:      &session.Stats{AvgNervousness: 0.42, AvgBlinkRate: 0.3, AvgHandMovement: 0.05},
		Vices: []analysis.PhraseCount{
			{Phrase: "basically", Count: 4},
		},
		Poses: []PoseObservation{{Timestamp: 1.5, Pose: "good"}},
	}

	prompt := BuildPrompt(in)
	for _, want := range []string{
		"our product is great",
		"0.42",
		"basically",
		"t=1.5s: good",
		"exactly 3 practical",
		"TIP 1",
		"STRENGTH",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPromptOmitsAbsentSections(t *testing.T) {
	prompt := BuildPrompt(&Input{Transcript: "Hello."})
	if strings.Contains(prompt, "Verbal tics detected") {
		t.Error("no vices should mean no vices section")
	}
	if strings.Contains(prompt, "nervousness metrics:") && strings.Contains(prompt, "Nervousness score:") {
		t.Error("no stats should mean no metrics section")
	}
}

func TestComposeFallback(t *testing.T) {
	in := &Input{
		Transcript: "We build rockets. They fly far.",
		Vices: []analysis.PhraseCount{
			{Phrase: "like", Count: 3},
			{Phrase: "um", Count: 2},
		},
		Poses: []PoseObservation{{Pose: "good"}, {Pose: "bad"}},
	}

	fb := ComposeFallback(in)
	if fb.Engine != "fallback" {
		t.Errorf("expected fallback engine, got %q", fb.Engine)
	}
	if !strings.Contains(fb.Text, "like, um") {
		t.Errorf("expected flagged phrases in text: %q", fb.Text)
	}
	if !strings.Contains(fb.Text, "2 posture observations") {
		t.Errorf("expected pose count in text: %q", fb.Text)
	}
	if !strings.Contains(fb.Text, "We build rockets") {
		t.Errorf("expected opening excerpt in text: %q", fb.Text)
	}
	if len(fb.Highlights) == 0 {
		t.Error("expected highlights")
	}
}

func TestComposeFallbackCleanRun(t *testing.T) {
	fb := ComposeFallback(&Input{})
	if !strings.Contains(fb.Text, "No significant verbal tics") {
		t.Errorf("unexpected fallback text %q", fb.Text)
	}
}

func TestGenerateFallsBackWhenLLMDead(t *testing.T) {
	llm := NewChatRouter(map[string]ChatClient{
		"ollama": NewOllamaClient("http://127.0.0.1:1", "m", 100, 1),
	}, "ollama")
	c := New(llm, "ollama", "")

	fb, err := c.Generate(context.Background(), &Input{Transcript: "Hello world. This is fine."}, nil)
	if err != nil {
		t.Fatalf("Generate must absorb llm failures, got %v", err)
	}
	if fb.Engine != "fallback" {
		t.Errorf("expected fallback feedback, got engine %q", fb.Engine)
	}
}

func TestGenerateEmptyInput(t *testing.T) {
	c := New(NewChatRouter(map[string]ChatClient{}, "ollama"), "ollama", "")
	fb, err := c.Generate(context.Background(), &Input{}, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if fb == nil || fb.Engine != "fallback" {
		t.Errorf("empty input should compose locally, got %+v", fb)
	}
}

func TestExtractTips(t *testing.T) {
	text := "Here is my take.\nTIP 1: Slow down\nYou rush the openings.\n\nTIP 2: Pause more\n\nSTRENGTH: Clear voice\n"
	tips := extractTips(text)
	if len(tips) != 3 {
		t.Fatalf("expected 3 highlights, got %d: %v", len(tips), tips)
	}
	if tips[2] != "STRENGTH: Clear voice" {
		t.Errorf("unexpected last highlight %q", tips[2])
	}
}
