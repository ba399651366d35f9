package coach

import (
	"fmt"
	"strings"

	"github.com/edgecoach/engine/internal/analysis"
	"github.com/edgecoach/engine/internal/session"
)

// SystemPrompt constrains the model to communication skills. Content,
// factual accuracy, and script quality are out of bounds.
const SystemPrompt = "You are an evaluator specialized exclusively in the communication skills of presenters. " +
	"Give professional, actionable feedback on gesturing, posture, eye contact where available, tone of voice, " +
	"speaking pace, pauses, verbal tics, articulation, rhythm, and energy. " +
	"Do NOT judge the content, ideas, product, factual accuracy, or technical quality of the script. " +
	"Base your feedback only on the data provided."

// Input is everything the coach knows about one presentation.
type Input struct {
	Transcript string                 `json:"transcript"`
	Stats      *session.Stats         `json:"stats,omitempty"`
	Vices      []analysis.PhraseCount `json:"vices,omitempty"`
	Poses      []PoseObservation      `json:"poses,omitempty"`
}

// PoseObservation is one posture verdict at a point in the presentation.
type PoseObservation struct {
	Timestamp float64 `json:"timestamp"`
	Pose      string  `json:"pose"`
}

// BuildPrompt renders the user message for the coaching model.
func BuildPrompt(in *Input) string {
	var b strings.Builder

	b.WriteString("Analyze this presentation and give constructive feedback.\n\n")
	b.WriteString("PRESENTATION TRANSCRIPT:\n")
	fmt.Fprintf(&b, "%q\n", in.Transcript)

	if in.Stats != nil {
		b.WriteString("\nDetected nervousness metrics:\n")
		fmt.Fprintf(&b, "- Nervousness score: %.2f/1.0\n", in.Stats.AvgNervousness)
		fmt.Fprintf(&b, "- Blink rate: %.2f\n", in.Stats.AvgBlinkRate)
		fmt.Fprintf(&b, "- Hand movement: %.3f\n", in.Stats.AvgHandMovement)
	}

	if len(in.Vices) > 0 {
		b.WriteString("\nVerbal tics detected:\n")
		for _, v := range in.Vices {
			fmt.Fprintf(&b, "- %q used %d times\n", v.Phrase, v.Count)
		}
	}

	if len(in.Poses) > 0 {
		fmt.Fprintf(&b, "\nPosture observations: %d samples\n", len(in.Poses))
		for _, p := range in.Poses {
			fmt.Fprintf(&b, "- t=%.1fs: %s\n", p.Timestamp, p.Pose)
		}
	}

	b.WriteString("\nINSTRUCTIONS:\n")
	b.WriteString("1. Consider the delivery, pacing, and structure of the presentation\n")
	b.WriteString("2. If nervousness metrics are present, factor them into the analysis\n")
	b.WriteString("3. Give exactly 3 practical, specific improvement tips\n")
	b.WriteString("4. Be direct, constructive, and encouraging\n\n")
	b.WriteString("RESPONSE FORMAT:\n")
	b.WriteString("TIP 1: [title]\n[1-2 line practical explanation]\n\n")
	b.WriteString("TIP 2: [title]\n[1-2 line practical explanation]\n\n")
	b.WriteString("TIP 3: [title]\n[1-2 line practical explanation]\n\n")
	b.WriteString("STRENGTH: [something that is already working well]\n")

	return b.String()
}

// ComposeFallback assembles deterministic feedback when no model is
// reachable, so clients always get something actionable back.
func ComposeFallback(in *Input) *Feedback {
	var bullets []string

	if len(in.Vices) > 0 {
		phrases := make([]string, 0, len(in.Vices))
		for _, v := range in.Vices {
			phrases = append(phrases, v.Phrase)
		}
		bullets = append(bullets, fmt.Sprintf("Verbal tics detected: %s.", strings.Join(phrases, ", ")))
	} else {
		bullets = append(bullets, "No significant verbal tics detected.")
	}

	if len(in.Poses) > 0 {
		bullets = append(bullets, fmt.Sprintf("%d posture observations were recorded during the presentation.", len(in.Poses)))
	}

	if in.Stats != nil && in.Stats.AvgNervousness > 0 {
		bullets = append(bullets, fmt.Sprintf("Average nervousness score was %.2f/1.0.", in.Stats.AvgNervousness))
	}

	if s := strings.TrimSpace(in.Transcript); s != "" {
		first, _, _ := strings.Cut(s, ".")
		if len(first) > 200 {
			first = first[:200]
		}
		bullets = append(bullets, fmt.Sprintf("Opening: %q...", strings.TrimSpace(first)))
	}

	return &Feedback{
		Text:       strings.Join(bullets, " "),
		Highlights: bullets,
		Engine:     "fallback",
	}
}
