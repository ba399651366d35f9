package coach

import (
	"context"
	"log/slog"
	"strings"
)

// Feedback is the coach's verdict on one presentation.
type Feedback struct {
	Text       string   `json:"text"`
	Highlights []string `json:"highlights"`
	Engine     string   `json:"engine"`
	LatencyMs  float64  `json:"latency_ms,omitempty"`
}

// Coach turns presentation inputs into coaching feedback via the
// registered LLM backends, degrading to a local composition when no
// backend answers.
type Coach struct {
	llm    *ChatRouter
	engine string
	model  string
}

// New creates a coach bound to a default engine and model.
func New(llm *ChatRouter, engine, model string) *Coach {
	return &Coach{llm: llm, engine: engine, model: model}
}

// Generate produces feedback for the input. onToken may be nil; when set
// it receives streamed tokens as the model emits them. Model failures are
// absorbed: the deterministic fallback is returned instead of an error.
func (c *Coach) Generate(ctx context.Context, in *Input, onToken TokenCallback) (*Feedback, error) {
	if strings.TrimSpace(in.Transcript) == "" && in.Stats == nil && len(in.Vices) == 0 && len(in.Poses) == 0 {
		return ComposeFallback(in), nil
	}

	result, err := c.llm.Chat(ctx, BuildPrompt(in), SystemPrompt, c.model, c.engine, onToken)
	if err != nil {
		slog.Warn("coach llm unavailable, composing fallback", "engine", c.engine, "error", err)
		return ComposeFallback(in), nil
	}

	return &Feedback{
		Text:       result.Text,
		Highlights: extractTips(result.Text),
		Engine:     c.engine,
		LatencyMs:  result.LatencyMs,
	}, nil
}

// extractTips pulls the TIP/STRENGTH lines out of the model response so
// clients can render highlights without parsing the full text.
func extractTips(text string) []string {
	var tips []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "TIP ") || strings.HasPrefix(line, "STRENGTH:") {
			tips = append(tips, line)
		}
	}
	return tips
}
