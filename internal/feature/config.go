package feature

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ScoringConfig holds every tunable constant in the scoring pipeline.
// The baselines are empirical hackday tuning, not calibrated invariants,
// so they live here rather than as literals in the formula.
type ScoringConfig struct {
	// WindowCapacity is the per-session rolling window size in frames.
	WindowCapacity int `yaml:"window_capacity"`

	// EARThreshold is the eye-aspect-ratio below which a frame counts as
	// a blink. Open eyes sit around 0.3, closed around 0.1.
	EARThreshold float64 `yaml:"ear_threshold"`

	// BlinkBaselineLow/High bound the calm blink range in blinks/minute.
	BlinkBaselineLow  float64 `yaml:"blink_baseline_low"`
	BlinkBaselineHigh float64 `yaml:"blink_baseline_high"`

	// BlinkRateScale converts the window blink fraction to blinks/minute
	// (frames sampled per minute at the expected capture cadence).
	BlinkRateScale float64 `yaml:"blink_rate_scale"`

	HandTermWeight float64 `yaml:"hand_term_weight"`
	HeadTermWeight float64 `yaml:"head_term_weight"`
}

// DefaultScoringConfig returns the tuned defaults.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		WindowCapacity:    30,
		EARThreshold:      0.25,
		BlinkBaselineLow:  12,
		BlinkBaselineHigh: 20,
		BlinkRateScale:    60,
		HandTermWeight:    10,
		HeadTermWeight:    5,
	}
}

// LoadScoringFile overlays a YAML file onto base. Zero-valued fields in
// the file keep the base value, so partial files are fine.
func LoadScoringFile(path string, base ScoringConfig) (ScoringConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read scoring config: %w", err)
	}

	overlay := ScoringConfig{}
	if err = yaml.Unmarshal(data, &overlay); err != nil {
		return base, fmt.Errorf("parse scoring config: %w", err)
	}

	cfg := base
	if overlay.WindowCapacity > 0 {
		cfg.WindowCapacity = overlay.WindowCapacity
	}
	if overlay.EARThreshold > 0 {
		cfg.EARThreshold = overlay.EARThreshold
	}
	if overlay.BlinkBaselineLow > 0 {
		cfg.BlinkBaselineLow = overlay.BlinkBaselineLow
	}
	if overlay.BlinkBaselineHigh > 0 {
		cfg.BlinkBaselineHigh = overlay.BlinkBaselineHigh
	}
	if overlay.BlinkRateScale > 0 {
		cfg.BlinkRateScale = overlay.BlinkRateScale
	}
	if overlay.HandTermWeight > 0 {
		cfg.HandTermWeight = overlay.HandTermWeight
	}
	if overlay.HeadTermWeight > 0 {
		cfg.HeadTermWeight = overlay.HeadTermWeight
	}
	return cfg, nil
}

// Nervousness combines the three normalized signals into a [0,1] score.
// Each signal is normalized against its calm baseline, the terms are
// averaged, and the result is clamped.
func (c ScoringConfig) Nervousness(blinkFraction, handMovement, headMovement float64) float64 {
	bpm := blinkFraction * c.BlinkRateScale
	blinkTerm := (bpm - c.BlinkBaselineLow) / c.BlinkBaselineHigh
	handTerm := handMovement * c.HandTermWeight
	headTerm := headMovement * c.HeadTermWeight

	score := (blinkTerm + handTerm + headTerm) / 3
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
