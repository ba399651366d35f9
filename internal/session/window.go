package session

import "github.com/edgecoach/engine/internal/feature"

// Window is a bounded ring buffer of the most recent frame metrics.
// Append is O(1): eviction reuses the oldest slot, and the aggregates
// (blink count, movement sums) are adjusted incrementally on push and
// evict rather than rescanned.
type Window struct {
	cfg feature.ScoringConfig

	buf  []feature.Metrics
	head int // index of the oldest entry
	size int

	blinkCount   int
	handSum      float64
	headSum      float64
	nervousSum   float64
	blinkRateSum float64
}

// NewWindow creates a window with the configured capacity.
func NewWindow(cfg feature.ScoringConfig) *Window {
	capacity := cfg.WindowCapacity
	if capacity <= 0 {
		capacity = feature.DefaultScoringConfig().WindowCapacity
	}
	return &Window{
		cfg: cfg,
		buf: make([]feature.Metrics, capacity),
	}
}

// Append pushes one frame's metrics, evicting the oldest entry when the
// window is full, and fills in the window-derived fields (blink rate,
// movement aggregates, nervousness score). The finalized record is stored
// and returned.
func (w *Window) Append(m feature.Metrics) feature.Metrics {
	if w.size == len(w.buf) {
		w.evictOldest()
	}

	if m.BlinkDetected {
		w.blinkCount++
	}
	w.handSum += m.HandMovement
	w.headSum += m.HeadMovement
	w.size++

	n := float64(w.size)
	frac := float64(w.blinkCount) / n
	avgHand := w.handSum / n
	avgHead := w.headSum / n

	m.BlinkStats.BlinkRate = frac
	m.RawMetrics = feature.RawMetrics{AvgHandMovement: avgHand, AvgHeadMovement: avgHead}
	m.NervousnessScore = w.cfg.Nervousness(frac, avgHand, avgHead)

	w.nervousSum += m.NervousnessScore
	w.blinkRateSum += m.BlinkStats.BlinkRate

	w.buf[(w.head+w.size-1)%len(w.buf)] = m
	return m
}

func (w *Window) evictOldest() {
	old := w.buf[w.head]
	if old.BlinkDetected {
		w.blinkCount--
	}
	w.handSum -= old.HandMovement
	w.headSum -= old.HeadMovement
	w.nervousSum -= old.NervousnessScore
	w.blinkRateSum -= old.BlinkStats.BlinkRate

	w.head = (w.head + 1) % len(w.buf)
	w.size--
}

// Len returns the number of entries currently held.
func (w *Window) Len() int { return w.size }

// Latest returns the most recently appended entry, or false when empty.
func (w *Window) Latest() (feature.Metrics, bool) {
	if w.size == 0 {
		return feature.Metrics{}, false
	}
	return w.buf[(w.head+w.size-1)%len(w.buf)], true
}

// Snapshot returns the window contents in arrival order, oldest first.
func (w *Window) Snapshot() []feature.Metrics {
	out := make([]feature.Metrics, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.buf[(w.head+i)%len(w.buf)]
	}
	return out
}

// AvgNervousness is the mean nervousness score over the window.
func (w *Window) AvgNervousness() float64 { return w.avg(w.nervousSum) }

// AvgBlinkRate is the mean blink rate over the window.
func (w *Window) AvgBlinkRate() float64 { return w.avg(w.blinkRateSum) }

// AvgHandMovement is the mean hand displacement over the window.
func (w *Window) AvgHandMovement() float64 { return w.avg(w.handSum) }

// AvgHeadMovement is the mean head displacement over the window.
func (w *Window) AvgHeadMovement() float64 { return w.avg(w.headSum) }

func (w *Window) avg(sum float64) float64 {
	if w.size == 0 {
		return 0
	}
	return sum / float64(w.size)
}

// Reset clears all entries and aggregates.
func (w *Window) Reset() {
	w.head = 0
	w.size = 0
	w.blinkCount = 0
	w.handSum = 0
	w.headSum = 0
	w.nervousSum = 0
	w.blinkRateSum = 0
}
