// Package session holds the per-connection analysis state: the rolling
// metrics window, frame counters, and the registry that keys sessions by
// connection identifier.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/edgecoach/engine/internal/feature"
	"github.com/edgecoach/engine/internal/landmark"
)

// Stats is a point-in-time aggregate over the current window. All averages
// cover the window, not the full session history, so long sessions neither
// grow memory nor drown out recent behavior.
type Stats struct {
	TotalFrames        uint64  `json:"total_frames"`
	SessionDuration    float64 `json:"session_duration"`
	CurrentNervousness float64 `json:"current_nervousness"`
	AvgNervousness     float64 `json:"avg_nervousness"`
	AvgBlinkRate       float64 `json:"avg_blink_rate"`
	AvgHandMovement    float64 `json:"avg_hand_movement"`
	AvgHeadMovement    float64 `json:"avg_head_movement"`
}

// Session is the state for one client connection's analysis run. All
// methods take the session lock, so operations on the same session never
// interleave while different sessions proceed independently.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	frameCount uint64
	prev       *landmark.Observation
	window     *Window
	extractor  *feature.Extractor
	transcript strings.Builder
	lastSeen   time.Time
}

func newSession(id string, cfg feature.ScoringConfig) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		CreatedAt: now,
		window:    NewWindow(cfg),
		extractor: feature.NewExtractor(cfg),
		lastSeen:  now,
	}
}

// ScoreFrame normalizes one detector result, scores it against the
// previous frame, and appends the result to the window. The frame number
// is assigned here, so it only ever advances for successfully processed
// frames.
func (s *Session) ScoreFrame(d *landmark.Detections, timestamp float64) feature.Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frameCount++
	s.lastSeen = time.Now()

	obs := landmark.Normalize(d, s.frameCount, timestamp)
	m := s.extractor.Extract(s.prev, obs)
	m = s.window.Append(m)
	s.prev = &obs
	return m
}

// Stats returns the window aggregates.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = time.Now()

	st := Stats{
		TotalFrames:     s.frameCount,
		SessionDuration: time.Since(s.CreatedAt).Seconds(),
		AvgNervousness:  s.window.AvgNervousness(),
		AvgBlinkRate:    s.window.AvgBlinkRate(),
		AvgHandMovement: s.window.AvgHandMovement(),
		AvgHeadMovement: s.window.AvgHeadMovement(),
	}
	if latest, ok := s.window.Latest(); ok {
		st.CurrentNervousness = latest.NervousnessScore
	}
	return st
}

// Reset clears the window, the frame counter, the previous observation,
// and the transcript, keeping the session identity. Idempotent.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frameCount = 0
	s.prev = nil
	s.window.Reset()
	s.transcript.Reset()
	s.lastSeen = time.Now()
}

// FrameCount returns the number of successfully processed frames.
func (s *Session) FrameCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameCount
}

// WindowSnapshot returns the window contents in arrival order.
func (s *Session) WindowSnapshot() []feature.Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.Snapshot()
}

// AppendTranscript accumulates transcribed speech for coaching feedback.
func (s *Session) AppendTranscript(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transcript.Len() > 0 {
		s.transcript.WriteByte(' ')
	}
	s.transcript.WriteString(text)
	s.lastSeen = time.Now()
}

// Transcript returns the accumulated speech text.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.String()
}

// Touch refreshes the idle clock without other side effects.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen) > timeout
}
