package session

import (
	"testing"
	"time"

	"github.com/edgecoach/engine/internal/feature"
	"github.com/edgecoach/engine/internal/landmark"
)

// TestTouchRefreshesIdleClock backdates a session's last activity and
// checks that Touch pulls it out of idle-reap range.
func TestTouchRefreshesIdleClock(t *testing.T) {
	s := newSession("s1", feature.DefaultScoringConfig())
	now := time.Now()

	s.mu.Lock()
	s.lastSeen = now.Add(-5 * time.Minute)
	s.mu.Unlock()

	if !s.idleSince(now, time.Minute) {
		t.Fatal("stale session should read as idle")
	}

	s.Touch()
	if s.idleSince(now, time.Minute) {
		t.Error("touched session must not read as idle")
	}
}

func TestScoreFrameAdvancesFrameCount(t *testing.T) {
	s := newSession("s1", feature.DefaultScoringConfig())

	m := s.ScoreFrame(&landmark.Detections{}, 1.0)
	if m.FrameNumber != 1 {
		t.Errorf("expected frame number 1, got %d", m.FrameNumber)
	}
	s.ScoreFrame(&landmark.Detections{}, 2.0)
	if got := s.FrameCount(); got != 2 {
		t.Errorf("expected frame count 2, got %d", got)
	}
}

func TestScoreFrameFirstFrameNeutral(t *testing.T) {
	s := newSession("s1", feature.DefaultScoringConfig())

	det := &landmark.Detections{
		PoseLandmarks: []landmark.Landmark{{X: 0.5, Y: 0.5}},
		HandLandmarks: [][]landmark.Landmark{{{X: 0.1, Y: 0.1}}},
	}
	m := s.ScoreFrame(det, 1.0)
	if m.HandMovement != 0 || m.HeadMovement != 0 {
		t.Errorf("first frame must be neutral, got hand=%f head=%f", m.HandMovement, m.HeadMovement)
	}

	// Second frame with moved joints registers displacement.
	det2 := &landmark.Detections{
		PoseLandmarks: []landmark.Landmark{{X: 0.5, Y: 0.7}},
		HandLandmarks: [][]landmark.Landmark{{{X: 0.3, Y: 0.1}}},
	}
	m = s.ScoreFrame(det2, 2.0)
	if m.HandMovement == 0 || m.HeadMovement == 0 {
		t.Errorf("second frame should register movement, got hand=%f head=%f", m.HandMovement, m.HeadMovement)
	}
}

func TestStatsBeforeAnyFrame(t *testing.T) {
	s := newSession("s1", feature.DefaultScoringConfig())

	st := s.Stats()
	if st.TotalFrames != 0 {
		t.Errorf("expected 0 frames, got %d", st.TotalFrames)
	}
	if st.AvgNervousness != 0 || st.AvgBlinkRate != 0 || st.AvgHandMovement != 0 {
		t.Error("averages should be zero for a fresh session")
	}
	if st.SessionDuration < 0 {
		t.Errorf("duration should be non-negative, got %f", st.SessionDuration)
	}
}

func TestResetIdempotent(t *testing.T) {
	s := newSession("s1", feature.DefaultScoringConfig())

	for i := 0; i < 5; i++ {
		s.ScoreFrame(&landmark.Detections{}, float64(i))
	}
	s.AppendTranscript("hello world")

	s.Reset()
	s.Reset()

	if got := s.FrameCount(); got != 0 {
		t.Errorf("expected frame count 0 after reset, got %d", got)
	}
	if len(s.WindowSnapshot()) != 0 {
		t.Error("expected empty window after reset")
	}
	if s.Transcript() != "" {
		t.Error("expected empty transcript after reset")
	}
	if s.ID != "s1" {
		t.Error("reset must keep the session identity")
	}

	// The frame after a reset is a first frame again.
	det := &landmark.Detections{PoseLandmarks: []landmark.Landmark{{X: 0.9, Y: 0.9}}}
	m := s.ScoreFrame(det, 10.0)
	if m.FrameNumber != 1 {
		t.Errorf("expected frame number 1 after reset, got %d", m.FrameNumber)
	}
	if m.HeadMovement != 0 {
		t.Errorf("post-reset first frame must be neutral, got %f", m.HeadMovement)
	}
}

func TestTranscriptAccumulation(t *testing.T) {
	s := newSession("s1", feature.DefaultScoringConfig())

	s.AppendTranscript("  hello ")
	s.AppendTranscript("")
	s.AppendTranscript("world")

	if got := s.Transcript(); got != "hello world" {
		t.Errorf("expected %q, got %q", "hello world", got)
	}
}
