package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/edgecoach/engine/internal/feature"
	"github.com/edgecoach/engine/internal/landmark"
)

func TestGetOrCreateIdempotent(t *testing.T) {
	r := NewRegistry(feature.DefaultScoringConfig(), time.Minute)
	defer r.Close()

	a := r.GetOrCreate("s1")
	b := r.GetOrCreate("s1")
	if a != b {
		t.Error("GetOrCreate must return the same instance for the same id")
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 session, got %d", r.Len())
	}
}

func TestGetOrCreateConcurrent(t *testing.T) {
	r := NewRegistry(feature.DefaultScoringConfig(), time.Minute)
	defer r.Close()

	const goroutines = 32
	results := make([]*Session, goroutines)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = r.GetOrCreate("shared")
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		if results[i] != results[0] {
			t.Fatal("concurrent GetOrCreate produced distinct sessions")
		}
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 session, got %d", r.Len())
	}
}

func TestSessionsIndependent(t *testing.T) {
	r := NewRegistry(feature.DefaultScoringConfig(), time.Minute)
	defer r.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := r.GetOrCreate(fmt.Sprintf("s%d", i))
			for f := 0; f < 50; f++ {
				s.ScoreFrame(&landmark.Detections{}, float64(f))
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		s, ok := r.Get(fmt.Sprintf("s%d", i))
		if !ok {
			t.Fatalf("session s%d missing", i)
		}
		if got := s.FrameCount(); got != 50 {
			t.Errorf("session s%d: expected 50 frames, got %d", i, got)
		}
	}
}

func TestRemove(t *testing.T) {
	r := NewRegistry(feature.DefaultScoringConfig(), time.Minute)
	defer r.Close()

	r.GetOrCreate("s1")
	r.Remove("s1")
	r.Remove("s1") // unknown id is a no-op

	if _, ok := r.Get("s1"); ok {
		t.Error("removed session still present")
	}
	if r.Len() != 0 {
		t.Errorf("expected 0 sessions, got %d", r.Len())
	}
}

func TestReapIdle(t *testing.T) {
	r := NewRegistry(feature.DefaultScoringConfig(), time.Minute)
	defer r.Close()

	r.GetOrCreate("idle")

	// From two minutes in the future the session has sat past the
	// one-minute timeout.
	r.reapIdle(time.Now().Add(2 * time.Minute))
	if _, ok := r.Get("idle"); ok {
		t.Error("idle session should have been reaped")
	}
	if r.Len() != 0 {
		t.Errorf("expected 0 sessions after reap, got %d", r.Len())
	}

	// A just-created session survives a reap at the current time.
	r.GetOrCreate("fresh")
	r.reapIdle(time.Now())
	if _, ok := r.Get("fresh"); !ok {
		t.Error("fresh session should survive the reaper")
	}
}
