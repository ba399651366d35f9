package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/edgecoach/engine/internal/feature"
	"github.com/edgecoach/engine/internal/metrics"
)

// Registry is the process-wide session store. The map is guarded by its
// own lock held only for lookup and insertion; frame processing runs under
// the per-session lock, so traffic on one session never blocks another.
type Registry struct {
	cfg         feature.ScoringConfig
	idleTimeout time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session

	done     chan struct{}
	stopOnce sync.Once
}

// NewRegistry creates a registry. Sessions idle longer than idleTimeout
// are torn down by the reaper once Start is called.
func NewRegistry(cfg feature.ScoringConfig, idleTimeout time.Duration) *Registry {
	return &Registry{
		cfg:         cfg,
		idleTimeout: idleTimeout,
		sessions:    make(map[string]*Session),
		done:        make(chan struct{}),
	}
}

// GetOrCreate returns the session for id, allocating it on first use.
// Idempotent: concurrent callers observe the same instance.
func (r *Registry) GetOrCreate(id string) *Session {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok = r.sessions[id]; ok {
		return s
	}

	s = newSession(id, r.cfg)
	r.sessions[id] = s
	metrics.SessionsActive.Inc()
	metrics.SessionsTotal.Inc()
	slog.Info("session created", "session_id", id)
	return s
}

// Get returns the session for id without creating it.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove evicts the session entirely. Safe to call for unknown ids.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		metrics.SessionsActive.Dec()
		slog.Info("session removed", "session_id", id)
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Start launches the idle reaper.
func (r *Registry) Start(interval time.Duration) {
	if r.idleTimeout <= 0 {
		return
	}
	go r.reapLoop(interval)
}

// Close stops the reaper.
func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.done) })
}

func (r *Registry) reapLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case now := <-ticker.C:
			r.reapIdle(now)
		}
	}
}

func (r *Registry) reapIdle(now time.Time) {
	r.mu.RLock()
	var idle []string
	for id, s := range r.sessions {
		if s.idleSince(now, r.idleTimeout) {
			idle = append(idle, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range idle {
		r.Remove(id)
		metrics.SessionsReaped.Inc()
		slog.Info("idle session reaped", "session_id", id, "idle_timeout", r.idleTimeout)
	}
}
