package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
)

// ErrStale is returned for a query that a newer query of the same session
// superseded while it was running.
var ErrStale = eris.New("pipeline: superseded by a newer query")

// Session stamps each query with an increasing generation so that only the
// latest one is applied.
type Session struct {
	gen atomic.Uint64
}

// Begin starts a new generation and returns it.
func (s *Session) Begin() uint64 {
	return s.gen.Add(1)
}

// Current reports whether gen is still the latest generation.
func (s *Session) Current(gen uint64) bool {
	return s.gen.Load() == gen
}

// Run executes fn under a new generation. When another Run began meanwhile,
// the result is discarded and ErrStale returned.
func Run[T any](ctx context.Context, s *Session, fn func(ctx context.Context) (T, error)) (T, error) {
	gen := s.Begin()
	v, err := fn(ctx)
	if !s.Current(gen) {
		var zero T
		return zero, ErrStale
	}
	return v, err
}

// DefaultSessionIdle is how long an unused session is kept.
const DefaultSessionIdle = 10 * time.Minute

// Sessions keeps one Session per key. Sessions unused for longer than the
// idle timeout are evicted.
type Sessions struct {
	mu        sync.Mutex
	sessions  map[string]*sessionEntry
	idle      time.Duration
	lastPrune time.Time
	now       func() time.Time
}

type sessionEntry struct {
	session  *Session
	lastUsed time.Time
}

// NewSessions creates an empty registry. A non-positive idle uses
// DefaultSessionIdle.
func NewSessions(idle time.Duration) *Sessions {
	if idle <= 0 {
		idle = DefaultSessionIdle
	}
	return &Sessions{
		sessions: make(map[string]*sessionEntry),
		idle:     idle,
		now:      time.Now,
	}
}

// Get returns the session of key, creating it on first use.
func (s *Sessions) Get(key string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastPrune) >= s.idle {
		s.prune(now)
	}

	e, ok := s.sessions[key]
	if !ok {
		e = &sessionEntry{session: &Session{}}
		s.sessions[key] = e
	}
	e.lastUsed = now
	return e.session
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Sessions) prune(now time.Time) {
	for k, e := range s.sessions {
		if now.Sub(e.lastUsed) > s.idle {
			delete(s.sessions, k)
		}
	}
	s.lastPrune = now
}
