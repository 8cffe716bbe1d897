package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Starter launches background work for a new session and returns its stop function.
type Starter func(s *Session) (stop func())

// Store holds live sessions keyed by ID.
type Store struct {
	capacity int
	starter  Starter
	clock    func() time.Time
	logger   *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates a Store. starter may be nil.
func NewStore(workingSetSize int, starter Starter, logger *zap.Logger) *Store {
	return &Store{
		capacity: workingSetSize,
		starter:  starter,
		clock:    time.Now,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session's background work and then registers it, so a
// session is never visible without its stop function. An existing session with
// the same ID is destroyed.
func (st *Store) Create(id string, profile Profile, expiresAt time.Time) *Session {
	s := newSession(id, profile, st.clock(), expiresAt, st.capacity)
	if st.starter != nil {
		s.setStop(st.starter(s))
	}

	st.mu.Lock()
	previous := st.sessions[id]
	st.sessions[id] = s
	st.mu.Unlock()

	if previous != nil {
		previous.shutdown()
	}
	return s
}

// Get returns a live session. Expired sessions are reported as missing.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok || s.Expired(st.clock()) {
		return nil, false
	}
	return s, true
}

// Destroy stops and removes a session. It reports whether one existed.
func (st *Store) Destroy(id string) bool {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if ok {
		s.shutdown()
	}
	return ok
}

// ForEmail returns the live sessions of one user.
func (st *Store) ForEmail(email string) []*Session {
	now := st.clock()
	st.mu.RLock()
	defer st.mu.RUnlock()
	var out []*Session
	for _, s := range st.sessions {
		if strings.EqualFold(s.Profile().Email, email) && !s.Expired(now) {
			out = append(out, s)
		}
	}
	return out
}

// Reap destroys every session expired at now and returns how many were removed.
func (st *Store) Reap(now time.Time) int {
	st.mu.Lock()
	var expired []*Session
	for id, s := range st.sessions {
		if s.Expired(now) {
			expired = append(expired, s)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, s := range expired {
		s.shutdown()
	}
	return len(expired)
}

// Len returns the number of registered sessions, expired or not.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Run reaps expired sessions every interval until ctx is done, then closes the store.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			st.Close()
			return
		case <-ticker.C:
			if n := st.Reap(st.clock()); n > 0 {
				st.logger.Debug("reaped sessions", zap.Int("count", n))
			}
		}
	}
}

// Close destroys all sessions.
func (st *Store) Close() {
	st.mu.Lock()
	all := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()

	for _, s := range all {
		s.shutdown()
	}
}
