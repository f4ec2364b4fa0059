package gateway

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"chatgate/pkg/logging"
)

const (
	// MaxSessionIDLength bounds inbound session IDs so a hostile client
	// cannot grow the session table with oversized keys.
	MaxSessionIDLength = 256

	// DefaultMaxSessions is the default cap on concurrent sessions.
	DefaultMaxSessions = 10000

	// DefaultGraceDelay is how long a closed session stays routable before
	// it is reaped.
	DefaultGraceDelay = 60 * time.Second

	// DefaultIdleTimeout is how long a session may go without traffic
	// before the background sweeper removes it.
	DefaultIdleTimeout = 30 * time.Minute
)

// Session binds one resolved credential to one live protocol transport.
type Session struct {
	// ID is the opaque, generator-assigned session identifier.
	ID string
	// CreatedAt is when credential resolution succeeded.
	CreatedAt time.Time

	// handler is the per-session streamable HTTP transport.
	handler http.Handler
	// ids owns the transport's fixed session identifier.
	ids *staticSessionID

	mu           sync.Mutex
	lastActivity time.Time
	closing      bool
	reapTimer    *time.Timer
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Session) idle(now time.Time, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActivity) > timeout
}

// beginClose marks the session as closing and arms the grace timer. Called
// at most once per DELETE; re-arming just resets the grace window.
func (s *Session) beginClose(grace time.Duration, reap func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closing = true
	if s.reapTimer != nil {
		s.reapTimer.Stop()
	}
	s.reapTimer = time.AfterFunc(grace, reap)
}

func (s *Session) cancelReap() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reapTimer != nil {
		s.reapTimer.Stop()
		s.reapTimer = nil
	}
}

// sessionTable owns the session-ID -> session mapping and its lifecycle
// timers.
type sessionTable struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	graceDelay  time.Duration
	idleTimeout time.Duration
	maxSessions int

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

func newSessionTable(graceDelay, idleTimeout time.Duration, maxSessions int) *sessionTable {
	if graceDelay <= 0 {
		graceDelay = DefaultGraceDelay
	}
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}

	t := &sessionTable{
		sessions:    make(map[string]*Session),
		graceDelay:  graceDelay,
		idleTimeout: idleTimeout,
		maxSessions: maxSessions,
		stopCleanup: make(chan struct{}),
	}
	go t.cleanupLoop()
	return t
}

// register installs a session under its identifier. A new session registered
// under an identifier that is mid-grace supersedes the old entry; the stale
// reap timer then fails its identity check and becomes a no-op.
func (t *sessionTable) register(sess *Session) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.sessions[sess.ID]; !exists && len(t.sessions) >= t.maxSessions {
		return &SessionLimitExceededError{Limit: t.maxSessions}
	}

	t.sessions[sess.ID] = sess
	logging.Debug("Gateway", "Registered session %s (total: %d)",
		logging.TruncateSessionID(sess.ID), len(t.sessions))
	return nil
}

func (t *sessionTable) lookup(sessionID string) (*Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	sess, ok := t.sessions[sessionID]
	return sess, ok
}

// remove deletes the entry for sess.ID only if it still points at sess.
// The identity check guards the race between delayed cleanup and a
// superseding registration under the same identifier.
func (t *sessionTable) remove(sess *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if current, ok := t.sessions[sess.ID]; ok && current == sess {
		delete(t.sessions, sess.ID)
		logging.Debug("Gateway", "Reaped session %s (total: %d)",
			logging.TruncateSessionID(sess.ID), len(t.sessions))
	}
}

// scheduleReap arms the close-to-reap grace timer for a session.
func (t *sessionTable) scheduleReap(sess *Session) {
	sess.beginClose(t.graceDelay, func() {
		t.remove(sess)
	})
	logging.Debug("Gateway", "Session %s closing, reap in %s",
		logging.TruncateSessionID(sess.ID), t.graceDelay)
}

func (t *sessionTable) count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// stop cancels all timers and drops every session.
func (t *sessionTable) stop() {
	t.stopOnce.Do(func() {
		close(t.stopCleanup)
	})

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, sess := range t.sessions {
		sess.cancelReap()
	}
	t.sessions = make(map[string]*Session)
}

// minCleanupInterval keeps the sweeper from spinning when the idle timeout
// is very short (tests).
const minCleanupInterval = time.Second

func (t *sessionTable) cleanupLoop() {
	interval := t.idleTimeout / 2
	if interval < minCleanupInterval {
		interval = minCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.cleanupIdle()
		case <-t.stopCleanup:
			return
		}
	}
}

func (t *sessionTable) cleanupIdle() {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, sess := range t.sessions {
		if sess.idle(now, t.idleTimeout) {
			sess.cancelReap()
			delete(t.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		logging.Debug("Gateway", "Cleaned up %d idle sessions", removed)
	}
}

// validateSessionID rejects empty and oversized inbound session IDs before
// any table lookup.
func validateSessionID(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	if len(sessionID) > MaxSessionIDLength {
		return fmt.Errorf("session ID exceeds maximum length of %d", MaxSessionIDLength)
	}
	return nil
}
