package gateway

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(id string) *Session {
	return &Session{
		ID:           id,
		CreatedAt:    time.Now(),
		lastActivity: time.Now(),
	}
}

func TestSessionTable_RegisterAndLookup(t *testing.T) {
	table := newSessionTable(DefaultGraceDelay, DefaultIdleTimeout, DefaultMaxSessions)
	defer table.stop()

	sess := newTestSession("sess-1")
	require.NoError(t, table.register(sess))

	got, ok := table.lookup("sess-1")
	require.True(t, ok)
	assert.Same(t, sess, got)

	_, ok = table.lookup("sess-2")
	assert.False(t, ok)
	assert.Equal(t, 1, table.count())
}

func TestSessionTable_LimitExceeded(t *testing.T) {
	table := newSessionTable(DefaultGraceDelay, DefaultIdleTimeout, 2)
	defer table.stop()

	require.NoError(t, table.register(newTestSession("sess-1")))
	require.NoError(t, table.register(newTestSession("sess-2")))

	err := table.register(newTestSession("sess-3"))
	var limitErr *SessionLimitExceededError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 2, limitErr.Limit)

	// Re-registering an existing identifier does not count against the limit.
	require.NoError(t, table.register(newTestSession("sess-1")))
}

func TestSessionTable_ReapAfterGrace(t *testing.T) {
	table := newSessionTable(50*time.Millisecond, DefaultIdleTimeout, DefaultMaxSessions)
	defer table.stop()

	sess := newTestSession("sess-1")
	require.NoError(t, table.register(sess))

	table.scheduleReap(sess)

	// Still routable inside the grace window.
	_, ok := table.lookup("sess-1")
	assert.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := table.lookup("sess-1")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestSessionTable_SupersededSessionSurvivesStaleReap(t *testing.T) {
	table := newSessionTable(30*time.Millisecond, DefaultIdleTimeout, DefaultMaxSessions)
	defer table.stop()

	old := newTestSession("sess-1")
	require.NoError(t, table.register(old))
	table.scheduleReap(old)

	// A new session claims the same identifier before the grace expires.
	replacement := newTestSession("sess-1")
	require.NoError(t, table.register(replacement))

	// The stale timer fires against the old pointer and must not evict the
	// replacement.
	time.Sleep(100 * time.Millisecond)
	got, ok := table.lookup("sess-1")
	require.True(t, ok)
	assert.Same(t, replacement, got)
}

func TestSessionTable_RemoveIsIdentityChecked(t *testing.T) {
	table := newSessionTable(DefaultGraceDelay, DefaultIdleTimeout, DefaultMaxSessions)
	defer table.stop()

	old := newTestSession("sess-1")
	require.NoError(t, table.register(old))

	replacement := newTestSession("sess-1")
	require.NoError(t, table.register(replacement))

	table.remove(old)
	_, ok := table.lookup("sess-1")
	assert.True(t, ok)

	table.remove(replacement)
	_, ok = table.lookup("sess-1")
	assert.False(t, ok)
}

func TestSessionTable_IdleCleanup(t *testing.T) {
	table := newSessionTable(DefaultGraceDelay, 40*time.Millisecond, DefaultMaxSessions)
	defer table.stop()

	stale := newTestSession("stale")
	require.NoError(t, table.register(stale))

	fresh := newTestSession("fresh")
	require.NoError(t, table.register(fresh))

	time.Sleep(60 * time.Millisecond)
	fresh.touch()
	table.cleanupIdle()

	_, ok := table.lookup("stale")
	assert.False(t, ok)
	_, ok = table.lookup("fresh")
	assert.True(t, ok)
}

func TestSessionTable_StopClearsEverything(t *testing.T) {
	table := newSessionTable(DefaultGraceDelay, DefaultIdleTimeout, DefaultMaxSessions)

	for i := 0; i < 3; i++ {
		require.NoError(t, table.register(newTestSession(fmt.Sprintf("sess-%d", i))))
	}

	table.stop()
	assert.Zero(t, table.count())

	// stop is idempotent.
	table.stop()
}

func TestValidateSessionID(t *testing.T) {
	assert.NoError(t, validateSessionID("sess-1"))
	assert.Error(t, validateSessionID(""))
	assert.Error(t, validateSessionID(strings.Repeat("x", MaxSessionIDLength+1)))
	assert.NoError(t, validateSessionID(strings.Repeat("x", MaxSessionIDLength)))
}
