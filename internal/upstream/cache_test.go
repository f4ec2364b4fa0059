package upstream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCache_PutGet(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := NewTokenCacheWithClock(func() time.Time { return now })

	_, ok := cache.Get("api-1")
	assert.False(t, ok, "empty cache should miss")

	token := Token{AccessToken: "abc", ExpiresAt: now.Add(time.Hour)}
	cache.Put("api-1", token)

	got, ok := cache.Get("api-1")
	require.True(t, ok)
	assert.Equal(t, "abc", got.AccessToken)
	assert.Equal(t, 1, cache.Len())
}

func TestTokenCache_ExpiredEntryMisses(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := now
	cache := NewTokenCacheWithClock(func() time.Time { return current })

	cache.Put("api-1", Token{AccessToken: "abc", ExpiresAt: now.Add(10 * time.Minute)})

	// Still valid just before expiry.
	current = now.Add(10*time.Minute - time.Second)
	_, ok := cache.Get("api-1")
	assert.True(t, ok)

	// Stale once past expiry; the entry is not swept, only reported as a miss.
	current = now.Add(10*time.Minute + time.Second)
	_, ok = cache.Get("api-1")
	assert.False(t, ok)
	assert.Equal(t, 1, cache.Len(), "stale entries are evicted lazily, not swept")
}

func TestTokenCache_ReplaceIsLastWriterWins(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := NewTokenCacheWithClock(func() time.Time { return now })

	cache.Put("api-1", Token{AccessToken: "first", ExpiresAt: now.Add(time.Hour)})
	cache.Put("api-1", Token{AccessToken: "second", ExpiresAt: now.Add(time.Hour)})

	got, ok := cache.Get("api-1")
	require.True(t, ok)
	assert.Equal(t, "second", got.AccessToken)
	assert.Equal(t, 1, cache.Len(), "at most one entry per API identifier")
}

func TestToken_Valid(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		token Token
		want  bool
	}{
		{"empty token", Token{}, false},
		{"no expiry", Token{AccessToken: "abc"}, true},
		{"future expiry", Token{AccessToken: "abc", ExpiresAt: now.Add(time.Minute)}, true},
		{"past expiry", Token{AccessToken: "abc", ExpiresAt: now.Add(-time.Minute)}, false},
		{"expiry right now", Token{AccessToken: "abc", ExpiresAt: now}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.token.Valid(now))
		})
	}
}
