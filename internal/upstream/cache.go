package upstream

import (
	"sync"
	"time"

	"chatgate/pkg/logging"
)

// TokenCache maps an API identifier to the most recently minted token for it.
//
// Entries are treated as immutable values: Put replaces the whole entry and
// Get never mutates one. Expired entries are not swept; they simply miss on
// the next Get and are overwritten by the next Put for that API identifier.
//
// Concurrent refreshes for the same API identifier may race: two callers can
// both miss, both exchange, and both Put. The last writer wins, which is
// harmless because both tokens are valid. The cache deliberately does not
// serialize exchanges.
type TokenCache struct {
	mu     sync.RWMutex
	tokens map[string]Token
	now    func() time.Time
}

// NewTokenCache creates an empty token cache using the wall clock.
func NewTokenCache() *TokenCache {
	return NewTokenCacheWithClock(time.Now)
}

// NewTokenCacheWithClock creates a token cache with an injected clock,
// for deterministic expiry tests.
func NewTokenCacheWithClock(now func() time.Time) *TokenCache {
	return &TokenCache{
		tokens: make(map[string]Token),
		now:    now,
	}
}

// Get returns the cached token for the API identifier, if present and still
// valid. A stale entry reports a miss.
func (c *TokenCache) Get(apiID string) (Token, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	token, ok := c.tokens[apiID]
	if !ok {
		return Token{}, false
	}
	if !token.Valid(c.now()) {
		logging.Debug("TokenCache", "Cached token for api id %s is expired", apiID)
		return Token{}, false
	}
	return token, true
}

// Put stores a token for the API identifier, replacing any previous entry.
func (c *TokenCache) Put(apiID string, token Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[apiID] = token
}

// Len returns the number of cached entries, valid or stale.
func (c *TokenCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tokens)
}
