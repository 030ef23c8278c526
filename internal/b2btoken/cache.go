// ABOUTME: In-memory per-audience cache of B2B tokens with expiry-aware reuse
// ABOUTME: Applies an expiry buffer so tokens are refreshed before they lapse

package b2btoken

import (
	"context"
	"sync"
	"time"

	"github.com/portalmesh/portal-bff/internal/metrics"
)

// DefaultExpiryBuffer is subtracted from the provider TTL before caching.
const DefaultExpiryBuffer = 5 * time.Minute

// cachedToken is one cache entry, keyed by audience in the cache map.
type cachedToken struct {
	token     string
	expiresAt time.Time
}

// Cache holds one token per downstream audience and refreshes entries
// through its Acquirer when they are absent or past their buffered expiry.
// Safe for concurrent use. Concurrent misses for the same audience may each
// call the Acquirer; the last writer wins.
type Cache struct {
	acquirer Acquirer
	buffer   time.Duration
	now      func() time.Time

	mu     sync.Mutex
	tokens map[string]cachedToken
}

// Option configures a Cache.
type Option func(*Cache)

// WithExpiryBuffer overrides the default expiry buffer.
func WithExpiryBuffer(d time.Duration) Option {
	return func(c *Cache) { c.buffer = d }
}

// WithClock substitutes the time source. Tests use this to cross expiry
// boundaries deterministically.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// NewCache creates a token cache backed by the given acquirer.
func NewCache(acquirer Acquirer, opts ...Option) *Cache {
	c := &Cache{
		acquirer: acquirer,
		buffer:   DefaultExpiryBuffer,
		now:      time.Now,
		tokens:   make(map[string]cachedToken),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns a valid token for the audience, acquiring a fresh one when
// the cache has no unexpired entry. A cached token is only returned while
// its buffered expiry lies in the future.
func (c *Cache) Token(ctx context.Context, audience string) (string, error) {
	c.mu.Lock()
	if entry, ok := c.tokens[audience]; ok && c.now().Before(entry.expiresAt) {
		c.mu.Unlock()
		metrics.TokenCacheHits.WithLabelValues(audience).Inc()
		return entry.token, nil
	}
	c.mu.Unlock()
	metrics.TokenCacheMisses.WithLabelValues(audience).Inc()

	// Acquire outside the lock; a concurrent miss for the same audience may
	// acquire redundantly, which the token endpoint tolerates.
	token, ttl, err := c.acquirer.Acquire(ctx, audience)
	if err != nil {
		metrics.TokenAcquisitions.WithLabelValues(audience, "error").Inc()
		return "", err
	}
	metrics.TokenAcquisitions.WithLabelValues(audience, "ok").Inc()

	c.mu.Lock()
	c.tokens[audience] = cachedToken{
		token:     token,
		expiresAt: c.now().Add(ttl - c.buffer),
	}
	c.mu.Unlock()

	return token, nil
}

// Clear removes the entries for the given audiences, or every entry when
// called with no arguments. Used for forced refresh and test isolation.
func (c *Cache) Clear(audiences ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(audiences) == 0 {
		c.tokens = make(map[string]cachedToken)
		return
	}
	for _, aud := range audiences {
		delete(c.tokens, aud)
	}
}

// Expiry returns the buffered expiry of the cached token for an audience.
// The zero time means no entry is cached.
func (c *Cache) Expiry(audience string) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens[audience].expiresAt
}
