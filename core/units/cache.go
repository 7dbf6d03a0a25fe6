package units

import (
	"context"
	"sync"
	"time"
)

const defaultCacheTTL = 5 * time.Minute

// CachedResolver wraps a Resolver with a TTL cache. The registry changes
// rarely but must not go permanently stale; expired entries are refreshed by
// whichever caller notices, and a failed refresh falls back to the stale
// value rather than the default.
type CachedResolver struct {
	inner Resolver
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	res Resolution
	at  time.Time
}

func NewCachedResolver(inner Resolver, ttl time.Duration) *CachedResolver {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedResolver{
		inner:   inner,
		ttl:     ttl,
		entries: map[string]cacheEntry{},
	}
}

func (c *CachedResolver) Resolve(ctx context.Context, rawToken string) (Resolution, error) {
	key := NormalizeToken(rawToken)
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && time.Since(e.at) < c.ttl {
		return e.res, nil
	}
	res, err := c.inner.Resolve(ctx, rawToken)
	if err != nil {
		if ok {
			return e.res, nil
		}
		return DefaultResolution(rawToken), nil
	}
	c.mu.Lock()
	c.entries[key] = cacheEntry{res: res, at: time.Now()}
	c.mu.Unlock()
	return res, nil
}

// PruneExpired drops entries past the TTL. Called periodically so the map
// does not grow without bound on one-off tokens.
func (c *CachedResolver) PruneExpired() {
	cutoff := time.Now().Add(-c.ttl)
	c.mu.Lock()
	for key, e := range c.entries {
		if e.at.Before(cutoff) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

// Invalidate empties the cache so the next lookups hit the registry.
func (c *CachedResolver) Invalidate() {
	c.mu.Lock()
	c.entries = map[string]cacheEntry{}
	c.mu.Unlock()
}
