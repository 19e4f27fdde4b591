// Package dedupe provides TTL-cached, in-flight-coalesced request
// memoization. Dashboard-style callers hitting the same endpoint
// concurrently share one fetch instead of issuing duplicates.
package dedupe

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry struct {
	value    any
	storedAt time.Time
}

// Cache coalesces concurrent fetches per key and serves results from a TTL
// cache. Failed fetches are never cached, so the next call retries fresh.
type Cache struct {
	defaultTTL time.Duration
	now        func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group
}

func New(defaultTTL time.Duration) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = 30 * time.Second
	}
	return &Cache{
		defaultTTL: defaultTTL,
		now:        time.Now,
		entries:    make(map[string]entry),
	}
}

// Do returns the cached value for key while it is fresh (age < ttl), joins an
// in-flight fetch when one exists, and otherwise invokes fetch and caches the
// result. All coalesced callers receive the same value or the same error.
// A non-positive ttl selects the cache default.
func (c *Cache) Do(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (any, error)) (any, error) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if v, ok := c.lookup(key, ttl); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		// A raced caller may have filled the entry while we queued.
		if v, ok := c.lookup(key, ttl); ok {
			return v, nil
		}
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, v)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Invalidate removes matching entries immediately; the next Do refetches even
// if the TTL has not elapsed. A trailing '*' matches by prefix, anything else
// is an exact key.
func (c *Cache) Invalidate(keyOrPattern string) {
	prefix, wildcard := strings.CutSuffix(keyOrPattern, "*")
	c.mu.Lock()
	defer c.mu.Unlock()
	if !wildcard {
		delete(c.entries, keyOrPattern)
		return
	}
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

// Len reports the number of cached entries, fresh or stale.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) lookup(key string, ttl time.Duration) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= ttl {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) store(key string, v any) {
	c.mu.Lock()
	c.entries[key] = entry{value: v, storedAt: c.now()}
	c.mu.Unlock()
}

// Get is a typed wrapper over Cache.Do.
func Get[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	v, err := c.Do(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
