/*
Copyright © 2025 ReelPlate.

Released under MIT license.
*/

package ttlcache

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// DefaultMaxEntries is the entry count bound used by New.
const DefaultMaxEntries = 1000

// DefaultCleanupInterval is the interval RunPeriodicCleanup is supposed to be run with.
const DefaultCleanupInterval = 5 * time.Minute

// TTLNone is returned by TTL for keys that are absent or already expired.
// The value follows the Redis TTL command convention.
const TTLNone = -2

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache represents a bounded key-value store with per-entry expiration.
// When the entry count bound is reached, a batch of entries with the nearest
// expiration time is evicted before the next insertion (a cheap proxy for
// recency that needs no access tracking).
//
// All methods are safe for concurrent use.
type TTLCache[V any] struct {
	maxEntries int

	mu      sync.Mutex
	entries map[string]cacheEntry[V]

	fetchGroup singleFlightGroup[string, V]

	metricsCollector MetricsCollector

	now func() time.Time
}

// New creates a new TTLCache bounded to DefaultMaxEntries entries, without metrics.
func New[V any]() *TTLCache[V] {
	c, _ := NewWithOpts[V](DefaultMaxEntries, nil)
	return c
}

// NewWithOpts creates a new TTLCache with the provided maximum number of entries and metrics collector.
// Metrics collector is used to collect statistics about cache usage.
// It can be nil, in this case, metrics will be disabled.
func NewWithOpts[V any](maxEntries int, metricsCollector MetricsCollector) (*TTLCache[V], error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("maxEntries must be greater than 0")
	}
	if metricsCollector == nil {
		metricsCollector = disabledMetrics{}
	}
	return &TTLCache[V]{
		maxEntries:       maxEntries,
		entries:          make(map[string]cacheEntry[V]),
		metricsCollector: metricsCollector,
		now:              time.Now,
	}, nil
}

// Get returns a value from the cache by the provided key.
// An expired entry is never returned; it is removed as a side effect.
func (c *TTLCache[V]) Get(key string) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get(key)
}

// Set stores the value under the provided key with the given TTL,
// evicting a batch of nearest-to-expire entries first if the cache is full.
func (c *TTLCache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.maxEntries {
		c.evictNearestToExpire()
	}
	c.entries[key] = cacheEntry[V]{value: value, expiresAt: c.now().Add(ttl)}
	c.metricsCollector.SetAmount(len(c.entries))
}

// Has reports whether an unexpired value exists for the provided key.
// Expiry semantics are the same as in Get.
func (c *TTLCache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.get(key)
	return ok
}

// Delete removes a value from the cache by the provided key.
func (c *TTLCache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	c.metricsCollector.SetAmount(len(c.entries))
	return true
}

// Clear removes all entries from the cache.
func (c *TTLCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry[V])
	c.metricsCollector.SetAmount(0)
}

// Len returns the number of entries in the cache, expired ones included.
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// TTL returns the remaining lifetime of the entry in whole seconds (rounded up).
// It returns TTLNone (-2, as in Redis) if the key is absent or expired.
func (c *TTLCache[V]) TTL(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return TTLNone
	}
	remaining := entry.expiresAt.Sub(c.now())
	if remaining <= 0 {
		delete(c.entries, key)
		c.metricsCollector.AddExpiredRemovals(1)
		c.metricsCollector.SetAmount(len(c.entries))
		return TTLNone
	}
	return int(math.Ceil(remaining.Seconds()))
}

// Expire rewrites the expiration time of an existing unexpired entry.
// It returns false if the key is absent or already expired.
func (c *TTLCache[V]) Expire(key string, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return false
	}
	if entry.expiresAt.Before(c.now()) {
		delete(c.entries, key)
		c.metricsCollector.AddExpiredRemovals(1)
		c.metricsCollector.SetAmount(len(c.entries))
		return false
	}
	entry.expiresAt = c.now().Add(ttl)
	c.entries[key] = entry
	return true
}

// GetOrFetch returns a valid cached value if one exists; otherwise it invokes fetch,
// caches its result with the given TTL and returns it. A fetch error propagates
// to the caller and nothing is cached.
//
// Concurrent calls for the same key are coalesced: only one fetch is in flight
// per key and all callers receive its outcome. The fetch runs under the context
// of the caller that started it.
func (c *TTLCache[V]) GetOrFetch(
	ctx context.Context, key string, ttl time.Duration, fetch func(ctx context.Context) (V, error),
) (V, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}
	return c.fetchGroup.Do(key, func() (V, error) {
		// Another coalesced caller may have already populated the entry.
		if value, ok := c.Get(key); ok {
			return value, nil
		}
		value, err := fetch(ctx)
		if err != nil {
			var zero V
			return zero, err
		}
		c.Set(key, value, ttl)
		return value, nil
	})
}

// RunPeriodicCleanup runs a cycle of periodic cleanup of expired entries.
// It's supposed to be run in a separate goroutine and stops when ctx is canceled.
func (c *TTLCache[V]) RunPeriodicCleanup(ctx context.Context, cleanupInterval time.Duration) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RemoveExpired()
		}
	}
}

// RemoveExpired performs a single sweep removing all expired entries.
func (c *TTLCache[V]) RemoveExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if entry.expiresAt.Before(now) {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		c.metricsCollector.AddExpiredRemovals(removed)
	}
	c.metricsCollector.SetAmount(len(c.entries))
}

func (c *TTLCache[V]) get(key string) (value V, ok bool) {
	entry, hit := c.entries[key]
	if !hit {
		c.metricsCollector.IncMisses()
		return value, false
	}
	if entry.expiresAt.Before(c.now()) {
		delete(c.entries, key)
		c.metricsCollector.AddExpiredRemovals(1)
		c.metricsCollector.SetAmount(len(c.entries))
		c.metricsCollector.IncMisses()
		return value, false
	}
	c.metricsCollector.IncHits()
	return entry.value, true
}

// evictNearestToExpire removes ~10% of the entries (at least one), choosing
// those with the nearest expiration time. Called with the mutex held.
func (c *TTLCache[V]) evictNearestToExpire() {
	evictCount := c.maxEntries / 10
	if evictCount < 1 {
		evictCount = 1
	}
	if evictCount > len(c.entries) {
		evictCount = len(c.entries)
	}

	type keyedExpiration struct {
		key       string
		expiresAt time.Time
	}
	ordered := make([]keyedExpiration, 0, len(c.entries))
	for key, entry := range c.entries {
		ordered = append(ordered, keyedExpiration{key, entry.expiresAt})
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].expiresAt.Before(ordered[j].expiresAt)
	})
	for i := 0; i < evictCount; i++ {
		delete(c.entries, ordered[i].key)
	}
	c.metricsCollector.AddEvictions(evictCount)
}
