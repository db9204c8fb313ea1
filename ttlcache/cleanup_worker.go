/*
Copyright © 2025 ReelPlate.

Released under MIT license.
*/

package ttlcache

import "context"

// CleanupWorker performs a single expired-entries sweep per run.
// It is intended to be hosted by service.PeriodicWorker as an alternative
// to RunPeriodicCleanup when the application manages worker lifecycles explicitly.
type CleanupWorker[V any] struct {
	cache *TTLCache[V]
}

// NewCleanupWorker creates a new CleanupWorker sweeping the given cache.
func NewCleanupWorker[V any](cache *TTLCache[V]) *CleanupWorker[V] {
	return &CleanupWorker[V]{cache: cache}
}

// Run removes all expired entries from the cache.
func (w *CleanupWorker[V]) Run(ctx context.Context) error {
	w.cache.RemoveExpired()
	return nil
}
