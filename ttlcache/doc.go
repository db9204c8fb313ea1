/*
Copyright © 2025 ReelPlate.

Released under MIT license.
*/

// Package ttlcache provides a bounded in-memory cache with per-entry TTL,
// nearest-expiration eviction, coalesced fetching of missing values and
// optional Prometheus metrics.
//
// The cache is intended for shielding external data providers: entries expire
// on their own schedule, a periodic cleanup removes the ones nobody asks for,
// and GetOrFetch guarantees a single in-flight fetch per key no matter how
// many goroutines miss simultaneously.
package ttlcache
