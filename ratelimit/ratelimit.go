/*
Copyright © 2025 ReelPlate.

Released under MIT license.
*/

// Package ratelimit provides a per-provider fixed-window admission counter.
//
// Time is divided into non-overlapping fixed-length windows aligned to the
// clock; each window has an independent counter. The trade-off against a
// sliding window is a possible ~2x burst at window boundaries, accepted for
// simplicity and because quota-style provider limits are window-aligned anyway.
package ratelimit

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// ErrUnknownProvider is returned by Check when the provider name was never registered.
// Unlike quota exhaustion, this is a programmer error and is supposed to fail fast.
var ErrUnknownProvider = errors.New("unknown rate limit provider")

// staleCounterRetention determines how long a finished window's counter is
// kept before the opportunistic GC inside Check drops it.
const staleCounterRetention = 5 * time.Minute

// Limit describes a provider's quota: how many requests are admitted per window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Result is the outcome of a single admission check.
type Result struct {
	// Allowed reports whether the request fits into the current window's quota.
	Allowed bool

	// Remaining is the number of requests left in the current window after this check.
	Remaining int

	// ResetIn is the time until the current window's boundary, rounded up to a whole second.
	ResetIn time.Duration

	// Limit is the configured number of requests per window.
	Limit int
}

// ProviderStats is a monitoring snapshot of a single provider's current window.
type ProviderStats struct {
	Current int
	Limit   int
	ResetIn time.Duration
}

type windowCounter struct {
	count   int
	resetAt time.Time
}

// Registry tracks admission counters for a set of named providers.
// All methods are safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	limits   map[string]Limit
	counters map[string]windowCounter

	metricsCollector MetricsCollector

	now func() time.Time
}

// Opts represents options for NewRegistryWithOpts.
type Opts struct {
	// MetricsCollector is used to collect statistics about admission decisions.
	// It can be nil, in this case, metrics will be disabled.
	MetricsCollector MetricsCollector
}

// NewRegistry creates a new Registry without metrics.
func NewRegistry() *Registry {
	return NewRegistryWithOpts(Opts{})
}

// NewRegistryWithOpts creates a new Registry with the provided options.
func NewRegistryWithOpts(opts Opts) *Registry {
	mc := opts.MetricsCollector
	if mc == nil {
		mc = disabledMetrics{}
	}
	return &Registry{
		limits:           make(map[string]Limit),
		counters:         make(map[string]windowCounter),
		metricsCollector: mc,
		now:              time.Now,
	}
}

// SetLimit registers a provider's quota, overwriting a previously registered one.
func (r *Registry) SetLimit(name string, requests int, window time.Duration) error {
	if name == "" {
		return fmt.Errorf("provider name must not be empty")
	}
	if requests <= 0 {
		return fmt.Errorf("requests must be positive")
	}
	if window <= 0 {
		return fmt.Errorf("window must be positive")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.limits[name] = Limit{Requests: requests, Window: window}
	return nil
}

// Check performs an admission check for the named provider.
// If the current window still has quota, the counter is incremented and
// Result.Allowed is true; otherwise the counter is left as is and
// Result.Allowed is false. Denial is not an error: the only error condition
// is an unregistered provider name.
func (r *Registry) Check(name string) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	limit, ok := r.limits[name]
	if !ok {
		return Result{}, fmt.Errorf("%q: %w", name, ErrUnknownProvider)
	}

	now := r.now()
	r.dropStaleCounters(now)

	windowStart := now.Truncate(limit.Window)
	resetAt := windowStart.Add(limit.Window)
	counterKey := counterKey(name, windowStart)

	counter := r.counters[counterKey]
	if counter.count >= limit.Requests {
		r.metricsCollector.IncDenied(name)
		return Result{
			Allowed:   false,
			Remaining: 0,
			ResetIn:   ceilToSecond(resetAt.Sub(now)),
			Limit:     limit.Requests,
		}, nil
	}

	counter.count++
	counter.resetAt = resetAt
	r.counters[counterKey] = counter
	r.metricsCollector.IncAllowed(name)
	return Result{
		Allowed:   true,
		Remaining: limit.Requests - counter.count,
		ResetIn:   ceilToSecond(resetAt.Sub(now)),
		Limit:     limit.Requests,
	}, nil
}

// RemainingRequests returns the quota left in the named provider's current
// window without consuming any of it. It returns the full limit when the
// window has no counter yet and 0 (not an error) for an unknown provider.
func (r *Registry) RemainingRequests(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	limit, ok := r.limits[name]
	if !ok {
		return 0
	}
	counter := r.counters[counterKey(name, r.now().Truncate(limit.Window))]
	remaining := limit.Requests - counter.count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clears the named provider's current window counter.
// Counters of past windows are left for the opportunistic GC.
func (r *Registry) Reset(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	limit, ok := r.limits[name]
	if !ok {
		return
	}
	delete(r.counters, counterKey(name, r.now().Truncate(limit.Window)))
}

// Stats returns a monitoring snapshot for every registered provider.
func (r *Registry) Stats() map[string]ProviderStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	stats := make(map[string]ProviderStats, len(r.limits))
	for name, limit := range r.limits {
		windowStart := now.Truncate(limit.Window)
		counter := r.counters[counterKey(name, windowStart)]
		stats[name] = ProviderStats{
			Current: counter.count,
			Limit:   limit.Requests,
			ResetIn: ceilToSecond(windowStart.Add(limit.Window).Sub(now)),
		}
	}
	return stats
}

// dropStaleCounters removes counters whose window reset passed long ago.
// Called with the mutex held.
func (r *Registry) dropStaleCounters(now time.Time) {
	for key, counter := range r.counters {
		if counter.resetAt.Add(staleCounterRetention).Before(now) {
			delete(r.counters, key)
		}
	}
}

func counterKey(name string, windowStart time.Time) string {
	return name + ":" + strconv.FormatInt(windowStart.UnixMilli(), 10)
}

func ceilToSecond(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return (d + time.Second - 1) / time.Second * time.Second
}
