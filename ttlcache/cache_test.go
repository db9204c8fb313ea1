/*
Copyright © 2025 ReelPlate.

Released under MIT license.
*/

package ttlcache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reelplate/providerkit/testutil"
)

func newTestCache(t *testing.T, maxEntries int) (*TTLCache[string], *time.Time) {
	t.Helper()
	cache, err := NewWithOpts[string](maxEntries, nil)
	require.NoError(t, err)
	current := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }
	return cache, &current
}

func TestTTLCacheSetGet(t *testing.T) {
	cache, now := newTestCache(t, 100)

	_, found := cache.Get("movie:1")
	require.False(t, found)

	cache.Set("movie:1", "Alien", time.Minute)
	got, found := cache.Get("movie:1")
	require.True(t, found)
	require.Equal(t, "Alien", got)
	require.True(t, cache.Has("movie:1"))
	require.Equal(t, 1, cache.Len())

	// Overwriting resets both value and expiration.
	cache.Set("movie:1", "Aliens", time.Hour)
	got, found = cache.Get("movie:1")
	require.True(t, found)
	require.Equal(t, "Aliens", got)
	require.Equal(t, 1, cache.Len())

	*now = now.Add(time.Hour + time.Second)
	_, found = cache.Get("movie:1")
	require.False(t, found)
	require.Equal(t, 0, cache.Len())
}

func TestTTLCacheExpiration(t *testing.T) {
	cache, now := newTestCache(t, 100)

	cache.Set("short", "a", time.Minute)
	cache.Set("long", "b", time.Hour)

	*now = now.Add(2 * time.Minute)
	require.False(t, cache.Has("short"))
	require.True(t, cache.Has("long"))

	// Len counts expired entries until they are observed or swept.
	cache.Set("short2", "c", time.Minute)
	*now = now.Add(2 * time.Minute)
	require.Equal(t, 2, cache.Len())
	cache.RemoveExpired()
	require.Equal(t, 1, cache.Len())
	require.True(t, cache.Has("long"))
}

func TestTTLCacheDeleteAndClear(t *testing.T) {
	cache, _ := newTestCache(t, 100)

	cache.Set("a", "1", time.Minute)
	cache.Set("b", "2", time.Minute)

	require.True(t, cache.Delete("a"))
	require.False(t, cache.Delete("a"))
	require.False(t, cache.Has("a"))

	cache.Clear()
	require.Equal(t, 0, cache.Len())
	require.False(t, cache.Has("b"))
}

func TestTTLCacheTTL(t *testing.T) {
	cache, now := newTestCache(t, 100)

	require.Equal(t, TTLNone, cache.TTL("missing"))

	cache.Set("a", "1", time.Minute)
	require.Equal(t, 60, cache.TTL("a"))

	// Remaining TTL is rounded up to whole seconds.
	*now = now.Add(30*time.Second + 400*time.Millisecond)
	require.Equal(t, 30, cache.TTL("a"))

	*now = now.Add(2 * time.Minute)
	require.Equal(t, TTLNone, cache.TTL("a"))
}

func TestTTLCacheExpire(t *testing.T) {
	cache, now := newTestCache(t, 100)

	require.False(t, cache.Expire("missing", time.Minute))

	cache.Set("a", "1", time.Hour)
	require.True(t, cache.Expire("a", time.Second))
	*now = now.Add(2 * time.Second)
	require.False(t, cache.Has("a"))
}

func TestTTLCacheEvictsNearestToExpire(t *testing.T) {
	cache, _ := newTestCache(t, 10)

	// Entry expiring soonest is the eviction victim when the cache is full.
	for i := 0; i < 10; i++ {
		cache.Set(fmt.Sprintf("key%d", i), "v", time.Duration(i+1)*time.Minute)
	}
	require.Equal(t, 10, cache.Len())

	cache.Set("extra", "v", time.Hour)
	require.Equal(t, 10, cache.Len())
	require.False(t, cache.Has("key0"))
	require.True(t, cache.Has("key1"))
	require.True(t, cache.Has("extra"))
}

func TestTTLCacheEvictionBatchSize(t *testing.T) {
	cache, _ := newTestCache(t, 100)

	for i := 0; i < 100; i++ {
		cache.Set(fmt.Sprintf("key%d", i), "v", time.Duration(i+1)*time.Minute)
	}
	cache.Set("extra", "v", time.Hour)

	// A tenth of the capacity is evicted at once, all nearest to expire.
	require.Equal(t, 91, cache.Len())
	for i := 0; i < 10; i++ {
		require.False(t, cache.Has(fmt.Sprintf("key%d", i)))
	}
	require.True(t, cache.Has("key10"))
}

func TestTTLCacheGetOrFetch(t *testing.T) {
	cache, _ := newTestCache(t, 100)

	var fetchCalls atomic.Int32
	fetch := func(ctx context.Context) (string, error) {
		fetchCalls.Add(1)
		return "fetched", nil
	}

	got, err := cache.GetOrFetch(context.Background(), "a", time.Minute, fetch)
	require.NoError(t, err)
	require.Equal(t, "fetched", got)
	require.EqualValues(t, 1, fetchCalls.Load())

	// Second call is served from the cache.
	got, err = cache.GetOrFetch(context.Background(), "a", time.Minute, fetch)
	require.NoError(t, err)
	require.Equal(t, "fetched", got)
	require.EqualValues(t, 1, fetchCalls.Load())
}

func TestTTLCacheGetOrFetchError(t *testing.T) {
	cache, _ := newTestCache(t, 100)

	wantErr := fmt.Errorf("fetch failed")
	_, err := cache.GetOrFetch(context.Background(), "a", time.Minute, func(ctx context.Context) (string, error) {
		return "", wantErr
	})
	require.ErrorIs(t, err, wantErr)
	require.False(t, cache.Has("a"))
}

func TestTTLCacheGetOrFetchCoalescesConcurrentCalls(t *testing.T) {
	cache, _ := newTestCache(t, 100)

	var fetchCalls atomic.Int32
	fetchStarted := make(chan struct{})
	fetchRelease := make(chan struct{})
	fetch := func(ctx context.Context) (string, error) {
		fetchCalls.Add(1)
		close(fetchStarted)
		<-fetchRelease
		return "fetched", nil
	}

	const concurrency = 10
	var wg sync.WaitGroup
	results := make([]string, concurrency)
	wg.Add(1)
	go func() {
		defer wg.Done()
		got, err := cache.GetOrFetch(context.Background(), "a", time.Minute, fetch)
		require.NoError(t, err)
		results[0] = got
	}()
	<-fetchStarted

	for i := 1; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := cache.GetOrFetch(context.Background(), "a", time.Minute, func(ctx context.Context) (string, error) {
				return "", fmt.Errorf("unexpected second fetch")
			})
			require.NoError(t, err)
			results[i] = got
		}(i)
	}

	// All waiters are blocked on the in-flight fetch; release it.
	time.Sleep(50 * time.Millisecond)
	close(fetchRelease)
	wg.Wait()

	require.EqualValues(t, 1, fetchCalls.Load())
	for _, got := range results {
		require.Equal(t, "fetched", got)
	}
}

func TestTTLCacheRunPeriodicCleanup(t *testing.T) {
	cache, err := NewWithOpts[string](100, nil)
	require.NoError(t, err)

	cache.Set("a", "1", 30*time.Millisecond)
	cache.Set("b", "2", time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cache.RunPeriodicCleanup(ctx, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return cache.Len() == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("periodic cleanup did not stop after context cancellation")
	}
	require.True(t, cache.Has("b"))
}

func TestTTLCachePrometheusMetrics(t *testing.T) {
	pm := NewPrometheusMetrics()
	cache, err := NewWithOpts[string](10, pm)
	require.NoError(t, err)
	current := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }

	cache.Set("a", "1", time.Minute)
	cache.Set("b", "2", time.Minute)
	_, _ = cache.Get("a")
	_, _ = cache.Get("missing")

	testutil.RequireGaugeValue(t, pm.EntriesAmount.With(nil), 2)
	testutil.RequireCounterValue(t, pm.HitsTotal.With(nil), 1)
	testutil.RequireCounterValue(t, pm.MissesTotal.With(nil), 1)

	// 12 unique keys into a 10-entry cache trigger two eviction passes of one entry each.
	for i := 0; i < 10; i++ {
		cache.Set(fmt.Sprintf("key%d", i), "v", time.Minute)
	}
	testutil.RequireCounterValue(t, pm.EvictionsTotal.With(nil), 2)

	// Expired entries are counted both on lazy removal and on sweeps.
	current = current.Add(2 * time.Minute)
	_, ok := cache.Get("key9")
	require.False(t, ok)
	testutil.RequireCounterValue(t, pm.ExpiredRemovalsTotal.With(nil), 1)

	cache.RemoveExpired()
	testutil.RequireCounterValue(t, pm.ExpiredRemovalsTotal.With(nil), 10)
	testutil.RequireGaugeValue(t, pm.EntriesAmount.With(nil), 0)
}

func TestCleanupWorker(t *testing.T) {
	cache, now := newTestCache(t, 100)

	cache.Set("a", "1", time.Minute)
	cache.Set("b", "2", time.Hour)
	*now = now.Add(2 * time.Minute)

	worker := NewCleanupWorker(cache)
	require.NoError(t, worker.Run(context.Background()))
	require.Equal(t, 1, cache.Len())
	require.True(t, cache.Has("b"))
}
