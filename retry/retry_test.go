/*
Copyright © 2025 ReelPlate.

Released under MIT license.
*/

package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"
)

func TestDoWithRetrySucceedsAfterFailures(t *testing.T) {
	policy := NewConstantBackoffPolicy(time.Millisecond, 5)

	calls := 0
	err := DoWithRetry(context.Background(), policy, nil, nil, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("attempt %d failed", calls)
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDoWithRetryExhaustsAttempts(t *testing.T) {
	policy := NewConstantBackoffPolicy(time.Millisecond, 2)

	calls := 0
	wantErr := fmt.Errorf("persistent failure")
	err := DoWithRetry(context.Background(), policy, nil, nil, func(ctx context.Context) error {
		calls++
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)
	require.Equal(t, 3, calls)
}

func TestDoWithRetryNonRetryableError(t *testing.T) {
	policy := NewConstantBackoffPolicy(time.Millisecond, 5)
	permanentErr := fmt.Errorf("permanent failure")

	calls := 0
	err := DoWithRetry(context.Background(), policy, func(err error) bool {
		return false
	}, nil, func(ctx context.Context) error {
		calls++
		return permanentErr
	})
	require.ErrorIs(t, err, permanentErr)
	require.Equal(t, 1, calls)
}

func TestDoWithRetryContextCancellation(t *testing.T) {
	policy := NewConstantBackoffPolicy(time.Hour, 5)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- DoWithRetry(ctx, policy, nil, nil, func(ctx context.Context) error {
			calls++
			return fmt.Errorf("failure")
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.Error(t, err)
		require.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("retry loop did not stop after context cancellation")
	}
}

func TestDoWithRetryNotify(t *testing.T) {
	policy := NewConstantBackoffPolicy(time.Millisecond, 3)

	var notified []error
	err := DoWithRetry(context.Background(), policy, nil, func(err error, d time.Duration) {
		notified = append(notified, err)
	}, func(ctx context.Context) error {
		return fmt.Errorf("failure")
	})
	require.Error(t, err)
	require.Len(t, notified, 3)
}

func TestExponentialBackoffPolicyIntervals(t *testing.T) {
	policy := NewExponentialBackoffPolicy(time.Second, 3)
	bf := policy.NewBackOff()

	// With randomization factor 0.5 the n-th delay is within
	// [base*0.5, base*1.5] where base doubles each attempt.
	base := time.Second
	for i := 0; i < 3; i++ {
		delay := bf.NextBackOff()
		require.GreaterOrEqual(t, delay, time.Duration(float64(base)*0.5))
		require.LessOrEqual(t, delay, time.Duration(float64(base)*1.5))
		base *= 2
	}
	require.Equal(t, backoff.Stop, bf.NextBackOff())
}

func TestConstantBackoffPolicyIntervals(t *testing.T) {
	policy := NewConstantBackoffPolicy(42*time.Millisecond, 2)
	bf := policy.NewBackOff()

	require.Equal(t, 42*time.Millisecond, bf.NextBackOff())
	require.Equal(t, 42*time.Millisecond, bf.NextBackOff())
	require.Equal(t, backoff.Stop, bf.NextBackOff())
}

func TestDefaultPolicy(t *testing.T) {
	bf := DefaultPolicy().NewBackOff()

	// DefaultMaxAttempts total invocations mean one delay less than that.
	delays := 0
	for d := bf.NextBackOff(); d != backoff.Stop; d = bf.NextBackOff() {
		delays++
		require.Less(t, delays, 10, "default policy must be bounded")
	}
	require.Equal(t, DefaultMaxAttempts-1, delays)
}

func TestDoWithRetryDefaultAttemptCount(t *testing.T) {
	// Same retry bound as DefaultPolicy, with a fast interval.
	policy := NewExponentialBackoffPolicy(time.Millisecond, DefaultMaxAttempts-1)

	calls := 0
	err := DoWithRetry(context.Background(), policy, nil, nil, func(ctx context.Context) error {
		calls++
		return fmt.Errorf("failure")
	})
	require.Error(t, err)
	require.Equal(t, DefaultMaxAttempts, calls)
}
