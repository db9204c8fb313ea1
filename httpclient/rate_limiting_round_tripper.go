/*
Copyright © 2025 ReelPlate.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRateLimitingWaitTimeout is a default timeout for a request to wait for a free rate limiting slot.
const DefaultRateLimitingWaitTimeout = 15 * time.Second

// RateLimitingRoundTripper wraps an object that implements http.RoundTripper interface
// and limits the rate of outgoing HTTP requests on the client side.
type RateLimitingRoundTripper struct {
	// Delegate is the next RoundTripper in the chain.
	Delegate http.RoundTripper

	// RateLimit is a maximum number of requests per second.
	RateLimit int

	// Limiter is a token bucket limiter that enforces the rate.
	Limiter *rate.Limiter

	// WaitTimeout is a timeout for a request to wait for a free slot.
	WaitTimeout time.Duration
}

// RateLimitingRoundTripperOpts represents an options for RateLimitingRoundTripper.
type RateLimitingRoundTripperOpts struct {
	// Burst allows short bursts of requests while keeping the average rate.
	// Values less than 1 are treated as 1.
	Burst int

	// WaitTimeout is a timeout for a request to wait for a free slot.
	// By default, DefaultRateLimitingWaitTimeout const is used.
	WaitTimeout time.Duration
}

// NewRateLimitingRoundTripper creates a new RateLimitingRoundTripper with the given rate limit.
func NewRateLimitingRoundTripper(delegate http.RoundTripper, rateLimit int) (*RateLimitingRoundTripper, error) {
	return NewRateLimitingRoundTripperWithOpts(delegate, rateLimit, RateLimitingRoundTripperOpts{})
}

// NewRateLimitingRoundTripperWithOpts creates a new RateLimitingRoundTripper with the given rate limit and options.
func NewRateLimitingRoundTripperWithOpts(
	delegate http.RoundTripper, rateLimit int, opts RateLimitingRoundTripperOpts,
) (*RateLimitingRoundTripper, error) {
	if rateLimit <= 0 {
		return nil, fmt.Errorf("rate limit must be positive")
	}
	if opts.WaitTimeout < 0 {
		return nil, fmt.Errorf("wait timeout must not be negative")
	}
	if opts.WaitTimeout == 0 {
		opts.WaitTimeout = DefaultRateLimitingWaitTimeout
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	return &RateLimitingRoundTripper{
		Delegate:    delegate,
		RateLimit:   rateLimit,
		Limiter:     rate.NewLimiter(rate.Limit(rateLimit), burst),
		WaitTimeout: opts.WaitTimeout,
	}, nil
}

// RoundTrip waits for a free rate limiting slot and then performs the request.
func (rt *RateLimitingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(req.Context(), rt.WaitTimeout)
	defer cancel()
	if err := rt.Limiter.Wait(ctx); err != nil {
		return nil, &RateLimitingWaitError{Inner: err}
	}
	return rt.Delegate.RoundTrip(req)
}

// RateLimitingWaitError is returned in RoundTrip method of RateLimitingRoundTripper
// when the waiting of the free slot for doing the next request is failed (e.g., time is up).
type RateLimitingWaitError struct {
	Inner error
}

func (e *RateLimitingWaitError) Error() string {
	return fmt.Sprintf("wait for rate limiting slot: %s", e.Inner.Error())
}

// Unwrap returns the next error in the error chain.
func (e *RateLimitingWaitError) Unwrap() error {
	return e.Inner
}
