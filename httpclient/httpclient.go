/*
Copyright © 2025 ReelPlate.

Released under MIT license.
*/

// Package httpclient provides functionality for creating and configuring HTTP clients.
//
// Clients are assembled as a chain of http.RoundTripper decorators around a base transport:
// request logging, client-side rate limiting, User-Agent and X-Request-ID injection,
// and retries with backoff. Each decorator can also be used standalone.
package httpclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/reelplate/providerkit/log"
)

// Opts provides options for creating a new HTTP client.
type Opts struct {
	// UserAgent is a value that will be set in the User-Agent header of every outgoing request
	// unless the request already carries one.
	UserAgent string

	// Logger is used for logging requests.
	Logger log.FieldLogger

	// LoggerProvider is a function that provides a context-specific logger for requests.
	// It takes precedence over Logger when both are set.
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// Delegate is a base transport that will be wrapped by the configured round trippers.
	// http.DefaultTransport is cloned when it's not specified.
	Delegate http.RoundTripper
}

// New creates a new http.Client based on the passed configuration.
func New(cfg *Config) (*http.Client, error) {
	return NewWithOpts(cfg, Opts{})
}

// Must wraps a call returning (*http.Client, error) and panics if the error is non-nil.
func Must(client *http.Client, err error) *http.Client {
	if err != nil {
		panic(err)
	}
	return client
}

// NewWithOpts creates a new http.Client based on the passed configuration and options.
//
// Round trippers are applied in the following order for an outgoing request:
// logging -> rate limiting -> user agent -> request id -> retries -> delegate.
func NewWithOpts(cfg *Config, opts Opts) (*http.Client, error) {
	delegate := opts.Delegate
	if delegate == nil {
		delegate = http.DefaultTransport.(*http.Transport).Clone()
	}

	loggerProvider := opts.LoggerProvider
	if loggerProvider == nil {
		logger := opts.Logger
		if logger == nil {
			logger = log.NewDisabledLogger()
		}
		loggerProvider = func(ctx context.Context) log.FieldLogger {
			return logger
		}
	}

	if cfg.Retries.Enabled {
		policy, err := cfg.Retries.GetPolicy()
		if err != nil {
			return nil, fmt.Errorf("get retry policy: %w", err)
		}
		delegate, err = NewRetryableRoundTripperWithOpts(delegate, RetryableRoundTripperOpts{
			MaxRetryAttempts: cfg.Retries.MaxAttempts,
			BackoffPolicy:    policy,
			LoggerProvider:   loggerProvider,
		})
		if err != nil {
			return nil, fmt.Errorf("create retryable round tripper: %w", err)
		}
	}

	delegate = NewRequestIDRoundTripper(delegate)

	if opts.UserAgent != "" {
		delegate = NewUserAgentRoundTripper(delegate, opts.UserAgent)
	}

	if cfg.RateLimits.Enabled {
		var err error
		delegate, err = NewRateLimitingRoundTripperWithOpts(delegate, cfg.RateLimits.Limit,
			RateLimitingRoundTripperOpts{
				Burst:       cfg.RateLimits.Burst,
				WaitTimeout: cfg.RateLimits.WaitTimeout,
			})
		if err != nil {
			return nil, fmt.Errorf("create rate limiting round tripper: %w", err)
		}
	}

	if cfg.Log.Enabled {
		delegate = NewLoggingRoundTripperWithOpts(delegate, LoggingRoundTripperOpts{
			LoggerProvider:       loggerProvider,
			Mode:                 cfg.Log.Mode,
			SlowRequestThreshold: cfg.Log.SlowRequestThreshold,
		})
	}

	return &http.Client{Transport: delegate, Timeout: cfg.Timeout}, nil
}

// CloneHTTPRequest creates a shallow copy of the request along with a deep copy of the Headers.
func CloneHTTPRequest(req *http.Request) *http.Request {
	r := new(http.Request)
	*r = *req
	r.Header = CloneHTTPHeader(req.Header)
	return r
}

// CloneHTTPHeader creates a deep copy of an http.Header.
func CloneHTTPHeader(in http.Header) http.Header {
	out := make(http.Header, len(in))
	for key, values := range in {
		newValues := make([]string, len(values))
		copy(newValues, values)
		out[key] = newValues
	}
	return out
}
