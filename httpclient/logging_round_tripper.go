/*
Copyright © 2025 ReelPlate.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/reelplate/providerkit/log"
)

// DefaultSlowRequestThreshold is a default threshold for slow requests
// exceeding which the request is logged with a warning.
const DefaultSlowRequestThreshold = 1 * time.Second

// LoggingMode represents a mode of logging outgoing HTTP requests.
type LoggingMode string

// Logging modes.
const (
	// LoggingModeNone disables request logging.
	LoggingModeNone LoggingMode = "none"

	// LoggingModeAll enables logging of all requests.
	LoggingModeAll LoggingMode = "all"

	// LoggingModeFailed enables logging of failed requests only
	// (network errors and responses with 4xx/5xx status codes).
	LoggingModeFailed LoggingMode = "failed"
)

// IsValid checks if the logging mode is valid.
func (lm LoggingMode) IsValid() bool {
	switch lm {
	case LoggingModeNone, LoggingModeAll, LoggingModeFailed:
		return true
	}
	return false
}

// LoggingRoundTripper implements http.RoundTripper for logging outgoing requests.
type LoggingRoundTripper struct {
	// Delegate is the next RoundTripper in the chain.
	Delegate http.RoundTripper

	// Opts are the options for the logging.
	Opts LoggingRoundTripperOpts
}

// LoggingRoundTripperOpts represents an options for the LoggingRoundTripper.
type LoggingRoundTripperOpts struct {
	// Logger is used for logging requests.
	Logger log.FieldLogger

	// LoggerProvider is a function that provides a context-specific logger.
	// It takes precedence over Logger when both are set.
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// Mode of logging: none, all (default), failed.
	Mode LoggingMode

	// SlowRequestThreshold is a threshold for slow requests,
	// exceeding it will be logged with a warning.
	SlowRequestThreshold time.Duration
}

// NewLoggingRoundTripper creates an HTTP transport that logs outgoing requests.
func NewLoggingRoundTripper(delegate http.RoundTripper) *LoggingRoundTripper {
	return NewLoggingRoundTripperWithOpts(delegate, LoggingRoundTripperOpts{})
}

// NewLoggingRoundTripperWithOpts creates an HTTP transport that logs outgoing requests with the passed options.
func NewLoggingRoundTripperWithOpts(delegate http.RoundTripper, opts LoggingRoundTripperOpts) *LoggingRoundTripper {
	if opts.Mode == "" {
		opts.Mode = LoggingModeAll
	}
	if opts.SlowRequestThreshold == 0 {
		opts.SlowRequestThreshold = DefaultSlowRequestThreshold
	}
	return &LoggingRoundTripper{Delegate: delegate, Opts: opts}
}

// RoundTrip executes a request, logging its duration and outcome according to the configured mode.
func (rt *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.Opts.Mode == LoggingModeNone {
		return rt.Delegate.RoundTrip(req)
	}

	logger := rt.getLogger(req.Context())
	if logger == nil {
		return rt.Delegate.RoundTrip(req)
	}

	start := time.Now()
	resp, err := rt.Delegate.RoundTrip(req)
	elapsed := time.Since(start)

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}
	fields := []log.Field{
		log.String("method", req.Method),
		log.String("url", req.URL.String()),
		log.Int("status_code", statusCode),
		log.Int64("duration_ms", elapsed.Milliseconds()),
	}

	if err != nil {
		logger.Error("outgoing http request failed", append(fields, log.Error(err))...)
		return resp, err
	}

	failed := statusCode >= http.StatusBadRequest
	if rt.Opts.Mode == LoggingModeFailed && !failed && elapsed < rt.Opts.SlowRequestThreshold {
		return resp, nil
	}

	msg := "outgoing http request finished"
	switch {
	case elapsed >= rt.Opts.SlowRequestThreshold:
		logger.Warn(msg+" (slow)", fields...)
	case failed:
		logger.Warn(msg, fields...)
	default:
		logger.Info(msg, fields...)
	}
	return resp, nil
}

func (rt *LoggingRoundTripper) getLogger(ctx context.Context) log.FieldLogger {
	if rt.Opts.LoggerProvider != nil {
		return rt.Opts.LoggerProvider(ctx)
	}
	return rt.Opts.Logger
}
