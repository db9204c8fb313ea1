/*
Copyright © 2025 ReelPlate.

Released under MIT license.
*/

package httpclient

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reelplate/providerkit/retry"
)

func fastBackoffPolicy() retry.Policy {
	return retry.NewConstantBackoffPolicy(time.Millisecond, 0)
}

func TestRetryableRoundTripperRetriesOn5xx(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	rt, err := NewRetryableRoundTripperWithOpts(http.DefaultTransport, RetryableRoundTripperOpts{
		MaxRetryAttempts: 5,
		BackoffPolicy:    fastBackoffPolicy(),
	})
	require.NoError(t, err)
	client := &http.Client{Transport: rt}

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 3, requests.Load())
}

func TestRetryableRoundTripperRetriesOn429(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	rt, err := NewRetryableRoundTripperWithOpts(http.DefaultTransport, RetryableRoundTripperOpts{
		BackoffPolicy: fastBackoffPolicy(),
	})
	require.NoError(t, err)
	client := &http.Client{Transport: rt}

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 2, requests.Load())
}

func TestRetryableRoundTripperDoesNotRetryOn4xx(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	rt, err := NewRetryableRoundTripperWithOpts(http.DefaultTransport, RetryableRoundTripperOpts{
		BackoffPolicy: fastBackoffPolicy(),
	})
	require.NoError(t, err)
	client := &http.Client{Transport: rt}

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.EqualValues(t, 1, requests.Load())
}

func TestRetryableRoundTripperMaxAttemptsExceeded(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	rt, err := NewRetryableRoundTripperWithOpts(http.DefaultTransport, RetryableRoundTripperOpts{
		MaxRetryAttempts: 2,
		BackoffPolicy:    fastBackoffPolicy(),
	})
	require.NoError(t, err)
	client := &http.Client{Transport: rt}

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.EqualValues(t, 3, requests.Load())
}

func TestRetryableRoundTripperSetsAttemptHeader(t *testing.T) {
	var attemptHeaders []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attemptHeaders = append(attemptHeaders, r.Header.Get(RetryAttemptNumberHeader))
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	rt, err := NewRetryableRoundTripperWithOpts(http.DefaultTransport, RetryableRoundTripperOpts{
		MaxRetryAttempts: 2,
		BackoffPolicy:    fastBackoffPolicy(),
	})
	require.NoError(t, err)
	client := &http.Client{Transport: rt}

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, []string{"", "1", "2"}, attemptHeaders)
}

func TestRetryableRoundTripperHonorsRetryAfter(t *testing.T) {
	var requests atomic.Int32
	var firstRequestTime, secondRequestTime time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch requests.Add(1) {
		case 1:
			firstRequestTime = time.Now()
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			secondRequestTime = time.Now()
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	rt, err := NewRetryableRoundTripperWithOpts(http.DefaultTransport, RetryableRoundTripperOpts{
		BackoffPolicy: fastBackoffPolicy(),
	})
	require.NoError(t, err)
	client := &http.Client{Transport: rt}

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.GreaterOrEqual(t, secondRequestTime.Sub(firstRequestTime), time.Second)
}

func TestRetryableRoundTripperRewindsRequestBody(t *testing.T) {
	var requests atomic.Int32
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	rt, err := NewRetryableRoundTripperWithOpts(http.DefaultTransport, RetryableRoundTripperOpts{
		BackoffPolicy: fastBackoffPolicy(),
	})
	require.NoError(t, err)
	client := &http.Client{Transport: rt}

	resp, err := client.Post(server.URL, "text/plain", bytes.NewBufferString("payload"))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, []string{"payload", "payload"}, bodies)
}

func TestParseRetryAfterFromResponse(t *testing.T) {
	makeResp := func(retryAfter string) *http.Response {
		header := http.Header{}
		if retryAfter != "" {
			header.Set("Retry-After", retryAfter)
		}
		return &http.Response{Header: header}
	}

	_, ok := parseRetryAfterFromResponse(makeResp(""))
	require.False(t, ok)

	d, ok := parseRetryAfterFromResponse(makeResp("30"))
	require.True(t, ok)
	require.Equal(t, 30*time.Second, d)

	_, ok = parseRetryAfterFromResponse(makeResp("-1"))
	require.False(t, ok)

	future := time.Now().Add(time.Minute).UTC().Format(time.RFC1123)
	d, ok = parseRetryAfterFromResponse(makeResp(future))
	require.True(t, ok)
	require.Greater(t, d, 50*time.Second)

	_, ok = parseRetryAfterFromResponse(makeResp("not-a-date"))
	require.False(t, ok)
}
