/*
Copyright © 2025 ReelPlate.

Released under MIT license.
*/

// Package provider contains the plumbing shared by all provider adapters:
// the error taxonomy, the result envelope, cache key construction,
// and a helper for fetching and decoding JSON over HTTP.
//
// Adapters for concrete providers live in subpackages (movie, place).
// They all follow the same orchestration: check the cache, check the rate
// limit, fetch, normalize, cache. Any failure on that path degrades to a
// well-formed fallback value instead of an error, so a provider outage
// never breaks the calling handler.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Default TTLs for cached provider responses.
// Search results change often enough to warrant the shorter TTL,
// while details of a single entity are stable for much longer.
const (
	DefaultSearchTTL  = 6 * time.Hour
	DefaultDetailsTTL = 24 * time.Hour
)

// Doer is a minimal HTTP client interface consumed by provider adapters.
// *http.Client implements it, including clients built by the httpclient package.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SearchResult is an envelope for paginated search responses.
// Degraded is true when the adapter could not reach the provider and
// the envelope carries fallback content instead of real data.
type SearchResult[T any] struct {
	Results      []T  `json:"results"`
	TotalResults int  `json:"totalResults"`
	TotalPages   int  `json:"totalPages"`
	Page         int  `json:"page"`
	Degraded     bool `json:"degraded"`
}

// CacheKey builds a cache key of the form "<provider>:<op>:<param>:...".
// Params are normalized (trimmed and lowercased) so that lookups are
// insensitive to query casing and accidental whitespace.
func CacheKey(providerName, op string, params ...string) string {
	var b strings.Builder
	b.WriteString(providerName)
	b.WriteByte(':')
	b.WriteString(op)
	for _, p := range params {
		b.WriteByte(':')
		b.WriteString(strings.ToLower(strings.TrimSpace(p)))
	}
	return b.String()
}

// FetchJSON performs a GET request to the given URL and decodes the JSON
// response body into out. A transport error, a non-2xx status code, or a
// body that fails to decode all map to ErrProviderUnavailable, so callers
// handle every kind of provider failure through a single branch.
func FetchJSON(ctx context.Context, doer Doer, reqURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := doer.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w: %s", ErrProviderUnavailable, err.Error())
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected response status code %d: %w", resp.StatusCode, ErrProviderUnavailable)
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response body: %w: %s", ErrProviderUnavailable, err.Error())
	}
	return nil
}
