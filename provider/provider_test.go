/*
Copyright © 2025 ReelPlate.

Released under MIT license.
*/

package provider

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reelplate/providerkit/config"
)

func TestCacheKey(t *testing.T) {
	require.Equal(t, "tmdb:search:alien:1", CacheKey("tmdb", "search", "alien", "1"))
	require.Equal(t, "tmdb:search:alien:1", CacheKey("tmdb", "search", " Alien ", "1"))
	require.Equal(t, "google_places:geocode:new york", CacheKey("google_places", "geocode", "New York"))
	require.Equal(t, "tmdb:movie", CacheKey("tmdb", "movie"))
}

func TestFetchJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id": 42, "title": "Alien"}`))
		case "/garbage":
			_, _ = w.Write([]byte(`{not json`))
		case "/server-error":
			w.WriteHeader(http.StatusInternalServerError)
		case "/not-found":
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	type payload struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
	}

	t.Run("success", func(t *testing.T) {
		var out payload
		err := FetchJSON(context.Background(), http.DefaultClient, server.URL+"/ok", &out)
		require.NoError(t, err)
		require.Equal(t, payload{ID: 42, Title: "Alien"}, out)
	})

	t.Run("non-2xx status maps to unavailability", func(t *testing.T) {
		for _, path := range []string{"/server-error", "/not-found"} {
			var out payload
			err := FetchJSON(context.Background(), http.DefaultClient, server.URL+path, &out)
			require.ErrorIs(t, err, ErrProviderUnavailable)
		}
	})

	t.Run("malformed body maps to unavailability", func(t *testing.T) {
		var out payload
		err := FetchJSON(context.Background(), http.DefaultClient, server.URL+"/garbage", &out)
		require.ErrorIs(t, err, ErrProviderUnavailable)
	})

	t.Run("transport error maps to unavailability", func(t *testing.T) {
		var out payload
		err := FetchJSON(context.Background(), http.DefaultClient, "http://127.0.0.1:1/unreachable", &out)
		require.ErrorIs(t, err, ErrProviderUnavailable)
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var out payload
		err := FetchJSON(ctx, http.DefaultClient, server.URL+"/ok", &out)
		require.ErrorIs(t, err, ErrProviderUnavailable)
	})
}

func TestConfigurationError(t *testing.T) {
	err := &ConfigurationError{Provider: "tmdb", Reason: "API key is missing"}
	require.Equal(t, `provider "tmdb" configuration: API key is missing`, err.Error())
}

func TestConfigSetFromYAML(t *testing.T) {
	cfgData := bytes.NewBufferString(`
providers:
  tmdb:
    apiKey: secret
    cache:
      maxEntries: 500
      searchTTL: 1h
      detailsTTL: 12h
    rateLimit:
      requests: 40
      window: 10s
`)

	cfg := NewConfig("providers.tmdb")
	err := config.NewDefaultLoader("").LoadFromReader(cfgData, config.DataTypeYAML, cfg)
	require.NoError(t, err)

	require.Equal(t, "secret", cfg.APIKey)
	require.Equal(t, 500, cfg.CacheMaxEntries)
	require.Equal(t, time.Hour, cfg.SearchTTL)
	require.Equal(t, 12*time.Hour, cfg.DetailsTTL)
	require.Equal(t, 40, cfg.RateLimitRequests)
	require.Equal(t, 10*time.Second, cfg.RateLimitWindow)
}

func TestConfigDefaults(t *testing.T) {
	cfg := NewConfig("providers.tmdb")
	err := config.NewDefaultLoader("").LoadFromReader(
		bytes.NewBufferString("providers:\n  tmdb:\n    apiKey: secret\n"), config.DataTypeYAML, cfg)
	require.NoError(t, err)

	require.Equal(t, DefaultSearchTTL, cfg.SearchTTL)
	require.Equal(t, DefaultDetailsTTL, cfg.DetailsTTL)
}

func TestConfigValidation(t *testing.T) {
	cfg := NewConfig("providers.tmdb")
	err := config.NewDefaultLoader("").LoadFromReader(
		bytes.NewBufferString("providers:\n  tmdb:\n    cache:\n      maxEntries: -1\n"), config.DataTypeYAML, cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "maxEntries")
}
