/*
Copyright © 2025 ReelPlate.

Released under MIT license.
*/

package place

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reelplate/providerkit/log/logtest"
	"github.com/reelplate/providerkit/provider"
	"github.com/reelplate/providerkit/ratelimit"
)

const searchResponseBody = `{
	"status": "OK",
	"results": [
		{
			"place_id": "ChIJN1t_tDeuEmsRUsoyG83frY4",
			"name": "Trattoria da Enzo",
			"formatted_address": "123 Main St, Springfield",
			"rating": 4.6,
			"price_level": 2,
			"types": ["restaurant", "food"],
			"opening_hours": {"open_now": true},
			"photos": [{"photo_reference": "photo-ref-1"}]
		}
	]
}`

const detailsResponseBody = `{
	"status": "OK",
	"result": {
		"place_id": "ChIJN1t_tDeuEmsRUsoyG83frY4",
		"name": "Trattoria da Enzo",
		"formatted_address": "123 Main St, Springfield",
		"rating": 4.6,
		"price_level": 2,
		"types": ["restaurant"],
		"opening_hours": {"open_now": false}
	}
}`

const geocodeResponseBody = `{
	"status": "OK",
	"results": [
		{"geometry": {"location": {"lat": 45.4642, "lng": 9.19}}}
	]
}`

// testServer routes places and geocoding endpoints of the fake provider.
type testServer struct {
	*httptest.Server
	placeRequests   atomic.Int32
	geocodeRequests atomic.Int32
	placeHandler    http.HandlerFunc
	geocodeHandler  http.HandlerFunc
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{}
	ts.placeHandler = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(searchResponseBody))
	}
	ts.geocodeHandler = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(geocodeResponseBody))
	}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/geocode/json":
			ts.geocodeRequests.Add(1)
			ts.geocodeHandler(w, r)
		default:
			ts.placeRequests.Add(1)
			ts.placeHandler(w, r)
		}
	}))
	t.Cleanup(ts.Server.Close)
	return ts
}

func newTestClient(t *testing.T, ts *testServer, opts ClientOpts) *Client {
	t.Helper()
	opts.BaseURL = ts.URL
	opts.GeocodeBaseURL = ts.URL + "/geocode"
	client, err := NewWithOpts("test-api-key", opts)
	require.NoError(t, err)
	return client
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
	var cfgErr *provider.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, ProviderName, cfgErr.Provider)
}

func TestClientSearchWithoutLocation(t *testing.T) {
	ts := newTestServer(t)
	client := newTestClient(t, ts, ClientOpts{})

	result := client.Search(context.Background(), "pizza", "")
	require.False(t, result.Degraded)
	require.Len(t, result.Results, 1)
	require.EqualValues(t, 0, ts.geocodeRequests.Load())

	got := result.Results[0]
	require.Equal(t, "ChIJN1t_tDeuEmsRUsoyG83frY4", got.ID)
	require.Equal(t, "Trattoria da Enzo", got.Name)
	require.Equal(t, "123 Main St, Springfield", got.Address)
	require.Equal(t, 4.6, got.Rating)
	require.Equal(t, 2, got.PriceLevel)
	require.True(t, got.OpenNow)
	require.Contains(t, got.PhotoURL, "photoreference=photo-ref-1")
	require.Contains(t, got.PhotoURL, "key=test-api-key")

	// The second identical search is served from the cache.
	cached := client.Search(context.Background(), "pizza", "")
	require.Equal(t, result, cached)
	require.EqualValues(t, 1, ts.placeRequests.Load())
}

func TestClientSearchWithLocationGeocodesFirst(t *testing.T) {
	ts := newTestServer(t)
	var gotLocation string
	ts.placeHandler = func(w http.ResponseWriter, r *http.Request) {
		gotLocation = r.URL.Query().Get("location")
		_, _ = w.Write([]byte(searchResponseBody))
	}
	client := newTestClient(t, ts, ClientOpts{})

	result := client.Search(context.Background(), "pizza", "Milan")
	require.False(t, result.Degraded)
	require.EqualValues(t, 1, ts.geocodeRequests.Load())
	require.Equal(t, "45.4642,9.19", gotLocation)

	// Geocoding result is cached; a different query for the same
	// location does not geocode again.
	client.Search(context.Background(), "sushi", "Milan")
	require.EqualValues(t, 1, ts.geocodeRequests.Load())
	require.EqualValues(t, 2, ts.placeRequests.Load())
}

func TestClientSearchGeocodeFailureShortCircuits(t *testing.T) {
	ts := newTestServer(t)
	ts.geocodeHandler = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	}
	recorder := logtest.NewRecorder()
	client := newTestClient(t, ts, ClientOpts{Logger: recorder})

	result := client.Search(context.Background(), "pizza", "Nowhereville")
	require.True(t, result.Degraded)
	require.Empty(t, result.Results)

	// The place search itself is never issued.
	require.EqualValues(t, 0, ts.placeRequests.Load())
	_, found := recorder.FindEntry("provider request degraded to fallback")
	require.True(t, found)
}

func TestClientSearchNonOKStatusFallsBack(t *testing.T) {
	ts := newTestServer(t)
	ts.placeHandler = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "REQUEST_DENIED", "results": []}`))
	}
	client := newTestClient(t, ts, ClientOpts{})

	result := client.Search(context.Background(), "pizza", "")
	require.True(t, result.Degraded)
	require.Empty(t, result.Results)
}

func TestClientSearchZeroResults(t *testing.T) {
	ts := newTestServer(t)
	ts.placeHandler = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	}
	client := newTestClient(t, ts, ClientOpts{})

	// An empty result set is a successful (non-degraded) response.
	result := client.Search(context.Background(), "pizza", "")
	require.False(t, result.Degraded)
	require.Empty(t, result.Results)
	require.Equal(t, 0, result.TotalResults)
}

func TestClientGetByID(t *testing.T) {
	ts := newTestServer(t)
	ts.placeHandler = func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/details/json", r.URL.Path)
		require.Equal(t, "ChIJN1t_tDeuEmsRUsoyG83frY4", r.URL.Query().Get("place_id"))
		_, _ = w.Write([]byte(detailsResponseBody))
	}
	client := newTestClient(t, ts, ClientOpts{})

	place := client.GetByID(context.Background(), "ChIJN1t_tDeuEmsRUsoyG83frY4")
	require.False(t, place.Degraded)
	require.Equal(t, "Trattoria da Enzo", place.Name)
	require.False(t, place.OpenNow)

	cached := client.GetByID(context.Background(), "ChIJN1t_tDeuEmsRUsoyG83frY4")
	require.Equal(t, place, cached)
	require.EqualValues(t, 1, ts.placeRequests.Load())
}

func TestClientGetByIDFallback(t *testing.T) {
	ts := newTestServer(t)
	ts.placeHandler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}
	client := newTestClient(t, ts, ClientOpts{})

	place := client.GetByID(context.Background(), "some-place-id")
	require.True(t, place.Degraded)
	require.Equal(t, "some-place-id", place.ID)
	require.Equal(t, FallbackName, place.Name)
	require.Empty(t, place.Address)
}

func TestClientQuotaExhaustionFallsBack(t *testing.T) {
	ts := newTestServer(t)
	registry := ratelimit.NewRegistry()
	client := newTestClient(t, ts, ClientOpts{
		RateLimiter:       registry,
		RateLimitRequests: 1,
		RateLimitWindow:   time.Hour,
	})

	res, err := registry.Check(ProviderName)
	require.NoError(t, err)
	require.True(t, res.Allowed)

	place := client.GetByID(context.Background(), "some-place-id")
	require.True(t, place.Degraded)
	require.Equal(t, FallbackName, place.Name)
	require.EqualValues(t, 0, ts.placeRequests.Load())
}

func TestClientGeocodeSharesQuotaBucket(t *testing.T) {
	ts := newTestServer(t)
	registry := ratelimit.NewRegistry()
	client := newTestClient(t, ts, ClientOpts{
		RateLimiter:       registry,
		RateLimitRequests: 10,
		RateLimitWindow:   time.Hour,
	})

	client.Search(context.Background(), "pizza", "Milan")

	// One geocoding and one search request drew from the same bucket.
	require.Equal(t, 8, registry.RemainingRequests(ProviderName))
}

func TestNormalizePlaceAddressFallsBackToVicinity(t *testing.T) {
	c := &Client{}
	got := c.normalizePlace(placeJSON{PlaceID: "id", Name: "Cafe", Vicinity: "Near the station"})
	require.Equal(t, "Near the station", got.Address)
}
