/*
Copyright © 2025 ReelPlate.

Released under MIT license.
*/

package place

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/reelplate/providerkit/log"
	"github.com/reelplate/providerkit/provider"
	"github.com/reelplate/providerkit/ratelimit"
	"github.com/reelplate/providerkit/ttlcache"
)

// ProviderName is the rate limit bucket name and the cache key prefix of the adapter.
const ProviderName = "google_places"

// Defaults of the Google-Places-style API.
const (
	DefaultBaseURL        = "https://maps.googleapis.com/maps/api/place"
	DefaultGeocodeBaseURL = "https://maps.googleapis.com/maps/api/geocode"

	DefaultRateLimitRequests = 100
	DefaultRateLimitWindow   = 1 * time.Second

	photoMaxWidth = 500
)

// Client is a place metadata provider adapter.
// Its methods never return errors: every provider failure degrades
// to a well-formed fallback value, logged but not propagated.
type Client struct {
	apiKey         string
	baseURL        string
	geocodeBaseURL string

	doer    provider.Doer
	limiter *ratelimit.Registry
	logger  log.FieldLogger

	searchTTL  time.Duration
	detailsTTL time.Duration

	searchCache  *ttlcache.TTLCache[provider.SearchResult[Place]]
	detailsCache *ttlcache.TTLCache[Place]
	geocodeCache *ttlcache.TTLCache[geoPoint]
}

// ClientOpts represents an options for the Client.
type ClientOpts struct {
	// Doer performs HTTP requests. http.DefaultClient is used when it's not specified;
	// a client built by the httpclient package is a typical production choice.
	Doer provider.Doer

	// BaseURL is the places API base URL. By default, DefaultBaseURL is used.
	BaseURL string

	// GeocodeBaseURL is the geocoding API base URL. By default, DefaultGeocodeBaseURL is used.
	GeocodeBaseURL string

	// RateLimiter is a rate limit registry shared between adapters.
	// A new registry is created when it's not specified.
	// The "google_places" bucket is registered in it during construction.
	// Geocoding requests draw from the same bucket.
	RateLimiter *ratelimit.Registry

	// RateLimitRequests and RateLimitWindow override the registered quota.
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logger is used for logging degradations. Disabled logger is used when it's not specified.
	Logger log.FieldLogger

	// CacheMaxEntries bounds each of the response caches. By default, ttlcache.DefaultMaxEntries is used.
	CacheMaxEntries int

	// SearchTTL and DetailsTTL override default TTLs of cached responses.
	// Geocoding responses use DetailsTTL since resolved coordinates are stable.
	SearchTTL  time.Duration
	DetailsTTL time.Duration
}

// New creates a new Client with default options.
func New(apiKey string) (*Client, error) {
	return NewWithOpts(apiKey, ClientOpts{})
}

// NewWithOpts creates a new Client with the passed options.
func NewWithOpts(apiKey string, opts ClientOpts) (*Client, error) {
	if apiKey == "" {
		return nil, &provider.ConfigurationError{Provider: ProviderName, Reason: "API key is missing"}
	}
	if opts.Doer == nil {
		opts.Doer = http.DefaultClient
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.GeocodeBaseURL == "" {
		opts.GeocodeBaseURL = DefaultGeocodeBaseURL
	}
	if opts.RateLimiter == nil {
		opts.RateLimiter = ratelimit.NewRegistry()
	}
	if opts.RateLimitRequests == 0 {
		opts.RateLimitRequests = DefaultRateLimitRequests
	}
	if opts.RateLimitWindow == 0 {
		opts.RateLimitWindow = DefaultRateLimitWindow
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.CacheMaxEntries == 0 {
		opts.CacheMaxEntries = ttlcache.DefaultMaxEntries
	}
	if opts.SearchTTL == 0 {
		opts.SearchTTL = provider.DefaultSearchTTL
	}
	if opts.DetailsTTL == 0 {
		opts.DetailsTTL = provider.DefaultDetailsTTL
	}

	if err := opts.RateLimiter.SetLimit(ProviderName, opts.RateLimitRequests, opts.RateLimitWindow); err != nil {
		return nil, fmt.Errorf("set %q rate limit: %w", ProviderName, err)
	}
	searchCache, err := ttlcache.NewWithOpts[provider.SearchResult[Place]](opts.CacheMaxEntries, nil)
	if err != nil {
		return nil, fmt.Errorf("create search cache: %w", err)
	}
	detailsCache, err := ttlcache.NewWithOpts[Place](opts.CacheMaxEntries, nil)
	if err != nil {
		return nil, fmt.Errorf("create details cache: %w", err)
	}
	geocodeCache, err := ttlcache.NewWithOpts[geoPoint](opts.CacheMaxEntries, nil)
	if err != nil {
		return nil, fmt.Errorf("create geocode cache: %w", err)
	}

	return &Client{
		apiKey:         apiKey,
		baseURL:        opts.BaseURL,
		geocodeBaseURL: opts.GeocodeBaseURL,
		doer:           opts.Doer,
		limiter:        opts.RateLimiter,
		logger:         opts.Logger.With(log.String("provider", ProviderName)),
		searchTTL:      opts.SearchTTL,
		detailsTTL:     opts.DetailsTTL,
		searchCache:    searchCache,
		detailsCache:   detailsCache,
		geocodeCache:   geocodeCache,
	}, nil
}

// NewFromConfig creates a new Client from the parsed configuration,
// overriding the corresponding fields of opts.
func NewFromConfig(cfg *provider.Config, opts ClientOpts) (*Client, error) {
	opts.CacheMaxEntries = cfg.CacheMaxEntries
	opts.SearchTTL = cfg.SearchTTL
	opts.DetailsTTL = cfg.DetailsTTL
	opts.RateLimitRequests = cfg.RateLimitRequests
	opts.RateLimitWindow = cfg.RateLimitWindow
	return NewWithOpts(cfg.APIKey, opts)
}

// Must is a version of New that panics on error.
func Must(apiKey string) *Client {
	c, err := New(apiKey)
	if err != nil {
		panic(err)
	}
	return c
}

// Search finds places matching the query. When location is not empty, it is
// geocoded first and the place search is biased to the resolved coordinates;
// a failed geocoding short-circuits to the degraded empty result without
// spending quota on the place search itself.
//
// A cached response is returned without touching the rate limit; concurrent misses
// for the same query and location share a single provider call. On limit denial or
// provider failure an empty degraded result is returned.
func (c *Client) Search(ctx context.Context, query, location string) provider.SearchResult[Place] {
	cacheKey := provider.CacheKey(ProviderName, "search", query, location)
	result, err := c.searchCache.GetOrFetch(ctx, cacheKey, c.searchTTL,
		func(ctx context.Context) (provider.SearchResult[Place], error) {
			var locationParam string
			if location != "" {
				point, err := c.geocode(ctx, location)
				if err != nil {
					return provider.SearchResult[Place]{}, fmt.Errorf("geocode location: %w", err)
				}
				locationParam = "&location=" + url.QueryEscape(point.String())
			}

			if err := c.checkLimit(); err != nil {
				return provider.SearchResult[Place]{}, err
			}
			reqURL := fmt.Sprintf("%s/textsearch/json?query=%s%s&key=%s",
				c.baseURL, url.QueryEscape(query), locationParam, url.QueryEscape(c.apiKey))
			var raw searchResponseJSON
			if err := provider.FetchJSON(ctx, c.doer, reqURL, &raw); err != nil {
				return provider.SearchResult[Place]{}, err
			}
			if raw.Status != statusOK && raw.Status != statusZeroResults {
				return provider.SearchResult[Place]{},
					fmt.Errorf("response status %q: %w", raw.Status, provider.ErrProviderUnavailable)
			}

			result := provider.SearchResult[Place]{
				Results:      make([]Place, 0, len(raw.Results)),
				TotalResults: len(raw.Results),
				Page:         1,
			}
			if result.TotalResults > 0 {
				result.TotalPages = 1
			}
			for _, rawPlace := range raw.Results {
				result.Results = append(result.Results, c.normalizePlace(rawPlace))
			}
			return result, nil
		})
	if err != nil {
		c.logDegradation("search", err, log.String("query", query), log.String("location", location))
		return c.fallbackSearchResult()
	}
	return result
}

// GetByID returns details of a single place.
//
// A cached response is returned without touching the rate limit; concurrent misses
// for the same id share a single provider call. On limit denial or provider failure
// a degraded Place echoing the id with FallbackName is returned.
func (c *Client) GetByID(ctx context.Context, placeID string) Place {
	cacheKey := provider.CacheKey(ProviderName, "details", placeID)
	p, err := c.detailsCache.GetOrFetch(ctx, cacheKey, c.detailsTTL,
		func(ctx context.Context) (Place, error) {
			if err := c.checkLimit(); err != nil {
				return Place{}, err
			}
			reqURL := fmt.Sprintf("%s/details/json?place_id=%s&key=%s",
				c.baseURL, url.QueryEscape(placeID), url.QueryEscape(c.apiKey))
			var raw detailsResponseJSON
			if err := provider.FetchJSON(ctx, c.doer, reqURL, &raw); err != nil {
				return Place{}, err
			}
			if raw.Status != statusOK {
				return Place{}, fmt.Errorf("response status %q: %w", raw.Status, provider.ErrProviderUnavailable)
			}
			return c.normalizePlace(raw.Result), nil
		})
	if err != nil {
		c.logDegradation("details", err, log.String("place_id", placeID))
		return c.fallbackPlace(placeID)
	}
	return p
}

// geocode resolves a human-readable location into coordinates.
// Resolved coordinates are cached with the details TTL and draw quota
// from the same bucket as place requests.
func (c *Client) geocode(ctx context.Context, location string) (geoPoint, error) {
	cacheKey := provider.CacheKey(ProviderName, "geocode", location)
	return c.geocodeCache.GetOrFetch(ctx, cacheKey, c.detailsTTL,
		func(ctx context.Context) (geoPoint, error) {
			if err := c.checkLimit(); err != nil {
				return geoPoint{}, err
			}
			reqURL := fmt.Sprintf("%s/json?address=%s&key=%s",
				c.geocodeBaseURL, url.QueryEscape(location), url.QueryEscape(c.apiKey))
			var raw geocodeResponseJSON
			if err := provider.FetchJSON(ctx, c.doer, reqURL, &raw); err != nil {
				return geoPoint{}, err
			}
			if raw.Status != statusOK || len(raw.Results) == 0 {
				return geoPoint{}, fmt.Errorf("response status %q: %w", raw.Status, provider.ErrProviderUnavailable)
			}
			return raw.Results[0].Geometry.Location, nil
		})
}

func (c *Client) checkLimit() error {
	res, err := c.limiter.Check(ProviderName)
	if err != nil {
		return fmt.Errorf("check rate limit: %w", err)
	}
	if !res.Allowed {
		return fmt.Errorf("%w: retry in %s", provider.ErrQuotaExceeded, res.ResetIn)
	}
	return nil
}

func (c *Client) fallbackSearchResult() provider.SearchResult[Place] {
	return provider.SearchResult[Place]{Results: []Place{}, Page: 1, Degraded: true}
}

func (c *Client) fallbackPlace(placeID string) Place {
	return Place{ID: placeID, Name: FallbackName, Degraded: true}
}

func (c *Client) logDegradation(op string, err error, fields ...log.Field) {
	c.logger.Warn("provider request degraded to fallback",
		append([]log.Field{log.String("op", op), log.Error(err)}, fields...)...)
}
