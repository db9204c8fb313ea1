/*
Copyright © 2025 ReelPlate.

Released under MIT license.
*/

package movie

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/reelplate/providerkit/log"
	"github.com/reelplate/providerkit/provider"
	"github.com/reelplate/providerkit/ratelimit"
	"github.com/reelplate/providerkit/ttlcache"
)

// ProviderName is the rate limit bucket name and the cache key prefix of the adapter.
const ProviderName = "tmdb"

// Defaults of the TMDB-style API.
const (
	DefaultBaseURL      = "https://api.themoviedb.org/3"
	DefaultImageBaseURL = "https://image.tmdb.org/t/p/w500"

	// TMDB enforces 40 requests per 10 seconds per API key.
	DefaultRateLimitRequests = 40
	DefaultRateLimitWindow   = 10 * time.Second
)

// Client is a movie metadata provider adapter.
// Its methods never return errors: every provider failure degrades
// to a well-formed fallback value, logged but not propagated.
type Client struct {
	apiKey       string
	baseURL      string
	imageBaseURL string

	doer    provider.Doer
	limiter *ratelimit.Registry
	logger  log.FieldLogger

	searchTTL  time.Duration
	detailsTTL time.Duration

	searchCache  *ttlcache.TTLCache[provider.SearchResult[Movie]]
	detailsCache *ttlcache.TTLCache[Movie]
}

// ClientOpts represents an options for the Client.
type ClientOpts struct {
	// Doer performs HTTP requests. http.DefaultClient is used when it's not specified;
	// a client built by the httpclient package is a typical production choice.
	Doer provider.Doer

	// BaseURL is the API base URL. By default, DefaultBaseURL is used.
	BaseURL string

	// ImageBaseURL is the CDN base URL for poster images. By default, DefaultImageBaseURL is used.
	ImageBaseURL string

	// RateLimiter is a rate limit registry shared between adapters.
	// A new registry is created when it's not specified.
	// The "tmdb" bucket is registered in it during construction.
	RateLimiter *ratelimit.Registry

	// RateLimitRequests and RateLimitWindow override the registered quota.
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logger is used for logging degradations. Disabled logger is used when it's not specified.
	Logger log.FieldLogger

	// CacheMaxEntries bounds each of the response caches. By default, ttlcache.DefaultMaxEntries is used.
	CacheMaxEntries int

	// SearchTTL and DetailsTTL override default TTLs of cached responses.
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
	if opts.ImageBaseURL == "" {
		opts.ImageBaseURL = DefaultImageBaseURL
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
	searchCache, err := ttlcache.NewWithOpts[provider.SearchResult[Movie]](opts.CacheMaxEntries, nil)
	if err != nil {
		return nil, fmt.Errorf("create search cache: %w", err)
	}
	detailsCache, err := ttlcache.NewWithOpts[Movie](opts.CacheMaxEntries, nil)
	if err != nil {
		return nil, fmt.Errorf("create details cache: %w", err)
	}

	return &Client{
		apiKey:       apiKey,
		baseURL:      opts.BaseURL,
		imageBaseURL: opts.ImageBaseURL,
		doer:         opts.Doer,
		limiter:      opts.RateLimiter,
		logger:       opts.Logger.With(log.String("provider", ProviderName)),
		searchTTL:    opts.SearchTTL,
		detailsTTL:   opts.DetailsTTL,
		searchCache:  searchCache,
		detailsCache: detailsCache,
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

// Search finds movies matching the query. Pages are 1-based; values less than 1 mean the first page.
//
// A cached response is returned without touching the rate limit; concurrent misses
// for the same query and page share a single provider call. On limit denial or
// provider failure an empty degraded result echoing the requested page is returned.
func (c *Client) Search(ctx context.Context, query string, page int) provider.SearchResult[Movie] {
	if page < 1 {
		page = 1
	}
	cacheKey := provider.CacheKey(ProviderName, "search", query, strconv.Itoa(page))
	result, err := c.searchCache.GetOrFetch(ctx, cacheKey, c.searchTTL,
		func(ctx context.Context) (provider.SearchResult[Movie], error) {
			if err := c.checkLimit(); err != nil {
				return provider.SearchResult[Movie]{}, err
			}
			reqURL := fmt.Sprintf("%s/search/movie?api_key=%s&query=%s&page=%d",
				c.baseURL, url.QueryEscape(c.apiKey), url.QueryEscape(query), page)
			var raw searchResponseJSON
			if err := provider.FetchJSON(ctx, c.doer, reqURL, &raw); err != nil {
				return provider.SearchResult[Movie]{}, err
			}
			result := provider.SearchResult[Movie]{
				Results:      make([]Movie, 0, len(raw.Results)),
				TotalResults: raw.TotalResults,
				TotalPages:   raw.TotalPages,
				Page:         raw.Page,
			}
			if result.Page == 0 {
				result.Page = page
			}
			for _, rawMovie := range raw.Results {
				result.Results = append(result.Results, c.normalizeMovie(rawMovie))
			}
			return result, nil
		})
	if err != nil {
		c.logDegradation("search", err, log.String("query", query), log.Int("page", page))
		return c.fallbackSearchResult(page)
	}
	return result
}

// GetByID returns details of a single movie.
//
// A cached response is returned without touching the rate limit; concurrent misses
// for the same id share a single provider call. On limit denial or provider failure
// a degraded Movie echoing the id with FallbackTitle is returned.
func (c *Client) GetByID(ctx context.Context, id int) Movie {
	cacheKey := provider.CacheKey(ProviderName, "movie", strconv.Itoa(id))
	m, err := c.detailsCache.GetOrFetch(ctx, cacheKey, c.detailsTTL,
		func(ctx context.Context) (Movie, error) {
			if err := c.checkLimit(); err != nil {
				return Movie{}, err
			}
			reqURL := fmt.Sprintf("%s/movie/%d?api_key=%s", c.baseURL, id, url.QueryEscape(c.apiKey))
			var raw movieJSON
			if err := provider.FetchJSON(ctx, c.doer, reqURL, &raw); err != nil {
				return Movie{}, err
			}
			return c.normalizeMovie(raw), nil
		})
	if err != nil {
		c.logDegradation("details", err, log.Int("movie_id", id))
		return c.fallbackMovie(id)
	}
	return m
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

func (c *Client) fallbackSearchResult(page int) provider.SearchResult[Movie] {
	return provider.SearchResult[Movie]{Results: []Movie{}, Page: page, Degraded: true}
}

func (c *Client) fallbackMovie(id int) Movie {
	return Movie{ID: id, Title: FallbackTitle, Degraded: true}
}

func (c *Client) logDegradation(op string, err error, fields ...log.Field) {
	c.logger.Warn("provider request degraded to fallback",
		append([]log.Field{log.String("op", op), log.Error(err)}, fields...)...)
}
