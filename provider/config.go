/*
Copyright © 2025 ReelPlate.

Released under MIT license.
*/

package provider

import (
	"fmt"
	"time"

	"github.com/reelplate/providerkit/config"
)

// Configuration keys, relative to the adapter key prefix
// (e.g. "providers.tmdb" or "providers.googlePlaces").
const (
	cfgKeyAPIKey            = "apiKey"
	cfgKeyCacheMaxEntries   = "cache.maxEntries"
	cfgKeySearchTTL         = "cache.searchTTL"
	cfgKeyDetailsTTL        = "cache.detailsTTL"
	cfgKeyRateLimitRequests = "rateLimit.requests"
	cfgKeyRateLimitWindow   = "rateLimit.window"
)

// Config represents configuration options common to all provider adapters.
// Each adapter instantiates it with its own key prefix.
type Config struct {
	keyPrefix string

	// APIKey authenticates requests to the provider.
	APIKey string `mapstructure:"apiKey"`

	// CacheMaxEntries bounds the adapter response cache.
	CacheMaxEntries int `mapstructure:"cacheMaxEntries"`

	// SearchTTL overrides DefaultSearchTTL for cached search responses.
	SearchTTL time.Duration `mapstructure:"searchTTL"`

	// DetailsTTL overrides DefaultDetailsTTL for cached details responses.
	DetailsTTL time.Duration `mapstructure:"detailsTTL"`

	// RateLimitRequests and RateLimitWindow override the adapter's built-in quota.
	RateLimitRequests int           `mapstructure:"rateLimitRequests"`
	RateLimitWindow   time.Duration `mapstructure:"rateLimitWindow"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config with the given key prefix.
func NewConfig(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeySearchTTL, DefaultSearchTTL)
	dp.SetDefault(cfgKeyDetailsTTL, DefaultDetailsTTL)
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.APIKey, err = dp.GetString(cfgKeyAPIKey); err != nil {
		return err
	}
	if c.CacheMaxEntries, err = dp.GetInt(cfgKeyCacheMaxEntries); err != nil {
		return err
	}
	if c.CacheMaxEntries < 0 {
		return dp.WrapKeyErr(cfgKeyCacheMaxEntries, fmt.Errorf("must be positive"))
	}
	if c.SearchTTL, err = dp.GetDuration(cfgKeySearchTTL); err != nil {
		return err
	}
	if c.DetailsTTL, err = dp.GetDuration(cfgKeyDetailsTTL); err != nil {
		return err
	}
	if c.RateLimitRequests, err = dp.GetInt(cfgKeyRateLimitRequests); err != nil {
		return err
	}
	if c.RateLimitRequests < 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitRequests, fmt.Errorf("must be positive"))
	}
	if c.RateLimitWindow, err = dp.GetDuration(cfgKeyRateLimitWindow); err != nil {
		return err
	}
	return nil
}
