/*
Copyright © 2025 ReelPlate.

Released under MIT license.
*/

package httpclient

import (
	"fmt"
	"time"

	"github.com/reelplate/providerkit/config"
	"github.com/reelplate/providerkit/retry"
)

const (
	// DefaultClientWaitTimeout is a default timeout for a client to wait for a request.
	DefaultClientWaitTimeout = 10 * time.Second

	cfgKeyRetriesEnabled             = "retries.enabled"
	cfgKeyRetriesMaxAttempts         = "retries.maxAttempts"
	cfgKeyRetriesInitialInterval     = "retries.initialInterval"
	cfgKeyRateLimitsEnabled          = "rateLimits.enabled"
	cfgKeyRateLimitsLimit            = "rateLimits.limit"
	cfgKeyRateLimitsBurst            = "rateLimits.burst"
	cfgKeyRateLimitsWaitTimeout      = "rateLimits.waitTimeout"
	cfgKeyLoggerEnabled              = "logger.enabled"
	cfgKeyLoggerMode                 = "logger.mode"
	cfgKeyLoggerSlowRequestThreshold = "logger.slowRequestThreshold"
	cfgKeyClientTimeout              = "timeout"
)

// Config represents options for HTTP client configuration.
type Config struct {
	keyPrefix string

	// Retries is a configuration for HTTP client retries policy.
	Retries RetriesConfig `mapstructure:"retries"`

	// RateLimits is a configuration for HTTP client rate limits.
	RateLimits RateLimitConfig `mapstructure:"rateLimits"`

	// Log is a configuration for HTTP client logs.
	Log LogConfig `mapstructure:"logger"`

	// Timeout is a timeout for the whole request, including connection, any redirects and reading the response body.
	Timeout time.Duration `mapstructure:"timeout"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the NewConfig.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: "httpClient"}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.Timeout = DefaultClientWaitTimeout
	cfg.Retries.MaxAttempts = retry.DefaultMaxAttempts
	cfg.Retries.InitialInterval = retry.DefaultInitialInterval
	cfg.RateLimits.Burst = 1
	cfg.RateLimits.WaitTimeout = DefaultClientWaitTimeout
	cfg.Log.SlowRequestThreshold = DefaultSlowRequestThreshold
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return "httpClient"
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for HTTP client in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyRetriesMaxAttempts, retry.DefaultMaxAttempts)
	dp.SetDefault(cfgKeyRetriesInitialInterval, retry.DefaultInitialInterval)
	dp.SetDefault(cfgKeyRateLimitsBurst, 1)
	dp.SetDefault(cfgKeyRateLimitsWaitTimeout, DefaultClientWaitTimeout)
	dp.SetDefault(cfgKeyLoggerSlowRequestThreshold, DefaultSlowRequestThreshold)
	dp.SetDefault(cfgKeyClientTimeout, DefaultClientWaitTimeout)
}

// RetriesConfig represents options for HTTP client retries policy.
type RetriesConfig struct {
	// Enabled is a flag that enables retries.
	Enabled bool `mapstructure:"enabled"`

	// MaxAttempts is the maximum number of attempts to make a request, including the initial one.
	MaxAttempts int `mapstructure:"maxAttempts"`

	// InitialInterval is an initial interval between retry attempts.
	InitialInterval time.Duration `mapstructure:"initialInterval"`
}

// GetPolicy returns a retry policy based on the configuration.
func (c *RetriesConfig) GetPolicy() (retry.Policy, error) {
	if c.MaxAttempts < 0 {
		return nil, fmt.Errorf("%s must be positive", cfgKeyRetriesMaxAttempts)
	}
	if c.InitialInterval < 0 {
		return nil, fmt.Errorf("%s must be positive", cfgKeyRetriesInitialInterval)
	}
	initialInterval := c.InitialInterval
	if initialInterval == 0 {
		initialInterval = retry.DefaultInitialInterval
	}
	// Attempts are capped by the round tripper itself, so the policy is unbounded here.
	return retry.NewExponentialBackoffPolicy(initialInterval, 0), nil
}

// Set sets HTTP client retries configuration values from config.DataProvider.
func (c *RetriesConfig) Set(dp config.DataProvider) error {
	var err error
	if c.Enabled, err = dp.GetBool(cfgKeyRetriesEnabled); err != nil {
		return err
	}
	if c.MaxAttempts, err = dp.GetInt(cfgKeyRetriesMaxAttempts); err != nil {
		return err
	}
	if c.MaxAttempts < 0 {
		return dp.WrapKeyErr(cfgKeyRetriesMaxAttempts, fmt.Errorf("must be positive"))
	}
	if c.InitialInterval, err = dp.GetDuration(cfgKeyRetriesInitialInterval); err != nil {
		return err
	}
	if c.InitialInterval < 0 {
		return dp.WrapKeyErr(cfgKeyRetriesInitialInterval, fmt.Errorf("must be positive"))
	}
	return nil
}

// RateLimitConfig represents configuration options for HTTP client rate limits.
type RateLimitConfig struct {
	// Enabled is a flag that enables client-side rate limiting.
	Enabled bool `mapstructure:"enabled"`

	// Limit is the maximum number of requests per second.
	Limit int `mapstructure:"limit"`

	// Burst allows bursts of requests while keeping the average limit.
	Burst int `mapstructure:"burst"`

	// WaitTimeout is the maximum time to wait for a free slot before giving up.
	WaitTimeout time.Duration `mapstructure:"waitTimeout"`
}

// Set sets HTTP client rate limits configuration values from config.DataProvider.
func (c *RateLimitConfig) Set(dp config.DataProvider) error {
	var err error
	if c.Enabled, err = dp.GetBool(cfgKeyRateLimitsEnabled); err != nil {
		return err
	}
	if c.Limit, err = dp.GetInt(cfgKeyRateLimitsLimit); err != nil {
		return err
	}
	if c.Enabled && c.Limit <= 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitsLimit, fmt.Errorf("must be positive"))
	}
	if c.Burst, err = dp.GetInt(cfgKeyRateLimitsBurst); err != nil {
		return err
	}
	if c.WaitTimeout, err = dp.GetDuration(cfgKeyRateLimitsWaitTimeout); err != nil {
		return err
	}
	return nil
}

// LogConfig represents configuration options for HTTP client logs.
type LogConfig struct {
	// Enabled is a flag that enables logging of outgoing requests.
	Enabled bool `mapstructure:"enabled"`

	// Mode of logging: none, all, failed.
	Mode LoggingMode `mapstructure:"mode"`

	// SlowRequestThreshold is a threshold for slow requests, exceeding it will be logged with a warning.
	SlowRequestThreshold time.Duration `mapstructure:"slowRequestThreshold"`
}

// Set sets HTTP client logs configuration values from config.DataProvider.
func (c *LogConfig) Set(dp config.DataProvider) error {
	var err error
	if c.Enabled, err = dp.GetBool(cfgKeyLoggerEnabled); err != nil {
		return err
	}
	mode, err := dp.GetString(cfgKeyLoggerMode)
	if err != nil {
		return err
	}
	c.Mode = LoggingMode(mode)
	if c.Mode != "" && !c.Mode.IsValid() {
		return dp.WrapKeyErr(cfgKeyLoggerMode, fmt.Errorf("invalid value %q", mode))
	}
	if c.SlowRequestThreshold, err = dp.GetDuration(cfgKeyLoggerSlowRequestThreshold); err != nil {
		return err
	}
	return nil
}

// Set sets HTTP client configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if err = c.Retries.Set(dp); err != nil {
		return err
	}
	if err = c.RateLimits.Set(dp); err != nil {
		return err
	}
	if err = c.Log.Set(dp); err != nil {
		return err
	}
	if c.Timeout, err = dp.GetDuration(cfgKeyClientTimeout); err != nil {
		return err
	}
	return nil
}
