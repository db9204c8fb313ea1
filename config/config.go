/*
Copyright © 2025 ReelPlate.

Released under MIT license.
*/

// Package config provides loading of configuration parameters from files,
// readers and environment variables into typed configuration objects.
package config

// Config is a common interface for configuration objects that may be used by Loader.
type Config interface {
	SetProviderDefaults(dp DataProvider)
	Set(dp DataProvider) error
}

// KeyPrefixProvider is an interface for providing key prefix that will be used for configuration parameters.
type KeyPrefixProvider interface {
	KeyPrefix() string
}
