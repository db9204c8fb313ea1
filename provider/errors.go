/*
Copyright © 2025 ReelPlate.

Released under MIT license.
*/

package provider

import (
	"errors"
	"fmt"
)

// ErrProviderUnavailable indicates that the provider could not be reached
// or returned a malformed response. Adapters translate it into a fallback
// value; it never escapes to adapter callers.
var ErrProviderUnavailable = errors.New("provider unavailable")

// ErrQuotaExceeded indicates that the local rate limit for the provider is
// exhausted for the current window. Adapters translate it into a fallback
// value; it never escapes to adapter callers.
var ErrQuotaExceeded = errors.New("provider quota exceeded")

// ConfigurationError is returned by adapter constructors when a required
// dependency or parameter is missing. Unlike runtime provider failures,
// it is a programmer error and fails fast.
type ConfigurationError struct {
	Provider string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("provider %q configuration: %s", e.Provider, e.Reason)
}
