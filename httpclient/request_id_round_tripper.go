/*
Copyright © 2025 ReelPlate.

Released under MIT license.
*/

package httpclient

import (
	"net/http"

	"github.com/rs/xid"
)

// RequestIDHeader is an HTTP header name that carries a unique request identifier.
const RequestIDHeader = "X-Request-ID"

// RequestIDRoundTripper implements http.RoundTripper and sets a unique identifier
// in the X-Request-ID header of every outgoing request that doesn't carry one yet.
// The identifier makes it possible to correlate client logs with provider-side logs.
type RequestIDRoundTripper struct {
	// Delegate is the next RoundTripper in the chain.
	Delegate http.RoundTripper

	// NewRequestID generates an identifier for a request.
	// By default, xid is used.
	NewRequestID func() string
}

// NewRequestIDRoundTripper creates an HTTP transport that sets the X-Request-ID header.
func NewRequestIDRoundTripper(delegate http.RoundTripper) *RequestIDRoundTripper {
	return &RequestIDRoundTripper{Delegate: delegate}
}

// RoundTrip sets the X-Request-ID header if it's empty and performs the request.
func (rt *RequestIDRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(RequestIDHeader) != "" {
		return rt.Delegate.RoundTrip(req)
	}
	reqID := ""
	if rt.NewRequestID != nil {
		reqID = rt.NewRequestID()
	} else {
		reqID = xid.New().String()
	}
	req = CloneHTTPRequest(req) // Per RoundTripper contract.
	req.Header.Set(RequestIDHeader, reqID)
	return rt.Delegate.RoundTrip(req)
}
