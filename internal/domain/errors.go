package domain

import "errors"

// Error conditions of the fetch-and-parse core. They are logged and never
// returned past [ParseEarthquakes] or the USGS client's public fetch methods.
var (
	ErrMalformedEndpoint = errors.New("malformed endpoint")
	ErrNetworkFailure    = errors.New("network failure")
	ErrMalformedResponse = errors.New("malformed response")
)
