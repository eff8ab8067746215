package groupapi

import "errors"

var (
	// ErrGroupNotFound indicates the remote API has no group with the requested id.
	ErrGroupNotFound = errors.New("group not found")

	// ErrMalformedResponse indicates a response body that could not be decoded
	// into the expected shape. It is never retried.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrNoDiscoveryPages indicates that every discovery page request failed.
	ErrNoDiscoveryPages = errors.New("all discovery pages failed")
)
