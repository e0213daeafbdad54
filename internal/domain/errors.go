package domain

import "errors"

var (
	// ErrProductNotFound is returned when the upstream database has no record for a barcode
	ErrProductNotFound = errors.New("product not found")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrUpstreamFailure is returned when the upstream food-data API cannot be reached
	// or answers with an unexpected status
	ErrUpstreamFailure = errors.New("upstream food-data API request failed")

	// ErrInvalidUpstreamResponse is returned when the upstream body is not valid JSON
	ErrInvalidUpstreamResponse = errors.New("invalid upstream response")

	// ErrMalformedProduct is returned when the upstream envelope carries no product object
	ErrMalformedProduct = errors.New("malformed product response")

	// ErrReportNotFound is returned when no persisted report exists for a barcode
	ErrReportNotFound = errors.New("report not found")

	// ErrAdditiveNotFound is returned when an additive code is not in the knowledge base
	ErrAdditiveNotFound = errors.New("additive not found")
)
