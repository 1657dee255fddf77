package source

import "errors"

// Sentinel errors
var (
	ErrNoFetcher = errors.New("source has no fetcher")
)
