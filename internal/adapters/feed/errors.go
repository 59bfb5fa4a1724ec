package feed

import "errors"

// Sentinel kinds for feed errors.
var (
	ErrFeedUnavailable = errors.New("feed unavailable")
	ErrEmptyPath       = errors.New("empty feed path")
	ErrClosed          = errors.New("feed closed")
)
