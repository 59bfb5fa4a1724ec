package worker

import "errors"

// Sentinel kinds for collector errors.
var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrStreamEnded       = errors.New("feed stream ended")
)
