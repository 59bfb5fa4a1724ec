package leaderboard

import "errors"

// Sentinel kinds for leaderboard errors.
var (
	ErrNotFound = errors.New("user not found")
)
