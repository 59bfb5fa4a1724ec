// Package fixtures generates synthetic snapshot files for the file feed and
// checks a running service's leaderboards against them.
package fixtures

import "time"

// Config holds configuration for a fixture run.
type Config struct {
	OutputFile string        // Fixture file to write
	Users      int           // Number of users to generate
	Feedback   int           // Number of feedback entries to generate
	Seed       uint64        // Seed for reproducible output; 0 picks one from the clock
	BaseURL    string        // Service to verify; empty skips verification
	Top        int           // Leaderboard size to compare
	Timeout    time.Duration // HTTP request timeout
	Wait       time.Duration // How long to wait for the service to pick the file up
	Verbose    bool          // Log every compared entry
}

// Entry is the subset of a leaderboard row the verifier compares.
type Entry struct {
	Rank  int    `json:"rank"`
	Name  string `json:"name"`
	Score int64  `json:"score"`
	User  struct {
		DeviceID string `json:"device_id"`
	} `json:"user"`
}

// Board is the leaderboard response body.
type Board struct {
	Entries []Entry `json:"entries"`
}
