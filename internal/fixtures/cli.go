package fixtures

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/cocstats/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging sends logs to stdout and, when logFile is set, to that file too.
func SetupLogging(logFile string, verbose bool) error {
	var w io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
	}
	if err := logger.Init(logger.WithWriter(w)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		if err := logger.SetLevelString("debug"); err != nil {
			return err
		}
	}
	if logFile != "" {
		logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	}
	return nil
}

// ShowHelp prints usage information for the fixtures tool.
func ShowHelp() {
	os.Stdout.WriteString(`CoC Bot Stats Fixture Tool
==========================

Writes a synthetic snapshot file for the file feed and optionally checks
that a running service ranks it the same way.

Usage:
  go run ./cmd/fixtures [options]

Options:
  -out string
        Fixture file to write (default "fixtures.json")
  -users int
        Number of users (default 200)
  -feedback int
        Number of feedback entries (default 50)
  -seed uint
        Seed for reproducible output (default: from the clock)
  -url string
        Service to verify, e.g. http://localhost:9080 (default: no verification)
  -top int
        Leaderboard size to compare (default 10)
  -timeout duration
        HTTP request timeout (default 10s)
  -wait duration
        How long to wait for the service to match (default 30s)
  -log string
        Also write logs to this file
  -verbose
        Log every compared entry
  -help
        Show this help message

Examples:
  # Write a fixture and serve it
  go run ./cmd/fixtures -out fixtures.json
  COCSTATS_FEED_SOURCE=file COCSTATS_FIXTURE_PATH=fixtures.json go run ./cmd

  # Rewrite the fixture and verify the running service picks it up
  go run ./cmd/fixtures -users 1000 -url http://localhost:9080
`)
}
