package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/cocstats/internal/fixtures"
)

// Default configuration constants.
const (
	defaultUsers    = 200
	defaultFeedback = 50
	defaultTopN     = 10
	defaultTimeout  = 10 * time.Second
	defaultWait     = 30 * time.Second
)

func main() {
	var (
		outputFile = flag.String("out", "fixtures.json", "Fixture file to write")
		users      = flag.Int("users", defaultUsers, "Number of users to generate")
		feedback   = flag.Int("feedback", defaultFeedback, "Number of feedback entries to generate")
		seed       = flag.Uint64("seed", 0, "Seed for reproducible output (default: from the clock)")
		baseURL    = flag.String("url", "", "Base URL of the service to verify")
		topN       = flag.Int("top", defaultTopN, "Leaderboard size to compare")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		wait       = flag.Duration("wait", defaultWait, "How long to wait for the service to match")
		logFile    = flag.String("log", "", "Also write logs to this file")
		verbose    = flag.Bool("verbose", false, "Log every compared entry")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		fixtures.ShowHelp()
		return
	}

	if err := fixtures.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := &fixtures.Config{
		OutputFile: *outputFile,
		Users:      *users,
		Feedback:   *feedback,
		Seed:       *seed,
		BaseURL:    *baseURL,
		Top:        *topN,
		Timeout:    *timeout,
		Wait:       *wait,
		Verbose:    *verbose,
	}

	if err := fixtures.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Fixture run failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
