package fixtures

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/cocstats/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o644
	retryInterval       = 500 * time.Millisecond
)

// Run writes a fixture and, when BaseURL is set, waits until the service
// serves leaderboards that match it.
func Run(ctx context.Context, cfg *Config) error {
	log := logger.Get().Named("fixtures")
	start := time.Now()

	gen := NewGenerator(cfg.Seed, time.Now())
	fixture, err := gen.Generate(cfg.Users, cfg.Feedback)
	if err != nil {
		return err
	}
	if err := write(cfg.OutputFile, fixture); err != nil {
		return err
	}
	log.Info(ctx, "fixture written",
		logger.String("file", cfg.OutputFile),
		logger.Int("users", cfg.Users),
		logger.Int("feedback", cfg.Feedback),
		logger.Uint64("seed", gen.Seed()),
	)

	if cfg.BaseURL == "" {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, cfg.Wait)
	defer cancel()
	for {
		err = Verify(waitCtx, cfg, fixture)
		if err == nil {
			log.Info(ctx, "verification passed", logger.Duration("elapsed", time.Since(start)))
			return nil
		}
		if !errors.Is(err, ErrMismatch) {
			log.Debug(ctx, "service not ready", logger.Error(err))
		}
		select {
		case <-waitCtx.Done():
			return fmt.Errorf("verification failed: %w", err)
		case <-time.After(retryInterval):
		}
	}
}

func write(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	// Write then rename so the file feed never reads a partial document.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, filePermission); err != nil {
		return fmt.Errorf("failed to write fixture: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move fixture into place: %w", err)
	}
	return nil
}
