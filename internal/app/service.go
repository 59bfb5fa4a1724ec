// Package service hosts the snapshot collectors and derives dashboard views
// for the HTTP API.
package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/cocstats/internal/adapters/feed"
	"github.com/okian/cocstats/internal/adapters/mq/worker"
	"github.com/okian/cocstats/internal/adapters/repository"
	"github.com/okian/cocstats/internal/domain/dedupe"
	"github.com/okian/cocstats/internal/domain/export"
	"github.com/okian/cocstats/internal/domain/leaderboard"
	"github.com/okian/cocstats/internal/domain/model"
	"github.com/okian/cocstats/internal/domain/view"
	"github.com/okian/cocstats/pkg/logger"
	"github.com/okian/cocstats/pkg/metrics"
)

// Service implements the API dependencies for the stats dashboard.
type Service struct {
	mu sync.RWMutex

	// Core components
	subscriber feed.Subscriber
	store      *repository.SnapshotStore
	deduper    dedupe.Deduper
	pool       *worker.Pool

	// Configuration
	collections     []string
	location        *time.Location
	leaderboardSize int
	minBackoff      time.Duration
	maxBackoff      time.Duration
	now             func() time.Time

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc
	group     *errgroup.Group

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSubscriber sets the snapshot feed.
func WithSubscriber(sub feed.Subscriber) Option {
	return func(s *Service) {
		if sub != nil {
			s.subscriber = sub
		}
	}
}

// WithLocation sets the zone used for zone-less timestamps and dates.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithLeaderboardSize caps both leaderboards.
func WithLeaderboardSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.leaderboardSize = n
		}
	}
}

// WithBackoff bounds the collectors' resubscribe delay.
func WithBackoff(minDelay, maxDelay time.Duration) Option {
	return func(s *Service) {
		if minDelay > 0 && maxDelay >= minDelay {
			s.minBackoff = minDelay
			s.maxBackoff = maxDelay
		}
	}
}

// WithClock sets the time source views are derived at.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration. Without
// WithSubscriber it reads from an empty in-memory broker.
func New(opts ...Option) *Service {
	s := &Service{
		collections:     model.Collections(),
		location:        time.UTC,
		leaderboardSize: leaderboard.DefaultLimit,
		minBackoff:      500 * time.Millisecond,
		maxBackoff:      30 * time.Second,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.subscriber == nil {
		s.subscriber = feed.NewMemory()
	}
	return s
}

// Start creates the store and runs one collector per collection.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting stats service...")

	s.store = repository.NewSnapshotStore(
		repository.WithCollections(s.collections...),
		repository.WithClock(s.now),
	)
	s.deduper = dedupe.NewDigestDeduper()

	pool, err := worker.NewPool(s.subscriber, s.store, s.deduper, s.collections,
		worker.WithBackoff(s.minBackoff, s.maxBackoff),
		worker.WithLogger(s.logger),
	)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	s.pool = pool

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		s.pool.Start(gctx)
		<-gctx.Done()
		return s.pool.Shutdown(context.Background())
	})

	s.cancel = cancel
	s.group = g
	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "stats service started",
		logger.Int("collections", len(s.collections)),
		logger.Duration("reconnectMin", s.minBackoff),
	)
	return nil
}

// Stop gracefully shuts down the collectors and the feed.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping stats service...")

	s.cancel()
	if err := s.group.Wait(); err != nil {
		s.logger.Warn(ctx, "collectors did not stop cleanly", logger.Error(err))
	}
	if closer, ok := s.subscriber.(io.Closer); ok {
		_ = closer.Close()
	}

	s.started = false
	s.logger.Info(ctx, "stats service stopped")
}

// snapshot returns the latest snapshot and status.
func (s *Service) snapshot(ctx context.Context) (model.Snapshot, map[string]model.CollectionStatus, error) {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()

	if store == nil {
		return model.Snapshot{}, nil, ErrNotStarted
	}
	return store.Snapshot(ctx), store.Status(ctx), nil
}

func (s *Service) options() view.Options {
	return view.Options{Location: s.location, LeaderboardSize: s.leaderboardSize}
}

// View derives every page from the latest snapshots.
func (s *Service) View(ctx context.Context, q view.Query) (view.ViewModel, error) {
	snap, status, err := s.snapshot(ctx)
	if err != nil {
		return view.ViewModel{}, err
	}
	start := time.Now()
	vm := view.Derive(snap, s.now(), q, s.options()).WithStatus(status)
	metrics.RecordViewDerivation(float64(time.Since(start).Microseconds()) / 1000)
	return vm, nil
}

// Dashboard derives the landing page cards.
func (s *Service) Dashboard(ctx context.Context) (view.Dashboard, error) {
	snap, _, err := s.snapshot(ctx)
	if err != nil {
		return view.Dashboard{}, err
	}
	return view.DeriveDashboard(snap), nil
}

// Analytics derives the analytics page.
func (s *Service) Analytics(ctx context.Context) (view.Analytics, error) {
	snap, _, err := s.snapshot(ctx)
	if err != nil {
		return view.Analytics{}, err
	}
	return view.DeriveAnalytics(snap), nil
}

// Activity derives the activity windows.
func (s *Service) Activity(ctx context.Context) (view.Activity, error) {
	snap, _, err := s.snapshot(ctx)
	if err != nil {
		return view.Activity{}, err
	}
	return view.DeriveActivity(snap, s.now(), s.options()), nil
}

// Leaderboard ranks users by key. A limit below one uses the configured size.
func (s *Service) Leaderboard(ctx context.Context, key leaderboard.Key, limit int) (view.Board, error) {
	snap, _, err := s.snapshot(ctx)
	if err != nil {
		return view.Board{}, err
	}
	if limit < 1 {
		limit = s.leaderboardSize
	}
	entries := leaderboard.Top(snap.Users, key, limit)
	return view.Board{Entries: entries, Summary: leaderboard.Summarize(entries)}, nil
}

// Rank returns one user's position on the key board.
func (s *Service) Rank(ctx context.Context, deviceID string, key leaderboard.Key) (leaderboard.Entry, error) {
	snap, _, err := s.snapshot(ctx)
	if err != nil {
		return leaderboard.Entry{}, err
	}
	return leaderboard.Rank(snap.Users, deviceID, key)
}

// Feedback derives the feedback page.
func (s *Service) Feedback(ctx context.Context) (view.Feedback, error) {
	snap, _, err := s.snapshot(ctx)
	if err != nil {
		return view.Feedback{}, err
	}
	return view.DeriveFeedback(snap, s.now(), s.options()), nil
}

// Users derives the filtered and sorted user table.
func (s *Service) Users(ctx context.Context, q view.Query) (view.Users, error) {
	snap, _, err := s.snapshot(ctx)
	if err != nil {
		return view.Users{}, err
	}
	return view.DeriveUsers(snap, s.now(), q, s.options()), nil
}

// Export renders the user table rows for q in format (csv or json) and
// returns the body with its download file name.
func (s *Service) Export(ctx context.Context, q view.Query, format string) ([]byte, string, error) {
	snap, _, err := s.snapshot(ctx)
	if err != nil {
		return nil, "", err
	}
	records := view.Records(snap, q, s.options())

	var body []byte
	switch format {
	case export.FormatCSV:
		body = export.CSV(records)
	case export.FormatJSON:
		body, err = export.JSON(records)
		if err != nil {
			return nil, "", fmt.Errorf("export json: %w", err)
		}
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	metrics.RecordExport(format)
	return body, export.FileName(format, s.now()), nil
}

// Status returns the load state of every collection.
func (s *Service) Status(ctx context.Context) (map[string]model.CollectionStatus, error) {
	_, status, err := s.snapshot(ctx)
	return status, err
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"collections":     len(s.collections),
		"leaderboardSize": s.leaderboardSize,
		"timezone":        s.location.String(),
	}

	if s.started {
		ctx := context.Background()
		snap := s.store.Snapshot(ctx)
		stats["uptimeSeconds"] = int64(s.now().Sub(s.startedAt).Seconds())
		stats["revision"] = s.store.Revision(ctx)
		stats["totalUsers"] = len(snap.Users)
		stats["totalFeedback"] = len(snap.Feedback)
		stats["dedupeSize"] = s.deduper.Size()
		stats["collectors"] = s.pool.Stats()
	}
	return stats
}
