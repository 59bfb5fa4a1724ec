package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/okian/cocstats/internal/adapters/feed"
	"github.com/okian/cocstats/internal/adapters/repository"
	"github.com/okian/cocstats/internal/domain/model"
	"github.com/okian/cocstats/pkg/logger"
	"github.com/okian/cocstats/pkg/metrics"
)

// Default collector configuration constants.
const (
	defaultMinBackoff   = 500 * time.Millisecond
	defaultMaxBackoff   = 30 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Store receives decoded collections.
type Store interface {
	Replace(ctx context.Context, collection string, set repository.Setter) (uint64, error)
	Fail(ctx context.Context, collection string, cause error) error
}

// Deduper reports payloads identical to the last one seen.
type Deduper interface {
	SeenAndRecord(ctx context.Context, collection string, payload []byte) bool
	Unrecord(ctx context.Context, collection string)
}

// Worker keeps something current until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// decodeFunc turns a raw payload into a store setter and a count of
// defaulted fields.
type decodeFunc func(payload []byte) (repository.Setter, int)

var decoders = map[string]decodeFunc{
	model.CollectionGlobalLoot: func(p []byte) (repository.Setter, int) {
		loot, rep := model.DecodeLoot(p)
		return func(s *model.Snapshot) int { s.Loot = loot; return 1 }, rep.Defaults
	},
	model.CollectionUsers: func(p []byte) (repository.Setter, int) {
		users, rep := model.DecodeUsers(p)
		return func(s *model.Snapshot) int { s.Users = users; return len(users) }, rep.Defaults
	},
	model.CollectionFeedback: func(p []byte) (repository.Setter, int) {
		entries, rep := model.DecodeFeedback(p)
		return func(s *model.Snapshot) int { s.Feedback = entries; return len(entries) }, rep.Defaults
	},
	model.CollectionNews: func(p []byte) (repository.Setter, int) {
		news := model.DecodeNews(p)
		return func(s *model.Snapshot) int {
			s.News = news
			if news.Present {
				return 1
			}
			return 0
		}, 0
	},
}

// Collector subscribes to one collection and publishes every new value.
// After a feed error it records the error on the collection and
// resubscribes with exponential backoff.
type Collector struct {
	collection string
	feed       feed.Subscriber
	store      Store
	dedupe     Deduper
	decode     decodeFunc
	name       string

	minBackoff time.Duration
	maxBackoff time.Duration

	published    atomic.Uint64
	unchanged    atomic.Uint64
	resubscribes atomic.Uint64

	// Shutdown control
	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewCollector creates a collector for collection.
func NewCollector(collection string, sub feed.Subscriber, store Store, dedupe Deduper, opts ...Option) (*Collector, error) {
	decode, ok := decoders[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	c := &Collector{
		collection: collection,
		feed:       sub,
		store:      store,
		dedupe:     dedupe,
		decode:     decode,
		name:       "collector-" + collection,
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named(c.name)
	return c, nil
}

// Collection returns the collection this collector owns.
func (c *Collector) Collection() string { return c.collection }

// Run subscribes until ctx is canceled or Shutdown is called.
func (c *Collector) Run(ctx context.Context) {
	defer close(c.done)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.minBackoff
	b.MaxInterval = c.maxBackoff
	b.Reset()

	for {
		err := c.consume(ctx, b)
		if c.stopped(ctx) {
			return
		}
		c.recordFailure(ctx, err)

		delay := b.NextBackOff()
		c.logger.Warn(ctx, "feed error, resubscribing",
			logger.Error(err),
			logger.Duration("retry_in", delay),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-c.shutdown:
			timer.Stop()
			return
		case <-timer.C:
		}
		c.resubscribes.Add(1)
		metrics.RecordResubscribe(c.collection)
	}
}

// consume reads one subscription until it fails or the collector stops.
func (c *Collector) consume(ctx context.Context, b *backoff.ExponentialBackOff) error {
	sub, err := c.feed.Subscribe(ctx, c.collection)
	if err != nil {
		return err
	}
	defer sub.Close()
	c.logger.Debug(ctx, "subscribed",
		logger.String("path", sub.Path()),
		logger.String("subscription", sub.ID()),
	)

	events := sub.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.shutdown:
			return nil
		case ev, ok := <-events:
			if !ok {
				return ErrStreamEnded
			}
			if ev.IsError() {
				return ev.Err
			}
			if err := c.apply(ctx, ev.Value); err != nil {
				return err
			}
			b.Reset()
		}
	}
}

// apply decodes a payload and stores it unless it repeats the last one.
func (c *Collector) apply(ctx context.Context, payload []byte) error {
	if c.dedupe != nil && c.dedupe.SeenAndRecord(ctx, c.collection, payload) {
		c.unchanged.Add(1)
		metrics.RecordSnapshotUnchanged(c.collection)
		return nil
	}

	start := time.Now()
	set, defaults := c.decode(payload)
	metrics.RecordSnapshotDecode(c.collection, float64(time.Since(start).Microseconds())/1000)
	metrics.RecordDecodeDefaults(c.collection, defaults)

	rev, err := c.store.Replace(ctx, c.collection, set)
	if err != nil {
		if c.dedupe != nil {
			c.dedupe.Unrecord(ctx, c.collection)
		}
		return fmt.Errorf("store %s: %w", c.collection, err)
	}
	c.published.Add(1)
	c.logger.Debug(ctx, "snapshot published",
		logger.Uint64("revision", rev),
		logger.Int("defaults", defaults),
	)
	return nil
}

// recordFailure surfaces err on the collection. The digest is forgotten so
// the first value after recovery is published even when unchanged.
func (c *Collector) recordFailure(ctx context.Context, err error) {
	if err == nil {
		err = ErrStreamEnded
	}
	if c.dedupe != nil {
		c.dedupe.Unrecord(ctx, c.collection)
	}
	if ferr := c.store.Fail(ctx, c.collection, err); ferr != nil {
		c.logger.Error(ctx, "recording feed error failed", logger.Error(ferr))
	}
}

func (c *Collector) stopped(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	select {
	case <-c.shutdown:
		return true
	default:
		return false
	}
}

// Shutdown gracefully stops the collector.
func (c *Collector) Shutdown(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.shutdown) })

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		c.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Stats counts what a collector has done so far.
type Stats struct {
	Collection   string `json:"collection"`
	Published    uint64 `json:"published"`
	Unchanged    uint64 `json:"unchanged"`
	Resubscribes uint64 `json:"resubscribes"`
}

// Stats returns the collector's counters.
func (c *Collector) Stats() Stats {
	return Stats{
		Collection:   c.collection,
		Published:    c.published.Load(),
		Unchanged:    c.unchanged.Load(),
		Resubscribes: c.resubscribes.Load(),
	}
}

// Pool runs one collector per collection.
type Pool struct {
	collectors []*Collector
	logger     logger.Logger
}

// NewPool creates a collector for each collection on the same feed and store.
func NewPool(sub feed.Subscriber, store Store, dedupe Deduper, collections []string, opts ...Option) (*Pool, error) {
	p := &Pool{logger: logger.Get().Named("collector-pool")}
	for _, name := range collections {
		c, err := NewCollector(name, sub, store, dedupe, opts...)
		if err != nil {
			return nil, err
		}
		p.collectors = append(p.collectors, c)
	}
	return p, nil
}

// Start starts every collector.
func (p *Pool) Start(ctx context.Context) {
	for _, c := range p.collectors {
		go c.Run(ctx)
	}
}

// Stats returns the counters of every collector.
func (p *Pool) Stats() []Stats {
	out := make([]Stats, 0, len(p.collectors))
	for _, c := range p.collectors {
		out = append(out, c.Stats())
	}
	return out
}

// Shutdown stops every collector and waits for them to exit.
func (p *Pool) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var errs []error
	for _, c := range p.collectors {
		if err := c.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "collector shutdown timed out", logger.String("collection", c.Collection()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
