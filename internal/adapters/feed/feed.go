// Package feed subscribes to whole-collection snapshots of the stats
// database. Every delivered Event carries the complete current value of
// its path, never a delta.
package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/cocstats/internal/adapters/mq/queue"
	"github.com/okian/cocstats/internal/domain/model"
	"github.com/okian/cocstats/pkg/metrics"
)

// Event is one snapshot or error for a subscribed path.
type Event = model.FeedEvent

// Subscriber opens subscriptions on collection paths.
type Subscriber interface {
	Subscribe(ctx context.Context, path string) (*Subscription, error)
}

// Subscription is a handle on one path. Events stop after Close or when the
// context passed to Subscribe is cancelled. The channel is also closed when
// the producer gives up after delivering an error.
type Subscription struct {
	id   string
	path string
	q    *queue.LatestQueue
	now  func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	once    sync.Once
	onClose func(id string)
}

func newSubscription(ctx context.Context, path string, s *settings, onClose func(id string)) *Subscription {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		id:      uuid.NewString(),
		path:    path,
		q:       queue.NewLatestQueue(queue.WithCapacity(s.buffer)),
		now:     s.now,
		ctx:     subCtx,
		cancel:  cancel,
		onClose: onClose,
	}
	metrics.AddFeedSubscriptions(1)

	go func() {
		<-subCtx.Done()
		_ = sub.Close()
	}()
	return sub
}

// ID returns the unique subscription id.
func (s *Subscription) ID() string { return s.id }

// Path returns the subscribed collection path.
func (s *Subscription) Path() string { return s.path }

// Events returns the delivery channel.
func (s *Subscription) Events() <-chan Event { return s.q.Dequeue() }

// Close stops delivery. Safe to call more than once.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		s.cancel()
		_ = s.q.Close()
		if s.onClose != nil {
			s.onClose(s.id)
		}
		metrics.AddFeedSubscriptions(-1)
	})
	return nil
}

// deliver queues a whole value, replacing anything undelivered.
func (s *Subscription) deliver(value []byte) bool {
	if len(value) == 0 {
		value = []byte("null")
	}
	metrics.RecordFeedEvent(s.path, "value")
	return s.q.Enqueue(s.ctx, Event{Path: s.path, Value: value, At: s.now()})
}

// fail queues an error event wrapped as ErrFeedUnavailable.
func (s *Subscription) fail(cause error) bool {
	metrics.RecordFeedEvent(s.path, "error")
	err := fmt.Errorf("%w: %s: %v", ErrFeedUnavailable, s.path, cause)
	return s.q.Enqueue(s.ctx, Event{Path: s.path, Err: err, At: s.now()})
}

// end closes the channel after the pending events are read.
func (s *Subscription) end() {
	_ = s.q.Close()
}
