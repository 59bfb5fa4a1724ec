// Package queue buffers feed events between a producer and one consumer.
//
// Every event is a whole replacement of its collection, so when the buffer
// is full the oldest undelivered event is dropped to make room: the
// consumer always ends up with the newest value.
package queue

import (
	"context"
	"sync"

	"github.com/okian/cocstats/internal/domain/model"
	"github.com/okian/cocstats/pkg/metrics"
)

const defaultCapacity = 4

// Event represents the payload type flowing through the queue.
type Event = model.FeedEvent

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an event, evicting the oldest pending one when full.
	// Returns false only when the queue is closed or ctx is done.
	Enqueue(ctx context.Context, e Event) bool

	// Dequeue returns the channel events are delivered on. It is closed
	// when the queue is closed.
	Dequeue() <-chan Event

	// Len returns the current number of queued events.
	Len() int

	// Close stops the queue. Pending events stay readable until drained.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// LatestQueue implements Queue on a buffered channel with drop-oldest.
type LatestQueue struct {
	events   chan Event
	capacity int
	dropped  uint64

	mu     sync.Mutex
	closed bool
}

// NewLatestQueue creates a queue with configuration options.
func NewLatestQueue(opts ...Option) *LatestQueue {
	q := &LatestQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.events = make(chan Event, q.capacity)
	return q
}

// Enqueue adds an event to the queue.
func (q *LatestQueue) Enqueue(ctx context.Context, e Event) bool { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	if ctx.Err() != nil {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	for {
		select {
		case q.events <- e:
			return true
		default:
		}
		// Full: discard the oldest pending event. The consumer may have
		// drained it concurrently, in which case the next send succeeds.
		select {
		case old := <-q.events:
			q.dropped++
			metrics.RecordFeedEvent(old.Path, "superseded")
		default:
		}
	}
}

// Dequeue returns the delivery channel.
func (q *LatestQueue) Dequeue() <-chan Event {
	return q.events
}

// Len returns the current number of queued events.
func (q *LatestQueue) Len() int {
	return len(q.events)
}

// Dropped returns how many events were superseded before delivery.
func (q *LatestQueue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Close shuts down the queue.
func (q *LatestQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *LatestQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
