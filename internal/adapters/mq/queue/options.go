package queue

// Option applies a configuration option to the LatestQueue.
type Option func(*LatestQueue)

// WithCapacity sets how many undelivered events are kept.
func WithCapacity(capacity int) Option {
	return func(q *LatestQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}
