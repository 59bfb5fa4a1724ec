package repository

import "time"

// Option applies a configuration option to the SnapshotStore.
type Option func(*SnapshotStore)

// WithClock sets the time source used for UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *SnapshotStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCollections overrides the tracked collection names.
func WithCollections(names ...string) Option {
	return func(s *SnapshotStore) {
		if len(names) > 0 {
			s.collections = names
		}
	}
}
