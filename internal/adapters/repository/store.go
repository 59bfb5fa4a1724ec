// Package repository keeps the latest snapshot of every feed collection.
package repository

import (
	"context"

	"github.com/okian/cocstats/internal/domain/model"
)

// Setter writes one decoded collection into a snapshot and returns the
// number of records it holds.
type Setter func(s *model.Snapshot) int

// Store provides read/write access to the latest snapshots.
type Store interface {
	// Replace swaps in a new value for collection and marks it ready.
	// Returns the new store revision.
	Replace(ctx context.Context, collection string, set Setter) (uint64, error)

	// Fail marks collection as failed. The last good value is kept.
	Fail(ctx context.Context, collection string, cause error) error

	// Snapshot returns the latest value of every collection. Slices are
	// shared with the store and must not be modified.
	Snapshot(ctx context.Context) model.Snapshot

	// Status returns the load state of every collection.
	Status(ctx context.Context) map[string]model.CollectionStatus

	// Revision returns the number of replacements applied so far.
	Revision(ctx context.Context) uint64
}
