// Package dedupe detects collection payloads that did not change.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Deduper remembers the digest of the last payload seen per collection.
type Deduper interface {
	// SeenAndRecord reports whether payload is identical to the last one
	// recorded for collection. A new payload is recorded and false returned.
	SeenAndRecord(ctx context.Context, collection string, payload []byte) bool

	// Unrecord forgets the collection's digest so the next payload is treated
	// as new, e.g. after the collection went into an error state.
	Unrecord(ctx context.Context, collection string)

	// Size returns the number of collections tracked.
	Size() int64
}

// digestDeduper implements Deduper with one 64-bit digest per collection.
type digestDeduper struct {
	mu      sync.Mutex
	digests map[string]uint64
	size    atomic.Int64
	hash    func([]byte) uint64
}

// NewDigestDeduper creates a deduper hashing payloads with xxhash.
func NewDigestDeduper(opts ...Option) Deduper {
	d := &digestDeduper{
		digests: make(map[string]uint64),
		hash:    xxhash.Sum64,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SeenAndRecord checks and records atomically.
func (d *digestDeduper) SeenAndRecord(_ context.Context, collection string, payload []byte) bool {
	sum := d.hash(payload)

	d.mu.Lock()
	defer d.mu.Unlock()

	prev, ok := d.digests[collection]
	if ok && prev == sum {
		return true
	}
	if !ok {
		d.size.Add(1)
	}
	d.digests[collection] = sum
	return false
}

// Unrecord drops the digest of collection.
func (d *digestDeduper) Unrecord(_ context.Context, collection string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.digests[collection]; ok {
		delete(d.digests, collection)
		d.size.Add(-1)
	}
}

// Size returns the number of collections tracked.
func (d *digestDeduper) Size() int64 {
	return d.size.Load()
}
