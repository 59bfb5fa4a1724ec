package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/cocstats/internal/domain/model"
	"github.com/okian/cocstats/pkg/metrics"
)

// state is an immutable version of the store. Writers build a new one and
// publish it with an atomic swap so readers never lock.
type state struct {
	snap     model.Snapshot
	status   map[string]model.CollectionStatus
	revision uint64
}

// SnapshotStore is an in-memory, last-write-wins Store.
type SnapshotStore struct {
	mu          sync.Mutex // serialises writers
	current     atomic.Pointer[state]
	collections []string
	now         func() time.Time
}

// NewSnapshotStore constructs a store with every collection loading.
func NewSnapshotStore(opts ...Option) *SnapshotStore {
	s := &SnapshotStore{
		collections: model.Collections(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	initial := &state{
		snap: model.Snapshot{
			Users:    []model.UserRecord{},
			Feedback: []model.FeedbackEntry{},
		},
		status: make(map[string]model.CollectionStatus, len(s.collections)),
	}
	for _, c := range s.collections {
		initial.status[c] = model.CollectionStatus{Collection: c, State: model.StateLoading}
	}
	s.current.Store(initial)
	return s
}

// Replace implements Store.Replace.
func (s *SnapshotStore) Replace(ctx context.Context, collection string, set Setter) (uint64, error) {
	if set == nil {
		return 0, ErrNilSetter
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	prev, ok := cur.status[collection]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	next := cur.clone()
	records := set(&next.snap)
	next.revision++
	next.status[collection] = model.CollectionStatus{
		Collection: collection,
		State:      model.StateReady,
		UpdatedAt:  s.now(),
		Revision:   prev.Revision + 1,
		Records:    records,
	}
	s.current.Store(next)

	metrics.RecordSnapshotPublished(collection, records)
	return next.revision, nil
}

// Fail implements Store.Fail.
func (s *SnapshotStore) Fail(_ context.Context, collection string, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	prev, ok := cur.status[collection]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	msg := "unknown feed error"
	if cause != nil {
		msg = cause.Error()
	}
	next := cur.clone()
	prev.State = model.StateError
	prev.Error = msg
	prev.UpdatedAt = s.now()
	next.status[collection] = prev
	s.current.Store(next)

	metrics.RecordCollectionFailure(collection)
	return nil
}

// Snapshot implements Store.Snapshot.
func (s *SnapshotStore) Snapshot(_ context.Context) model.Snapshot {
	return s.current.Load().snap
}

// Status implements Store.Status.
func (s *SnapshotStore) Status(_ context.Context) map[string]model.CollectionStatus {
	cur := s.current.Load()
	out := make(map[string]model.CollectionStatus, len(cur.status))
	for k, v := range cur.status {
		out[k] = v
	}
	return out
}

// Revision implements Store.Revision.
func (s *SnapshotStore) Revision(_ context.Context) uint64 {
	return s.current.Load().revision
}

// clone copies the state shallowly. Collection slices are never mutated
// in place, only replaced, so sharing them is safe.
func (st *state) clone() *state {
	next := &state{
		snap:     st.snap,
		status:   make(map[string]model.CollectionStatus, len(st.status)),
		revision: st.revision,
	}
	for k, v := range st.status {
		next.status[k] = v
	}
	return next
}
