package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/cocstats/internal/domain/model"
)

func event(path, value string) model.FeedEvent {
	return model.FeedEvent{Path: path, Value: []byte(value)}
}

func TestLatestQueue_BasicOperations(t *testing.T) {
	q := NewLatestQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, event("users", `{}`)) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue()
	if got.Path != "users" || string(got.Value) != `{}` {
		t.Errorf("unexpected event %+v", got)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestLatestQueue_DropsOldestWhenFull(t *testing.T) {
	q := NewLatestQueue(WithCapacity(2))
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if !q.Enqueue(ctx, event("users", fmt.Sprintf("%d", i))) {
			t.Fatalf("enqueue %d failed", i)
		}
	}

	if l := q.Len(); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
	if d := q.Dropped(); d != 3 {
		t.Errorf("expected 3 dropped, got %d", d)
	}

	first := <-q.Dequeue()
	second := <-q.Dequeue()
	if string(first.Value) != "4" || string(second.Value) != "5" {
		t.Errorf("expected newest values 4 and 5, got %s and %s", first.Value, second.Value)
	}
}

func TestLatestQueue_Close(t *testing.T) {
	q := NewLatestQueue()
	ctx := context.Background()

	q.Enqueue(ctx, event("news", `"hi"`))
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if q.Enqueue(ctx, event("news", `"again"`)) {
		t.Error("expected enqueue after close to fail")
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}

	// Pending events remain readable, then the channel reports closed.
	if e, ok := <-q.Dequeue(); !ok || string(e.Value) != `"hi"` {
		t.Errorf("expected pending event, got %+v ok=%v", e, ok)
	}
	if _, ok := <-q.Dequeue(); ok {
		t.Error("expected closed channel")
	}
}

func TestLatestQueue_CancelledContext(t *testing.T) {
	q := NewLatestQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, event("users", `{}`)) {
		t.Error("expected enqueue with cancelled context to fail")
	}
}

func TestLatestQueue_ConcurrentProducers(t *testing.T) {
	q := NewLatestQueue(WithCapacity(8))
	ctx := context.Background()

	var received int
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range q.Dequeue() {
			received++
		}
	}()

	var wg sync.WaitGroup
	for p := 0; p < 10; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if !q.Enqueue(ctx, event("users", fmt.Sprintf("%d-%d", p, i))) {
					t.Errorf("enqueue %d-%d failed", p, i)
				}
			}
		}(p)
	}
	wg.Wait()
	_ = q.Close()
	<-done

	if uint64(received)+q.Dropped() != 1000 {
		t.Errorf("expected delivered+dropped to be 1000, got %d+%d", received, q.Dropped())
	}
}
