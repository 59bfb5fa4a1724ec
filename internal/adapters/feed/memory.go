package feed

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Memory is an in-process broker. Publishing a path fans the value out to
// every open subscription on it; new subscribers receive the last value.
type Memory struct {
	settings settings

	mu     sync.Mutex
	subs   map[string]map[string]*Subscription
	last   map[string][]byte
	closed bool
}

// NewMemory constructs an empty broker.
func NewMemory(opts ...Option) *Memory {
	return &Memory{
		settings: newSettings("feed-memory", opts),
		subs:     make(map[string]map[string]*Subscription),
		last:     make(map[string][]byte),
	}
}

// Subscribe implements Subscriber.
func (m *Memory) Subscribe(ctx context.Context, path string) (*Subscription, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, ErrEmptyPath
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	sub := newSubscription(ctx, path, &m.settings, func(id string) { m.remove(path, id) })
	if m.subs[path] == nil {
		m.subs[path] = make(map[string]*Subscription)
	}
	m.subs[path][sub.id] = sub

	if v, ok := m.last[path]; ok {
		sub.deliver(v)
	}
	return sub, nil
}

// Publish replaces the value of path and returns how many subscriptions
// accepted it.
func (m *Memory) Publish(path string, value []byte) int {
	path = strings.Trim(path, "/")
	cp := append([]byte(nil), value...)

	m.mu.Lock()
	m.last[path] = cp
	subs := m.snapshot(path)
	m.mu.Unlock()

	n := 0
	for _, s := range subs {
		if s.deliver(cp) {
			n++
		}
	}
	return n
}

// PublishError delivers err to every subscription on path and ends them.
func (m *Memory) PublishError(path string, err error) int {
	path = strings.Trim(path, "/")
	if err == nil {
		err = errors.New("unknown error")
	}

	m.mu.Lock()
	subs := m.snapshot(path)
	m.mu.Unlock()

	n := 0
	for _, s := range subs {
		if s.fail(err) {
			n++
		}
		s.end()
	}
	return n
}

// Subscribers returns the number of open subscriptions on path.
func (m *Memory) Subscribers(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[strings.Trim(path, "/")])
}

// Close ends every subscription and rejects new ones.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	var all []*Subscription
	for p := range m.subs {
		all = append(all, m.snapshot(p)...)
	}
	m.mu.Unlock()

	for _, s := range all {
		_ = s.Close()
	}
	return nil
}

// snapshot copies the subscriptions of path; callers hold mu.
func (m *Memory) snapshot(path string) []*Subscription {
	out := make([]*Subscription, 0, len(m.subs[path]))
	for _, s := range m.subs[path] {
		out = append(out, s)
	}
	return out
}

func (m *Memory) remove(path, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs[path], id)
	if len(m.subs[path]) == 0 {
		delete(m.subs, path)
	}
}
