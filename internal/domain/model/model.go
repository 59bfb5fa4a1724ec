// Package model contains domain models passed between layers.
package model

import (
	"math"
	"time"
)

// Collection paths served by the snapshot feed.
const (
	CollectionGlobalLoot = "global_loot"
	CollectionUsers      = "users"
	CollectionFeedback   = "feedbacks"
	CollectionNews       = "news"
)

// Collections lists every collection the dashboard subscribes to.
func Collections() []string {
	return []string{CollectionGlobalLoot, CollectionUsers, CollectionFeedback, CollectionNews}
}

// LootTotals is the three-resource counter shared by global and per-user totals.
type LootTotals struct {
	Gold       int64 `json:"gold"`
	Elixir     int64 `json:"elixir"`
	DarkElixir int64 `json:"dark_elixir"`
}

// MaxCount is the largest value a decoded counter keeps: the largest
// integer a float64 holds exactly.
const MaxCount = int64(1) << 53

// Total sums the three resources.
func (l LootTotals) Total() int64 {
	return AddCounts(l.Gold, l.Elixir, l.DarkElixir)
}

// AddCounts sums non-negative counters, stopping at math.MaxInt64 instead
// of wrapping.
func AddCounts(vals ...int64) int64 {
	var sum int64
	for _, v := range vals {
		if v > math.MaxInt64-sum {
			return math.MaxInt64
		}
		sum += v
	}
	return sum
}

// UserRecord is one bot user, keyed by DeviceID in the users collection.
type UserRecord struct {
	DeviceID       string     `json:"device_id"`
	Name           string     `json:"name"`
	RegisteredTime string     `json:"registered_time"`
	UsedKey        string     `json:"used_key"`
	AttackCount    int64      `json:"attack_count"`
	LastOnline     string     `json:"last_online,omitempty"` // empty when the user was never seen
	Loot           LootTotals `json:"loot"`
}

// TotalLoot is gold + elixir + dark elixir.
func (u UserRecord) TotalLoot() int64 {
	return u.Loot.Total()
}

// FeedbackEntry is one feedback message; Timestamp is "DD/MM/YYYY HH:MM".
type FeedbackEntry struct {
	ID        string `json:"id"`
	UserName  string `json:"user_name"`
	DeviceID  string `json:"device_id"`
	Text      string `json:"feedback"`
	Timestamp string `json:"timestamp"`
}

// News is the announcement banner; Present is false when the feed has no value.
type News struct {
	Message string `json:"message"`
	Present bool   `json:"present"`
}

// Snapshot is the latest complete value of every collection.
// Users and Feedback keep the feed's key order.
type Snapshot struct {
	Loot     LootTotals      `json:"global_loot"`
	Users    []UserRecord    `json:"users"`
	Feedback []FeedbackEntry `json:"feedbacks"`
	News     News            `json:"news"`
}

// FeedEvent is one whole-collection replacement (or failure) delivered by a feed.
type FeedEvent struct {
	Path  string    // collection path, e.g. "users"
	Value []byte    // raw JSON of the full collection; "null" when absent
	Err   error     // set when the feed reports a failure instead of a value
	At    time.Time // receive time
}

// IsError reports whether the event carries a failure.
func (e FeedEvent) IsError() bool {
	return e.Err != nil
}

// Collection states reported per feed path.
const (
	StateLoading = "loading"
	StateReady   = "ready"
	StateError   = "error"
)

// CollectionStatus is the load state of one collection. Error is set only in
// StateError; the last good value stays in the snapshot meanwhile.
type CollectionStatus struct {
	Collection string    `json:"collection"`
	State      string    `json:"state"`
	Error      string    `json:"error,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
	Revision   uint64    `json:"revision"`
	Records    int       `json:"records"`
}
