// Package leaderboard orders users by attacks or total loot.
package leaderboard

import (
	"sort"
	"strings"

	"github.com/okian/cocstats/internal/domain/format"
	"github.com/okian/cocstats/internal/domain/model"
)

// DefaultLimit is the number of rows shown on each board.
const DefaultLimit = 10

// UnknownUser replaces an empty display name.
const UnknownUser = "Unknown User"

// Key selects the ranking value.
type Key string

// Supported ranking keys.
const (
	KeyAttacks Key = "attacks"
	KeyLoot    Key = "loot"
)

// ParseKey maps a query value to a ranking key. Unknown values rank by attacks.
func ParseKey(s string) Key {
	if Key(strings.ToLower(strings.TrimSpace(s))) == KeyLoot {
		return KeyLoot
	}
	return KeyAttacks
}

// Entry is one leaderboard row.
type Entry struct {
	Rank    int              `json:"rank"`
	Label   string           `json:"label"`
	Name    string           `json:"name"`
	Score   int64            `json:"score"`
	Display string           `json:"display"`
	User    model.UserRecord `json:"user"`
}

// Summary describes the leader of a board.
type Summary struct {
	Leader  string `json:"leader"`
	Score   int64  `json:"score"`
	Display string `json:"display"`
}

// Score returns the ranking value of u under key.
func Score(u model.UserRecord, key Key) int64 {
	if key == KeyLoot {
		return u.TotalLoot()
	}
	return u.AttackCount
}

// DisplayName returns the user's name or the fallback.
func DisplayName(u model.UserRecord) string {
	if u.Name == "" {
		return UnknownUser
	}
	return u.Name
}

// ByAttacks returns the top users by attack count.
func ByAttacks(users []model.UserRecord, limit int) []Entry {
	return Top(users, KeyAttacks, limit)
}

// ByLoot returns the top users by total loot.
func ByLoot(users []model.UserRecord, limit int) []Entry {
	return Top(users, KeyLoot, limit)
}

// Top orders users by score descending and keeps the first limit rows.
// Users with equal scores keep their input order. A non-positive limit
// selects DefaultLimit.
func Top(users []model.UserRecord, key Key, limit int) []Entry {
	if limit <= 0 {
		limit = DefaultLimit
	}
	ordered := order(users, key)
	if len(ordered) > limit {
		ordered = ordered[:limit]
	}

	entries := make([]Entry, 0, len(ordered))
	for i, u := range ordered {
		entries = append(entries, newEntry(i+1, u, key))
	}
	return entries
}

// Rank returns the row of deviceID in the full ordering.
func Rank(users []model.UserRecord, deviceID string, key Key) (Entry, error) {
	for i, u := range order(users, key) {
		if u.DeviceID == deviceID {
			return newEntry(i+1, u, key), nil
		}
	}
	return Entry{}, ErrNotFound
}

// Summarize reports the leader of a board. An empty board, or a leader
// without a name, reports format.Unknown.
func Summarize(entries []Entry) Summary {
	if len(entries) == 0 {
		return Summary{Leader: format.Unknown, Display: "0"}
	}
	top := entries[0]
	leader := top.User.Name
	if leader == "" {
		leader = format.Unknown
	}
	return Summary{Leader: leader, Score: top.Score, Display: top.Display}
}

func order(users []model.UserRecord, key Key) []model.UserRecord {
	ordered := make([]model.UserRecord, len(users))
	copy(ordered, users)
	sort.SliceStable(ordered, func(i, j int) bool {
		return Score(ordered[i], key) > Score(ordered[j], key)
	})
	return ordered
}

func newEntry(rank int, u model.UserRecord, key Key) Entry {
	score := Score(u, key)
	display := format.Grouped(score)
	if key == KeyLoot {
		display = format.CompactInt(score)
	}
	return Entry{
		Rank:    rank,
		Label:   format.RankLabel(rank),
		Name:    DisplayName(u),
		Score:   score,
		Display: display,
		User:    u,
	}
}
