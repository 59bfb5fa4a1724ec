// Package usertable filters and sorts the user management table.
package usertable

import (
	"sort"
	"strings"
	"time"

	"github.com/okian/cocstats/internal/domain/model"
	"github.com/okian/cocstats/internal/domain/timeparse"
)

// SortKey is a sortable column.
type SortKey string

// Sortable columns.
const (
	SortName           SortKey = "name"
	SortRegisteredTime SortKey = "registered_time"
	SortAttackCount    SortKey = "attack_count"
	SortLastOnline     SortKey = "last_online"
)

// Order is the sort direction.
type Order string

// Sort directions.
const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Table defaults.
const (
	DefaultSortKey = SortRegisteredTime
	DefaultOrder   = Desc
)

// ParseSortKey maps a query value to a column, falling back to DefaultSortKey.
func ParseSortKey(s string) SortKey {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortName, SortRegisteredTime, SortAttackCount, SortLastOnline:
		return k
	default:
		return DefaultSortKey
	}
}

// ParseOrder maps a query value to a direction, falling back to DefaultOrder.
func ParseOrder(s string) Order {
	switch o := Order(strings.ToLower(strings.TrimSpace(s))); o {
	case Asc, Desc:
		return o
	default:
		return DefaultOrder
	}
}

// Filter keeps users whose name, device id or used key contains term,
// ignoring case. An empty term keeps everyone.
func Filter(users []model.UserRecord, term string) []model.UserRecord {
	out := make([]model.UserRecord, 0, len(users))
	needle := strings.ToLower(term)
	for _, u := range users {
		if needle == "" ||
			strings.Contains(strings.ToLower(u.Name), needle) ||
			strings.Contains(strings.ToLower(u.DeviceID), needle) ||
			strings.Contains(strings.ToLower(u.UsedKey), needle) {
			out = append(out, u)
		}
	}
	return out
}

// Sort returns a stably sorted copy of users. For the date columns,
// unparseable dates come after every parseable one in both directions.
func Sort(users []model.UserRecord, key SortKey, order Order, loc *time.Location) []model.UserRecord {
	out := make([]model.UserRecord, len(users))
	copy(out, users)

	switch key {
	case SortRegisteredTime, SortLastOnline:
		sortByDate(out, key, order, loc)
	case SortAttackCount:
		sort.SliceStable(out, func(i, j int) bool {
			return ordered(out[i].AttackCount, out[j].AttackCount, order)
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return ordered(out[i].Name, out[j].Name, order)
		})
	}
	return out
}

func sortByDate(users []model.UserRecord, key SortKey, order Order, loc *time.Location) {
	type dated struct {
		user model.UserRecord
		at   time.Time
		ok   bool
	}
	rows := make([]dated, len(users))
	for i, u := range users {
		raw := u.RegisteredTime
		if key == SortLastOnline {
			raw = u.LastOnline
		}
		t, ok := timeparse.Parse(raw, loc)
		rows[i] = dated{user: u, at: t, ok: ok}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.ok != b.ok {
			return a.ok
		}
		if !a.ok {
			return false
		}
		if order == Asc {
			return a.at.Before(b.at)
		}
		return a.at.After(b.at)
	})
	for i := range rows {
		users[i] = rows[i].user
	}
}

func ordered[T int64 | string](a, b T, order Order) bool {
	if order == Asc {
		return a < b
	}
	return a > b
}

// Summary totals the rows currently shown.
type Summary struct {
	Users        int   `json:"users"`
	TotalAttacks int64 `json:"total_attacks"`
	TotalLoot    int64 `json:"total_loot"`
}

// Summarize totals attacks and loot over users.
func Summarize(users []model.UserRecord) Summary {
	s := Summary{Users: len(users)}
	for _, u := range users {
		s.TotalAttacks = model.AddCounts(s.TotalAttacks, u.AttackCount)
		s.TotalLoot = model.AddCounts(s.TotalLoot, u.TotalLoot())
	}
	return s
}
