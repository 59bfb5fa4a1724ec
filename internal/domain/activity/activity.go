// Package activity counts users seen inside trailing time windows.
package activity

import (
	"time"

	"github.com/okian/cocstats/internal/domain/model"
	"github.com/okian/cocstats/internal/domain/timeparse"
)

// Window lengths, measured back from now.
const (
	Day       = 24 * time.Hour
	Week      = 7 * Day
	ThirtyDay = 30 * Day
)

// Activity levels derived from the seven-day percentage.
const (
	LevelHigh     = "high"
	LevelModerate = "moderate"
	LevelLow      = "low"
)

// Stats holds the window counts. Users whose last_online is missing or
// unparseable only count towards TotalUsers.
type Stats struct {
	LastDay    int `json:"last_day"`
	Last7Days  int `json:"last_7_days"`
	Last30Days int `json:"last_30_days"`
	TotalUsers int `json:"total_users"`
}

// Compute counts users whose last_online is at or after now-24h, now-7d and
// now-30d.
func Compute(now time.Time, users []model.UserRecord, loc *time.Location) Stats {
	st := Stats{TotalUsers: len(users)}
	dayAgo := now.Add(-Day)
	weekAgo := now.Add(-Week)
	monthAgo := now.Add(-ThirtyDay)

	for i := range users {
		seen, ok := timeparse.Parse(users[i].LastOnline, loc)
		if !ok {
			continue
		}
		if !seen.Before(dayAgo) {
			st.LastDay++
		}
		if !seen.Before(weekAgo) {
			st.Last7Days++
		}
		if !seen.Before(monthAgo) {
			st.Last30Days++
		}
	}
	return st
}

// Percentage is round(active/total*100), or 0 when total is 0.
func Percentage(active, total int) int {
	if total <= 0 || active <= 0 {
		return 0
	}
	// Integer half-up rounding of 100*active/total.
	return (200*active + total) / (2 * total)
}

// Percentages holds the three window shares of TotalUsers.
type Percentages struct {
	LastDay    int `json:"last_day"`
	Last7Days  int `json:"last_7_days"`
	Last30Days int `json:"last_30_days"`
}

// Percentages converts the counts into shares of TotalUsers.
func (s Stats) Percentages() Percentages {
	return Percentages{
		LastDay:    Percentage(s.LastDay, s.TotalUsers),
		Last7Days:  Percentage(s.Last7Days, s.TotalUsers),
		Last30Days: Percentage(s.Last30Days, s.TotalUsers),
	}
}

// Level grades engagement by the seven-day share.
func (s Stats) Level() string {
	p := Percentage(s.Last7Days, s.TotalUsers)
	switch {
	case p > 70:
		return LevelHigh
	case p > 40:
		return LevelModerate
	default:
		return LevelLow
	}
}
