// Package format renders numbers, ranks and timestamps for display.
// Every function returns a fallback string instead of failing.
package format

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/okian/cocstats/internal/domain/timeparse"
)

// Fallback strings shown for missing or malformed values.
const (
	Never       = "Never"
	InvalidDate = "Invalid Date"
	Unknown     = "Unknown"
	FutureDate  = "Future date"
	JustNow     = "Just now"
)

const dateLayout = "Jan 2, 2006, 03:04 PM"

const (
	thousand = 1_000.0
	million  = 1_000_000.0

	day   = 24 * time.Hour
	month = 30 * day
)

func printer() *message.Printer {
	return message.NewPrinter(language.English)
}

// Compact abbreviates large values: 999 -> "999", 1500 -> "1.5K",
// 2300000 -> "2.3M". Values below a thousand are locale grouped with up to
// three fraction digits.
func Compact(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return "0"
	}
	abs := math.Abs(n)
	switch {
	case abs >= million:
		return fmt.Sprintf("%.1fM", n/million)
	case abs >= thousand:
		return fmt.Sprintf("%.1fK", n/thousand)
	default:
		return printer().Sprint(number.Decimal(n, number.MaxFractionDigits(3)))
	}
}

// CompactInt is Compact for counters.
func CompactInt(n int64) string {
	return Compact(float64(n))
}

// Grouped renders an integer with thousands separators.
func Grouped(n int64) string {
	return printer().Sprint(number.Decimal(n))
}

// RankLabel maps a 1-based rank to its medal or "#N".
func RankLabel(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("#%d", rank)
	}
}

// Date renders a user timestamp in loc.
func Date(s string, loc *time.Location) string {
	if isBlank(s) {
		return Never
	}
	t, ok := timeparse.Parse(s, loc)
	if !ok {
		return InvalidDate
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(dateLayout)
}

// TimeAgo renders how long before now a user timestamp lies. Zone-less
// timestamps are read in now's location.
func TimeAgo(s string, now time.Time) string {
	if isBlank(s) {
		return Never
	}
	t, ok := timeparse.Parse(s, now.Location())
	if !ok {
		return Unknown
	}

	diff := now.Sub(t)
	switch {
	case diff < 0:
		return FutureDate
	case diff < time.Minute:
		return JustNow
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int64(diff/time.Minute))
	case diff < day:
		return fmt.Sprintf("%dh ago", int64(diff/time.Hour))
	case diff < month:
		return fmt.Sprintf("%dd ago", int64(diff/day))
	default:
		return fmt.Sprintf("%dmo ago", int64(diff/month))
	}
}

// FeedbackAge renders the age of a DD/MM/YYYY HH:MM timestamp. Anything a
// week or older, and anything unparseable, is shown as written.
func FeedbackAge(ts string, now time.Time) string {
	t, ok := timeparse.ParseFeedback(ts, now.Location())
	if !ok {
		return ts
	}
	hours := int64(math.Floor(now.Sub(t).Hours()))
	days := int64(math.Floor(float64(hours) / 24))
	switch {
	case hours < 1:
		return JustNow
	case hours < 24:
		return fmt.Sprintf("%dh ago", hours)
	case days < 7:
		return fmt.Sprintf("%dd ago", days)
	default:
		return ts
	}
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
