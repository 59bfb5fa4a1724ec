// Package timeparse reads the timestamp shapes found in the snapshot feed.
//
// Users carry ISO-like or en-US locale strings written by the bot; feedback
// carries DD/MM/YYYY HH:MM. Nothing here returns an error: callers get a
// (time, ok) pair and pick their own fallback.
package timeparse

import (
	"strconv"
	"strings"
	"time"
)

// Zoned layouts carry their own offset.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	"Mon Jan 2 2006 15:04:05 GMT-0700",
}

// Local layouts are read in the caller's location.
var localLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006, 3:04:05 PM",
	"1/2/2006, 3:04 PM",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"Jan 2, 2006, 03:04 PM",
	"Jan 2, 2006, 3:04 PM",
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006",
}

// Epoch milliseconds are accepted only inside this window so that small
// integers ("42") are not mistaken for dates.
const (
	minEpochMillis = int64(946684800000)  // 2000-01-01
	maxEpochMillis = int64(4102444800000) // 2100-01-01
)

// Parse reads a user timestamp. Zone-less values are interpreted in loc
// (UTC when nil).
func Parse(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	// Date.toString() appends the zone's display name in parentheses.
	if i := strings.Index(s, " ("); i > 0 && strings.HasSuffix(s, ")") {
		s = s[:i]
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms >= minEpochMillis && ms < maxEpochMillis {
		return time.UnixMilli(ms).In(loc), true
	}
	return time.Time{}, false
}

// ParseFeedback reads a "DD/MM/YYYY HH:MM" feedback timestamp in loc.
// Fields are reassembled into year-month-day order; out-of-range values
// are rejected rather than normalised.
func ParseFeedback(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	datePart, timePart, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok {
		return time.Time{}, false
	}
	dmy := strings.Split(datePart, "/")
	hm := strings.Split(strings.TrimSpace(timePart), ":")
	if len(dmy) != 3 || len(hm) < 2 || len(hm) > 3 {
		return time.Time{}, false
	}

	day, okD := atoi(dmy[0])
	month, okM := atoi(dmy[1])
	year, okY := atoi(dmy[2])
	hour, okH := atoi(hm[0])
	minute, okMin := atoi(hm[1])
	second := 0
	okS := true
	if len(hm) == 3 {
		second, okS = atoi(hm[2])
	}
	if !okD || !okM || !okY || !okH || !okMin || !okS {
		return time.Time{}, false
	}
	if month < 1 || month > 12 || hour > 23 || minute > 59 || second > 59 || year < 1 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, loc)
	if t.Day() != day {
		// 31/02 and friends roll over in time.Date.
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) (int, bool) {
	if s == "" || len(s) > 4 {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
