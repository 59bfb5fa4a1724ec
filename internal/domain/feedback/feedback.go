// Package feedback orders feedback entries and derives their statistics.
package feedback

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/okian/cocstats/internal/domain/activity"
	"github.com/okian/cocstats/internal/domain/model"
	"github.com/okian/cocstats/internal/domain/timeparse"
)

// Display fallbacks.
const (
	Anonymous      = "Anonymous"
	NotAvailable   = "N/A"
	deviceIDMaxLen = 20
	recentWindow   = 24 * time.Hour
)

// Sentiment is the coarse tone of a feedback message.
type Sentiment string

// Sentiments in classification priority order. SentimentDefault is shown
// with the positive colour.
const (
	SentimentPositive   Sentiment = "positive"
	SentimentNegative   Sentiment = "negative"
	SentimentSuggestion Sentiment = "suggestion"
	SentimentDefault    Sentiment = "default"
)

var sentimentKeywords = []struct {
	sentiment Sentiment
	words     []string
}{
	{SentimentPositive, []string{"great", "excellent", "amazing", "love"}},
	{SentimentNegative, []string{"bug", "error", "problem", "issue"}},
	{SentimentSuggestion, []string{"suggest", "feature", "improve"}},
}

var sentimentColors = map[Sentiment]string{
	SentimentPositive:   "#4fd1c5",
	SentimentNegative:   "#f56565",
	SentimentSuggestion: "#ed8936",
	SentimentDefault:    "#4fd1c5",
}

// Trend patterns are wider than the classifier keywords.
var (
	positiveTrend   = regexp.MustCompile(`(?i)great|excellent|amazing|love|good|perfect`)
	issueTrend      = regexp.MustCompile(`(?i)bug|error|problem|issue|crash|fail`)
	suggestionTrend = regexp.MustCompile(`(?i)suggest|feature|improve|add|request`)
)

// Classify scans text case-insensitively; the first matching category wins.
func Classify(text string) Sentiment {
	lower := strings.ToLower(text)
	for _, group := range sentimentKeywords {
		for _, w := range group.words {
			if strings.Contains(lower, w) {
				return group.sentiment
			}
		}
	}
	return SentimentDefault
}

// Color returns the display colour of s.
func (s Sentiment) Color() string {
	if c, ok := sentimentColors[s]; ok {
		return c
	}
	return sentimentColors[SentimentDefault]
}

// Sort returns entries newest first. Entries with equal instants keep their
// input order and unparseable timestamps go last.
func Sort(entries []model.FeedbackEntry, loc *time.Location) []model.FeedbackEntry {
	type keyed struct {
		entry model.FeedbackEntry
		at    time.Time
		ok    bool
	}
	tmp := make([]keyed, len(entries))
	for i, e := range entries {
		at, ok := timeparse.ParseFeedback(e.Timestamp, loc)
		tmp[i] = keyed{entry: e, at: at, ok: ok}
	}
	sort.SliceStable(tmp, func(i, j int) bool {
		a, b := tmp[i], tmp[j]
		if a.ok != b.ok {
			return a.ok
		}
		return a.ok && a.at.After(b.at)
	})

	out := make([]model.FeedbackEntry, len(tmp))
	for i := range tmp {
		out[i] = tmp[i].entry
	}
	return out
}

// Stats summarises a feedback collection.
type Stats struct {
	Total          int `json:"total"`
	Recent         int `json:"recent"`
	Users          int `json:"users"`
	EngagementRate int `json:"engagement_rate"`
}

// ComputeStats counts entries, those within the last 24h and distinct
// user names. EngagementRate is round(Users/Total*100), 0 when empty.
func ComputeStats(entries []model.FeedbackEntry, now time.Time, loc *time.Location) Stats {
	st := Stats{Total: len(entries)}
	if st.Total == 0 {
		return st
	}
	since := now.Add(-recentWindow)
	names := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		names[e.UserName] = struct{}{}
		if at, ok := timeparse.ParseFeedback(e.Timestamp, loc); ok && at.After(since) {
			st.Recent++
		}
	}
	st.Users = len(names)
	st.EngagementRate = activity.Percentage(st.Users, st.Total)
	return st
}

// Insights are the secondary figures shown under the feedback list.
type Insights struct {
	MostActiveUser string `json:"most_active_user"`
	AverageLength  int    `json:"average_length"`
	Latest         string `json:"latest"`
	PositiveTrend  int    `json:"positive_mentions"`
	IssueTrend     int    `json:"issues_reported"`
	FeatureTrend   int    `json:"feature_requests"`
}

// ComputeInsights expects entries already sorted newest first. Ties for the
// most active user go to the name seen first.
func ComputeInsights(sorted []model.FeedbackEntry) Insights {
	in := Insights{MostActiveUser: NotAvailable}
	if len(sorted) == 0 {
		return in
	}

	counts := make(map[string]int, len(sorted))
	seen := make([]string, 0, len(sorted))
	totalLen := 0
	for _, e := range sorted {
		if counts[e.UserName] == 0 {
			seen = append(seen, e.UserName)
		}
		counts[e.UserName]++
		totalLen += utf8.RuneCountInString(e.Text)
		if positiveTrend.MatchString(e.Text) {
			in.PositiveTrend++
		}
		if issueTrend.MatchString(e.Text) {
			in.IssueTrend++
		}
		if suggestionTrend.MatchString(e.Text) {
			in.FeatureTrend++
		}
	}
	best, bestCount := "", 0
	for _, name := range seen {
		if counts[name] > bestCount {
			best, bestCount = name, counts[name]
		}
	}
	if best != "" {
		in.MostActiveUser = best
	}
	n := len(sorted)
	in.AverageLength = (2*totalLen + n) / (2 * n)
	in.Latest = sorted[0].Timestamp
	return in
}

// DisplayName returns the entry's user name or the fallback.
func DisplayName(e model.FeedbackEntry) string {
	if e.UserName == "" {
		return Anonymous
	}
	return e.UserName
}

// ShortDeviceID keeps the first 20 characters of a device id.
func ShortDeviceID(id string) string {
	if utf8.RuneCountInString(id) <= deviceIDMaxLen {
		return id
	}
	return string([]rune(id)[:deviceIDMaxLen])
}
