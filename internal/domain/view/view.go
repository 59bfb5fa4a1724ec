// Package view derives everything the dashboard shows from one snapshot.
//
// Derive is pure: the caller passes the latest snapshot and the current
// instant and gets back a fresh ViewModel. Nothing is cached between calls.
package view

import (
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/okian/cocstats/internal/domain/activity"
	"github.com/okian/cocstats/internal/domain/feedback"
	"github.com/okian/cocstats/internal/domain/format"
	"github.com/okian/cocstats/internal/domain/leaderboard"
	"github.com/okian/cocstats/internal/domain/model"
	"github.com/okian/cocstats/internal/domain/usertable"
)

// NoAnnouncements is shown when the news collection is empty.
const NoAnnouncements = "No announcements"

// Resource names used by the dashboard cards.
const (
	ResourceGold       = "Gold"
	ResourceElixir     = "Elixir"
	ResourceDarkElixir = "Dark Elixir"
)

var resourceColors = map[string]string{
	ResourceGold:       "#FFD700",
	ResourceElixir:     "#FF69B4",
	ResourceDarkElixir: "#9932CC",
}

// bluemonday policies are safe for concurrent use once built.
var newsPolicy = bluemonday.StrictPolicy()

// Options carries the display settings.
type Options struct {
	Location        *time.Location
	LeaderboardSize int
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// Query selects the user table rows.
type Query struct {
	Search string            `json:"search"`
	Sort   usertable.SortKey `json:"sort"`
	Order  usertable.Order   `json:"order"`
}

// DefaultQuery is the unfiltered table in its default order.
func DefaultQuery() Query {
	return Query{Sort: usertable.DefaultSortKey, Order: usertable.DefaultOrder}
}

// ParseQuery builds a Query from raw request values.
func ParseQuery(search, sortKey, order string) Query {
	return Query{
		Search: search,
		Sort:   usertable.ParseSortKey(sortKey),
		Order:  usertable.ParseOrder(order),
	}
}

// Stat is a number with its display form.
type Stat struct {
	Value   int64  `json:"value"`
	Display string `json:"display"`
}

func compactStat(v int64) Stat {
	return Stat{Value: v, Display: format.CompactInt(v)}
}

// Dashboard is the landing page.
type Dashboard struct {
	Gold           Stat   `json:"gold"`
	Elixir         Stat   `json:"elixir"`
	DarkElixir     Stat   `json:"dark_elixir"`
	TotalResources Stat   `json:"total_resources"`
	Users          int    `json:"users"`
	AveragePerUser Stat   `json:"average_per_user"`
	TopResource    string `json:"top_resource"`
	News           string `json:"news"`
	HasNews        bool   `json:"has_news"`
}

// Share is one slice of the resource distribution.
type Share struct {
	Resource string `json:"resource"`
	Value    int64  `json:"value"`
	Display  string `json:"display"`
	Percent  int    `json:"percent"`
	Color    string `json:"color"`
}

// Bucket counts users whose attack count falls in Range.
type Bucket struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// Analytics is the charts page.
type Analytics struct {
	TotalResources Stat     `json:"total_resources"`
	TotalUsers     int      `json:"total_users"`
	TotalAttacks   Stat     `json:"total_attacks"`
	Distribution   []Share  `json:"distribution"`
	AttackBuckets  []Bucket `json:"attack_buckets"`
}

// Activity is the member activity page.
type Activity struct {
	Counts      activity.Stats       `json:"counts"`
	Percentages activity.Percentages `json:"percentages"`
	Level       string               `json:"level"`
}

// Board is one leaderboard with its summary card.
type Board struct {
	Entries []leaderboard.Entry `json:"entries"`
	Summary leaderboard.Summary `json:"summary"`
}

// Leaderboards holds both boards.
type Leaderboards struct {
	Attacks Board `json:"attacks"`
	Loot    Board `json:"loot"`
}

// FeedbackItem is one rendered feedback entry.
type FeedbackItem struct {
	ID        string             `json:"id"`
	UserName  string             `json:"user_name"`
	DeviceID  string             `json:"device_id"`
	Text      string             `json:"feedback"`
	Timestamp string             `json:"timestamp"`
	Age       string             `json:"age"`
	Sentiment feedback.Sentiment `json:"sentiment"`
	Color     string             `json:"color"`
}

// Feedback is the feedback page.
type Feedback struct {
	Items     []FeedbackItem    `json:"items"`
	Stats     feedback.Stats    `json:"stats"`
	Insights  feedback.Insights `json:"insights"`
	LatestAge string            `json:"latest_age"`
}

// UserRow is one rendered user table row.
type UserRow struct {
	User       model.UserRecord `json:"user"`
	TotalLoot  Stat             `json:"total_loot"`
	Registered string           `json:"registered"`
	LastOnline string           `json:"last_online"`
	LastSeen   string           `json:"last_seen"`
}

// Users is the user management table.
type Users struct {
	Query   Query             `json:"query"`
	Rows    []UserRow         `json:"rows"`
	Summary usertable.Summary `json:"summary"`
}

// ViewModel is every page of the dashboard.
type ViewModel struct {
	GeneratedAt  time.Time                         `json:"generated_at"`
	Dashboard    Dashboard                         `json:"dashboard"`
	Analytics    Analytics                         `json:"analytics"`
	Activity     Activity                          `json:"activity"`
	Leaderboards Leaderboards                      `json:"leaderboards"`
	Feedback     Feedback                          `json:"feedback"`
	Users        Users                             `json:"users"`
	Status       map[string]model.CollectionStatus `json:"status,omitempty"`
	Errors       map[string]string                 `json:"errors,omitempty"`
}

// WithStatus attaches per-collection load state. Failed collections are
// also listed in Errors by their message.
func (vm ViewModel) WithStatus(status map[string]model.CollectionStatus) ViewModel {
	vm.Status = status
	vm.Errors = nil
	for name, st := range status {
		if st.State != model.StateError {
			continue
		}
		if vm.Errors == nil {
			vm.Errors = make(map[string]string)
		}
		vm.Errors[name] = st.Error
	}
	return vm
}

// Derive computes the full view of snap at now.
func Derive(snap model.Snapshot, now time.Time, q Query, opts Options) ViewModel {
	return ViewModel{
		GeneratedAt:  now,
		Dashboard:    DeriveDashboard(snap),
		Analytics:    DeriveAnalytics(snap),
		Activity:     DeriveActivity(snap, now, opts),
		Leaderboards: DeriveLeaderboards(snap, opts),
		Feedback:     DeriveFeedback(snap, now, opts),
		Users:        DeriveUsers(snap, now, q, opts),
	}
}

// DeriveDashboard builds the landing page cards.
func DeriveDashboard(snap model.Snapshot) Dashboard {
	loot := snap.Loot
	users := len(snap.Users)
	d := Dashboard{
		Gold:           compactStat(loot.Gold),
		Elixir:         compactStat(loot.Elixir),
		DarkElixir:     compactStat(loot.DarkElixir),
		TotalResources: compactStat(loot.Total()),
		Users:          users,
		AveragePerUser: Stat{Value: 0, Display: "0"},
		TopResource:    TopResource(loot),
		News:           NoAnnouncements,
	}
	if users > 0 {
		// Dark elixir is left out of the per-user average.
		d.AveragePerUser = compactStat(model.AddCounts(loot.Gold, loot.Elixir) / int64(users))
	}
	if snap.News.Present {
		if text := SanitizeNews(snap.News.Message); text != "" {
			d.News = text
			d.HasNews = true
		}
	}
	return d
}

// TopResource names the largest of the three global totals. Ties resolve
// towards elixir, then dark elixir.
func TopResource(l model.LootTotals) string {
	switch {
	case l.Gold > l.Elixir && l.Gold > l.DarkElixir:
		return ResourceGold
	case l.Elixir > l.DarkElixir:
		return ResourceElixir
	default:
		return ResourceDarkElixir
	}
}

// SanitizeNews strips markup from an announcement and returns plain text.
func SanitizeNews(s string) string {
	return strings.TrimSpace(html.UnescapeString(newsPolicy.Sanitize(s)))
}

// DeriveAnalytics builds the totals and the resource distribution.
func DeriveAnalytics(snap model.Snapshot) Analytics {
	loot := snap.Loot
	total := loot.Total()
	var attacks int64
	for _, u := range snap.Users {
		attacks = model.AddCounts(attacks, u.AttackCount)
	}

	dist := make([]Share, 0, 3)
	for _, r := range []struct {
		name  string
		value int64
	}{
		{ResourceGold, loot.Gold},
		{ResourceElixir, loot.Elixir},
		{ResourceDarkElixir, loot.DarkElixir},
	} {
		dist = append(dist, Share{
			Resource: r.name,
			Value:    r.value,
			Display:  format.CompactInt(r.value),
			Percent:  share(r.value, total),
			Color:    resourceColors[r.name],
		})
	}

	return Analytics{
		TotalResources: compactStat(total),
		TotalUsers:     len(snap.Users),
		TotalAttacks:   Stat{Value: attacks, Display: format.Grouped(attacks)},
		Distribution:   dist,
		AttackBuckets:  AttackBuckets(snap.Users),
	}
}

func share(part, total int64) int {
	if total <= 0 || part <= 0 {
		return 0
	}
	return int((200*float64(part) + float64(total)) / (2 * float64(total)))
}

var bucketBounds = []struct {
	label string
	max   int64
}{
	{"0-10", 10},
	{"11-50", 50},
	{"51-100", 100},
	{"101-500", 500},
}

// AttackBuckets groups users by attack count.
func AttackBuckets(users []model.UserRecord) []Bucket {
	out := make([]Bucket, len(bucketBounds)+1)
	for i, b := range bucketBounds {
		out[i].Range = b.label
	}
	out[len(bucketBounds)].Range = "500+"

	for _, u := range users {
		idx := len(bucketBounds)
		for i, b := range bucketBounds {
			if u.AttackCount <= b.max {
				idx = i
				break
			}
		}
		out[idx].Count++
	}
	return out
}

// DeriveActivity builds the activity windows.
func DeriveActivity(snap model.Snapshot, now time.Time, opts Options) Activity {
	st := activity.Compute(now, snap.Users, opts.location())
	return Activity{Counts: st, Percentages: st.Percentages(), Level: st.Level()}
}

// DeriveLeaderboards builds both boards.
func DeriveLeaderboards(snap model.Snapshot, opts Options) Leaderboards {
	attacks := leaderboard.ByAttacks(snap.Users, opts.LeaderboardSize)
	loot := leaderboard.ByLoot(snap.Users, opts.LeaderboardSize)
	return Leaderboards{
		Attacks: Board{Entries: attacks, Summary: leaderboard.Summarize(attacks)},
		Loot:    Board{Entries: loot, Summary: leaderboard.Summarize(loot)},
	}
}

// DeriveFeedback sorts and annotates feedback.
func DeriveFeedback(snap model.Snapshot, now time.Time, opts Options) Feedback {
	loc := opts.location()
	nowIn := now.In(loc)
	sorted := feedback.Sort(snap.Feedback, loc)

	items := make([]FeedbackItem, 0, len(sorted))
	for _, e := range sorted {
		s := feedback.Classify(e.Text)
		items = append(items, FeedbackItem{
			ID:        e.ID,
			UserName:  feedback.DisplayName(e),
			DeviceID:  feedback.ShortDeviceID(e.DeviceID),
			Text:      e.Text,
			Timestamp: e.Timestamp,
			Age:       format.FeedbackAge(e.Timestamp, nowIn),
			Sentiment: s,
			Color:     s.Color(),
		})
	}

	insights := feedback.ComputeInsights(sorted)
	return Feedback{
		Items:     items,
		Stats:     feedback.ComputeStats(sorted, now, loc),
		Insights:  insights,
		LatestAge: format.FeedbackAge(insights.Latest, nowIn),
	}
}

// Records returns the user records selected by q, in table order. Exports
// are built from this list.
func Records(snap model.Snapshot, q Query, opts Options) []model.UserRecord {
	return usertable.Sort(usertable.Filter(snap.Users, q.Search), q.Sort, q.Order, opts.location())
}

// DeriveUsers builds the user table.
func DeriveUsers(snap model.Snapshot, now time.Time, q Query, opts Options) Users {
	loc := opts.location()
	nowIn := now.In(loc)
	records := Records(snap, q, opts)

	rows := make([]UserRow, 0, len(records))
	for _, u := range records {
		rows = append(rows, UserRow{
			User:       u,
			TotalLoot:  compactStat(u.TotalLoot()),
			Registered: format.Date(u.RegisteredTime, loc),
			LastOnline: format.Date(u.LastOnline, loc),
			LastSeen:   format.TimeAgo(u.LastOnline, nowIn),
		})
	}
	return Users{Query: q, Rows: rows, Summary: usertable.Summarize(records)}
}
