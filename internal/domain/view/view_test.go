package view

import (
	"math"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/cocstats/internal/domain/activity"
	"github.com/okian/cocstats/internal/domain/feedback"
	"github.com/okian/cocstats/internal/domain/model"
	"github.com/okian/cocstats/internal/domain/usertable"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func sampleSnapshot() model.Snapshot {
	return model.Snapshot{
		Loot: model.LootTotals{Gold: 1_500_000, Elixir: 900_000, DarkElixir: 100_000},
		Users: []model.UserRecord{
			{
				DeviceID: "dev-a", Name: "Alice", UsedKey: "KEY-A", AttackCount: 50,
				RegisteredTime: "2024-01-01T00:00:00Z", LastOnline: "2024-03-10T11:00:00Z",
				Loot: model.LootTotals{Gold: 10, Elixir: 10, DarkElixir: 10},
			},
			{
				DeviceID: "dev-b", Name: "Bob", UsedKey: "KEY-B", AttackCount: 50,
				RegisteredTime: "bad", Loot: model.LootTotals{Gold: 1000},
			},
			{
				DeviceID: "dev-c", Name: "", UsedKey: "VIP", AttackCount: 700,
				RegisteredTime: "2024-02-01T00:00:00Z", LastOnline: "2024-02-20T00:00:00Z",
			},
		},
		Feedback: []model.FeedbackEntry{
			{ID: "f1", UserName: "Alice", DeviceID: "dev-a", Text: "great bot but a bug", Timestamp: "09/03/2024 12:00"},
			{ID: "f2", UserName: "", DeviceID: "0123456789abcdefghijXYZ", Text: "please add a feature", Timestamp: "10/03/2024 11:30"},
		},
		News: model.News{Message: "<b>Season 5</b> is live", Present: true},
	}
}

func TestDerive(t *testing.T) {
	Convey("Given a populated snapshot", t, func() {
		vm := Derive(sampleSnapshot(), now, DefaultQuery(), Options{Location: time.UTC, LeaderboardSize: 10})

		Convey("Then the dashboard cards are formatted", func() {
			d := vm.Dashboard
			So(d.Gold.Display, ShouldEqual, "1.5M")
			So(d.Elixir.Display, ShouldEqual, "900.0K")
			So(d.TotalResources.Value, ShouldEqual, 2_500_000)
			So(d.Users, ShouldEqual, 3)
			So(d.AveragePerUser.Value, ShouldEqual, 800_000)
			So(d.TopResource, ShouldEqual, ResourceGold)
			So(d.News, ShouldEqual, "Season 5 is live")
			So(d.HasNews, ShouldBeTrue)
		})

		Convey("Then analytics totals and distribution add up", func() {
			a := vm.Analytics
			So(a.TotalAttacks.Value, ShouldEqual, 800)
			So(a.TotalUsers, ShouldEqual, 3)
			So(len(a.Distribution), ShouldEqual, 3)
			So(a.Distribution[0].Percent, ShouldEqual, 60)
			So(a.Distribution[1].Percent, ShouldEqual, 36)
			So(a.Distribution[2].Percent, ShouldEqual, 4)
			So(a.AttackBuckets, ShouldResemble, []Bucket{
				{Range: "0-10"}, {Range: "11-50", Count: 2}, {Range: "51-100"}, {Range: "101-500"}, {Range: "500+", Count: 1},
			})
		})

		Convey("Then activity counts only parseable last_online values", func() {
			So(vm.Activity.Counts.TotalUsers, ShouldEqual, 3)
			So(vm.Activity.Counts.LastDay, ShouldEqual, 1)
			So(vm.Activity.Counts.Last30Days, ShouldEqual, 2)
			So(vm.Activity.Percentages.LastDay, ShouldEqual, 33)
			So(vm.Activity.Level, ShouldEqual, activity.LevelLow)
		})

		Convey("Then leaderboards rank stably", func() {
			attacks := vm.Leaderboards.Attacks.Entries
			So(attacks[0].User.DeviceID, ShouldEqual, "dev-c")
			So(attacks[0].Name, ShouldEqual, "Unknown User")
			So(attacks[1].User.DeviceID, ShouldEqual, "dev-a")
			So(attacks[2].User.DeviceID, ShouldEqual, "dev-b")
			So(vm.Leaderboards.Loot.Summary.Leader, ShouldEqual, "Bob")
		})

		Convey("Then feedback is newest first and annotated", func() {
			items := vm.Feedback.Items
			So(items[0].ID, ShouldEqual, "f2")
			So(items[0].UserName, ShouldEqual, feedback.Anonymous)
			So(items[0].DeviceID, ShouldEqual, "0123456789abcdefghij")
			So(items[0].Sentiment, ShouldEqual, feedback.SentimentSuggestion)
			So(items[0].Age, ShouldEqual, "Just now")
			So(items[1].Sentiment, ShouldEqual, feedback.SentimentPositive)
			So(items[1].Age, ShouldEqual, "1d ago")
			So(vm.Feedback.Stats.Recent, ShouldEqual, 1)
			So(vm.Feedback.LatestAge, ShouldEqual, "Just now")
		})

		Convey("Then the user table uses the default order", func() {
			rows := vm.Users.Rows
			So(rows[0].User.DeviceID, ShouldEqual, "dev-c")
			So(rows[1].User.DeviceID, ShouldEqual, "dev-a")
			So(rows[2].User.DeviceID, ShouldEqual, "dev-b")
			So(rows[2].Registered, ShouldEqual, "Invalid Date")
			So(rows[2].LastOnline, ShouldEqual, "Never")
			So(rows[2].LastSeen, ShouldEqual, "Never")
			So(rows[1].LastSeen, ShouldEqual, "1h ago")
			So(vm.Users.Summary.TotalAttacks, ShouldEqual, 800)
		})
	})

	Convey("Given an empty snapshot", t, func() {
		vm := Derive(model.Snapshot{}, now, DefaultQuery(), Options{})

		Convey("Then every page degrades to empty values", func() {
			So(vm.Dashboard.News, ShouldEqual, NoAnnouncements)
			So(vm.Dashboard.HasNews, ShouldBeFalse)
			So(vm.Dashboard.AveragePerUser.Display, ShouldEqual, "0")
			So(vm.Analytics.Distribution[0].Percent, ShouldEqual, 0)
			So(vm.Activity.Percentages.Last7Days, ShouldEqual, 0)
			So(vm.Leaderboards.Attacks.Entries, ShouldBeEmpty)
			So(vm.Feedback.Items, ShouldBeEmpty)
			So(vm.Feedback.Stats.EngagementRate, ShouldEqual, 0)
			So(vm.Feedback.Insights.MostActiveUser, ShouldEqual, feedback.NotAvailable)
			So(vm.Users.Rows, ShouldBeEmpty)
		})
	})
}

func TestWithStatus(t *testing.T) {
	Convey("Given one failed collection", t, func() {
		vm := ViewModel{}.WithStatus(map[string]model.CollectionStatus{
			model.CollectionUsers: {Collection: model.CollectionUsers, State: model.StateReady},
			model.CollectionNews:  {Collection: model.CollectionNews, State: model.StateError, Error: "permission denied"},
		})

		Convey("Then only that collection is listed in errors", func() {
			So(len(vm.Status), ShouldEqual, 2)
			So(vm.Errors, ShouldResemble, map[string]string{model.CollectionNews: "permission denied"})
		})
	})

	Convey("Given healthy collections", t, func() {
		vm := ViewModel{}.WithStatus(map[string]model.CollectionStatus{
			model.CollectionUsers: {State: model.StateLoading},
		})
		So(vm.Errors, ShouldBeNil)
	})
}

func TestRecords(t *testing.T) {
	Convey("Given a search query", t, func() {
		q := ParseQuery("vip", "attack_count", "asc")

		Convey("Then only matching users are returned in table order", func() {
			recs := Records(sampleSnapshot(), q, Options{})
			So(len(recs), ShouldEqual, 1)
			So(recs[0].DeviceID, ShouldEqual, "dev-c")
			So(q.Sort, ShouldEqual, usertable.SortAttackCount)
			So(q.Order, ShouldEqual, usertable.Asc)
		})
	})
}

func TestHugeTotals(t *testing.T) {
	Convey("Given capped counters on every user", t, func() {
		users := make([]model.UserRecord, 2000)
		for i := range users {
			users[i] = model.UserRecord{DeviceID: "d", AttackCount: model.MaxCount}
		}
		users[0].Loot = model.LootTotals{Gold: model.MaxCount, Elixir: model.MaxCount, DarkElixir: model.MaxCount}
		snap := model.Snapshot{
			Loot:  model.LootTotals{Gold: model.MaxCount, Elixir: model.MaxCount, DarkElixir: model.MaxCount},
			Users: users,
		}

		Convey("Then every total stays positive", func() {
			a := DeriveAnalytics(snap)
			So(a.TotalAttacks.Value, ShouldEqual, int64(math.MaxInt64))
			So(a.TotalResources.Value, ShouldEqual, 3*model.MaxCount)

			d := DeriveDashboard(snap)
			So(d.TotalResources.Value, ShouldBeGreaterThan, int64(0))
			So(d.AveragePerUser.Value, ShouldBeGreaterThan, int64(0))

			top := DeriveLeaderboards(snap, Options{LeaderboardSize: 1}).Loot.Entries
			So(top[0].Score, ShouldEqual, 3*model.MaxCount)
		})
	})
}

func TestTopResource(t *testing.T) {
	Convey("Given global totals", t, func() {
		So(TopResource(model.LootTotals{Gold: 3, Elixir: 2, DarkElixir: 1}), ShouldEqual, ResourceGold)
		So(TopResource(model.LootTotals{Gold: 3, Elixir: 3, DarkElixir: 1}), ShouldEqual, ResourceElixir)
		So(TopResource(model.LootTotals{Gold: 1, Elixir: 2, DarkElixir: 3}), ShouldEqual, ResourceDarkElixir)
		So(TopResource(model.LootTotals{}), ShouldEqual, ResourceDarkElixir)
	})
}

func TestSanitizeNews(t *testing.T) {
	Convey("Given announcements with markup", t, func() {
		So(SanitizeNews("Tom & Jerry <i>today</i>"), ShouldEqual, "Tom & Jerry today")
		So(SanitizeNews("<script>alert(1)</script>"), ShouldEqual, "")
		So(SanitizeNews("  plain  "), ShouldEqual, "plain")
	})

	Convey("Given news that is only markup", t, func() {
		snap := model.Snapshot{News: model.News{Message: "<script>x</script>", Present: true}}
		d := DeriveDashboard(snap)
		So(d.HasNews, ShouldBeFalse)
		So(d.News, ShouldEqual, NoAnnouncements)
	})
}
