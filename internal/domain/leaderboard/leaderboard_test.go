package leaderboard

import (
	"errors"
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/cocstats/internal/domain/model"
)

func user(id string, attacks int64, gold, elixir, dark int64) model.UserRecord {
	return model.UserRecord{
		DeviceID:    id,
		Name:        "user-" + id,
		AttackCount: attacks,
		Loot:        model.LootTotals{Gold: gold, Elixir: elixir, DarkElixir: dark},
	}
}

func ids(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.User.DeviceID)
	}
	return out
}

func TestByAttacks(t *testing.T) {
	Convey("Given users A and B tied on attacks and C behind", t, func() {
		users := []model.UserRecord{
			user("A", 50, 0, 0, 0),
			user("B", 50, 0, 0, 0),
			user("C", 10, 0, 0, 0),
		}

		entries := ByAttacks(users, 3)

		Convey("Then ties keep input order and ranks are 1-based", func() {
			So(ids(entries), ShouldResemble, []string{"A", "B", "C"})
			So(entries[0].Rank, ShouldEqual, 1)
			So(entries[2].Rank, ShouldEqual, 3)
			So(entries[0].Label, ShouldEqual, "🥇")
			So(entries[2].Label, ShouldEqual, "🥉")
		})

		Convey("Then the input slice is not reordered", func() {
			reversed := []model.UserRecord{users[2], users[1], users[0]}
			_ = ByAttacks(reversed, 3)
			So(reversed[0].DeviceID, ShouldEqual, "C")
		})

		Convey("Then reversing the tied pair reverses their rows", func() {
			swapped := ByAttacks([]model.UserRecord{users[1], users[0], users[2]}, 3)
			So(ids(swapped), ShouldResemble, []string{"B", "A", "C"})
		})
	})

	Convey("Given more users than the limit", t, func() {
		users := make([]model.UserRecord, 0, 15)
		for i := 0; i < 15; i++ {
			users = append(users, user(fmt.Sprintf("u%02d", i), int64(i), 0, 0, 0))
		}

		Convey("Then the default limit keeps ten rows", func() {
			entries := ByAttacks(users, 0)
			So(len(entries), ShouldEqual, DefaultLimit)
			So(entries[0].User.DeviceID, ShouldEqual, "u14")
			So(entries[9].Label, ShouldEqual, "#10")
		})

		Convey("Then an explicit limit is honoured", func() {
			So(len(ByAttacks(users, 4)), ShouldEqual, 4)
		})
	})

	Convey("Given no users", t, func() {
		So(ByAttacks(nil, 10), ShouldBeEmpty)
		So(Summarize(nil), ShouldResemble, Summary{Leader: "Unknown", Display: "0"})
	})
}

func TestByLoot(t *testing.T) {
	Convey("Given users with different loot", t, func() {
		users := []model.UserRecord{
			user("small", 99, 10, 10, 10),
			user("rich", 1, 1_000_000, 400_000, 100_000),
			user("tie", 5, 15, 15, 0),
		}

		entries := ByLoot(users, 10)

		Convey("Then total loot orders the board and ties keep input order", func() {
			So(ids(entries), ShouldResemble, []string{"rich", "small", "tie"})
			So(entries[0].Score, ShouldEqual, 1_500_000)
			So(entries[0].Display, ShouldEqual, "1.5M")
		})

		Convey("Then the summary names the leader", func() {
			So(Summarize(entries), ShouldResemble, Summary{Leader: "user-rich", Score: 1_500_000, Display: "1.5M"})
		})
	})

	Convey("Given a leader without a name", t, func() {
		entries := ByLoot([]model.UserRecord{{DeviceID: "x", Loot: model.LootTotals{Gold: 5}}}, 10)
		So(entries[0].Name, ShouldEqual, UnknownUser)
		So(Summarize(entries).Leader, ShouldEqual, "Unknown")
	})
}

func TestRank(t *testing.T) {
	Convey("Given a populated board", t, func() {
		users := []model.UserRecord{
			user("a", 1, 0, 0, 0),
			user("b", 30, 0, 0, 0),
			user("c", 20, 9, 9, 9),
		}

		Convey("Then rank reflects the full ordering", func() {
			e, err := Rank(users, "a", KeyAttacks)
			So(err, ShouldBeNil)
			So(e.Rank, ShouldEqual, 3)

			e, err = Rank(users, "c", KeyLoot)
			So(err, ShouldBeNil)
			So(e.Rank, ShouldEqual, 1)
			So(e.Score, ShouldEqual, 27)
		})

		Convey("Then an unknown device is reported", func() {
			_, err := Rank(users, "zzz", KeyAttacks)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given ranking keys from query strings", t, func() {
		So(ParseKey("loot"), ShouldEqual, KeyLoot)
		So(ParseKey(" LOOT "), ShouldEqual, KeyLoot)
		So(ParseKey("attacks"), ShouldEqual, KeyAttacks)
		So(ParseKey("whatever"), ShouldEqual, KeyAttacks)
	})
}
