package export

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/cocstats/internal/domain/model"
	"github.com/okian/cocstats/internal/domain/usertable"
)

func exportUsers() []model.UserRecord {
	return []model.UserRecord{
		{
			DeviceID: "dev-1", Name: "Alice", UsedKey: "KEY-1", AttackCount: 12,
			RegisteredTime: "2024-01-01T00:00:00Z", LastOnline: "2024-03-01T00:00:00Z",
			Loot: model.LootTotals{Gold: 100, Elixir: 200, DarkElixir: 3},
		},
		{
			DeviceID: "dev-2", Name: "Bob", UsedKey: "KEY-2", AttackCount: 0,
			RegisteredTime: "2024-02-01T00:00:00Z",
		},
	}
}

func TestCSV(t *testing.T) {
	convey.Convey("Given users to export", t, func() {
		out := string(CSV(exportUsers()))

		convey.Convey("Then the header comes first and rows follow in order", func() {
			convey.So(out, convey.ShouldEqual, strings.Join([]string{
				"name,device_id,used_key,attack_count,gold,elixir,dark_elixir,registered_time,last_online",
				"Alice,dev-1,KEY-1,12,100,200,3,2024-01-01T00:00:00Z,2024-03-01T00:00:00Z",
				"Bob,dev-2,KEY-2,0,0,0,0,2024-02-01T00:00:00Z,Never",
			}, "\n"))
		})
	})

	convey.Convey("Given a name containing a comma", t, func() {
		out := string(CSV([]model.UserRecord{{DeviceID: "d", Name: "Smith, J"}}))

		convey.Convey("Then the value is written verbatim", func() {
			rows := strings.Split(out, "\n")
			convey.So(rows[1], convey.ShouldStartWith, "Smith, J,d,")
			convey.So(strings.Count(rows[1], ","), convey.ShouldEqual, 9)
		})
	})

	convey.Convey("Given no users", t, func() {
		convey.So(string(CSV(nil)), convey.ShouldEqual, strings.Join(Header, ","))
	})
}

func TestJSON(t *testing.T) {
	convey.Convey("Given a filtered and sorted view", t, func() {
		view := usertable.Sort(usertable.Filter(exportUsers(), "key"), usertable.SortRegisteredTime, usertable.Desc, time.UTC)

		out, err := JSON(view)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then reparsing yields the same device ids in the same order", func() {
			var back []model.UserRecord
			convey.So(json.Unmarshal(out, &back), convey.ShouldBeNil)
			convey.So(len(back), convey.ShouldEqual, 2)
			convey.So(back[0].DeviceID, convey.ShouldEqual, view[0].DeviceID)
			convey.So(back[1].DeviceID, convey.ShouldEqual, view[1].DeviceID)
			convey.So(back[0].DeviceID, convey.ShouldEqual, "dev-2")
		})

		convey.Convey("Then the output is indented with two spaces", func() {
			convey.So(string(out), convey.ShouldStartWith, "[\n  {\n    \"device_id\": \"dev-2\"")
		})
	})

	convey.Convey("Given no users", t, func() {
		out, err := JSON(nil)
		convey.So(err, convey.ShouldBeNil)
		convey.So(string(out), convey.ShouldEqual, "[]")
	})
}

func TestFileName(t *testing.T) {
	convey.Convey("Given an export instant", t, func() {
		now := time.Date(2024, 3, 5, 23, 30, 0, 0, time.FixedZone("X", -2*3600))

		convey.So(FileName(FormatCSV, now), convey.ShouldEqual, "user-data-2024-03-06.csv")
		convey.So(FileName(FormatJSON, now), convey.ShouldEqual, "user-data-2024-03-06.json")
		convey.So(ContentType(FormatJSON), convey.ShouldEqual, "application/json")
		convey.So(ContentType(FormatCSV), convey.ShouldStartWith, "text/csv")
	})
}
