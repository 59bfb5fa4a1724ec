package fixtures

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/tidwall/gjson"

	"github.com/okian/cocstats/internal/domain/leaderboard"
	"github.com/okian/cocstats/internal/domain/model"
	"github.com/okian/cocstats/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var genTime = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

// boardServer answers leaderboard requests from the given fixture, optionally
// reversing the order to simulate a disagreeing service.
func boardServer(fixture []byte, reverse bool) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		entries := Expected(fixture, leaderboard.ParseKey(r.URL.Query().Get("by")), limit)
		if reverse {
			for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"entries": entries})
	}))
}

func TestGenerator(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		out, err := NewGenerator(42, genTime).Generate(25, 7)
		So(err, ShouldBeNil)

		Convey("Then the same seed yields the same document", func() {
			again, err := NewGenerator(42, genTime).Generate(25, 7)
			So(err, ShouldBeNil)
			So(string(again), ShouldEqual, string(out))
		})

		Convey("Then every collection decodes", func() {
			users, _ := model.DecodeUsers([]byte(gjson.GetBytes(out, model.CollectionUsers).Raw))
			So(len(users), ShouldEqual, 25)

			entries, _ := model.DecodeFeedback([]byte(gjson.GetBytes(out, model.CollectionFeedback).Raw))
			So(len(entries), ShouldEqual, 7)

			news := model.DecodeNews([]byte(gjson.GetBytes(out, model.CollectionNews).Raw))
			So(news.Present, ShouldBeTrue)

			loot, _ := model.DecodeLoot([]byte(gjson.GetBytes(out, model.CollectionGlobalLoot).Raw))
			var gold int64
			for _, u := range users {
				gold += u.Loot.Gold
			}
			So(loot.Gold, ShouldEqual, gold)
		})
	})

	Convey("Given a zero seed", t, func() {
		g := NewGenerator(0, genTime)
		So(g.Seed(), ShouldNotEqual, uint64(0))
	})
}

func TestCompare(t *testing.T) {
	Convey("Given a local ranking", t, func() {
		want := []leaderboard.Entry{{Rank: 1, Score: 10, User: model.UserRecord{DeviceID: "a"}}}

		Convey("Then a matching board passes", func() {
			got := []Entry{{Rank: 1, Score: 10}}
			got[0].User.DeviceID = "a"
			So(Compare(want, got), ShouldBeNil)
		})

		Convey("Then a different score fails", func() {
			got := []Entry{{Rank: 1, Score: 9}}
			got[0].User.DeviceID = "a"
			So(errors.Is(Compare(want, got), ErrMismatch), ShouldBeTrue)
		})

		Convey("Then a short board fails", func() {
			So(errors.Is(Compare(want, nil), ErrMismatch), ShouldBeTrue)
		})
	})
}

func TestVerify(t *testing.T) {
	fixture, err := NewGenerator(7, genTime).Generate(40, 3)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	Convey("Given a service ranking the fixture the same way", t, func() {
		srv := boardServer(fixture, false)
		defer srv.Close()

		cfg := &Config{BaseURL: srv.URL, Top: 10, Timeout: time.Second}
		So(Verify(context.Background(), cfg, fixture), ShouldBeNil)
	})

	Convey("Given a service that disagrees", t, func() {
		srv := boardServer(fixture, true)
		defer srv.Close()

		cfg := &Config{BaseURL: srv.URL, Top: 10, Timeout: time.Second}
		So(errors.Is(Verify(context.Background(), cfg, fixture), ErrMismatch), ShouldBeTrue)
	})

	Convey("Given a service that fails", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		cfg := &Config{BaseURL: srv.URL, Top: 10, Timeout: time.Second}
		err := Verify(context.Background(), cfg, fixture)
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "status 500")
	})
}

func TestRun(t *testing.T) {
	Convey("Given an output path without verification", t, func() {
		path := filepath.Join(t.TempDir(), "nested", "fixtures.json")
		cfg := &Config{OutputFile: path, Users: 5, Feedback: 2, Seed: 3}

		So(Run(context.Background(), cfg), ShouldBeNil)

		Convey("Then a valid fixture is written in place", func() {
			raw, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(gjson.ValidBytes(raw), ShouldBeTrue)
			So(len(gjson.GetBytes(raw, model.CollectionUsers).Map()), ShouldEqual, 5)

			_, err = os.Stat(path + ".tmp")
			So(os.IsNotExist(err), ShouldBeTrue)
		})
	})

	Convey("Given a service that never agrees", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"entries":[]}`))
		}))
		defer srv.Close()

		cfg := &Config{
			OutputFile: filepath.Join(t.TempDir(), "fixtures.json"),
			Users:      5, Seed: 3, BaseURL: srv.URL, Top: 3,
			Timeout: time.Second, Wait: 200 * time.Millisecond,
		}
		err := Run(context.Background(), cfg)
		So(errors.Is(err, ErrMismatch), ShouldBeTrue)
	})
}
