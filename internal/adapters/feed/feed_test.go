package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/cocstats/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const waitFor = 2 * time.Second

// next returns the next event or fails after waitFor.
func next(sub *Subscription) (Event, bool) {
	select {
	case ev, ok := <-sub.Events():
		return ev, ok
	case <-time.After(waitFor):
		return Event{}, false
	}
}

func TestMemory(t *testing.T) {
	Convey("Given an in-memory broker", t, func() {
		m := NewMemory()
		ctx := context.Background()

		Convey("When subscribing to an empty path", func() {
			_, err := m.Subscribe(ctx, "/")
			So(errors.Is(err, ErrEmptyPath), ShouldBeTrue)
		})

		Convey("When a value is published", func() {
			sub, err := m.Subscribe(ctx, "users")
			So(err, ShouldBeNil)
			So(sub.ID(), ShouldNotBeEmpty)
			So(sub.Path(), ShouldEqual, "users")
			So(m.Publish("/users/", []byte(`{"a":1}`)), ShouldEqual, 1)

			ev, ok := next(sub)
			So(ok, ShouldBeTrue)
			So(ev.Path, ShouldEqual, "users")
			So(string(ev.Value), ShouldEqual, `{"a":1}`)
			So(ev.IsError(), ShouldBeFalse)

			Convey("Then a late subscriber receives the last value", func() {
				late, err := m.Subscribe(ctx, "users")
				So(err, ShouldBeNil)
				ev, ok := next(late)
				So(ok, ShouldBeTrue)
				So(string(ev.Value), ShouldEqual, `{"a":1}`)
			})
		})

		Convey("When values outrun the consumer", func() {
			sub, _ := m.Subscribe(ctx, "news")
			for i := 0; i < 10; i++ {
				m.Publish("news", []byte(fmt.Sprintf("%d", i)))
			}

			Convey("Then the newest value is the last delivered", func() {
				var last string
				for sub.q.Len() > 0 {
					ev, _ := next(sub)
					last = string(ev.Value)
				}
				So(last, ShouldEqual, "9")
				So(sub.q.Dropped() > 0, ShouldBeTrue)
			})
		})

		Convey("When an error is published", func() {
			sub, _ := m.Subscribe(ctx, "feedbacks")
			So(m.PublishError("feedbacks", errors.New("permission denied")), ShouldEqual, 1)

			ev, ok := next(sub)
			So(ok, ShouldBeTrue)
			So(ev.IsError(), ShouldBeTrue)
			So(errors.Is(ev.Err, ErrFeedUnavailable), ShouldBeTrue)
			So(ev.Err.Error(), ShouldContainSubstring, "permission denied")

			_, ok = next(sub)
			So(ok, ShouldBeFalse)
		})

		Convey("When a subscription is closed", func() {
			sub, _ := m.Subscribe(ctx, "users")
			So(m.Subscribers("users"), ShouldEqual, 1)
			So(sub.Close(), ShouldBeNil)
			So(sub.Close(), ShouldBeNil)

			So(m.Subscribers("users"), ShouldEqual, 0)
			So(m.Publish("users", []byte("1")), ShouldEqual, 0)
			_, ok := <-sub.Events()
			So(ok, ShouldBeFalse)
		})

		Convey("When the subscribe context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			sub, _ := m.Subscribe(cctx, "users")
			cancel()

			_, ok := next(sub)
			So(ok, ShouldBeFalse)
		})

		Convey("When the broker is closed", func() {
			sub, _ := m.Subscribe(ctx, "users")
			So(m.Close(), ShouldBeNil)
			_, ok := next(sub)
			So(ok, ShouldBeFalse)
			_, err := m.Subscribe(ctx, "users")
			So(errors.Is(err, ErrClosed), ShouldBeTrue)
		})
	})
}

func sseServer(t *testing.T, frames func(w http.ResponseWriter, f http.Flusher)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"u1":{"name":"patched"}}`))
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fl, _ := w.(http.Flusher)
		frames(w, fl)
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFirebase(t *testing.T) {
	Convey("Given a streaming database", t, func() {
		srv := sseServer(t, func(w http.ResponseWriter, f http.Flusher) {
			fmt.Fprint(w, "event: keep-alive\ndata: null\n\n")
			fmt.Fprint(w, "event: put\ndata: {\"path\":\"/\",\"data\":{\"u1\":{\"name\":\"first\"}}}\n\n")
			f.Flush()
			fmt.Fprint(w, "event: patch\ndata: {\"path\":\"/u1\",\"data\":{\"name\":\"patched\"}}\n\n")
			f.Flush()
		})
		fb := NewFirebase(srv.URL + "/")
		sub, err := fb.Subscribe(context.Background(), "users")
		So(err, ShouldBeNil)
		defer sub.Close()

		Convey("Then the root put is delivered as the whole value", func() {
			ev, ok := next(sub)
			So(ok, ShouldBeTrue)
			So(string(ev.Value), ShouldEqual, `{"u1":{"name":"first"}}`)

			Convey("And a patch triggers a full refetch", func() {
				ev, ok := next(sub)
				So(ok, ShouldBeTrue)
				So(string(ev.Value), ShouldEqual, `{"u1":{"name":"patched"}}`)
			})
		})
	})

	Convey("Given a stream the server cancels", t, func() {
		srv := sseServer(t, func(w http.ResponseWriter, f http.Flusher) {
			fmt.Fprint(w, "event: cancel\ndata: \"Permission denied\"\n\n")
			f.Flush()
		})
		sub, _ := NewFirebase(srv.URL).Subscribe(context.Background(), "news")
		defer sub.Close()

		Convey("Then an error event ends the subscription", func() {
			ev, ok := next(sub)
			So(ok, ShouldBeTrue)
			So(errors.Is(ev.Err, ErrFeedUnavailable), ShouldBeTrue)
			So(ev.Err.Error(), ShouldContainSubstring, "Permission denied")
			_, ok = next(sub)
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a database that rejects the request", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Permission denied"}`))
		}))
		defer srv.Close()
		sub, _ := NewFirebase(srv.URL).Subscribe(context.Background(), "global_loot")
		defer sub.Close()

		ev, ok := next(sub)
		So(ok, ShouldBeTrue)
		So(ev.Err.Error(), ShouldContainSubstring, "status 401: Permission denied")
	})

	Convey("Given an auth token", t, func() {
		fb := NewFirebase("https://db.example.com/", WithAuthToken("s3cr&t"))
		So(fb.URL("/users/"), ShouldEqual, "https://db.example.com/users.json?auth=s3cr%26t")
	})
}

func TestReadFrames(t *testing.T) {
	Convey("Given a multi-line event stream", t, func() {
		in := ": comment\nevent: put\ndata: {\"a\":\ndata: 1}\n\nevent: keep-alive\ndata: null\n\n"
		var got []string
		err := readFrames(strings.NewReader(in), func(name, data string) error {
			got = append(got, name+"|"+data)
			return nil
		})
		So(err, ShouldBeNil)
		So(got, ShouldResemble, []string{"put|{\"a\":\n1}", "keep-alive|null"})
	})
}

func TestFile(t *testing.T) {
	Convey("Given a fixture file", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "fixtures.json")
		So(os.WriteFile(path, []byte(`{"news":{"message":"hi"}}`), 0o600), ShouldBeNil)

		f := NewFile(path)
		sub, err := f.Subscribe(context.Background(), "news")
		So(err, ShouldBeNil)
		defer sub.Close()

		Convey("Then the current value is delivered on attach", func() {
			ev, ok := next(sub)
			So(ok, ShouldBeTrue)
			So(string(ev.Value), ShouldEqual, `{"message":"hi"}`)

			Convey("And a rewrite delivers the new value", func() {
				So(os.WriteFile(path, []byte(`{"news":{"message":"bye"}}`), 0o600), ShouldBeNil)
				var last string
				deadline := time.After(waitFor)
				for last != `{"message":"bye"}` {
					select {
					case ev, ok := <-sub.Events():
						if !ok {
							last = "closed"
							break
						}
						if !ev.IsError() {
							last = string(ev.Value)
						}
					case <-deadline:
						last = "timeout"
					}
					if last == "closed" || last == "timeout" {
						break
					}
				}
				So(last, ShouldEqual, `{"message":"bye"}`)
			})
		})

		Convey("Then a missing collection reads as null", func() {
			other, err := f.Subscribe(context.Background(), "users")
			So(err, ShouldBeNil)
			defer other.Close()
			ev, ok := next(other)
			So(ok, ShouldBeTrue)
			So(string(ev.Value), ShouldEqual, "null")
		})
	})

	Convey("Given a missing fixture file", t, func() {
		sub, err := NewFile(filepath.Join(t.TempDir(), "nope.json")).Subscribe(context.Background(), "news")
		So(err, ShouldBeNil)
		ev, ok := next(sub)
		So(ok, ShouldBeTrue)
		So(errors.Is(ev.Err, ErrFeedUnavailable), ShouldBeTrue)
	})
}
