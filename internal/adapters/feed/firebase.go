package feed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/okian/cocstats/pkg/logger"
)

// Server-sent event names used by the database streaming API.
const (
	eventPut         = "put"
	eventPatch       = "patch"
	eventKeepAlive   = "keep-alive"
	eventCancel      = "cancel"
	eventAuthRevoked = "auth_revoked"
)

const maxFrameBytes = 64 << 20

// Firebase streams collections from a Realtime Database REST endpoint.
type Firebase struct {
	baseURL  string
	settings settings
}

// NewFirebase creates a client rooted at baseURL.
func NewFirebase(baseURL string, opts ...Option) *Firebase {
	return &Firebase{
		baseURL:  strings.TrimRight(baseURL, "/"),
		settings: newSettings("feed-firebase", opts),
	}
}

// Subscribe implements Subscriber. The stream runs until the subscription
// is closed or the server ends it, in which case a final error is delivered.
func (f *Firebase) Subscribe(ctx context.Context, path string) (*Subscription, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, ErrEmptyPath
	}
	sub := newSubscription(ctx, path, &f.settings, nil)
	go f.stream(sub)
	return sub, nil
}

// URL returns the REST address of path.
func (f *Firebase) URL(path string) string {
	u := f.baseURL + "/" + strings.Trim(path, "/") + ".json"
	if f.settings.authToken != "" {
		u += "?" + url.Values{"auth": {f.settings.authToken}}.Encode()
	}
	return u
}

func (f *Firebase) stream(sub *Subscription) {
	ctx := sub.ctx
	log := f.settings.logger.With(logger.String("path", sub.path), logger.String("subscription", sub.id))
	defer sub.end()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(sub.path), http.NoBody)
	if err != nil {
		sub.fail(err)
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := f.settings.client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			sub.fail(err)
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		sub.fail(statusError(resp))
		return
	}
	log.Debug(ctx, "stream opened")

	err = readFrames(resp.Body, func(name, data string) error {
		return f.handle(sub, name, data)
	})
	if ctx.Err() != nil {
		return
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	log.Warn(ctx, "stream ended", logger.Error(err))
	sub.fail(err)
}

// handle applies one frame. A returned error ends the stream.
func (f *Firebase) handle(sub *Subscription, name, data string) error {
	switch name {
	case eventPut, eventPatch:
		if !gjson.Valid(data) {
			return fmt.Errorf("malformed %s frame", name)
		}
		frame := gjson.Parse(data)
		if name == eventPut && frame.Get("path").Str == "/" {
			sub.deliver([]byte(frame.Get("data").Raw))
			return nil
		}
		value, err := f.fetch(sub.ctx, sub.path)
		if err != nil {
			return err
		}
		sub.deliver(value)
		return nil
	case eventKeepAlive:
		return nil
	case eventCancel:
		return fmt.Errorf("cancelled by server: %s", strings.Trim(data, "\""))
	case eventAuthRevoked:
		return errors.New("auth revoked")
	default:
		return nil
	}
}

// fetch reads the full current value of path.
func (f *Firebase) fetch(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.settings.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(path), http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.settings.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("malformed value")
	}
	return body, nil
}

// readFrames splits an event stream into (event, data) pairs. Multiple data
// lines of one frame are joined with newlines.
func readFrames(r io.Reader, fn func(name, data string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxFrameBytes)

	var name string
	var data []string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if name != "" || len(data) > 0 {
				if err := fn(name, strings.Join(data, "\n")); err != nil {
					return err
				}
			}
			name, data = "", nil
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	return sc.Err()
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := gjson.GetBytes(body, "error").Str
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
}
