package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/tidwall/gjson"

	"github.com/okian/cocstats/pkg/logger"
)

// File serves collections from a JSON fixture whose top-level keys are the
// collection paths. Every write to the file delivers a fresh value.
type File struct {
	path     string
	settings settings
}

// NewFile creates a feed over the fixture at path.
func NewFile(path string, opts ...Option) *File {
	return &File{path: path, settings: newSettings("feed-file", opts)}
}

// Subscribe implements Subscriber. The current value is delivered
// immediately; the directory is watched so editor rename-saves are seen.
func (f *File) Subscribe(ctx context.Context, path string) (*Subscription, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, ErrEmptyPath
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFeedUnavailable, path, err)
	}
	if err := w.Add(filepath.Dir(f.path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrFeedUnavailable, path, err)
	}

	sub := newSubscription(ctx, path, &f.settings, nil)
	go f.watch(sub, w)
	return sub, nil
}

func (f *File) watch(sub *Subscription, w *fsnotify.Watcher) {
	ctx := sub.ctx
	log := f.settings.logger.With(logger.String("path", sub.path), logger.String("file", f.path))
	defer w.Close()
	defer sub.end()

	if !f.load(sub) {
		return
	}

	target := filepath.Clean(f.path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			log.Debug(ctx, "fixture changed", logger.String("op", ev.Op.String()))
			if !f.load(sub) {
				return
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			sub.fail(err)
			return
		}
	}
}

// load delivers the current value, or an error when the file cannot be
// read. An empty file is a truncate in progress and is skipped. Returns
// false once an error has been delivered.
func (f *File) load(sub *Subscription) bool {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		sub.fail(err)
		return false
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return true
	}
	if !gjson.ValidBytes(raw) {
		sub.fail(errors.New("fixture is not valid JSON"))
		return false
	}
	sub.deliver([]byte(gjson.GetBytes(raw, sub.path).Raw))
	return true
}
