package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

// source produces change notifications for matching files until ctx is done.
type source interface {
	Run(ctx context.Context, ready func(), changed func(path string)) error
}

// fsSource uses OS file notifications on the static base of every pattern.
type fsSource struct {
	matcher *Matcher
}

func (s *fsSource) Run(ctx context.Context, ready func(), changed func(string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return ferrors.WatchError("failed to create file watcher").WithCause(err).Build()
	}
	defer func() { _ = watcher.Close() }()

	for _, base := range s.matcher.Bases() {
		if st, err := os.Stat(base); err != nil || !st.IsDir() {
			return ferrors.WatchError("watch directory not found").WithContext("path", base).WithCause(err).Build()
		}
		addDirsRecursive(watcher, base)
	}
	ready()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handleEvent(watcher, ev, changed)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (s *fsSource) handleEvent(watcher *fsnotify.Watcher, ev fsnotify.Event, changed func(string)) {
	if ev.Op == fsnotify.Chmod {
		return
	}
	if ev.Op.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			addDirsRecursive(watcher, ev.Name)
			return
		}
	}
	if !s.matcher.Match(ev.Name) {
		return
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	changed(ev.Name)
}

func addDirsRecursive(w *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.Add(path); err != nil {
				slog.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}

// pollSource rescans the patterns on a fixed interval and reports files whose
// modification time changed, appeared or disappeared.
type pollSource struct {
	matcher  *Matcher
	interval time.Duration
	name     string
}

func (s *pollSource) Run(ctx context.Context, ready func(), changed func(string)) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return ferrors.WatchError("failed to create polling scheduler").WithCause(err).Build()
	}

	last := s.matcher.Snapshot()
	scan := func() {
		current := s.matcher.Snapshot()
		for _, path := range diffSnapshots(last, current) {
			slog.Debug("File change detected", logfields.Path(path), slog.String("op", "poll"))
			changed(path)
		}
		last = current
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(scan),
		gocron.WithName(fmt.Sprintf("watch-%s-poll", s.name)),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return ferrors.WatchError("failed to schedule polling job").WithCause(err).Build()
	}
	scheduler.Start()
	ready()

	<-ctx.Done()
	if err := scheduler.Shutdown(); err != nil {
		slog.Warn("Polling scheduler shutdown failed", logfields.Error(err))
	}
	return nil
}

// diffSnapshots returns changed, added and removed paths in sorted order.
func diffSnapshots(before, after map[string]time.Time) []string {
	var out []string
	for path, mod := range after {
		if prev, ok := before[path]; !ok || !prev.Equal(mod) {
			out = append(out, path)
		}
	}
	for path := range before {
		if _, ok := after[path]; !ok {
			out = append(out, path)
		}
	}
	slices.Sort(out)
	return out
}
