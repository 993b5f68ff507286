package watch

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	"git.home.luguber.info/inful/assetbuilder/internal/pipeline"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// DefaultDebounce is the quiet period after the last change before a target's
// task sequence runs.
const DefaultDebounce = 100 * time.Millisecond

// Executor runs a task sequence in-process.
type Executor interface {
	Run(ctx context.Context, specs ...string) (*pipeline.Report, error)
}

// Notifier signals live-reload listeners with the files that changed.
type Notifier interface {
	Notify(ctx context.Context, changed []string) error
}

// SpawnFunc runs a task sequence in a child process.
type SpawnFunc func(ctx context.Context, specs []string) error

// Handler is the watch capability.
type Handler struct {
	exec     Executor
	notifier Notifier
	spawn    SpawnFunc
	recorder metrics.Recorder
	onReady  func(target string)
}

// Option configures a Handler.
type Option func(*Handler)

// WithNotifier sets the live-reload notifier.
func WithNotifier(n Notifier) Option { return func(h *Handler) { h.notifier = n } }

// WithSpawner sets how spawn=true targets run their tasks.
func WithSpawner(s SpawnFunc) Option { return func(h *Handler) { h.spawn = s } }

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(h *Handler) {
		if r != nil {
			h.recorder = r
		}
	}
}

// OnReady registers a callback invoked once a target's watches are in place.
func OnReady(fn func(target string)) Option { return func(h *Handler) { h.onReady = fn } }

// New creates the watch capability; exec re-runs task sequences.
func New(exec Executor, opts ...Option) *Handler {
	h := &Handler{exec: exec, recorder: metrics.NoopRecorder{}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Description() string { return "Re-run tasks when watched files change" }

// Run watches one target until ctx is canceled. Task failures are logged and
// the watch continues.
func (h *Handler) Run(ctx context.Context, b task.Binding) error {
	var patterns []string
	for _, m := range b.Files {
		patterns = append(patterns, m.Src...)
	}
	matcher, err := NewMatcher(patterns)
	if err != nil {
		return err
	}

	_, livereload := config.LiveReloadPort(b.Options, config.DefaultLiveReloadPort)
	t := &target{
		handler:    h,
		name:       b.Target,
		tasks:      b.Tasks,
		spawn:      b.Options.Bool("spawn", false) && h.spawn != nil,
		livereload: livereload && h.notifier != nil,
		debounce:   b.Options.Duration("debounce", DefaultDebounce),
		requests:   make(chan struct{}, 1),
		changed:    map[string]struct{}{},
	}

	var src source = &fsSource{matcher: matcher}
	if interval := b.Options.Duration("interval", 0); interval > 0 {
		src = &pollSource{matcher: matcher, interval: interval, name: b.Target}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t.worker(ctx)
	}()

	ready := func() {
		slog.Info("Watching for changes",
			logfields.Watch(b.Target),
			slog.Any("patterns", patterns),
			slog.Any("tasks", b.Tasks),
			slog.Bool("spawn", t.spawn),
			slog.Bool("livereload", t.livereload))
		if h.onReady != nil {
			h.onReady(b.Target)
		}
	}
	err = src.Run(ctx, ready, t.trigger)
	cancel()
	t.stopTimer()
	wg.Wait()
	return err
}

// target is the event loop state of one watch binding.
type target struct {
	handler    *Handler
	name       string
	tasks      []string
	spawn      bool
	livereload bool
	debounce   time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	changed  map[string]struct{}
	requests chan struct{}
}

// trigger records a change and (re)arms the debounce timer.
func (t *target) trigger(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.changed[path] = struct{}{}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.debounce, func() {
		select {
		case t.requests <- struct{}{}:
		default:
		}
	})
}

func (t *target) stopTimer() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
}

// drain takes the accumulated changes.
func (t *target) drain() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	paths := slices.Sorted(maps.Keys(t.changed))
	clear(t.changed)
	return paths
}

// worker runs one sequence at a time. Triggers that arrive while a sequence
// runs leave a single pending request, so they coalesce into one follow-up.
func (t *target) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.requests:
			paths := t.drain()
			if len(paths) == 0 {
				continue
			}
			t.runSequence(ctx, paths)
		}
	}
}

func (t *target) runSequence(ctx context.Context, paths []string) {
	h := t.handler
	h.recorder.IncWatchTrigger(t.name)
	log := slog.With(logfields.Watch(t.name))
	log.Info("Change detected; running tasks", slog.Any("files", paths), slog.Any("tasks", t.tasks))

	var err error
	if t.spawn {
		err = h.spawn(ctx, t.tasks)
	} else {
		_, err = h.exec.Run(ctx, t.tasks...)
	}
	if err != nil {
		if ctx.Err() == nil {
			log.Warn("Watch tasks failed; waiting for the next change", logfields.Error(err))
		}
		return
	}

	if !t.livereload {
		return
	}
	if err := h.notifier.Notify(ctx, paths); err != nil {
		log.Warn("Live-reload notification failed", logfields.Error(err))
		return
	}
	h.recorder.IncLiveReloadSignal()
}
