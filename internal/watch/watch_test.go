package watch

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/pipeline"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

type fakeExecutor struct {
	mu    sync.Mutex
	calls [][]string
	fail  error
	gate  chan struct{}
}

func (f *fakeExecutor) Run(ctx context.Context, specs ...string) (*pipeline.Report, error) {
	f.mu.Lock()
	f.calls = append(f.calls, specs)
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
		}
	}
	return nil, f.fail
}

func (f *fakeExecutor) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.calls...)
}

type fakeNotifier struct {
	mu      sync.Mutex
	batches [][]string
}

func (f *fakeNotifier) Notify(_ context.Context, changed []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, changed)
	return nil
}

func (f *fakeNotifier) Batches() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.batches...)
}

func touch(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func watchBindings(t *testing.T, extra task.Options) map[string]task.Binding {
	t.Helper()
	bindings, err := config.Default().Bindings(config.WatchTask)
	require.NoError(t, err)
	out := map[string]task.Binding{}
	for _, b := range bindings {
		b.Options = task.Merge(b.Options, task.Options{"debounce": "20ms"})
		b.Options = task.Merge(b.Options, extra)
		out[b.Target] = b
	}
	return out
}

func startWatch(t *testing.T, h *Handler, ready chan string, bindings ...task.Binding) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(t.Context())
	var wg sync.WaitGroup
	for _, b := range bindings {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.Run(ctx, b))
		}()
	}
	for range bindings {
		select {
		case <-ready:
		case <-time.After(5 * time.Second):
			t.Fatal("watch did not become ready")
		}
	}
	t.Cleanup(func() { cancel(); wg.Wait() })
	return cancel
}

func assetTree(t *testing.T) {
	t.Chdir(t.TempDir())
	touch(t, "assets/stylesheets/main.sass", "body\n  color: red\n")
	touch(t, "assets/javascripts/main.coffee", "square = (x) -> x * x\n")
	touch(t, "assets/javascripts/video.coffee", "play = -> true\n")
}

func TestStylesheetChangeRunsOnlyCSSSequence(t *testing.T) {
	assetTree(t)
	ex := &fakeExecutor{}
	notifier := &fakeNotifier{}
	ready := make(chan string, 2)
	h := New(ex, WithNotifier(notifier), OnReady(func(target string) { ready <- target }))
	bindings := watchBindings(t, nil)
	startWatch(t, h, ready, bindings["css"], bindings["js"])

	touch(t, "assets/stylesheets/main.sass", "body\n  color: blue\n")
	require.Eventually(t, func() bool { return len(ex.Calls()) == 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	require.Equal(t, [][]string{{"sass", "postcss:dist"}}, ex.Calls())

	require.Eventually(t, func() bool { return len(notifier.Batches()) == 1 }, 5*time.Second, 10*time.Millisecond)
	abs, err := filepath.Abs("assets/stylesheets/main.sass")
	require.NoError(t, err)
	assert.Contains(t, notifier.Batches()[0], abs)

	touch(t, "assets/javascripts/video.coffee", "play = -> false\n")
	require.Eventually(t, func() bool { return len(ex.Calls()) == 2 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, []string{"coffee", "uglify"}, ex.Calls()[1])
	assert.Len(t, ex.Calls(), 2)
}

func TestIgnoredAndUnmatchedFilesDoNotTrigger(t *testing.T) {
	assetTree(t)
	ex := &fakeExecutor{}
	ready := make(chan string, 1)
	h := New(ex, OnReady(func(target string) { ready <- target }))
	startWatch(t, h, ready, watchBindings(t, nil)["css"])

	touch(t, "assets/stylesheets/.main.sass.swp", "x")
	touch(t, "assets/stylesheets/notes.txt", "x")
	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, ex.Calls())
}

func TestFailedSequenceDoesNotSignalAndWatchContinues(t *testing.T) {
	assetTree(t)
	ex := &fakeExecutor{fail: errors.New("sass: Invalid CSS")}
	notifier := &fakeNotifier{}
	ready := make(chan string, 1)
	h := New(ex, WithNotifier(notifier), OnReady(func(target string) { ready <- target }))
	startWatch(t, h, ready, watchBindings(t, nil)["css"])

	touch(t, "assets/stylesheets/main.sass", "body\n  color:\n")
	require.Eventually(t, func() bool { return len(ex.Calls()) == 1 }, 5*time.Second, 10*time.Millisecond)

	touch(t, "assets/stylesheets/main.sass", "body\n  color: green\n")
	require.Eventually(t, func() bool { return len(ex.Calls()) == 2 }, 5*time.Second, 10*time.Millisecond)
	assert.Empty(t, notifier.Batches())
}

func TestTriggersDuringRunCoalesce(t *testing.T) {
	ex := &fakeExecutor{gate: make(chan struct{})}
	notifier := &fakeNotifier{}
	h := New(ex, WithNotifier(notifier))
	tg := &target{
		handler:    h,
		name:       "css",
		tasks:      []string{"sass"},
		livereload: true,
		debounce:   5 * time.Millisecond,
		requests:   make(chan struct{}, 1),
		changed:    map[string]struct{}{},
	}
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go tg.worker(ctx)

	tg.trigger("a.sass")
	require.Eventually(t, func() bool { return len(ex.Calls()) == 1 }, time.Second, time.Millisecond)

	tg.trigger("b.sass")
	time.Sleep(20 * time.Millisecond)
	tg.trigger("c.sass")
	time.Sleep(20 * time.Millisecond)
	close(ex.gate)

	require.Eventually(t, func() bool { return len(notifier.Batches()) == 2 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, ex.Calls(), 2)
	assert.Equal(t, [][]string{{"a.sass"}, {"b.sass", "c.sass"}}, notifier.Batches())
}

func TestPollingMode(t *testing.T) {
	assetTree(t)
	ex := &fakeExecutor{}
	ready := make(chan string, 1)
	h := New(ex, OnReady(func(target string) { ready <- target }))
	startWatch(t, h, ready, watchBindings(t, task.Options{"interval": "50ms"})["js"])

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes("assets/javascripts/main.coffee", future, future))
	require.Eventually(t, func() bool { return len(ex.Calls()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"coffee", "uglify"}, ex.Calls()[0])
}

func TestSpawnMode(t *testing.T) {
	assetTree(t)
	ex := &fakeExecutor{}
	var mu sync.Mutex
	var spawned [][]string
	spawner := func(_ context.Context, specs []string) error {
		mu.Lock()
		defer mu.Unlock()
		spawned = append(spawned, specs)
		return nil
	}
	ready := make(chan string, 1)
	h := New(ex, WithSpawner(spawner), OnReady(func(target string) { ready <- target }))
	startWatch(t, h, ready, watchBindings(t, task.Options{"spawn": "true"})["css"])

	touch(t, "assets/stylesheets/main.sass", "a\n  b: c\n")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(spawned) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Empty(t, ex.Calls())
}

func TestMissingWatchDirectory(t *testing.T) {
	t.Chdir(t.TempDir())
	h := New(&fakeExecutor{})
	err := h.Run(t.Context(), watchBindings(t, nil)["css"])
	require.Error(t, err)
}

func TestCommandSpawner(t *testing.T) {
	bin, err := exec.LookPath("true")
	if err != nil {
		t.Skip("true binary not available")
	}
	require.NoError(t, commandSpawner(bin, "assetbuilder.yaml")(t.Context(), []string{"sass"}))

	bin, err = exec.LookPath("false")
	if err != nil {
		t.Skip("false binary not available")
	}
	require.Error(t, commandSpawner(bin, "assetbuilder.yaml")(t.Context(), []string{"sass"}))
}

func TestMatcher(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	m, err := NewMatcher([]string{"./assets/stylesheets/*.sass", "assets/**/*.coffee"})
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(wd, "assets", "stylesheets"), filepath.Join(wd, "assets")}, m.Bases())

	assert.True(t, m.Match("assets/stylesheets/main.sass"))
	assert.True(t, m.Match(filepath.Join(wd, "assets/javascripts/deep/video.coffee")))
	assert.False(t, m.Match("assets/stylesheets/main.css"))
	assert.False(t, m.Match("assets/stylesheets/.#main.sass"))
	assert.False(t, m.Match("assets/stylesheets/main.sass~"))

	_, err = NewMatcher(nil)
	assert.Error(t, err)
}

func TestDiffSnapshots(t *testing.T) {
	t0 := time.Unix(100, 0)
	t1 := time.Unix(200, 0)
	before := map[string]time.Time{"a": t0, "b": t0, "c": t0}
	after := map[string]time.Time{"a": t0, "b": t1, "d": t1}
	assert.Equal(t, []string{"b", "c", "d"}, diffSnapshots(before, after))
}
