package pipeline

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/history"
	"git.home.luguber.info/inful/assetbuilder/internal/manifest"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// journal records the order in which fake handlers ran.
type journal struct {
	mu      sync.Mutex
	entries []string
	options map[string]task.Options
}

func (j *journal) add(b task.Binding) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, b.Name())
	if j.options == nil {
		j.options = map[string]task.Options{}
	}
	j.options[b.Name()] = b.Options
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

func recording(j *journal, fail map[string]error) task.Handler {
	return task.HandlerFunc(func(_ context.Context, b task.Binding) error {
		j.add(b)
		return fail[b.Name()]
	})
}

func testConfig() *config.Config {
	cfg := config.Default()
	// drop watch so default runs to completion
	cfg.Tasks = cfg.Tasks[:4]
	cfg.Aliases[0].Tasks = []string{"sass", "postcss:dist", "coffee", "uglify"}
	return cfg
}

func testRegistry(t *testing.T, handlers map[string]task.Handler) *task.Registry {
	t.Helper()
	reg := task.NewRegistry()
	for name, h := range handlers {
		require.NoError(t, reg.Register(name, h))
	}
	return reg
}

func allRecording(t *testing.T, j *journal, fail map[string]error) *task.Registry {
	return testRegistry(t, map[string]task.Handler{
		"sass":    recording(j, fail),
		"postcss": recording(j, fail),
		"coffee":  recording(j, fail),
		"uglify":  recording(j, fail),
	})
}

func TestRunDefaultRunsStepsInOrder(t *testing.T) {
	j := &journal{}
	runner := NewRunner(testConfig(), allRecording(t, j, nil))

	report, err := runner.Run(t.Context())
	require.NoError(t, err)

	entries := j.list()
	require.Len(t, entries, 5)
	assert.Equal(t, []string{"sass:dist", "postcss:dist", "coffee:compile"}, entries[:3])
	assert.ElementsMatch(t, []string{"uglify:main", "uglify:video"}, entries[3:])

	assert.Equal(t, metrics.ResultSuccess, report.Outcome)
	assert.NotEmpty(t, report.RunID)
	steps := report.Steps()
	require.Len(t, steps, 5)
	assert.Equal(t, "sass:dist", steps[0].Name())
	assert.Equal(t, "postcss:dist", steps[1].Spec)
}

func TestFailingSassHaltsBeforeCoffee(t *testing.T) {
	j := &journal{}
	syntaxErr := ferrors.TaskError("sass compilation failed").WithContext("output", "Invalid CSS after").Build()
	runner := NewRunner(testConfig(), allRecording(t, j, map[string]error{"sass:dist": syntaxErr}))

	report, err := runner.Run(t.Context())
	require.Error(t, err)
	assert.Equal(t, []string{"sass:dist"}, j.list())

	ce, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, ferrors.CategoryTask, ce.Category())
	taskName, _ := ce.Context().GetString("task")
	target, _ := ce.Context().GetString("target")
	assert.Equal(t, "sass", taskName)
	assert.Equal(t, "dist", target)

	assert.Equal(t, metrics.ResultFailed, report.Outcome)
	require.Len(t, report.Failed(), 1)
}

func TestPlainHandlerErrorsBecomeTaskErrors(t *testing.T) {
	j := &journal{}
	runner := NewRunner(testConfig(), allRecording(t, j, map[string]error{"coffee:compile": errors.New("boom")}))

	_, err := runner.Run(t.Context(), "coffee", "uglify")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryTask))
	assert.Equal(t, []string{"coffee:compile"}, j.list())
}

func TestTargetsOfOneStepRunConcurrently(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(2)
	both := make(chan struct{})
	go func() { wg.Wait(); close(both) }()

	barrier := task.HandlerFunc(func(ctx context.Context, _ task.Binding) error {
		wg.Done()
		select {
		case <-both:
			return nil
		case <-time.After(2 * time.Second):
			return errors.New("targets did not run concurrently")
		}
	})
	runner := NewRunner(testConfig(), testRegistry(t, map[string]task.Handler{"uglify": barrier}))

	_, err := runner.Run(t.Context(), "uglify")
	require.NoError(t, err)
}

func TestFailureCancelsSiblingTargets(t *testing.T) {
	handler := task.HandlerFunc(func(ctx context.Context, b task.Binding) error {
		if b.Target == "main" {
			return ferrors.TaskError("minification failed").Build()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
			return nil
		}
	})
	runner := NewRunner(testConfig(), testRegistry(t, map[string]task.Handler{"uglify": handler}))

	start := time.Now()
	report, err := runner.Run(t.Context(), "uglify")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryTask))

	results := map[string]metrics.ResultLabel{}
	for _, s := range report.Steps() {
		results[s.Target] = s.Result
	}
	assert.Equal(t, metrics.ResultFailed, results["main"])
	assert.Equal(t, metrics.ResultCanceled, results["video"])
}

func TestCanceledContextStopsBeforeFirstStep(t *testing.T) {
	j := &journal{}
	runner := NewRunner(testConfig(), allRecording(t, j, nil))
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	report, err := runner.Run(ctx)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryCanceled))
	assert.Equal(t, metrics.ResultCanceled, report.Outcome)
	assert.Empty(t, j.list())
}

func TestUnknownTask(t *testing.T) {
	j := &journal{}
	reg := testRegistry(t, map[string]task.Handler{"sass": recording(j, nil)})
	runner := NewRunner(testConfig(), reg)

	_, err := runner.Run(t.Context(), "sass", "coffee")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
	assert.Contains(t, err.Error(), "task not found")
	assert.Equal(t, []string{"sass:dist"}, j.list())

	_, err = runner.Run(t.Context(), "sass:prod")
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
}

func TestManifestTemplatesInOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Tasks[3].Targets[0].Options = map[string]string{"banner": "/*! {{.Name}} v{{.Version}} */"}
	j := &journal{}
	runner := NewRunner(cfg, allRecording(t, j, nil),
		WithManifest(&manifest.Manifest{Name: "streamsite", Version: "2.0.1"}))

	_, err := runner.Run(t.Context(), "uglify:main")
	require.NoError(t, err)
	assert.Equal(t, "/*! streamsite v2.0.1 */", j.options["uglify:main"]["banner"])
}

type memoryHistory struct {
	mu      sync.Mutex
	records []history.Record
}

func (m *memoryHistory) Record(_ context.Context, rec history.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

type countingRecorder struct {
	metrics.NoopRecorder
	mu       sync.Mutex
	results  map[string]int
	outcomes map[metrics.ResultLabel]int
}

func (c *countingRecorder) IncTaskResult(taskName string, result metrics.ResultLabel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[taskName+"/"+string(result)]++
}

func (c *countingRecorder) IncRunOutcome(outcome metrics.ResultLabel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes[outcome]++
}

func TestHistoryMetricsAndTiming(t *testing.T) {
	cfg := testConfig()
	cfg.Timing = true
	hist := &memoryHistory{}
	rec := &countingRecorder{results: map[string]int{}, outcomes: map[metrics.ResultLabel]int{}}
	var timing bytes.Buffer
	j := &journal{}
	runner := NewRunner(cfg, allRecording(t, j, map[string]error{"uglify:video": errors.New("bad input")}),
		WithHistory(hist), WithRecorder(rec), WithTimingOutput(&timing))

	report, err := runner.Run(t.Context(), "sass", "uglify")
	require.Error(t, err)

	require.Len(t, hist.records, 3)
	for _, r := range hist.records {
		assert.Equal(t, report.RunID, r.RunID)
	}
	assert.Equal(t, 1, rec.results["sass/success"])
	assert.Equal(t, 1, rec.results["uglify/failed"])
	assert.Equal(t, 1, rec.outcomes[metrics.ResultFailed])

	out := timing.String()
	assert.Contains(t, out, "sass:dist")
	assert.Contains(t, out, "uglify:video")
	assert.Contains(t, out, "Total")
}

func TestExpandAliases(t *testing.T) {
	cfg := testConfig()
	cfg.Aliases = append(cfg.Aliases,
		config.Alias{Name: "css", Tasks: []string{"sass", "postcss:dist"}},
		config.Alias{Name: "build", Tasks: []string{"css", "coffee:compile"}})

	specs, err := Expand(cfg, []string{"build", "uglify:main"})
	require.NoError(t, err)
	var names []string
	for _, s := range specs {
		names = append(names, s.String())
	}
	assert.Equal(t, []string{"sass", "postcss:dist", "coffee:compile", "uglify:main"}, names)

	specs, err = Expand(cfg, nil)
	require.NoError(t, err)
	assert.Len(t, specs, 4)

	_, err = Expand(cfg, []string{"sass:"})
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
}
