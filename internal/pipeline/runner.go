package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/history"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/manifest"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// HistorySink receives every task target execution.
type HistorySink interface {
	Record(ctx context.Context, rec history.Record) error
}

// Runner executes task specs against a read-only descriptor and registry.
type Runner struct {
	cfg      *config.Config
	registry *task.Registry
	recorder metrics.Recorder
	history  HistorySink
	manifest *manifest.Manifest
	timing   io.Writer
}

// Option configures a Runner.
type Option func(*Runner)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(rn *Runner) {
		if r != nil {
			rn.recorder = r
		}
	}
}

// WithHistory records every target execution in h.
func WithHistory(h HistorySink) Option {
	return func(rn *Runner) { rn.history = h }
}

// WithManifest exposes the package manifest to option templates.
func WithManifest(m *manifest.Manifest) Option {
	return func(rn *Runner) { rn.manifest = m }
}

// WithTimingOutput writes a timing report to w after each run when the
// descriptor enables timing.
func WithTimingOutput(w io.Writer) Option {
	return func(rn *Runner) { rn.timing = w }
}

// NewRunner creates a runner.
func NewRunner(cfg *config.Config, registry *task.Registry, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		registry: registry,
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes specs in order (the default alias when empty). Targets of one
// step run concurrently; the first failure cancels its siblings and halts the
// sequence. The returned report is never nil.
func (r *Runner) Run(ctx context.Context, specs ...string) (*Report, error) {
	runID := uuid.NewString()
	report := newReport(runID, specs)
	logger := slog.With(logfields.RunID(runID))

	err := r.run(ctx, logger, report, specs)
	report.finish(err)

	r.recorder.ObserveRunDuration(report.Duration())
	r.recorder.IncRunOutcome(report.Outcome)
	if r.cfg.Timing && r.timing != nil {
		_ = report.WriteTiming(r.timing)
	}

	if err != nil {
		logger.Error("Run failed", logfields.Result(string(report.Outcome)), logfields.Duration(report.Duration()), logfields.Error(err))
		return report, err
	}
	logger.Info("Run completed", logfields.Result(string(report.Outcome)), logfields.Duration(report.Duration()))
	return report, nil
}

func (r *Runner) run(ctx context.Context, logger *slog.Logger, report *Report, specs []string) error {
	steps, err := Expand(r.cfg, specs)
	if err != nil {
		return err
	}
	for i, spec := range steps {
		select {
		case <-ctx.Done():
			return ferrors.CanceledError("run canceled").
				WithContext("spec", spec.String()).WithCause(ctx.Err()).Build()
		default:
		}
		if err := r.runStep(ctx, logger, report, i, spec); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, logger *slog.Logger, report *Report, order int, spec task.Spec) error {
	h, err := r.registry.Get(spec.Task)
	if err != nil {
		return err
	}
	bindings, err := r.bindings(spec)
	if err != nil {
		return err
	}

	logger.Debug("Running step", logfields.Spec(spec.String()), slog.Int("targets", len(bindings)))
	g, gctx := errgroup.WithContext(ctx)
	for _, b := range bindings {
		g.Go(func() error {
			return r.runTarget(gctx, logger, report, order, spec, h, b)
		})
	}
	return g.Wait()
}

func (r *Runner) bindings(spec task.Spec) ([]task.Binding, error) {
	var bindings []task.Binding
	if spec.AllTargets() {
		all, err := r.cfg.Bindings(spec.Task)
		if err != nil {
			return nil, err
		}
		bindings = all
	} else {
		b, err := r.cfg.Binding(spec.Task, spec.Target)
		if err != nil {
			return nil, err
		}
		bindings = []task.Binding{b}
	}
	if r.manifest == nil {
		return bindings, nil
	}
	for i := range bindings {
		opts, err := r.manifest.ExpandOptions(bindings[i].Options)
		if err != nil {
			return nil, err
		}
		bindings[i].Options = opts
	}
	return bindings, nil
}

func (r *Runner) runTarget(ctx context.Context, logger *slog.Logger, report *Report, order int, spec task.Spec, h task.Handler, b task.Binding) error {
	log := logger.With(logfields.Task(b.Task), logfields.Target(b.Target))
	log.Info("Running task")

	start := time.Now()
	err := h.Run(ctx, b)
	dur := time.Since(start)
	result := outcomeFor(err)

	r.recorder.ObserveTaskDuration(b.Task, b.Target, dur)
	r.recorder.IncTaskResult(b.Task, result)
	report.add(order, StepResult{Spec: spec.String(), Task: b.Task, Target: b.Target, Result: result, Duration: dur, Err: err})
	r.recordHistory(ctx, log, report.RunID, b, result, dur, err)

	if err != nil {
		log.Error("Task failed", logfields.Duration(dur), logfields.Error(err))
		return taskFailed(err, b)
	}
	log.Info("Task completed", logfields.Duration(dur))
	return nil
}

func (r *Runner) recordHistory(ctx context.Context, log *slog.Logger, runID string, b task.Binding, result metrics.ResultLabel, dur time.Duration, err error) {
	if r.history == nil {
		return
	}
	rec := history.Record{
		RunID:    runID,
		Task:     b.Task,
		Target:   b.Target,
		Result:   string(result),
		Duration: dur,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	// The run context may already be canceled; history still records the outcome.
	if herr := r.history.Record(context.WithoutCancel(ctx), rec); herr != nil {
		log.Warn("Failed to record history", logfields.Error(herr))
	}
}

// taskFailed attaches the failing task and target to err.
func taskFailed(err error, b task.Binding) error {
	if ce, ok := ferrors.AsClassified(err); ok {
		return ce.WithContext("task", b.Task).WithContext("target", b.Target)
	}
	return ferrors.TaskError("task failed").
		WithContext("task", b.Task).WithContext("target", b.Target).WithCause(err).Build()
}

func outcomeFor(err error) metrics.ResultLabel {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, context.Canceled), ferrors.HasCategory(err, ferrors.CategoryCanceled):
		return metrics.ResultCanceled
	default:
		return metrics.ResultFailed
	}
}
