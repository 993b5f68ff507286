package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/oklog/run"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/handlers"
	"git.home.luguber.info/inful/assetbuilder/internal/history"
	"git.home.luguber.info/inful/assetbuilder/internal/livereload"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/manifest"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	"git.home.luguber.info/inful/assetbuilder/internal/pipeline"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
	"git.home.luguber.info/inful/assetbuilder/internal/watch"
)

// RunCmd implements the 'run' command.
type RunCmd struct {
	Tasks []string `arg:"" optional:"" name:"task" help:"Task specs (task or task:target) or aliases to run in order"`
}

func (r *RunCmd) Run(_ *Global, root *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunPipeline(ctx, root, r.Tasks)
}

// RunPipeline loads the descriptor, wires the process actors and runs specs
// until they finish or ctx is canceled.
func RunPipeline(ctx context.Context, root *CLI, specs []string) error {
	cfg, err := loadDescriptor(root.Config)
	if err != nil {
		return err
	}
	serve, err := servesEndpoints(cfg, root, specs)
	if err != nil {
		return err
	}
	// Descriptor paths are relative to the descriptor's directory.
	if dir := filepath.Dir(root.Config); dir != "." {
		if err := os.Chdir(dir); err != nil {
			return ferrors.FileSystemError("failed to enter descriptor directory").
				WithContext("path", dir).WithCause(err).Build()
		}
	}

	a, err := newApp(cfg, root, serve)
	if err != nil {
		return err
	}
	defer a.close()
	return a.execute(ctx, specs)
}

// servesEndpoints reports whether this process owns the live-reload, NATS and
// metrics endpoints. Only a watch run started from the command line does;
// one-shot runs and children spawned by a watcher never bind them.
func servesEndpoints(cfg *config.Config, root *CLI, specs []string) (bool, error) {
	if root.Spawned {
		return false, nil
	}
	steps, err := pipeline.Expand(cfg, specs)
	if err != nil {
		return false, err
	}
	return slices.ContainsFunc(steps, func(s task.Spec) bool { return s.Task == config.WatchTask }), nil
}

// app holds the wired components of one process.
type app struct {
	cfg        *config.Config
	runner     *pipeline.Runner
	metricsReg *prom.Registry
	history    *history.Store
	liveReload *livereload.Server
	nats       *livereload.NATSNotifier
}

func newApp(cfg *config.Config, root *CLI, serve bool) (*app, error) {
	a := &app{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	registry := task.NewRegistry()
	if err := handlers.Register(registry, cfg.Load, handlers.ExecRunner{}); err != nil {
		return nil, err
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if serve && cfg.Metrics.Enabled {
		a.metricsReg = metrics.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(a.metricsReg)
	}

	m, err := manifest.Load(cfg.Manifest)
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithRecorder(recorder),
		pipeline.WithManifest(m),
		pipeline.WithTimingOutput(os.Stderr),
	}
	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		a.history = store
		opts = append(opts, pipeline.WithHistory(store))
	}
	a.runner = pipeline.NewRunner(cfg, registry, opts...)

	if handlers.WantsWatch(cfg.Load) {
		if err := a.registerWatch(registry, recorder, root, serve); err != nil {
			return nil, err
		}
	}
	ok = true
	return a, nil
}

func (a *app) registerWatch(registry *task.Registry, recorder metrics.Recorder, root *CLI, serve bool) error {
	watchOpts := []watch.Option{watch.WithRecorder(recorder)}

	var notifiers []livereload.Notifier
	if port, ok := a.cfg.LiveReloadListener(); ok && serve {
		a.liveReload = livereload.NewServer(a.cfg.LiveReload.Host, port)
		notifiers = append(notifiers, a.liveReload)
	}
	if url := a.cfg.Notify.NATSURL; url != "" && serve {
		n, err := livereload.NewNATSNotifier(url, a.cfg.Notify.Subject)
		if err != nil {
			slog.Warn("NATS reload notifier unavailable", logfields.Error(err))
		} else {
			a.nats = n
			notifiers = append(notifiers, n)
		}
	}
	if len(notifiers) > 0 {
		watchOpts = append(watchOpts, watch.WithNotifier(livereload.NewMultiNotifier(notifiers...)))
	}

	spawnArgs := []string{"--spawned", "--log-format", root.LogFormat}
	if root.Verbose {
		spawnArgs = append(spawnArgs, "--verbose")
	}
	if spawner, err := watch.ProcessSpawner(filepath.Base(root.Config), spawnArgs...); err == nil {
		watchOpts = append(watchOpts, watch.WithSpawner(spawner))
	} else {
		slog.Warn("spawn=true targets will run in-process", logfields.Error(err))
	}

	return registry.Register(config.WatchTask, watch.New(a.runner, watchOpts...))
}

// execute runs the pipeline alongside the live-reload and metrics servers.
// Whichever actor finishes first interrupts the rest.
func (a *app) execute(ctx context.Context, specs []string) error {
	var g run.Group

	{
		sigCtx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			<-sigCtx.Done()
			if ctx.Err() != nil {
				slog.Info("Shutdown requested")
			}
			return nil
		}, func(error) {
			cancel()
		})
	}

	{
		runCtx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			_, err := a.runner.Run(runCtx, specs...)
			if err != nil && ctx.Err() != nil && ferrors.HasCategory(err, ferrors.CategoryCanceled) {
				return nil
			}
			return err
		}, func(error) {
			cancel()
		})
	}

	if a.liveReload != nil {
		lrCtx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			return a.liveReload.Run(lrCtx)
		}, func(error) {
			cancel()
		})
	}

	if a.metricsReg != nil {
		srv := &http.Server{
			Addr:              a.cfg.Metrics.Addr,
			Handler:           metrics.HTTPHandler(a.metricsReg),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Add(func() error {
			slog.Info("Metrics endpoint listening", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return ferrors.NetworkError("metrics server failed").
					WithContext("addr", srv.Addr).WithCause(err).Build()
			}
			return nil
		}, func(error) {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		})
	}

	return g.Run()
}

func (a *app) close() {
	if a.nats != nil {
		a.nats.Close()
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			slog.Warn("Failed to close history store", logfields.Error(err))
		}
	}
}
