package commands

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

// Global carries process-wide dependencies into subcommands.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Pipeline descriptor path (.yaml or .hcl)" default:"assetbuilder.yaml" type:"path"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log output format (text|json)" enum:"text,json" default:"text"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`
	Spawned   bool             `name:"spawned" hidden:"" help:"Run as a child of a watch process"`

	Run     RunCmd     `cmd:"" default:"withargs" help:"Run tasks or aliases (default: the default alias)"`
	Tasks   TasksCmd   `cmd:"" help:"List loaded capabilities, their targets and aliases"`
	Init    InitCmd    `cmd:"" help:"Write the built-in pipeline descriptor"`
	History HistoryCmd `cmd:"" help:"Show recorded task executions"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	slog.SetDefault(NewLogger(os.Stderr, c.LogFormat, c.Verbose))
	return nil
}

// NewLogger builds the process logger: text or JSON on w, debug when verbose.
func NewLogger(w io.Writer, format string, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// loadDescriptor loads the descriptor at path. When --config is left at its
// default and that file is absent the built-in pipeline is used instead; an
// explicit path that does not exist stays a config error.
func loadDescriptor(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if isDefaultDescriptor(path) {
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			slog.Info("No descriptor found; using the built-in pipeline", logfields.Path(path))
			return config.Default(), nil
		}
	}
	return nil, err
}

// isDefaultDescriptor reports whether path names the default descriptor in
// the working directory.
func isDefaultDescriptor(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	def, err := filepath.Abs(config.DefaultConfigFile)
	return err == nil && abs == def
}
