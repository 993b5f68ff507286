package handlers

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

var sassStyles = map[string]bool{"expanded": true, "compressed": true}

// Sass compiles one entry stylesheet per file mapping with the sass binary.
// Options: style (expanded|compressed), load_path (comma list), bin.
type Sass struct {
	runner CommandRunner
}

// NewSass returns the sass capability.
func NewSass(r CommandRunner) *Sass { return &Sass{runner: r} }

func (s *Sass) Description() string { return "Compile Sass stylesheets to CSS" }

func (s *Sass) Run(ctx context.Context, b task.Binding) error {
	style := b.Options.String("style", "expanded")
	if !sassStyles[style] {
		return ferrors.ValidationError("unsupported sass style").
			WithContext("target", b.Name()).WithContext("style", style).Build()
	}
	bin := b.Options.String("bin", "sass")

	for _, m := range b.Files {
		if m.InPlace() {
			return ferrors.ValidationError("sass mapping requires a destination").
				WithContext("target", b.Name()).Build()
		}
		srcs, err := task.ExpandSources(m.Src)
		if err != nil {
			return err
		}
		entries := nonPartials(srcs)
		if len(entries) != 1 {
			return ferrors.ValidationError("sass mapping must resolve to exactly one entry stylesheet").
				WithContext("target", b.Name()).WithContext("dest", m.Dest).WithContext("sources", entries).Build()
		}
		if err := task.EnsureDestDir(m.Dest); err != nil {
			return err
		}

		args := []string{"--style=" + style, "--no-source-map"}
		for _, lp := range b.Options.List("load_path") {
			args = append(args, "--load-path="+lp)
		}
		args = append(args, entries[0], m.Dest)
		if _, err := s.runner.Run(ctx, Command{Name: bin, Args: args}); err != nil {
			return wrapCompile(err, "sass compilation failed", entries[0])
		}
		slog.Info("Compiled stylesheet", logfields.Path(entries[0]), logfields.Dest(m.Dest))
	}
	return nil
}

// nonPartials drops Sass partials (files whose name starts with "_").
func nonPartials(srcs []string) []string {
	var out []string
	for _, s := range srcs {
		if !strings.HasPrefix(filepath.Base(s), "_") {
			out = append(out, s)
		}
	}
	return out
}

// wrapCompile keeps runner errors that are not compiler failures as they are.
func wrapCompile(err error, msg, src string) error {
	if !ferrors.HasCategory(err, ferrors.CategoryTask) {
		return err
	}
	return ferrors.TaskError(msg).WithContext("path", src).WithCause(err).Build()
}
