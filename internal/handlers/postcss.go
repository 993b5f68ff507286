package handlers

import (
	"context"
	"log/slog"
	"path/filepath"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// PostCSS runs the postcss CLI over every matched stylesheet. Mappings without
// a destination rewrite their sources in place.
// Options: processors (comma list), map (bool), bin.
type PostCSS struct {
	runner CommandRunner
}

// NewPostCSS returns the postcss capability.
func NewPostCSS(r CommandRunner) *PostCSS { return &PostCSS{runner: r} }

func (p *PostCSS) Description() string { return "Post-process CSS (autoprefixer and friends)" }

func (p *PostCSS) Run(ctx context.Context, b task.Binding) error {
	bin := b.Options.String("bin", "postcss")
	processors := b.Options.List("processors")
	sourceMap := b.Options.Bool("map", false)
	if len(b.Files) == 0 {
		return ferrors.ValidationError("postcss target has no files").WithContext("target", b.Name()).Build()
	}

	for _, m := range b.Files {
		files, err := task.ExpandSources(m.Src)
		if err != nil {
			return err
		}
		for _, file := range files {
			args := []string{file}
			for _, proc := range processors {
				args = append(args, "--use", proc)
			}
			out := file
			if m.InPlace() {
				args = append(args, "-r")
			} else {
				out = postcssDest(m.Dest, file, len(files))
				if err := task.EnsureDestDir(out); err != nil {
					return err
				}
				args = append(args, "-o", out)
			}
			if sourceMap {
				args = append(args, "--map")
			} else {
				args = append(args, "--no-map")
			}
			if _, err := p.runner.Run(ctx, Command{Name: bin, Args: args}); err != nil {
				return wrapCompile(err, "postcss processing failed", file)
			}
			slog.Info("Post-processed stylesheet", logfields.Path(file), logfields.Dest(out))
		}
	}
	return nil
}

// postcssDest treats dest as a directory when a mapping matched several files.
func postcssDest(dest, file string, matched int) string {
	if matched == 1 {
		return dest
	}
	return filepath.Join(dest, filepath.Base(file))
}
