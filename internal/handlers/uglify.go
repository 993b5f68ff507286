package handlers

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/js"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

const jsMediaType = "application/javascript"

// Uglify minifies JavaScript in-process. Sources of a mapping are joined with
// ";\n" before minification. Options: banner, mangle (bool, default true).
type Uglify struct{}

// NewUglify returns the uglify capability.
func NewUglify() *Uglify { return &Uglify{} }

func (u *Uglify) Description() string { return "Minify JavaScript" }

func (u *Uglify) Run(ctx context.Context, b task.Binding) error {
	m := minify.New()
	m.Add(jsMediaType, &js.Minifier{KeepVarNames: !b.Options.Bool("mangle", true)})
	banner := b.Options.String("banner", "")

	for _, fm := range b.Files {
		if fm.InPlace() {
			return ferrors.ValidationError("uglify mapping requires a destination").
				WithContext("target", b.Name()).Build()
		}
		srcs, err := task.ExpandSources(fm.Src)
		if err != nil {
			return err
		}
		parts := make([]string, 0, len(srcs))
		for _, src := range srcs {
			if err := ctx.Err(); err != nil {
				return ferrors.CanceledError("minification interrupted").WithCause(err).Build()
			}
			data, err := os.ReadFile(src)
			if err != nil {
				return ferrors.FileSystemError("failed to read script").
					WithContext("path", src).WithCause(err).Build()
			}
			parts = append(parts, string(data))
		}
		input := []byte(strings.Join(parts, ";\n"))

		out, err := m.Bytes(jsMediaType, input)
		if err != nil {
			return ferrors.TaskError("minification failed").
				WithContext("dest", fm.Dest).WithCause(err).Build()
		}
		if banner != "" {
			out = append([]byte(banner+"\n"), out...)
		}
		if err := task.WriteFile(fm.Dest, out); err != nil {
			return err
		}
		slog.Info("Minified script",
			logfields.Dest(fm.Dest),
			slog.Int("original_bytes", len(input)),
			slog.Int("minified_bytes", len(out)))
	}
	return nil
}
