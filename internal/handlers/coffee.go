package handlers

import (
	"context"
	"log/slog"
	"strings"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// Coffee compiles CoffeeScript sources and concatenates the output of each
// mapping, in source order, into its destination. Options: bare (bool), bin.
type Coffee struct {
	runner CommandRunner
}

// NewCoffee returns the coffee capability.
func NewCoffee(r CommandRunner) *Coffee { return &Coffee{runner: r} }

func (c *Coffee) Description() string { return "Compile CoffeeScript to JavaScript" }

func (c *Coffee) Run(ctx context.Context, b task.Binding) error {
	bin := b.Options.String("bin", "coffee")
	args := []string{"--compile", "--print"}
	if b.Options.Bool("bare", false) {
		args = append(args, "--bare")
	}

	for _, m := range b.Files {
		if m.InPlace() {
			return ferrors.ValidationError("coffee mapping requires a destination").
				WithContext("target", b.Name()).Build()
		}
		srcs, err := task.ExpandSources(m.Src)
		if err != nil {
			return err
		}
		parts := make([]string, 0, len(srcs))
		for _, src := range srcs {
			out, err := c.runner.Run(ctx, Command{Name: bin, Args: append(append([]string(nil), args...), src)})
			if err != nil {
				return wrapCompile(err, "coffee compilation failed", src)
			}
			parts = append(parts, string(out))
		}
		if err := task.WriteFile(m.Dest, []byte(strings.Join(parts, "\n"))); err != nil {
			return err
		}
		slog.Info("Compiled scripts", logfields.Dest(m.Dest), slog.Int("sources", len(srcs)))
	}
	return nil
}
