package handlers

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// Command is one external compiler invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// CommandRunner executes a command and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes cmd. A missing binary is a not-found error; a non-zero exit is a
// task error carrying the compiler's diagnostics.
func (ExecRunner) Run(ctx context.Context, c Command) ([]byte, error) {
	path, err := exec.LookPath(c.Name)
	if err != nil {
		return nil, ferrors.NotFoundError("compiler binary not found").
			WithContext("binary", c.Name).WithCause(err).Build()
	}

	// #nosec G204 -- binary and arguments come from the pipeline descriptor
	cmd := exec.CommandContext(ctx, path, c.Args...)
	cmd.Dir = c.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Running compiler", slog.String("command", c.String()))
	err = cmd.Run()
	if errStr := strings.TrimSpace(stderr.String()); errStr != "" && err == nil {
		slog.Warn("Compiler stderr", slog.String("command", c.Name), slog.String("output", errStr))
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ferrors.CanceledError("compiler interrupted").
				WithContext("command", c.Name).WithCause(ctx.Err()).Build()
		}
		output := strings.TrimSpace(stderr.String())
		if output == "" {
			output = strings.TrimSpace(stdout.String())
		}
		var exitErr *exec.ExitError
		b := ferrors.TaskError("compiler failed").WithContext("command", c.String()).WithCause(err)
		if errors.As(err, &exitErr) {
			b = b.WithContext("exit_code", exitErr.ExitCode())
		}
		if output != "" {
			b = b.WithContext("output", output)
		}
		return nil, b.Build()
	}
	return stdout.Bytes(), nil
}
