package handlers

import (
	"context"
	"os"
	"sync"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// fakeRunner records invocations. Respond decides the outcome per command.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []Command
	respond func(Command) ([]byte, error)
}

func (f *fakeRunner) Run(_ context.Context, c Command) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	if f.respond == nil {
		return nil, nil
	}
	return f.respond(c)
}

func (f *fakeRunner) Calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.calls...)
}

func compileFailure(output string) error {
	return ferrors.TaskError("compiler failed").WithContext("output", output).Build()
}

// writeLastArg emulates compilers that write to their final argument.
func writeLastArg(content string) func(Command) ([]byte, error) {
	return func(c Command) ([]byte, error) {
		return nil, os.WriteFile(c.Args[len(c.Args)-1], []byte(content), 0o644)
	}
}
