package watch

import (
	"context"
	"os"
	"os/exec"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// ProcessSpawner returns a SpawnFunc that re-executes the current binary as
// `<self> --config <configPath> run <specs...>`.
func ProcessSpawner(configPath string, extraArgs ...string) (SpawnFunc, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, ferrors.RuntimeError("cannot resolve own executable").WithCause(err).Build()
	}
	return commandSpawner(self, configPath, extraArgs...), nil
}

func commandSpawner(bin, configPath string, extraArgs ...string) SpawnFunc {
	return func(ctx context.Context, specs []string) error {
		args := append([]string{"--config", configPath}, extraArgs...)
		args = append(args, "run")
		args = append(args, specs...)
		// #nosec G204 -- re-executes this binary with descriptor task specs
		cmd := exec.CommandContext(ctx, bin, args...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return ferrors.TaskError("spawned task run failed").
				WithContext("specs", specs).WithCause(err).Build()
		}
		return nil
	}
}
