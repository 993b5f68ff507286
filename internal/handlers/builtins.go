package handlers

import (
	"slices"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// Builtins returns the compiler capabilities keyed by name. The watch
// capability needs the orchestrator and is registered by the caller.
func Builtins(r CommandRunner) map[string]task.Handler {
	if r == nil {
		r = ExecRunner{}
	}
	return map[string]task.Handler{
		"sass":    NewSass(r),
		"postcss": NewPostCSS(r),
		"coffee":  NewCoffee(r),
		"uglify":  NewUglify(),
	}
}

// Register adds the capabilities selected by load (all built-ins when load is
// empty) to reg. Names that are neither built-ins nor watch are config errors.
func Register(reg *task.Registry, load []string, r CommandRunner) error {
	builtins := Builtins(r)
	names := load
	if len(names) == 0 {
		for name := range builtins {
			names = append(names, name)
		}
		slices.Sort(names)
	}
	for _, name := range names {
		if name == config.WatchTask {
			continue
		}
		h, ok := builtins[name]
		if !ok {
			return ferrors.ConfigError("unknown capability in load list").WithContext("task", name).Build()
		}
		if err := reg.Register(name, h); err != nil {
			return err
		}
	}
	return nil
}

// WantsWatch reports whether the load list enables the watch capability.
func WantsWatch(load []string) bool {
	return len(load) == 0 || slices.Contains(load, config.WatchTask)
}
