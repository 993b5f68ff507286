package config

import (
	"fmt"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// Validate checks structural invariants of the descriptor. It does not touch
// the filesystem: missing sources surface when the owning task runs.
func Validate(cfg *Config) error {
	v := &validator{cfg: cfg}
	for _, step := range []func() error{v.tasks, v.aliases, v.watch, v.liveReload, v.load} {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

type validator struct {
	cfg *Config
}

func invalid(msg string, kv ...any) error {
	b := ferrors.ValidationError(msg)
	for i := 0; i+1 < len(kv); i += 2 {
		b = b.WithContext(fmt.Sprint(kv[i]), kv[i+1])
	}
	return b.Build()
}

func (v *validator) tasks() error {
	if len(v.cfg.Tasks) == 0 {
		return invalid("descriptor declares no tasks")
	}
	seen := map[string]bool{}
	for _, tc := range v.cfg.Tasks {
		if tc.Name == "" {
			return invalid("task name is required")
		}
		if seen[tc.Name] {
			return invalid("duplicate task", "task", tc.Name)
		}
		seen[tc.Name] = true
		if len(tc.Targets) == 0 {
			return invalid("task declares no targets", "task", tc.Name)
		}
		targets := map[string]bool{}
		for _, tg := range tc.Targets {
			if tg.Name == "" {
				return invalid("target name is required", "task", tc.Name)
			}
			if targets[tg.Name] {
				return invalid("duplicate target", "task", tc.Name, "target", tg.Name)
			}
			targets[tg.Name] = true
			mappings := tg.Mappings()
			if len(mappings) == 0 {
				return invalid("target declares no source files", "task", tc.Name, "target", tg.Name)
			}
			for _, m := range mappings {
				if len(m.Src) == 0 {
					return invalid("file mapping has no sources", "task", tc.Name, "target", tg.Name, "dest", m.Dest)
				}
			}
			if tc.Name != WatchTask && len(tg.Tasks) > 0 {
				return invalid("only watch targets may list tasks", "task", tc.Name, "target", tg.Name)
			}
		}
	}
	return nil
}

// checkSpec verifies a spec references a declared task/target or alias.
func (v *validator) checkSpec(raw string) (task.Spec, error) {
	spec, err := task.ParseSpec(raw)
	if err != nil {
		return spec, err
	}
	if _, isAlias := v.cfg.Alias(spec.Task); isAlias && spec.AllTargets() {
		return spec, nil
	}
	tc, ok := v.cfg.Task(spec.Task)
	if !ok {
		return spec, invalid("unknown task", "spec", raw)
	}
	if !spec.AllTargets() {
		if _, ok := tc.Target(spec.Target); !ok {
			return spec, invalid("unknown target", "spec", raw)
		}
	}
	return spec, nil
}

func (v *validator) aliases() error {
	seen := map[string]bool{}
	for _, a := range v.cfg.Aliases {
		if a.Name == "" {
			return invalid("alias name is required")
		}
		if seen[a.Name] {
			return invalid("duplicate alias", "alias", a.Name)
		}
		seen[a.Name] = true
		if _, shadows := v.cfg.Task(a.Name); shadows {
			return invalid("alias shadows a task", "alias", a.Name)
		}
		if len(a.Tasks) == 0 {
			return invalid("alias lists no tasks", "alias", a.Name)
		}
		for _, raw := range a.Tasks {
			if _, err := v.checkSpec(raw); err != nil {
				return err
			}
		}
	}
	for _, a := range v.cfg.Aliases {
		if err := v.acyclic(a.Name, nil); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) acyclic(name string, stack []string) error {
	for _, s := range stack {
		if s == name {
			return invalid("alias cycle", "alias", name, "path", append(stack, name))
		}
	}
	a, ok := v.cfg.Alias(name)
	if !ok {
		return nil
	}
	stack = append(stack, name)
	for _, raw := range a.Tasks {
		spec, err := task.ParseSpec(raw)
		if err != nil {
			return err
		}
		if err := v.acyclic(spec.Task, stack); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) watch() error {
	tc, ok := v.cfg.Task(WatchTask)
	if !ok {
		return nil
	}
	for _, tg := range tc.Targets {
		if len(tg.Tasks) == 0 {
			return invalid("watch target lists no tasks", "target", tg.Name)
		}
		for _, raw := range tg.Tasks {
			spec, err := v.checkSpec(raw)
			if err != nil {
				return err
			}
			if v.reachesWatch(spec, nil) {
				return invalid("watch target re-runs watch", "target", tg.Name, "spec", raw)
			}
		}
	}
	return nil
}

func (v *validator) reachesWatch(spec task.Spec, seen []string) bool {
	if spec.Task == WatchTask {
		return true
	}
	a, ok := v.cfg.Alias(spec.Task)
	if !ok {
		return false
	}
	for _, s := range seen {
		if s == a.Name {
			return false
		}
	}
	for _, raw := range a.Tasks {
		inner, err := task.ParseSpec(raw)
		if err == nil && v.reachesWatch(inner, append(seen, a.Name)) {
			return true
		}
	}
	return false
}

func (v *validator) liveReload() error {
	bindings, err := v.cfg.Bindings(WatchTask)
	if err != nil {
		return nil
	}
	port := 0
	for _, b := range bindings {
		p, ok := LiveReloadPort(b.Options, v.cfg.defaultLiveReloadPort())
		if !ok {
			continue
		}
		if port != 0 && p != port {
			return invalid("watch targets request different live-reload ports", "target", b.Target)
		}
		port = p
	}
	return nil
}

func (v *validator) load() error {
	for _, name := range v.cfg.Load {
		if name == "" {
			return invalid("empty capability name in load list")
		}
	}
	return nil
}
