package config

import (
	"strconv"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// Task returns the declared task configuration.
func (c *Config) Task(name string) (*TaskConfig, bool) {
	for i := range c.Tasks {
		if c.Tasks[i].Name == name {
			return &c.Tasks[i], true
		}
	}
	return nil, false
}

// Alias returns the declared aggregate task.
func (c *Config) Alias(name string) (*Alias, bool) {
	for i := range c.Aliases {
		if c.Aliases[i].Name == name {
			return &c.Aliases[i], true
		}
	}
	return nil, false
}

// Target returns the declared target of a task.
func (t *TaskConfig) Target(name string) (*TargetConfig, bool) {
	for i := range t.Targets {
		if t.Targets[i].Name == name {
			return &t.Targets[i], true
		}
	}
	return nil, false
}

// Mappings normalizes the Src/Dest shorthand and the Files list into file mappings.
func (t *TargetConfig) Mappings() []task.FileMapping {
	var out []task.FileMapping
	if len(t.Src) > 0 {
		out = append(out, task.FileMapping{Src: append([]string(nil), t.Src...), Dest: t.Dest})
	}
	for _, f := range t.Files {
		out = append(out, task.FileMapping{Src: append([]string(nil), f.Src...), Dest: f.Dest})
	}
	return out
}

// Bindings resolves every target of a task, in declaration order.
func (c *Config) Bindings(taskName string) ([]task.Binding, error) {
	tc, ok := c.Task(taskName)
	if !ok || len(tc.Targets) == 0 {
		return nil, ferrors.NotFoundError("no targets configured for task").WithContext("task", taskName).Build()
	}
	out := make([]task.Binding, 0, len(tc.Targets))
	for i := range tc.Targets {
		out = append(out, bindingFor(tc, &tc.Targets[i]))
	}
	return out, nil
}

// Binding resolves a single task target.
func (c *Config) Binding(taskName, target string) (task.Binding, error) {
	tc, ok := c.Task(taskName)
	if !ok {
		return task.Binding{}, ferrors.NotFoundError("no targets configured for task").WithContext("task", taskName).Build()
	}
	tg, ok := tc.Target(target)
	if !ok {
		return task.Binding{}, ferrors.NotFoundError("target not found").
			WithContext("task", taskName).WithContext("target", target).Build()
	}
	return bindingFor(tc, tg), nil
}

func bindingFor(tc *TaskConfig, tg *TargetConfig) task.Binding {
	return task.Binding{
		Task:    tc.Name,
		Target:  tg.Name,
		Files:   tg.Mappings(),
		Tasks:   append([]string(nil), tg.Tasks...),
		Options: task.Merge(tc.Options, tg.Options),
	}
}

// LiveReloadPort interprets a binding's livereload option: "true" selects the
// configured port, an integer selects that port, anything else disables it.
func LiveReloadPort(opts task.Options, defPort int) (int, bool) {
	raw := opts.String("livereload", "")
	if raw == "" {
		return 0, false
	}
	if port, err := strconv.Atoi(raw); err == nil {
		return port, port > 0
	}
	if opts.Bool("livereload", false) {
		return defPort, true
	}
	return 0, false
}

// LiveReloadListener reports whether any watch target wants live reload and on which port.
func (c *Config) LiveReloadListener() (int, bool) {
	bindings, err := c.Bindings(WatchTask)
	if err != nil {
		return 0, false
	}
	for _, b := range bindings {
		if port, ok := LiveReloadPort(b.Options, c.defaultLiveReloadPort()); ok {
			return port, true
		}
	}
	return 0, false
}

func (c *Config) defaultLiveReloadPort() int {
	if c.LiveReload != nil && c.LiveReload.Port > 0 {
		return c.LiveReload.Port
	}
	return DefaultLiveReloadPort
}
