package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/handlers"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
	"git.home.luguber.info/inful/assetbuilder/internal/watch"
)

// TasksCmd implements the 'tasks' command.
type TasksCmd struct{}

func (t *TasksCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadDescriptor(root.Config)
	if err != nil {
		return err
	}
	return ListTasks(g.out(), cfg)
}

// ListTasks prints the loaded capabilities with their targets, then the aliases.
func ListTasks(out io.Writer, cfg *config.Config) error {
	registry := task.NewRegistry()
	if err := handlers.Register(registry, cfg.Load, nil); err != nil {
		return err
	}
	if handlers.WantsWatch(cfg.Load) {
		if err := registry.Register(config.WatchTask, watch.New(nil)); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TASK\tTARGETS\tDESCRIPTION")
	for _, name := range registry.Names() {
		h, _ := registry.Get(name)
		desc := ""
		if d, ok := h.(task.Describer); ok {
			desc = d.Description()
		}
		var targets []string
		if tc, ok := cfg.Task(name); ok {
			for _, tg := range tc.Targets {
				targets = append(targets, tg.Name)
			}
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", name, joinOrDash(targets), desc)
	}
	if len(cfg.Aliases) > 0 {
		_, _ = fmt.Fprintln(tw, "\nALIAS\tTASKS\tDESCRIPTION")
		for _, a := range cfg.Aliases {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Name, joinOrDash(a.Tasks), a.Description)
		}
	}
	return tw.Flush()
}

func joinOrDash(vs []string) string {
	if len(vs) == 0 {
		return "-"
	}
	return strings.Join(vs, ", ")
}
