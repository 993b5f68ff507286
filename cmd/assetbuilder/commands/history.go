package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int  `short:"n" help:"Number of entries to show" default:"20"`
	Runs  bool `help:"Summarize whole runs instead of individual task targets"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadDescriptor(root.Config)
	if err != nil {
		return err
	}
	path := cfg.History.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(root.Config), path)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return ferrors.NotFoundError("no run history recorded").
			WithContext("path", path).
			WithContext("hint", "enable history in the descriptor").
			Build()
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return PrintHistory(context.Background(), g.out(), store, h.Limit, h.Runs)
}

// PrintHistory writes the latest executions (or run summaries) as a table.
func PrintHistory(ctx context.Context, out io.Writer, store *history.Store, limit int, runs bool) error {
	if limit <= 0 {
		limit = 20
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if runs {
		summaries, err := store.Runs(ctx, limit)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(tw, "RUN\tSTARTED\tTARGETS\tFAILED\tDURATION")
		for _, s := range summaries {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
				s.RunID, s.Started.Format(time.DateTime), s.Targets, s.Failed, s.Duration)
		}
		return tw.Flush()
	}

	records, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(tw, "TIME\tRUN\tTASK\tRESULT\tDURATION\tERROR")
	for _, r := range records {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s:%s\t%s\t%s\t%s\n",
			r.Time.Format(time.DateTime), shortID(r.RunID), r.Task, r.Target, r.Result, r.Duration, r.Error)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
