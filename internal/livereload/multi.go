package livereload

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

// MultiNotifier fans a reload signal out to several notifiers. A failing
// notifier is logged and does not stop the others.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier skips nil entries.
func NewMultiNotifier(ns ...Notifier) *MultiNotifier {
	m := &MultiNotifier{}
	for _, n := range ns {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

func (m *MultiNotifier) Notify(ctx context.Context, changed []string) error {
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, changed); err != nil {
			slog.Warn("Reload notifier failed", logfields.Error(err))
		}
	}
	return nil
}
