package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyTask       = "task"
	KeyTarget     = "target"
	KeySpec       = "spec"
	KeyPath       = "path"
	KeyDest       = "dest"
	KeyResult     = "result"
	KeyDurationMS = "duration_ms"
	KeyWatch      = "watch"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr      { return slog.String(KeyRunID, id) }
func Task(name string) slog.Attr     { return slog.String(KeyTask, name) }
func Target(name string) slog.Attr   { return slog.String(KeyTarget, name) }
func Spec(spec string) slog.Attr     { return slog.String(KeySpec, spec) }
func Path(p string) slog.Attr        { return slog.String(KeyPath, p) }
func Dest(p string) slog.Attr        { return slog.String(KeyDest, p) }
func Result(r string) slog.Attr      { return slog.String(KeyResult, r) }
func Watch(target string) slog.Attr  { return slog.String(KeyWatch, target) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
