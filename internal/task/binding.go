package task

import (
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// FileMapping maps one or more source globs to a destination path.
// An empty Dest means the sources are rewritten in place.
type FileMapping struct {
	Src  []string
	Dest string
}

// InPlace reports whether the mapping rewrites its sources.
func (m FileMapping) InPlace() bool { return m.Dest == "" }

// Binding is one resolved target of a task: what the capability receives on Run.
type Binding struct {
	Task    string
	Target  string
	Files   []FileMapping
	Tasks   []string // watch targets only: task specs to re-run
	Options Options
}

// Name returns the "task:target" form used in logs and reports.
func (b Binding) Name() string {
	return b.Task + ":" + b.Target
}

// Options is a flat string mapping of capability options. Values are kept as
// strings so YAML and HCL descriptors decode into the same shape.
type Options map[string]string

// Merge returns base overlaid with override; override wins on conflicts.
func Merge(base, override Options) Options {
	out := make(Options, len(base)+len(override))
	maps.Copy(out, base)
	maps.Copy(out, override)
	return out
}

// String returns the option value or def when unset or blank.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// Bool parses a boolean option; unparsable values return def.
func (o Options) Bool(key string, def bool) bool {
	v, ok := o[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

// Duration parses a Go duration option ("250ms"). Bare integers are milliseconds.
func (o Options) Duration(key string, def time.Duration) time.Duration {
	v := o.String(key, "")
	if v == "" {
		return def
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// List splits a comma separated option into trimmed, non-empty items.
func (o Options) List(key string) []string {
	v := o.String(key, "")
	if v == "" {
		return nil
	}
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Keys returns the option names in sorted order.
func (o Options) Keys() []string {
	return slices.Sorted(maps.Keys(o))
}
