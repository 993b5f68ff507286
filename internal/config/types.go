package config

// WatchTask is the capability name whose targets are watch bindings.
const WatchTask = "watch"

// Config is the build pipeline descriptor. It is loaded once at startup,
// validated, and then treated as read-only for the life of the process.
type Config struct {
	// Manifest is the package manifest read once at startup ("" = none).
	Manifest string `yaml:"manifest,omitempty" hcl:"manifest,optional"`
	// Timing prints a per-step timing report after each run.
	Timing bool `yaml:"timing,omitempty" hcl:"timing,optional"`
	// Load restricts the registered capabilities; empty loads every built-in.
	Load []string `yaml:"load,omitempty" hcl:"load,optional"`

	Tasks   []TaskConfig `yaml:"tasks" hcl:"task,block"`
	Aliases []Alias      `yaml:"aliases,omitempty" hcl:"alias,block"`

	LiveReload *LiveReloadConfig `yaml:"livereload,omitempty" hcl:"livereload,block"`
	Metrics    *MetricsConfig    `yaml:"metrics,omitempty" hcl:"metrics,block"`
	History    *HistoryConfig    `yaml:"history,omitempty" hcl:"history,block"`
	Notify     *NotifyConfig     `yaml:"notify,omitempty" hcl:"notify,block"`
}

// TaskConfig declares the targets of one capability. Task-level options are
// inherited by every target.
type TaskConfig struct {
	Name    string            `yaml:"name" hcl:"name,label"`
	Options map[string]string `yaml:"options,omitempty" hcl:"options,optional"`
	Targets []TargetConfig    `yaml:"targets" hcl:"target,block"`
}

// TargetConfig is one task binding. Src/Dest is shorthand for a single file
// mapping; Files lists further mappings. Tasks is only used by watch targets.
type TargetConfig struct {
	Name    string            `yaml:"name" hcl:"name,label"`
	Src     []string          `yaml:"src,omitempty" hcl:"src,optional"`
	Dest    string            `yaml:"dest,omitempty" hcl:"dest,optional"`
	Files   []FileConfig      `yaml:"files,omitempty" hcl:"file,block"`
	Tasks   []string          `yaml:"tasks,omitempty" hcl:"tasks,optional"`
	Options map[string]string `yaml:"options,omitempty" hcl:"options,optional"`
}

// FileConfig maps source globs to a destination. An empty Dest rewrites in place.
type FileConfig struct {
	Src  []string `yaml:"src" hcl:"src"`
	Dest string   `yaml:"dest,omitempty" hcl:"dest,optional"`
}

// Alias is an aggregate task: task specs executed strictly in order.
type Alias struct {
	Name        string   `yaml:"name" hcl:"name,label"`
	Description string   `yaml:"description,omitempty" hcl:"description,optional"`
	Tasks       []string `yaml:"tasks" hcl:"tasks"`
}

// LiveReloadConfig configures the live-reload listener server.
type LiveReloadConfig struct {
	Host string `yaml:"host,omitempty" hcl:"host,optional"`
	Port int    `yaml:"port,omitempty" hcl:"port,optional"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" hcl:"enabled,optional"`
	Addr    string `yaml:"addr,omitempty" hcl:"addr,optional"`
}

// HistoryConfig configures the SQLite run history.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" hcl:"enabled,optional"`
	Path    string `yaml:"path,omitempty" hcl:"path,optional"`
}

// NotifyConfig configures publishing reload signals to NATS.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty" hcl:"nats_url,optional"`
	Subject string `yaml:"subject,omitempty" hcl:"subject,optional"`
}
