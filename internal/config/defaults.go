package config

const (
	DefaultConfigFile     = "assetbuilder.yaml"
	DefaultLiveReloadPort = 35729
	DefaultMetricsAddr    = ":9464"
	DefaultHistoryPath    = ".assetbuilder/history.db"
	DefaultNotifySubject  = "assetbuilder.reload"
	DefaultAlias          = "default"
)

// Default returns the stock front-end pipeline: Sass to compressed CSS,
// autoprefixing, CoffeeScript compilation, minification and watch mode.
func Default() *Config {
	cfg := &Config{
		Manifest: "package.json",
		Tasks: []TaskConfig{
			{
				Name: "sass",
				Targets: []TargetConfig{{
					Name:    "dist",
					Options: map[string]string{"style": "compressed"},
					Files: []FileConfig{
						{Dest: "public/assets/css/main.css", Src: []string{"./assets/stylesheets/main.sass"}},
					},
				}},
			},
			{
				Name:    "postcss",
				Options: map[string]string{"map": "true", "processors": "autoprefixer"},
				Targets: []TargetConfig{{
					Name: "dist",
					Src:  []string{"./public/assets/css/*.css"},
				}},
			},
			{
				Name: "coffee",
				Targets: []TargetConfig{{
					Name: "compile",
					Files: []FileConfig{
						{Dest: "tmp/js/main.js", Src: []string{"./assets/javascripts/main.coffee"}},
						{Dest: "tmp/js/video.js", Src: []string{"./assets/javascripts/video.coffee"}},
					},
				}},
			},
			{
				Name: "uglify",
				Targets: []TargetConfig{
					{Name: "main", Src: []string{"tmp/js/main.js"}, Dest: "public/assets/js/main.js"},
					{Name: "video", Src: []string{"tmp/js/video.js"}, Dest: "public/assets/js/video.js"},
				},
			},
			{
				Name:    WatchTask,
				Options: map[string]string{"livereload": "true"},
				Targets: []TargetConfig{
					{
						Name:    "css",
						Src:     []string{"./assets/stylesheets/*.sass"},
						Tasks:   []string{"sass", "postcss:dist"},
						Options: map[string]string{"spawn": "false"},
					},
					{
						Name:    "js",
						Src:     []string{"./assets/javascripts/*.coffee"},
						Tasks:   []string{"coffee", "uglify"},
						Options: map[string]string{"spawn": "false"},
					},
				},
			},
		},
		Aliases: []Alias{{
			Name:        DefaultAlias,
			Description: "Build every asset, then watch for changes",
			Tasks:       []string{"sass", "postcss:dist", "coffee", "uglify", WatchTask},
		}},
	}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills optional sections so consumers never deal with nil blocks.
func applyDefaults(cfg *Config) {
	if cfg.LiveReload == nil {
		cfg.LiveReload = &LiveReloadConfig{}
	}
	if cfg.LiveReload.Port == 0 {
		cfg.LiveReload.Port = DefaultLiveReloadPort
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &MetricsConfig{}
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = DefaultMetricsAddr
	}
	if cfg.History == nil {
		cfg.History = &HistoryConfig{}
	}
	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath
	}
	if cfg.Notify == nil {
		cfg.Notify = &NotifyConfig{}
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultNotifySubject
	}
}
