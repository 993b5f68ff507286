package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

const minimalYAML = `manifest: package.json
tasks:
  - name: sass
    targets:
      - name: dist
        options:
          style: compressed
        files:
          - src: [./assets/stylesheets/main.sass]
            dest: ${ASSETBUILDER_TEST_OUT}/main.css
  - name: watch
    options:
      livereload: true
    targets:
      - name: css
        src: ["./assets/stylesheets/*.sass"]
        tasks: [sass]
aliases:
  - name: default
    tasks: [sass, watch]
`

func TestLoadYAML(t *testing.T) {
	t.Setenv("ASSETBUILDER_TEST_OUT", "public/css")
	path := writeFile(t, t.TempDir(), "assetbuilder.yaml", minimalYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "package.json", cfg.Manifest)
	require.Len(t, cfg.Tasks, 2)
	assert.Equal(t, "public/css/main.css", cfg.Tasks[0].Targets[0].Files[0].Dest)
	assert.Equal(t, "true", cfg.Tasks[1].Options["livereload"])

	require.NotNil(t, cfg.LiveReload)
	assert.Equal(t, DefaultLiveReloadPort, cfg.LiveReload.Port)
	assert.Equal(t, DefaultHistoryPath, cfg.History.Path)
	assert.Equal(t, DefaultNotifySubject, cfg.Notify.Subject)
}

func TestLoadYAMLRejectsUnknownFields(t *testing.T) {
	path := writeFile(t, t.TempDir(), "assetbuilder.yaml", "tasks: []\nbogus: 1\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestLoadHCL(t *testing.T) {
	t.Setenv("ASSETBUILDER_TEST_STYLE", "expanded")
	path := writeFile(t, t.TempDir(), "assetbuilder.hcl", `
manifest = "package.json"
timing   = true

task "sass" {
  target "dist" {
    options = { style = env.ASSETBUILDER_TEST_STYLE }
    file {
      src  = ["./assets/stylesheets/main.sass"]
      dest = "public/assets/css/main.css"
    }
  }
}

task "watch" {
  options = { livereload = true }
  target "css" {
    src   = ["./assets/stylesheets/*.sass"]
    tasks = ["sass"]
  }
}

alias "default" {
  tasks = ["sass", "watch"]
}

livereload {
  port = 35730
}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Timing)
	assert.Equal(t, "expanded", cfg.Tasks[0].Targets[0].Options["style"])
	assert.Equal(t, "true", cfg.Tasks[1].Options["livereload"])
	assert.Equal(t, 35730, cfg.LiveReload.Port)

	port, ok := cfg.LiveReloadListener()
	require.True(t, ok)
	assert.Equal(t, 35730, port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestLoadEnvFileDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "ASSETBUILDER_TEST_OUT=from-env-file\nASSETBUILDER_TEST_FRESH=fresh\n")
	t.Setenv("ASSETBUILDER_TEST_OUT", "from-process")
	t.Cleanup(func() { _ = os.Unsetenv("ASSETBUILDER_TEST_FRESH") })
	path := writeFile(t, dir, "assetbuilder.yaml", minimalYAML)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-process/main.css", cfg.Tasks[0].Targets[0].Files[0].Dest)
	assert.Equal(t, "fresh", os.Getenv("ASSETBUILDER_TEST_FRESH"))
}

func TestExpandEnvOnlyBracedReferences(t *testing.T) {
	t.Setenv("ASSETBUILDER_TEST_OUT", "public")
	t.Setenv("HOME_x", "nope")

	got := string(expandEnv([]byte(`dest: ${ASSETBUILDER_TEST_OUT}/app.css $5 $HOME_x ${ASSETBUILDER_TEST_UNSET}.`)))
	assert.Equal(t, `dest: public/app.css $5 $HOME_x .`, got)
}

func TestLoadYAMLKeepsBareDollarSigns(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ASSETBUILDER_TEST_OUT", "public")
	yaml := strings.Replace(minimalYAML, "style: compressed", `style: compressed
          banner: "/*! $5 off, see $HOME_page */"`, 1)
	path := writeFile(t, dir, "assetbuilder.yaml", yaml)

	cfg, err := Load(path)
	require.NoError(t, err)
	target := cfg.Tasks[0].Targets[0]
	assert.Equal(t, "/*! $5 off, see $HOME_page */", target.Options["banner"])
	assert.Equal(t, "public/main.css", target.Files[0].Dest)
}

func TestInitRoundTrip(t *testing.T) {
	for _, name := range []string{"assetbuilder.yaml", "assetbuilder.hcl"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Init(path, false))

			cfg, err := Load(path)
			require.NoError(t, err)
			want := Default()
			assert.Equal(t, want.Manifest, cfg.Manifest)
			assert.Equal(t, *want.LiveReload, *cfg.LiveReload)
			require.Len(t, cfg.Tasks, len(want.Tasks))
			for _, tc := range want.Tasks {
				wantBindings, err := want.Bindings(tc.Name)
				require.NoError(t, err)
				gotBindings, err := cfg.Bindings(tc.Name)
				require.NoError(t, err)
				assert.Equal(t, wantBindings, gotBindings, tc.Name)
			}
			require.Len(t, cfg.Aliases, 1)
			assert.Equal(t, want.Aliases[0].Tasks, cfg.Aliases[0].Tasks)

			err = Init(path, false)
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
			require.NoError(t, Init(path, true))
		})
	}
}
