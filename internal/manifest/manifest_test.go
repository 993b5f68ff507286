package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

const packageJSON = `{
  "name": "streamsite",
  "version": "1.4.0",
  "private": true,
  "devDependencies": {
    "autoprefixer": "^10.4.0",
    "sass": "^1.77.0"
  }
}`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package.json")
	require.NoError(t, os.WriteFile(path, []byte(packageJSON), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "streamsite", m.Name)
	assert.Equal(t, "1.4.0", m.Version)
	assert.True(t, m.Private)
	assert.Contains(t, m.DevDependencies, "autoprefixer")
	assert.NotContains(t, m.Dependencies, "coffeescript")
}

func TestLoadEmptyPath(t *testing.T) {
	m, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, m.Name)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "package.json"))
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))

	_, err = Parse([]byte("{"), "package.json")
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestExpandOptions(t *testing.T) {
	m, err := Parse([]byte(packageJSON), "package.json")
	require.NoError(t, err)

	opts, err := m.ExpandOptions(task.Options{
		"banner": "/*! {{.Name}} v{{.Version}} */",
		"style":  "compressed",
	})
	require.NoError(t, err)
	assert.Equal(t, "/*! streamsite v1.4.0 */", opts["banner"])
	assert.Equal(t, "compressed", opts["style"])

	_, err = m.Expand("{{.Nope}}")
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
}
