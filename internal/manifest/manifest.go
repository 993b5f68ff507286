// Package manifest reads the project's package manifest (package.json).
// The pipeline loads it once at startup and exposes its fields to option
// templates, e.g. a minifier banner of "/*! {{.Name}} v{{.Version}} */".
package manifest

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"text/template"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// Manifest holds the subset of package.json the pipeline cares about.
type Manifest struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Description     string            `json:"description,omitempty"`
	Homepage        string            `json:"homepage,omitempty"`
	License         string            `json:"license,omitempty"`
	Private         bool              `json:"private,omitempty"`
	Scripts         map[string]string `json:"scripts,omitempty"`
	Dependencies    map[string]string `json:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"devDependencies,omitempty"`
}

// Load reads the manifest at path. An empty path yields an empty manifest.
func Load(path string) (*Manifest, error) {
	if path == "" {
		return &Manifest{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.NotFoundError("package manifest not found").
				WithContext("path", path).WithCause(err).Build()
		}
		return nil, ferrors.FileSystemError("failed to read package manifest").
			WithContext("path", path).WithCause(err).Build()
	}
	return Parse(data, path)
}

// Parse decodes manifest JSON; path is only used in error context.
func Parse(data []byte, path string) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, ferrors.ConfigError("invalid package manifest").
			WithContext("path", path).WithCause(err).Build()
	}
	return &m, nil
}

// Expand renders s as a text/template with the manifest as data. Strings
// without template actions are returned unchanged.
func (m *Manifest) Expand(s string) (string, error) {
	if !strings.Contains(s, "{{") {
		return s, nil
	}
	tmpl, err := template.New("option").Option("missingkey=error").Parse(s)
	if err != nil {
		return "", ferrors.ValidationError("invalid option template").
			WithContext("template", s).WithCause(err).Build()
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, m); err != nil {
		return "", ferrors.ValidationError("failed to render option template").
			WithContext("template", s).WithCause(err).Build()
	}
	return buf.String(), nil
}

// ExpandOptions returns a copy of opts with every value expanded.
func (m *Manifest) ExpandOptions(opts task.Options) (task.Options, error) {
	out := make(task.Options, len(opts))
	for k, v := range opts {
		expanded, err := m.Expand(v)
		if err != nil {
			return nil, err
		}
		out[k] = expanded
	}
	return out, nil
}
