package config

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// Load reads, defaults and validates a pipeline descriptor. The format is
// chosen by extension: .hcl is HCL, anything else is YAML. Env files next to
// the descriptor are loaded first so ${VAR} (YAML) and env.VAR (HCL) resolve.
func Load(path string) (*Config, error) {
	if loaded := loadEnvFiles(filepath.Dir(path)); len(loaded) > 0 {
		slog.Debug("Loaded environment files", slog.Any("files", loaded))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ferrors.ConfigError("configuration file not found").
				WithContext("path", path).WithCause(err).Build()
		}
		return nil, ferrors.ConfigError("failed to read configuration file").
			WithContext("path", path).WithCause(err).Build()
	}

	var cfg *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		cfg, err = decodeHCL(path, data)
	default:
		cfg, err = decodeYAML(path, data)
	}
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeYAML(path string, data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(expandEnv(data)))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, ferrors.ConfigError("failed to parse configuration").
			WithContext("path", path).WithCause(err).Build()
	}
	return &cfg, nil
}

func decodeHCL(path string, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return nil, ferrors.ConfigError("failed to parse configuration").
			WithContext("path", path).WithCause(diags).Build()
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, evalContext(), &cfg); diags.HasErrors() {
		return nil, ferrors.ConfigError("failed to decode configuration").
			WithContext("path", path).WithCause(diags).Build()
	}
	return &cfg, nil
}

// evalContext exposes the process environment to HCL expressions as env.NAME.
func evalContext() *hcl.EvalContext {
	vars := map[string]cty.Value{}
	for k, v := range envMap() {
		vars[k] = cty.StringVal(v)
	}
	env := cty.EmptyObjectVal
	if len(vars) > 0 {
		env = cty.ObjectVal(vars)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": env},
	}
}
