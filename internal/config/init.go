package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// Init writes the stock pipeline descriptor to path. An existing file is only
// replaced when force is set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).Build()
	}

	data, err := Encode(Default(), path)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return ferrors.FileSystemError("failed to create configuration directory").
				WithContext("path", dir).WithCause(err).Build()
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ferrors.FileSystemError("failed to write configuration file").
			WithContext("path", path).WithCause(err).Build()
	}
	return nil
}

// Encode renders cfg in the format implied by path's extension.
func Encode(cfg *Config, path string) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		return encodeHCL(cfg), nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, ferrors.InternalError("failed to marshal configuration").WithCause(err).Build()
	}
	return data, nil
}

// encodeHCL writes only the fields that are set so the output reads like a
// hand-written descriptor and decodes back to the same Config.
func encodeHCL(cfg *Config) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()
	setString(body, "manifest", cfg.Manifest)
	if cfg.Timing {
		body.SetAttributeValue("timing", cty.True)
	}
	setList(body, "load", cfg.Load)

	for _, tc := range cfg.Tasks {
		body.AppendNewline()
		tb := body.AppendNewBlock("task", []string{tc.Name}).Body()
		setMap(tb, "options", tc.Options)
		for _, tg := range tc.Targets {
			gb := tb.AppendNewBlock("target", []string{tg.Name}).Body()
			setList(gb, "src", tg.Src)
			setString(gb, "dest", tg.Dest)
			setList(gb, "tasks", tg.Tasks)
			setMap(gb, "options", tg.Options)
			for _, fc := range tg.Files {
				fb := gb.AppendNewBlock("file", nil).Body()
				setList(fb, "src", fc.Src)
				setString(fb, "dest", fc.Dest)
			}
		}
	}
	for _, a := range cfg.Aliases {
		body.AppendNewline()
		ab := body.AppendNewBlock("alias", []string{a.Name}).Body()
		setString(ab, "description", a.Description)
		setList(ab, "tasks", a.Tasks)
	}
	if lr := cfg.LiveReload; lr != nil {
		body.AppendNewline()
		b := body.AppendNewBlock("livereload", nil).Body()
		setString(b, "host", lr.Host)
		if lr.Port != 0 {
			b.SetAttributeValue("port", cty.NumberIntVal(int64(lr.Port)))
		}
	}
	if m := cfg.Metrics; m != nil {
		b := body.AppendNewBlock("metrics", nil).Body()
		b.SetAttributeValue("enabled", cty.BoolVal(m.Enabled))
		setString(b, "addr", m.Addr)
	}
	if h := cfg.History; h != nil {
		b := body.AppendNewBlock("history", nil).Body()
		b.SetAttributeValue("enabled", cty.BoolVal(h.Enabled))
		setString(b, "path", h.Path)
	}
	if n := cfg.Notify; n != nil {
		b := body.AppendNewBlock("notify", nil).Body()
		setString(b, "nats_url", n.NATSURL)
		setString(b, "subject", n.Subject)
	}
	return f.Bytes()
}

func setString(b *hclwrite.Body, name, v string) {
	if v != "" {
		b.SetAttributeValue(name, cty.StringVal(v))
	}
}

func setList(b *hclwrite.Body, name string, vs []string) {
	if len(vs) == 0 {
		return
	}
	vals := make([]cty.Value, 0, len(vs))
	for _, v := range vs {
		vals = append(vals, cty.StringVal(v))
	}
	b.SetAttributeValue(name, cty.ListVal(vals))
}

func setMap(b *hclwrite.Body, name string, m map[string]string) {
	if len(m) == 0 {
		return
	}
	vals := make(map[string]cty.Value, len(m))
	for k, v := range m {
		vals[k] = cty.StringVal(v)
	}
	b.SetAttributeValue(name, cty.MapVal(vals))
}
