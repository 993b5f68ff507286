package pipeline

import (
	"git.home.luguber.info/inful/assetbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// maxAliasDepth bounds alias nesting; validation already rejects cycles.
const maxAliasDepth = 32

// Expand resolves aliases recursively into an ordered list of task specs.
// An empty list selects the default alias.
func Expand(cfg *config.Config, specs []string) ([]task.Spec, error) {
	if len(specs) == 0 {
		specs = []string{config.DefaultAlias}
	}
	var out []task.Spec
	for _, raw := range specs {
		expanded, err := expandOne(cfg, raw, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

func expandOne(cfg *config.Config, raw string, depth int) ([]task.Spec, error) {
	if depth > maxAliasDepth {
		return nil, ferrors.ValidationError("alias nesting too deep").WithContext("spec", raw).Build()
	}
	spec, err := task.ParseSpec(raw)
	if err != nil {
		return nil, err
	}
	alias, ok := cfg.Alias(spec.Task)
	if !ok || !spec.AllTargets() {
		return []task.Spec{spec}, nil
	}
	var out []task.Spec
	for _, inner := range alias.Tasks {
		expanded, err := expandOne(cfg, inner, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}
