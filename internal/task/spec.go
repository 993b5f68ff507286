package task

import (
	"strings"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// Spec is a task reference as written in aliases and watch targets:
// "sass" selects every target, "postcss:dist" selects one.
type Spec struct {
	Task   string
	Target string
}

// ParseSpec parses "task" or "task:target".
func ParseSpec(s string) (Spec, error) {
	s = strings.TrimSpace(s)
	name, target, hasTarget := strings.Cut(s, ":")
	if name == "" || (hasTarget && target == "") || strings.Contains(target, ":") {
		return Spec{}, ferrors.ValidationError("invalid task spec").WithContext("spec", s).Build()
	}
	return Spec{Task: name, Target: target}, nil
}

// AllTargets reports whether the spec selects every target of its task.
func (s Spec) AllTargets() bool { return s.Target == "" }

func (s Spec) String() string {
	if s.Target == "" {
		return s.Task
	}
	return s.Task + ":" + s.Target
}
