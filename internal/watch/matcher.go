package watch

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// Matcher matches absolute paths against a watch target's globs.
type Matcher struct {
	patterns []string
	bases    []string
}

// NewMatcher resolves patterns against the working directory.
func NewMatcher(patterns []string) (*Matcher, error) {
	if len(patterns) == 0 {
		return nil, ferrors.ValidationError("watch target has no patterns").Build()
	}
	m := &Matcher{}
	for _, p := range patterns {
		abs, err := filepath.Abs(filepath.Clean(p))
		if err != nil {
			return nil, ferrors.ValidationError("invalid watch pattern").WithContext("pattern", p).WithCause(err).Build()
		}
		if !doublestar.ValidatePathPattern(abs) {
			return nil, ferrors.ValidationError("invalid watch pattern").WithContext("pattern", p).Build()
		}
		base, _ := doublestar.SplitPattern(filepath.ToSlash(abs))
		m.patterns = append(m.patterns, abs)
		if b := filepath.FromSlash(base); !slices.Contains(m.bases, b) {
			m.bases = append(m.bases, b)
		}
	}
	return m, nil
}

// Bases returns the static directory prefix of every pattern.
func (m *Matcher) Bases() []string { return m.bases }

// Match reports whether path matches any pattern and is not an editor artifact.
func (m *Matcher) Match(path string) bool {
	if shouldIgnoreEvent(path) {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, p := range m.patterns {
		if ok, _ := doublestar.PathMatch(p, abs); ok {
			return true
		}
	}
	return false
}

// Snapshot returns the modification time of every file the patterns match.
func (m *Matcher) Snapshot() map[string]time.Time {
	out := map[string]time.Time{}
	for _, p := range m.patterns {
		matches, err := doublestar.FilepathGlob(p, doublestar.WithFilesOnly())
		if err != nil {
			continue
		}
		for _, f := range matches {
			if shouldIgnoreEvent(f) {
				continue
			}
			if fi, err := os.Stat(f); err == nil {
				out[f] = fi.ModTime()
			}
		}
	}
	return out
}

// shouldIgnoreEvent returns true for hidden files and editor swap/backup files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
