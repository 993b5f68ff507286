package task

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// ExpandSources resolves source globs to existing files, in pattern order,
// without duplicates. A pattern that matches no file is a not-found error.
func ExpandSources(patterns []string) ([]string, error) {
	var out []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(filepath.Clean(pattern), doublestar.WithFilesOnly())
		if err != nil {
			return nil, ferrors.ValidationError("invalid source pattern").
				WithContext("pattern", pattern).WithCause(err).Build()
		}
		if len(matches) == 0 {
			return nil, ferrors.NotFoundError("source pattern matched no files").
				WithContext("pattern", pattern).Build()
		}
		slices.Sort(matches)
		for _, m := range matches {
			if !slices.Contains(out, m) {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

// EnsureDestDir creates the parent directory of dest.
func EnsureDestDir(dest string) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ferrors.FileSystemError("cannot create destination directory").
			WithContext("dir", dir).WithCause(err).Build()
	}
	return nil
}

// WriteFile writes data to dest, creating its parent directory first.
func WriteFile(dest string, data []byte) error {
	if err := EnsureDestDir(dest); err != nil {
		return err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return ferrors.FileSystemError("cannot write output file").
			WithContext("dest", dest).WithCause(err).Build()
	}
	return nil
}
