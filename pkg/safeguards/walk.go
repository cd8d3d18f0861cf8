package safeguards

import (
	"io/fs"
	"path/filepath"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
)

// IgnoredDirPatterns match directory names that are never part of a skill's
// payload
var IgnoredDirPatterns = []string{
	".git",
	"node_modules",
	"__pycache__",
	".venv",
	"*.egg-info",
}

var ignoredDirGlobs = compileGlobs(IgnoredDirPatterns)

func compileGlobs(patterns []string) []glob.Glob {
	globs := make([]glob.Glob, len(patterns))
	for i, pattern := range patterns {
		globs[i] = glob.MustCompile(pattern)
	}
	return globs
}

// IgnoredDir reports whether a directory with the given base name is skipped
// when sizing or hashing a skill
func IgnoredDir(name string) bool {
	for _, g := range ignoredDirGlobs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// WalkFiles calls fn for every regular file under dir in lexical order,
// skipping ignored directories. rel is slash separated and relative to dir.
func WalkFiles(dir string, fn func(rel string, info fs.FileInfo) error) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && IgnoredDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return errors.Wrapf(err, "failed to stat %s", path)
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return errors.Wrapf(err, "failed to resolve %s", path)
		}
		return fn(filepath.ToSlash(rel), info)
	})
}

// DirSize sums the sizes of the files WalkFiles visits
func DirSize(dir string) (int64, error) {
	var total int64
	err := WalkFiles(dir, func(_ string, info fs.FileInfo) error {
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to walk skill directory")
	}
	return total, nil
}
