package scanner

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/fulmenhq/complic/pkg/ignore"
	"github.com/fulmenhq/complic/pkg/logger"
)

// Finder lists the files of a project tree once. Directories rejected by
// the ignore matcher or an exclude glob are not descended into.
type Finder struct {
	root     string
	matcher  *ignore.Matcher
	excludes []string
}

// NewFinder creates a Finder rooted at the matcher's root.
func NewFinder(matcher *ignore.Matcher, excludes []string) *Finder {
	var valid []string
	for _, ex := range excludes {
		if !doublestar.ValidatePattern(ex) {
			logger.Warn("Ignoring invalid exclude pattern", logger.String("pattern", ex))
			continue
		}
		valid = append(valid, ex)
	}
	return &Finder{root: matcher.Root(), matcher: matcher, excludes: valid}
}

// Root returns the absolute root.
func (f *Finder) Root() string { return f.root }

// Files returns every non-ignored regular file as a slash-separated path
// relative to the root, sorted.
func (f *Finder) Files(ctx context.Context) ([]string, error) {
	var files []string
	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == f.root {
				return err
			}
			logger.Debug("Skipping unreadable path", logger.String("path", path), logger.Err(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path == f.root {
			return nil
		}
		rel, relErr := filepath.Rel(f.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if f.matcher.IsIgnored(rel, d.IsDir()) || f.excluded(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (f *Finder) excluded(rel string) bool {
	for _, ex := range f.excludes {
		if ok, _ := doublestar.Match(ex, rel); ok {
			return true
		}
	}
	return false
}

// Select returns the absolute paths of files matching any pattern.
func Select(root string, files []string, patterns []string) []string {
	var out []string
	for _, rel := range files {
		for _, p := range patterns {
			if ok, _ := doublestar.Match(p, rel); ok {
				out = append(out, filepath.Join(root, filepath.FromSlash(rel)))
				break
			}
		}
	}
	return out
}
