// Package ignore decides which paths a dependency scan skips, using the
// gitignore pattern engine from go-git.
package ignore

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// FileName is the per-project ignore file.
const FileName = ".complicignore"

// Options selects the pattern layers.
type Options struct {
	// UseGitignore adds .gitignore and .git/info/exclude patterns. Off by
	// default: vendored dependency trees are usually git-ignored but are
	// exactly what a scan must see.
	UseGitignore bool
	// UserFile is an extra ignore file, typically <home>/.complicignore.
	UserFile string
	// Patterns are additional gitignore-style patterns.
	Patterns []string
}

// Matcher filters paths relative to a scan root.
type Matcher struct {
	root    string
	matcher gitignore.Matcher
}

// NewMatcher layers, lowest priority first: .git, optional git ignore
// files, <root>/.complicignore, the user file, then explicit patterns.
func NewMatcher(root string, opts Options) (*Matcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	patterns := []gitignore.Pattern{gitignore.ParsePattern(".git", nil)}

	if opts.UseGitignore {
		if gitPatterns, err := gitignore.ReadPatterns(osfs.New(abs), nil); err == nil {
			patterns = append(patterns, gitPatterns...)
		}
	}

	for _, file := range []string{filepath.Join(abs, FileName), opts.UserFile} {
		if file == "" {
			continue
		}
		lines, err := readIgnoreFile(file)
		if err != nil {
			continue
		}
		for _, l := range lines {
			patterns = append(patterns, gitignore.ParsePattern(l, nil))
		}
	}

	for _, p := range opts.Patterns {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, gitignore.ParsePattern(p, nil))
		}
	}

	return &Matcher{root: abs, matcher: gitignore.NewMatcher(patterns)}, nil
}

// readIgnoreFile returns the non-empty, non-comment lines of an ignore file.
func readIgnoreFile(path string) ([]string, error) {
	cleaned := filepath.Clean(path)
	content, err := os.ReadFile(cleaned) // #nosec G304 -- ignore files are chosen by the operator
	if err != nil {
		return nil, err
	}

	var patterns []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, nil
}

// Root returns the absolute scan root.
func (m *Matcher) Root() string { return m.root }

// IsIgnored reports whether path (absolute, or relative to the root) is
// excluded. The root itself is never ignored.
func (m *Matcher) IsIgnored(path string, isDir bool) bool {
	rel := path
	if filepath.IsAbs(path) {
		r, err := filepath.Rel(m.root, path)
		if err != nil {
			return false
		}
		rel = r
	}
	parts := splitPath(filepath.ToSlash(rel))
	if len(parts) == 0 || parts[0] == ".." {
		return false
	}
	return m.matcher.Match(parts, isDir)
}

// splitPath converts a slash-separated path into components for go-git matching
func splitPath(path string) []string {
	if path == "" || path == "." {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return result
}
