package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/go-licenses/v2/licenses"

	"github.com/fulmenhq/complic/pkg/logger"
)

// go-licenses resolves import paths against the working directory.
var chdirMu sync.Mutex

// GoScanner classifies the license files of every module reachable from
// the packages of each go.mod found in the tree.
type GoScanner struct {
	// Libraries is swapped out in tests.
	Libraries func(ctx context.Context, moduleDir string) ([]Dependency, error)
}

func (s *GoScanner) Name() string       { return "go" }
func (s *GoScanner) Patterns() []string { return []string{"**/go.mod"} }

// Exclusive is true because go-licenses is driven from the module's
// directory, which changes the working directory of the whole process.
func (s *GoScanner) Exclusive() bool { return true }

func (s *GoScanner) Scan(ctx context.Context, files []string) ([]Dependency, error) {
	libs := s.Libraries
	if libs == nil {
		libs = goLibraries
	}
	var deps []Dependency
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, err := libs(ctx, filepath.Dir(f))
		if err != nil {
			logger.Warn("Failed to list Go module licenses", logger.String("path", f), logger.Err(err))
			continue
		}
		for i := range found {
			found[i].Source = f
		}
		deps = append(deps, found...)
	}
	return deps, nil
}

func goLibraries(ctx context.Context, moduleDir string) ([]Dependency, error) {
	classifier, err := licenses.NewClassifier()
	if err != nil {
		return nil, fmt.Errorf("create license classifier: %w", err)
	}

	chdirMu.Lock()
	defer chdirMu.Unlock()

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if err := os.Chdir(moduleDir); err != nil {
		return nil, err
	}
	defer func() { _ = os.Chdir(wd) }()

	libs, err := licenses.Libraries(ctx, classifier, false, nil, "./...")
	if err != nil {
		return nil, err
	}

	var deps []Dependency
	for _, lib := range libs {
		version := lib.Version()
		// Packages of the main module have no version.
		if version == "" {
			continue
		}
		var names []string
		if lib.LicenseFile != "" {
			found, err := classifier.Identify(lib.LicenseFile)
			if err != nil {
				logger.Debug("License classification failed", logger.String("module", lib.Name()), logger.Err(err))
			}
			for _, l := range found {
				names = append(names, l.Name)
			}
		}
		sort.Strings(names)
		deps = append(deps, Dependency{
			Identifier: identifier("go", lib.Name(), version),
			Licenses:   names,
		})
	}
	return deps, nil
}
