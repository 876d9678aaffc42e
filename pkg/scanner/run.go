package scanner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fulmenhq/complic/pkg/logger"
	"github.com/fulmenhq/complic/pkg/registry"
)

// Names lists the scanners known to Build, in scan order.
var Names = []string{"maven", "npm", "python", "cocoapods", "go"}

// Options configures the scanners created by Build.
type Options struct {
	Runner   CommandRunner
	RunMaven bool
	// NPM and PyPI are consulted when a manifest declares no license.
	// Nil disables remote lookups.
	NPM  registry.LicenseLookup
	PyPI registry.LicenseLookup
}

// Build returns the named scanners. An empty list selects all of them.
func Build(names []string, opts Options) ([]Scanner, error) {
	if len(names) == 0 {
		names = Names
	}
	runner := opts.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	seen := map[string]bool{}
	var out []Scanner
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		switch name {
		case "maven":
			out = append(out, &MavenScanner{Runner: runner, RunMaven: opts.RunMaven})
		case "npm":
			out = append(out, &NPMScanner{Lookup: opts.NPM})
		case "python":
			out = append(out, &PythonScanner{Lookup: opts.PyPI})
		case "cocoapods":
			out = append(out, &CocoaPodsScanner{Runner: runner})
		case "go":
			out = append(out, &GoScanner{})
		default:
			return nil, fmt.Errorf("unknown scanner %q (available: %s)", raw, strings.Join(Names, ", "))
		}
	}
	return out, nil
}

// exclusive is implemented by scanners that must not overlap with any
// other scanner.
type exclusive interface {
	Exclusive() bool
}

// RunAll lists the tree once, hands each scanner its matching files and
// merges the results. At most concurrency scanners run at once; values
// below one run them sequentially. Exclusive scanners run alone after the
// others finish. The first scanner error cancels the rest.

func RunAll(ctx context.Context, finder *Finder, scanners []Scanner, concurrency int) ([]Dependency, error) {
	files, err := finder.Files(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", finder.Root(), err)
	}
	logger.Debug("Listed project files", logger.String("root", finder.Root()), logger.Int("files", len(files)))

	if concurrency < 1 {
		concurrency = 1
	}
	results := make([][]Dependency, len(scanners))
	scan := func(ctx context.Context, i int, s Scanner, selected []string) error {
		start := time.Now()
		deps, err := s.Scan(ctx, selected)
		if err != nil {
			return fmt.Errorf("%s scanner: %w", s.Name(), err)
		}
		logger.Info("Scanner finished",
			logger.String("scanner", s.Name()),
			logger.Int("files", len(selected)),
			logger.Int("dependencies", len(deps)),
			logger.Duration("duration", time.Since(start)))
		results[i] = deps
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	var serial []int
	selections := make([][]string, len(scanners))
	for i, s := range scanners {
		selections[i] = Select(finder.Root(), files, s.Patterns())
		if len(selections[i]) == 0 {
			continue
		}
		if e, ok := s.(exclusive); ok && e.Exclusive() {
			serial = append(serial, i)
			continue
		}
		g.Go(func() error { return scan(gctx, i, s, selections[i]) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, i := range serial {
		if err := scan(ctx, i, scanners[i], selections[i]); err != nil {
			return nil, err
		}
	}

	var all []Dependency
	for _, r := range results {
		all = append(all, r...)
	}
	return Merge(all), nil
}
