package scanner

import (
	"context"
	"encoding/json"
	"os"

	"github.com/fulmenhq/complic/pkg/logger"
	"github.com/fulmenhq/complic/pkg/registry"
)

// NPMScanner reads every package.json, including those under
// node_modules. Results are only as complete as the installed tree. When
// Lookup is set, packages declaring no license are looked up remotely.
type NPMScanner struct {
	Lookup registry.LicenseLookup
}

func (s *NPMScanner) Name() string       { return "npm" }
func (s *NPMScanner) Patterns() []string { return []string{"**/package.json"} }

func (s *NPMScanner) Scan(ctx context.Context, files []string) ([]Dependency, error) {
	var deps []Dependency
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(f) // #nosec G304 -- path comes from the scan tree
		if err != nil {
			logger.Warn("Failed to read package.json", logger.String("path", f), logger.Err(err))
			continue
		}
		dep, ok := ParsePackageJSON(data)
		if !ok {
			logger.Warn("File appears to be an invalid package.json", logger.String("path", f))
			continue
		}
		dep.Source = f
		if len(dep.Licenses) == 0 && s.Lookup != nil {
			dep.Licenses = s.lookup(ctx, data)
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

type packageJSON struct {
	Name     string          `json:"name"`
	Version  string          `json:"version"`
	License  json.RawMessage `json:"license"`
	Licenses json.RawMessage `json:"licenses"`
}

// ParsePackageJSON extracts js:<name>:<version> and its licenses. The
// legacy "licenses" field is honoured alongside "license".
func ParsePackageJSON(data []byte) (Dependency, bool) {
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return Dependency{}, false
	}
	licenses := append(registry.DecodeNPMLicense(pkg.License), registry.DecodeNPMLicense(pkg.Licenses)...)
	return Dependency{
		Identifier: identifier("js", pkg.Name, pkg.Version),
		Licenses:   licenses,
	}, true
}

func (s *NPMScanner) lookup(ctx context.Context, data []byte) []string {
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil || pkg.Name == "" || pkg.Version == "" {
		return nil
	}
	lics, err := s.Lookup.Licenses(ctx, pkg.Name, pkg.Version)
	if err != nil {
		logger.Debug("npm registry lookup failed", logger.String("package", pkg.Name), logger.Err(err))
		return nil
	}
	return lics
}
