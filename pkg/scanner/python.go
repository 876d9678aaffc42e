package scanner

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/fulmenhq/complic/pkg/logger"
	"github.com/fulmenhq/complic/pkg/registry"
)

// PythonScanner reads installed distribution metadata (*.dist-info/METADATA,
// *.egg-info/PKG-INFO) and pyproject.toml files.
type PythonScanner struct {
	Lookup registry.LicenseLookup
}

func (s *PythonScanner) Name() string { return "python" }

func (s *PythonScanner) Patterns() []string {
	return []string{"**/*.dist-info/METADATA", "**/*.egg-info/PKG-INFO", "**/pyproject.toml"}
}

func (s *PythonScanner) Scan(ctx context.Context, files []string) ([]Dependency, error) {
	var deps []Dependency
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(f) // #nosec G304 -- path comes from the scan tree
		if err != nil {
			logger.Warn("Failed to read python metadata", logger.String("path", f), logger.Err(err))
			continue
		}

		var (
			meta PackageMetadata
			ok   bool
		)
		if filepath.Base(f) == "pyproject.toml" {
			meta, ok = ParsePyProject(data)
		} else {
			meta, ok = ParseMetadata(data)
		}
		if !ok {
			logger.Warn("No package name in python metadata", logger.String("path", f))
			continue
		}

		licenses := meta.Licenses()
		if len(licenses) == 0 && s.Lookup != nil && meta.Version != "" {
			if remote, err := s.Lookup.Licenses(ctx, meta.Name, meta.Version); err == nil {
				licenses = remote
			} else {
				logger.Debug("PyPI lookup failed", logger.String("package", meta.Name), logger.Err(err))
			}
		}
		deps = append(deps, Dependency{
			Identifier: identifier("python", meta.Name, meta.Version),
			Licenses:   licenses,
			Source:     f,
		})
	}
	return deps, nil
}

// PackageMetadata holds the license-relevant core metadata fields.
type PackageMetadata struct {
	Name              string
	Version           string
	License           string
	LicenseExpression string
	Classifiers       []string
}

// Licenses picks, in order: License-Expression, a one-line License field,
// then "License ::" classifiers.
func (m PackageMetadata) Licenses() []string {
	if m.LicenseExpression != "" {
		return []string{m.LicenseExpression}
	}
	if l := strings.TrimSpace(m.License); l != "" && !strings.EqualFold(l, "UNKNOWN") {
		return []string{l}
	}
	return registry.ClassifierLicenses(m.Classifiers)
}

// ParseMetadata reads the header block of a PKG-INFO or METADATA file.
// Continuation lines are ignored, so a License field holding the full
// license text contributes only its first line.
func ParseMetadata(data []byte) (PackageMetadata, bool) {
	var m PackageMetadata
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			break
		}
		if line[0] == ' ' || line[0] == '\t' {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(key) {
		case "name":
			m.Name = value
		case "version":
			m.Version = value
		case "license":
			m.License = value
		case "license-expression":
			m.LicenseExpression = value
		case "classifier":
			m.Classifiers = append(m.Classifiers, value)
		}
	}
	return m, m.Name != ""
}

type pyProject struct {
	Project struct {
		Name        string      `toml:"name"`
		Version     string      `toml:"version"`
		License     interface{} `toml:"license"`
		Classifiers []string    `toml:"classifiers"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name    string `toml:"name"`
			Version string `toml:"version"`
			License string `toml:"license"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// ParsePyProject reads [project] (PEP 621) or [tool.poetry]. The license
// may be an SPDX expression string or a {text = "..."} table.
func ParsePyProject(data []byte) (PackageMetadata, bool) {
	var p pyProject
	if err := toml.Unmarshal(data, &p); err != nil {
		return PackageMetadata{}, false
	}

	m := PackageMetadata{
		Name:        p.Project.Name,
		Version:     p.Project.Version,
		Classifiers: p.Project.Classifiers,
	}
	switch lic := p.Project.License.(type) {
	case string:
		m.LicenseExpression = lic
	case map[string]interface{}:
		if text, ok := lic["text"].(string); ok {
			m.License = firstLine(text)
		}
	}

	poetry := p.Tool.Poetry
	if m.Name == "" {
		m.Name = poetry.Name
	}
	if m.Version == "" {
		m.Version = poetry.Version
	}
	if m.License == "" && m.LicenseExpression == "" {
		m.License = poetry.License
	}
	return m, m.Name != ""
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
