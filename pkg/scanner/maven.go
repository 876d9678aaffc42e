package scanner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"

	"github.com/fulmenhq/complic/pkg/logger"
)

const (
	thirdPartyFile = "THIRD-PARTY.txt"
	licensePlugin  = "org.codehaus.mojo:license-maven-plugin:1.13:aggregate-add-third-party"
)

var errNotPom = errors.New("document is not a maven pom")

// MavenScanner reads the THIRD-PARTY.txt reports of license-maven-plugin
// and the <licenses> of .pom files found in a local repository. When
// RunMaven is set and a pom.xml has no report yet, the plugin is run.
type MavenScanner struct {
	Runner   CommandRunner
	RunMaven bool
}

func (s *MavenScanner) Name() string { return "maven" }

func (s *MavenScanner) Patterns() []string {
	return []string{"**/pom.xml", "**/" + thirdPartyFile, "**/*.pom"}
}

func (s *MavenScanner) Scan(ctx context.Context, files []string) ([]Dependency, error) {
	reports := map[string]bool{}
	var order []string
	addReport := func(p string) {
		if !reports[p] {
			reports[p] = true
			order = append(order, p)
		}
	}

	var deps []Dependency
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch {
		case filepath.Base(f) == thirdPartyFile:
			addReport(f)
		case filepath.Base(f) == "pom.xml":
			report := filepath.Join(filepath.Dir(f), "target", "generated-sources", "license", thirdPartyFile)
			if _, err := os.Stat(report); err != nil && !s.generate(ctx, f) {
				continue
			}
			addReport(report)
		case strings.HasSuffix(f, ".pom"):
			data, err := os.ReadFile(f) // #nosec G304 -- path comes from the scan tree
			if err != nil {
				logger.Warn("Failed to read pom", logger.String("path", f), logger.Err(err))
				continue
			}
			dep, err := ParsePom(data)
			if err != nil {
				logger.Warn("Failed to parse pom", logger.String("path", f), logger.Err(err))
				continue
			}
			dep.Source = f
			deps = append(deps, dep)
		}
	}

	for _, report := range order {
		data, err := os.ReadFile(report) // #nosec G304 -- path comes from the scan tree
		if err != nil {
			logger.Warn("Failed to read third-party report", logger.String("path", report), logger.Err(err))
			continue
		}
		parsed := ParseThirdParty(data)
		for i := range parsed {
			parsed[i].Source = report
		}
		logger.Debug("Parsed third-party report", logger.String("path", report), logger.Int("dependencies", len(parsed)))
		deps = append(deps, parsed...)
	}
	return deps, nil
}

// generate runs license-maven-plugin for pom and reports success.
func (s *MavenScanner) generate(ctx context.Context, pom string) bool {
	if !s.RunMaven || s.Runner == nil {
		logger.Debug("No third-party report for pom", logger.String("path", pom))
		return false
	}
	if _, err := s.Runner.LookPath("mvn"); err != nil {
		logger.Warn("mvn not found on PATH, skipping pom", logger.String("path", pom))
		return false
	}
	logger.Info("Running license-maven-plugin", logger.String("pom", pom))
	if _, err := s.Runner.Run(ctx, filepath.Dir(pom), "mvn", licensePlugin, "-q", "-U", "-B", "-f", pom); err != nil {
		logger.Error("license-maven-plugin failed", logger.String("pom", pom), logger.Err(err))
		return false
	}
	return true
}

// ParseThirdParty parses license-maven-plugin output lines of the form
//
//	(License A) (License B) Display Name (group:artifact:version - url)
//
// License groups may themselves contain parentheses.
func ParseThirdParty(data []byte) []Dependency {
	var deps []Dependency
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "List") {
			continue
		}
		licenses, rest := leadingGroups(line)
		if len(licenses) == 0 {
			continue
		}
		coords, ok := trailingGroup(rest)
		if !ok {
			continue
		}
		if i := strings.Index(coords, " - "); i >= 0 {
			coords = coords[:i]
		}
		coords = strings.TrimSpace(coords)
		if coords == "" {
			continue
		}
		deps = append(deps, Dependency{Identifier: "java:" + coords, Licenses: licenses})
	}
	return deps
}

// leadingGroups consumes balanced "(...)" groups at the start of s.
func leadingGroups(s string) ([]string, string) {
	var groups []string
	for {
		s = strings.TrimLeft(s, " \t")
		if !strings.HasPrefix(s, "(") {
			return groups, s
		}
		depth := 0
		end := -1
		for i, r := range s {
			switch r {
			case '(':
				depth++
			case ')':
				depth--
			}
			if depth == 0 {
				end = i
				break
			}
		}
		if end < 0 {
			return groups, s
		}
		groups = append(groups, strings.TrimSpace(s[1:end]))
		s = s[end+1:]
	}
}

// trailingGroup returns the contents of the balanced group ending s.
func trailingGroup(s string) (string, bool) {
	s = strings.TrimRight(s, " \t")
	if !strings.HasSuffix(s, ")") {
		return "", false
	}
	depth := 0
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				return s[i+1 : len(s)-1], true
			}
		}
	}
	return "", false
}

// ParsePom extracts coordinates and license names from a .pom document.
// groupId and version fall back to the <parent> element.
func ParsePom(data []byte) (Dependency, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return Dependency{}, err
	}
	project := doc.SelectElement("project")
	if project == nil {
		return Dependency{}, errNotPom
	}

	group := childText(project, "groupId")
	version := childText(project, "version")
	if parent := project.SelectElement("parent"); parent != nil {
		if group == "" {
			group = childText(parent, "groupId")
		}
		if version == "" {
			version = childText(parent, "version")
		}
	}
	artifact := childText(project, "artifactId")
	if artifact == "" {
		return Dependency{}, errNotPom
	}

	dep := Dependency{Identifier: identifier("java", group, artifact, version)}
	for _, lic := range project.FindElements("./licenses/license") {
		if name := childText(lic, "name"); name != "" {
			dep.Licenses = append(dep.Licenses, name)
		}
	}
	return dep, nil
}

func childText(el *etree.Element, tag string) string {
	child := el.SelectElement(tag)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.Text())
}
