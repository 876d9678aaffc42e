package scanner

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/fulmenhq/complic/pkg/logger"
	"github.com/fulmenhq/complic/pkg/registry"
)

var podEntry = regexp.MustCompile(`^([^\s(]+)\s*\(([^)]*)\)`)

// CocoaPodsScanner reads Podfile.lock and asks `pod spec cat` for each
// pod's license. Without pod on PATH, pods are reported without licenses.
type CocoaPodsScanner struct {
	Runner CommandRunner

	warnOnce sync.Once
}

func (s *CocoaPodsScanner) Name() string       { return "cocoapods" }
func (s *CocoaPodsScanner) Patterns() []string { return []string{"**/Podfile.lock"} }

func (s *CocoaPodsScanner) Scan(ctx context.Context, files []string) ([]Dependency, error) {
	specs := map[string][]string{}
	var deps []Dependency
	for _, f := range files {
		data, err := os.ReadFile(f) // #nosec G304 -- path comes from the scan tree
		if err != nil {
			logger.Warn("Failed to read Podfile.lock", logger.String("path", f), logger.Err(err))
			continue
		}
		pods, err := ParsePodfileLock(data)
		if err != nil {
			logger.Warn("Failed to parse Podfile.lock", logger.String("path", f), logger.Err(err))
			continue
		}
		for _, p := range pods {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			lics, ok := specs[p.Name]
			if !ok {
				lics = s.specLicenses(ctx, filepath.Dir(f), p.Name)
				specs[p.Name] = lics
			}
			deps = append(deps, Dependency{
				Identifier: identifier("pod", p.Name, p.Version),
				Licenses:   lics,
				Source:     f,
			})
		}
	}
	return deps, nil
}

// Pod is one resolved pod. Subspecs are folded into their root pod.
type Pod struct {
	Name    string
	Version string
}

// ParsePodfileLock returns the unique root pods of the PODS section,
// sorted by name.
func ParsePodfileLock(data []byte) ([]Pod, error) {
	var lock struct {
		Pods []interface{} `yaml:"PODS"`
	}
	if err := yaml.Unmarshal(data, &lock); err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var pods []Pod
	add := func(entry string) {
		m := podEntry.FindStringSubmatch(strings.TrimSpace(entry))
		if m == nil {
			return
		}
		name := strings.SplitN(m[1], "/", 2)[0]
		version := strings.TrimSpace(strings.TrimLeft(m[2], "<>=~ "))
		key := name + "@" + version
		if seen[key] {
			return
		}
		seen[key] = true
		pods = append(pods, Pod{Name: name, Version: version})
	}

	for _, item := range lock.Pods {
		switch v := item.(type) {
		case string:
			add(v)
		case map[string]interface{}:
			for k := range v {
				add(k)
			}
		}
	}
	sort.Slice(pods, func(i, j int) bool {
		if pods[i].Name != pods[j].Name {
			return pods[i].Name < pods[j].Name
		}
		return pods[i].Version < pods[j].Version
	})
	return pods, nil
}

func (s *CocoaPodsScanner) specLicenses(ctx context.Context, dir, name string) []string {
	if s.Runner == nil {
		return nil
	}
	if _, err := s.Runner.LookPath("pod"); err != nil {
		s.warnOnce.Do(func() {
			logger.Warn("pod not found on PATH, CocoaPods licenses cannot be resolved")
		})
		return nil
	}
	out, err := s.Runner.Run(ctx, dir, "pod", "spec", "cat", name)
	if err != nil {
		logger.Warn("pod spec cat failed", logger.String("pod", name), logger.Err(err))
		return nil
	}
	return PodspecLicenses(out)
}

// PodspecLicenses reads the license of a JSON podspec, either a string or
// a {"type": ...} object.
func PodspecLicenses(data []byte) []string {
	var spec struct {
		License json.RawMessage `json:"license"`
	}
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil
	}
	return registry.DecodeNPMLicense(spec.License)
}
