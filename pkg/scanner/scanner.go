// Package scanner discovers dependencies and their declared license
// strings inside a project tree, one Scanner per ecosystem.
package scanner

import (
	"context"
	"sort"
)

// Dependency is one discovered package with its raw, unnormalized
// license strings. Identifiers are "<ecosystem>:<coordinates>".
type Dependency struct {
	Identifier string   `json:"identifier"`
	Licenses   []string `json:"licenses"`
	Source     string   `json:"source,omitempty"`
}

// Scanner extracts dependencies from the files matching its patterns.
// Files are absolute paths. A file that cannot be parsed is logged and
// skipped; an error return aborts the whole scan.
type Scanner interface {
	Name() string
	Patterns() []string
	Scan(ctx context.Context, files []string) ([]Dependency, error)
}

// Merge unions the licenses of dependencies sharing an identifier. The
// result is sorted by identifier; each license list is sorted and unique.
func Merge(deps []Dependency) []Dependency {
	index := make(map[string]int, len(deps))
	seen := make(map[string]map[string]bool, len(deps))
	var out []Dependency

	for _, d := range deps {
		i, ok := index[d.Identifier]
		if !ok {
			i = len(out)
			index[d.Identifier] = i
			seen[d.Identifier] = map[string]bool{}
			out = append(out, Dependency{Identifier: d.Identifier, Source: d.Source, Licenses: []string{}})
		}
		for _, l := range d.Licenses {
			if l == "" || seen[d.Identifier][l] {
				continue
			}
			seen[d.Identifier][l] = true
			out[i].Licenses = append(out[i].Licenses, l)
		}
	}

	for i := range out {
		sort.Strings(out[i].Licenses)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out
}

func identifier(parts ...string) string {
	id := ""
	for i, p := range parts {
		if i > 0 {
			id += ":"
		}
		if p == "" {
			p = "<none>"
		}
		id += p
	}
	return id
}
