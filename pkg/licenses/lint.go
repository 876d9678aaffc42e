package licenses

import (
	"sort"
)

// Ambiguity describes a sample text that does not normalize to exactly
// the rule it was written for.
type Ambiguity struct {
	Rule    string
	Sample  string
	Matches []string
}

// Unmatched reports whether the owning rule failed to match its sample.
func (a Ambiguity) Unmatched() bool {
	for _, m := range a.Matches {
		if m == a.Rule {
			return false
		}
	}
	return true
}

// Samples returns, per rule, the texts it must recognize: its canonical
// name and, when present, its title.
func Samples(rules []Rule) map[string][]string {
	out := make(map[string][]string, len(rules))
	for _, r := range rules {
		s := []string{r.Name}
		if r.Title != "" && r.Title != r.Name {
			s = append(s, r.Title)
		}
		out[r.Name] = s
	}
	return out
}

// Ambiguities checks that every sample matches its own rule and no other.
// Samples keyed by a name absent from the registry are reported as
// unmatched.
func Ambiguities(reg *PatternRegistry, samples map[string][]string) []Ambiguity {
	names := make([]string, 0, len(samples))
	for n := range samples {
		names = append(names, n)
	}
	sort.Strings(names)

	var out []Ambiguity
	for _, name := range names {
		for _, sample := range samples[name] {
			matches := reg.MatchAll(sample)
			if len(matches) == 1 && matches[0] == name {
				continue
			}
			out = append(out, Ambiguity{Rule: name, Sample: sample, Matches: matches})
		}
	}
	return out
}
