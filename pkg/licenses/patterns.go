package licenses

import (
	"fmt"
	"sort"
	"strings"
)

// Normalizer turns a raw license string into a canonical name.
type Normalizer interface {
	Match(raw string) (string, error)
}

// PatternRegistry is an immutable, name-ordered set of rules.
// It is safe for concurrent use once constructed.
type PatternRegistry struct {
	rules []Rule
}

var _ Normalizer = (*PatternRegistry)(nil)

// NewPatternRegistry sorts rules by canonical name so the first-match
// result is reproducible. Duplicate names and rules without a pattern are
// rejected.
func NewPatternRegistry(rules []Rule) (*PatternRegistry, error) {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for i, r := range sorted {
		if r.Name == "" {
			return nil, fmt.Errorf("license rule %d has no name", i)
		}
		if r.Pattern == nil {
			return nil, fmt.Errorf("license rule %q has no pattern", r.Name)
		}
		if i > 0 && sorted[i-1].Name == r.Name {
			return nil, &DuplicateRuleError{Name: r.Name}
		}
	}
	return &PatternRegistry{rules: sorted}, nil
}

// Match returns the name of the first rule whose pattern matches raw.
// Leading and trailing whitespace is ignored.
func (p *PatternRegistry) Match(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	for _, r := range p.rules {
		if r.Pattern.MatchString(text) {
			return r.Name, nil
		}
	}
	return "", &UnknownLicenseError{Name: raw}
}

// MatchAll returns every rule name matching raw, in registry order.
func (p *PatternRegistry) MatchAll(raw string) []string {
	text := strings.TrimSpace(raw)
	var names []string
	for _, r := range p.rules {
		if r.Pattern.MatchString(text) {
			names = append(names, r.Name)
		}
	}
	return names
}

// Rules returns a copy of the rules in match order.
func (p *PatternRegistry) Rules() []Rule {
	out := make([]Rule, len(p.rules))
	copy(out, p.rules)
	return out
}

// Len returns the number of rules.
func (p *PatternRegistry) Len() int { return len(p.rules) }
