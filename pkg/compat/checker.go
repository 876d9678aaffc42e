// Package compat detects license combinations a project must not ship.
package compat

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDuplicateChecker is returned when two checkers share a name.
var ErrDuplicateChecker = errors.New("duplicate compatibility checker")

// Checker evaluates one policy against the set of canonical license names
// present in a project.
type Checker interface {
	Name() string
	Description() string
	Check(licenses []string) Result
}

// Result is the outcome of one Checker. Offending is sorted and never nil.
type Result struct {
	Description string   `json:"description"`
	Violated    bool     `json:"violated"`
	Offending   []string `json:"offending"`
	Error       string   `json:"error,omitempty"`
}

// Unique fails when two checkers share a name, since results are keyed by it.
func Unique(checkers []Checker) error {
	seen := make(map[string]bool, len(checkers))
	for _, c := range checkers {
		if seen[c.Name()] {
			return fmt.Errorf("%w: %q", ErrDuplicateChecker, c.Name())
		}
		seen[c.Name()] = true
	}
	return nil
}

// SetChecker flags the incompatible licenses present whenever at least one
// origin license is present. The rule is one-directional: incompatible
// licenses alone never trigger it.
type SetChecker struct {
	name         string
	description  string
	origin       map[string]struct{}
	incompatible map[string]struct{}
}

var _ Checker = (*SetChecker)(nil)

// NewSetChecker creates a checker from origin and incompatible names.
func NewSetChecker(name, description string, origin, incompatible []string) *SetChecker {
	return &SetChecker{
		name:         name,
		description:  description,
		origin:       toSet(origin),
		incompatible: toSet(incompatible),
	}
}

// NewForbiddenChecker flags the listed licenses on their own, regardless of
// what else is present.
func NewForbiddenChecker(name, description string, forbidden []string) *SetChecker {
	return NewSetChecker(name, description, forbidden, forbidden)
}

func (c *SetChecker) Name() string        { return c.name }
func (c *SetChecker) Description() string { return c.description }

// Origin returns the trigger licenses, sorted.
func (c *SetChecker) Origin() []string { return sortedKeys(c.origin) }

// Incompatible returns the licenses that must not co-occur with an origin license, sorted.
func (c *SetChecker) Incompatible() []string { return sortedKeys(c.incompatible) }

func (c *SetChecker) Check(licenses []string) Result {
	res := Result{Description: c.description, Offending: []string{}}

	present := toSet(licenses)
	triggered := false
	for name := range present {
		if _, ok := c.origin[name]; ok {
			triggered = true
			break
		}
	}
	if !triggered {
		return res
	}

	for name := range present {
		if _, ok := c.incompatible[name]; ok {
			res.Offending = append(res.Offending, name)
		}
	}
	sort.Strings(res.Offending)
	res.Violated = len(res.Offending) > 0
	return res
}

func toSet(names []string) map[string]struct{} {
	s := make(map[string]struct{}, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func sortedKeys(s map[string]struct{}) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
