package licenses

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fulmenhq/complic/internal/assets"
	"github.com/fulmenhq/complic/pkg/logger"
	"github.com/fulmenhq/complic/pkg/registry"
)

type inventoryEntry struct {
	Name     string `json:"name"`
	Regexp   string `json:"regexp"`
	Approved *bool  `json:"approved"`
}

// LoadInventory parses an inventory document keyed by canonical name.
// Unlike remote entries, a bundled inventory must be fully valid.
func LoadInventory(data []byte) ([]Rule, error) {
	var doc map[string]inventoryEntry
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse license inventory: %w", err)
	}

	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)

	rules := make([]Rule, 0, len(names))
	for _, name := range names {
		entry := doc[name]
		if entry.Regexp == "" {
			return nil, fmt.Errorf("inventory entry %q has no regexp", name)
		}
		re, err := CompilePattern(entry.Regexp)
		if err != nil {
			return nil, &MalformedEntryError{Name: name, Pattern: entry.Regexp, Err: err}
		}
		rules = append(rules, Rule{
			Name:     name,
			Title:    entry.Name,
			Pattern:  re,
			Approved: entry.Approved,
		})
	}
	return rules, nil
}

// DefaultRules returns the rules of the bundled inventory.
func DefaultRules() ([]Rule, error) {
	return LoadInventory(assets.Inventory)
}

// DefaultPatternRegistry builds a registry from the bundled inventory.
func DefaultPatternRegistry() (*PatternRegistry, error) {
	rules, err := DefaultRules()
	if err != nil {
		return nil, err
	}
	return NewPatternRegistry(rules)
}

// FromEntries builds a registry from remote entries. Entries without a
// regexp only carry approval and are left out. Malformed and duplicate
// entries are skipped and reported; the registry is still returned.
func FromEntries(entries []registry.Entry) (*PatternRegistry, []error) {
	var problems []error
	seen := make(map[string]bool, len(entries))
	rules := make([]Rule, 0, len(entries))

	for _, e := range entries {
		if e.Regexp == "" {
			continue
		}
		if seen[e.Name] {
			err := &DuplicateRuleError{Name: e.Name}
			logger.Warn("Skipping duplicate registry entry", logger.String("license", e.Name))
			problems = append(problems, err)
			continue
		}
		re, err := CompilePattern(e.Regexp)
		if err != nil {
			merr := &MalformedEntryError{Name: e.Name, Pattern: e.Regexp, Err: err}
			logger.Warn("Skipping malformed registry entry", logger.String("license", e.Name), logger.Err(err))
			problems = append(problems, merr)
			continue
		}
		seen[e.Name] = true
		rules = append(rules, Rule{Name: e.Name, Pattern: re, Approved: e.Approved, Status: e.Status})
	}

	// names are unique and patterns set, so construction cannot fail
	reg, err := NewPatternRegistry(rules)
	if err != nil {
		return &PatternRegistry{}, append(problems, err)
	}
	return reg, problems
}
