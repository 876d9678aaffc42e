package licenses

import (
	"sort"

	"github.com/fulmenhq/complic/pkg/registry"
)

// ApprovalRegistry answers whether a canonical license may be used.
type ApprovalRegistry struct {
	approved map[string]bool
}

// NewApprovalRegistry copies the given decisions.
func NewApprovalRegistry(decisions map[string]bool) *ApprovalRegistry {
	m := make(map[string]bool, len(decisions))
	for k, v := range decisions {
		m[k] = v
	}
	return &ApprovalRegistry{approved: m}
}

// ApprovalsFromEntries takes every remote entry, with or without a regexp.
// An entry whose approved flag is null is known but not approved.
func ApprovalsFromEntries(entries []registry.Entry) *ApprovalRegistry {
	m := make(map[string]bool, len(entries))
	for _, e := range entries {
		if _, dup := m[e.Name]; dup {
			continue
		}
		m[e.Name] = e.Approved != nil && *e.Approved
	}
	return &ApprovalRegistry{approved: m}
}

// ApprovalsFromRules derives decisions from rules that carry one.
func ApprovalsFromRules(rules []Rule) *ApprovalRegistry {
	m := make(map[string]bool, len(rules))
	for _, r := range rules {
		if r.Approved != nil {
			m[r.Name] = *r.Approved
		}
	}
	return &ApprovalRegistry{approved: m}
}

// IsApproved returns the decision for name. A name the registry never
// loaded yields an *UnknownLicenseError rather than false.
func (a *ApprovalRegistry) IsApproved(name string) (bool, error) {
	approved, ok := a.approved[name]
	if !ok {
		return false, &UnknownLicenseError{Name: name}
	}
	return approved, nil
}

// Names returns every known name, sorted.
func (a *ApprovalRegistry) Names() []string {
	names := make([]string, 0, len(a.approved))
	for n := range a.approved {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of known names.
func (a *ApprovalRegistry) Len() int { return len(a.approved) }
