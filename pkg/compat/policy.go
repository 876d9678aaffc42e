package compat

import (
	"fmt"
	"os"

	"github.com/fulmenhq/complic/pkg/safeio"
	"gopkg.in/yaml.v3"
)

// Policy is the YAML form of additional checkers:
//
//	checkers:
//	  - name: copyleft
//	    description: No weak copyleft next to strong copyleft
//	    origin: [GPL-3.0]
//	    incompatible: [Mozilla-1.1]
//	forbidden: [WTFPL]
type Policy struct {
	Checkers  []PolicyChecker `yaml:"checkers"`
	Forbidden []string        `yaml:"forbidden"`
}

// PolicyChecker configures one SetChecker.
type PolicyChecker struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Origin       []string `yaml:"origin"`
	Incompatible []string `yaml:"incompatible"`
}

// PolicyForbiddenName names the checker built from a policy's forbidden list.
const PolicyForbiddenName = "policy-forbidden"

// FromPolicy parses a YAML policy into checkers.
func FromPolicy(data []byte) ([]Checker, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse compatibility policy: %w", err)
	}

	seen := map[string]bool{}
	var checkers []Checker
	for i, pc := range p.Checkers {
		if pc.Name == "" {
			return nil, fmt.Errorf("policy checker %d has no name", i)
		}
		if seen[pc.Name] {
			return nil, fmt.Errorf("policy checker %q defined twice", pc.Name)
		}
		if len(pc.Origin) == 0 {
			return nil, fmt.Errorf("policy checker %q has no origin licenses", pc.Name)
		}
		seen[pc.Name] = true
		desc := pc.Description
		if desc == "" {
			desc = fmt.Sprintf("Licenses incompatible with %s", pc.Name)
		}
		checkers = append(checkers, NewSetChecker(pc.Name, desc, pc.Origin, pc.Incompatible))
	}

	if len(p.Forbidden) > 0 {
		if seen[PolicyForbiddenName] {
			return nil, fmt.Errorf("policy checker %q is reserved", PolicyForbiddenName)
		}
		checkers = append(checkers, NewForbiddenChecker(PolicyForbiddenName, "Licenses forbidden by policy", p.Forbidden))
	}
	return checkers, nil
}

// LoadPolicyFile reads and parses a YAML policy file.
func LoadPolicyFile(path string) ([]Checker, error) {
	clean, err := safeio.CleanUserPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to read compatibility policy: %w", err)
	}
	return FromPolicy(data)
}
