package compat

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fulmenhq/complic/pkg/logger"
	"github.com/fulmenhq/complic/pkg/safeio"
	"github.com/open-policy-agent/opa/v1/rego"
)

// RegoQuery is the rule a rego policy must define: a set of offending
// license names.
const RegoQuery = "data.complic.compat.deny"

const regoTimeout = 10 * time.Second

// RegoChecker evaluates an OPA policy. The module must declare
// "package complic.compat" and a "deny" set; input is
// {"licenses": [...]}.
type RegoChecker struct {
	name        string
	description string
	query       rego.PreparedEvalQuery
}

var _ Checker = (*RegoChecker)(nil)

// NewRegoChecker compiles the module once so syntax errors surface up front.
func NewRegoChecker(ctx context.Context, name, description, module string) (*RegoChecker, error) {
	pq, err := rego.New(
		rego.Query(RegoQuery),
		rego.Module(name+".rego", module),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile rego policy %q: %w", name, err)
	}
	return &RegoChecker{name: name, description: description, query: pq}, nil
}

// LoadRegoFile reads a rego module from disk.
func LoadRegoFile(ctx context.Context, path string) (*RegoChecker, error) {
	clean, err := safeio.CleanUserPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to read rego policy: %w", err)
	}
	return NewRegoChecker(ctx, "rego", "Licenses denied by rego policy", string(data))
}

func (c *RegoChecker) Name() string        { return c.name }
func (c *RegoChecker) Description() string { return c.description }

// Check evaluates the policy. An evaluation failure is reported as a
// violated result carrying the error, never as a pass.
func (c *RegoChecker) Check(licenses []string) Result {
	res := Result{Description: c.description, Offending: []string{}}

	names := append([]string{}, licenses...)
	sort.Strings(names)
	input := map[string]interface{}{"licenses": names}

	ctx, cancel := context.WithTimeout(context.Background(), regoTimeout)
	defer cancel()

	rs, err := c.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		logger.Error("Rego policy evaluation failed", logger.String("checker", c.name), logger.Err(err))
		res.Violated = true
		res.Error = err.Error()
		return res
	}

	seen := map[string]bool{}
	for _, r := range rs {
		for _, expr := range r.Expressions {
			values, ok := expr.Value.([]interface{})
			if !ok {
				continue
			}
			for _, v := range values {
				s, ok := v.(string)
				if !ok || seen[s] {
					continue
				}
				seen[s] = true
				res.Offending = append(res.Offending, s)
			}
		}
	}
	sort.Strings(res.Offending)
	res.Violated = len(res.Offending) > 0
	return res
}
