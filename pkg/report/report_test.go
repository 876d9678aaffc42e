package report

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/fulmenhq/complic/pkg/compat"
	"github.com/fulmenhq/complic/pkg/licenses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC) }

func defaultRegistries(t *testing.T) (*licenses.PatternRegistry, *licenses.ApprovalRegistry) {
	t.Helper()
	rules, err := licenses.DefaultRules()
	require.NoError(t, err)
	reg, err := licenses.NewPatternRegistry(rules)
	require.NoError(t, err)
	return reg, licenses.ApprovalsFromRules(rules)
}

func TestAddLicense_Idempotent(t *testing.T) {
	r := New("demo", licenses.NewApprovalRegistry(map[string]bool{"MIT": true}), WithClock(fixedNow))
	require.NoError(t, r.AddLicense("MIT", "dep:1.0", true))
	require.NoError(t, r.AddLicense("MIT", "dep:1.0", true))

	doc, err := r.Render()
	require.NoError(t, err)
	assert.Equal(t, []string{"MIT"}, doc.Dependencies["dep:1.0"])
	assert.Equal(t, 1, doc.Summary.Licenses)
	assert.Equal(t, 0, doc.ProblemCount())
}

func TestRender_EndToEnd(t *testing.T) {
	reg, approvals := defaultRegistries(t)
	r := New("shop", approvals, WithClock(fixedNow), WithID("fixed"))

	require.NoError(t, r.AddDependency("dep:A", []string{"Licensed with BSD 2-Clause"}, reg))
	require.NoError(t, r.AddDependency("dep:B", []string{"GPL-2.0"}, reg))
	require.NoError(t, r.AddDependency("dep:C", []string{"CDDL-1.0"}, reg))

	doc, err := r.Render()
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"BSD-2": true, "GPL-2.0": true, "CDDL-1.0": true}, doc.Licenses)
	assert.Equal(t, map[string][]string{
		"dep:A": {"BSD-2"},
		"dep:B": {"GPL-2.0"},
		"dep:C": {"CDDL-1.0"},
	}, doc.Dependencies)

	gpl := doc.Compatibility[compat.GPLName]
	assert.True(t, gpl.Violated)
	assert.Equal(t, []string{"CDDL-1.0"}, gpl.Offending)
	assert.False(t, doc.Compatibility[compat.ForbiddenName].Violated)

	assert.Equal(t, map[string]bool{"BSD-2": true, "GPL-2.0": false, "CDDL-1.0": true}, doc.Approval)

	require.Len(t, doc.Problems, 2)
	assert.Equal(t, KindCompatibility, doc.Problems[0].Kind)
	assert.Equal(t, []string{"dep:C"}, doc.Problems[0].Dependencies)
	assert.Equal(t, KindNotApproved, doc.Problems[1].Kind)
	assert.Equal(t, "GPL-2.0", doc.Problems[1].Subject)
	assert.Equal(t, []string{"dep:B"}, doc.Problems[1].Dependencies)

	assert.Equal(t, Summary{
		Dependencies: 3, Licenses: 3, Approved: 2, NotApproved: 1, Unknown: 0, Problems: 2,
		Evidence: "On 2025-03-14, a license analysis was performed of project (shop), finding 3 unique dependencies. " +
			"Detected 3 licenses, having 2 approved, 1 not approved and 0 unknown.",
	}, doc.Summary)
	assert.Equal(t, "fixed", doc.ID)
}

func TestAddDependency_NoLicense(t *testing.T) {
	reg, approvals := defaultRegistries(t)
	r := New("demo", approvals, WithClock(fixedNow))

	require.NoError(t, r.AddDependency("dep:empty", nil, reg))
	require.NoError(t, r.AddDependency("dep:blank", []string{"  ", ""}, reg))

	doc, err := r.Render()
	require.NoError(t, err)
	assert.Equal(t, []string{NoLicense}, doc.Dependencies["dep:empty"])
	assert.Equal(t, []string{NoLicense}, doc.Dependencies["dep:blank"])
	assert.Equal(t, map[string]bool{NoLicense: false}, doc.Licenses)

	require.Len(t, doc.Problems, 1)
	assert.Equal(t, KindUnknown, doc.Problems[0].Kind)
	assert.Equal(t, []string{"dep:blank", "dep:empty"}, doc.Problems[0].Dependencies)
}

func TestRender_UnknownSurfacesAsProblem(t *testing.T) {
	reg, approvals := defaultRegistries(t)
	r := New("demo", approvals, WithClock(fixedNow))

	require.NoError(t, r.AddDependency("dep:x", []string{"Proprietary EULA", "MIT"}, reg))
	doc, err := r.Render()
	require.NoError(t, err)

	assert.False(t, doc.Licenses["Proprietary EULA"])
	assert.True(t, doc.Licenses["MIT"])
	_, hasApproval := doc.Approval["Proprietary EULA"]
	assert.False(t, hasApproval, "unknown names have no approval entry")

	require.Len(t, doc.Problems, 1)
	assert.Equal(t, KindUnknown, doc.Problems[0].Kind)
	assert.Equal(t, "Proprietary EULA", doc.Problems[0].Subject)
	assert.Equal(t, 1, doc.Summary.Unknown)
}

func TestRender_ApprovalErrorPropagates(t *testing.T) {
	r := New("demo", licenses.NewApprovalRegistry(map[string]bool{"MIT": true}), WithClock(fixedNow))
	require.NoError(t, r.AddLicense("ISC", "dep:1", true))

	_, err := r.Render()
	require.Error(t, err)
	assert.True(t, errors.Is(err, licenses.ErrUnknownLicense))

	// nothing was memoized, the report can still be fixed up
	require.NoError(t, r.AddLicense("MIT", "dep:2", true))
}

func TestRender_NoApprovals(t *testing.T) {
	r := New("demo", nil)
	_, err := r.Render()
	assert.Error(t, err)
}

func TestRender_WriteOnce(t *testing.T) {
	r := New("demo", licenses.NewApprovalRegistry(map[string]bool{"MIT": true}), WithClock(fixedNow))
	require.NoError(t, r.AddLicense("MIT", "dep:1", true))

	first, err := r.Render()
	require.NoError(t, err)
	second, err := r.Render()
	require.NoError(t, err)
	assert.Same(t, first, second)

	assert.ErrorIs(t, r.AddLicense("MIT", "dep:2", true), ErrFinalized)
	assert.ErrorIs(t, r.AddCompat(compat.GPL()), ErrFinalized)
}

func TestAddCompat_ExtraChecker(t *testing.T) {
	approvals := licenses.NewApprovalRegistry(map[string]bool{"MIT": true, "WTFPL": true})
	r := New("demo", approvals, WithClock(fixedNow), WithCheckers())
	require.NoError(t, r.AddCompat(compat.NewForbiddenChecker("no-wtfpl", "No WTFPL", []string{"WTFPL"})))
	require.NoError(t, r.AddLicense("WTFPL", "dep:1", true))

	doc, err := r.Render()
	require.NoError(t, err)
	assert.Len(t, doc.Compatibility, 1)
	require.Len(t, doc.Problems, 1)
	assert.Equal(t, "no-wtfpl", doc.Problems[0].Subject)
	assert.Equal(t, "No WTFPL: WTFPL", doc.Problems[0].Message)
}

func TestRoundTrip(t *testing.T) {
	reg, approvals := defaultRegistries(t)
	r := New("shop", approvals, WithClock(fixedNow))
	require.NoError(t, r.AddDependency("js:left-pad:1.3.0", []string{"WTFPL"}, reg))
	require.NoError(t, r.AddDependency("java:org.x:y:1", []string{"Apache License, Version 2.0", "MIT"}, reg))
	require.NoError(t, r.AddDependency("pod:Foo:1.0", nil, reg))

	doc, err := r.Render()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, doc.WriteJSON(&buf))

	parsed, err := Parse(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, doc.Licenses, parsed.Licenses)
	assert.Equal(t, doc.Dependencies, parsed.Dependencies)
	assert.Equal(t, doc.Compatibility, parsed.Compatibility)
	assert.Equal(t, doc.Problems, parsed.Problems)
	assert.True(t, doc.Date.Equal(parsed.Date))
	assert.Equal(t, doc.ProblemCount(), parsed.ProblemCount())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate([]byte(`{"date":"2025-01-01T00:00:00Z","licenses":{},"dependencies":{},"compatibility":{}}`)))

	err := Validate([]byte(`{"date":"2025-01-01T00:00:00Z","licenses":{"MIT":"yes"},"dependencies":{}}`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Issues)

	assert.Error(t, Validate([]byte(`{`)))

	_, err = Parse([]byte(`{"licenses":{}}`))
	assert.Error(t, err)
}

func approvalsFor(names ...string) *licenses.ApprovalRegistry {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return licenses.NewApprovalRegistry(m)
}

func TestAddDependency_UnmatchedTextCollidesWithCanonicalName(t *testing.T) {
	pattern, err := licenses.CompilePattern("The MIT License")
	require.NoError(t, err)
	reg, err := licenses.NewPatternRegistry([]licenses.Rule{{Name: "MIT", Pattern: pattern}})
	require.NoError(t, err)
	approvals := licenses.NewApprovalRegistry(map[string]bool{"MIT": true})

	orders := map[string][][2]string{
		"unknown first": {{"dep:unknown", "MIT"}, {"dep:known", "The MIT License"}},
		"known first":   {{"dep:known", "The MIT License"}, {"dep:unknown", "MIT"}},
	}
	for name, calls := range orders {
		t.Run(name, func(t *testing.T) {
			r := New("demo", approvals, WithClock(fixedNow))
			for _, c := range calls {
				require.NoError(t, r.AddDependency(c[0], []string{c[1]}, reg))
			}
			doc, err := r.Render()
			require.NoError(t, err)

			assert.Equal(t, map[string]bool{"MIT": false}, doc.Licenses)
			require.Len(t, doc.Problems, 1)
			assert.Equal(t, KindUnknown, doc.Problems[0].Kind)
			assert.Equal(t, "MIT", doc.Problems[0].Subject)
			assert.Equal(t, []string{"dep:known", "dep:unknown"}, doc.Problems[0].Dependencies)
		})
	}
}

func TestAddCompat_DuplicateName(t *testing.T) {
	approvals := licenses.NewApprovalRegistry(map[string]bool{"GPL-2.0": true, "CDDL-1.0": true})
	r := New("demo", approvals, WithClock(fixedNow))
	err := r.AddCompat(compat.NewSetChecker(compat.GPLName, "shadow", []string{"MIT"}, []string{"ISC"}))
	assert.ErrorIs(t, err, compat.ErrDuplicateChecker)

	require.NoError(t, r.AddLicense("GPL-2.0", "dep:1", true))
	require.NoError(t, r.AddLicense("CDDL-1.0", "dep:2", true))
	doc, err := r.Render()
	require.NoError(t, err)

	// the built-in result is not shadowed
	assert.Len(t, doc.Compatibility, 2)
	assert.True(t, doc.Compatibility[compat.GPLName].Violated)
	assert.Equal(t, []string{"CDDL-1.0"}, doc.Compatibility[compat.GPLName].Offending)
}

func TestRender_DuplicateCheckers(t *testing.T) {
	r := New("demo", licenses.NewApprovalRegistry(map[string]bool{"MIT": true}),
		WithCheckers(compat.GPL(), compat.NewForbiddenChecker(compat.GPLName, "shadow", []string{"ISC"})))
	require.NoError(t, r.AddLicense("MIT", "dep:1", true))

	_, err := r.Render()
	assert.ErrorIs(t, err, compat.ErrDuplicateChecker)
}
