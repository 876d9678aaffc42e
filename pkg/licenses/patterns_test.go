package licenses

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRule(t *testing.T, name, fragment string, approved *bool) Rule {
	t.Helper()
	re, err := CompilePattern(fragment)
	require.NoError(t, err)
	return Rule{Name: name, Pattern: re, Approved: approved}
}

func TestPatternRegistry_FirstMatchByName(t *testing.T) {
	// both rules match "BSD License"; sorted order makes BSD win
	reg, err := NewPatternRegistry([]Rule{
		mustRule(t, "BSD-3", "BSD", nil),
		mustRule(t, "BSD", "BSD", nil),
	})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		got, err := reg.Match("BSD License")
		require.NoError(t, err)
		assert.Equal(t, "BSD", got)
	}
	assert.Equal(t, []string{"BSD", "BSD-3"}, reg.MatchAll("BSD License"))
}

func TestPatternRegistry_CaseInsensitivePrefix(t *testing.T) {
	reg, err := NewPatternRegistry([]Rule{mustRule(t, "MIT", "MIT", nil)})
	require.NoError(t, err)

	got, err := reg.Match("mit license, see LICENSE file")
	require.NoError(t, err)
	assert.Equal(t, "MIT", got)

	_, err = reg.Match("Licensed under MIT")
	assert.ErrorIs(t, err, ErrUnknownLicense, "match is anchored at the start")
}

func TestPatternRegistry_Unknown(t *testing.T) {
	reg, err := NewPatternRegistry([]Rule{mustRule(t, "MIT", "MIT", nil)})
	require.NoError(t, err)

	_, err = reg.Match("Proprietary")
	var unknown *UnknownLicenseError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "Proprietary", unknown.Name)
	assert.ErrorIs(t, err, ErrUnknownLicense)
}

func TestNewPatternRegistry_Rejects(t *testing.T) {
	_, err := NewPatternRegistry([]Rule{
		mustRule(t, "MIT", "MIT", nil),
		mustRule(t, "MIT", "Expat", nil),
	})
	var dup *DuplicateRuleError
	assert.True(t, errors.As(err, &dup))

	_, err = NewPatternRegistry([]Rule{{Name: "MIT"}})
	assert.Error(t, err)

	_, err = NewPatternRegistry([]Rule{{Pattern: regexp.MustCompile("x")}})
	assert.Error(t, err)
}

func TestPatternRegistry_RulesIsCopy(t *testing.T) {
	reg, err := NewPatternRegistry([]Rule{mustRule(t, "MIT", "MIT", nil)})
	require.NoError(t, err)

	rules := reg.Rules()
	rules[0].Name = "changed"
	got, err := reg.Match("MIT")
	require.NoError(t, err)
	assert.Equal(t, "MIT", got)
	assert.Equal(t, 1, reg.Len())
}

func TestDefaultPatternRegistry(t *testing.T) {
	reg, err := DefaultPatternRegistry()
	require.NoError(t, err)
	require.NotZero(t, reg.Len())

	tests := []struct {
		raw  string
		want string
	}{
		{"Licensed with BSD 2-Clause", "BSD-2"},
		{"BSD 3-Clause License", "BSD-3"},
		{"The MIT License", "MIT"},
		{"Apache License, Version 2.0", "Apache-2.0"},
		{"Apache-2.0", "Apache-2.0"},
		{"GPLv2", "GPL-2.0"},
		{"GPL-2.0", "GPL-2.0"},
		{"CDDL-1.0", "CDDL-1.0"},
		{"Eclipse Public License - v 1.0", "Eclipse-1.0"},
		{"Mozilla Public License 2.0", "Mozilla-2.0"},
		{"GNU Lesser General Public License v2.1", "LGPL-2.1"},
		{"ISC", "ISC"},
	}
	for _, tt := range tests {
		got, err := reg.Match(tt.raw)
		if assert.NoError(t, err, tt.raw) {
			assert.Equal(t, tt.want, got, tt.raw)
		}
	}

	_, err = reg.Match("CDDL-1.1")
	assert.ErrorIs(t, err, ErrUnknownLicense)
}

func TestDefaultInventoryIsUnambiguous(t *testing.T) {
	rules, err := DefaultRules()
	require.NoError(t, err)
	reg, err := NewPatternRegistry(rules)
	require.NoError(t, err)

	assert.Empty(t, Ambiguities(reg, Samples(rules)))
}

func TestLoadInventory_Invalid(t *testing.T) {
	_, err := LoadInventory([]byte(`{"X": {"name": "x", "regexp": "("}}`))
	var merr *MalformedEntryError
	assert.True(t, errors.As(err, &merr))

	_, err = LoadInventory([]byte(`{"X": {"name": "x"}}`))
	assert.Error(t, err)

	_, err = LoadInventory([]byte(`[]`))
	assert.Error(t, err)
}
