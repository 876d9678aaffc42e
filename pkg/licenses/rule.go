package licenses

import (
	"regexp"
)

// Rule maps raw license text onto one canonical name.
// Approved is nil when the rule source carries no approval decision.
type Rule struct {
	Name     string
	Title    string
	Pattern  *regexp.Regexp
	Approved *bool
	Status   string
}

// CompilePattern wraps a registry regexp fragment so it matches
// case-insensitively at the start of the input.
func CompilePattern(fragment string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)^(?:" + fragment + ")")
}
