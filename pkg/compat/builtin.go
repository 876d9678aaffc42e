package compat

// Names of the built-in checkers.
const (
	GPLName       = "gpl"
	ForbiddenName = "forbidden"
)

var gplOrigin = []string{"GPL-2.0", "GPL-3.0"}

var gplIncompatible = []string{
	"AGPL-V1",
	"AFL-3.0",
	"Apache-1.0",
	"Apache-1.1",
	"APSL-2.0",
	"CDDL-1.0",
	"CPAL-1.0",
	"CPL-1.0",
	"Eclipse-1.0",
	"Eclipse-2.0",
	"EUPL-1.1",
	"IBMPL-1.0",
	"Lucent-1.02",
	"MS-PL",
	"Mozilla-1.1",
	"Nokia-1.0a",
	"OSL-3.0",
	"PHP-3.0",
	"SUNPublic-1.0",
}

var forbidden = []string{"AGPL-V1"}

// GPL flags licenses that cannot be combined with GPL-2.0 or GPL-3.0 code.
func GPL() *SetChecker {
	return NewSetChecker(GPLName, "Licenses incompatible with the GPL", gplOrigin, gplIncompatible)
}

// Forbidden flags licenses that may never be used.
func Forbidden() *SetChecker {
	return NewForbiddenChecker(ForbiddenName, "Forbidden licenses", forbidden)
}

// Defaults returns the checkers every report runs.
func Defaults() []Checker {
	return []Checker{GPL(), Forbidden()}
}
