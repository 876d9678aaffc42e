package licenses

import (
	"errors"
	"fmt"
)

// ErrUnknownLicense is matched by every UnknownLicenseError.
var ErrUnknownLicense = errors.New("unknown license")

// UnknownLicenseError reports a raw string no rule matched, or a canonical
// name the approval registry has never seen.
type UnknownLicenseError struct {
	Name string
}

func (e *UnknownLicenseError) Error() string {
	return fmt.Sprintf("unknown license %q", e.Name)
}

func (e *UnknownLicenseError) Is(target error) bool {
	return target == ErrUnknownLicense
}

// MalformedEntryError is returned for a registry rule whose pattern does not
// compile. The rule is skipped; the rest of the registry stays usable.
type MalformedEntryError struct {
	Name    string
	Pattern string
	Err     error
}

func (e *MalformedEntryError) Error() string {
	return fmt.Sprintf("license %q has an invalid pattern %q: %v", e.Name, e.Pattern, e.Err)
}

func (e *MalformedEntryError) Unwrap() error { return e.Err }

// DuplicateRuleError reports two rules sharing a canonical name.
type DuplicateRuleError struct {
	Name string
}

func (e *DuplicateRuleError) Error() string {
	return fmt.Sprintf("duplicate license rule %q", e.Name)
}
