// Package exitcode provides the process exit codes for complic.
//
// Code 1 is reserved for internal failures. A run that completes and finds N
// approval or compatibility problems exits with 1+N, so CI callers can tell
// "the tool broke" from "the project has problems".
package exitcode

const (
	Success       = 0
	InternalError = 1

	// MaxProblems caps the problem-derived code below the shell-reserved range.
	MaxProblems = 125
)

// Problems returns the exit code for a run that found n problems.
func Problems(n int) int {
	if n <= 0 {
		return Success
	}
	if n >= MaxProblems-InternalError {
		return MaxProblems
	}
	return InternalError + n
}

// String returns a human-readable description of the exit code
func String(code int) string {
	switch {
	case code == Success:
		return "Success"
	case code == InternalError:
		return "Internal error"
	case code > InternalError && code < MaxProblems:
		return "Problems found"
	case code == MaxProblems:
		return "Problems found (count capped)"
	default:
		return "Unknown exit code"
	}
}
