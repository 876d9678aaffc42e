package registry

import (
	"errors"
	"fmt"
)

// ErrRegistryUnavailable is matched by every RegistryUnavailableError.
var ErrRegistryUnavailable = errors.New("license registry unavailable")

// RegistryUnavailableError reports that registry data could not be obtained
// from the network and no usable cache was present.
type RegistryUnavailableError struct {
	Source string
	Err    error
}

func (e *RegistryUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("license registry %q unavailable", e.Source)
	}
	return fmt.Sprintf("license registry %q unavailable: %v", e.Source, e.Err)
}

func (e *RegistryUnavailableError) Unwrap() error { return e.Err }

func (e *RegistryUnavailableError) Is(target error) bool {
	return target == ErrRegistryUnavailable
}

// StatusError is returned when a registry answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.StatusCode)
}
