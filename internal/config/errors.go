package config

import "fmt"

// FatalConfigError reports a registry entry that cannot be used at all.
// Commands abort when they encounter one.
type FatalConfigError struct {
	Field string
	Path  string
	Err   error
}

func (e *FatalConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid configuration for %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid configuration for %s (%s): %v", e.Field, e.Path, e.Err)
}

func (e *FatalConfigError) Unwrap() error { return e.Err }
