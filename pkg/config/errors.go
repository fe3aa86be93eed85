package config

import (
	"errors"
	"fmt"
)

// Error reports a missing or malformed required input. It is fatal and
// never retried.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
}

// IsConfigurationError returns true if the error is a configuration error.
// This is used at the process boundary to pick the exit code.
func IsConfigurationError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}
