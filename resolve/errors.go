package resolve

import (
	"errors"
	"fmt"
)

// ErrNoBackends is returned when resolution is attempted with zero
// configured backends. This is fatal: there is nothing to query.
var ErrNoBackends = errors.New("no backends configured")

// ErrUnknownBackend is returned when an explicitly selected backend or
// endpoint matches nothing in the configured set.
var ErrUnknownBackend = errors.New("backend not configured")

// ErrExhausted is returned when every configured backend failed to answer.
// Partial failure is tolerated; total failure is not.
var ErrExhausted = errors.New("resolution exhausted")

// WrapError wraps an error with additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapErrorf wraps an error with formatted additional context while
// preserving the ability to check against sentinel errors using errors.Is().
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
