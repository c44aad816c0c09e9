package config

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no configuration file exists at the
// resolved path.
var ErrNotFound = errors.New("configuration file not found")

// ErrInvalid is returned when the configuration file cannot be parsed or
// fails validation.
var ErrInvalid = errors.New("invalid configuration")

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
