package syncer

import (
	"errors"
	"fmt"
)

// ErrConfirmationDeclined is returned when a force-mode run was aborted
// because the destructive plan was not confirmed.
var ErrConfirmationDeclined = errors.New("destructive sync not confirmed")

// ErrUnknownMode is returned when a mode name is not recognized.
var ErrUnknownMode = errors.New("unknown sync mode")

// ErrNoGitClient is returned when a scheduler is built without a git
// client.
var ErrNoGitClient = errors.New("git client is required")

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
