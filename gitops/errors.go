package gitops

import (
	"errors"
	"fmt"
)

// ErrAuthFailed is returned when the remote rejected the supplied
// credentials during clone or pull.
var ErrAuthFailed = errors.New("git authentication failed")

// ErrNetworkFailed is returned for transport-level failures while talking
// to the remote (unreachable host, timeout, interrupted transfer).
var ErrNetworkFailed = errors.New("git network failure")

// ErrDirtyTree is returned when an operation requires a clean worktree but
// local modifications are present.
var ErrDirtyTree = errors.New("worktree has local modifications")

// ErrNotARepo is returned when a path exists but does not contain a git
// repository.
var ErrNotARepo = errors.New("not a git repository")

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
