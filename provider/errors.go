package provider

import (
	"errors"
	"fmt"
)

// Backend query failure taxonomy. Every error returned by a Provider's List
// wraps exactly one of these sentinels so the resolver and retry policy can
// classify failures with errors.Is.

// ErrAuth is returned when the backend rejected the supplied credentials.
var ErrAuth = errors.New("authentication failed")

// ErrRateLimited is returned when the backend throttled the request.
var ErrRateLimited = errors.New("rate limited")

// ErrNotFound is returned when the queried organization or project does
// not exist on the backend.
var ErrNotFound = errors.New("not found")

// ErrNetwork is returned for transport-level failures (refused connections,
// timeouts, malformed responses).
var ErrNetwork = errors.New("network failure")

// ErrUnknownKind is returned when building a provider for an unregistered kind.
var ErrUnknownKind = errors.New("unknown provider kind")

// QueryError is a per-backend listing failure. It is non-fatal: the resolver
// records it in the failed-backend set and continues with the remaining
// backends.
type QueryError struct {
	// Backend is the descriptor name of the failing backend.
	Backend string

	// Err wraps one of the taxonomy sentinels.
	Err error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("backend %q: %v", e.Backend, e.Err)
}

// Unwrap exposes the underlying taxonomy sentinel to errors.Is.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError wraps a listing failure with its backend identity.
func NewQueryError(backend string, err error) *QueryError {
	return &QueryError{Backend: backend, Err: err}
}

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
