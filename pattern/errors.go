package pattern

import (
	"errors"
	"fmt"
)

// ErrSyntax is the sentinel underlying every SyntaxError. Callers can use
// errors.Is(err, ErrSyntax) without caring about the specific reason.
var ErrSyntax = errors.New("invalid pattern syntax")

// SyntaxError describes why a raw pattern failed to parse. It is the only
// fatal, pre-network error in the resolution pipeline.
type SyntaxError struct {
	Pattern string
	Reason  string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("pattern %q: %s", e.Pattern, e.Reason)
}

// Unwrap makes errors.Is(err, ErrSyntax) work.
func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

func newSyntaxError(pattern, reason string) *SyntaxError {
	return &SyntaxError{Pattern: pattern, Reason: reason}
}
