package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoActiveSession            = errors.New("no active session for user")
	ErrInvalidURL                 = errors.New("invalid stream url")
	ErrUnsupportedModeCombination = errors.New("unsupported stream mode combination")
)

// HighlightConfigError reports a failed configuration exchange with the
// external highlighting service. No retry is attempted; a single failed
// attempt aborts the start operation.
type HighlightConfigError struct {
	StatusCode int
	Detail     string
	Err        error
}

func (e *HighlightConfigError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("highlight service configuration failed (status %d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("highlight service configuration failed: %s", e.Detail)
}

func (e *HighlightConfigError) Unwrap() error {
	return e.Err
}

// TransportError reports a device transport command that was rejected or could
// not be delivered.
type TransportError struct {
	Op     string
	Detail string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s failed: %s", e.Op, e.Detail)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
