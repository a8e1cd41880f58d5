package browser

import (
	"context"
	"errors"
	"fmt"
)

// LookupError means an element could not be found or used before the action timed out.
// It is transient: callers re-inspect the page and try again.
type LookupError struct {
	Selector string
	Action   string
	Cause    error
}

func (e *LookupError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: element not available: %v", e.Action, e.Selector, e.Cause)
	}
	return fmt.Sprintf("%s %s: element not available", e.Action, e.Selector)
}

func (e *LookupError) Unwrap() error {
	return e.Cause
}

// IsTransient reports whether err is a lookup failure that may succeed on a later read.
func IsTransient(err error) bool {
	var le *LookupError
	return errors.As(err, &le)
}

// wrapLookup converts an action timeout into a LookupError, leaving parent cancellation untouched.
func wrapLookup(parent context.Context, action, selector string, err error) error {
	if err == nil {
		return nil
	}
	if parent.Err() != nil {
		return parent.Err()
	}
	return &LookupError{Selector: selector, Action: action, Cause: err}
}
