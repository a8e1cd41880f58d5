package apply

import (
	"errors"
	"fmt"
)

// ErrElementNotFound means a snapshot element has no usable selector in the live page.
var ErrElementNotFound = errors.New("element not found")

// ErrNoPendingPause is returned when resuming while nothing is paused.
var ErrNoPendingPause = errors.New("no pause is pending")

// ErrStalePause is returned when resuming a pause that is no longer the pending one.
var ErrStalePause = errors.New("pause is no longer pending")

// ActionError represents a failure invoking a control on the current step
type ActionError struct {
	Label string
	Cause error
}

func (e *ActionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("action %q failed: %v", e.Label, e.Cause)
	}
	return fmt.Sprintf("action %q failed", e.Label)
}

func (e *ActionError) Unwrap() error {
	return e.Cause
}
