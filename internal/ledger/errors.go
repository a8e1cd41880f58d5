package ledger

import "fmt"

// PersistenceError represents a failure reading or writing the backing store
type PersistenceError struct {
	Op    string // "load" or "save"
	Cause error
}

func (e *PersistenceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ledger %s failed: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("ledger %s failed", e.Op)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}
