package listing

import "fmt"

// ParseError represents a failure reading the results page
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("listing parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("listing parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
