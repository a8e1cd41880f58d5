package form

import "fmt"

// ParseError represents a failure parsing page markup
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("form parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("form parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
