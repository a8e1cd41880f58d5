package types

// AttemptOutcome is the terminal result of one application attempt
type AttemptOutcome string

const (
	// OutcomeSubmitted means the submit action was invoked or success was confirmed
	OutcomeSubmitted AttemptOutcome = "submitted"
	// OutcomeExternalRedirect means the entry point opened a separate browsing context
	OutcomeExternalRedirect AttemptOutcome = "external_redirect"
	// OutcomeExhausted means the flow got stuck or ran out of iterations
	OutcomeExhausted AttemptOutcome = "exhausted"
	// OutcomeNoApplyEntryPoint means no entry strategy found an apply control
	OutcomeNoApplyEntryPoint AttemptOutcome = "no_apply_entry_point"
)

// IsTerminal reports whether o is one of the defined outcomes.
func (o AttemptOutcome) IsTerminal() bool {
	switch o {
	case OutcomeSubmitted, OutcomeExternalRedirect, OutcomeExhausted, OutcomeNoApplyEntryPoint:
		return true
	}
	return false
}
