package form

import "strings"

// primaryActionTargets are tried in order; earlier labels win when several buttons are visible.
var primaryActionTargets = []string{"submit application", "review", "next"}

// criticalVocabulary marks actions that always require human confirmation.
var criticalVocabulary = []string{"submit", "review"}

// PrimaryAction finds the button that advances or submits the current step.
func (s *Snapshot) PrimaryAction() (*Element, bool) {
	buttons := s.FindInStep("button")

	for _, target := range primaryActionTargets {
		for _, b := range buttons {
			if b.Visible && b.HasClass(primaryButtonClass) && strings.Contains(b.Label(), target) {
				return b, true
			}
		}
	}

	for _, b := range buttons {
		if b.Visible && b.HasClass(primaryButtonClass) {
			return b, true
		}
	}
	return nil, false
}

// IsCriticalLabel reports whether an action label names a submission or review step.
func IsCriticalLabel(label string) bool {
	label = strings.ToLower(label)
	for _, word := range criticalVocabulary {
		if strings.Contains(label, word) {
			return true
		}
	}
	return false
}

// IsSubmitLabel reports whether an action label submits the application.
func IsSubmitLabel(label string) bool {
	return strings.Contains(strings.ToLower(label), "submit")
}

// DoneButton finds the button that closes the confirmation shown after success.
func (s *Snapshot) DoneButton() (*Element, bool) {
	return s.FindVisible("button", "done")
}

// DismissButton finds the control that closes the flow's dialog.
func (s *Snapshot) DismissButton() (*Element, bool) {
	for _, el := range s.Find("[aria-label='Dismiss']") {
		if el.Visible {
			return el, true
		}
	}
	return nil, false
}
