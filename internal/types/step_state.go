package types

// StepState is the inspectable state of the currently rendered form step.
// It is re-derived from the live page on every read and never cached.
type StepState struct {
	PrimaryActionLabel         string `json:"primary_action_label,omitempty"` // empty when no action is discoverable
	HasValidationErrors        bool   `json:"has_validation_errors"`
	HasUnansweredRequiredField bool   `json:"has_unanswered_required_field"`
	IsExternalRedirectDetected bool   `json:"is_external_redirect_detected"`
	IsSuccessConfirmed         bool   `json:"is_success_confirmed"`
	HasFileUpload              bool   `json:"has_file_upload"`
	HasCoverLetterField        bool   `json:"has_cover_letter_field"`
}

// HasPrimaryAction reports whether a primary action label was discovered.
func (s StepState) HasPrimaryAction() bool {
	return s.PrimaryActionLabel != ""
}
