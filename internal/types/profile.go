package types

import (
	"github.com/go-playground/validator/v10"
)

// ApplicationProfile holds the applicant data used to fill forms.
// It is supplied once by configuration and not modified during a run.
type ApplicationProfile struct {
	ResumePath  string `json:"resume_path" validate:"required"`
	ResumeText  string `json:"resume_text,omitempty"`
	JobRole     string `json:"job_role" validate:"required"`
	Location    string `json:"location" validate:"required"`
	Model       string `json:"model,omitempty"`
	CoverLetter string `json:"cover_letter,omitempty"`
}

// Validate validates the ApplicationProfile using the validator.
func (p *ApplicationProfile) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// WithCoverLetter returns a copy of the profile carrying the given cover letter.
func (p ApplicationProfile) WithCoverLetter(text string) ApplicationProfile {
	p.CoverLetter = text
	return p
}
