package form

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/jobaru/internal/types"
)

// placeholderOptions are select values that mean nothing was chosen.
var placeholderOptions = []string{"", "select an option"}

// State derives the StepState for the current step. External redirects are
// not visible in markup and are left for the caller to fill in.
func (s *Snapshot) State() types.StepState {
	state := types.StepState{
		HasValidationErrors:        s.HasValidationErrors(),
		HasUnansweredRequiredField: s.HasUnansweredQuestion(),
		IsSuccessConfirmed:         s.SuccessConfirmed(),
		HasFileUpload:              len(s.FileInputs()) > 0,
		HasCoverLetterField:        len(s.TextAreas()) > 0,
	}
	if action, ok := s.PrimaryAction(); ok {
		state.PrimaryActionLabel = action.Label()
	}
	return state
}

// HasValidationErrors reports visible inline validation messages.
func (s *Snapshot) HasValidationErrors() bool {
	for _, el := range s.FindInStep(validationErrorSelector) {
		if el.Visible {
			return true
		}
	}
	return false
}

// HasUnansweredQuestion reports a visible question the filler will not answer:
// an unchecked radio group, an unselected dropdown, or an empty text field.
func (s *Snapshot) HasUnansweredQuestion() bool {
	scope := s.scope()

	unanswered := false
	scope.Find("fieldset").EachWithBreak(func(_ int, fs *goquery.Selection) bool {
		if !isVisible(fs) {
			return true
		}
		radios := collect(fs.Find("input[type='radio']"))
		if len(radios) == 0 {
			return true
		}
		for _, r := range radios {
			if r.Checked {
				return true
			}
		}
		unanswered = true
		return false
	})
	if unanswered {
		return true
	}

	for _, sel := range s.FindInStep("select") {
		if sel.Visible && isPlaceholder(sel.Value) {
			return true
		}
	}
	for _, in := range s.TextInputs() {
		if in.Value == "" {
			return true
		}
	}
	for _, ta := range s.TextAreas() {
		if strings.TrimSpace(ta.Value) == "" {
			return true
		}
	}
	return false
}

// FileInputs returns the step's file controls, visible or not.
func (s *Snapshot) FileInputs() []*Element {
	return s.FindInStep("input[type='file']")
}

// TextAreas returns the step's visible long-form text fields.
func (s *Snapshot) TextAreas() []*Element {
	return visibleOnly(s.FindInStep("textarea"))
}

// TextInputs returns the step's visible short text and phone fields.
func (s *Snapshot) TextInputs() []*Element {
	return visibleOnly(s.FindInStep("input[type='text'], input[type='tel']"))
}

func visibleOnly(in []*Element) []*Element {
	out := in[:0:0]
	for _, el := range in {
		if el.Visible {
			out = append(out, el)
		}
	}
	return out
}

func isPlaceholder(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, p := range placeholderOptions {
		if v == p {
			return true
		}
	}
	return false
}
