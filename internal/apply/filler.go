package apply

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/jobaru/internal/form"
	"github.com/jonathan/jobaru/internal/types"
)

// minCoverLetterLength is the length below which a long-form field counts as empty.
const minCoverLetterLength = 10

// FillResult reports what the filler tried on one step.
type FillResult struct {
	Attempted bool
	Detail    []string
}

func (r *FillResult) note(format string, args ...any) {
	r.Detail = append(r.Detail, fmt.Sprintf(format, args...))
}

// Filler populates the fields of a step that can be answered from the profile:
// file controls get the resume and long-form fields get the cover letter.
// It never guesses answers to short questions.
type Filler struct {
	page   Page
	logger *zap.Logger
}

// NewFiller creates a Filler acting on page.
func NewFiller(page Page, logger *zap.Logger) *Filler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filler{page: page, logger: logger.Named("filler")}
}

// Fill is best-effort: individual failures are reported in Detail and never
// returned as errors.
func (f *Filler) Fill(ctx context.Context, snap *form.Snapshot, profile types.ApplicationProfile) FillResult {
	var result FillResult

	for _, in := range snap.FileInputs() {
		if in.Value != "" {
			result.note("file input %s already set", describe(in))
			continue
		}
		if profile.ResumePath == "" {
			result.note("file input %s skipped: no resume path", describe(in))
			continue
		}
		result.Attempted = true
		if err := f.invoke(in, func(sel string) error { return f.page.Upload(ctx, sel, profile.ResumePath) }); err != nil {
			result.note("upload to %s failed: %v", describe(in), err)
			continue
		}
		result.note("uploaded resume to %s", describe(in))
	}

	for _, ta := range snap.TextAreas() {
		if len(strings.TrimSpace(ta.Value)) >= minCoverLetterLength {
			result.note("text area %s kept: already has content", describe(ta))
			continue
		}
		if profile.CoverLetter == "" {
			result.note("text area %s left empty: no cover letter", describe(ta))
			continue
		}
		result.Attempted = true
		if err := f.invoke(ta, func(sel string) error { return f.page.SetValue(ctx, sel, profile.CoverLetter) }); err != nil {
			result.note("cover letter into %s failed: %v", describe(ta), err)
			continue
		}
		result.note("pasted cover letter into %s", describe(ta))
	}

	for _, in := range snap.TextInputs() {
		if in.Value != "" {
			result.note("text input %s kept: prefilled", describe(in))
		} else {
			result.note("text input %s left for review", describe(in))
		}
	}

	if len(result.Detail) > 0 {
		f.logger.Debug("Step filled", zap.Bool("attempted", result.Attempted), zap.Strings("detail", result.Detail))
	}
	return result
}

func (f *Filler) invoke(el *form.Element, do func(selector string) error) error {
	sel := el.Selector()
	if sel == "" {
		return ErrElementNotFound
	}
	return do(sel)
}

func describe(el *form.Element) string {
	switch {
	case el.ID != "":
		return "#" + el.ID
	case el.Ref != "":
		return "ref " + el.Ref
	default:
		return el.Tag
	}
}
