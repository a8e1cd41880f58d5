// Package apply runs the guarded multi-step application flow for one job posting.
//
// The Advancer owns the control loop: it finds the entry point, opens the flow,
// re-inspects every step, lets the Filler populate what it safely can, and
// suspends on a Confirmer whenever a human has to look before the next action.
package apply

import (
	"context"

	"github.com/jonathan/jobaru/internal/artifacts"
	"github.com/jonathan/jobaru/internal/types"
)

// Page is the browser capability the flow drives. Selectors come from the
// latest form snapshot and may go stale; callers re-inspect instead of retrying them.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Snapshot(ctx context.Context) (string, error)
	Click(ctx context.Context, selector string) error
	ScriptClick(ctx context.Context, selector string) error
	SetValue(ctx context.Context, selector, text string) error
	Upload(ctx context.Context, selector, path string) error
	BrowsingContexts(ctx context.Context) (int, error)
	CloseSecondaryContexts(ctx context.Context) error
}

// Capturer records diagnostics for a failed attempt. It never fails.
type Capturer interface {
	Capture(ctx context.Context, label string) artifacts.Paths
}

// CoverLetterSource produces a cover letter for one posting from the job page markup.
type CoverLetterSource interface {
	CoverLetter(ctx context.Context, posting types.JobPosting, profile types.ApplicationProfile, pageMarkup string) (string, error)
}

type nopCapturer struct{}

func (nopCapturer) Capture(context.Context, string) artifacts.Paths { return artifacts.Paths{} }
