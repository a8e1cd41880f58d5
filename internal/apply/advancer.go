package apply

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/jobaru/internal/browser"
	"github.com/jonathan/jobaru/internal/form"
	"github.com/jonathan/jobaru/internal/types"
)

// clickRetries is how many more times a step action is clicked while the
// browser reports its element as not yet available.
const clickRetries = 2

// Options bounds the advancer's loop and waits.
type Options struct {
	MaxSteps     int
	SettleDelay  time.Duration // after a click
	RetryDelay   time.Duration // before re-reading a step with no action
	ClickBackoff time.Duration // before re-clicking an element that was not ready; grows per try
	ModalTimeout time.Duration
	PollInterval time.Duration
	Strategies   []form.EntryStrategy
	CoverLetters CoverLetterSource // optional; used when the profile has no cover letter
}

// DefaultOptions returns the standard limits: 15 steps, 2s settle, 10s for the flow to open.
func DefaultOptions() Options {
	return Options{
		MaxSteps:     15,
		SettleDelay:  2 * time.Second,
		RetryDelay:   2 * time.Second,
		ClickBackoff: 300 * time.Millisecond,
		ModalTimeout: 10 * time.Second,
		PollInterval: 500 * time.Millisecond,
		Strategies:   form.DefaultEntryStrategies(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxSteps <= 0 {
		o.MaxSteps = d.MaxSteps
	}
	if o.ModalTimeout <= 0 {
		o.ModalTimeout = d.ModalTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if len(o.Strategies) == 0 {
		o.Strategies = d.Strategies
	}
	return o
}

// Advancer drives one application flow at a time.
type Advancer struct {
	page      Page
	confirmer Confirmer
	capturer  Capturer
	filler    *Filler
	opts      Options
	logger    *zap.Logger
}

// NewAdvancer creates an Advancer. confirmer must not be nil: every critical
// action goes through it.
func NewAdvancer(page Page, confirmer Confirmer, capturer Capturer, opts Options, logger *zap.Logger) *Advancer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if capturer == nil {
		capturer = nopCapturer{}
	}
	return &Advancer{
		page:      page,
		confirmer: confirmer,
		capturer:  capturer,
		filler:    NewFiller(page, logger),
		opts:      opts.withDefaults(),
		logger:    logger.Named("advancer"),
	}
}

// attempt carries the per-job state of one Apply call.
type attempt struct {
	*Advancer
	posting types.JobPosting
	profile types.ApplicationProfile
	log     *zap.Logger
}

// Apply runs the flow for posting and returns its terminal outcome.
// The error is non-nil only when the attempt was aborted, either by ctx or by
// a confirmer that could not deliver a decision; no outcome applies then.
func (a *Advancer) Apply(ctx context.Context, posting types.JobPosting, profile types.ApplicationProfile) (types.AttemptOutcome, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	at := &attempt{
		Advancer: a,
		posting:  posting,
		profile:  profile,
		log:      a.logger.With(zap.String("job_id", posting.ID), zap.String("title", posting.Title)),
	}

	at.log.Info("Opening job", zap.String("url", posting.URL))
	if err := a.page.Navigate(ctx, posting.URL); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		at.log.Warn("Navigation did not complete", zap.Error(err))
	}

	snap, markup, err := at.inspect(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		at.log.Warn("Job page could not be inspected", zap.Error(err))
		at.capture(ctx, "apply_fail")
		return types.OutcomeNoApplyEntryPoint, nil
	}

	entry, strategy, ok := form.FindEntry(snap, a.opts.Strategies)
	if !ok {
		at.log.Warn("No apply entry point found")
		at.capture(ctx, "apply_fail")
		return types.OutcomeNoApplyEntryPoint, nil
	}
	at.log.Info("Apply entry point found", zap.String("strategy", strategy), zap.String("label", entry.Label()))

	at.profile = at.withCoverLetter(ctx, markup)

	if err := at.activate(ctx, entry); err != nil {
		return "", err
	}
	if outcome, err := at.checkRedirect(ctx); outcome != "" || err != nil {
		return outcome, err
	}

	opened, err := at.waitForFlow(ctx)
	if err != nil {
		return "", err
	}
	if !opened {
		at.log.Info("Application flow did not open, retrying with script click")
		if err := at.retryEntry(ctx); err != nil {
			return "", err
		}
		if outcome, err := at.checkRedirect(ctx); outcome != "" || err != nil {
			return outcome, err
		}
		if opened, err = at.waitForFlow(ctx); err != nil {
			return "", err
		}
		if !opened {
			at.log.Warn("Application flow never opened")
			at.capture(ctx, "modal_fail")
			return types.OutcomeExhausted, nil
		}
	}

	return at.advance(ctx)
}

func (at *attempt) advance(ctx context.Context) (types.AttemptOutcome, error) {
	for step := 1; step <= at.opts.MaxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		outcome, err := at.step(ctx, step)
		if err != nil {
			return "", err
		}
		if outcome != "" {
			return outcome, nil
		}
	}

	at.log.Warn("Step budget exhausted", zap.Int("max_steps", at.opts.MaxSteps))
	at.capture(ctx, "exhausted")
	return types.OutcomeExhausted, nil
}

// step runs one iteration. An empty outcome means the loop continues.
func (at *attempt) step(ctx context.Context, step int) (types.AttemptOutcome, error) {
	snap, err := at.look(ctx)
	if err != nil {
		return "", err
	}
	if snap.SuccessConfirmed() {
		return at.succeeded(ctx, snap), nil
	}

	snap, action, err := at.findAction(ctx, step, snap)
	if err != nil {
		return "", err
	}
	if snap.SuccessConfirmed() {
		return at.succeeded(ctx, snap), nil
	}
	if action == nil {
		at.log.Warn("Flow is stuck", zap.Int("step", step))
		at.capture(ctx, "stuck")
		return types.OutcomeExhausted, nil
	}

	fill := at.filler.Fill(ctx, snap, at.profile)
	if fill.Attempted {
		if snap, err = at.look(ctx); err != nil {
			return "", err
		}
		var ok bool
		if action, ok = snap.PrimaryAction(); !ok {
			return "", nil
		}
	}

	label := action.Label()
	if reason, needed := pauseReason(snap.State()); needed {
		if err := at.pause(ctx, reason, step, label, fill.Detail); err != nil {
			return "", err
		}
		if snap, err = at.look(ctx); err != nil {
			return "", err
		}
		if snap.SuccessConfirmed() {
			return at.succeeded(ctx, snap), nil
		}
		current, ok := snap.PrimaryAction()
		if !ok || current.Label() != label {
			at.log.Info("Step changed while paused", zap.Int("step", step))
			return "", nil
		}
		action = current
	}

	at.log.Info("Invoking action", zap.Int("step", step), zap.String("action", label))
	if err := at.invoke(ctx, step, action); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		at.log.Warn("Action failed", zap.Int("step", step), zap.Error(err))
		if err := at.pause(ctx, PauseActionFailed, step, label, []string{err.Error()}); err != nil {
			return "", err
		}
		return "", nil
	}

	if form.IsSubmitLabel(label) {
		at.log.Info("Application submitted")
		at.dismiss(ctx)
		return types.OutcomeSubmitted, nil
	}

	if err := sleep(ctx, at.opts.SettleDelay); err != nil {
		return "", err
	}
	return "", nil
}

// findAction returns the step's primary action. When none is visible it
// re-reads once after RetryDelay and then asks the human. A nil action and
// nil error mean the flow is stuck.
func (at *attempt) findAction(ctx context.Context, step int, snap *form.Snapshot) (*form.Snapshot, *form.Element, error) {
	if action, ok := snap.PrimaryAction(); ok {
		return snap, action, nil
	}

	if err := sleep(ctx, at.opts.RetryDelay); err != nil {
		return nil, nil, err
	}
	snap, err := at.look(ctx)
	if err != nil {
		return nil, nil, err
	}
	if action, ok := snap.PrimaryAction(); ok || snap.SuccessConfirmed() {
		return snap, action, nil
	}

	if err := at.pause(ctx, PauseStuck, step, "", nil); err != nil {
		return nil, nil, err
	}
	if snap, err = at.look(ctx); err != nil {
		return nil, nil, err
	}
	action, _ := snap.PrimaryAction()
	return snap, action, nil
}

// pauseReason decides whether the current step needs a human before its action runs.
func pauseReason(state types.StepState) (PauseReason, bool) {
	switch {
	case state.HasValidationErrors:
		return PauseValidation, true
	case state.HasUnansweredRequiredField:
		return PauseUnanswered, true
	case state.HasPrimaryAction() && form.IsCriticalLabel(state.PrimaryActionLabel):
		return PauseCritical, true
	default:
		return "", false
	}
}

func (at *attempt) pause(ctx context.Context, reason PauseReason, step int, action string, detail []string) error {
	p := Pause{
		Reason:  reason,
		JobID:   at.posting.ID,
		Title:   at.posting.Title,
		Company: at.posting.Company,
		Action:  action,
		Step:    step,
		Detail:  detail,
	}
	at.log.Info("Paused for confirmation", zap.String("reason", string(reason)), zap.Int("step", step), zap.String("action", action))

	if err := at.confirmer.Confirm(ctx, p); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		at.log.Error("Confirmation failed", zap.Error(err))
		return err
	}
	at.log.Debug("Resumed", zap.String("reason", string(reason)))
	return nil
}

func (at *attempt) inspect(ctx context.Context) (*form.Snapshot, string, error) {
	markup, err := at.page.Snapshot(ctx)
	if err != nil {
		return nil, "", err
	}
	snap, err := form.Parse(markup)
	if err != nil {
		return nil, "", err
	}
	return snap, markup, nil
}

// look reads the current step. A failed read yields an empty snapshot so the
// caller's no-action path handles it; only cancellation is returned.
func (at *attempt) look(ctx context.Context) (*form.Snapshot, error) {
	snap, _, err := at.inspect(ctx)
	if err == nil {
		return snap, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	at.log.Debug("Step inspection failed", zap.Error(err))
	empty, _ := form.Parse("")
	return empty, nil
}

func (at *attempt) click(ctx context.Context, el *form.Element) error {
	sel := el.Selector()
	if sel == "" {
		return &ActionError{Label: el.Label(), Cause: ErrElementNotFound}
	}
	if err := at.page.Click(ctx, sel); err != nil {
		return &ActionError{Label: el.Label(), Cause: err}
	}
	return nil
}

// invoke clicks a step action. While the browser reports the element as not
// ready it re-reads the step and clicks again, up to clickRetries times, as
// long as the same action is still primary.
func (at *attempt) invoke(ctx context.Context, step int, action *form.Element) error {
	err := at.click(ctx, action)
	for try := 1; try <= clickRetries && err != nil && browser.IsTransient(err); try++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		at.log.Debug("Action not ready, retrying", zap.Int("step", step), zap.Int("try", try), zap.Error(err))
		if serr := sleep(ctx, at.opts.ClickBackoff*time.Duration(try)); serr != nil {
			return serr
		}
		snap, lerr := at.look(ctx)
		if lerr != nil {
			return lerr
		}
		current, ok := snap.PrimaryAction()
		if !ok || current.Label() != action.Label() {
			return err
		}
		action = current
		err = at.click(ctx, action)
	}
	return err
}

// activate clicks the entry point, falling back to a script click, then settles.
func (at *attempt) activate(ctx context.Context, entry *form.Element) error {
	if err := at.click(ctx, entry); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		at.log.Debug("Entry click failed, using script click", zap.Error(err))
		if sel := entry.Selector(); sel != "" {
			if err := at.page.ScriptClick(ctx, sel); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
	return sleep(ctx, at.opts.SettleDelay)
}

func (at *attempt) retryEntry(ctx context.Context) error {
	snap, err := at.look(ctx)
	if err != nil {
		return err
	}
	entry, _, ok := form.FindEntry(snap, at.opts.Strategies)
	if !ok || entry.Selector() == "" {
		return nil
	}
	if err := at.page.ScriptClick(ctx, entry.Selector()); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		at.log.Debug("Script click failed", zap.Error(err))
	}
	return sleep(ctx, at.opts.SettleDelay)
}

func (at *attempt) checkRedirect(ctx context.Context) (types.AttemptOutcome, error) {
	state, err := at.entryState(ctx)
	if err != nil {
		return "", err
	}
	if state.IsExternalRedirectDetected {
		return types.OutcomeExternalRedirect, nil
	}
	return "", nil
}

// entryState reads the page after activation and fills in the redirect flag,
// which markup alone cannot show.
func (at *attempt) entryState(ctx context.Context) (types.StepState, error) {
	redirected, err := at.redirected(ctx)
	if err != nil {
		return types.StepState{}, err
	}
	snap, err := at.look(ctx)
	if err != nil {
		return types.StepState{}, err
	}
	state := snap.State()
	state.IsExternalRedirectDetected = redirected
	at.log.Debug("Entry activated",
		zap.Bool("external", state.IsExternalRedirectDetected),
		zap.String("action", state.PrimaryActionLabel))
	return state, nil
}

// redirected reports whether activation opened another browsing context, and
// if so closes it and returns focus to the original one.
func (at *attempt) redirected(ctx context.Context) (bool, error) {
	n, err := at.page.BrowsingContexts(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		at.log.Debug("Could not count browsing contexts", zap.Error(err))
		return false, nil
	}
	if n <= 1 {
		return false, nil
	}

	at.log.Info("External application detected", zap.Int("contexts", n))
	if err := at.page.CloseSecondaryContexts(ctx); err != nil {
		if ctx.Err() != nil {
			return true, ctx.Err()
		}
		at.log.Warn("Failed to close external context", zap.Error(err))
	}
	return true, nil
}

// waitForFlow polls until the application flow is visible or ModalTimeout passes.
func (at *attempt) waitForFlow(ctx context.Context) (bool, error) {
	deadline := time.Now().Add(at.opts.ModalTimeout)
	for {
		snap, err := at.look(ctx)
		if err != nil {
			return false, err
		}
		if snap.HasModal() {
			return true, nil
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}
		if err := sleep(ctx, at.opts.PollInterval); err != nil {
			return false, err
		}
	}
}

func (at *attempt) withCoverLetter(ctx context.Context, markup string) types.ApplicationProfile {
	if at.profile.CoverLetter != "" || at.opts.CoverLetters == nil {
		return at.profile
	}
	text, err := at.opts.CoverLetters.CoverLetter(ctx, at.posting, at.profile, markup)
	if err != nil {
		at.log.Warn("Cover letter generation failed, continuing without", zap.Error(err))
		return at.profile
	}
	return at.profile.WithCoverLetter(text)
}

// succeeded closes the confirmation best-effort.
func (at *attempt) succeeded(ctx context.Context, snap *form.Snapshot) types.AttemptOutcome {
	at.log.Info("Application confirmed as sent")
	if done, ok := snap.DoneButton(); ok {
		if err := at.click(ctx, done); err != nil {
			at.log.Debug("Done button click failed", zap.Error(err))
		}
	}
	return types.OutcomeSubmitted
}

func (at *attempt) dismiss(ctx context.Context) {
	if err := sleep(ctx, at.opts.SettleDelay); err != nil {
		return
	}
	snap, err := at.look(ctx)
	if err != nil {
		return
	}
	if btn, ok := snap.DismissButton(); ok {
		if err := at.click(ctx, btn); err != nil {
			at.log.Debug("Dismiss click failed", zap.Error(err))
		}
	}
}

func (at *attempt) capture(ctx context.Context, label string) {
	at.capturer.Capture(ctx, label)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
