// Package session drives one run: every discovered posting not yet in the
// ledger is attempted once, in listing order, and recorded when it concludes.
package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/jobaru/internal/apply"
	"github.com/jonathan/jobaru/internal/ledger"
	"github.com/jonathan/jobaru/internal/types"
)

// DefaultMaxNewJobs caps how many postings absent from the ledger one run attempts.
const DefaultMaxNewJobs = 50

// Attempter runs the application flow for one posting.
type Attempter interface {
	Apply(ctx context.Context, posting types.JobPosting, profile types.ApplicationProfile) (types.AttemptOutcome, error)
}

// Recorder keeps a history of concluded attempts next to the ledger.
type Recorder interface {
	RecordAttempt(ctx context.Context, posting types.JobPosting, outcome types.AttemptOutcome) error
}

// Event is a progress update emitted during a run
type Event struct {
	Category string               `json:"category"` // "job" | "skip" | "outcome" | "run"
	Message  string               `json:"message"`
	JobID    string               `json:"job_id,omitempty"`
	Outcome  types.AttemptOutcome `json:"outcome,omitempty"`
}

// EventCallback is called for each progress event
type EventCallback func(Event)

// Options configures a run.
type Options struct {
	Profile          types.ApplicationProfile
	MaxNewJobs       int
	PauseBetweenJobs bool
	Confirmer        apply.Confirmer // required when PauseBetweenJobs is set
	Recorder         Recorder        // optional
	OnEvent          EventCallback   // optional
}

// Result is the conclusion of one attempted posting.
type Result struct {
	Posting types.JobPosting     `json:"posting"`
	Outcome types.AttemptOutcome `json:"outcome,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// Summary tallies a run.
type Summary struct {
	Discovered int                          `json:"discovered"`
	Skipped    int                          `json:"skipped"`
	Attempted  int                          `json:"attempted"`
	Failed     int                          `json:"failed"`
	CapReached bool                         `json:"cap_reached"`
	Outcomes   map[types.AttemptOutcome]int `json:"outcomes"`
	Results    []Result                     `json:"results"`
}

// Orchestrator runs postings through an Attempter against a Ledger.
type Orchestrator struct {
	ledger    *ledger.Ledger
	attempter Attempter
	opts      Options
	logger    *zap.Logger
}

// New creates an Orchestrator. The ledger should already be loaded.
func New(l *ledger.Ledger, attempter Attempter, opts Options, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxNewJobs <= 0 {
		opts.MaxNewJobs = DefaultMaxNewJobs
	}
	return &Orchestrator{
		ledger:    l,
		attempter: attempter,
		opts:      opts,
		logger:    logger.Named("orchestrator"),
	}
}

// Run attempts postings in order. It returns early only when ctx is cancelled
// or the between-jobs confirmation fails; the job in flight is then left out
// of the ledger.
func (o *Orchestrator) Run(ctx context.Context, postings []types.JobPosting) (Summary, error) {
	summary := Summary{
		Discovered: len(postings),
		Outcomes:   make(map[types.AttemptOutcome]int),
	}
	o.logger.Info("Run started", zap.Int("postings", len(postings)), zap.Int("max_new_jobs", o.opts.MaxNewJobs))

	for _, posting := range postings {
		if err := ctx.Err(); err != nil {
			o.logger.Info("Run cancelled", zap.Int("attempted", summary.Attempted))
			return summary, err
		}

		if o.ledger.Contains(posting.ID) {
			summary.Skipped++
			o.logger.Debug("Already processed", zap.String("job_id", posting.ID))
			o.emit(Event{Category: "skip", Message: "already processed", JobID: posting.ID})
			continue
		}

		if summary.Attempted >= o.opts.MaxNewJobs {
			summary.CapReached = true
			o.logger.Info("New job cap reached", zap.Int("max_new_jobs", o.opts.MaxNewJobs))
			break
		}

		if o.opts.PauseBetweenJobs && summary.Attempted > 0 && o.opts.Confirmer != nil {
			p := apply.Pause{Reason: apply.PauseBetweenJobs, JobID: posting.ID, Title: posting.Title, Company: posting.Company}
			if err := o.opts.Confirmer.Confirm(ctx, p); err != nil {
				return summary, err
			}
		}

		summary.Attempted++
		o.emit(Event{Category: "job", Message: fmt.Sprintf("%s at %s", posting.Title, posting.Company), JobID: posting.ID})

		outcome, err := o.attempt(ctx, posting)
		if err == nil && !outcome.IsTerminal() {
			err = fmt.Errorf("attempt ended without an outcome (got %q)", outcome)
		}
		if err != nil {
			if ctx.Err() != nil {
				o.logger.Info("Run cancelled during attempt", zap.String("job_id", posting.ID))
				return summary, ctx.Err()
			}
			summary.Failed++
			summary.Results = append(summary.Results, Result{Posting: posting, Error: err.Error()})
			o.logger.Error("Attempt failed", zap.String("job_id", posting.ID), zap.Error(err))
			continue
		}

		o.conclude(ctx, posting, outcome)
		summary.Outcomes[outcome]++
		summary.Results = append(summary.Results, Result{Posting: posting, Outcome: outcome})
	}

	o.logger.Info("Run finished",
		zap.Int("attempted", summary.Attempted),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	o.emit(Event{Category: "run", Message: fmt.Sprintf("attempted %d, skipped %d", summary.Attempted, summary.Skipped)})
	return summary, nil
}

// attempt isolates one job: a panic becomes an error for this job only.
func (o *Orchestrator) attempt(ctx context.Context, posting types.JobPosting) (outcome types.AttemptOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = ""
			err = fmt.Errorf("attempt panicked: %v", r)
		}
	}()
	return o.attempter.Apply(ctx, posting, o.opts.Profile)
}

// conclude marks posting processed and records the attempt. Storage failures
// are logged by the ledger and never stop the run. The writes outlive a
// cancelled run: the attempt has already reached its outcome.
func (o *Orchestrator) conclude(ctx context.Context, posting types.JobPosting, outcome types.AttemptOutcome) {
	ctx = context.WithoutCancel(ctx)
	log := o.logger.With(zap.String("job_id", posting.ID), zap.String("outcome", string(outcome)))
	switch outcome {
	case types.OutcomeSubmitted:
		log.Info("Application submitted")
	case types.OutcomeExternalRedirect:
		log.Info("External application, skipped")
	case types.OutcomeExhausted:
		log.Warn("Flow exhausted, marking processed")
	case types.OutcomeNoApplyEntryPoint:
		log.Warn("No apply entry point, marking processed")
	}

	_ = o.ledger.Record(ctx, posting.ID)

	if o.opts.Recorder != nil {
		if err := o.opts.Recorder.RecordAttempt(ctx, posting, outcome); err != nil {
			log.Warn("Failed to record attempt history", zap.Error(err))
		}
	}
	o.emit(Event{Category: "outcome", Message: string(outcome), JobID: posting.ID, Outcome: outcome})
}

func (o *Orchestrator) emit(e Event) {
	if o.opts.OnEvent != nil {
		o.opts.OnEvent(e)
	}
}
