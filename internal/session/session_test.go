package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jobaru/internal/apply"
	"github.com/jonathan/jobaru/internal/ledger"
	"github.com/jonathan/jobaru/internal/types"
)

// fakeAttempter returns scripted outcomes and records which postings it saw.
type fakeAttempter struct {
	outcomes map[string]types.AttemptOutcome
	errs     map[string]error
	panics   map[string]bool
	onApply  func(types.JobPosting)
	seen     []string
}

func (a *fakeAttempter) Apply(_ context.Context, posting types.JobPosting, _ types.ApplicationProfile) (types.AttemptOutcome, error) {
	a.seen = append(a.seen, posting.ID)
	if a.onApply != nil {
		a.onApply(posting)
	}
	if a.panics[posting.ID] {
		panic("selector exploded")
	}
	if err := a.errs[posting.ID]; err != nil {
		return "", err
	}
	if o, ok := a.outcomes[posting.ID]; ok {
		return o, nil
	}
	return types.OutcomeSubmitted, nil
}

type fakeRecorder struct {
	recorded map[string]types.AttemptOutcome
	err      error
}

func (r *fakeRecorder) RecordAttempt(_ context.Context, posting types.JobPosting, outcome types.AttemptOutcome) error {
	if r.recorded == nil {
		r.recorded = make(map[string]types.AttemptOutcome)
	}
	r.recorded[posting.ID] = outcome
	return r.err
}

func postings(ids ...string) []types.JobPosting {
	out := make([]types.JobPosting, 0, len(ids))
	for _, id := range ids {
		out = append(out, types.NewJobPosting("Engineer "+id, "Acme", "https://www.linkedin.com/jobs/view/"+id+"/"))
	}
	return out
}

func newLedger(t *testing.T, fs afero.Fs, ids ...string) *ledger.Ledger {
	t.Helper()
	l := ledger.New(ledger.NewFileStore(fs, ledger.DefaultPath), nil)
	for _, id := range ids {
		l.Add(id)
	}
	if len(ids) > 0 {
		require.NoError(t, l.Persist(context.Background()))
	}
	return l
}

func TestRun_SkipsProcessedJobs(t *testing.T) {
	l := newLedger(t, afero.NewMemMapFs(), "2")
	att := &fakeAttempter{}

	summary, err := New(l, att, Options{}, nil).Run(context.Background(), postings("1", "2", "3"))

	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, att.seen)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 2, summary.Attempted)
	assert.Equal(t, []string{"1", "2", "3"}, l.IDs())
}

func TestRun_DuplicateInSameRunAttemptedOnce(t *testing.T) {
	l := newLedger(t, afero.NewMemMapFs())
	att := &fakeAttempter{}
	list := postings("7", "7")
	list[1].URL = "https://www.linkedin.com/jobs/search/?currentJobId=7&keywords=go"
	list[1] = types.NewJobPosting(list[1].Title, list[1].Company, list[1].URL)

	_, err := New(l, att, Options{}, nil).Run(context.Background(), list)

	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, att.seen)
}

func TestRun_EveryOutcomeMarksProcessed(t *testing.T) {
	fs := afero.NewMemMapFs()
	l := newLedger(t, fs)
	att := &fakeAttempter{outcomes: map[string]types.AttemptOutcome{
		"1": types.OutcomeSubmitted,
		"2": types.OutcomeExternalRedirect,
		"3": types.OutcomeExhausted,
		"4": types.OutcomeNoApplyEntryPoint,
	}}
	rec := &fakeRecorder{}

	summary, err := New(l, att, Options{Recorder: rec}, nil).Run(context.Background(), postings("1", "2", "3", "4"))

	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4"}, l.IDs())
	for outcome, want := range map[types.AttemptOutcome]int{
		types.OutcomeSubmitted: 1, types.OutcomeExternalRedirect: 1, types.OutcomeExhausted: 1, types.OutcomeNoApplyEntryPoint: 1,
	} {
		assert.Equal(t, want, summary.Outcomes[outcome], string(outcome))
	}
	assert.Equal(t, types.OutcomeExternalRedirect, rec.recorded["2"])

	reloaded := ledger.New(ledger.NewFileStore(fs, ledger.DefaultPath), nil)
	reloaded.Load(context.Background())
	assert.Equal(t, l.IDs(), reloaded.IDs())
}

func TestRun_CapCountsOnlyNewJobs(t *testing.T) {
	var ids []string
	for i := 1; i <= 60; i++ {
		ids = append(ids, fmt.Sprint(i))
	}
	l := newLedger(t, afero.NewMemMapFs(), "1", "2", "3", "4", "5")
	att := &fakeAttempter{}

	summary, err := New(l, att, Options{}, nil).Run(context.Background(), postings(ids...))

	require.NoError(t, err)
	assert.Len(t, att.seen, DefaultMaxNewJobs)
	assert.Equal(t, "6", att.seen[0])
	assert.Equal(t, "55", att.seen[len(att.seen)-1])
	assert.Equal(t, 5, summary.Skipped)
	assert.True(t, summary.CapReached)
}

func TestRun_CustomCap(t *testing.T) {
	att := &fakeAttempter{}
	summary, err := New(newLedger(t, afero.NewMemMapFs()), att, Options{MaxNewJobs: 2}, nil).Run(context.Background(), postings("1", "2", "3"))

	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, att.seen)
	assert.True(t, summary.CapReached)
}

func TestRun_CancellationLeavesInFlightJobUnmarked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := newLedger(t, afero.NewMemMapFs())
	att := &fakeAttempter{
		onApply: func(p types.JobPosting) {
			if p.ID == "2" {
				cancel()
			}
		},
		errs: map[string]error{"2": context.Canceled},
	}

	summary, err := New(l, att, Options{}, nil).Run(ctx, postings("1", "2", "3"))

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"1"}, l.IDs())
	assert.Equal(t, []string{"1", "2"}, att.seen)
	assert.Equal(t, 2, summary.Attempted)
}

// ctxStore fails writes once their context is done, like a database driver does.
type ctxStore struct {
	saved []string
}

func (s *ctxStore) Load(context.Context) ([]string, error) { return nil, nil }

func (s *ctxStore) Save(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.saved = append([]string(nil), ids...)
	return nil
}

type ctxRecorder struct {
	ctxErrs  []error
	recorded []string
}

func (r *ctxRecorder) RecordAttempt(ctx context.Context, posting types.JobPosting, _ types.AttemptOutcome) error {
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	r.recorded = append(r.recorded, posting.ID)
	return nil
}

func TestRun_OutcomeReachedAsRunIsCancelledIsPersisted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := &ctxStore{}
	l := ledger.New(store, nil)
	rec := &ctxRecorder{}
	att := &fakeAttempter{onApply: func(types.JobPosting) { cancel() }}

	summary, err := New(l, att, Options{Recorder: rec}, nil).Run(ctx, postings("1", "2"))

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"1"}, att.seen)
	assert.Equal(t, []string{"1"}, store.saved)
	assert.Equal(t, []string{"1"}, l.IDs())
	assert.Equal(t, []string{"1"}, rec.recorded)
	assert.Equal(t, []error{nil}, rec.ctxErrs)
	assert.Equal(t, 1, summary.Outcomes[types.OutcomeSubmitted])
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	att := &fakeAttempter{}

	_, err := New(newLedger(t, afero.NewMemMapFs()), att, Options{}, nil).Run(ctx, postings("1"))

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, att.seen)
}

func TestRun_PanicDoesNotStopRun(t *testing.T) {
	l := newLedger(t, afero.NewMemMapFs())
	att := &fakeAttempter{panics: map[string]bool{"1": true}, errs: map[string]error{"2": errors.New("confirmation unavailable")}}

	summary, err := New(l, att, Options{}, nil).Run(context.Background(), postings("1", "2", "3"))

	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, att.seen)
	assert.Equal(t, []string{"3"}, l.IDs())
	assert.Equal(t, 2, summary.Failed)
	require.Len(t, summary.Results, 3)
	assert.Contains(t, summary.Results[0].Error, "panicked")
}

func TestRun_UndefinedOutcomeIsAFailure(t *testing.T) {
	l := newLedger(t, afero.NewMemMapFs())
	rec := &fakeRecorder{}
	att := &fakeAttempter{outcomes: map[string]types.AttemptOutcome{"1": "running"}}

	summary, err := New(l, att, Options{Recorder: rec}, nil).Run(context.Background(), postings("1", "2"))

	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, l.IDs())
	assert.Equal(t, 1, summary.Failed)
	assert.NotContains(t, rec.recorded, "1")
	require.Len(t, summary.Results, 2)
	assert.Contains(t, summary.Results[0].Error, "without an outcome")
}

func TestRun_PersistFailureIsNotFatal(t *testing.T) {
	l := ledger.New(ledger.NewFileStore(afero.NewReadOnlyFs(afero.NewMemMapFs()), ledger.DefaultPath), nil)
	att := &fakeAttempter{}

	summary, err := New(l, att, Options{}, nil).Run(context.Background(), postings("1", "1", "2"))

	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, att.seen)
	assert.Equal(t, 2, summary.Attempted)
	assert.True(t, l.Contains("1"))
}

func TestRun_PauseBetweenJobs(t *testing.T) {
	var pauses []apply.Pause
	conf := apply.ConfirmFunc(func(_ context.Context, p apply.Pause) error {
		pauses = append(pauses, p)
		return nil
	})
	att := &fakeAttempter{}

	_, err := New(newLedger(t, afero.NewMemMapFs()), att, Options{PauseBetweenJobs: true, Confirmer: conf}, nil).Run(context.Background(), postings("1", "2", "3"))

	require.NoError(t, err)
	require.Len(t, pauses, 2)
	assert.Equal(t, apply.PauseBetweenJobs, pauses[0].Reason)
	assert.Equal(t, "2", pauses[0].JobID)
}

func TestRun_PauseBetweenJobsAbort(t *testing.T) {
	conf := apply.ConfirmFunc(func(context.Context, apply.Pause) error { return errors.New("declined") })
	l := newLedger(t, afero.NewMemMapFs())
	att := &fakeAttempter{}

	_, err := New(l, att, Options{PauseBetweenJobs: true, Confirmer: conf}, nil).Run(context.Background(), postings("1", "2"))

	require.Error(t, err)
	assert.Equal(t, []string{"1"}, att.seen)
	assert.Equal(t, []string{"1"}, l.IDs())
}

func TestRun_Events(t *testing.T) {
	var events []Event
	l := newLedger(t, afero.NewMemMapFs(), "1")

	_, err := New(l, &fakeAttempter{}, Options{OnEvent: func(e Event) { events = append(events, e) }}, nil).Run(context.Background(), postings("1", "2"))

	require.NoError(t, err)
	var categories []string
	for _, e := range events {
		categories = append(categories, e.Category)
	}
	assert.Equal(t, []string{"skip", "job", "outcome", "run"}, categories)
}
