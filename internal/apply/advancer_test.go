package apply

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jobaru/internal/browser"
	"github.com/jonathan/jobaru/internal/types"
)

func testOptions() Options {
	return Options{
		MaxSteps:     15,
		ModalTimeout: time.Millisecond,
		PollInterval: time.Millisecond,
	}
}

var (
	testPosting = types.NewJobPosting("Backend Engineer", "Acme", "https://www.linkedin.com/jobs/view/123456789/")
	testProfile = types.ApplicationProfile{
		ResumePath: "/tmp/resume.pdf",
		JobRole:    "Backend Engineer",
		Location:   "Remote",
	}
)

func TestApply_NextThenSubmit(t *testing.T) {
	page := &fakePage{
		jobPage: jobPage(easyApplyButton),
		steps: []string{
			stepPage(primary("n", "Next")),
			stepPage(primary("s", "Submit application")),
		},
	}
	conf := &recordingConfirmer{page: page}
	capt := &recordingCapturer{}

	outcome, err := NewAdvancer(page, conf, capt, testOptions(), nil).Apply(context.Background(), testPosting, testProfile)

	require.NoError(t, err)
	assert.Equal(t, types.OutcomeSubmitted, outcome)
	assert.Equal(t, []string{
		"navigate:" + testPosting.URL,
		"click:#easy",
		"click:#n",
		"pause:critical",
		"click:#s",
	}, page.events)
	assert.Empty(t, capt.labels)
	require.Len(t, conf.pauses, 1)
	assert.Equal(t, "submit application", conf.pauses[0].Action)
	assert.Equal(t, "123456789", conf.pauses[0].JobID)
}

func TestApply_NoEntryPoint(t *testing.T) {
	page := &fakePage{jobPage: jobPage(`<button>Applied 2 days ago</button><button>Save</button>`)}
	capt := &recordingCapturer{}

	outcome, err := NewAdvancer(page, &recordingConfirmer{}, capt, testOptions(), nil).Apply(context.Background(), testPosting, testProfile)

	require.NoError(t, err)
	assert.Equal(t, types.OutcomeNoApplyEntryPoint, outcome)
	assert.Equal(t, []string{"apply_fail"}, capt.labels)
	assert.Equal(t, []string{"navigate:" + testPosting.URL}, page.events)
}

func TestApply_ExternalRedirect(t *testing.T) {
	page := &fakePage{jobPage: jobPage(`<a id="ext" href="https://careers.example.com">Apply</a>`), redirect: true}
	conf := &recordingConfirmer{}
	capt := &recordingCapturer{}

	outcome, err := NewAdvancer(page, conf, capt, testOptions(), nil).Apply(context.Background(), testPosting, testProfile)

	require.NoError(t, err)
	assert.Equal(t, types.OutcomeExternalRedirect, outcome)
	assert.True(t, page.closed)
	contexts, _ := page.BrowsingContexts(context.Background())
	assert.Equal(t, 1, contexts)
	assert.Empty(t, conf.pauses)
	assert.Empty(t, capt.labels)
}

func TestApply_ValidationErrorsPauseBeforeAction(t *testing.T) {
	page := &fakePage{
		jobPage: jobPage(easyApplyButton),
		steps: []string{
			stepPage(`<span class="artdeco-inline-feedback__message">Enter a valid phone number</span>` + primary("n", "Next")),
			stepPage(primary("s", "Submit application")),
		},
	}
	conf := &recordingConfirmer{page: page}

	outcome, err := NewAdvancer(page, conf, nil, testOptions(), nil).Apply(context.Background(), testPosting, testProfile)

	require.NoError(t, err)
	assert.Equal(t, types.OutcomeSubmitted, outcome)
	assert.Equal(t, []PauseReason{PauseValidation, PauseCritical}, conf.reasons())
	assert.Less(t, page.index("pause:validation"), page.index("click:#n"))
}

func TestApply_UnansweredQuestionPauses(t *testing.T) {
	page := &fakePage{
		jobPage: jobPage(easyApplyButton),
		steps: []string{
			stepPage(`<fieldset><legend>Authorized to work?</legend><input type="radio" name="q"><input type="radio" name="q"></fieldset>` + primary("n", "Next")),
			stepPage(primary("s", "Submit application")),
		},
	}
	conf := &recordingConfirmer{page: page}

	outcome, err := NewAdvancer(page, conf, nil, testOptions(), nil).Apply(context.Background(), testPosting, testProfile)

	require.NoError(t, err)
	assert.Equal(t, types.OutcomeSubmitted, outcome)
	assert.Equal(t, []PauseReason{PauseUnanswered, PauseCritical}, conf.reasons())
}

func TestApply_ReviewIsCritical(t *testing.T) {
	page := &fakePage{
		jobPage: jobPage(easyApplyButton),
		steps: []string{
			stepPage(primary("r", "Review")),
			stepPage(primary("s", "Submit application")),
		},
	}
	conf := &recordingConfirmer{page: page}

	_, err := NewAdvancer(page, conf, nil, testOptions(), nil).Apply(context.Background(), testPosting, testProfile)

	require.NoError(t, err)
	assert.Equal(t, []PauseReason{PauseCritical, PauseCritical}, conf.reasons())
	assert.Less(t, page.index("pause:critical"), page.index("click:#r"))
}

func TestApply_StepChangedWhilePaused(t *testing.T) {
	page := &fakePage{
		jobPage: jobPage(easyApplyButton),
		steps: []string{
			stepPage(primary("r", "Review")),
			stepPage(primary("s", "Submit application")),
		},
	}
	conf := &recordingConfirmer{page: page}
	conf.onPause = func(p Pause) {
		// The human pressed Review in the browser themselves.
		if p.Action == "review" {
			page.idx = 1
		}
	}

	outcome, err := NewAdvancer(page, conf, nil, testOptions(), nil).Apply(context.Background(), testPosting, testProfile)

	require.NoError(t, err)
	assert.Equal(t, types.OutcomeSubmitted, outcome)
	assert.Equal(t, 0, page.count("click:#r"))
	require.Len(t, conf.pauses, 2)
	assert.Equal(t, "submit application", conf.pauses[1].Action)
	assert.Less(t, page.index("pause:critical"), page.index("click:#s"))
}

func TestApply_StuckWithoutAction(t *testing.T) {
	page := &fakePage{
		jobPage: jobPage(easyApplyButton),
		steps:   []string{stepPage(`<p>Loading...</p>`)},
	}
	conf := &recordingConfirmer{page: page}
	capt := &recordingCapturer{}

	outcome, err := NewAdvancer(page, conf, capt, testOptions(), nil).Apply(context.Background(), testPosting, testProfile)

	require.NoError(t, err)
	assert.Equal(t, types.OutcomeExhausted, outcome)
	assert.Equal(t, []PauseReason{PauseStuck}, conf.reasons())
	assert.Equal(t, []string{"stuck"}, capt.labels)
}

func TestApply_StuckRecoversAfterHuman(t *testing.T) {
	page := &fakePage{
		jobPage: jobPage(easyApplyButton),
		steps: []string{
			stepPage(`<p>Loading...</p>`),
			stepPage(primary("s", "Submit application")),
		},
	}
	conf := &recordingConfirmer{page: page}
	conf.onPause = func(p Pause) {
		if p.Reason == PauseStuck {
			page.idx = 1
		}
	}

	outcome, err := NewAdvancer(page, conf, nil, testOptions(), nil).Apply(context.Background(), testPosting, testProfile)

	require.NoError(t, err)
	assert.Equal(t, types.OutcomeSubmitted, outcome)
	assert.Equal(t, []PauseReason{PauseStuck, PauseCritical}, conf.reasons())
}

func TestApply_StepBudgetBoundsLoop(t *testing.T) {
	page := &fakePage{
		jobPage: jobPage(easyApplyButton),
		steps:   []string{stepPage(primary("n", "Next"))},
		stay:    true,
	}
	capt := &recordingCapturer{}
	opts := testOptions()
	opts.MaxSteps = 5

	outcome, err := NewAdvancer(page, &recordingConfirmer{page: page}, capt, opts, nil).Apply(context.Background(), testPosting, testProfile)

	require.NoError(t, err)
	assert.Equal(t, types.OutcomeExhausted, outcome)
	assert.Equal(t, 5, page.count("click:#n"))
	assert.Equal(t, []string{"exhausted"}, capt.labels)
}

func TestApply_SuccessWithoutAction(t *testing.T) {
	page := &fakePage{
		jobPage: jobPage(easyApplyButton),
		steps:   []string{stepPage(`<h2>Your application was sent to Acme</h2><p>Application sent</p><button id="done">Done</button>`)},
	}
	conf := &recordingConfirmer{page: page}

	outcome, err := NewAdvancer(page, conf, nil, testOptions(), nil).Apply(context.Background(), testPosting, testProfile)

	require.NoError(t, err)
	assert.Equal(t, types.OutcomeSubmitted, outcome)
	assert.Empty(t, conf.pauses)
	assert.Equal(t, 1, page.count("click:#done"))
}

func TestApply_DismissAfterSubmit(t *testing.T) {
	page := &fakePage{
		jobPage: jobPage(easyApplyButton),
		steps: []string{
			stepPage(primary("s", "Submit application")),
			`<html><body><div role="dialog"><button id="dismiss" aria-label="Dismiss"></button></div></body></html>`,
		},
	}

	outcome, err := NewAdvancer(page, &recordingConfirmer{}, nil, testOptions(), nil).Apply(context.Background(), testPosting, testProfile)

	require.NoError(t, err)
	assert.Equal(t, types.OutcomeSubmitted, outcome)
	assert.Equal(t, 1, page.count("click:#dismiss"))
}

func TestApply_ModalNeverOpens(t *testing.T) {
	page := &fakePage{jobPage: jobPage(easyApplyButton), noModal: true, steps: []string{stepPage("")}}
	capt := &recordingCapturer{}

	outcome, err := NewAdvancer(page, &recordingConfirmer{}, capt, testOptions(), nil).Apply(context.Background(), testPosting, testProfile)

	require.NoError(t, err)
	assert.Equal(t, types.OutcomeExhausted, outcome)
	assert.Equal(t, 1, page.count("script:#easy"))
	assert.Equal(t, []string{"modal_fail"}, capt.labels)
}

func TestApply_ScriptClickRetryOpensFlow(t *testing.T) {
	page := &fakePage{
		jobPage:     jobPage(easyApplyButton),
		noModal:     true,
		scriptOpens: true,
		steps:       []string{stepPage(primary("s", "Submit application"))},
	}

	outcome, err := NewAdvancer(page, &recordingConfirmer{}, nil, testOptions(), nil).Apply(context.Background(), testPosting, testProfile)

	require.NoError(t, err)
	assert.Equal(t, types.OutcomeSubmitted, outcome)
}

func TestApply_ActionFailurePausesAndContinues(t *testing.T) {
	page := &fakePage{
		jobPage: jobPage(easyApplyButton),
		steps: []string{
			stepPage(primary("n", "Next")),
			stepPage(primary("s", "Submit application")),
		},
		clickErrs: map[string][]error{"#n": {errors.New("node detached")}},
	}
	conf := &recordingConfirmer{page: page}

	outcome, err := NewAdvancer(page, conf, nil, testOptions(), nil).Apply(context.Background(), testPosting, testProfile)

	require.NoError(t, err)
	assert.Equal(t, types.OutcomeSubmitted, outcome)
	assert.Equal(t, []PauseReason{PauseActionFailed, PauseCritical}, conf.reasons())
	assert.Equal(t, 1, page.count("click:#n"))
}

func notReady(sel string) error {
	return &browser.LookupError{Selector: sel, Action: "click", Cause: context.DeadlineExceeded}
}

func TestApply_ElementNotReadyIsRetriedWithoutPause(t *testing.T) {
	page := &fakePage{
		jobPage: jobPage(easyApplyButton),
		steps: []string{
			stepPage(primary("n", "Next")),
			stepPage(primary("s", "Submit application")),
		},
		clickErrs: map[string][]error{"#n": {notReady("#n")}},
	}
	conf := &recordingConfirmer{page: page}

	outcome, err := NewAdvancer(page, conf, nil, testOptions(), nil).Apply(context.Background(), testPosting, testProfile)

	require.NoError(t, err)
	assert.Equal(t, types.OutcomeSubmitted, outcome)
	assert.Equal(t, []PauseReason{PauseCritical}, conf.reasons())
	assert.Equal(t, 1, page.count("clickfail:#n"))
	assert.Equal(t, 1, page.count("click:#n"))
	assert.Less(t, page.index("clickfail:#n"), page.index("click:#n"))
}

func TestApply_ElementNeverReadyPausesAfterRetries(t *testing.T) {
	page := &fakePage{
		jobPage: jobPage(easyApplyButton),
		steps: []string{
			stepPage(primary("n", "Next")),
			stepPage(primary("s", "Submit application")),
		},
		clickErrs: map[string][]error{"#n": {notReady("#n"), notReady("#n"), notReady("#n")}},
	}
	conf := &recordingConfirmer{page: page}

	outcome, err := NewAdvancer(page, conf, nil, testOptions(), nil).Apply(context.Background(), testPosting, testProfile)

	require.NoError(t, err)
	assert.Equal(t, types.OutcomeSubmitted, outcome)
	assert.Equal(t, 1+clickRetries, page.count("clickfail:#n"))
	assert.Equal(t, []PauseReason{PauseActionFailed, PauseCritical}, conf.reasons())
	assert.Less(t, page.index("clickfail:#n"), page.index("pause:"+string(PauseActionFailed)))
}

func TestApply_ConfirmerFailureAborts(t *testing.T) {
	page := &fakePage{
		jobPage: jobPage(easyApplyButton),
		steps:   []string{stepPage(primary("s", "Submit application"))},
	}
	conf := &recordingConfirmer{page: page, err: errors.New("input closed")}

	outcome, err := NewAdvancer(page, conf, nil, testOptions(), nil).Apply(context.Background(), testPosting, testProfile)

	require.Error(t, err)
	assert.Empty(t, outcome)
	assert.Equal(t, 0, page.count("click:#s"))
}

func TestApply_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	page := &fakePage{jobPage: jobPage(easyApplyButton)}

	_, err := NewAdvancer(page, &recordingConfirmer{}, nil, testOptions(), nil).Apply(ctx, testPosting, testProfile)

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, page.events)
}

func TestApply_GeneratesCoverLetter(t *testing.T) {
	page := &fakePage{
		jobPage: jobPage(easyApplyButton + `<div class="jobs-description">Build APIs in Go.</div>`),
		steps: []string{
			stepPage(`<textarea id="cover"></textarea>` + primary("s", "Submit application")),
		},
	}
	source := &staticCoverLetter{text: "Dear hiring team"}
	opts := testOptions()
	opts.CoverLetters = source

	outcome, err := NewAdvancer(page, &recordingConfirmer{page: page}, nil, opts, nil).Apply(context.Background(), testPosting, testProfile)

	require.NoError(t, err)
	assert.Equal(t, types.OutcomeSubmitted, outcome)
	assert.Equal(t, 1, source.calls)
	assert.Contains(t, source.markup, "Build APIs in Go.")
	assert.Equal(t, 1, page.count("set:#cover=Dear hiring team"))
}

func TestApply_CoverLetterFailureIsNotFatal(t *testing.T) {
	page := &fakePage{
		jobPage: jobPage(easyApplyButton),
		steps:   []string{stepPage(`<textarea id="cover"></textarea>` + primary("s", "Submit application"))},
	}
	opts := testOptions()
	opts.CoverLetters = &staticCoverLetter{err: errors.New("quota exceeded")}

	outcome, err := NewAdvancer(page, &recordingConfirmer{page: page}, nil, opts, nil).Apply(context.Background(), testPosting, testProfile)

	require.NoError(t, err)
	assert.Equal(t, types.OutcomeSubmitted, outcome)
	for _, e := range page.events {
		assert.NotContains(t, e, "set:")
	}
}

func TestApply_ProvidedCoverLetterSkipsGeneration(t *testing.T) {
	page := &fakePage{jobPage: jobPage(easyApplyButton), steps: []string{stepPage(primary("s", "Submit application"))}}
	source := &staticCoverLetter{text: "generated"}
	opts := testOptions()
	opts.CoverLetters = source

	_, err := NewAdvancer(page, &recordingConfirmer{}, nil, opts, nil).Apply(context.Background(), testPosting, testProfile.WithCoverLetter("Mine"))

	require.NoError(t, err)
	assert.Zero(t, source.calls)
}

func TestPauseReason(t *testing.T) {
	tests := []struct {
		name   string
		state  types.StepState
		reason PauseReason
		pause  bool
	}{
		{"errors win over any label", types.StepState{PrimaryActionLabel: "next", HasValidationErrors: true}, PauseValidation, true},
		{"errors on submit", types.StepState{PrimaryActionLabel: "submit application", HasValidationErrors: true}, PauseValidation, true},
		{"unanswered", types.StepState{PrimaryActionLabel: "next", HasUnansweredRequiredField: true}, PauseUnanswered, true},
		{"submit always pauses", types.StepState{PrimaryActionLabel: "submit application"}, PauseCritical, true},
		{"review always pauses", types.StepState{PrimaryActionLabel: "review"}, PauseCritical, true},
		{"clean next", types.StepState{PrimaryActionLabel: "next"}, "", false},
		{"no action", types.StepState{}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, pause := pauseReason(tt.state)
			assert.Equal(t, tt.pause, pause)
			assert.Equal(t, tt.reason, reason)
		})
	}
}
