package apply

import (
	"context"
	"fmt"

	"github.com/jonathan/jobaru/internal/artifacts"
	"github.com/jonathan/jobaru/internal/types"
)

// fakePage renders a job page and then a fixed list of steps. Clicking a step's
// action moves to the next step; the last step repeats once the list runs out.
type fakePage struct {
	jobPage     string
	steps       []string
	stay        bool               // step actions do not advance
	noModal     bool               // the entry click never opens the flow
	scriptOpens bool               // a script click opens the flow even when noModal is set
	redirect    bool               // the entry click opens a second browsing context
	clickErrs   map[string][]error // consumed one per click
	uploadErr   error

	opened   bool
	idx      int
	contexts int
	closed   bool
	events   []string
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.events = append(p.events, "navigate:"+url)
	return nil
}

func (p *fakePage) Snapshot(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !p.opened {
		return p.jobPage, nil
	}
	i := p.idx
	if i >= len(p.steps) {
		i = len(p.steps) - 1
	}
	return p.steps[i], nil
}

func (p *fakePage) Click(_ context.Context, sel string) error {
	if errs := p.clickErrs[sel]; len(errs) > 0 {
		err := errs[0]
		p.clickErrs[sel] = errs[1:]
		p.events = append(p.events, "clickfail:"+sel)
		return err
	}
	p.events = append(p.events, "click:"+sel)
	p.activate(sel, false)
	return nil
}

func (p *fakePage) ScriptClick(_ context.Context, sel string) error {
	p.events = append(p.events, "script:"+sel)
	p.activate(sel, true)
	return nil
}

func (p *fakePage) activate(sel string, script bool) {
	switch {
	case !p.opened:
		if p.redirect {
			p.contexts = 2
			return
		}
		if !p.noModal || (script && p.scriptOpens) {
			p.opened = true
		}
	case sel == "#dismiss" || sel == "#done":
	case !p.stay:
		p.idx++
	}
}

func (p *fakePage) SetValue(_ context.Context, sel, text string) error {
	p.events = append(p.events, "set:"+sel+"="+text)
	return nil
}

func (p *fakePage) Upload(_ context.Context, sel, path string) error {
	p.events = append(p.events, "upload:"+sel+"="+path)
	return p.uploadErr
}

func (p *fakePage) BrowsingContexts(context.Context) (int, error) {
	if p.contexts == 0 {
		return 1, nil
	}
	return p.contexts, nil
}

func (p *fakePage) CloseSecondaryContexts(context.Context) error {
	p.closed = true
	p.contexts = 1
	p.events = append(p.events, "close-secondary")
	return nil
}

func (p *fakePage) count(event string) int {
	n := 0
	for _, e := range p.events {
		if e == event {
			n++
		}
	}
	return n
}

func (p *fakePage) index(event string) int {
	for i, e := range p.events {
		if e == event {
			return i
		}
	}
	return -1
}

// recordingConfirmer resumes immediately and logs each pause into the page's event list.
type recordingConfirmer struct {
	page    *fakePage
	pauses  []Pause
	onPause func(Pause)
	err     error
}

func (c *recordingConfirmer) Confirm(_ context.Context, p Pause) error {
	c.pauses = append(c.pauses, p)
	if c.page != nil {
		c.page.events = append(c.page.events, "pause:"+string(p.Reason))
	}
	if c.onPause != nil {
		c.onPause(p)
	}
	return c.err
}

func (c *recordingConfirmer) reasons() []PauseReason {
	out := make([]PauseReason, 0, len(c.pauses))
	for _, p := range c.pauses {
		out = append(out, p.Reason)
	}
	return out
}

type recordingCapturer struct {
	labels []string
}

func (c *recordingCapturer) Capture(_ context.Context, label string) artifacts.Paths {
	c.labels = append(c.labels, label)
	return artifacts.Paths{Screenshot: label + ".png", Markup: label + ".html"}
}

type staticCoverLetter struct {
	text   string
	err    error
	calls  int
	markup string
}

func (s *staticCoverLetter) CoverLetter(_ context.Context, _ types.JobPosting, _ types.ApplicationProfile, markup string) (string, error) {
	s.calls++
	s.markup = markup
	return s.text, s.err
}

const easyApplyButton = `<button id="easy" class="jobs-apply-button">Easy Apply</button>`

func jobPage(body string) string {
	return "<html><body><h1>Backend Engineer</h1>" + body + "</body></html>"
}

func stepPage(body string) string {
	return `<html><body><div role="dialog"><button id="back" class="artdeco-button--secondary">Back</button>` + body + `</div></body></html>`
}

func primary(id, label string) string {
	return fmt.Sprintf(`<button id="%s" class="artdeco-button artdeco-button--primary"><span>%s</span></button>`, id, label)
}
