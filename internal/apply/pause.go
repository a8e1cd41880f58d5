package apply

import (
	"context"
	"sync"
)

// PauseReason names why the flow stopped for a human.
type PauseReason string

// Pause reasons.
const (
	PauseValidation   PauseReason = "validation"
	PauseUnanswered   PauseReason = "unanswered"
	PauseCritical     PauseReason = "critical"
	PauseStuck        PauseReason = "stuck"
	PauseActionFailed PauseReason = "action_failed"
	PauseLogin        PauseReason = "login"
	PauseBetweenJobs  PauseReason = "between_jobs"
)

// Prompt returns the instruction shown to the human.
func (r PauseReason) Prompt() string {
	switch r {
	case PauseValidation:
		return "The form reports errors. Fix them in the browser, then continue."
	case PauseUnanswered:
		return "Some questions are unanswered. Answer them in the browser, then continue."
	case PauseCritical:
		return "Review the application. Continuing will invoke the action shown."
	case PauseStuck:
		return "No action button was found. Fix the page manually, then continue."
	case PauseActionFailed:
		return "The action could not be clicked. Check the page, then continue."
	case PauseLogin:
		return "Log in manually in the browser window, then continue."
	case PauseBetweenJobs:
		return "Continue to the next job?"
	default:
		return "Continue?"
	}
}

// Pause describes one suspension point. Seq is assigned by the confirmer.
type Pause struct {
	Seq     int         `json:"seq"`
	Reason  PauseReason `json:"reason"`
	JobID   string      `json:"job_id,omitempty"`
	Title   string      `json:"title,omitempty"`
	Company string      `json:"company,omitempty"`
	Action  string      `json:"action,omitempty"`
	Step    int         `json:"step,omitempty"`
	Detail  []string    `json:"detail,omitempty"`
}

// Confirmer blocks until a human resumes the flow. There is no timeout;
// only ctx cancellation ends the wait early, and then the error is ctx.Err().
type Confirmer interface {
	Confirm(ctx context.Context, p Pause) error
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, p Pause) error

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, p Pause) error {
	return f(ctx, p)
}

type waiter struct {
	pause Pause
	done  chan struct{}
}

// ChannelConfirmer is a Confirmer resumed programmatically. Each pause gets a
// sequence number and only a Resume naming that number releases it, so a late
// resume for an earlier pause can never confirm a later one.
type ChannelConfirmer struct {
	mu          sync.Mutex
	seq         int
	pending     *waiter
	subscribers map[chan Pause]struct{}
}

// NewChannelConfirmer creates a ChannelConfirmer with no pending pause.
func NewChannelConfirmer() *ChannelConfirmer {
	return &ChannelConfirmer{subscribers: make(map[chan Pause]struct{})}
}

// Confirm publishes p to subscribers and waits for Resume(p.Seq).
func (c *ChannelConfirmer) Confirm(ctx context.Context, p Pause) error {
	c.mu.Lock()
	c.seq++
	p.Seq = c.seq
	w := &waiter{pause: p, done: make(chan struct{})}
	c.pending = w
	for ch := range c.subscribers {
		select {
		case ch <- p:
		default:
		}
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.pending == w {
			c.pending = nil
		}
		c.mu.Unlock()
	}()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the pause currently waiting, if any.
func (c *ChannelConfirmer) Pending() (Pause, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return Pause{}, false
	}
	return c.pending.pause, true
}

// Resume releases the pending pause with the given sequence number.
func (c *ChannelConfirmer) Resume(seq int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return ErrNoPendingPause
	}
	if c.pending.pause.Seq != seq {
		return ErrStalePause
	}
	close(c.pending.done)
	c.pending = nil
	return nil
}

// Subscribe returns a channel receiving every new pause and a function that
// unsubscribes and closes it. Slow subscribers miss pauses rather than block the flow.
func (c *ChannelConfirmer) Subscribe() (<-chan Pause, func()) {
	ch := make(chan Pause, 8)
	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, ch)
			c.mu.Unlock()
			close(ch)
		})
	}
}
