package server

import (
	"sync"

	"github.com/jonathan/jobaru/internal/session"
)

// recentLimit is how many events GET /status returns.
const recentLimit = 50

// EventHub fans session progress events out to stream subscribers and keeps
// the most recent ones. Publish satisfies session.EventCallback.
type EventHub struct {
	mu     sync.Mutex
	recent []session.Event
	subs   map[chan session.Event]struct{}
}

// NewEventHub creates an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[chan session.Event]struct{})}
}

// Publish records ev and offers it to every subscriber without blocking.
func (h *EventHub) Publish(ev session.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.recent = append(h.recent, ev)
	if len(h.recent) > recentLimit {
		h.recent = h.recent[len(h.recent)-recentLimit:]
	}
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Recent returns a copy of the retained events, oldest first.
func (h *EventHub) Recent() []session.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]session.Event{}, h.recent...)
}

// Subscribe returns a channel of future events and a function that
// unsubscribes and closes it.
func (h *EventHub) Subscribe() (<-chan session.Event, func()) {
	ch := make(chan session.Event, 32)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}
