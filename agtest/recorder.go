package agtest

import (
	"sync"

	"github.com/currantlabs/ag"
)

// Recorder is an ag.Handler that keeps every event it is served.
type Recorder struct {
	mu     sync.Mutex
	events []ag.Event

	// Next, if set, is served after recording.
	Next ag.Handler
}

// ServeEvent implements ag.Handler.
func (r *Recorder) ServeEvent(e ag.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	if r.Next != nil {
		r.Next.ServeEvent(e)
	}
}

// Events returns the recorded events.
func (r *Recorder) Events() []ag.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ag.Event(nil), r.events...)
}

// Count returns the number of events with id.
func (r *Recorder) Count(id ag.EventID) int {
	n := 0
	for _, e := range r.Events() {
		if e.ID() == id {
			n++
		}
	}
	return n
}

// Last returns the last event with id.
func (r *Recorder) Last(id ag.EventID) (ag.Event, bool) {
	evts := r.Events()
	for i := len(evts) - 1; i >= 0; i-- {
		if evts[i].ID() == id {
			return evts[i], true
		}
	}
	return nil, false
}

// Reset forgets every recorded event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
