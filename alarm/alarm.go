// Package alarm provides named one-shot alarms whose callbacks run on a
// single executor rather than on timer goroutines.
package alarm

import (
	"time"

	"github.com/mgutz/logxi/v1"
)

var logger = log.New("alarm")

// A Poster queues f to run on the executor that owns the alarm.
type Poster func(f func())

// Alarm is a one-shot timer. All methods must be called from the executor
// that the Poster feeds.
type Alarm struct {
	name  string
	clock Clock
	post  Poster

	timer Timer
	gen   uint64
	freed bool
}

// New creates an alarm. A nil clock uses the system clock.
func New(name string, clock Clock, post Poster) *Alarm {
	if clock == nil {
		clock = SystemClock
	}
	return &Alarm{name: name, clock: clock, post: post}
}

// Name returns the alarm name.
func (a *Alarm) Name() string { return a.name }

// Set (re)schedules the alarm. A pending expiry is canceled first.
func (a *Alarm) Set(d time.Duration, fn func()) {
	if a.freed {
		logger.Warn("set on freed alarm", "name", a.name)
		return
	}
	a.Cancel()
	gen := a.gen
	post := a.post
	a.timer = a.clock.AfterFunc(d, func() {
		post(func() {
			if a.freed || a.gen != gen {
				return
			}
			a.timer = nil
			fn()
		})
	})
}

// Cancel stops a pending expiry. An expiry already queued on the executor
// is discarded.
func (a *Alarm) Cancel() {
	a.gen++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// Scheduled reports whether the alarm is pending.
func (a *Alarm) Scheduled() bool { return a.timer != nil }

// Free cancels the alarm for good. Freeing twice is harmless.
func (a *Alarm) Free() {
	if a.freed {
		return
	}
	a.Cancel()
	a.freed = true
}

// Freed reports whether Free has been called.
func (a *Alarm) Freed() bool { return a.freed }
