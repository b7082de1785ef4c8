package alarm

import (
	"sort"
	"sync"
	"time"
)

// A Timer can be stopped.
type Timer interface {
	Stop() bool
}

// Clock schedules functions.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock uses time.AfterFunc.
var SystemClock Clock = systemClock{}

// ManualClock only advances when told to. Expired functions run
// synchronously inside Advance, in deadline order.
type ManualClock struct {
	sync.Mutex
	now     time.Duration
	seq     int
	pending []*manualTimer
}

type manualTimer struct {
	c        *ManualClock
	deadline time.Duration
	seq      int
	f        func()
	stopped  bool
}

// NewManualClock returns a clock at time zero.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// AfterFunc implements Clock.
func (c *ManualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.Lock()
	defer c.Unlock()
	c.seq++
	t := &manualTimer{c: c, deadline: c.now + d, seq: c.seq, f: f}
	c.pending = append(c.pending, t)
	return t
}

// Advance moves the clock forward and runs every function that expires.
func (c *ManualClock) Advance(d time.Duration) {
	c.Lock()
	c.now += d
	now := c.now
	var due []*manualTimer
	rest := c.pending[:0]
	for _, t := range c.pending {
		if t.stopped {
			continue
		}
		if t.deadline <= now {
			due = append(due, t)
		} else {
			rest = append(rest, t)
		}
	}
	c.pending = rest
	c.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].deadline != due[j].deadline {
			return due[i].deadline < due[j].deadline
		}
		return due[i].seq < due[j].seq
	})
	for _, t := range due {
		t.f()
	}
}

// Pending returns the number of armed timers.
func (c *ManualClock) Pending() int {
	c.Lock()
	defer c.Unlock()
	n := 0
	for _, t := range c.pending {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (t *manualTimer) Stop() bool {
	t.c.Lock()
	defer t.c.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}
