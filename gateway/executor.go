package gateway

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrClosed is returned once the gateway has been closed.
var ErrClosed = errors.New("gateway closed")

// executor runs posted functions one at a time, in order, on a single
// goroutine. Posting never blocks.
type executor struct {
	sync.Mutex

	queue   []func()
	running bool
	closed  bool
	pending int // async functions still running

	chWake chan struct{}
	done   chan struct{}
	idle   *sync.Cond
}

func newExecutor() *executor {
	e := &executor{
		chWake: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	e.idle = sync.NewCond(&e.Mutex)
	return e
}

func (e *executor) start() {
	go e.loop()
}

func (e *executor) loop() {
	for {
		select {
		case <-e.done:
			return
		case <-e.chWake:
		}
		for {
			f := e.next()
			if f == nil {
				break
			}
			f()
		}
	}
}

func (e *executor) next() func() {
	e.Lock()
	defer e.Unlock()
	if len(e.queue) == 0 || e.closed {
		e.running = false
		e.idle.Broadcast()
		return nil
	}
	f := e.queue[0]
	e.queue[0] = nil
	e.queue = e.queue[1:]
	e.running = true
	return f
}

// post queues f. It reports false after close.
func (e *executor) post(f func()) bool {
	e.Lock()
	if e.closed {
		e.Unlock()
		return false
	}
	e.queue = append(e.queue, f)
	e.Unlock()
	select {
	case e.chWake <- struct{}{}:
	default:
	}
	return true
}

// call runs f on the executor and waits for it. It must not be used from
// the executor itself.
func (e *executor) call(f func()) error {
	done := make(chan struct{})
	if !e.post(func() {
		defer close(done)
		f()
	}) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-e.done:
		return ErrClosed
	}
}

// async runs f on a goroutine of its own. f hands its results back with
// post.
func (e *executor) async(f func()) {
	e.Lock()
	e.pending++
	e.Unlock()
	go func() {
		defer func() {
			e.Lock()
			e.pending--
			e.idle.Broadcast()
			e.Unlock()
		}()
		f()
	}()
}

// wait blocks until the queue is empty, nothing is running, and every
// async function has returned.
func (e *executor) wait() {
	e.Lock()
	defer e.Unlock()
	for (len(e.queue) > 0 || e.running || e.pending > 0) && !e.closed {
		e.idle.Wait()
	}
}

func (e *executor) close() {
	e.Lock()
	defer e.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.queue = nil
	close(e.done)
	e.idle.Broadcast()
}
