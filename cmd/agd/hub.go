package main

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/currantlabs/ag/internal/ctl"
)

const writeWait = 100 * time.Millisecond

type client struct {
	mu   sync.Mutex // serializes writes
	conn *websocket.Conn
}

func (c *client) write(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// hub fans gateway events out to the connected clients in order.
type hub struct {
	mu      sync.Mutex
	clients map[*client]bool
	events  chan ctl.Message
	done    chan struct{}
}

func newHub() *hub {
	h := &hub{
		clients: make(map[*client]bool),
		events:  make(chan ctl.Message, 256),
		done:    make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		c.conn.Close()
	}
}

// post queues m. It never blocks the caller.
func (h *hub) post(m ctl.Message) {
	select {
	case h.events <- m:
	default:
		logger.Warn("event dropped", "event", m.Event, "handle", m.Handle)
	}
}

func (h *hub) run() {
	defer close(h.done)
	for m := range h.events {
		h.broadcast(m)
	}
}

func (h *hub) broadcast(m ctl.Message) {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	var wg sync.WaitGroup
	var failedMu sync.Mutex
	var failed []*client
	for _, c := range clients {
		wg.Add(1)
		go func(c *client) {
			defer wg.Done()
			if err := c.write(m); err != nil {
				failedMu.Lock()
				failed = append(failed, c)
				failedMu.Unlock()
			}
		}(c)
	}
	wg.Wait()
	for _, c := range failed {
		h.remove(c)
	}
}

// close stops the hub once queued events are sent and drops the clients.
func (h *hub) close() {
	close(h.events)
	<-h.done
	h.mu.Lock()
	for c := range h.clients {
		c.conn.Close()
	}
	h.clients = make(map[*client]bool)
	h.mu.Unlock()
}
