// Package agtest provides in-memory transports for exercising a gateway
// without a Bluetooth controller.
package agtest

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/rfcomm"
)

// Port is a snapshot of an RFCOMM port.
type Port struct {
	Handle    uint16
	SCN       uint8
	Server    bool
	Addr      ag.Addr
	Connected bool
}

type port struct {
	Port
	sent [][]byte
}

// RFCOMM is an in-memory rfcomm.Transport. Tests drive the peer side with
// Accept, Complete, Drop and Receive.
type RFCOMM struct {
	mu    sync.Mutex
	sink  rfcomm.Sink
	next  uint16
	ports map[uint16]*port

	// ConnectErr makes Connect fail at once.
	ConnectErr error

	// AutoComplete makes outgoing connections succeed as soon as they
	// are started.
	AutoComplete bool

	// Opening, when set, is reported as a pending incoming connection.
	Opening ag.Addr
}

// NewRFCOMM returns an empty transport.
func NewRFCOMM() *RFCOMM {
	return &RFCOMM{ports: make(map[uint16]*port)}
}

// SetSink implements rfcomm.Transport.
func (t *RFCOMM) SetSink(s rfcomm.Sink) {
	t.mu.Lock()
	t.sink = s
	t.mu.Unlock()
}

func (t *RFCOMM) add(p Port) uint16 {
	t.next++
	p.Handle = t.next
	t.ports[p.Handle] = &port{Port: p}
	return p.Handle
}

// CreateServer implements rfcomm.Transport.
func (t *RFCOMM) CreateServer(scn uint8, mtu uint16) (uint16, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.add(Port{SCN: scn, Server: true}), nil
}

// RemoveServer implements rfcomm.Transport. It removes any port without
// reporting an event.
func (t *RFCOMM) RemoveServer(h uint16) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.ports[h]; !ok {
		return rfcomm.ErrUnknownHandle
	}
	delete(t.ports, h)
	return nil
}

// Connect implements rfcomm.Transport.
func (t *RFCOMM) Connect(addr ag.Addr, scn uint8, mtu uint16) (uint16, error) {
	t.mu.Lock()
	if t.ConnectErr != nil {
		t.mu.Unlock()
		return 0, t.ConnectErr
	}
	h := t.add(Port{SCN: scn, Addr: addr})
	auto := t.AutoComplete
	t.mu.Unlock()
	if auto {
		t.Complete(h, true)
	}
	return h, nil
}

// Disconnect implements rfcomm.Transport. A Closed event follows.
func (t *RFCOMM) Disconnect(h uint16) error {
	return t.drop(h, rfcomm.Closed)
}

// Write implements rfcomm.Transport.
func (t *RFCOMM) Write(h uint16, b []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.ports[h]
	if !ok {
		return 0, rfcomm.ErrUnknownHandle
	}
	if !p.Connected {
		return 0, errors.Errorf("port %d not connected", h)
	}
	p.sent = append(p.sent, append([]byte(nil), b...))
	return len(b), nil
}

// PeerAddr implements rfcomm.Transport.
func (t *RFCOMM) PeerAddr(h uint16) (ag.Addr, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.ports[h]
	if !ok || !p.Connected {
		return ag.Addr{}, rfcomm.ErrUnknownHandle
	}
	return p.Addr, nil
}

// IsOpening reports a pending incoming connection.
func (t *RFCOMM) IsOpening() (ag.Addr, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Opening, !t.Opening.IsZero()
}

func (t *RFCOMM) emit(h uint16, code rfcomm.Code) {
	t.mu.Lock()
	s := t.sink
	t.mu.Unlock()
	if s != nil {
		s.PortEvent(h, code)
	}
}

// Accept connects addr to the first idle server port on scn and returns
// its handle.
func (t *RFCOMM) Accept(scn uint8, addr ag.Addr) (uint16, bool) {
	t.mu.Lock()
	var hs []int
	for h, p := range t.ports {
		if p.Server && p.SCN == scn && !p.Connected {
			hs = append(hs, int(h))
		}
	}
	if len(hs) == 0 {
		t.mu.Unlock()
		return 0, false
	}
	sort.Ints(hs)
	p := t.ports[uint16(hs[0])]
	p.Connected = true
	p.Addr = addr
	t.mu.Unlock()
	t.emit(p.Handle, rfcomm.Success)
	return p.Handle, true
}

// Complete finishes an outgoing connection.
func (t *RFCOMM) Complete(h uint16, ok bool) {
	if !ok {
		t.drop(h, rfcomm.Failed)
		return
	}
	t.mu.Lock()
	p, found := t.ports[h]
	if found {
		p.Connected = true
	}
	t.mu.Unlock()
	if found {
		t.emit(h, rfcomm.Success)
	}
}

// Drop disconnects h from the peer side.
func (t *RFCOMM) Drop(h uint16) error {
	return t.drop(h, rfcomm.Closed)
}

func (t *RFCOMM) drop(h uint16, code rfcomm.Code) error {
	t.mu.Lock()
	p, ok := t.ports[h]
	if !ok {
		t.mu.Unlock()
		return rfcomm.ErrUnknownHandle
	}
	if p.Server {
		p.Connected = false
		p.Addr = ag.Addr{}
		p.sent = nil
	} else {
		delete(t.ports, h)
	}
	t.mu.Unlock()
	t.emit(h, code)
	return nil
}

// Receive delivers s from the peer on h.
func (t *RFCOMM) Receive(h uint16, s string) {
	t.mu.Lock()
	sink := t.sink
	t.mu.Unlock()
	if sink != nil {
		sink.PortData(h, []byte(s))
	}
}

// Sent returns and clears what was written on h.
func (t *RFCOMM) Sent(h uint16) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.ports[h]
	if !ok {
		return ""
	}
	var s string
	for _, b := range p.sent {
		s += string(b)
	}
	p.sent = nil
	return s
}

// Port returns a snapshot of h.
func (t *RFCOMM) Port(h uint16) (Port, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.ports[h]
	if !ok {
		return Port{}, false
	}
	return p.Port, true
}

// Ports returns snapshots of every port, ordered by handle.
func (t *RFCOMM) Ports() []Port {
	t.mu.Lock()
	defer t.mu.Unlock()
	var ps []Port
	for _, p := range t.ports {
		ps = append(ps, p.Port)
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].Handle < ps[j].Handle })
	return ps
}

// Servers counts the server ports listening on scn.
func (t *RFCOMM) Servers(scn uint8) int {
	n := 0
	for _, p := range t.Ports() {
		if p.Server && p.SCN == scn {
			n++
		}
	}
	return n
}

// Client returns the outgoing port to addr.
func (t *RFCOMM) Client(addr ag.Addr) (Port, bool) {
	for _, p := range t.Ports() {
		if !p.Server && p.Addr == addr {
			return p, true
		}
	}
	return Port{}, false
}
