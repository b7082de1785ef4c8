package agtest

import (
	"sort"
	"sync"

	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/sco"
)

// Link is a snapshot of a synchronous link.
type Link struct {
	Idx       uint16
	Addr      ag.Addr
	Params    sco.Params
	Outgoing  bool
	Connected bool
}

// SCO is an in-memory sco.Link.
type SCO struct {
	mu    sync.Mutex
	sink  sco.Sink
	next  uint16
	links map[uint16]*Link
	dials []Link

	// ConnectErr makes Connect fail at once.
	ConnectErr error

	// AutoComplete makes outgoing links connect as soon as they are
	// started.
	AutoComplete bool
}

// NewSCO returns a link layer without links.
func NewSCO() *SCO {
	return &SCO{links: make(map[uint16]*Link)}
}

// SetSink implements sco.Link.
func (s *SCO) SetSink(sink sco.Sink) {
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
}

// Listen implements sco.Link.
func (s *SCO) Listen(addr ag.Addr, p sco.Params) (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.links[s.next] = &Link{Idx: s.next, Addr: addr, Params: p}
	return s.next, nil
}

// Connect implements sco.Link.
func (s *SCO) Connect(addr ag.Addr, p sco.Params) (uint16, error) {
	s.mu.Lock()
	if s.ConnectErr != nil {
		s.mu.Unlock()
		return sco.InvalidIdx, s.ConnectErr
	}
	s.next++
	l := &Link{Idx: s.next, Addr: addr, Params: p, Outgoing: true}
	s.links[l.Idx] = l
	s.dials = append(s.dials, *l)
	auto := s.AutoComplete
	s.mu.Unlock()
	if auto {
		s.Complete(l.Idx, true)
	}
	return l.Idx, nil
}

// Remove implements sco.Link. Removing a connected link reports a close.
func (s *SCO) Remove(idx uint16) (bool, error) {
	s.mu.Lock()
	l, ok := s.links[idx]
	if !ok {
		s.mu.Unlock()
		return false, sco.ErrNotConnected
	}
	delete(s.links, idx)
	sink := s.sink
	s.mu.Unlock()
	if !l.Connected {
		return false, nil
	}
	if sink != nil {
		sink.LinkClose(idx)
	}
	return true, nil
}

// Accept connects the listener for addr, as if the peer opened audio.
func (s *SCO) Accept(addr ag.Addr) (uint16, bool) {
	s.mu.Lock()
	var l *Link
	for _, c := range s.links {
		if !c.Outgoing && !c.Connected && c.Addr == addr {
			l = c
			break
		}
	}
	if l == nil {
		s.mu.Unlock()
		return 0, false
	}
	l.Connected = true
	sink := s.sink
	s.mu.Unlock()
	if sink != nil {
		sink.LinkOpen(l.Idx)
	}
	return l.Idx, true
}

// Complete finishes an outgoing link.
func (s *SCO) Complete(idx uint16, ok bool) {
	s.mu.Lock()
	l, found := s.links[idx]
	if !found {
		s.mu.Unlock()
		return
	}
	if ok {
		l.Connected = true
	} else {
		delete(s.links, idx)
	}
	sink := s.sink
	s.mu.Unlock()
	if sink == nil {
		return
	}
	if ok {
		sink.LinkOpen(idx)
	} else {
		sink.LinkClose(idx)
	}
}

// Drop disconnects idx from the peer side.
func (s *SCO) Drop(idx uint16) {
	s.mu.Lock()
	_, ok := s.links[idx]
	delete(s.links, idx)
	sink := s.sink
	s.mu.Unlock()
	if ok && sink != nil {
		sink.LinkClose(idx)
	}
}

// Dials returns every outgoing link started so far.
func (s *SCO) Dials() []Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Link(nil), s.dials...)
}

// Links returns the current links ordered by index.
func (s *SCO) Links() []Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ls []Link
	for _, l := range s.links {
		ls = append(ls, *l)
	}
	sort.Slice(ls, func(i, j int) bool { return ls[i].Idx < ls[j].Idx })
	return ls
}

// Pending returns the outgoing link that has not connected yet.
func (s *SCO) Pending() (Link, bool) {
	for _, l := range s.Links() {
		if l.Outgoing && !l.Connected {
			return l, true
		}
	}
	return Link{}, false
}

// Listening reports whether a listener for addr exists.
func (s *SCO) Listening(addr ag.Addr) bool {
	for _, l := range s.Links() {
		if !l.Outgoing && !l.Connected && l.Addr == addr {
			return true
		}
	}
	return false
}
