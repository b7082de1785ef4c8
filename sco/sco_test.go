package sco

import (
	"testing"

	"github.com/currantlabs/ag"
)

type fakeLink struct {
	next      uint16
	listens   map[uint16]ag.Addr
	dials     []Params
	connected map[uint16]bool
	removed   []uint16
}

func newFakeLink() *fakeLink {
	return &fakeLink{
		listens:   make(map[uint16]ag.Addr),
		connected: make(map[uint16]bool),
	}
}

func (l *fakeLink) SetSink(s Sink) {}

func (l *fakeLink) Listen(addr ag.Addr, p Params) (uint16, error) {
	l.next++
	l.listens[l.next] = addr
	return l.next, nil
}

func (l *fakeLink) Connect(addr ag.Addr, p Params) (uint16, error) {
	l.next++
	l.dials = append(l.dials, p)
	return l.next, nil
}

func (l *fakeLink) Remove(idx uint16) (bool, error) {
	l.removed = append(l.removed, idx)
	delete(l.listens, idx)
	if l.connected[idx] {
		delete(l.connected, idx)
		return true, nil
	}
	return false, nil
}

type fakeHooks struct {
	negotiate bool
	asked     int
	aborted   []*Endpoint
}

func (h *fakeHooks) Negotiate(e *Endpoint) bool {
	h.asked++
	return h.negotiate
}

func (h *fakeHooks) Aborted(e *Endpoint) { h.aborted = append(h.aborted, e) }

var (
	addr1 = ag.MustParseAddr("00:11:22:33:44:55")
	addr2 = ag.MustParseAddr("00:11:22:33:44:66")
)

func setup(negotiate bool) (*Controller, *fakeLink, *fakeHooks) {
	l := newFakeLink()
	h := &fakeHooks{negotiate: negotiate}
	return NewController(l, h), l, h
}

// connOpen and connClose mirror what the control block layer does on link
// events.
func connOpen(c *Controller, l *fakeLink, e *Endpoint) {
	l.connected[e.Idx] = true
	c.Event(e, EvtConnOpen)
}

func connClose(c *Controller, e *Endpoint) {
	e.Idx = InvalidIdx
	c.Event(e, EvtConnClose)
}

func expectState(t *testing.T, c *Controller, want State) {
	t.Helper()
	if c.State() != want {
		t.Fatalf("state = %s, want %s", c.State(), want)
	}
}

func TestIncomingConnection(t *testing.T) {
	c, l, _ := setup(false)
	e := NewEndpoint(addr1)
	c.Event(e, EvtListen)
	expectState(t, c, StateListen)
	if !e.HasLink() || l.listens[e.Idx] != addr1 {
		t.Fatalf("no listener for %s", addr1)
	}
	connOpen(c, l, e)
	expectState(t, c, StateOpen)
	if !c.IsOpen(e) {
		t.Fatal("endpoint should own the link")
	}
}

func TestOpenClose(t *testing.T) {
	c, l, _ := setup(false)
	e := NewEndpoint(addr1)
	e.Codec = ag.CodecMSBC
	c.Event(e, EvtListen)
	listenIdx := e.Idx

	c.Event(e, EvtOpen)
	expectState(t, c, StateOpening)
	if len(l.removed) != 1 || l.removed[0] != listenIdx {
		t.Fatalf("listener not removed before dialing: %v", l.removed)
	}
	if len(l.dials) != 1 || l.dials[0].Codec != ag.CodecMSBC || !l.dials[0].Transparent() {
		t.Fatalf("dials = %v", l.dials)
	}

	connOpen(c, l, e)
	expectState(t, c, StateOpen)
	c.Event(e, EvtClose)
	expectState(t, c, StateClosing)
	connClose(c, e)
	expectState(t, c, StateListen)
	if c.Current() != nil || !e.HasLink() {
		t.Fatal("endpoint should be listening again")
	}
}

func TestCodecNegotiation(t *testing.T) {
	c, l, h := setup(true)
	e := NewEndpoint(addr1)
	c.Event(e, EvtListen)
	c.Event(e, EvtOpen)
	expectState(t, c, StateCodec)
	if h.asked != 1 || !c.Negotiating(e) {
		t.Fatal("negotiation not started")
	}
	if len(l.dials) != 0 {
		t.Fatal("dialed before negotiation finished")
	}
	c.Event(e, EvtCodecDone)
	expectState(t, c, StateOpening)
	if len(l.dials) != 1 {
		t.Fatalf("dials = %d, want 1", len(l.dials))
	}
}

func TestNegotiationAbort(t *testing.T) {
	c, _, h := setup(true)
	e := NewEndpoint(addr1)
	c.Event(e, EvtListen)
	c.Event(e, EvtOpen)
	c.Event(e, EvtClose)
	expectState(t, c, StateListen)
	if len(h.aborted) != 1 || h.aborted[0] != e {
		t.Fatalf("aborted = %v", h.aborted)
	}
}

func TestFallback(t *testing.T) {
	c, l, _ := setup(false)
	e := NewEndpoint(addr1)
	e.Codec = ag.CodecMSBC
	c.Event(e, EvtListen)
	c.Event(e, EvtOpen)

	retry := func() bool {
		ok := c.Failed(e)
		if ok {
			e.Idx = InvalidIdx
			c.Event(e, EvtReopen)
		} else {
			connClose(c, e)
		}
		return ok
	}

	want := []struct {
		codec   ag.Codec
		setting ag.CodecSetting
	}{
		{ag.CodecMSBC, ag.MSBCSettingT2},
		{ag.CodecMSBC, ag.MSBCSettingT1},
		{ag.CodecCVSD, ag.CVSDSettingS4},
		{ag.CodecCVSD, ag.CVSDSettingS3},
		{ag.CodecCVSD, ag.CVSDSettingS1},
		{ag.CodecCVSD, ag.CVSDSettingD1},
	}
	for i, w := range want {
		if len(l.dials) != i+1 {
			t.Fatalf("attempt %d: dials = %d", i, len(l.dials))
		}
		p := l.dials[i]
		if p.Codec != w.codec || p.Setting != w.setting {
			t.Fatalf("attempt %d: dialed %s/%d, want %s/%d", i, p.Codec, p.Setting, w.codec, w.setting)
		}
		last := i == len(want)-1
		if retry() == last {
			t.Fatalf("attempt %d: retry mismatch", i)
		}
	}
	expectState(t, c, StateListen)
	if !e.Fallback {
		t.Fatal("fallback flag should stay set until the session is reset")
	}
	e.ResetSettings()
	if e.Fallback || e.Settings != ag.DefaultCodecSettings {
		t.Fatal("reset did not restore settings")
	}
}

func TestFailedOnlyWhileOpening(t *testing.T) {
	c, l, _ := setup(false)
	e := NewEndpoint(addr1)
	e.Codec = ag.CodecMSBC
	c.Event(e, EvtListen)
	c.Event(e, EvtOpen)
	connOpen(c, l, e)
	if c.Failed(e) {
		t.Fatal("an open link should not be retried")
	}
}

func TestTransfer(t *testing.T) {
	c, l, _ := setup(false)
	e1, e2 := NewEndpoint(addr1), NewEndpoint(addr2)
	c.Event(e1, EvtListen)
	c.Event(e2, EvtListen)
	c.Event(e1, EvtOpen)
	connOpen(c, l, e1)

	c.Event(e2, EvtXfer)
	expectState(t, c, StateCloseXfer)
	connClose(c, e1)
	expectState(t, c, StateOpening)
	if c.Current() != e2 {
		t.Fatal("link should be moving to the second endpoint")
	}
	connOpen(c, l, e2)
	if !c.IsOpen(e2) || c.IsOpen(e1) {
		t.Fatal("only the second endpoint should own the link")
	}
}

func TestActiveDevice(t *testing.T) {
	c, l, h := setup(false)
	e := NewEndpoint(addr1)
	c.SetActive(addr2)
	c.Event(e, EvtListen)
	c.Event(e, EvtOpen)
	expectState(t, c, StateListen)
	if len(l.dials) != 0 || len(h.aborted) != 1 {
		t.Fatalf("dials = %d, aborted = %d", len(l.dials), len(h.aborted))
	}
	c.SetActive(ag.Addr{})
	c.Event(e, EvtOpen)
	expectState(t, c, StateOpening)
}

func TestShutdown(t *testing.T) {
	c, l, _ := setup(false)
	e1, e2 := NewEndpoint(addr1), NewEndpoint(addr2)
	c.Event(e1, EvtListen)
	c.Event(e2, EvtListen)
	c.Event(e1, EvtOpen)
	connOpen(c, l, e1)

	c.Event(e1, EvtShutdown)
	expectState(t, c, StateShutting)
	connClose(c, e1)
	expectState(t, c, StateListen)

	c.Event(e2, EvtShutdown)
	expectState(t, c, StateShutdown)
	if len(l.listens) != 0 {
		t.Fatalf("listeners left: %v", l.listens)
	}
}

func TestParamsFor(t *testing.T) {
	for _, tt := range []struct {
		c       ag.Codec
		s       ag.CodecSetting
		esco    bool
		codec   ag.Codec
		latency uint16
	}{
		{ag.CodecMSBC, ag.MSBCSettingT2, true, ag.CodecMSBC, 13},
		{ag.CodecMSBC, ag.MSBCSettingT1, true, ag.CodecMSBC, 8},
		{ag.CodecCVSD, ag.CVSDSettingS4, true, ag.CodecCVSD, 12},
		{ag.CodecMSBC, ag.MSBCSettingT2, false, ag.CodecCVSD, 0xFFFF},
		{ag.CodecLC3, ag.CVSDSettingD1, true, ag.CodecCVSD, 12},
	} {
		p := ParamsFor(tt.c, tt.s, tt.esco)
		if p.Codec != tt.codec || p.MaxLatency != tt.latency {
			t.Errorf("ParamsFor(%s, %d, %v) = %s", tt.c, tt.s, tt.esco, p)
		}
		if p.Transparent() != (p.Codec != ag.CodecCVSD) {
			t.Errorf("ParamsFor(%s, %d, %v): air mode mismatch", tt.c, tt.s, tt.esco)
		}
	}
}
