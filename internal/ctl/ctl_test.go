package ctl

import (
	"testing"

	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/agtest"
	"github.com/currantlabs/ag/gateway"
	"github.com/currantlabs/ag/internal/dev"
)

func TestParseResult(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want ag.ResultCode
		ok   bool
	}{
		{"spk", ag.ResultSPK, true},
		{"in-call", ag.ResultInCall, true},
		{"IND_ON_DEMAND", ag.ResultIndOnDemand, true},
		{"RES_25", 0, false},
		{"res-30", 0, false},
		{"ring", 0, false},
	} {
		got, err := ParseResult(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseResult(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestParseCodecs(t *testing.T) {
	c, err := ParseCodecs([]string{"mSBC", "lc3"})
	if err != nil || c != ag.CodecMSBC|ag.CodecLC3 {
		t.Errorf("got %v, %v", c, err)
	}
	if _, err := ParseCodecs([]string{"opus"}); err == nil {
		t.Error("opus accepted")
	}
	if c, _ := ParseCodecs(nil); c != ag.CodecNone {
		t.Errorf("empty list gave %v", c)
	}
}

func TestParseServices(t *testing.T) {
	m, err := ParseServices([]string{"hsp", "HFP"})
	if err != nil || m != ag.HSPServiceMask|ag.HFPServiceMask {
		t.Errorf("got %v, %v", m, err)
	}
	if _, err := ParseServices([]string{"a2dp"}); err == nil {
		t.Error("a2dp accepted")
	}
}

func TestExec(t *testing.T) {
	st := dev.LoopStack()
	g, err := gateway.New(st.Options...)
	if err != nil {
		t.Fatal(err)
	}
	defer g.Shutdown()
	peer := ag.MustParseAddr("00:11:22:33:44:55")
	st.Loop.AddPeer(peer, 7, 0x0004)

	rec := &agtest.Recorder{}
	for _, c := range []Command{
		{Op: "enable"},
		{Op: "register", Services: []string{"hfp"}, Features: uint32(ag.FeatCodec), Names: []string{"", "Gateway"}, AppID: 2},
	} {
		if err := Exec(g, rec, c); err != nil {
			t.Fatalf("%s: %v", c.Op, err)
		}
	}
	g.Sync()
	e, ok := rec.Last(ag.EvtRegister)
	if !ok || !e.Hdr().Status.Ok() {
		t.Fatalf("register: %v", e)
	}
	h := e.Hdr().Handle

	if err := Exec(g, rec, Command{Op: "open", Handle: h, Addr: peer.String()}); err != nil {
		t.Fatal(err)
	}
	g.Sync()
	e, ok = rec.Last(ag.EvtOpen)
	if !ok || !e.Hdr().Status.Ok() {
		t.Fatalf("open: %v", e)
	}
	m := FromEvent(e)
	if m.Event != "OPEN" || m.Addr != peer.String() || m.Handle != h || m.Status != "" {
		t.Errorf("message %+v", m)
	}
	v, ok := g.State(h)
	if !ok {
		t.Fatal("no state")
	}
	if b := FromView(v); b.Addr != peer.String() || b.SLC {
		t.Errorf("block %+v", b)
	}

	if err := Exec(g, rec, Command{Op: "open", Handle: h, Addr: "nope"}); err == nil {
		t.Error("bad address accepted")
	}
	if err := Exec(g, rec, Command{Op: "dance"}); err == nil {
		t.Error("unknown op accepted")
	}
}
