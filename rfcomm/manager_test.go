package rfcomm_test

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/agtest"
	"github.com/currantlabs/ag/rfcomm"
)

var peer = ag.MustParseAddr("00:11:22:33:44:55")

func TestStartCloseServers(t *testing.T) {
	tr := agtest.NewRFCOMM()
	m := rfcomm.NewManager(tr)
	var p rfcomm.Ports
	scn := [ag.NumIdx]uint8{2, 3}

	m.StartServers(4, &p, ag.HSPServiceMask|ag.HFPServiceMask, scn)
	if tr.Servers(2) != 1 || tr.Servers(3) != 1 {
		t.Fatalf("servers = %v", tr.Ports())
	}
	for i, h := range p.Servers {
		if idx, ok := m.Owner(h); !ok || idx != 4 {
			t.Errorf("owner of server %d = %d, %v", i, idx, ok)
		}
	}

	// Already running servers are left alone.
	m.StartServers(4, &p, ag.HFPServiceMask, scn)
	if tr.Servers(3) != 1 {
		t.Fatal("server created twice")
	}

	m.CloseServers(4, &p, ag.HSPServiceMask)
	if p.Servers[ag.HSPIndex] != 0 || tr.Servers(2) != 0 {
		t.Fatal("HSP server not removed")
	}
	if m.ServersClosed(&p, ag.HSPServiceMask|ag.HFPServiceMask) {
		t.Fatal("HFP server is still open")
	}
	m.CloseServers(4, &p, ag.HFPServiceMask)
	if !m.ServersClosed(&p, ag.HSPServiceMask|ag.HFPServiceMask) {
		t.Fatal("servers not closed")
	}
}

func TestClassify(t *testing.T) {
	m := rfcomm.NewManager(agtest.NewRFCOMM())
	listening := rfcomm.Ports{Servers: [ag.NumIdx]uint16{5, 6}}
	connected := rfcomm.Ports{Conn: 7, Servers: [ag.NumIdx]uint16{5, 6}}

	for _, tt := range []struct {
		name string
		p    rfcomm.Ports
		h    uint16
		code rfcomm.Code
		want rfcomm.Event
	}{
		{"incoming on server", listening, 6, rfcomm.Success, rfcomm.EvtOpen},
		{"unknown port opens", listening, 9, rfcomm.Success, rfcomm.EvtNone},
		{"close on server port", listening, 5, rfcomm.Closed, rfcomm.EvtNone},
		{"outgoing opens", connected, 7, rfcomm.Success, rfcomm.EvtOpen},
		{"stale server opens", connected, 5, rfcomm.Success, rfcomm.EvtNone},
		{"connection closes", connected, 7, rfcomm.Closed, rfcomm.EvtClose},
		{"connection fails", connected, 7, rfcomm.Failed, rfcomm.EvtClose},
		{"stale server closes", connected, 6, rfcomm.Closed, rfcomm.EvtNone},
	} {
		p := tt.p
		if got := m.Classify(tt.h, tt.code, &p); got != tt.want {
			t.Errorf("%s: Classify = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestOpenClose(t *testing.T) {
	tr := agtest.NewRFCOMM()
	m := rfcomm.NewManager(tr)
	var p rfcomm.Ports

	if m.Close(&p) {
		t.Fatal("Close without a port should report false")
	}

	tr.ConnectErr = errors.New("no route")
	if err := m.Open(1, &p, peer, 3); err == nil || p.Conn != 0 {
		t.Fatalf("Open = %v, conn %d", err, p.Conn)
	}

	tr.ConnectErr = nil
	if err := m.Open(1, &p, peer, 3); err != nil {
		t.Fatal(err)
	}
	if idx, ok := m.Owner(p.Conn); !ok || idx != 1 {
		t.Fatal("connection has no owner")
	}
	tr.Complete(p.Conn, true)

	if !m.Accepts(p.Conn, &p) || m.Accepts(p.Conn+1, &p) {
		t.Fatal("data filter mismatch")
	}
	if err := m.Write(&p, []byte("\r\nOK\r\n")); err != nil {
		t.Fatal(err)
	}
	if got := tr.Sent(p.Conn); got != "\r\nOK\r\n" {
		t.Fatalf("sent %q", got)
	}
	if a, err := m.PeerAddr(p.Conn); err != nil || a != peer {
		t.Fatalf("PeerAddr = %s, %v", a, err)
	}

	if !m.Close(&p) {
		t.Fatal("Close should report a pending close")
	}
	h := p.Conn
	m.Remove(&p)
	if p.Conn != 0 {
		t.Fatal("Remove kept the connection")
	}
	if _, ok := m.Owner(h); ok {
		t.Fatal("Remove kept the owner")
	}
	if err := m.Write(&p, []byte("x")); errors.Cause(err) != rfcomm.ErrUnknownHandle {
		t.Fatalf("Write after remove = %v", err)
	}
}
