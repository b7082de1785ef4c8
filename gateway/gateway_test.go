package gateway_test

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/agtest"
	"github.com/currantlabs/ag/alarm"
	"github.com/currantlabs/ag/gateway"
	"github.com/currantlabs/ag/sdp"
)

var (
	peer  = ag.MustParseAddr("00:11:22:33:44:55")
	peer2 = ag.MustParseAddr("00:11:22:33:44:66")
)

const (
	hspSCN  = 1
	hfpSCN  = 2
	peerSCN = 5

	features  = ag.FeatECNR | ag.FeatInband | ag.FeatCodec | ag.FeatExtErr
	peerFeats = ag.PeerFeatCLI | ag.PeerFeatVol | ag.PeerFeatCodec

	both = ag.HSPServiceMask | ag.HFPServiceMask

	noEvent = ag.EventID(0xFF)
)

type bench struct {
	t     *testing.T
	g     *gateway.Gateway
	rfc   *agtest.RFCOMM
	sdp   *agtest.SDP
	sco   *agtest.SCO
	clock *alarm.ManualClock
	rec   *agtest.Recorder
}

func newBench(t *testing.T, opts ...gateway.Option) *bench {
	b := &bench{
		t:     t,
		rfc:   agtest.NewRFCOMM(),
		sdp:   agtest.NewSDP(),
		sco:   agtest.NewSCO(),
		clock: alarm.NewManualClock(),
		rec:   &agtest.Recorder{},
	}
	opts = append([]gateway.Option{
		gateway.OptRFCOMM(b.rfc),
		gateway.OptSDP(b.sdp),
		gateway.OptRecords(b.sdp),
		gateway.OptSCOLink(b.sco),
		gateway.OptClock(b.clock),
	}, opts...)
	g, err := gateway.New(opts...)
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	b.g = g
	b.do(g.Enable(b.rec))
	b.sdp.SetRecords(peer, agtest.HFRecord(peerSCN, ag.HFPVersion18, 0x0004))
	return b
}

// do checks an API call and waits until the gateway is idle.
func (b *bench) do(err error) {
	b.t.Helper()
	if err != nil {
		b.t.Fatal(err)
	}
	b.g.Sync()
}

func (b *bench) advance(d time.Duration) {
	b.clock.Advance(d)
	b.g.Sync()
}

func (b *bench) register(services ag.ServiceMask, f ag.Feature) uint16 {
	b.t.Helper()
	b.do(b.g.Register(services, f, [ag.NumIdx]string{"Headset Gateway", "Handsfree Gateway"}, 7))
	e, ok := b.rec.Last(ag.EvtRegister)
	if !ok || e.Hdr().Status != ag.StatusSuccess {
		b.t.Fatalf("register: %v", e)
	}
	return e.Hdr().Handle
}

// open connects h to addr as initiator and returns the RFCOMM port.
func (b *bench) open(h uint16, addr ag.Addr) uint16 {
	b.t.Helper()
	b.do(b.g.Open(h, addr))
	p, ok := b.rfc.Client(addr)
	if !ok {
		b.t.Fatalf("no connection to %s, ports %v", addr, b.rfc.Ports())
	}
	if p.SCN != peerSCN {
		b.t.Fatalf("connected to channel %d, want %d", p.SCN, peerSCN)
	}
	b.rfc.Complete(p.Handle, true)
	b.g.Sync()
	e, ok := b.rec.Last(ag.EvtOpen)
	if !ok || e.Hdr().Status != ag.StatusSuccess {
		b.t.Fatalf("open: %v", e)
	}
	return p.Handle
}

// at sends an AT line from the peer and returns the response.
func (b *bench) at(port uint16, line string) string {
	b.rfc.Receive(port, line+"\r")
	b.g.Sync()
	return b.rfc.Sent(port)
}

func (b *bench) expect(port uint16, line, want string) {
	b.t.Helper()
	if got := b.at(port, line); got != want {
		b.t.Fatalf("%s: got %q, want %q", line, got, want)
	}
}

func (b *bench) sent(port uint16, want string) {
	b.t.Helper()
	if got := b.rfc.Sent(port); got != want {
		b.t.Fatalf("sent %q, want %q", got, want)
	}
}

const okLine = "\r\nOK\r\n"

func resp(lines ...string) string {
	var s string
	for _, l := range lines {
		s += "\r\n" + l + "\r\n"
	}
	return s
}

// slc plays the hands-free side of the service level connection.
func (b *bench) slc(h, port uint16, f ag.Feature) {
	b.t.Helper()
	b.expect(port, "AT+BRSF="+strconv.Itoa(int(peerFeats)), resp("+BRSF: "+strconv.Itoa(int(f&0x07FF)), "OK"))
	b.expect(port, "AT+BAC=1,2", okLine)
	if got := b.at(port, "AT+CIND=?"); !strings.HasPrefix(got, "\r\n+CIND: (\"call\",(0,1))") || !strings.HasSuffix(got, okLine) {
		b.t.Fatalf("AT+CIND=?: %q", got)
	}
	b.expect(port, "AT+CIND?", "")
	if _, ok := b.rec.Last(ag.EvtCIND); !ok {
		b.t.Fatal("no CIND event")
	}
	b.do(b.g.Result(h, ag.ResultCIND, ag.ResultData{Str: "0,0,1,5,0,5,0", OKFlag: ag.OKDone}))
	b.sent(port, resp("+CIND: 0,0,1,5,0,5,0", "OK"))
	b.expect(port, "AT+CMER=3,0,0,1", okLine)
	if b.rec.Count(ag.EvtConn) != 1 {
		b.t.Fatalf("%d CONN events, want 1", b.rec.Count(ag.EvtConn))
	}
}

// connect registers a block and brings up the service level connection.
func (b *bench) connect(f ag.Feature) (uint16, uint16) {
	b.t.Helper()
	h := b.register(both, f)
	port := b.open(h, peer)
	b.slc(h, port, f)
	return h, port
}

func (b *bench) state(h uint16) gateway.View {
	v, _ := b.g.State(h)
	return v
}

func TestEndToEnd(t *testing.T) {
	b := newBench(t)
	defer b.g.Shutdown()

	h, port := b.connect(features)
	if e, _ := b.rec.Last(ag.EvtOpen); e.(ag.OpenEvent).Service != ag.ServiceHFP || e.(ag.OpenEvent).Addr != peer {
		t.Fatalf("open event %+v", e)
	}
	e, _ := b.rec.Last(ag.EvtConn)
	conn := e.(ag.ConnEvent)
	if conn.PeerFeatures != peerFeats || conn.PeerCodecs != ag.CodecCVSD|ag.CodecMSBC {
		t.Fatalf("conn event %+v", conn)
	}
	if v := b.state(h); v.State != "OPEN" || !v.SLC || v.Role != ag.RoleInitiator || v.Addr != peer {
		t.Fatalf("view %+v", v)
	}

	// Audio with wide band speech.
	b.do(b.g.AudioOpen(h, 0))
	b.sent(port, resp("+BCS: 2"))
	b.expect(port, "AT+BCS=2", okLine)
	l, pending := b.sco.Pending()
	if !pending || l.Params.Codec != ag.CodecMSBC || l.Params.Setting != ag.MSBCSettingT2 {
		t.Fatalf("link %+v, %v", l, pending)
	}
	b.sco.Complete(l.Idx, true)
	b.g.Sync()
	e, ok := b.rec.Last(ag.EvtAudioOpen)
	if !ok || e.(ag.AudioEvent).Codec != ag.CodecMSBC {
		t.Fatalf("audio open %v", e)
	}
	if !b.state(h).Audio {
		t.Fatal("view has no audio")
	}

	b.do(b.g.AudioClose(h))
	if b.rec.Count(ag.EvtAudioClose) != 1 {
		t.Fatalf("%d AUDIO_CLOSE events", b.rec.Count(ag.EvtAudioClose))
	}
	if !b.sco.Listening(peer) {
		t.Fatal("not listening after audio close")
	}

	b.do(b.g.Close(h))
	if b.rec.Count(ag.EvtClose) != 1 {
		t.Fatal("no CLOSE event")
	}
	if v := b.state(h); v.State != "INIT" || v.SLC || !v.Addr.IsZero() {
		t.Fatalf("view after close %+v", v)
	}
	if b.rfc.Servers(hspSCN) != 1 || b.rfc.Servers(hfpSCN) != 1 {
		t.Fatalf("servers not restarted: %v", b.rfc.Ports())
	}
	if len(b.sco.Links()) != 0 {
		t.Fatalf("links left: %v", b.sco.Links())
	}
}

func TestRegisterRecords(t *testing.T) {
	b := newBench(t)
	defer b.g.Shutdown()

	h1 := b.register(both, features)
	h2 := b.register(ag.HFPServiceMask, features)
	if h1 == h2 {
		t.Fatal("same handle twice")
	}
	if n := len(b.sdp.Local()); n != 2 {
		t.Fatalf("%d records, want 2", n)
	}
	if b.rfc.Servers(hfpSCN) != 2 || b.rfc.Servers(hspSCN) != 1 {
		t.Fatalf("servers %v", b.rfc.Ports())
	}

	// The HFP record is shared and stays while h2 uses it.
	b.do(b.g.Deregister(h1))
	if n := len(b.sdp.Local()); n != 1 {
		t.Fatalf("%d records after deregister, want 1", n)
	}
	if b.rfc.Servers(hspSCN) != 0 || b.rfc.Servers(hfpSCN) != 1 {
		t.Fatalf("servers %v", b.rfc.Ports())
	}
	b.do(b.g.Deregister(h2))
	if n := len(b.sdp.Local()); n != 0 {
		t.Fatalf("%d records left", n)
	}
	if _, ok := b.g.State(h1); ok {
		t.Fatal("block still in use")
	}
}

func TestRegisterExhaustion(t *testing.T) {
	b := newBench(t)
	defer b.g.Shutdown()

	for i := 0; i < ag.MaxClients; i++ {
		b.register(ag.HFPServiceMask, features)
	}
	b.do(b.g.Register(ag.HFPServiceMask, features, [ag.NumIdx]string{}, 9))
	e, _ := b.rec.Last(ag.EvtRegister)
	if e.Hdr().Status != ag.StatusFailResources || e.Hdr().AppID != 9 {
		t.Fatalf("register event %+v", e)
	}
}

func TestOpenBusyPeer(t *testing.T) {
	b := newBench(t)
	defer b.g.Shutdown()

	h1 := b.register(both, features)
	h2 := b.register(both, features)
	b.do(b.g.Open(h1, peer))
	if v := b.state(h1); v.State != "OPENING" {
		t.Fatalf("first block %+v", v)
	}

	b.do(b.g.Open(h2, peer))
	e, ok := b.rec.Last(ag.EvtOpen)
	if !ok || e.Hdr().Handle != h2 || e.Hdr().Status != ag.StatusFailResources {
		t.Fatalf("open event %+v", e)
	}
	if v := b.state(h2); v.State != "INIT" {
		t.Fatalf("second block %+v", v)
	}
	if v := b.state(h1); v.State != "OPENING" {
		t.Fatalf("first block disturbed: %+v", v)
	}

	// A second open on the block itself is refused too.
	b.do(b.g.Open(h1, peer2))
	if e, _ := b.rec.Last(ag.EvtOpen); e.Hdr().Handle != h1 || e.Hdr().Status != ag.StatusFailResources {
		t.Fatalf("open event %+v", e)
	}
}

func TestOpenFailures(t *testing.T) {
	for _, tt := range []struct {
		name     string
		setup    func(b *bench)
		complete bool // fail the pending connection
		status   ag.Status
		searches int
	}{
		{
			name:     "no records",
			setup:    func(b *bench) { b.sdp.SetRecords(peer) },
			status:   ag.StatusFailSDP,
			searches: 3, // HFP, HSP 1.2, HSP 1.0
		},
		{
			name:     "search error",
			setup:    func(b *bench) { b.sdp.SetError(peer, errors.New("page timeout")) },
			status:   ag.StatusFailSDP,
			searches: 1,
		},
		{
			name:     "connect error",
			setup:    func(b *bench) { b.rfc.ConnectErr = errors.New("no route") },
			status:   ag.StatusFailRFCOMM,
			searches: 1,
		},
		{
			name:     "connection refused",
			setup:    func(b *bench) {},
			complete: true,
			status:   ag.StatusFailRFCOMM,
			searches: 1,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			b := newBench(t)
			defer b.g.Shutdown()
			h := b.register(both, features)
			tt.setup(b)

			b.do(b.g.Open(h, peer))
			if tt.complete {
				p, ok := b.rfc.Client(peer)
				if !ok {
					t.Fatal("no client port")
				}
				b.rfc.Complete(p.Handle, false)
				b.g.Sync()
			}
			e, ok := b.rec.Last(ag.EvtOpen)
			if !ok || e.Hdr().Status != tt.status {
				t.Fatalf("open event %+v, want status %s", e, tt.status)
			}
			if n := len(b.sdp.Searches()); n != tt.searches {
				t.Errorf("%d searches, want %d", n, tt.searches)
			}
			if v := b.state(h); v.State != "INIT" || !v.Addr.IsZero() {
				t.Errorf("view %+v", v)
			}
			if b.rfc.Servers(hspSCN) != 1 || b.rfc.Servers(hfpSCN) != 1 {
				t.Errorf("servers %v", b.rfc.Ports())
			}
		})
	}
}

func TestHeadsetFallback(t *testing.T) {
	b := newBench(t)
	defer b.g.Shutdown()
	b.sdp.SetRecords(peer, agtest.HSRecord(sdp.UUIDHeadset, peerSCN, true))

	h := b.register(both, features)
	port := b.open(h, peer)
	e, _ := b.rec.Last(ag.EvtOpen)
	if e.(ag.OpenEvent).Service != ag.ServiceHSP {
		t.Fatalf("open event %+v", e)
	}
	// Headset connections are up at once.
	if b.rec.Count(ag.EvtConn) != 1 {
		t.Fatal("no CONN event")
	}
	b.expect(port, "AT+CKPD=200", okLine)
	if e, _ := b.rec.Last(ag.EvtCKPD); e == nil {
		t.Fatal("no CKPD event")
	}
	b.expect(port, "AT+VGS=7", okLine)
	if e, _ := b.rec.Last(ag.EvtSpk); e.(ag.ValEvent).Num != 7 {
		t.Fatalf("spk event %+v", e)
	}
	b.expect(port, "AT+VGS=16", resp("ERROR"))
	b.expect(port, "AT+BRSF=1", resp("ERROR"))
}

func TestAcceptor(t *testing.T) {
	b := newBench(t)
	defer b.g.Shutdown()

	h := b.register(both, features)
	port, ok := b.rfc.Accept(hfpSCN, peer)
	if !ok {
		t.Fatal("no server")
	}
	b.g.Sync()
	e, _ := b.rec.Last(ag.EvtOpen)
	if e.Hdr().Status != ag.StatusSuccess || e.(ag.OpenEvent).Service != ag.ServiceHFP {
		t.Fatalf("open event %+v", e)
	}
	if v := b.state(h); v.Role != ag.RoleAcceptor || v.Addr != peer || v.State != "OPEN" {
		t.Fatalf("view %+v", v)
	}
	if b.rfc.Servers(hspSCN) != 0 {
		t.Fatal("HSP server still open")
	}
	if n := len(b.sdp.Searches()); n != 1 {
		t.Fatalf("%d searches, want 1", n)
	}
	b.slc(h, port, features)

	b.rfc.Drop(port)
	b.g.Sync()
	if b.rec.Count(ag.EvtClose) != 1 {
		t.Fatal("no CLOSE event")
	}
	if b.rfc.Servers(hspSCN) != 1 || b.rfc.Servers(hfpSCN) != 1 {
		t.Fatalf("servers %v", b.rfc.Ports())
	}
	if v := b.state(h); v.State != "INIT" {
		t.Fatalf("view %+v", v)
	}
}

func TestCollisionRetriesOnce(t *testing.T) {
	b := newBench(t)
	defer b.g.Shutdown()

	h := b.register(both, features)
	b.rfc.Opening = peer
	b.do(b.g.Open(h, peer))
	if v := b.state(h); v.State != "INIT" {
		t.Fatalf("view %+v", v)
	}
	if n := len(b.sdp.Searches()); n != 0 {
		t.Fatalf("opened at once: %d searches", n)
	}
	b.rfc.Opening = ag.Addr{}

	b.advance(gateway.DefaultCollisionDelay - time.Millisecond)
	if n := len(b.sdp.Searches()); n != 0 {
		t.Fatalf("retried early: %d searches", n)
	}
	b.advance(time.Millisecond)
	if n := len(b.sdp.Searches()); n != 1 {
		t.Fatalf("%d searches after the delay, want 1", n)
	}
	b.advance(10 * gateway.DefaultCollisionDelay)
	if n := len(b.sdp.Searches()); n != 1 {
		t.Fatalf("%d searches, want exactly 1 retry", n)
	}
	if v := b.state(h); v.State != "OPENING" {
		t.Fatalf("view %+v", v)
	}
}

func TestCollisionHook(t *testing.T) {
	b := newBench(t)
	defer b.g.Shutdown()

	h := b.register(both, features)
	b.do(b.g.Open(h, peer))
	if _, ok := b.rfc.Client(peer); !ok {
		t.Fatal("no client port")
	}
	b.do(b.g.Collision(peer))
	if _, ok := b.rfc.Client(peer); ok {
		t.Fatal("client port left after collision")
	}
	if b.rfc.Servers(hspSCN) != 1 || b.rfc.Servers(hfpSCN) != 1 {
		t.Fatalf("servers %v", b.rfc.Ports())
	}
	if v := b.state(h); v.State != "INIT" {
		t.Fatalf("view %+v", v)
	}

	// A collision for another peer changes nothing.
	b.do(b.g.Collision(peer2))

	b.advance(gateway.DefaultCollisionDelay)
	if _, ok := b.rfc.Client(peer); !ok {
		t.Fatal("open not resumed")
	}
	if n := len(b.sdp.Searches()); n != 2 {
		t.Fatalf("%d searches, want 2", n)
	}
}

func TestSLCTimeout(t *testing.T) {
	b := newBench(t)
	defer b.g.Shutdown()

	h := b.register(both, features)
	b.open(h, peer)
	b.advance(gateway.DefaultSLCTimeout)
	if b.rec.Count(ag.EvtConn) != 0 || b.rec.Count(ag.EvtClose) != 1 {
		t.Fatalf("events %v", b.rec.Events())
	}
	if v := b.state(h); v.State != "INIT" {
		t.Fatalf("view %+v", v)
	}
}

func TestDisable(t *testing.T) {
	b := newBench(t)
	defer b.g.Shutdown()

	h, _ := b.connect(features)
	b.register(ag.HSPServiceMask, features)

	b.do(b.g.Disable())
	if n := b.rec.Count(ag.EvtDisable); n != 1 {
		t.Fatalf("%d DISABLE events, want 1", n)
	}
	if b.rec.Count(ag.EvtClose) != 1 {
		t.Fatal("connection not closed")
	}
	if vs := b.g.Views(); len(vs) != 0 {
		t.Fatalf("blocks in use: %v", vs)
	}
	if n := len(b.sdp.Local()); n != 0 {
		t.Fatalf("%d records left", n)
	}
	if len(b.rfc.Ports()) != 0 {
		t.Fatalf("ports left: %v", b.rfc.Ports())
	}

	// Late events and repeated calls change nothing.
	b.do(b.g.Deregister(h))
	b.do(b.g.Disable())
	if n := b.rec.Count(ag.EvtDisable); n != 1 {
		t.Fatalf("%d DISABLE events, want 1", n)
	}
}

func TestDisableIdle(t *testing.T) {
	b := newBench(t)
	defer b.g.Shutdown()

	b.do(b.g.Disable())
	if n := b.rec.Count(ag.EvtDisable); n != 1 {
		t.Fatalf("%d DISABLE events, want 1", n)
	}
	b.do(b.g.Register(ag.HFPServiceMask, features, [ag.NumIdx]string{}, 1))
	if e, _ := b.rec.Last(ag.EvtRegister); e.Hdr().Status != ag.StatusFailResources {
		t.Fatalf("register while disabled: %+v", e)
	}
}

func TestATCommands(t *testing.T) {
	b := newBench(t)
	defer b.g.Shutdown()
	_, port := b.connect(features)

	for _, tt := range []struct {
		cmd  string
		want string
		evt  ag.EventID
		str  string
	}{
		{"AT+VGS=10", okLine, ag.EvtSpk, "10"},
		{"AT+VGM=3", okLine, ag.EvtMic, "3"},
		{"AT+VGS=16", resp("ERROR"), noEvent, ""},
		{"AT+CMEE=1", okLine, noEvent, ""},
		{"AT+VGS=16", resp("+CME ERROR: 4"), noEvent, ""},
		{"AT+XYZ", resp("+CME ERROR: 4"), noEvent, ""},
		{"ATD5551234;", "", ag.EvtD, "5551234"},
		{"ATD>12;", "", ag.EvtD, ">12"},
		{"ATD55x;", resp("+CME ERROR: 27"), noEvent, ""},
		{"ATDV1;", resp("+CME ERROR: 4"), noEvent, ""},
		{"ATA", okLine, ag.EvtA, ""},
		{"AT+CHUP", okLine, ag.EvtCHUP, ""},
		{"AT+BLDN", "", ag.EvtBLDN, ""},
		{"AT+CHLD=?", resp("+CHLD: (0,1,2,3)", "OK"), noEvent, ""},
		{"AT+CHLD=1", "", ag.EvtCHLD, "1"},
		{"AT+CHLD=12", resp("+CME ERROR: 21"), noEvent, ""},
		{"AT+CHLD=5", resp("+CME ERROR: 21"), noEvent, ""},
		{"AT+NREC=0", okLine, ag.EvtNREC, "0"},
		{"AT+BVRA=1", resp("+CME ERROR: 4"), noEvent, ""},
		{"AT+BINP=1", resp("+CME ERROR: 4"), noEvent, ""},
		{"AT+BTRH?", resp("+CME ERROR: 4"), noEvent, ""},
		{"AT+VTS=5", okLine, ag.EvtVTS, "5"},
		{"AT+VTS=55", resp("+CME ERROR: 25"), noEvent, ""},
		{"AT+CLIP=1", okLine, noEvent, ""},
		{"AT+CCWA=1", okLine, noEvent, ""},
		{"AT+COPS=3,0", okLine, noEvent, ""},
		{"AT+COPS?", "", ag.EvtCOPS, ""},
		{"AT+CNUM", "", ag.EvtCNUM, ""},
		{"AT+CLCC", "", ag.EvtCLCC, ""},
		{"AT+CBC=50", okLine, ag.EvtCBC, "50"},
		{"AT+BIA=1,1,0", okLine, ag.EvtBIA, "1,1,0"},
		{"AT+BIA=1,x", resp("+CME ERROR: 21"), noEvent, ""},
		{"AT+BIND=1,2", okLine, ag.EvtBIND, "1,2"},
		{"AT+BIEV=1,1", resp("+CME ERROR: 25"), noEvent, ""},
		{"AT", "", noEvent, ""},
	} {
		b.rec.Reset()
		if got := b.at(port, tt.cmd); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.cmd, got, tt.want)
			continue
		}
		evts := b.rec.Events()
		if tt.evt == noEvent {
			if len(evts) != 0 {
				t.Errorf("%s: unexpected events %v", tt.cmd, evts)
			}
			continue
		}
		if len(evts) != 1 || evts[0].ID() != tt.evt {
			t.Errorf("%s: events %v, want %s", tt.cmd, evts, tt.evt)
			continue
		}
		if s := evts[0].(ag.ValEvent).Str; s != tt.str {
			t.Errorf("%s: event argument %q, want %q", tt.cmd, s, tt.str)
		}
	}
}

func TestATChunking(t *testing.T) {
	b := newBench(t)
	defer b.g.Shutdown()
	_, port := b.connect(features)

	for _, c := range []string{"A", "T+V", "GS=", "1", "2\r"} {
		b.rfc.Receive(port, c)
	}
	b.g.Sync()
	b.sent(port, okLine)
	if e, _ := b.rec.Last(ag.EvtSpk); e.(ag.ValEvent).Num != 12 {
		t.Fatalf("spk event %+v", e)
	}
}

func TestUnknownCommandPassThrough(t *testing.T) {
	b := newBench(t)
	defer b.g.Shutdown()
	h, port := b.connect(features | ag.FeatUNAT)

	b.expect(port, "AT+XAPL=ABCD-1234-0100,10", "")
	e, ok := b.rec.Last(ag.EvtUNAT)
	if !ok || e.(ag.ValEvent).Str != "+XAPL=ABCD-1234-0100,10" {
		t.Fatalf("unat event %+v", e)
	}
	b.do(b.g.Result(h, ag.ResultUNAT, ag.ResultData{Str: "+XAPL=iPhone,2", OKFlag: ag.OKDone}))
	b.sent(port, resp("+XAPL=iPhone,2", "OK"))
}

func TestResults(t *testing.T) {
	b := newBench(t)
	defer b.g.Shutdown()
	h, port := b.connect(features)
	b.expect(port, "AT+CLIP=1", okLine)

	for _, tt := range []struct {
		name string
		code ag.ResultCode
		data ag.ResultData
		want string
	}{
		{"speaker", ag.ResultSPK, ag.ResultData{Num: 9}, resp("+VGS: 9")},
		{"signal", ag.ResultIND, ag.ResultData{Ind: ag.Indicator{ID: ag.IndSignal, Value: 3}}, resp("+CIEV: 4,3")},
		{"unchanged", ag.ResultIND, ag.ResultData{Ind: ag.Indicator{ID: ag.IndSignal, Value: 3}}, ""},
		{"on demand", ag.ResultIndOnDemand, ag.ResultData{Ind: ag.Indicator{ID: ag.IndSignal, Value: 3}}, resp("+CIEV: 4,3")},
		{"in-band off", ag.ResultInbandRing, ag.ResultData{State: false}, resp("+BSIR: 0")},
		{"incoming", ag.ResultInCall, ag.ResultData{Str: `"5551234"`, Num: 145}, resp("+CIEV: 2,1", "RING", `+CLIP: "5551234",145`)},
		{"answered", ag.ResultInCallConn, ag.ResultData{}, resp("+CIEV: 1,1", "+CIEV: 2,0")},
		{"ended", ag.ResultEndCall, ag.ResultData{}, resp("+CIEV: 1,0")},
		{"outgoing", ag.ResultOutCallOrig, ag.ResultData{}, resp("+CIEV: 2,2")},
		{"alerting", ag.ResultOutCallAlert, ag.ResultData{}, resp("+CIEV: 2,3")},
		{"connected", ag.ResultOutCallConn, ag.ResultData{}, resp("+CIEV: 1,1", "+CIEV: 2,0")},
		{"subscriber", ag.ResultCNUM, ag.ResultData{Str: `,"5551234",129,,4`, OKFlag: ag.OKDone}, resp(`+CNUM: ,"5551234",129,,4`, "OK")},
		{"operator error", ag.ResultCOPS, ag.ResultData{OKFlag: ag.OKError, ErrCode: ag.CMENoService}, resp("ERROR")},
		{"voice recognition", ag.ResultBVRA, ag.ResultData{State: true}, resp("+BVRA: 1")},
	} {
		b.do(b.g.Result(h, tt.code, tt.data))
		if got := b.rfc.Sent(port); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestRingRepeats(t *testing.T) {
	b := newBench(t)
	defer b.g.Shutdown()
	h, port := b.connect(features &^ ag.FeatInband)

	b.do(b.g.Result(h, ag.ResultInCall, ag.ResultData{}))
	b.sent(port, resp("+CIEV: 2,1", "RING"))
	b.advance(gateway.DefaultRingInterval)
	b.sent(port, resp("RING"))
	b.advance(gateway.DefaultRingInterval)
	b.sent(port, resp("RING"))

	b.do(b.g.Result(h, ag.ResultInCallConn, ag.ResultData{}))
	b.rfc.Sent(port)
	b.advance(gateway.DefaultRingInterval)
	b.sent(port, "")
}

func TestIndicatorActivation(t *testing.T) {
	b := newBench(t)
	defer b.g.Shutdown()
	h, port := b.connect(features)

	// Turn off signal; call can not be turned off.
	b.expect(port, "AT+BIA=0,,,0", okLine)
	b.do(b.g.Result(h, ag.ResultIND, ag.ResultData{Ind: ag.Indicator{ID: ag.IndSignal, Value: 1}}))
	b.sent(port, "")
	b.do(b.g.Result(h, ag.ResultIND, ag.ResultData{Ind: ag.Indicator{ID: ag.IndCall, Value: 1}}))
	b.sent(port, resp("+CIEV: 1,1"))
	b.do(b.g.Result(h, ag.ResultIndOnDemand, ag.ResultData{Ind: ag.Indicator{ID: ag.IndSignal, Value: 1}}))
	b.sent(port, resp("+CIEV: 4,1"))
}

func TestBroadcastResult(t *testing.T) {
	b := newBench(t)
	defer b.g.Shutdown()
	_, port := b.connect(features)
	b.register(both, features)

	b.do(b.g.Result(ag.HandleAll, ag.ResultMIC, ag.ResultData{Num: 4}))
	b.sent(port, resp("+VGM: 4"))
}

func TestCodecNegotiationFailure(t *testing.T) {
	for _, tt := range []struct {
		name  string
		reply string // empty waits for the timeout
	}{
		{"timeout", ""},
		{"mismatch", "AT+BCS=1"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			b := newBench(t)
			defer b.g.Shutdown()
			h, port := b.connect(features)

			b.do(b.g.AudioOpen(h, 0))
			b.sent(port, resp("+BCS: 2"))
			if tt.reply == "" {
				b.advance(gateway.DefaultCodecTimeout)
			} else {
				b.expect(port, tt.reply, okLine)
			}
			if n := b.rec.Count(ag.EvtAudioClose); n != 1 {
				t.Fatalf("%d AUDIO_CLOSE events, want 1", n)
			}
			if len(b.sco.Dials()) != 0 {
				t.Fatalf("dialed %v", b.sco.Dials())
			}
			if !b.sco.Listening(peer) {
				t.Fatal("not listening")
			}
		})
	}
}

func TestDisabledCodecs(t *testing.T) {
	b := newBench(t)
	defer b.g.Shutdown()
	h, port := b.connect(features)

	// CVSD stays negotiable whatever the mask.
	b.do(b.g.AudioOpen(h, ag.CodecMSBC|ag.CodecCVSD))
	b.sent(port, resp("+BCS: 1"))
	b.expect(port, "AT+BCS=1", okLine)
	l, ok := b.sco.Pending()
	if !ok || l.Params.Codec != ag.CodecCVSD {
		t.Fatalf("link %+v", l)
	}
}

func TestAudioFallback(t *testing.T) {
	b := newBench(t)
	defer b.g.Shutdown()
	h, port := b.connect(features)

	b.do(b.g.AudioOpen(h, 0))
	for _, tt := range []struct {
		bcs     string
		codec   ag.Codec
		setting ag.CodecSetting
	}{
		{"2", ag.CodecMSBC, ag.MSBCSettingT2},
		{"2", ag.CodecMSBC, ag.MSBCSettingT1},
		{"1", ag.CodecCVSD, ag.CVSDSettingS4},
		{"1", ag.CodecCVSD, ag.CVSDSettingS3},
	} {
		b.sent(port, resp("+BCS: "+tt.bcs))
		b.expect(port, "AT+BCS="+tt.bcs, okLine)
		l, ok := b.sco.Pending()
		if !ok || l.Params.Codec != tt.codec || l.Params.Setting != tt.setting {
			t.Fatalf("link %+v, want %s setting %d", l.Params, tt.codec, tt.setting)
		}
		b.sco.Complete(l.Idx, false)
		b.g.Sync()
	}
	if n := b.rec.Count(ag.EvtAudioClose); n != 0 {
		t.Fatalf("%d AUDIO_CLOSE events during retries", n)
	}
	b.sent(port, resp("+BCS: 1"))
	b.expect(port, "AT+BCS=1", okLine)
	l, _ := b.sco.Pending()
	b.sco.Complete(l.Idx, true)
	b.g.Sync()
	e, ok := b.rec.Last(ag.EvtAudioOpen)
	if !ok || e.(ag.AudioEvent).Codec != ag.CodecCVSD {
		t.Fatalf("audio open %+v", e)
	}
}

func TestSetCodec(t *testing.T) {
	b := newBench(t)
	defer b.g.Shutdown()
	h, port := b.connect(features)

	for _, tt := range []struct {
		codec  ag.Codec
		status ag.Status
	}{
		{ag.CodecLC3, ag.StatusFailResources},
		{ag.CodecCVSD | ag.CodecMSBC, ag.StatusFailResources},
		{ag.CodecCVSD, ag.StatusSuccess},
	} {
		b.do(b.g.SetCodec(h, tt.codec))
		e, ok := b.rec.Last(ag.EvtCodec)
		if !ok || e.Hdr().Status != tt.status || e.(ag.CodecEvent).Codec != tt.codec {
			t.Fatalf("codec %s: event %+v", tt.codec, e)
		}
	}
	b.do(b.g.AudioOpen(h, 0))
	b.sent(port, resp("+BCS: 1"))
}

func TestAudioPolicy(t *testing.T) {
	b := newBench(t)
	defer b.g.Shutdown()
	h, port := b.connect(features)

	b.do(b.g.SetScoAllowed(false))
	b.do(b.g.AudioOpen(h, 0))
	e, ok := b.rec.Last(ag.EvtAudioClose)
	if !ok || e.Hdr().Status != ag.StatusFailResources {
		t.Fatalf("audio event %+v", e)
	}
	b.sent(port, "")

	b.do(b.g.SetScoAllowed(true))
	b.do(b.g.SetActiveDevice(peer2))
	b.do(b.g.AudioOpen(h, 0))
	b.sent(port, resp("+BCS: 2"))
	b.expect(port, "AT+BCS=2", okLine)
	if len(b.sco.Dials()) != 0 {
		t.Fatalf("dialed a device that is not active: %v", b.sco.Dials())
	}
	if n := b.rec.Count(ag.EvtAudioClose); n != 2 {
		t.Fatalf("%d AUDIO_CLOSE events, want 2", n)
	}

	b.do(b.g.SetActiveDevice(ag.Addr{}))
	b.do(b.g.SetScoOffloadEnabled(true))
	b.do(b.g.AudioOpen(h, 0))
	b.sent(port, resp("+BCS: 2"))
	b.expect(port, "AT+BCS=2", okLine)
	l, ok := b.sco.Pending()
	if !ok || !l.Params.Offload {
		t.Fatalf("link %+v", l)
	}
}

func TestIncomingAudio(t *testing.T) {
	b := newBench(t)
	defer b.g.Shutdown()
	h, _ := b.connect(features)

	idx, ok := b.sco.Accept(peer)
	if !ok {
		t.Fatal("not listening")
	}
	b.g.Sync()
	if _, ok := b.rec.Last(ag.EvtAudioOpen); !ok || !b.state(h).Audio {
		t.Fatal("audio not open")
	}
	b.sco.Drop(idx)
	b.g.Sync()
	if b.rec.Count(ag.EvtAudioClose) != 1 || !b.sco.Listening(peer) {
		t.Fatalf("links %v", b.sco.Links())
	}
}

func TestCloseWithAudio(t *testing.T) {
	b := newBench(t)
	defer b.g.Shutdown()
	h, _ := b.connect(features)
	if _, ok := b.sco.Accept(peer); !ok {
		t.Fatal("not listening")
	}
	b.g.Sync()

	b.do(b.g.Close(h))
	var ids []ag.EventID
	for _, e := range b.rec.Events() {
		if e.ID() == ag.EvtAudioClose || e.ID() == ag.EvtClose {
			ids = append(ids, e.ID())
		}
	}
	if len(ids) != 2 || ids[0] != ag.EvtAudioClose || ids[1] != ag.EvtClose {
		t.Fatalf("events %v, want audio close then close", ids)
	}
	if len(b.sco.Links()) != 0 {
		t.Fatalf("links left %v", b.sco.Links())
	}
}

func TestNew(t *testing.T) {
	if _, err := gateway.New(gateway.OptSCOLink(agtest.NewSCO())); err == nil {
		t.Error("no error without RFCOMM")
	}
	if _, err := gateway.New(gateway.OptRFCOMM(agtest.NewRFCOMM())); err == nil {
		t.Error("no error without audio link")
	}
	if _, err := gateway.New(gateway.OptMaxATLen(4)); err == nil {
		t.Error("short AT length accepted")
	}
	g, err := gateway.New(gateway.OptRFCOMM(agtest.NewRFCOMM()), gateway.OptSCOLink(agtest.NewSCO()))
	if err != nil {
		t.Fatal(err)
	}
	g.Shutdown()
	if err := g.Enable(&agtest.Recorder{}); errors.Cause(err) != gateway.ErrClosed {
		t.Errorf("Enable after close: %v", err)
	}
}

func TestShutdown(t *testing.T) {
	b := newBench(t)
	_, port := b.connect(features)
	n := len(b.rec.Events())

	if err := b.g.Shutdown(); err != nil {
		t.Fatal(err)
	}
	b.rfc.Receive(port, "AT+CIND?\r")
	b.clock.Advance(time.Minute)
	if err := b.g.Register(ag.HSPServiceMask, features, [ag.NumIdx]string{}, 0); errors.Cause(err) != gateway.ErrClosed {
		t.Errorf("Register after shutdown: %v", err)
	}
	if got := len(b.rec.Events()); got != n {
		t.Errorf("%d events after shutdown: %v", got-n, b.rec.Events()[n:])
	}
	if err := b.g.Shutdown(); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}
}
