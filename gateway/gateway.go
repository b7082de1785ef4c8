// Package gateway implements the hands-free and headset audio gateway:
// the per-peer service control blocks, their state machine, the AT
// command handlers and the public API.
//
// Everything that touches a control block runs on a single executor
// goroutine. API calls and transport callbacks only post work to it, and
// the application Handler is always invoked from it.
package gateway

import (
	"sync"
	"time"

	"github.com/mgutz/logxi/v1"
	"github.com/pkg/errors"

	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/alarm"
	"github.com/currantlabs/ag/rfcomm"
	"github.com/currantlabs/ag/sco"
	"github.com/currantlabs/ag/sdp"
)

var logger = log.New("gateway")

// Defaults.
const (
	DefaultRingInterval   = 5 * time.Second
	DefaultSLCTimeout     = 10 * time.Second
	DefaultCollisionDelay = 2 * time.Second
	DefaultCodecTimeout   = 3 * time.Second
)

// profile is the local record and server channel of a service, shared by
// every control block that registers it.
type profile struct {
	scn       uint8
	sdpHandle uint32
}

// Gateway is an audio gateway.
type Gateway struct {
	exec  *executor
	clock alarm.Clock

	rfcT      rfcomm.Transport
	rfc       *rfcomm.Manager
	searcher  sdp.Searcher
	publisher sdp.Publisher
	link      sco.Link
	sco       *sco.Controller
	cache     *sdp.Cache

	handler   ag.Handler
	enabled   bool
	disabling bool

	scbs     [ag.MaxClients]scb
	profiles [ag.NumIdx]profile
	scnUsed  map[uint8]bool
	nextRec  uint32

	ringInterval   time.Duration
	slcTimeout     time.Duration
	collisionDelay time.Duration
	codecTimeout   time.Duration
	maxATLen       int
	widenBRSF      bool
	swb            bool

	mu    sync.Mutex
	views [ag.MaxClients]View
}

// New returns a gateway. It is not enabled until Enable is called.
func New(opts ...Option) (*Gateway, error) {
	g := &Gateway{
		exec:           newExecutor(),
		clock:          alarm.SystemClock,
		cache:          sdp.NewCache(),
		scnUsed:        make(map[uint8]bool),
		ringInterval:   DefaultRingInterval,
		slcTimeout:     DefaultSLCTimeout,
		collisionDelay: DefaultCollisionDelay,
		codecTimeout:   DefaultCodecTimeout,
		maxATLen:       ag.MaxATLen,
		widenBRSF:      true,
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, errors.Wrap(err, "can't apply option")
		}
	}
	if g.rfcT == nil {
		return nil, errors.New("no RFCOMM transport")
	}
	if g.link == nil {
		return nil, errors.New("no audio link")
	}
	g.rfc = rfcomm.NewManager(g.rfcT)
	g.sco = sco.NewController(g.link, (*audioHooks)(g))
	g.rfcT.SetSink((*portSink)(g))
	g.link.SetSink((*linkSink)(g))
	for i := range g.scbs {
		g.scbs[i] = scb{idx: i, connService: -1}
		g.views[i] = View{Handle: uint16(i + 1), State: stateInit.String()}
	}
	g.exec.start()
	return g, nil
}

// Shutdown stops the executor. Work still queued is dropped, and the
// Handler is not invoked once Shutdown returns. It must not be called from
// the Handler.
func (g *Gateway) Shutdown() error {
	g.exec.call(func() { g.handler = nil })
	g.exec.close()
	return nil
}

// Sync waits until every posted call, transport event and discovery has
// been processed. It must not be called from the Handler.
func (g *Gateway) Sync() {
	g.exec.wait()
}

func (g *Gateway) emit(e ag.Event) {
	if g.handler == nil {
		logger.Debug("event dropped, no handler", "event", e.ID())
		return
	}
	g.handler.ServeEvent(e)
}

func (g *Gateway) allocSCN() uint8 {
	for c := uint8(1); c <= 30; c++ {
		if !g.scnUsed[c] {
			g.scnUsed[c] = true
			return c
		}
	}
	return 0
}

func (g *Gateway) freeSCN(c uint8) {
	delete(g.scnUsed, c)
}

func (g *Gateway) scns() [ag.NumIdx]uint8 {
	var scn [ag.NumIdx]uint8
	for i, p := range g.profiles {
		scn[i] = p.scn
	}
	return scn
}

// portSink marshals RFCOMM events onto the executor.
type portSink Gateway

func (ps *portSink) PortEvent(h uint16, code rfcomm.Code) {
	g := (*Gateway)(ps)
	g.exec.post(func() { g.portEvent(h, code) })
}

func (ps *portSink) PortData(h uint16, b []byte) {
	g := (*Gateway)(ps)
	b = append([]byte(nil), b...)
	g.exec.post(func() { g.portData(h, b) })
}

func (g *Gateway) portEvent(h uint16, code rfcomm.Code) {
	idx, ok := g.rfc.Owner(h)
	if !ok {
		logger.Debug("port event for unknown handle", "handle", h, "code", code)
		return
	}
	s := &g.scbs[idx]
	if !s.inUse {
		return
	}
	logger.Debug("port event", "handle", s.handle(), "port", h, "code", code)
	switch g.rfc.Classify(h, code, &s.ports) {
	case rfcomm.EvtOpen:
		g.execute(s, evtRFCOpen, portArgs{handle: h})
	case rfcomm.EvtClose:
		g.execute(s, evtRFCClose, portArgs{handle: h})
	case rfcomm.EvtSrvClose:
		g.execute(s, evtRFCSrvClose, portArgs{handle: h})
	}
}

func (g *Gateway) portData(h uint16, b []byte) {
	idx, ok := g.rfc.Owner(h)
	if !ok {
		return
	}
	s := &g.scbs[idx]
	if !s.inUse || !g.rfc.Accepts(h, &s.ports) {
		return
	}
	g.execute(s, evtRFCData, dataArgs{handle: h, b: b})
}

// linkSink marshals audio link events onto the executor.
type linkSink Gateway

func (ls *linkSink) LinkOpen(idx uint16) {
	g := (*Gateway)(ls)
	g.exec.post(func() { g.linkEvent(idx, evtSCOOpen) })
}

func (ls *linkSink) LinkClose(idx uint16) {
	g := (*Gateway)(ls)
	g.exec.post(func() { g.linkEvent(idx, evtSCOClose) })
}

func (g *Gateway) linkEvent(idx uint16, e event) {
	for i := range g.scbs {
		s := &g.scbs[i]
		if s.inUse && s.audio.Idx == idx {
			g.execute(s, e, nil)
			return
		}
	}
	// The block went away while its link was closing.
	if cur := g.sco.Current(); cur != nil && cur.Idx == idx {
		cur.Idx = sco.InvalidIdx
		if e == evtSCOClose {
			g.sco.Event(cur, sco.EvtConnClose)
		}
		return
	}
	logger.Debug("link event for unknown index", "idx", idx, "event", e)
}
