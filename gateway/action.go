package gateway

import (
	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/sco"
)

func (g *Gateway) register(s *scb, p payload) {
	args := p.(registerArgs)
	s.regServices = args.services
	s.features = args.features
	s.maskedFeatures = args.features
	s.appID = args.appID
	g.createRecords(s, args)
	g.rfc.StartServers(s.idx, &s.ports, s.regServices, g.scns())
	logger.Info("registered", "handle", s.handle(), "services", s.regServices, "features", s.features)
	g.emit(ag.RegisterEvent{Header: s.header(ag.StatusSuccess)})
}

func (g *Gateway) deregister(s *scb, p payload) {
	s.dealloc = true
	g.deleteRecords(s)
	g.rfc.CloseServers(s.idx, &s.ports, s.regServices)
	g.deallocate(s)
}

func (g *Gateway) startDereg(s *scb, p payload) {
	s.dealloc = true
	g.deleteRecords(s)
	g.rfc.CloseServers(s.idx, &s.ports, s.regServices)
}

func (g *Gateway) startOpen(s *scb, p payload) {
	s.setAddr(p.(openArgs).addr)
	s.openServices = s.regServices

	// An incoming connection in progress wins; treat this open as a
	// collision and retry later.
	if o, ok := g.rfcT.(opening); ok {
		if a, pending := o.IsOpening(); pending {
			logger.Info("incoming connection pending, deferring open", "handle", s.handle(), "addr", s.addr, "incoming", a)
			g.collision(s.addr)
			return
		}
	}

	g.rfc.CloseServers(s.idx, &s.ports, s.regServices)
	s.role = ag.RoleInitiator
	g.doDisc(s, s.openServices)
}

// opening is implemented by transports that can report an incoming
// connection still being set up.
type opening interface {
	IsOpening() (ag.Addr, bool)
}

func (g *Gateway) openFail(s *scb, p payload) {
	var a ag.Addr
	if args, ok := p.(openArgs); ok {
		a = args.addr
	}
	g.emit(ag.OpenEvent{Header: s.header(ag.StatusFailResources), Addr: a})
}

func (g *Gateway) startClose(s *scb, p payload) {
	if g.sco.IsOpen(s.audio) {
		s.postSCO = postCloseRFC
	} else {
		s.postSCO = postNone
		g.rfcDoClose(s, p)
	}
	g.scoShutdown(s, p)
}

// collision is the system collision hook. A block still opening to a
// yields to the incoming connection and retries later.
func (g *Gateway) collision(a ag.Addr) {
	for i := range g.scbs {
		s := &g.scbs[i]
		if s.inUse && s.addr == a && s.state == stateOpening {
			logger.Warn("connection collision", "handle", s.handle(), "addr", a)
			g.execute(s, evtCollision, nil)
		}
	}
}

func (g *Gateway) handleCollision(s *scb, p payload) {
	if s.disc != nil {
		g.freeDB(s, nil)
	}
	if s.ports.Conn != 0 {
		g.rfc.Remove(&s.ports)
	}
	if g.rfc.ServersClosed(&s.ports, s.regServices) {
		g.rfc.StartServers(s.idx, &s.ports, s.regServices, g.scns())
	}
	s.collisionTimer.Set(g.collisionDelay, func() { g.resumeOpen(s) })
}

// resumeOpen retries an open that yielded to a collision.
func (g *Gateway) resumeOpen(s *scb) {
	if !s.inUse || s.state != stateInit || s.addr.IsZero() {
		logger.Info("can't resume open", "handle", s.handle(), "state", s.state)
		return
	}
	logger.Info("resuming open", "handle", s.handle(), "addr", s.addr)
	g.execute(s, evtAPIOpen, openArgs{addr: s.addr})
}

// svcConnOpen reports the service level connection once.
func (g *Gateway) svcConnOpen(s *scb) {
	if s.svcConn {
		return
	}
	s.svcConn = true
	s.biaMask = 0
	s.slcTimer.Cancel()
	s.ringTimer.Cancel()
	logger.Info("service level connection", "handle", s.handle(), "addr", s.addr, "peer", s.peerFeatures)
	g.emit(ag.ConnEvent{
		Header:       s.header(ag.StatusSuccess),
		Addr:         s.addr,
		PeerFeatures: s.peerFeatures,
		PeerCodecs:   s.peerCodecs,
	})
}

// reset puts the connection related state of s back to its defaults.
func (s *scb) reset() {
	s.connService = -1
	s.peerFeatures = 0
	s.maskedFeatures = s.features
	s.peerCodecs = ag.CodecCVSD
	s.scoCodec = ag.CodecCVSD
	s.codecUpdated = false
	s.receivedBAC = false
	s.role = ag.RoleAcceptor
	s.svcConn = false
	s.hspVersion = ag.HSPVersion12
	s.postSCO = postNone
	s.peerHFInd = nil
	s.localHFInd = nil
	s.resetIndicators()
	addr, idx := s.audio.Addr, s.audio.Idx
	*s.audio = sco.Endpoint{Addr: addr, Idx: idx}
	s.audio.Reset()
}
