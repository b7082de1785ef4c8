package gateway

import (
	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/at"
)

func (g *Gateway) rfcDoOpen(s *scb, p payload) {
	if err := g.rfc.Open(s.idx, &s.ports, s.addr, s.peerSCN); err != nil {
		logger.Warn("rfcomm open failed", "handle", s.handle(), "err", err)
		g.execute(s, evtRFCClose, nil)
	}
}

func (g *Gateway) rfcDoClose(s *scb, p payload) {
	if g.rfc.Close(&s.ports) {
		return
	}
	// Nothing to close yet. Finish the close on the next turn so the
	// application still gets its callback.
	h := s.handle()
	g.exec.post(func() { g.executeByHandle(h, evtRFCClose, nil) })
	if s.disc != nil {
		g.freeDB(s, nil)
	}
}

func (g *Gateway) rfcOpen(s *scb, p payload) {
	s.clip = false
	s.ccwa = false
	s.cmer = false
	s.cmee = false
	s.inband = s.features&ag.FeatInband != 0

	g.initAT(s)

	logger.Info("connection open", "handle", s.handle(), "addr", s.addr, "service", s.service(), "role", s.role)
	g.emit(ag.OpenEvent{Header: s.header(ag.StatusSuccess), Addr: s.addr, Service: s.service()})

	if s.hfp() {
		h := s.handle()
		s.slcTimer.Set(g.slcTimeout, func() { g.executeByHandle(h, evtSvcTimeout, nil) })
		return
	}
	g.svcConnOpen(s)
}

func (g *Gateway) initAT(s *scb) {
	cmds, onCmd := hspCommands, g.hspCommand
	if s.hfp() {
		cmds, onCmd = hfpCommands, g.hfpCommand
	}
	s.at = at.NewParser(cmds, g.maxATLen,
		func(id int, t at.ArgType, arg string, num int) { onCmd(s, id, t, arg, num) },
		func(unknown bool, buf string) { g.atError(s, unknown, buf) },
	)
	s.at.Widen = g.widenBRSF

	s.localHFInd = nil
	if s.features&ag.FeatHFInd != 0 {
		s.localHFInd = append(s.localHFInd, hfIndicators...)
	}
}

func (g *Gateway) rfcAcpOpen(s *scb, p payload) {
	h := p.(portArgs).handle
	s.role = ag.RoleAcceptor

	addr, err := g.rfc.PeerAddr(h)
	if err != nil {
		logger.Warn("can't read peer address", "handle", s.handle(), "port", h, "err", err)
	}

	for i := range g.scbs {
		o := &g.scbs[i]
		if !o.inUse {
			continue
		}
		if o.collisionTimer.Scheduled() {
			o.collisionTimer.Cancel()
			if o != s && o.addr != addr {
				g.resumeOpen(o)
			}
		}
		if o != s && o.addr == addr && o.state == stateOpening {
			logger.Info("failing outgoing connection before accepting", "handle", o.handle(), "addr", addr)
			g.rfc.Remove(&o.ports)
			g.execute(o, evtRFCClose, nil)
		}
	}

	s.setAddr(addr)
	if i := s.ports.Service(h); i >= 0 {
		s.connService = i
		s.ports.Conn = h
	}
	if s.connService < 0 {
		logger.Warn("incoming connection on unknown server", "handle", s.handle(), "port", h)
		s.connService = ag.HSPIndex
		s.ports.Conn = h
	}
	svc := s.service().Mask()
	g.rfc.CloseServers(s.idx, &s.ports, s.regServices&^svc)
	g.doDisc(s, svc)
	g.rfcOpen(s, p)
}

func (g *Gateway) rfcFail(s *scb, p payload) {
	g.releaseConn(s)
	s.connService = -1
	s.peerFeatures = 0
	s.peerCodecs = ag.CodecCVSD
	s.scoCodec = ag.CodecCVSD
	s.role = ag.RoleAcceptor
	s.svcConn = false
	s.hspVersion = ag.HSPVersion12
	addr := s.addr
	s.setAddr(ag.Addr{})
	g.rfc.StartServers(s.idx, &s.ports, s.regServices, g.scns())
	logger.Info("connection failed", "handle", s.handle(), "addr", addr)
	g.emit(ag.OpenEvent{Header: s.header(ag.StatusFailRFCOMM), Addr: addr})
}

func (g *Gateway) rfcClose(s *scb, p payload) {
	addr := s.addr
	s.reset()
	if s.at != nil {
		s.at.Init()
	}
	s.ringTimer.Cancel()
	s.codecTimer.Cancel()
	s.slcTimer.Cancel()

	logger.Info("connection closed", "handle", s.handle(), "addr", addr)
	g.emit(ag.CloseEvent{Header: s.header(ag.StatusSuccess), Addr: addr})

	if s.dealloc {
		g.rfc.Remove(&s.ports)
		g.deallocate(s)
		return
	}
	s.setAddr(ag.Addr{})
	var services ag.ServiceMask
	for i := 0; i < ag.NumIdx; i++ {
		if s.regServices.Has(i) && s.ports.Servers[i] == 0 {
			services |= 1 << uint(i)
		}
	}
	g.releaseConn(s)
	g.rfc.StartServers(s.idx, &s.ports, services, g.scns())
	g.scoShutdown(s, p)
}

func (g *Gateway) rfcData(s *scb, p payload) {
	if s.at == nil {
		return
	}
	s.at.Parse(p.(dataArgs).b)
}

// releaseConn forgets the connected port. Server ports stay owned since
// they listen again.
func (g *Gateway) releaseConn(s *scb) {
	if s.ports.Conn != 0 && s.ports.Service(s.ports.Conn) < 0 {
		g.rfc.Release(s.ports.Conn)
	}
	s.ports.Conn = 0
}

// send writes an AT response line to the peer.
func (g *Gateway) send(s *scb, line string) {
	if err := g.rfc.Write(&s.ports, []byte("\r\n"+line+"\r\n")); err != nil {
		logger.Warn("can't send", "handle", s.handle(), "line", line, "err", err)
	}
}
