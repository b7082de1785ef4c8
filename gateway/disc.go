package gateway

import (
	"golang.org/x/net/context"

	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/sdp"
)

// createRecords publishes the local record of every service in args that
// has none yet. Records and server channels are shared by all blocks.
func (g *Gateway) createRecords(s *scb, args registerArgs) {
	for i := 0; i < ag.NumIdx; i++ {
		if !args.services.Has(i) {
			continue
		}
		p := &g.profiles[i]
		if p.scn == 0 {
			if p.scn = g.allocSCN(); p.scn == 0 {
				logger.Error("out of server channels", "handle", s.handle(), "service", i)
				continue
			}
		}
		if p.sdpHandle != 0 {
			continue
		}
		swb := g.swb && args.features&ag.FeatSWB != 0
		r := sdp.BuildRecord(i, p.scn, args.names[i], args.features, swb)
		if g.publisher == nil {
			g.nextRec++
			p.sdpHandle = 0x10000 + g.nextRec
			continue
		}
		h, err := g.publisher.AddRecord(r)
		if err != nil {
			logger.Error("can't add record", "handle", s.handle(), "service", i, "err", err)
			continue
		}
		p.sdpHandle = h
		logger.Debug("record added", "service", i, "scn", p.scn, "record", h)
	}
}

// deleteRecords removes the records of s unless another block still
// registers the same service.
func (g *Gateway) deleteRecords(s *scb) {
	for i := 0; i < ag.NumIdx; i++ {
		if !s.regServices.Has(i) {
			continue
		}
		shared := false
		for j := range g.scbs {
			o := &g.scbs[j]
			if o != s && o.inUse && !o.dealloc && o.regServices.Has(i) {
				shared = true
				break
			}
		}
		if shared {
			continue
		}
		p := &g.profiles[i]
		if p.sdpHandle != 0 && g.publisher != nil {
			if err := g.publisher.DeleteRecord(p.sdpHandle); err != nil {
				logger.Warn("can't delete record", "record", p.sdpHandle, "err", err)
			}
		}
		if p.scn != 0 {
			g.freeSCN(p.scn)
		}
		*p = profile{}
	}
}

// doDisc starts a discovery of the peer of s. The result comes back as
// DISC_INT_RES or DISC_ACP_RES depending on the role.
func (g *Gateway) doDisc(s *scb, services ag.ServiceMask) {
	e := evtDiscACPRes
	if s.role == ag.RoleInitiator {
		e = evtDiscINTRes
	}
	uuids, attrs := sdp.Query(services, s.role, s.hspVersion)
	db := sdp.NewDB(s.addr, uuids, attrs)
	h := s.handle()

	if g.searcher == nil {
		logger.Warn("no discovery transport", "handle", h)
		if e == evtDiscINTRes {
			g.exec.post(func() { g.discDone(h, e, sdp.StatusFailed, db) })
			s.disc = db
		}
		return
	}

	if s.discCancel != nil {
		s.discCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.disc, s.discCancel = db, cancel
	addr := s.addr
	logger.Debug("discovery started", "handle", h, "addr", addr, "uuids", uuids)
	g.exec.async(func() {
		recs, err := g.searcher.Search(ctx, addr, uuids, attrs)
		st := sdp.StatusOf(err)
		if err != nil && st == sdp.StatusFailed {
			logger.Warn("discovery failed", "handle", h, "addr", addr, "err", err)
		}
		db.Add(recs...)
		g.exec.post(func() { g.discDone(h, e, st, db) })
	})
}

// discDone hands a finished discovery to its block, unless the block has
// since moved on.
func (g *Gateway) discDone(h uint16, e event, st sdp.Status, db *sdp.DB) {
	s := g.byHandle(h)
	if s == nil || s.disc != db {
		logger.Debug("stale discovery result", "handle", h, "status", st)
		return
	}
	g.execute(s, e, discArgs{status: st, db: db})
}

func (g *Gateway) freeDB(s *scb, p payload) {
	if s.discCancel != nil {
		s.discCancel()
		s.discCancel = nil
	}
	s.disc = nil
}

func (g *Gateway) discIntRes(s *scb, p payload) {
	args := p.(discArgs)
	e := evtDiscFail
	if args.status.Usable() && g.findAttr(s, args.db, s.openServices) {
		s.connService = ag.HSPIndex
		if s.openServices.Has(ag.HFPIndex) {
			s.connService = ag.HFPIndex
		}
		e = evtDiscOK
	}
	g.freeDB(s, p)

	if e == evtDiscFail && (args.status.Usable() || args.status == sdp.StatusNoRecords) {
		switch {
		case s.openServices.Has(ag.HFPIndex) && s.openServices.Has(ag.HSPIndex):
			logger.Info("no hands-free record, trying headset", "handle", s.handle(), "addr", s.addr)
			s.openServices &^= ag.HFPServiceMask
			g.doDisc(s, s.openServices)
			return
		case s.openServices.Has(ag.HSPIndex) && s.hspVersion == ag.HSPVersion12:
			logger.Info("no headset 1.2 record, trying 1.0", "handle", s.handle(), "addr", s.addr)
			s.hspVersion = ag.HSPVersion10
			g.doDisc(s, s.openServices)
			return
		}
	}
	g.execute(s, e, p)
}

func (g *Gateway) discAcpRes(s *scb, p payload) {
	args := p.(discArgs)
	if args.status.Usable() {
		g.findAttr(s, args.db, s.service().Mask())
	}
	g.freeDB(s, p)
}

func (g *Gateway) discFail(s *scb, p payload) {
	addr := s.addr
	g.freeDB(s, p)
	g.rfc.StartServers(s.idx, &s.ports, s.regServices, g.scns())
	s.setAddr(ag.Addr{})
	logger.Info("discovery failed", "handle", s.handle(), "addr", addr)
	g.emit(ag.OpenEvent{Header: s.header(ag.StatusFailSDP), Addr: addr})
}

// findAttr applies the peer record of services to s.
func (g *Gateway) findAttr(s *scb, db *sdp.DB, services ag.ServiceMask) bool {
	res, ok := db.FindAttr(services, s.role, s.peerVersion)
	if !ok {
		return false
	}
	if s.role == ag.RoleInitiator {
		s.peerSCN = res.SCN
	}
	if !services.Has(ag.HFPIndex) {
		if res.HasVolume && res.Volume {
			s.peerFeatures |= ag.PeerFeatVol
		}
		return true
	}

	if res.VersionMissing {
		if e, ok := g.cache.Get(s.addr); ok && e.Version != ag.VersionUnknown {
			res.Version = e.Version
		}
	}
	s.peerVersion = res.Version
	g.cache.SetVersion(s.addr, res.Version)
	g.cache.RecordVersion(s.addr, res.Version)

	if !res.HasFeatures {
		return true
	}
	s.sdpFeatures = res.Features
	g.cache.SetFeatures(s.addr, res.Features)
	if s.peerFeatures == 0 {
		s.peerFeatures = ag.PeerFeature(res.Features & sdp.BRSFMask)
	}
	// Peers that advertise wide band speech without ever sending AT+BAC
	// still expect it.
	if !s.receivedBAC && res.Features&sdp.FeatWBS != 0 {
		logger.Warn("wide band speech from record, no AT+BAC", "handle", s.handle(), "addr", s.addr)
		s.peerCodecs = ag.CodecCVSD | ag.CodecMSBC
		if res.Features&sdp.FeatSWB != 0 {
			s.peerCodecs |= ag.CodecLC3
		}
		s.scoCodec = ag.CodecMSBC
		s.codecUpdated = true
	}
	return true
}
