package gateway

import (
	"strconv"

	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/sco"
)

// audioHooks lets the audio controller call back into the blocks.
type audioHooks Gateway

func (h *audioHooks) Negotiate(e *sco.Endpoint) bool {
	g := (*Gateway)(h)
	s := g.byEndpoint(e)
	if s == nil {
		return false
	}
	return g.negotiate(s)
}

func (h *audioHooks) Aborted(e *sco.Endpoint) {
	g := (*Gateway)(h)
	s := g.byEndpoint(e)
	if s == nil {
		return
	}
	s.codecTimer.Cancel()
	s.audio.ResetSettings()
	logger.Info("audio open aborted", "handle", s.handle(), "addr", s.addr)
	g.emit(ag.AudioEvent{Header: s.header(ag.StatusSuccess), Addr: s.addr})
}

func (g *Gateway) byEndpoint(e *sco.Endpoint) *scb {
	for i := range g.scbs {
		s := &g.scbs[i]
		if s.inUse && s.audio == e {
			return s
		}
	}
	return nil
}

// localCodecs returns the codecs this side can carry for s.
func (g *Gateway) localCodecs(s *scb) ag.Codec {
	c := ag.CodecCVSD
	if s.features&ag.FeatCodec != 0 {
		c |= ag.CodecMSBC
		if s.features&ag.FeatSWB != 0 && g.swb {
			c |= ag.CodecLC3 | ag.CodecAptXSWB
		}
	}
	return c
}

// pickCodec selects the codec of the next audio connection.
func (g *Gateway) pickCodec(s *scb) ag.Codec {
	if s.audio.Fallback {
		return ag.CodecCVSD
	}
	avail := ag.EffectiveCodecs(s.peerCodecs&g.localCodecs(s), s.disabledCodecs)
	if s.scoCodec&avail != 0 {
		return s.scoCodec
	}
	return bestCodec(avail)
}

func bestCodec(c ag.Codec) ag.Codec {
	for _, b := range []ag.Codec{ag.CodecAptXSWB, ag.CodecLC3, ag.CodecMSBC} {
		if c&b != 0 {
			return b
		}
	}
	return ag.CodecCVSD
}

// canNegotiate reports whether both sides do codec negotiation.
func (s *scb) canNegotiate() bool {
	return s.hfp() && s.features&ag.FeatCodec != 0 && s.peerFeatures&ag.PeerFeatCodec != 0
}

// negotiate sends +BCS when both sides support codec negotiation, and
// reports whether it did.
func (g *Gateway) negotiate(s *scb) bool {
	if !s.canNegotiate() {
		s.audio.Codec = s.scoCodec
		return false
	}
	c := g.pickCodec(s)
	if !s.audio.Fallback {
		s.scoCodec = c
	}
	s.audio.Codec = c
	logger.Info("codec negotiation", "handle", s.handle(), "addr", s.addr, "codec", c)
	g.send(s, "+BCS: "+strconv.Itoa(c.ID()))
	h := s.handle()
	s.codecTimer.Set(g.codecTimeout, func() { g.codecTimeoutFired(h) })
	return true
}

func (g *Gateway) codecTimeoutFired(h uint16) {
	s := g.byHandle(h)
	if s == nil || !g.sco.Negotiating(s.audio) {
		return
	}
	logger.Warn("codec negotiation timed out", "handle", h, "addr", s.addr, "codec", s.scoCodec)
	s.codecUpdated = true
	g.sco.Event(s.audio, sco.EvtClose)
}

// codecSelected handles the peer answer to +BCS.
func (g *Gateway) codecSelected(s *scb, c ag.Codec) {
	s.codecTimer.Cancel()
	if !g.sco.Negotiating(s.audio) {
		logger.Debug("AT+BCS outside negotiation", "handle", s.handle(), "codec", c)
		return
	}
	if want := s.sentCodec(); c != want {
		logger.Warn("peer selected another codec", "handle", s.handle(), "want", want, "got", c)
		g.sco.Event(s.audio, sco.EvtClose)
		return
	}
	s.codecUpdated = false
	g.sco.Event(s.audio, sco.EvtCodecDone)
}

// sentCodec is the codec offered with the last +BCS.
func (s *scb) sentCodec() ag.Codec {
	if s.audio.Fallback {
		return ag.CodecCVSD
	}
	return s.scoCodec
}

func (g *Gateway) scoListen(s *scb, p payload) {
	if s.features&ag.FeatNoSCO != 0 {
		return
	}
	s.audio.ESCO = s.features&ag.FeatNoESCO == 0
	g.sco.Event(s.audio, sco.EvtListen)
}

func (g *Gateway) scoOpen(s *scb, p payload) {
	if args, ok := p.(audioOpenArgs); ok {
		s.disabledCodecs = args.disabled &^ ag.CodecCVSD
	}
	if !g.sco.Allowed() || s.features&ag.FeatNoSCO != 0 {
		logger.Info("audio not allowed", "handle", s.handle(), "addr", s.addr)
		g.emit(ag.AudioEvent{Header: s.header(ag.StatusFailResources), Addr: s.addr})
		return
	}
	s.audio.ESCO = s.features&ag.FeatNoESCO == 0
	e := sco.EvtOpen
	if cur := g.sco.Current(); cur != nil && cur != s.audio {
		switch g.sco.State() {
		case sco.StateShutdown, sco.StateListen:
		default:
			e = sco.EvtXfer
		}
	}
	g.sco.Event(s.audio, e)
}

func (g *Gateway) scoClose(s *scb, p payload) {
	s.codecTimer.Cancel()
	if s.audio.HasLink() || g.sco.Current() == s.audio {
		g.sco.Event(s.audio, sco.EvtClose)
	}
}

// scoShutdown gives up the audio link of s for good.
func (g *Gateway) scoShutdown(s *scb, p payload) {
	s.codecTimer.Cancel()
	if s.audio.HasLink() || g.sco.Current() == s.audio {
		g.sco.Event(s.audio, sco.EvtShutdown)
	}
}

func (g *Gateway) scoConnOpen(s *scb, p payload) {
	s.codecTimer.Cancel()
	g.sco.Event(s.audio, sco.EvtConnOpen)
	s.audio.Retry = false
	codec := s.audio.Codec
	if s.audio.Fallback {
		codec = ag.CodecCVSD
	}
	logger.Info("audio open", "handle", s.handle(), "addr", s.addr, "codec", codec)
	g.emit(ag.AudioEvent{Header: s.header(ag.StatusSuccess), Addr: s.addr, Open: true, Codec: codec})
}

func (g *Gateway) scoConnClose(s *scb, p payload) {
	s.codecTimer.Cancel()
	s.audio.Idx = sco.InvalidIdx
	if s.svcConn && g.sco.Failed(s.audio) {
		logger.Info("audio open failed, retrying", "handle", s.handle(), "addr", s.addr)
		g.sco.Event(s.audio, sco.EvtReopen)
		return
	}
	g.sco.Event(s.audio, sco.EvtConnClose)
	s.audio.ResetSettings()
	logger.Info("audio closed", "handle", s.handle(), "addr", s.addr)
	g.emit(ag.AudioEvent{Header: s.header(ag.StatusSuccess), Addr: s.addr})
}

func (g *Gateway) postSCOOpen(s *scb, p payload) {
	switch s.postSCO {
	case postRing:
		g.sendRing(s, p)
		s.postSCO = postNone
	case postCallConn:
		g.sendCallInds(s, ag.ResultInCallConn)
		s.postSCO = postNone
	case postCallOrig:
		g.sendCallInds(s, ag.ResultOutCallOrig)
		s.postSCO = postNone
	}
}

func (g *Gateway) postSCOClose(s *scb, p payload) {
	if g.sco.IsOpening(s.audio) {
		// Retrying with other parameters.
		return
	}
	switch s.postSCO {
	case postCloseRFC:
		if s.ports.Conn != 0 {
			g.rfcDoClose(s, p)
		}
		s.postSCO = postNone
	case postCallConn:
		g.sendCallInds(s, ag.ResultInCallConn)
		s.postSCO = postNone
	case postCallOrig:
		g.sendCallInds(s, ag.ResultOutCallOrig)
		s.postSCO = postNone
	case postCallEnd:
		for i := range g.scbs {
			o := &g.scbs[i]
			if o.inUse && o.svcConn {
				g.sendCallInds(o, ag.ResultEndCall)
			}
		}
		s.postSCO = postNone
	case postCallEndInCall:
		g.sendCallInds(s, ag.ResultEndCall)
		g.sendCallInds(s, ag.ResultInCall)
		if s.inband && s.features&ag.FeatNoSCO == 0 {
			s.postSCO = postRing
			g.scoOpen(s, nil)
		} else {
			s.postSCO = postNone
			g.sendRing(s, p)
		}
	}
}

// sendRing sends RING, and the caller id when enabled, then arms the ring
// alarm for the next one.
func (g *Gateway) sendRing(s *scb, p payload) {
	g.send(s, "RING")
	if s.hfp() && s.clip && s.clipStr != "" {
		g.send(s, "+CLIP: "+s.clipStr)
	}
	h := s.handle()
	s.ringTimer.Set(g.ringInterval, func() { g.executeByHandle(h, evtRingTimeout, nil) })
}

func (g *Gateway) setCodec(s *scb, p payload) {
	c := p.(codecArgs).codec
	status := ag.StatusSuccess
	switch {
	case c.ID() == 0:
		logger.Warn("invalid codec", "handle", s.handle(), "codec", c)
		status = ag.StatusFailResources
	case c != ag.CodecCVSD && (c&g.localCodecs(s) == 0 || s.peerCodecs&c == 0):
		logger.Warn("codec not supported", "handle", s.handle(), "codec", c, "peer", s.peerCodecs)
		status = ag.StatusFailResources
	default:
		s.scoCodec = c
		s.codecUpdated = true
	}
	g.emit(ag.CodecEvent{Header: s.header(status), Addr: s.addr, Codec: c})
}
