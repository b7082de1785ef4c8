package gateway

import (
	"golang.org/x/net/context"

	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/alarm"
	"github.com/currantlabs/ag/at"
	"github.com/currantlabs/ag/rfcomm"
	"github.com/currantlabs/ag/sco"
	"github.com/currantlabs/ag/sdp"
)

// postSCO is work left for when the audio link opens or closes.
type postSCO uint8

const (
	postNone postSCO = iota
	postRing
	postCallConn
	postCallOrig
	postCallEnd
	postCallEndInCall
	postCloseRFC
)

// hfInd is an HF indicator [HFP 1.8, 4.36].
type hfInd struct {
	id      int
	enabled bool
	min     int
	max     int
}

// Assigned HF indicators.
const (
	hfIndSafety  = 1 // Enhanced safety, 0..1
	hfIndBattery = 2 // Battery level, 0..100
)

// scb is the service control block of one registration and its peer.
type scb struct {
	idx     int
	inUse   bool
	dealloc bool
	state   state
	appID   uint8

	addr ag.Addr
	role ag.Role

	ports        rfcomm.Ports
	regServices  ag.ServiceMask
	openServices ag.ServiceMask
	connService  int // service index, -1 when not connected
	peerSCN      uint8

	features       ag.Feature
	maskedFeatures ag.Feature
	peerFeatures   ag.PeerFeature
	sdpFeatures    uint16
	peerVersion    uint16
	hspVersion     uint16
	svcConn        bool

	peerHFInd  []hfInd
	localHFInd []hfInd

	at *at.Parser

	// Indicators, indexed by position. Index 0 is unused.
	ind     [ag.NumInd + 1]int
	biaMask uint32 // indicators the peer turned off

	clip    bool
	ccwa    bool
	cmer    bool
	cmee    bool
	inband  bool
	nrec    bool
	vrec    bool
	clipStr string

	postSCO postSCO

	disabledCodecs ag.Codec
	peerCodecs     ag.Codec
	scoCodec       ag.Codec
	codecUpdated   bool
	receivedBAC    bool
	audio          *sco.Endpoint

	ringTimer      *alarm.Alarm
	slcTimer       *alarm.Alarm
	collisionTimer *alarm.Alarm
	codecTimer     *alarm.Alarm

	disc       *sdp.DB
	discCancel context.CancelFunc
}

func (s *scb) handle() uint16 { return uint16(s.idx + 1) }

func (s *scb) header(status ag.Status) ag.Header {
	return ag.Header{Handle: s.handle(), AppID: s.appID, Status: status}
}

func (s *scb) service() ag.Service {
	switch s.connService {
	case ag.HSPIndex:
		return ag.ServiceHSP
	case ag.HFPIndex:
		return ag.ServiceHFP
	}
	return ag.ServiceNone
}

func (s *scb) hfp() bool { return s.connService == ag.HFPIndex }

func (s *scb) setAddr(a ag.Addr) {
	s.addr = a
	s.audio.Addr = a
}

// alloc returns an unused control block, or nil when all are in use.
func (g *Gateway) alloc() *scb {
	for i := range g.scbs {
		s := &g.scbs[i]
		if s.inUse {
			continue
		}
		*s = scb{idx: i, inUse: true}
		s.connService = -1
		s.audio = sco.NewEndpoint(ag.Addr{})
		s.peerCodecs = ag.CodecCVSD
		s.scoCodec = ag.CodecCVSD
		s.peerVersion = ag.VersionUnknown
		s.hspVersion = ag.HSPVersion12
		s.resetIndicators()
		s.ringTimer = g.newAlarm(s, "ring")
		s.slcTimer = g.newAlarm(s, "slc")
		s.collisionTimer = g.newAlarm(s, "collision")
		s.codecTimer = g.newAlarm(s, "codec")
		logger.Debug("scb allocated", "handle", s.handle())
		return s
	}
	logger.Warn("out of control blocks")
	return nil
}

func (g *Gateway) newAlarm(s *scb, name string) *alarm.Alarm {
	return alarm.New(name, g.clock, func(f func()) { g.exec.post(f) })
}

// deallocate releases s. Alarms are freed before the block is cleared, and
// releasing a block twice does nothing.
func (g *Gateway) deallocate(s *scb) {
	if !s.inUse {
		return
	}
	logger.Debug("scb deallocated", "handle", s.handle())
	for _, a := range []*alarm.Alarm{s.ringTimer, s.slcTimer, s.collisionTimer, s.codecTimer} {
		a.Free()
	}
	if s.discCancel != nil {
		s.discCancel()
	}
	if s.audio.HasLink() || g.sco.Current() == s.audio {
		g.sco.Event(s.audio, sco.EvtShutdown)
	}
	idx := s.idx
	*s = scb{idx: idx, connService: -1}
	g.publish(s)

	if g.disabling && g.inUse() == 0 {
		g.disabling = false
		g.enabled = false
		logger.Info("gateway disabled")
		g.emit(ag.DisableEvent{})
	}
}

func (g *Gateway) inUse() int {
	n := 0
	for i := range g.scbs {
		if g.scbs[i].inUse {
			n++
		}
	}
	return n
}

// byHandle returns the control block of h when it is in use.
func (g *Gateway) byHandle(h uint16) *scb {
	if h == ag.HandleNone || int(h) > len(g.scbs) {
		return nil
	}
	s := &g.scbs[h-1]
	if !s.inUse {
		return nil
	}
	return s
}

// byAddr returns the control block in use with peer a.
func (g *Gateway) byAddr(a ag.Addr) *scb {
	for i := range g.scbs {
		s := &g.scbs[i]
		if s.inUse && s.addr == a {
			return s
		}
	}
	return nil
}

// busy returns another block that is connecting or connected to a.
func (g *Gateway) busy(self *scb, a ag.Addr) *scb {
	for i := range g.scbs {
		s := &g.scbs[i]
		if s != self && s.inUse && s.state != stateInit && s.addr == a {
			return s
		}
	}
	return nil
}

// otherOpen reports whether any block but self has a connection up.
func (g *Gateway) otherOpen(self *scb) bool {
	for i := range g.scbs {
		s := &g.scbs[i]
		if s != self && s.inUse && s.state == stateOpen {
			return true
		}
	}
	return false
}

func (s *scb) resetIndicators() {
	for i := range s.ind {
		s.ind[i] = 0
	}
	s.ind[ag.IndService] = 1
	s.ind[ag.IndSignal] = 5
	s.ind[ag.IndBattChg] = 5
	s.biaMask = 0
}

// View is a snapshot of a control block.
type View struct {
	Handle  uint16
	InUse   bool
	State   string
	Addr    ag.Addr
	Service ag.Service
	Role    ag.Role
	SLC     bool
	Audio   bool
}

func (g *Gateway) publish(s *scb) {
	v := View{
		Handle:  s.handle(),
		InUse:   s.inUse,
		State:   s.state.String(),
		Addr:    s.addr,
		Service: s.service(),
		Role:    s.role,
		SLC:     s.svcConn,
	}
	if s.audio != nil {
		v.Audio = g.sco.IsOpen(s.audio)
	}
	g.mu.Lock()
	g.views[s.idx] = v
	g.mu.Unlock()
}
