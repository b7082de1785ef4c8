package gateway

import (
	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/sdp"
)

type state uint8

// Control block states.
const (
	stateInit state = iota
	stateOpening
	stateOpen
	stateClosing
)

func (s state) String() string {
	switch s {
	case stateInit:
		return "INIT"
	case stateOpening:
		return "OPENING"
	case stateOpen:
		return "OPEN"
	case stateClosing:
		return "CLOSING"
	}
	return "UNKNOWN"
}

type event uint8

// State machine events.
const (
	evtRegister event = iota
	evtDeregister
	evtAPIOpen
	evtAPIClose
	evtAudioOpen
	evtAudioClose
	evtResult
	evtSetCodec
	evtRFCOpen
	evtRFCClose
	evtRFCSrvClose
	evtRFCData
	evtSCOOpen
	evtSCOClose
	evtDiscACPRes
	evtDiscINTRes
	evtDiscOK
	evtDiscFail
	evtRingTimeout
	evtSvcTimeout
	evtCollision
)

var eventName = [...]string{
	evtRegister:    "API_REGISTER",
	evtDeregister:  "API_DEREGISTER",
	evtAPIOpen:     "API_OPEN",
	evtAPIClose:    "API_CLOSE",
	evtAudioOpen:   "API_AUDIO_OPEN",
	evtAudioClose:  "API_AUDIO_CLOSE",
	evtResult:      "API_RESULT",
	evtSetCodec:    "API_SETCODEC",
	evtRFCOpen:     "RFC_OPEN",
	evtRFCClose:    "RFC_CLOSE",
	evtRFCSrvClose: "RFC_SRV_CLOSE",
	evtRFCData:     "RFC_DATA",
	evtSCOOpen:     "SCO_OPEN",
	evtSCOClose:    "SCO_CLOSE",
	evtDiscACPRes:  "DISC_ACP_RES",
	evtDiscINTRes:  "DISC_INT_RES",
	evtDiscOK:      "DISC_OK",
	evtDiscFail:    "DISC_FAIL",
	evtRingTimeout: "RING_TIMEOUT",
	evtSvcTimeout:  "SVC_TIMEOUT",
	evtCollision:   "COLLISION",
}

func (e event) String() string {
	if int(e) < len(eventName) {
		return eventName[e]
	}
	return "UNKNOWN"
}

// Event payloads. Each event carries the one type it needs, or nil.
type payload interface{}

type registerArgs struct {
	services ag.ServiceMask
	features ag.Feature
	names    [ag.NumIdx]string
	appID    uint8
}

type openArgs struct {
	addr ag.Addr
}

type audioOpenArgs struct {
	disabled ag.Codec
}

type resultArgs struct {
	code ag.ResultCode
	data ag.ResultData
}

type codecArgs struct {
	codec ag.Codec
}

type portArgs struct {
	handle uint16
}

type dataArgs struct {
	handle uint16
	b      []byte
}

type discArgs struct {
	status sdp.Status
	db     *sdp.DB
}

type action func(g *Gateway, s *scb, p payload)

type transition struct {
	next    state
	actions []action
}

// stay marks a transition that keeps the current state.
const stay = state(0xFF)

var table [stateClosing + 1]map[event]transition

// The table refers to actions that execute events themselves, so it is
// filled in at init time.
func init() {
	table = [...]map[event]transition{
		stateInit: {
			evtRegister:   {stay, []action{(*Gateway).register}},
			evtDeregister: {stay, []action{(*Gateway).deregister}},
			evtAPIOpen:    {stateOpening, []action{(*Gateway).startOpen}},
			evtRFCOpen:    {stateOpen, []action{(*Gateway).rfcAcpOpen, (*Gateway).scoListen}},
			evtSCOOpen:    {stay, []action{(*Gateway).scoConnOpen}},
			evtSCOClose:   {stay, []action{(*Gateway).scoConnClose}},
			evtDiscACPRes: {stay, []action{(*Gateway).freeDB}},
		},
		stateOpening: {
			evtDeregister: {stateClosing, []action{(*Gateway).rfcDoClose, (*Gateway).startDereg}},
			evtAPIOpen:    {stay, []action{(*Gateway).openFail}},
			evtAPIClose:   {stateClosing, []action{(*Gateway).rfcDoClose}},
			evtRFCOpen:    {stateOpen, []action{(*Gateway).rfcOpen, (*Gateway).scoListen}},
			evtRFCClose:   {stateInit, []action{(*Gateway).rfcFail}},
			evtSCOOpen:    {stay, []action{(*Gateway).scoConnOpen}},
			evtSCOClose:   {stay, []action{(*Gateway).scoConnClose}},
			evtDiscINTRes: {stay, []action{(*Gateway).discIntRes}},
			evtDiscOK:     {stay, []action{(*Gateway).rfcDoOpen}},
			evtDiscFail:   {stateInit, []action{(*Gateway).discFail}},
			evtCollision:  {stateInit, []action{(*Gateway).handleCollision}},
		},
		stateOpen: {
			evtDeregister:  {stateClosing, []action{(*Gateway).startClose, (*Gateway).startDereg}},
			evtAPIOpen:     {stay, []action{(*Gateway).openFail}},
			evtAPIClose:    {stateClosing, []action{(*Gateway).startClose}},
			evtAudioOpen:   {stay, []action{(*Gateway).scoOpen}},
			evtAudioClose:  {stay, []action{(*Gateway).scoClose}},
			evtResult:      {stay, []action{(*Gateway).result}},
			evtSetCodec:    {stay, []action{(*Gateway).setCodec}},
			evtRFCClose:    {stateInit, []action{(*Gateway).rfcClose}},
			evtRFCData:     {stay, []action{(*Gateway).rfcData}},
			evtSCOOpen:     {stay, []action{(*Gateway).scoConnOpen, (*Gateway).postSCOOpen}},
			evtSCOClose:    {stay, []action{(*Gateway).scoConnClose, (*Gateway).postSCOClose}},
			evtDiscACPRes:  {stay, []action{(*Gateway).discAcpRes}},
			evtRingTimeout: {stay, []action{(*Gateway).sendRing}},
			evtSvcTimeout:  {stateClosing, []action{(*Gateway).startClose}},
		},
		stateClosing: {
			evtDeregister: {stay, []action{(*Gateway).startDereg}},
			evtAPIOpen:    {stay, []action{(*Gateway).openFail}},
			evtRFCClose:   {stateInit, []action{(*Gateway).rfcClose}},
			evtSCOOpen:    {stay, []action{(*Gateway).scoConnOpen}},
			evtSCOClose:   {stay, []action{(*Gateway).scoConnClose, (*Gateway).postSCOClose}},
			evtDiscACPRes: {stay, []action{(*Gateway).freeDB}},
			evtDiscINTRes: {stateInit, []action{(*Gateway).freeDB}},
		},
	}
}

// execute runs event e on s. The new state is set before the actions run,
// so an action that executes another event sees it. Pairs missing from
// the table are logged and dropped.
func (g *Gateway) execute(s *scb, e event, p payload) {
	if !s.inUse {
		logger.Warn("event for unused scb", "handle", s.handle(), "event", e)
		return
	}
	t, ok := table[s.state][e]
	if !ok {
		logger.Warn("unhandled event", "handle", s.handle(), "addr", s.addr, "state", s.state, "event", e)
		return
	}
	prev := s.state
	if t.next != stay {
		s.state = t.next
	}
	if prev != s.state {
		logger.Debug("transition", "handle", s.handle(), "addr", s.addr, "event", e, "from", prev, "to", s.state)
	}
	for _, a := range t.actions {
		a(g, s, p)
	}
	if s.inUse {
		g.publish(s)
	}
}

// executeByHandle runs e on the block of h, if it is in use.
func (g *Gateway) executeByHandle(h uint16, e event, p payload) {
	s := g.byHandle(h)
	if s == nil {
		logger.Warn("no scb for handle", "handle", h, "event", e)
		return
	}
	g.execute(s, e, p)
}
