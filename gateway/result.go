package gateway

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/currantlabs/ag"
)

func (g *Gateway) result(s *scb, p payload) {
	args := p.(resultArgs)
	logger.Debug("result", "handle", s.handle(), "code", args.code, "service", s.service())
	if s.hfp() {
		g.hfpResult(s, args.code, args.data)
		return
	}
	g.hspResult(s, args.code, args.data)
}

// finish terminates a solicited response as the application asked.
func (g *Gateway) finish(s *scb, d ag.ResultData) {
	switch d.OKFlag {
	case ag.OKDone:
		g.sendOK(s)
	case ag.OKError:
		g.sendError(s, d.ErrCode)
	}
}

// wantsAudio reports whether the call result asks for audio on s.
func (g *Gateway) wantsAudio(s *scb, d ag.ResultData) bool {
	return d.Audio == s.handle() && !g.sco.IsOpen(s.audio) && s.features&ag.FeatNoSCO == 0
}

func (g *Gateway) hspResult(s *scb, code ag.ResultCode, d ag.ResultData) {
	switch code {
	case ag.ResultSPK:
		g.send(s, "+VGS: "+strconv.Itoa(d.Num))
	case ag.ResultMIC:
		g.send(s, "+VGM: "+strconv.Itoa(d.Num))
	case ag.ResultInCall:
		if g.sco.IsOpen(s.audio) || !s.inband || s.features&ag.FeatNoSCO != 0 {
			g.sendRing(s, nil)
			return
		}
		s.postSCO = postRing
		g.scoOpen(s, nil)
	case ag.ResultInCallConn, ag.ResultOutCallOrig:
		if code == ag.ResultInCallConn {
			s.ringTimer.Cancel()
		}
		if s.features&ag.FeatNoSCO != 0 {
			return
		}
		switch {
		case g.wantsAudio(s, d):
			g.scoOpen(s, nil)
		case d.Audio == ag.HandleNone && g.sco.IsOpen(s.audio):
			g.scoClose(s, nil)
		}
	case ag.ResultEndCall:
		s.ringTimer.Cancel()
		if (g.sco.IsOpen(s.audio) || g.sco.IsOpening(s.audio)) && s.features&ag.FeatNoSCO == 0 {
			g.scoClose(s, nil)
		}
	case ag.ResultInbandRing:
		s.inband = d.State
	case ag.ResultUNAT:
		g.unat(s, d)
	default:
		logger.Debug("result ignored for headset", "handle", s.handle(), "code", code)
	}
}

func (g *Gateway) unat(s *scb, d ag.ResultData) {
	if d.OKFlag == ag.OKError {
		g.sendError(s, ag.CMEInvalidCharsInStr)
		return
	}
	if d.Str != "" {
		g.send(s, d.Str)
	}
	if d.OKFlag == ag.OKDone {
		g.sendOK(s)
	}
}

func (g *Gateway) hfpResult(s *scb, code ag.ResultCode, d ag.ResultData) {
	switch code {
	case ag.ResultSPK:
		g.send(s, "+VGS: "+strconv.Itoa(d.Num))
	case ag.ResultMIC:
		g.send(s, "+VGM: "+strconv.Itoa(d.Num))

	case ag.ResultInbandRing:
		s.inband = d.State
		g.send(s, "+BSIR: "+boolArg(d.State))

	case ag.ResultCIND:
		g.storeCIND(s, d.Str)
		g.send(s, "+CIND: "+d.Str)
		g.finish(s, d)

	case ag.ResultBINP, ag.ResultCNUM, ag.ResultCLCC, ag.ResultCOPS:
		if d.OKFlag != ag.OKError && d.Str != "" {
			g.send(s, resultPrefix[code]+d.Str)
		}
		g.finish(s, d)

	case ag.ResultBVRA:
		s.vrec = d.State
		g.send(s, "+BVRA: "+boolArg(d.State))
		g.finish(s, d)

	case ag.ResultBTRH:
		if d.OKFlag == ag.OKError {
			g.sendError(s, d.ErrCode)
			return
		}
		if d.Num >= 0 {
			g.send(s, "+BTRH: "+strconv.Itoa(d.Num))
		}
		g.sendOK(s)

	case ag.ResultIND:
		g.sendInd(s, d.Ind.ID, d.Ind.Value, d.Ind.OnDemand)
	case ag.ResultIndOnDemand:
		g.sendInd(s, d.Ind.ID, d.Ind.Value, true)

	case ag.ResultInCall:
		s.clipStr = callerID(d)
		if s.postSCO == postCallEnd {
			// The end of the previous call and the new call are reported
			// once the audio is gone.
			s.postSCO = postCallEndInCall
			return
		}
		g.sendCallInds(s, code)
		if s.inband && s.features&ag.FeatNoSCO == 0 {
			s.postSCO = postRing
			g.scoOpen(s, nil)
			return
		}
		g.sendRing(s, nil)

	case ag.ResultCallWait:
		if s.ccwa {
			g.send(s, "+CCWA: "+callerID(d))
		}
		g.sendCallInds(s, code)

	case ag.ResultInCallConn:
		s.ringTimer.Cancel()
		g.sendCallInds(s, code)
		if g.wantsAudio(s, d) {
			g.scoOpen(s, nil)
		}

	case ag.ResultOutCallOrig:
		if g.wantsAudio(s, d) {
			s.postSCO = postCallOrig
			g.scoOpen(s, nil)
			return
		}
		g.sendCallInds(s, code)

	case ag.ResultOutCallAlert, ag.ResultCallCancel, ag.ResultInCallHeld:
		g.sendCallInds(s, code)

	case ag.ResultOutCallConn:
		g.sendCallInds(s, code)
		if g.wantsAudio(s, d) {
			g.scoOpen(s, nil)
		}

	case ag.ResultEndCall:
		s.ringTimer.Cancel()
		switch {
		case (g.sco.IsOpen(s.audio) || g.sco.IsOpening(s.audio)) && s.features&ag.FeatNoSCO == 0:
			s.postSCO = postCallEnd
			g.scoClose(s, nil)
		case s.postSCO == postCallEndInCall:
			s.postSCO = postCallEnd
		default:
			g.sendCallInds(s, code)
		}

	case ag.ResultUNAT:
		g.unat(s, d)

	case ag.ResultMultiCall:
		if d.Str != "" {
			g.send(s, "+CHLD: "+d.Str)
		}
		g.finish(s, d)

	case ag.ResultBIND:
		ind := s.findLocalHFInd(d.Ind.ID)
		if ind == nil {
			logger.Warn("unknown HF indicator", "handle", s.handle(), "id", d.Ind.ID)
			return
		}
		ind.enabled = d.Ind.Value != 0
		if s.peerHasHFInd(ind.id) {
			g.send(s, "+BIND: "+strconv.Itoa(ind.id)+","+boolArg(ind.enabled))
		}

	default:
		logger.Warn("unsupported result", "handle", s.handle(), "code", code)
	}
}

var resultPrefix = map[ag.ResultCode]string{
	ag.ResultBINP: "+BINP: ",
	ag.ResultCNUM: "+CNUM: ",
	ag.ResultCLCC: "+CLCC: ",
	ag.ResultCOPS: "+COPS: ",
}

// callerID formats the number and type of a call, using 129 when the type
// is out of range.
func callerID(d ag.ResultData) string {
	if d.Str == "" {
		return ""
	}
	t := d.Num
	if t < 128 || t > 175 {
		t = 129
	}
	return fmt.Sprintf("%s,%d", d.Str, t)
}

// storeCIND keeps the indicator values of a +CIND response.
func (g *Gateway) storeCIND(s *scb, str string) {
	for i, f := range strings.Split(str, ",") {
		if i+1 > ag.NumInd {
			break
		}
		if v, err := strconv.Atoi(strings.TrimSpace(f)); err == nil {
			s.ind[i+1] = v
		}
	}
}

// sendInd reports an indicator change with +CIEV. Unchanged values are
// only sent on demand, and indicators the peer turned off never are.
func (g *Gateway) sendInd(s *scb, id, value int, onDemand bool) {
	if id < 1 || id > ag.NumInd {
		logger.Warn("bad indicator", "handle", s.handle(), "id", id)
		return
	}
	if s.biaMask&(1<<uint(id)) != 0 && !onDemand {
		s.ind[id] = value
		return
	}
	if !onDemand && s.ind[id] == value {
		return
	}
	s.ind[id] = value
	if s.cmer {
		g.send(s, fmt.Sprintf("+CIEV: %d,%d", id, value))
	}
}

// sendCallInds updates call and callsetup for a call state result.
func (g *Gateway) sendCallInds(s *scb, code ag.ResultCode) {
	call := s.ind[ag.IndCall]
	switch code {
	case ag.ResultEndCall:
		call = ag.CallInactive
	case ag.ResultInCallConn, ag.ResultOutCallConn, ag.ResultInCallHeld:
		call = ag.CallActive
	}
	setup := ag.CallSetupNone
	switch code {
	case ag.ResultInCall, ag.ResultCallWait:
		setup = ag.CallSetupIncoming
	case ag.ResultOutCallOrig:
		setup = ag.CallSetupOutgoing
	case ag.ResultOutCallAlert:
		setup = ag.CallSetupAlerting
	}
	g.sendInd(s, ag.IndCall, call, false)
	g.sendInd(s, ag.IndCallSetup, setup, false)
}
