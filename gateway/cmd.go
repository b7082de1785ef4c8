package gateway

import (
	"strconv"
	"strings"

	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/at"
)

// AT command ids.
const (
	cmdA = iota
	cmdD
	cmdVGS
	cmdVGM
	cmdCCWA
	cmdCHLD
	cmdCHUP
	cmdCIND
	cmdCLIP
	cmdCMER
	cmdVTS
	cmdBINP
	cmdBLDN
	cmdBVRA
	cmdBRSF
	cmdNREC
	cmdCNUM
	cmdBTRH
	cmdCLCC
	cmdCOPS
	cmdCMEE
	cmdBIA
	cmdCBC
	cmdBCC
	cmdBCS
	cmdBIND
	cmdBIEV
	cmdBAC
	cmdCKPD
)

var hspCommands = []at.Command{
	{Name: "+CKPD", ID: cmdCKPD, Args: at.ArgSet, Format: at.FmtInt, Min: 200, Max: 200},
	{Name: "+VGS", ID: cmdVGS, Args: at.ArgSet, Format: at.FmtInt, Min: 0, Max: 15},
	{Name: "+VGM", ID: cmdVGM, Args: at.ArgSet, Format: at.FmtInt, Min: 0, Max: 15},
}

var hfpCommands = []at.Command{
	{Name: "A", ID: cmdA, Args: at.ArgNone, Format: at.FmtStr},
	{Name: "D", ID: cmdD, Args: at.ArgNone | at.ArgFree, Format: at.FmtStr},
	{Name: "+VGS", ID: cmdVGS, Args: at.ArgSet, Format: at.FmtInt, Min: 0, Max: 15},
	{Name: "+VGM", ID: cmdVGM, Args: at.ArgSet, Format: at.FmtInt, Min: 0, Max: 15},
	{Name: "+CCWA", ID: cmdCCWA, Args: at.ArgSet, Format: at.FmtInt, Min: 0, Max: 1},
	{Name: "+CHLD", ID: cmdCHLD, Args: at.ArgSetTest, Format: at.FmtStr},
	{Name: "+CHUP", ID: cmdCHUP, Args: at.ArgNone, Format: at.FmtStr},
	{Name: "+CIND", ID: cmdCIND, Args: at.ArgReadTest, Format: at.FmtStr},
	{Name: "+CLIP", ID: cmdCLIP, Args: at.ArgSet, Format: at.FmtInt, Min: 0, Max: 1},
	{Name: "+CMER", ID: cmdCMER, Args: at.ArgSet, Format: at.FmtStr},
	{Name: "+VTS", ID: cmdVTS, Args: at.ArgSet, Format: at.FmtStr},
	{Name: "+BINP", ID: cmdBINP, Args: at.ArgSet, Format: at.FmtInt, Min: 1, Max: 1},
	{Name: "+BLDN", ID: cmdBLDN, Args: at.ArgNone, Format: at.FmtStr},
	{Name: "+BVRA", ID: cmdBVRA, Args: at.ArgSet, Format: at.FmtInt, Min: 0, Max: 1},
	{Name: "+BRSF", ID: cmdBRSF, Args: at.ArgSet, Format: at.FmtInt, Min: 0, Max: at.MaxInt, Wide: true},
	{Name: "+NREC", ID: cmdNREC, Args: at.ArgSet, Format: at.FmtInt, Min: 0, Max: 0},
	{Name: "+CNUM", ID: cmdCNUM, Args: at.ArgNone, Format: at.FmtStr},
	{Name: "+BTRH", ID: cmdBTRH, Args: at.ArgSetRead, Format: at.FmtInt, Min: 0, Max: 2},
	{Name: "+CLCC", ID: cmdCLCC, Args: at.ArgNone, Format: at.FmtStr},
	{Name: "+COPS", ID: cmdCOPS, Args: at.ArgSetRead, Format: at.FmtStr},
	{Name: "+CMEE", ID: cmdCMEE, Args: at.ArgSet, Format: at.FmtInt, Min: 0, Max: 1},
	{Name: "+BIA", ID: cmdBIA, Args: at.ArgSet, Format: at.FmtStr},
	{Name: "+CBC", ID: cmdCBC, Args: at.ArgSet, Format: at.FmtInt, Min: 0, Max: 100},
	{Name: "+BCC", ID: cmdBCC, Args: at.ArgNone, Format: at.FmtStr},
	{Name: "+BCS", ID: cmdBCS, Args: at.ArgSet, Format: at.FmtInt, Min: 0, Max: at.MaxInt},
	{Name: "+BIND", ID: cmdBIND, Args: at.ArgSetReadTest, Format: at.FmtStr},
	{Name: "+BIEV", ID: cmdBIEV, Args: at.ArgSet, Format: at.FmtStr},
	{Name: "+BAC", ID: cmdBAC, Args: at.ArgSet, Format: at.FmtStr},
}

// Fixed responses.
const (
	cindInfo   = `("call",(0,1)),("callsetup",(0-3)),("service",(0-1)),("signal",(0-5)),("roam",(0,1)),("battchg",(0-5)),("callheld",(0-2))`
	chldVal    = "(0,1,2,3)"
	chldValECC = "(0,1,1x,2,2x,3)"
)

// brsfMask selects the local features reported with +BRSF.
const (
	brsfMask   ag.Feature = 0x1FFF
	brsfMask16 ag.Feature = 0x03FF // up to HFP 1.6
)

// hfIndicators are the HF indicators this side supports.
var hfIndicators = []hfInd{
	{id: hfIndSafety, enabled: true, min: 0, max: 1},
	{id: hfIndBattery, enabled: true, min: 0, max: 100},
}

func (g *Gateway) sendOK(s *scb) {
	g.send(s, "OK")
}

func (g *Gateway) sendError(s *scb, code ag.CMEError) {
	if s.hfp() && s.cmee {
		g.send(s, "+CME ERROR: "+strconv.Itoa(int(code)))
		return
	}
	g.send(s, "ERROR")
}

func (g *Gateway) val(s *scb, e ag.EventID, arg string, num int) ag.ValEvent {
	return ag.ValEvent{Header: s.header(ag.StatusSuccess), Event: e, Addr: s.addr, Str: arg, Num: num}
}

func (g *Gateway) atError(s *scb, unknown bool, buf string) {
	switch {
	case unknown && buf == "":
		g.sendOK(s)
	case unknown && s.features&ag.FeatUNAT != 0:
		g.emit(g.val(s, ag.EvtUNAT, buf, 0))
	default:
		g.sendError(s, ag.CMENotSupported)
	}
}

func (g *Gateway) hspCommand(s *scb, id int, t at.ArgType, arg string, num int) {
	logger.Debug("HSP command", "handle", s.handle(), "id", id, "arg", arg)
	var e ag.EventID
	switch id {
	case cmdCKPD:
		e = ag.EvtCKPD
	case cmdVGS:
		e = ag.EvtSpk
	case cmdVGM:
		e = ag.EvtMic
	default:
		g.sendError(s, ag.CMENotSupported)
		return
	}
	g.sendOK(s)
	g.emit(g.val(s, e, arg, num))
}

func (s *scb) both3Way() bool {
	return s.features&ag.Feat3Way != 0 && s.peerFeatures&ag.PeerFeat3Way != 0
}

func (s *scb) bothHFInd() bool {
	return s.features&ag.FeatHFInd != 0 && s.peerFeatures&ag.PeerFeatHFInd != 0
}

func (s *scb) bothECC() bool {
	return s.features&ag.FeatECC != 0 && s.peerFeatures&ag.PeerFeatECC != 0
}

func (g *Gateway) hfpCommand(s *scb, id int, t at.ArgType, arg string, num int) {
	logger.Debug("HFP command", "handle", s.handle(), "id", id, "type", t, "arg", arg)
	v := g.val(s, 0, arg, num)

	switch id {
	case cmdA:
		g.sendOK(s)
		v.Event = ag.EvtA
	case cmdCHUP:
		g.sendOK(s)
		v.Event = ag.EvtCHUP
	case cmdVGS:
		g.sendOK(s)
		v.Event = ag.EvtSpk
	case cmdVGM:
		g.sendOK(s)
		v.Event = ag.EvtMic
	case cmdCBC:
		g.sendOK(s)
		v.Event = ag.EvtCBC

	case cmdD:
		// The application answers OK or ERROR.
		if !g.checkDial(s, arg) {
			return
		}
		v.Event = ag.EvtD
		v.Str = strings.TrimSuffix(arg, ";")
	case cmdBLDN:
		v.Event = ag.EvtBLDN
	case cmdCNUM:
		v.Event = ag.EvtCNUM
	case cmdCLCC:
		v.Event = ag.EvtCLCC

	case cmdCCWA:
		s.ccwa = num == 1
		g.sendOK(s)
		return
	case cmdCLIP:
		s.clip = num == 1
		g.sendOK(s)
		return
	case cmdCMEE:
		if s.features&ag.FeatExtErr == 0 {
			g.sendError(s, ag.CMENotSupported)
			return
		}
		s.cmee = num == 1
		g.sendOK(s)
		return

	case cmdCHLD:
		if t == at.ArgTest {
			chld := chldVal
			if s.peerVersion >= ag.HFPVersion15 && s.bothECC() {
				chld = chldValECC
			}
			g.send(s, "+CHLD: "+chld)
			g.sendOK(s)
			if s.both3Way() && !s.bothHFInd() {
				g.svcConnOpen(s)
			}
			return
		}
		idx, ok := parseCHLD(arg)
		if !ok || (idx != 0 && !s.bothECC()) {
			g.sendError(s, ag.CMEInvalidIndex)
			return
		}
		v.Event = ag.EvtCHLD
		v.Idx = idx

	case cmdCIND:
		if t == at.ArgTest {
			g.send(s, "+CIND: "+cindInfo)
			g.sendOK(s)
			return
		}
		v.Event = ag.EvtCIND

	case cmdCMER:
		enabled, ok := parseCMER(arg, s.cmer)
		if !ok {
			g.sendError(s, ag.CMEInvalidCharsInStr)
			return
		}
		s.cmer = enabled
		g.sendOK(s)
		if !s.both3Way() && !s.bothHFInd() {
			g.svcConnOpen(s)
		}
		return

	case cmdVTS:
		if len(arg) != 1 {
			g.sendError(s, ag.CMEInvalidCharsInStr)
			return
		}
		g.sendOK(s)
		v.Event = ag.EvtVTS

	case cmdBINP:
		if s.features&ag.FeatVTag == 0 {
			g.sendError(s, ag.CMENotSupported)
			return
		}
		v.Event = ag.EvtBINP

	case cmdBVRA:
		if s.features&ag.FeatVRec == 0 {
			g.sendError(s, ag.CMENotSupported)
			return
		}
		v.Event = ag.EvtBVRA

	case cmdBRSF:
		s.peerFeatures = ag.PeerFeature(num)
		f := s.features & brsfMask
		if s.peerVersion != ag.VersionUnknown && s.peerVersion < ag.HFPVersion17 {
			f &= brsfMask16
		}
		if s.peerFeatures&ag.PeerFeatCodec == 0 {
			f &^= ag.FeatCodec
		}
		if s.peerFeatures&ag.PeerFeatESCOS4 == 0 {
			f &^= ag.FeatESCOS4
		}
		if !g.swb {
			f &^= ag.FeatSWB
		}
		s.maskedFeatures = f
		g.send(s, "+BRSF: "+strconv.Itoa(int(f)))
		g.sendOK(s)
		return

	case cmdNREC:
		if s.features&ag.FeatECNR == 0 {
			g.sendError(s, ag.CMENotSupported)
			return
		}
		s.nrec = false
		g.sendOK(s)
		v.Event = ag.EvtNREC

	case cmdBTRH:
		if s.features&ag.FeatBTRH == 0 {
			g.sendError(s, ag.CMENotSupported)
			return
		}
		if t == at.ArgSet {
			for i := range g.scbs {
				if o := &g.scbs[i]; o.inUse && o.at != nil {
					g.send(o, "+BTRH: "+strconv.Itoa(num))
				}
			}
			g.sendOK(s)
		} else {
			v.Num = -1
		}
		v.Event = ag.EvtBTRH

	case cmdCOPS:
		if t == at.ArgSet {
			g.sendOK(s)
			return
		}
		v.Event = ag.EvtCOPS

	case cmdBIA:
		mask, ok := parseBIA(arg, s.biaMask)
		if !ok {
			g.sendError(s, ag.CMEInvalidIndex)
			return
		}
		s.biaMask = mask
		g.sendOK(s)
		v.Event = ag.EvtBIA
		v.Num = int(mask)

	case cmdBCC:
		if !s.canNegotiate() {
			g.sendError(s, ag.CMENotSupported)
			return
		}
		g.sendOK(s)
		g.scoOpen(s, nil)
		return

	case cmdBCS:
		if s.features&ag.FeatCodec == 0 {
			g.sendError(s, ag.CMENotSupported)
			return
		}
		sent := s.sentCodec()
		g.sendOK(s)
		g.codecSelected(s, ag.CodecFromID(num))
		v.Event = ag.EvtBCS
		v.Num = sent.ID()

	case cmdBAC:
		g.sendOK(s)
		s.receivedBAC = true
		if !s.canNegotiate() {
			logger.Warn("AT+BAC without codec negotiation", "handle", s.handle())
			s.peerCodecs = ag.CodecCVSD
			return
		}
		s.peerCodecs = parseBAC(arg)
		s.codecUpdated = true
		s.scoCodec = bestCodec(ag.EffectiveCodecs(s.peerCodecs&g.localCodecs(s), s.disabledCodecs))
		v.Event = ag.EvtBAC
		v.Num = int(s.peerCodecs)
		if g.sco.Negotiating(s.audio) {
			g.negotiate(s)
		}

	case cmdBIND:
		switch t {
		case at.ArgSet:
			l, ok := parseBIND(arg)
			if !ok {
				g.sendError(s, ag.CMEInvalidIndex)
				return
			}
			s.peerHFInd = l
			g.sendOK(s)
			v.Event = ag.EvtBIND
		case at.ArgTest:
			ids := make([]string, len(s.localHFInd))
			for i, ind := range s.localHFInd {
				ids[i] = strconv.Itoa(ind.id)
			}
			g.send(s, "+BIND: ("+strings.Join(ids, ",")+")")
			g.sendOK(s)
			return
		default:
			for _, ind := range s.localHFInd {
				if s.peerHasHFInd(ind.id) {
					g.send(s, "+BIND: "+strconv.Itoa(ind.id)+","+boolArg(ind.enabled))
				}
			}
			g.sendOK(s)
			if s.bothHFInd() {
				g.svcConnOpen(s)
			}
			return
		}

	case cmdBIEV:
		id, value, ok := g.checkBIEV(s, arg)
		if !ok {
			g.sendError(s, ag.CMEInvalidCharsInStr)
			return
		}
		g.sendOK(s)
		v.Event = ag.EvtBIEV
		v.Idx = id
		v.Num = value

	default:
		g.sendError(s, ag.CMENotSupported)
		return
	}
	g.emit(v)
}

func boolArg(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// checkDial validates the argument of ATD and answers ERROR when it is
// not usable.
func (g *Gateway) checkDial(s *scb, arg string) bool {
	d := strings.TrimSuffix(arg, ";")
	switch {
	case strings.HasPrefix(d, ">"):
		if !isDigits(strings.Replace(d[1:], " ", "", -1)) {
			g.sendError(s, ag.CMEInvalidCharsInDial)
			return false
		}
	case strings.HasPrefix(d, "V"):
		if s.features&ag.FeatVoIP == 0 || s.peerFeatures&ag.PeerFeatVoIP == 0 {
			g.sendError(s, ag.CMENotSupported)
			return false
		}
	default:
		if d == "" || strings.Trim(d, "0123456789*#+ABCabc,pPwW") != "" {
			g.sendError(s, ag.CMEInvalidCharsInDial)
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// parseCHLD accepts 0 to 4, and 1x or 2x with a call index.
func parseCHLD(s string) (int, bool) {
	if s == "" || s[0] < '0' || s[0] > '4' {
		return 0, false
	}
	if len(s) == 1 {
		return 0, true
	}
	if s[0] != '1' && s[0] != '2' {
		return 0, false
	}
	idx, err := strconv.Atoi(s[1:])
	if err != nil || idx < 1 || idx > 9 {
		return 0, false
	}
	return idx, true
}

// parseCMER reads <mode>,<keyp>,<disp>,<ind>. Only mode 3 changes the
// reporting state.
func parseCMER(s string, cur bool) (bool, bool) {
	n := []int{-1, -1, -1, -1}
	for i, f := range strings.SplitN(s, ",", 4) {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.Atoi(f)
		if err != nil {
			return cur, false
		}
		n[i] = v
	}
	if n[0] < 0 || n[3] < 0 {
		return cur, false
	}
	if n[0] == 3 && (n[3] == 0 || n[3] == 1) {
		return n[3] == 1, true
	}
	return cur, true
}

// parseBIA applies an indicator activation list to the mask of indicators
// turned off. Empty positions keep their state. The call, callsetup and
// callheld indicators can not be turned off.
func parseBIA(s string, mask uint32) (uint32, bool) {
	for i, f := range strings.Split(s, ",") {
		id := uint(i + 1)
		if id > 20 {
			return mask, false
		}
		switch strings.TrimSpace(f) {
		case "":
		case "0":
			mask |= 1 << id
		case "1":
			mask &^= 1 << id
		default:
			return mask, false
		}
	}
	mask &^= 1<<ag.IndCall | 1<<ag.IndCallSetup | 1<<ag.IndCallHeld
	return mask, true
}

// parseBAC returns the codecs listed by AT+BAC. Unknown ids are ignored
// and CVSD is always present.
func parseBAC(s string) ag.Codec {
	c := ag.CodecCVSD
	for _, f := range strings.Split(s, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			continue
		}
		c |= ag.CodecFromID(id)
	}
	return c
}

func parseBIND(s string) ([]hfInd, bool) {
	var l []hfInd
	for _, f := range strings.Split(s, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || id < 0 || id > 0xFFFF {
			return nil, false
		}
		if len(l) == ag.MaxPeerHFInd {
			break
		}
		l = append(l, hfInd{id: id, enabled: true})
	}
	return l, true
}

func (s *scb) peerHasHFInd(id int) bool {
	for _, ind := range s.peerHFInd {
		if ind.id == id {
			return true
		}
	}
	return false
}

func (s *scb) findLocalHFInd(id int) *hfInd {
	for i := range s.localHFInd {
		if s.localHFInd[i].id == id {
			return &s.localHFInd[i]
		}
	}
	return nil
}

// checkBIEV validates an HF indicator update: the indicator must be known
// to both sides, enabled, and in range.
func (g *Gateway) checkBIEV(s *scb, arg string) (int, int, bool) {
	f := strings.SplitN(arg, ",", 2)
	if len(f) != 2 {
		return 0, 0, false
	}
	id, err := strconv.Atoi(strings.TrimSpace(f[0]))
	if err != nil {
		return 0, 0, false
	}
	value, err := strconv.Atoi(strings.TrimSpace(f[1]))
	if err != nil {
		return 0, 0, false
	}
	ind := s.findLocalHFInd(id)
	if ind == nil || !ind.enabled || !s.peerHasHFInd(id) || value < ind.min || value > ind.max {
		logger.Warn("bad HF indicator", "handle", s.handle(), "id", id, "value", value)
		return 0, 0, false
	}
	return id, value, true
}
