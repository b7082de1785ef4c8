// Package ctl maps textual requests onto gateway calls and gateway events
// onto messages, for the command line tools.
package ctl

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/gateway"
)

// Command is a gateway request.
type Command struct {
	Op       string   `json:"op"`
	Handle   uint16   `json:"handle,omitempty"`
	Addr     string   `json:"addr,omitempty"`
	Services []string `json:"services,omitempty"`
	Features uint32   `json:"features,omitempty"`
	Names    []string `json:"names,omitempty"`
	AppID    uint8    `json:"app_id,omitempty"`
	Code     string   `json:"code,omitempty"`
	Str      string   `json:"str,omitempty"`
	Num      int      `json:"num,omitempty"`
	Ind      int      `json:"ind,omitempty"`
	OK       string   `json:"ok,omitempty"`
	ErrCode  int      `json:"err_code,omitempty"`
	State    bool     `json:"state,omitempty"`
	Audio    uint16   `json:"audio,omitempty"`
	Codecs   []string `json:"codecs,omitempty"`
	Enable   bool     `json:"enable,omitempty"`
}

// ErrUnknownOp is returned for commands Exec does not know.
var ErrUnknownOp = errors.New("unknown op")

// Exec runs c on g. Events started by enable go to h.
func Exec(g *gateway.Gateway, h ag.Handler, c Command) error {
	switch c.Op {
	case "enable":
		return g.Enable(h)
	case "disable":
		return g.Disable()
	case "register":
		m, err := ParseServices(c.Services)
		if err != nil {
			return err
		}
		var names [ag.NumIdx]string
		copy(names[:], c.Names)
		return g.Register(m, ag.Feature(c.Features), names, c.AppID)
	case "deregister":
		return g.Deregister(c.Handle)
	case "open":
		a, err := ag.ParseAddr(c.Addr)
		if err != nil {
			return err
		}
		return g.Open(c.Handle, a)
	case "close":
		return g.Close(c.Handle)
	case "audio-open":
		disabled, err := ParseCodecs(c.Codecs)
		if err != nil {
			return err
		}
		return g.AudioOpen(c.Handle, disabled)
	case "audio-close":
		return g.AudioClose(c.Handle)
	case "result":
		code, err := ParseResult(c.Code)
		if err != nil {
			return err
		}
		ok, err := ParseOK(c.OK)
		if err != nil {
			return err
		}
		return g.Result(c.Handle, code, ag.ResultData{
			Str:     c.Str,
			Num:     c.Num,
			Ind:     ag.Indicator{ID: c.Ind, Value: c.Num},
			OKFlag:  ok,
			ErrCode: ag.CMEError(c.ErrCode),
			State:   c.State,
			Audio:   c.Audio,
		})
	case "codec":
		cs, err := ParseCodecs(c.Codecs)
		if err != nil {
			return err
		}
		return g.SetCodec(c.Handle, cs)
	case "offload":
		return g.SetScoOffloadEnabled(c.Enable)
	case "sco-allowed":
		return g.SetScoAllowed(c.Enable)
	case "active":
		var a ag.Addr
		if c.Addr != "" {
			var err error
			if a, err = ag.ParseAddr(c.Addr); err != nil {
				return err
			}
		}
		return g.SetActiveDevice(a)
	}
	return errors.Wrap(ErrUnknownOp, c.Op)
}

// ParseServices parses service names, "hsp" and "hfp".
func ParseServices(names []string) (ag.ServiceMask, error) {
	var m ag.ServiceMask
	for _, n := range names {
		switch strings.ToLower(n) {
		case "hsp":
			m |= ag.HSPServiceMask
		case "hfp":
			m |= ag.HFPServiceMask
		default:
			return 0, errors.Errorf("unknown service %q", n)
		}
	}
	return m, nil
}

// ParseCodecs parses codec names such as "cvsd" and "msbc" into a set.
func ParseCodecs(names []string) (ag.Codec, error) {
	var c ag.Codec
	for _, n := range names {
		switch strings.ToLower(n) {
		case "cvsd":
			c |= ag.CodecCVSD
		case "msbc":
			c |= ag.CodecMSBC
		case "lc3":
			c |= ag.CodecLC3
		case "aptx", "aptx-swb":
			c |= ag.CodecAptXSWB
		default:
			return 0, errors.Errorf("unknown codec %q", n)
		}
	}
	return c, nil
}

// ParseResult parses a result code by name, as printed by ResultCode.String.
func ParseResult(name string) (ag.ResultCode, error) {
	n := strings.ToUpper(strings.Replace(name, "-", "_", -1))
	for r := ag.ResultSPK; r <= ag.ResultIndOnDemand; r++ {
		if r.Valid() && r.String() == n {
			return r, nil
		}
	}
	return 0, errors.Errorf("unknown result %q", name)
}

// ParseOK parses "", "continue", "done" and "error".
func ParseOK(s string) (ag.OKFlag, error) {
	switch strings.ToLower(s) {
	case "", "continue":
		return ag.OKContinue, nil
	case "done", "ok":
		return ag.OKDone, nil
	case "error":
		return ag.OKError, nil
	}
	return 0, errors.Errorf("unknown ok flag %q", s)
}
