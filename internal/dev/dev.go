// Package dev selects the transports a gateway runs on.
package dev

import (
	"io"

	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/agtest"
	"github.com/currantlabs/ag/gateway"
)

// Stack is a set of transports ready to be handed to gateway.New.
type Stack struct {
	Options []gateway.Option

	// Loop is set for the loopback stack; the caller plays the peer.
	Loop *Loop

	closers []io.Closer
}

// Loop holds the in-memory transports of the loopback stack.
type Loop struct {
	RFCOMM *agtest.RFCOMM
	SDP    *agtest.SDP
	SCO    *agtest.SCO
}

// NewStack returns the stack named impl: "loop" for in-memory transports,
// anything else for the platform default.
func NewStack(impl string) (*Stack, error) {
	if impl == "loop" {
		return LoopStack(), nil
	}
	return DefaultStack()
}

// LoopStack returns a stack on in-memory transports. Outgoing connections
// and audio links complete on their own.
func LoopStack() *Stack {
	l := &Loop{RFCOMM: agtest.NewRFCOMM(), SDP: agtest.NewSDP(), SCO: agtest.NewSCO()}
	l.RFCOMM.AutoComplete = true
	l.SCO.AutoComplete = true
	return &Stack{
		Options: []gateway.Option{
			gateway.OptRFCOMM(l.RFCOMM),
			gateway.OptSDP(l.SDP),
			gateway.OptRecords(l.SDP),
			gateway.OptSCOLink(l.SCO),
		},
		Loop: l,
	}
}

// AddPeer makes addr discoverable as a hands-free unit with features.
func (l *Loop) AddPeer(addr ag.Addr, scn uint8, features uint16) {
	l.SDP.SetRecords(addr, agtest.HFRecord(scn, ag.HFPVersion18, features))
}

// Close releases the transports.
func (s *Stack) Close() error {
	var err error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if e := s.closers[i].Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
