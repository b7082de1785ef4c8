// Package rfcomm orchestrates the RFCOMM server and client ports of the
// audio gateway control blocks.
package rfcomm

import (
	"github.com/pkg/errors"

	"github.com/currantlabs/ag"
)

// MTU is the frame size requested for every port.
const MTU = ag.RFCOMMMTU

// Code is the result reported by a port management event.
type Code uint8

// Port management codes.
const (
	Success Code = iota // port connected
	Closed              // peer or local side closed the port
	Failed              // connection attempt failed
)

func (c Code) String() string {
	switch c {
	case Success:
		return "success"
	case Closed:
		return "closed"
	}
	return "failed"
}

// ErrUnknownHandle is returned for handles the transport does not know.
var ErrUnknownHandle = errors.New("unknown port handle")

// A Sink receives port events. Transports call it from their own
// goroutines; the gateway marshals every call onto its executor.
type Sink interface {
	PortEvent(handle uint16, code Code)
	PortData(handle uint16, b []byte)
}

// Transport is the RFCOMM port layer.
//
// A server port handle accepts one connection at a time. Once connected the
// same handle carries the connection; when the connection goes away the
// handle listens again until RemoveServer.
type Transport interface {
	SetSink(s Sink)

	CreateServer(scn uint8, mtu uint16) (uint16, error)
	RemoveServer(handle uint16) error

	// Connect starts an outgoing connection. The result is reported with a
	// PortEvent on the returned handle.
	Connect(addr ag.Addr, scn uint8, mtu uint16) (uint16, error)

	// Disconnect closes the connection on handle. A Closed event follows.
	Disconnect(handle uint16) error

	Write(handle uint16, b []byte) (int, error)
	PeerAddr(handle uint16) (ag.Addr, error)
}
