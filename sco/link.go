// Package sco drives the single audio link shared by all gateway control
// blocks.
package sco

import (
	"github.com/pkg/errors"

	"github.com/currantlabs/ag"
)

// InvalidIdx marks an endpoint without a synchronous link.
const InvalidIdx uint16 = 0xFFFF

// ErrNotConnected is returned by Remove for links that never connected.
var ErrNotConnected = errors.New("sco link not connected")

// A Sink receives link events. Links call it from their own goroutines;
// the gateway marshals every call onto its executor.
type Sink interface {
	LinkOpen(idx uint16)
	LinkClose(idx uint16)
}

// Link is the synchronous connection layer.
type Link interface {
	SetSink(s Sink)

	// Listen waits for an incoming connection from addr.
	Listen(addr ag.Addr, p Params) (uint16, error)

	// Connect starts an outgoing connection to addr. The result is
	// reported with LinkOpen or LinkClose on the returned index.
	Connect(addr ag.Addr, p Params) (uint16, error)

	// Remove tears down idx. It reports true when the link was connected
	// and a LinkClose will follow.
	Remove(idx uint16) (pending bool, err error)
}

var errNotActive = errors.New("device is not the active device")
