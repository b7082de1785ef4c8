package sco

import (
	"github.com/currantlabs/ag"
)

// Endpoint is the audio side of one control block.
type Endpoint struct {
	Addr ag.Addr
	Idx  uint16

	// Codec is the codec of the next or current connection.
	Codec    ag.Codec
	Settings ag.CodecSettings

	// Fallback forces CVSD for the rest of the audio session.
	Fallback bool

	// Retry is set when a failed open degraded the parameters and the
	// connection should be attempted again.
	Retry bool

	ESCO bool
}

// NewEndpoint returns an endpoint for addr with default settings.
func NewEndpoint(addr ag.Addr) *Endpoint {
	e := &Endpoint{Addr: addr, Idx: InvalidIdx}
	e.Reset()
	return e
}

// Reset restores the endpoint to its state after a service connection
// goes away. The address and link index are preserved.
func (e *Endpoint) Reset() {
	e.Codec = ag.CodecCVSD
	e.Settings = ag.DefaultCodecSettings
	e.Fallback = false
	e.Retry = false
	e.ESCO = true
}

// ResetSettings restores the preferred tiers after an audio session.
func (e *Endpoint) ResetSettings() {
	e.Settings = ag.DefaultCodecSettings
	e.Fallback = false
	e.Retry = false
}

// Params returns the connection parameters for the current codec.
func (e *Endpoint) Params(offload bool) Params {
	c := e.Codec
	if e.Fallback {
		c = ag.CodecCVSD
	}
	p := ParamsFor(c, e.Settings.Get(c), e.ESCO)
	p.Offload = offload
	return p
}

// HasLink reports whether the endpoint owns a link index.
func (e *Endpoint) HasLink() bool { return e.Idx != InvalidIdx }
