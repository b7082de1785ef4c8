package ctl

import (
	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/gateway"
)

// Message is the external form of an event.
type Message struct {
	Event        string `json:"event"`
	Handle       uint16 `json:"handle,omitempty"`
	AppID        uint8  `json:"app_id,omitempty"`
	Status       string `json:"status,omitempty"`
	Addr         string `json:"addr,omitempty"`
	Service      string `json:"service,omitempty"`
	PeerFeatures uint32 `json:"peer_features,omitempty"`
	Codecs       string `json:"codecs,omitempty"`
	Str          string `json:"str,omitempty"`
	Num          int    `json:"num,omitempty"`
	Idx          int    `json:"idx,omitempty"`
	LIdx         int    `json:"lidx,omitempty"`
}

// FromEvent converts e.
func FromEvent(e ag.Event) Message {
	h := e.Hdr()
	m := Message{Event: e.ID().String(), Handle: h.Handle, AppID: h.AppID}
	if !h.Status.Ok() {
		m.Status = h.Status.Error()
	}
	switch e := e.(type) {
	case ag.OpenEvent:
		m.Addr, m.Service = e.Addr.String(), e.Service.String()
	case ag.CloseEvent:
		m.Addr = e.Addr.String()
	case ag.ConnEvent:
		m.Addr = e.Addr.String()
		m.PeerFeatures = uint32(e.PeerFeatures)
		m.Codecs = e.PeerCodecs.String()
	case ag.AudioEvent:
		m.Addr, m.Codecs = e.Addr.String(), e.Codec.String()
	case ag.CodecEvent:
		m.Addr, m.Codecs = e.Addr.String(), e.Codec.String()
	case ag.ValEvent:
		m.Addr, m.Str, m.Num, m.Idx, m.LIdx = e.Addr.String(), e.Str, e.Num, e.Idx, e.LIdx
	}
	return m
}

// Block is the external form of a control block snapshot.
type Block struct {
	Handle  uint16 `json:"handle"`
	State   string `json:"state"`
	Addr    string `json:"addr,omitempty"`
	Service string `json:"service,omitempty"`
	Role    string `json:"role,omitempty"`
	SLC     bool   `json:"slc"`
	Audio   bool   `json:"audio"`
}

// FromView converts v.
func FromView(v gateway.View) Block {
	b := Block{Handle: v.Handle, State: v.State, SLC: v.SLC, Audio: v.Audio}
	if !v.Addr.IsZero() {
		b.Addr, b.Service, b.Role = v.Addr.String(), v.Service.String(), v.Role.String()
	}
	return b
}
