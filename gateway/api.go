package gateway

import (
	"github.com/pkg/errors"

	"github.com/currantlabs/ag"
)

// Enable starts the gateway. h receives every event from now on, starting
// with EvtEnable.
func (g *Gateway) Enable(h ag.Handler) error {
	if h == nil {
		return errors.New("nil handler")
	}
	return g.post(func() {
		g.handler = h
		g.enabled = true
		g.disabling = false
		logger.Info("gateway enabled")
		g.emit(ag.EnableEvent{})
	})
}

// Disable deregisters every service. EvtDisable follows once all control
// blocks are released.
func (g *Gateway) Disable() error {
	return g.post(func() {
		if !g.enabled {
			logger.Warn("disable while not enabled")
			return
		}
		g.disabling = true
		for i := range g.scbs {
			if s := &g.scbs[i]; s.inUse {
				g.execute(s, evtDeregister, nil)
			}
		}
		if g.disabling && g.inUse() == 0 {
			g.disabling = false
			g.enabled = false
			logger.Info("gateway disabled")
			g.emit(ag.DisableEvent{})
		}
	})
}

// Register allocates a control block for services. The handle is reported
// with EvtRegister.
func (g *Gateway) Register(services ag.ServiceMask, features ag.Feature, names [ag.NumIdx]string, appID uint8) error {
	if services&(ag.HSPServiceMask|ag.HFPServiceMask) == 0 {
		return errors.Errorf("no services in mask 0x%02X", uint8(services))
	}
	return g.post(func() {
		if !g.enabled || g.disabling {
			logger.Warn("register while not enabled")
			g.emit(ag.RegisterEvent{Header: ag.Header{AppID: appID, Status: ag.StatusFailResources}})
			return
		}
		s := g.alloc()
		if s == nil {
			g.emit(ag.RegisterEvent{Header: ag.Header{AppID: appID, Status: ag.StatusFailResources}})
			return
		}
		g.execute(s, evtRegister, registerArgs{services: services, features: features, names: names, appID: appID})
	})
}

// Deregister releases the control block h, closing its connection first.
func (g *Gateway) Deregister(h uint16) error {
	return g.onHandle(h, evtDeregister, nil)
}

// Open connects h to the peer at addr. The outcome is reported with
// EvtOpen. A peer another block is connecting or connected to is refused.
func (g *Gateway) Open(h uint16, addr ag.Addr) error {
	return g.post(func() {
		s := g.byHandle(h)
		if s == nil {
			logger.Warn("open on unknown handle", "handle", h)
			return
		}
		if o := g.busy(s, addr); o != nil {
			logger.Warn("peer busy", "handle", h, "addr", addr, "other", o.handle())
			g.emit(ag.OpenEvent{Header: s.header(ag.StatusFailResources), Addr: addr})
			return
		}
		g.execute(s, evtAPIOpen, openArgs{addr: addr})
	})
}

// Close closes the connection of h.
func (g *Gateway) Close(h uint16) error {
	return g.onHandle(h, evtAPIClose, nil)
}

// AudioOpen opens the audio connection of h. Codecs in disabled are not
// negotiated; CVSD always stays available.
func (g *Gateway) AudioOpen(h uint16, disabled ag.Codec) error {
	return g.onHandle(h, evtAudioOpen, audioOpenArgs{disabled: disabled})
}

// AudioClose closes the audio connection of h.
func (g *Gateway) AudioClose(h uint16) error {
	return g.onHandle(h, evtAudioClose, nil)
}

// Result sends a response or unsolicited result to the peer of h. With
// ag.HandleAll it goes to every block with a service level connection.
func (g *Gateway) Result(h uint16, code ag.ResultCode, data ag.ResultData) error {
	args := resultArgs{code: code, data: data}
	if h != ag.HandleAll {
		return g.onHandle(h, evtResult, args)
	}
	return g.post(func() {
		for i := range g.scbs {
			if s := &g.scbs[i]; s.inUse && s.svcConn {
				g.execute(s, evtResult, args)
			}
		}
	})
}

// SetCodec selects the codec of the next audio connection of h. The
// outcome is reported with EvtCodec.
func (g *Gateway) SetCodec(h uint16, c ag.Codec) error {
	return g.onHandle(h, evtSetCodec, codecArgs{codec: c})
}

// SetScoOffloadEnabled routes new audio links over the controller data
// path.
func (g *Gateway) SetScoOffloadEnabled(enable bool) error {
	return g.post(func() { g.sco.SetOffload(enable) })
}

// SetScoAllowed allows or refuses audio opens.
func (g *Gateway) SetScoAllowed(allowed bool) error {
	return g.post(func() { g.sco.SetAllowed(allowed) })
}

// SetActiveDevice restricts outgoing audio to addr. The zero address
// lifts the restriction.
func (g *Gateway) SetActiveDevice(addr ag.Addr) error {
	return g.post(func() {
		logger.Info("active device", "addr", addr)
		g.sco.SetActive(addr)
	})
}

// Collision tells the gateway that an incoming connection from addr
// collided with an outgoing one. A block still opening to addr backs off
// and retries once.
func (g *Gateway) Collision(addr ag.Addr) error {
	return g.post(func() { g.collision(addr) })
}

// State returns a snapshot of the control block h.
func (g *Gateway) State(h uint16) (View, bool) {
	if h == ag.HandleNone || int(h) > len(g.views) {
		return View{}, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	v := g.views[h-1]
	return v, v.InUse
}

// Lookup returns the control block in use with peer addr.
func (g *Gateway) Lookup(addr ag.Addr) (View, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, v := range g.views {
		if v.InUse && v.Addr == addr {
			return v, true
		}
	}
	return View{}, false
}

// Views returns snapshots of every control block in use.
func (g *Gateway) Views() []View {
	g.mu.Lock()
	defer g.mu.Unlock()
	var vs []View
	for _, v := range g.views {
		if v.InUse {
			vs = append(vs, v)
		}
	}
	return vs
}

func (g *Gateway) post(f func()) error {
	if !g.exec.post(f) {
		return ErrClosed
	}
	return nil
}

func (g *Gateway) onHandle(h uint16, e event, p payload) error {
	return g.post(func() {
		s := g.byHandle(h)
		if s == nil {
			logger.Warn("unknown handle", "handle", h, "event", e)
			return
		}
		g.execute(s, e, p)
	})
}
