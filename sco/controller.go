package sco

import (
	"github.com/mgutz/logxi/v1"

	"github.com/currantlabs/ag"
)

var logger = log.New("sco")

// Hooks connect the controller to the control block layer.
type Hooks interface {
	// Negotiate starts codec negotiation with the peer of e and reports
	// whether it did. A false return creates the connection at once;
	// otherwise the caller follows up with EvtCodecDone or EvtClose.
	Negotiate(e *Endpoint) bool

	// Aborted is called when an open ends before a link was created.
	Aborted(e *Endpoint)
}

// Controller owns the audio link. At most one endpoint holds it at a time.
type Controller struct {
	link  Link
	hooks Hooks

	state     State
	cur       *Endpoint
	xfer      *Endpoint
	listeners map[*Endpoint]bool

	offload bool
	allowed bool
	active  ag.Addr
}

// NewController returns a controller in the shutdown state.
func NewController(l Link, h Hooks) *Controller {
	return &Controller{
		link:      l,
		hooks:     h,
		listeners: make(map[*Endpoint]bool),
		allowed:   true,
	}
}

// State returns the link state.
func (c *Controller) State() State { return c.state }

// Current returns the endpoint holding the link, or nil.
func (c *Controller) Current() *Endpoint { return c.cur }

// IsOpen reports whether e has an open link.
func (c *Controller) IsOpen(e *Endpoint) bool {
	return c.state == StateOpen && c.cur == e
}

// IsOpening reports whether an open for e is in progress.
func (c *Controller) IsOpening(e *Endpoint) bool {
	if c.cur != e {
		return false
	}
	switch c.state {
	case StateCodec, StateOpening, StateOpenCl, StateCloseOp:
		return true
	}
	return false
}

// Negotiating reports whether codec negotiation for e is in progress.
func (c *Controller) Negotiating(e *Endpoint) bool {
	return c.state == StateCodec && c.cur == e
}

// SetOffload routes audio over the controller data path for new links.
func (c *Controller) SetOffload(enable bool) { c.offload = enable }

// Offload reports the offload setting.
func (c *Controller) Offload() bool { return c.offload }

// SetAllowed enables or disables audio opens.
func (c *Controller) SetAllowed(allowed bool) { c.allowed = allowed }

// Allowed reports whether audio may be opened.
func (c *Controller) Allowed() bool { return c.allowed }

// SetActive restricts outgoing links to addr. A zero address lifts the
// restriction.
func (c *Controller) SetActive(addr ag.Addr) { c.active = addr }

// Active returns the active device.
func (c *Controller) Active() ag.Addr { return c.active }

// Failed records a failed open of e, degrading its parameters. It reports
// whether another attempt should follow.
func (c *Controller) Failed(e *Endpoint) bool {
	if c.state != StateOpening || c.cur != e {
		return false
	}
	codec := e.Codec
	if e.Fallback {
		codec = ag.CodecCVSD
	}
	s, ok := ag.Degrade(codec, e.Settings.Get(codec))
	switch {
	case ok:
		e.Settings.Set(codec, s)
		logger.Info("degrading audio parameters", "addr", e.Addr, "codec", codec, "setting", s)
	case codec != ag.CodecCVSD:
		e.Fallback = true
		logger.Info("falling back to CVSD", "addr", e.Addr, "codec", codec)
	default:
		e.Retry = false
		return false
	}
	e.Retry = true
	return true
}

// Event drives the state machine for endpoint e.
func (c *Controller) Event(e *Endpoint, ev Event) {
	prev := c.state
	switch c.state {
	case StateShutdown:
		c.shutdownState(e, ev)
	case StateListen:
		c.listenState(e, ev)
	case StateCodec:
		c.codecState(e, ev)
	case StateOpening:
		c.openingState(e, ev)
	case StateOpenCl:
		c.openClState(e, ev)
	case StateOpenXfer:
		c.openXferState(e, ev)
	case StateOpen:
		c.openState(e, ev)
	case StateClosing:
		c.closingState(e, ev)
	case StateCloseOp:
		c.closeOpState(e, ev)
	case StateCloseXfer:
		c.closeXferState(e, ev)
	case StateShutting:
		c.shuttingState(e, ev)
	}
	if c.state != prev {
		logger.Debug("sco transition", "addr", e.Addr, "event", ev, "from", prev, "to", c.state)
	}
}

func (c *Controller) ignore(e *Endpoint, ev Event) {
	logger.Warn("sco event ignored", "addr", e.Addr, "event", ev, "state", c.state)
}

func (c *Controller) shutdownState(e *Endpoint, ev Event) {
	switch ev {
	case EvtListen:
		c.listen(e)
		c.state = StateListen
	default:
		c.ignore(e, ev)
	}
}

func (c *Controller) listenState(e *Endpoint, ev Event) {
	switch ev {
	case EvtListen:
		c.listen(e)
	case EvtOpen:
		c.open(e)
	case EvtShutdown:
		c.remove(e)
		if c.cur == e {
			c.cur = nil
		}
		if len(c.listeners) == 0 {
			c.state = StateShutdown
		}
	case EvtClose:
		c.remove(e)
		c.listen(e)
	case EvtConnClose:
		c.listen(e)
	case EvtConnOpen:
		delete(c.listeners, e)
		c.cur = e
		c.state = StateOpen
	default:
		c.ignore(e, ev)
	}
}

func (c *Controller) codecState(e *Endpoint, ev Event) {
	switch ev {
	case EvtListen:
		c.listen(e)
	case EvtCodecDone:
		if e == c.cur {
			c.connect(e)
		}
	case EvtXfer:
		old := c.cur
		c.cur = nil
		c.listen(old)
		c.hooks.Aborted(old)
		c.open(e)
	case EvtClose:
		if e != c.cur {
			c.ignore(e, ev)
			return
		}
		c.cur = nil
		c.listen(e)
		c.state = StateListen
		c.hooks.Aborted(e)
	case EvtShutdown:
		c.remove(e)
		if e == c.cur {
			c.cur = nil
			c.state = c.idleState()
		}
	case EvtConnClose:
		c.listen(e)
	default:
		c.ignore(e, ev)
	}
}

func (c *Controller) openingState(e *Endpoint, ev Event) {
	switch ev {
	case EvtListen:
		if e != c.cur {
			c.listen(e)
		}
	case EvtReopen:
		e.Retry = false
		c.open(e)
	case EvtXfer:
		c.xfer = e
		c.state = StateOpenXfer
	case EvtClose:
		c.state = StateOpenCl
	case EvtShutdown:
		if e == c.cur {
			c.state = StateShutting
			return
		}
		c.remove(e)
	case EvtConnOpen:
		c.state = StateOpen
	case EvtConnClose:
		c.cur = nil
		c.listen(e)
		c.state = StateListen
	default:
		c.ignore(e, ev)
	}
}

func (c *Controller) openClState(e *Endpoint, ev Event) {
	switch ev {
	case EvtListen:
		if e != c.cur {
			c.listen(e)
		}
	case EvtOpen:
		c.state = StateOpening
	case EvtXfer:
		c.xfer = e
		c.state = StateOpenXfer
	case EvtShutdown:
		if e == c.cur {
			c.state = StateShutting
			return
		}
		c.remove(e)
	case EvtConnOpen:
		c.remove(e)
		c.state = StateClosing
	case EvtConnClose:
		c.cur = nil
		c.listen(e)
		c.state = StateListen
	default:
		c.ignore(e, ev)
	}
}

func (c *Controller) openXferState(e *Endpoint, ev Event) {
	switch ev {
	case EvtListen:
		if e != c.cur {
			c.listen(e)
		}
	case EvtClose:
		c.xfer = nil
		c.state = StateOpenCl
	case EvtShutdown:
		if e == c.xfer {
			c.xfer = nil
			c.state = StateOpening
		}
		if e == c.cur {
			c.state = StateShutting
			return
		}
		c.remove(e)
	case EvtConnOpen:
		c.remove(e)
		c.state = StateCloseXfer
	case EvtConnClose:
		c.listen(e)
		next := c.xfer
		c.xfer = nil
		c.open(next)
	default:
		c.ignore(e, ev)
	}
}

func (c *Controller) openState(e *Endpoint, ev Event) {
	switch ev {
	case EvtListen:
		if e != c.cur {
			c.listen(e)
		}
	case EvtOpen:
		if e != c.cur {
			c.ignore(e, ev)
		}
	case EvtXfer:
		c.remove(c.cur)
		c.xfer = e
		c.state = StateCloseXfer
	case EvtClose:
		if e != c.cur {
			c.ignore(e, ev)
			return
		}
		c.remove(e)
		c.state = StateClosing
	case EvtShutdown:
		if e == c.cur {
			c.remove(e)
			c.state = StateShutting
			return
		}
		c.remove(e)
	case EvtConnClose:
		c.cur = nil
		c.listen(e)
		c.state = StateListen
	default:
		c.ignore(e, ev)
	}
}

func (c *Controller) closingState(e *Endpoint, ev Event) {
	switch ev {
	case EvtListen:
		if e != c.cur {
			c.listen(e)
		}
	case EvtOpen:
		if e == c.cur {
			c.state = StateCloseOp
			return
		}
		c.xfer = e
		c.state = StateCloseXfer
	case EvtXfer:
		c.xfer = e
		c.state = StateCloseXfer
	case EvtShutdown:
		if e == c.cur {
			c.state = StateShutting
			return
		}
		c.remove(e)
	case EvtConnClose:
		c.cur = nil
		c.listen(e)
		c.state = StateListen
	default:
		c.ignore(e, ev)
	}
}

func (c *Controller) closeOpState(e *Endpoint, ev Event) {
	switch ev {
	case EvtListen:
		if e != c.cur {
			c.listen(e)
		}
	case EvtClose:
		c.state = StateClosing
	case EvtShutdown:
		if e == c.cur {
			c.state = StateShutting
			return
		}
		c.remove(e)
	case EvtConnClose:
		c.open(e)
	default:
		c.ignore(e, ev)
	}
}

func (c *Controller) closeXferState(e *Endpoint, ev Event) {
	switch ev {
	case EvtListen:
		if e != c.cur {
			c.listen(e)
		}
	case EvtClose:
		c.xfer = nil
		c.state = StateClosing
	case EvtShutdown:
		if e == c.xfer {
			c.xfer = nil
			c.state = StateClosing
		}
		if e == c.cur {
			c.state = StateShutting
			return
		}
		c.remove(e)
	case EvtConnClose:
		c.listen(e)
		next := c.xfer
		c.xfer = nil
		if next == nil {
			c.cur = nil
			c.state = StateListen
			return
		}
		c.open(next)
	default:
		c.ignore(e, ev)
	}
}

func (c *Controller) shuttingState(e *Endpoint, ev Event) {
	switch ev {
	case EvtListen:
		if e != c.cur {
			c.listen(e)
		}
	case EvtConnOpen:
		c.remove(e)
	case EvtConnClose:
		if e == c.cur {
			c.cur = nil
		}
		c.xfer = nil
		c.state = c.idleState()
	case EvtShutdown:
		if e != c.cur {
			c.remove(e)
		}
	default:
		c.ignore(e, ev)
	}
}

func (c *Controller) idleState() State {
	if len(c.listeners) == 0 {
		return StateShutdown
	}
	return StateListen
}

func (c *Controller) listen(e *Endpoint) {
	if e == nil || e.HasLink() {
		return
	}
	idx, err := c.link.Listen(e.Addr, e.Params(c.offload))
	if err != nil {
		logger.Warn("sco listen failed", "addr", e.Addr, "err", err)
		return
	}
	e.Idx = idx
	c.listeners[e] = true
}

// remove tears down the link of e. A connected link keeps its index until
// the close event arrives.
func (c *Controller) remove(e *Endpoint) {
	delete(c.listeners, e)
	if e == nil || !e.HasLink() {
		return
	}
	pending, err := c.link.Remove(e.Idx)
	if err != nil {
		logger.Warn("sco remove failed", "addr", e.Addr, "idx", e.Idx, "err", err)
	}
	if pending {
		c.cur = e
		return
	}
	e.Idx = InvalidIdx
}

// open starts codec negotiation and then the outgoing link for e.
func (c *Controller) open(e *Endpoint) {
	if c.listeners[e] {
		c.remove(e)
	}
	c.cur = e
	c.state = StateCodec
	if !c.hooks.Negotiate(e) {
		c.connect(e)
	}
}

func (c *Controller) connect(e *Endpoint) {
	err := c.dial(e)
	if err == nil {
		c.state = StateOpening
		return
	}
	logger.Warn("sco connect failed", "addr", e.Addr, "err", err)
	c.cur = nil
	c.listen(e)
	c.state = StateListen
	c.hooks.Aborted(e)
}

func (c *Controller) dial(e *Endpoint) error {
	if !c.active.IsZero() && c.active != e.Addr {
		return errNotActive
	}
	p := e.Params(c.offload)
	idx, err := c.link.Connect(e.Addr, p)
	if err != nil {
		return err
	}
	logger.Info("sco connecting", "addr", e.Addr, "params", p)
	e.Idx = idx
	return nil
}
