package rfcomm

import (
	"github.com/mgutz/logxi/v1"
	"github.com/pkg/errors"

	"github.com/currantlabs/ag"
)

var logger = log.New("rfcomm")

// Event is the state machine event derived from a port event.
type Event uint8

// Port derived events.
const (
	EvtNone Event = iota
	EvtOpen
	EvtClose
	EvtSrvClose
)

func (e Event) String() string {
	switch e {
	case EvtOpen:
		return "RFC_OPEN"
	case EvtClose:
		return "RFC_CLOSE"
	case EvtSrvClose:
		return "RFC_SRV_CLOSE"
	}
	return "none"
}

// Ports are the RFCOMM handles of one control block.
type Ports struct {
	Conn    uint16            // connected port, 0 if none
	Servers [ag.NumIdx]uint16 // server port per service index
}

// Service returns the service index whose server handle is h, or -1.
func (p *Ports) Service(h uint16) int {
	for i, s := range p.Servers {
		if s != 0 && s == h {
			return i
		}
	}
	return -1
}

// Manager maps port handles back to control blocks and applies the
// filtering rules for port events. It is owned by the gateway executor.
type Manager struct {
	t      Transport
	owners map[uint16]int
}

// NewManager returns a manager over t.
func NewManager(t Transport) *Manager {
	return &Manager{t: t, owners: make(map[uint16]int)}
}

// Transport returns the underlying transport.
func (m *Manager) Transport() Transport { return m.t }

// Owner returns the control block index that owns handle h.
func (m *Manager) Owner(h uint16) (int, bool) {
	i, ok := m.owners[h]
	return i, ok
}

// Release forgets handle h.
func (m *Manager) Release(h uint16) {
	delete(m.owners, h)
}

// StartServers creates a server port for each service in services that
// does not have one yet. scn holds the server channel per service index.
func (m *Manager) StartServers(idx int, p *Ports, services ag.ServiceMask, scn [ag.NumIdx]uint8) {
	for i := 0; i < ag.NumIdx; i++ {
		if !services.Has(i) || p.Servers[i] != 0 {
			continue
		}
		h, err := m.t.CreateServer(scn[i], MTU)
		if err != nil {
			logger.Warn("can't create server", "scb", idx, "service", i, "scn", scn[i], "err", err)
			continue
		}
		p.Servers[i] = h
		m.owners[h] = idx
		logger.Debug("server started", "scb", idx, "service", i, "handle", h)
	}
}

// CloseServers removes the server ports of services.
func (m *Manager) CloseServers(idx int, p *Ports, services ag.ServiceMask) {
	for i := 0; i < ag.NumIdx; i++ {
		if !services.Has(i) || p.Servers[i] == 0 {
			continue
		}
		h := p.Servers[i]
		if err := m.t.RemoveServer(h); err != nil {
			logger.Warn("can't remove server", "scb", idx, "handle", h, "err", err)
		}
		if h != p.Conn {
			delete(m.owners, h)
		}
		p.Servers[i] = 0
	}
}

// ServersClosed reports whether every server port of services is gone.
func (m *Manager) ServersClosed(p *Ports, services ag.ServiceMask) bool {
	for i := 0; i < ag.NumIdx; i++ {
		if services.Has(i) && p.Servers[i] != 0 {
			return false
		}
	}
	return true
}

// Open starts an outgoing connection. An error means the attempt failed
// at once and no event will follow.
func (m *Manager) Open(idx int, p *Ports, addr ag.Addr, scn uint8) error {
	h, err := m.t.Connect(addr, scn, MTU)
	if err != nil {
		return errors.Wrapf(err, "connect %s channel %d", addr, scn)
	}
	p.Conn = h
	m.owners[h] = idx
	return nil
}

// Close disconnects the connected port. It returns false when there is no
// port to close, in which case no close event will arrive.
func (m *Manager) Close(p *Ports) bool {
	if p.Conn == 0 {
		return false
	}
	if err := m.t.Disconnect(p.Conn); err != nil {
		logger.Warn("can't disconnect", "handle", p.Conn, "err", err)
	}
	return true
}

// Remove removes the connected port entirely, server or not.
func (m *Manager) Remove(p *Ports) {
	if p.Conn == 0 {
		return
	}
	if err := m.t.RemoveServer(p.Conn); err != nil {
		logger.Debug("remove port", "handle", p.Conn, "err", err)
	}
	m.Release(p.Conn)
	for i := range p.Servers {
		if p.Servers[i] == p.Conn {
			p.Servers[i] = 0
		}
	}
	p.Conn = 0
}

// Classify turns a port management event into a state machine event.
// Failures on anything but the connected port are dropped. A success must
// be on the connected port when there is one, or on one of the server
// ports for an incoming connection.
func (m *Manager) Classify(h uint16, code Code, p *Ports) Event {
	if code != Success && h != p.Conn {
		logger.Debug("ignoring close on non-connected port", "handle", h, "conn", p.Conn)
		return EvtNone
	}
	if code == Success {
		var found bool
		if p.Conn != 0 {
			found = h == p.Conn
		} else {
			found = p.Service(h) >= 0
		}
		if !found {
			logger.Warn("port opened but handle is unknown", "handle", h)
			return EvtNone
		}
		return EvtOpen
	}
	if h == p.Conn {
		return EvtClose
	}
	return EvtSrvClose
}

// Accepts reports whether data on h belongs to the connected port.
func (m *Manager) Accepts(h uint16, p *Ports) bool {
	if h != p.Conn || h == 0 {
		logger.Debug("dropping data on non-connected port", "handle", h, "conn", p.Conn)
		return false
	}
	return true
}

// Write sends b on the connected port.
func (m *Manager) Write(p *Ports, b []byte) error {
	if p.Conn == 0 {
		return errors.Wrap(ErrUnknownHandle, "write")
	}
	if _, err := m.t.Write(p.Conn, b); err != nil {
		return errors.Wrapf(err, "write on %d", p.Conn)
	}
	return nil
}

// PeerAddr returns the peer address of a connected port.
func (m *Manager) PeerAddr(h uint16) (ag.Addr, error) {
	return m.t.PeerAddr(h)
}
