// +build linux

// Package rfcomm is an RFCOMM transport over Linux Bluetooth sockets.
//
// The kernel allows one listening socket per channel, while the gateway
// keeps a server port per control block. Server ports on the same channel
// share a listener, and an accepted connection goes to the idle port with
// the lowest handle.
package rfcomm

import (
	"sort"
	"sync"

	"github.com/mgutz/logxi/v1"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/linux/socket"
	"github.com/currantlabs/ag/rfcomm"
)

var logger = log.New("linux/rfcomm")

type port struct {
	handle uint16
	scn    uint8
	server bool
	conn   *socket.Conn // nil while a server port is idle
	addr   ag.Addr
	up     bool // connected, as opposed to still connecting
}

type listener struct {
	scn  uint8
	sock *socket.Conn
	refs int
}

// Transport implements rfcomm.Transport.
type Transport struct {
	// External leaves listening to someone else, typically BlueZ through
	// its profile manager, who hands connections over with Adopt.
	External bool

	mu        sync.Mutex
	sink      rfcomm.Sink
	next      uint16
	ports     map[uint16]*port
	listeners map[uint8]*listener
	backlog   int
	bufSize   int
}

// New returns a transport without ports.
func New() *Transport {
	return &Transport{
		ports:     make(map[uint16]*port),
		listeners: make(map[uint8]*listener),
		backlog:   4,
		bufSize:   1024,
	}
}

// SetSink implements rfcomm.Transport.
func (t *Transport) SetSink(s rfcomm.Sink) {
	t.mu.Lock()
	t.sink = s
	t.mu.Unlock()
}

func (t *Transport) emit(h uint16, code rfcomm.Code) {
	t.mu.Lock()
	s := t.sink
	t.mu.Unlock()
	if s != nil {
		s.PortEvent(h, code)
	}
}

func (t *Transport) allocLocked(p *port) uint16 {
	for {
		t.next++
		if t.next != 0 && t.ports[t.next] == nil {
			break
		}
	}
	p.handle = t.next
	t.ports[p.handle] = p
	return p.handle
}

// CreateServer implements rfcomm.Transport.
func (t *Transport) CreateServer(scn uint8, mtu uint16) (uint16, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l := t.listeners[scn]
	if l == nil && t.External {
		l = &listener{scn: scn}
		t.listeners[scn] = l
	}
	if l == nil {
		sock, err := socket.New(unix.SOCK_STREAM, unix.BTPROTO_RFCOMM)
		if err != nil {
			return 0, err
		}
		if err := sock.Listen(&unix.SockaddrRFCOMM{Channel: scn}, t.backlog); err != nil {
			sock.Close()
			return 0, errors.Wrapf(err, "channel %d", scn)
		}
		l = &listener{scn: scn, sock: sock}
		t.listeners[scn] = l
		go t.accept(l)
		logger.Info("listening", "scn", scn)
	}
	l.refs++
	return t.allocLocked(&port{scn: scn, server: true}), nil
}

// RemoveServer implements rfcomm.Transport. Client handles are accepted
// too; their connection is dropped without an event.
func (t *Transport) RemoveServer(h uint16) error {
	t.mu.Lock()
	p, ok := t.ports[h]
	if !ok {
		t.mu.Unlock()
		return rfcomm.ErrUnknownHandle
	}
	delete(t.ports, h)
	conn := p.conn
	var l *listener
	if p.server {
		if l = t.listeners[p.scn]; l != nil {
			if l.refs--; l.refs == 0 {
				delete(t.listeners, p.scn)
			} else {
				l = nil
			}
		}
	}
	t.mu.Unlock()

	if conn != nil {
		conn.Shutdown()
		conn.Close()
	}
	if l != nil && l.sock != nil {
		logger.Info("stop listening", "scn", l.scn)
		l.sock.Shutdown()
		l.sock.Close()
	}
	return nil
}

func (t *Transport) accept(l *listener) {
	for {
		conn, sa, err := l.sock.Accept()
		if err != nil {
			if !l.sock.Closed() {
				logger.Warn("accept failed", "scn", l.scn, "err", err)
			}
			return
		}
		rsa, ok := sa.(*unix.SockaddrRFCOMM)
		if !ok {
			conn.Close()
			continue
		}
		if _, err := t.attach(l.scn, conn, socket.AddrOf(rsa.Addr)); err != nil {
			logger.Warn("connection dropped", "scn", l.scn, "err", err)
			conn.Close()
		}
	}
}

// Adopt hands a connection accepted elsewhere, such as by BlueZ, to an idle
// server port on channel scn.
func (t *Transport) Adopt(fd int, scn uint8, addr ag.Addr) (uint16, error) {
	return t.attach(scn, socket.FromFd(fd), addr)
}

func (t *Transport) attach(scn uint8, conn *socket.Conn, addr ag.Addr) (uint16, error) {
	t.mu.Lock()
	var hs []int
	for h, p := range t.ports {
		if p.server && p.scn == scn && p.conn == nil {
			hs = append(hs, int(h))
		}
	}
	if len(hs) == 0 {
		t.mu.Unlock()
		return 0, errors.Errorf("no idle server port on channel %d", scn)
	}
	sort.Ints(hs)
	p := t.ports[uint16(hs[0])]
	p.conn, p.addr, p.up = conn, addr, true
	t.mu.Unlock()

	logger.Info("connection accepted", "handle", p.handle, "scn", scn, "addr", addr)
	t.emit(p.handle, rfcomm.Success)
	go t.read(p, conn)
	return p.handle, nil
}

// Connect implements rfcomm.Transport.
func (t *Transport) Connect(addr ag.Addr, scn uint8, mtu uint16) (uint16, error) {
	conn, err := socket.New(unix.SOCK_STREAM, unix.BTPROTO_RFCOMM)
	if err != nil {
		return 0, err
	}
	t.mu.Lock()
	p := &port{scn: scn, conn: conn, addr: addr}
	h := t.allocLocked(p)
	t.mu.Unlock()

	go func() {
		sa := &unix.SockaddrRFCOMM{Addr: socket.WireAddr(addr), Channel: scn}
		if err := conn.Connect(sa); err != nil {
			logger.Warn("connect failed", "handle", h, "addr", addr, "scn", scn, "err", err)
			conn.Close()
			if t.drop(p, conn) {
				t.emit(h, rfcomm.Failed)
			}
			return
		}
		t.mu.Lock()
		p.up = true
		t.mu.Unlock()
		logger.Info("connected", "handle", h, "addr", addr, "scn", scn)
		t.emit(h, rfcomm.Success)
		t.read(p, conn)
	}()
	return h, nil
}

func (t *Transport) read(p *port, conn *socket.Conn) {
	b := make([]byte, t.bufSize)
	for {
		n, err := conn.Read(b)
		if err != nil {
			logger.Debug("read ended", "handle", p.handle, "err", err)
			break
		}
		t.mu.Lock()
		s := t.sink
		t.mu.Unlock()
		if s != nil {
			s.PortData(p.handle, append([]byte(nil), b[:n]...))
		}
	}
	conn.Close()
	if t.drop(p, conn) {
		t.emit(p.handle, rfcomm.Closed)
	}
}

// drop detaches conn from p. It reports false when the port was removed
// or has moved on to another connection, in which case nobody is told.
func (t *Transport) drop(p *port, conn *socket.Conn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ports[p.handle] != p || p.conn != conn {
		return false
	}
	if p.server {
		p.conn, p.addr, p.up = nil, ag.Addr{}, false
	} else {
		delete(t.ports, p.handle)
	}
	return true
}

func (t *Transport) conn(h uint16) (*port, *socket.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.ports[h]
	if !ok {
		return nil, nil, rfcomm.ErrUnknownHandle
	}
	return p, p.conn, nil
}

// Disconnect implements rfcomm.Transport.
func (t *Transport) Disconnect(h uint16) error {
	_, conn, err := t.conn(h)
	if err != nil {
		return err
	}
	if conn == nil {
		return errors.Errorf("port %d not connected", h)
	}
	return conn.Shutdown()
}

// Write implements rfcomm.Transport.
func (t *Transport) Write(h uint16, b []byte) (int, error) {
	p, conn, err := t.conn(h)
	if err != nil {
		return 0, err
	}
	t.mu.Lock()
	up := p.up
	t.mu.Unlock()
	if conn == nil || !up {
		return 0, errors.Errorf("port %d not connected", h)
	}
	return conn.Write(b)
}

// PeerAddr implements rfcomm.Transport.
func (t *Transport) PeerAddr(h uint16) (ag.Addr, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.ports[h]
	if !ok || p.conn == nil {
		return ag.Addr{}, rfcomm.ErrUnknownHandle
	}
	return p.addr, nil
}

// Close removes every port.
func (t *Transport) Close() error {
	t.mu.Lock()
	var hs []uint16
	for h := range t.ports {
		hs = append(hs, h)
	}
	t.mu.Unlock()
	for _, h := range hs {
		t.RemoveServer(h)
	}
	return nil
}
