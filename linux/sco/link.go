// +build linux

// Package sco is an audio link over Linux SCO sockets.
//
// The kernel takes one listening SCO socket per adapter. Listen registers
// the peer it waits for, and an accepted link is handed to the listener
// registered for its peer.
package sco

import (
	"sync"

	"github.com/mgutz/logxi/v1"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/linux/socket"
	"github.com/currantlabs/ag/sco"
)

var logger = log.New("linux/sco")

type link struct {
	idx       uint16
	addr      ag.Addr
	conn      *socket.Conn
	outgoing  bool
	connected bool
}

// Link implements sco.Link.
type Link struct {
	mu     sync.Mutex
	sink   sco.Sink
	next   uint16
	links  map[uint16]*link
	server *socket.Conn
}

// New returns a link layer without links.
func New() *Link {
	return &Link{links: make(map[uint16]*link)}
}

// SetSink implements sco.Link.
func (l *Link) SetSink(s sco.Sink) {
	l.mu.Lock()
	l.sink = s
	l.mu.Unlock()
}

func (l *Link) allocLocked(k *link) uint16 {
	for {
		l.next++
		if l.next != 0 && l.next != sco.InvalidIdx && l.links[l.next] == nil {
			break
		}
	}
	k.idx = l.next
	l.links[k.idx] = k
	return k.idx
}

func voice(p sco.Params) uint16 {
	if p.Codec == ag.CodecCVSD {
		return socket.VoiceCVSD16Bit
	}
	return socket.VoiceTransparent
}

// Listen implements sco.Link.
func (l *Link) Listen(addr ag.Addr, p sco.Params) (uint16, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.server == nil {
		s, err := socket.New(unix.SOCK_SEQPACKET, unix.BTPROTO_SCO)
		if err != nil {
			return 0, err
		}
		if err := s.SetVoice(voice(p)); err != nil {
			logger.Warn("can't set voice setting", "err", err)
		}
		if err := s.ListenSCO(1); err != nil {
			s.Close()
			return 0, err
		}
		l.server = s
		go l.accept(s)
	}
	return l.allocLocked(&link{addr: addr}), nil
}

func (l *Link) accept(s *socket.Conn) {
	for {
		conn, addr, err := s.AcceptSCO()
		if err != nil {
			if !s.Closed() {
				logger.Warn("accept failed", "err", err)
			}
			return
		}
		l.mu.Lock()
		var k *link
		for _, c := range l.links {
			if !c.outgoing && c.conn == nil && c.addr == addr {
				k = c
				break
			}
		}
		if k != nil {
			k.conn, k.connected = conn, true
		}
		sink := l.sink
		l.mu.Unlock()
		if k == nil {
			logger.Warn("no listener for peer", "addr", addr)
			conn.Close()
			continue
		}
		logger.Info("audio link accepted", "idx", k.idx, "addr", addr)
		if sink != nil {
			sink.LinkOpen(k.idx)
		}
		go l.read(k, conn)
	}
}

// Connect implements sco.Link.
func (l *Link) Connect(addr ag.Addr, p sco.Params) (uint16, error) {
	conn, err := socket.New(unix.SOCK_SEQPACKET, unix.BTPROTO_SCO)
	if err != nil {
		return 0, err
	}
	if err := conn.BindSCO(ag.Addr{}); err != nil {
		conn.Close()
		return 0, err
	}
	if err := conn.SetVoice(voice(p)); err != nil {
		conn.Close()
		return 0, errors.Wrapf(err, "codec %s", p.Codec)
	}
	l.mu.Lock()
	k := &link{addr: addr, conn: conn, outgoing: true}
	idx := l.allocLocked(k)
	l.mu.Unlock()

	go func() {
		err := conn.ConnectSCO(addr)
		l.mu.Lock()
		current := l.links[idx] == k
		if err == nil && current {
			k.connected = true
		}
		sink := l.sink
		l.mu.Unlock()
		if err != nil {
			logger.Warn("audio connect failed", "idx", idx, "addr", addr, "err", err)
			conn.Close()
			if l.forget(k) && sink != nil {
				sink.LinkClose(idx)
			}
			return
		}
		if !current {
			conn.Close()
			return
		}
		logger.Info("audio link connected", "idx", idx, "addr", addr, "codec", p.Codec)
		if sink != nil {
			sink.LinkOpen(idx)
		}
		l.read(k, conn)
	}()
	return idx, nil
}

// read drains the link until it goes away. Audio is not routed here.
func (l *Link) read(k *link, conn *socket.Conn) {
	b := make([]byte, 256)
	for {
		if _, err := conn.Read(b); err != nil {
			break
		}
	}
	conn.Close()
	l.mu.Lock()
	sink := l.sink
	l.mu.Unlock()
	if l.forget(k) && sink != nil {
		sink.LinkClose(k.idx)
	}
}

// forget removes k, reporting false when it was already gone.
func (l *Link) forget(k *link) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.links[k.idx] != k {
		return false
	}
	delete(l.links, k.idx)
	l.closeServerLocked()
	return true
}

func (l *Link) closeServerLocked() {
	if l.server == nil {
		return
	}
	for _, k := range l.links {
		if !k.outgoing {
			return
		}
	}
	l.server.Shutdown()
	l.server.Close()
	l.server = nil
}

// Remove implements sco.Link.
func (l *Link) Remove(idx uint16) (bool, error) {
	l.mu.Lock()
	k, ok := l.links[idx]
	if !ok {
		l.mu.Unlock()
		return false, sco.ErrNotConnected
	}
	if k.connected {
		// The reader reports the close.
		l.mu.Unlock()
		return true, k.conn.Shutdown()
	}
	delete(l.links, idx)
	l.closeServerLocked()
	conn := k.conn
	l.mu.Unlock()
	if conn != nil {
		conn.Shutdown()
		conn.Close()
	}
	return false, nil
}
