// +build linux

package socket

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/currantlabs/ag"
)

// Voice settings for BT_VOICE.
const (
	VoiceCVSD16Bit   = 0x0060
	VoiceTransparent = 0x0003
)

const btVoice = 11

// rawSockaddrSCO is struct sockaddr_sco. The unix package has no SCO
// socket address, so SCO sockets are bound and connected with raw calls.
type rawSockaddrSCO struct {
	family uint16
	addr   [6]uint8
}

func scoAddr(a ag.Addr) *rawSockaddrSCO {
	return &rawSockaddrSCO{family: unix.AF_BLUETOOTH, addr: WireAddr(a)}
}

// BindSCO binds an SCO socket to the local adapter a. The zero address
// selects any adapter.
func (c *Conn) BindSCO(a ag.Addr) error {
	sa := scoAddr(a)
	_, _, e := unix.Syscall(unix.SYS_BIND, uintptr(c.fd), uintptr(unsafe.Pointer(sa)), unsafe.Sizeof(*sa))
	if e != 0 {
		return errors.Wrap(e, "can't bind sco")
	}
	return nil
}

// ListenSCO binds to any adapter and starts listening.
func (c *Conn) ListenSCO(backlog int) error {
	if err := c.BindSCO(ag.Addr{}); err != nil {
		return err
	}
	return errors.Wrap(unix.Listen(c.fd, backlog), "can't listen")
}

// ConnectSCO connects an SCO socket to peer a.
func (c *Conn) ConnectSCO(a ag.Addr) error {
	sa := scoAddr(a)
	_, _, e := unix.Syscall(unix.SYS_CONNECT, uintptr(c.fd), uintptr(unsafe.Pointer(sa)), unsafe.Sizeof(*sa))
	if e != 0 {
		return errors.Wrap(e, "can't connect sco")
	}
	return nil
}

// AcceptSCO waits for an SCO connection and returns it with the peer
// address.
func (c *Conn) AcceptSCO() (*Conn, ag.Addr, error) {
	var sa rawSockaddrSCO
	n := uint32(unsafe.Sizeof(sa))
	fd, _, e := unix.Syscall6(unix.SYS_ACCEPT4, uintptr(c.fd), uintptr(unsafe.Pointer(&sa)), uintptr(unsafe.Pointer(&n)), unix.SOCK_CLOEXEC, 0, 0)
	if e != 0 {
		return nil, ag.Addr{}, errors.Wrap(e, "can't accept sco")
	}
	return &Conn{fd: int(fd)}, AddrOf(sa.addr), nil
}

// SetVoice sets the voice setting of an SCO socket before it connects.
func (c *Conn) SetVoice(setting uint16) error {
	b := []byte{byte(setting), byte(setting >> 8)}
	return errors.Wrap(unix.SetsockoptString(c.fd, unix.SOL_BLUETOOTH, btVoice, string(b)), "can't set voice setting")
}
