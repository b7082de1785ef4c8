// +build linux

// Package socket wraps the Linux AF_BLUETOOTH sockets used by the RFCOMM,
// SCO and SDP transports.
package socket

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/currantlabs/ag"
)

// Conn is a Bluetooth socket. Reads and writes are serialized separately.
type Conn struct {
	fd  int
	rmu sync.Mutex
	wmu sync.Mutex

	mu     sync.Mutex
	closed bool
}

// New opens an unconnected socket of the given type and protocol, such as
// unix.SOCK_STREAM and unix.BTPROTO_RFCOMM.
func New(typ, proto int) (*Conn, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, typ|unix.SOCK_CLOEXEC, proto)
	if err != nil {
		return nil, errors.Wrap(err, "can't create socket")
	}
	return &Conn{fd: fd}, nil
}

// FromFd wraps a connected socket handed over by another process.
func FromFd(fd int) *Conn {
	return &Conn{fd: fd}
}

// Fd returns the file descriptor.
func (c *Conn) Fd() int { return c.fd }

// Listen binds the socket to sa and starts listening.
func (c *Conn) Listen(sa unix.Sockaddr, backlog int) error {
	if err := unix.Bind(c.fd, sa); err != nil {
		return errors.Wrap(err, "can't bind")
	}
	if err := unix.Listen(c.fd, backlog); err != nil {
		return errors.Wrap(err, "can't listen")
	}
	return nil
}

// Accept waits for a connection. It fails once the socket is shut down.
func (c *Conn) Accept() (*Conn, unix.Sockaddr, error) {
	nfd, sa, err := unix.Accept4(c.fd, unix.SOCK_CLOEXEC)
	if err != nil {
		return nil, nil, errors.Wrap(err, "can't accept")
	}
	return &Conn{fd: nfd}, sa, nil
}

// Connect connects the socket to sa. It blocks until the peer answers or
// the socket is shut down.
func (c *Conn) Connect(sa unix.Sockaddr) error {
	return errors.Wrap(unix.Connect(c.fd, sa), "can't connect")
}

// Peer returns the remote address.
func (c *Conn) Peer() (unix.Sockaddr, error) {
	sa, err := unix.Getpeername(c.fd)
	return sa, errors.Wrap(err, "can't get peer name")
}

// Read reads from the socket. A closed connection reads as io.EOF.
func (c *Conn) Read(b []byte) (int, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()
	n, err := unix.Read(c.fd, b)
	if err != nil {
		return 0, errors.Wrap(err, "read")
	}
	if n == 0 && len(b) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write writes b to the socket.
func (c *Conn) Write(b []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	n, err := unix.Write(c.fd, b)
	if err != nil {
		return 0, errors.Wrap(err, "write")
	}
	return n, nil
}

// Shutdown wakes up a blocked Read, Accept or Connect.
func (c *Conn) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	return errors.Wrap(unix.Shutdown(c.fd, unix.SHUT_RDWR), "shutdown")
}

// Close closes the socket. Closing twice is a no-op.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return unix.Close(c.fd)
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// WireAddr returns a in the byte order of the kernel socket addresses.
func WireAddr(a ag.Addr) [6]uint8 {
	return a.Reverse()
}

// AddrOf returns the address of a kernel socket address.
func AddrOf(b [6]uint8) ag.Addr {
	var a ag.Addr
	for i := range b {
		a[len(a)-1-i] = b[i]
	}
	return a
}
