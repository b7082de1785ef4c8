// +build linux

package sdp

import (
	"sync"

	"github.com/mgutz/logxi/v1"
	"github.com/pkg/errors"
	"golang.org/x/net/context"
	"golang.org/x/sys/unix"

	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/linux/socket"
	"github.com/currantlabs/ag/sdp"
)

var logger = log.New("linux/sdp")

const psm = 0x0001

// Client implements sdp.Searcher.
type Client struct {
	// MaxBytes bounds the attribute data kept per search. Larger results
	// are truncated and reported with sdp.ErrDBFull.
	MaxBytes int

	mu  sync.Mutex
	tid uint16
}

// NewClient returns a client with the default result size.
func NewClient() *Client {
	return &Client{MaxBytes: 4096}
}

func (c *Client) nextTID() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tid++
	return c.tid
}

// Search implements sdp.Searcher.
func (c *Client) Search(ctx context.Context, addr ag.Addr, uuids []ag.UUID16, attrs []uint16) ([]*sdp.Record, error) {
	conn, err := socket.New(unix.SOCK_SEQPACKET, unix.BTPROTO_L2CAP)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Shutdown()
		case <-done:
		}
	}()

	if err := conn.Connect(&unix.SockaddrL2{PSM: psm, Addr: socket.WireAddr(addr)}); err != nil {
		return nil, errors.Wrapf(err, "can't reach %s", addr)
	}

	var lists, cont []byte
	full := false
	buf := make([]byte, 1024)
	for {
		tid := c.nextTID()
		if _, err := conn.Write(request(tid, uuids, attrs, 0xFFFF, cont)); err != nil {
			return nil, err
		}
		n, err := conn.Read(buf)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err != nil {
			return nil, err
		}
		part, next, err := response(tid, buf[:n])
		if err != nil {
			return nil, err
		}
		lists = append(lists, part...)
		if len(lists) > c.MaxBytes {
			full = true
			logger.Warn("result truncated", "addr", addr, "bytes", len(lists))
			break
		}
		if len(next) == 0 {
			break
		}
		cont = append(cont[:0], next...)
	}
	if full {
		// A truncated list does not decode; keep nothing but report it.
		return nil, sdp.ErrDBFull
	}

	recs, err := parseLists(lists)
	if err != nil {
		return nil, err
	}
	logger.Debug("search done", "addr", addr, "records", len(recs))
	if len(recs) == 0 {
		return nil, sdp.ErrNoRecords
	}
	return recs, nil
}
