package sdp

import (
	"github.com/pkg/errors"
	"golang.org/x/net/context"

	"github.com/currantlabs/ag"
)

// Status is the completion status of a discovery.
type Status uint8

// Discovery statuses.
const (
	StatusSuccess Status = iota
	StatusNoRecords
	StatusDBFull
	StatusFailed
)

// ErrNoRecords is returned by a Searcher when the peer has no matching record.
var ErrNoRecords = errors.New("no matching records")

// ErrDBFull is returned by a Searcher when the result was truncated.
var ErrDBFull = errors.New("discovery database full")

// StatusOf classifies a Searcher error.
func StatusOf(err error) Status {
	switch errors.Cause(err) {
	case nil:
		return StatusSuccess
	case ErrNoRecords:
		return StatusNoRecords
	case ErrDBFull:
		return StatusDBFull
	}
	return StatusFailed
}

// Usable reports whether records may be examined.
func (s Status) Usable() bool { return s == StatusSuccess || s == StatusDBFull }

// A Searcher performs a service search attribute transaction with a peer.
// Search blocks; the gateway runs it off the executor.
type Searcher interface {
	Search(ctx context.Context, addr ag.Addr, uuids []ag.UUID16, attrs []uint16) ([]*Record, error)
}

// A Publisher publishes local service records.
type Publisher interface {
	AddRecord(r *Record) (uint32, error)
	DeleteRecord(handle uint32) error
}
