// Package sdp is an SDP client over an L2CAP channel on PSM 1.
package sdp

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"

	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/sdp"
)

// PDU ids [Vol 3, Part B, 4.2].
const (
	pduErrorRsp                 = 0x01
	pduServiceSearchAttrRequest = 0x06
	pduServiceSearchAttrRsp     = 0x07
)

const maxContLen = 16

// errorRsp is an SDP_ErrorResponse.
type errorRsp uint16

func (e errorRsp) Error() string {
	switch e {
	case 0x0001:
		return "unsupported SDP version"
	case 0x0002:
		return "invalid service record handle"
	case 0x0003:
		return "invalid request syntax"
	case 0x0004:
		return "invalid PDU size"
	case 0x0005:
		return "invalid continuation state"
	case 0x0006:
		return "insufficient resources"
	}
	return fmt.Sprintf("sdp error 0x%04X", uint16(e))
}

// request encodes a ServiceSearchAttributeRequest.
func request(tid uint16, uuids []ag.UUID16, attrs []uint16, maxBytes uint16, cont []byte) []byte {
	pat := make([]sdp.Element, len(uuids))
	for i, u := range uuids {
		pat[i] = sdp.UUID(u)
	}
	ids := make([]sdp.Element, len(attrs))
	for i, a := range attrs {
		ids[i] = sdp.Uint16(a)
	}

	var p []byte
	p = sdp.Seq(pat...).AppendTo(p)
	p = append(p, byte(maxBytes>>8), byte(maxBytes))
	p = sdp.Seq(ids...).AppendTo(p)
	p = append(p, byte(len(cont)))
	p = append(p, cont...)

	b := make([]byte, 5, 5+len(p))
	b[0] = pduServiceSearchAttrRequest
	binary.BigEndian.PutUint16(b[1:], tid)
	binary.BigEndian.PutUint16(b[3:], uint16(len(p)))
	return append(b, p...)
}

// response decodes a ServiceSearchAttributeResponse into its attribute
// list bytes and continuation state.
func response(tid uint16, b []byte) ([]byte, []byte, error) {
	if len(b) < 5 {
		return nil, nil, errors.New("short PDU")
	}
	if got := binary.BigEndian.Uint16(b[1:]); got != tid {
		return nil, nil, errors.Errorf("transaction id %d, want %d", got, tid)
	}
	n := int(binary.BigEndian.Uint16(b[3:]))
	p := b[5:]
	if len(p) < n {
		return nil, nil, errors.New("truncated PDU")
	}
	p = p[:n]
	switch b[0] {
	case pduErrorRsp:
		if len(p) < 2 {
			return nil, nil, errors.New("short error response")
		}
		return nil, nil, errorRsp(binary.BigEndian.Uint16(p))
	case pduServiceSearchAttrRsp:
	default:
		return nil, nil, errors.Errorf("unexpected PDU 0x%02X", b[0])
	}
	if len(p) < 2 {
		return nil, nil, errors.New("short response")
	}
	cnt := int(binary.BigEndian.Uint16(p))
	if len(p) < 2+cnt+1 {
		return nil, nil, errors.New("truncated attribute lists")
	}
	lists := p[2 : 2+cnt]
	cl := int(p[2+cnt])
	if cl > maxContLen || len(p) < 3+cnt+cl {
		return nil, nil, errors.New("bad continuation state")
	}
	return lists, p[3+cnt : 3+cnt+cl], nil
}

// parseLists decodes the concatenated attribute lists of a transaction.
func parseLists(b []byte) ([]*sdp.Record, error) {
	e, _, err := sdp.Unmarshal(b)
	if err != nil {
		return nil, errors.Wrap(err, "attribute lists")
	}
	if e.Type != sdp.TypeSeq {
		return nil, errors.Wrap(sdp.ErrMalformed, "attribute lists")
	}
	recs := make([]*sdp.Record, 0, len(e.Seq))
	for _, l := range e.Seq {
		r, err := sdp.ParseRecord(l)
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, nil
}
