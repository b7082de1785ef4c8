package agtest

import (
	"sync"

	"golang.org/x/net/context"

	"github.com/currantlabs/ag"
	"github.com/currantlabs/ag/sdp"
)

// Search is a recorded discovery request.
type Search struct {
	Addr  ag.Addr
	UUIDs []ag.UUID16
	Attrs []uint16
}

// SDP is an in-memory sdp.Searcher and sdp.Publisher.
type SDP struct {
	mu       sync.Mutex
	remote   map[ag.Addr][]*sdp.Record
	errs     map[ag.Addr]error
	searches []Search
	local    map[uint32]*sdp.Record
	next     uint32
}

// NewSDP returns an SDP with no remote records.
func NewSDP() *SDP {
	return &SDP{
		remote: make(map[ag.Addr][]*sdp.Record),
		errs:   make(map[ag.Addr]error),
		local:  make(map[uint32]*sdp.Record),
	}
}

// SetRecords sets the records the peer at addr serves.
func (s *SDP) SetRecords(addr ag.Addr, recs ...*sdp.Record) {
	s.mu.Lock()
	s.remote[addr] = recs
	s.mu.Unlock()
}

// SetError makes searches of addr fail with err.
func (s *SDP) SetError(addr ag.Addr, err error) {
	s.mu.Lock()
	s.errs[addr] = err
	s.mu.Unlock()
}

// Search implements sdp.Searcher. Records are returned when one of their
// service classes is in uuids.
func (s *SDP) Search(ctx context.Context, addr ag.Addr, uuids []ag.UUID16, attrs []uint16) ([]*sdp.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches = append(s.searches, Search{Addr: addr, UUIDs: uuids, Attrs: attrs})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.errs[addr]; err != nil {
		return nil, err
	}
	var out []*sdp.Record
	for _, r := range s.remote[addr] {
		for _, u := range uuids {
			if r.HasClass(u) {
				out = append(out, r)
				break
			}
		}
	}
	if len(out) == 0 {
		return nil, sdp.ErrNoRecords
	}
	return out, nil
}

// Searches returns the discovery requests made so far.
func (s *SDP) Searches() []Search {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Search(nil), s.searches...)
}

// AddRecord implements sdp.Publisher.
func (s *SDP) AddRecord(r *sdp.Record) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	h := 0x10000 + s.next
	r.Handle = h
	s.local[h] = r
	return h, nil
}

// DeleteRecord implements sdp.Publisher.
func (s *SDP) DeleteRecord(h uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.local, h)
	return nil
}

// Local returns the published records.
func (s *SDP) Local() []*sdp.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*sdp.Record
	for _, r := range s.local {
		out = append(out, r)
	}
	return out
}

// HFRecord returns a hands-free unit record.
func HFRecord(scn uint8, version, features uint16) *sdp.Record {
	r := &sdp.Record{}
	r.Set(sdp.AttrServiceClassIDList, sdp.Seq(sdp.UUID(sdp.UUIDHFHandsfree), sdp.UUID(sdp.UUIDGenericAudio)))
	r.Set(sdp.AttrProtocolDescList, sdp.Seq(
		sdp.Seq(sdp.UUID(sdp.UUIDProtocolL2CAP)),
		sdp.Seq(sdp.UUID(sdp.UUIDProtocolRFCOMM), sdp.Uint8(scn)),
	))
	r.Set(sdp.AttrProfileDescList, sdp.Seq(sdp.Seq(sdp.UUID(sdp.UUIDHFHandsfree), sdp.Uint16(version))))
	r.Set(sdp.AttrSupportedFeatures, sdp.Uint16(features))
	return r
}

// HSRecord returns a headset record of the given class.
func HSRecord(class ag.UUID16, scn uint8, volume bool) *sdp.Record {
	r := &sdp.Record{}
	r.Set(sdp.AttrServiceClassIDList, sdp.Seq(sdp.UUID(class), sdp.UUID(sdp.UUIDGenericAudio)))
	r.Set(sdp.AttrProtocolDescList, sdp.Seq(
		sdp.Seq(sdp.UUID(sdp.UUIDProtocolL2CAP)),
		sdp.Seq(sdp.UUID(sdp.UUIDProtocolRFCOMM), sdp.Uint8(scn)),
	))
	r.Set(sdp.AttrProfileDescList, sdp.Seq(sdp.Seq(sdp.UUID(sdp.UUIDHeadset), sdp.Uint16(ag.HSPVersion12))))
	r.Set(sdp.AttrRemoteAudioVolumeCtrl, sdp.Bool(volume))
	return r
}
