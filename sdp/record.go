package sdp

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/currantlabs/ag"
)

// An Attr is an attribute of a service record.
type Attr struct {
	ID    uint16
	Value Element
}

// A Record is a service record, attributes kept in ascending ID order.
type Record struct {
	Handle uint32
	Attrs  []Attr
}

// Get returns the value of attribute id.
func (r *Record) Get(id uint16) (Element, bool) {
	i := sort.Search(len(r.Attrs), func(i int) bool { return r.Attrs[i].ID >= id })
	if i < len(r.Attrs) && r.Attrs[i].ID == id {
		return r.Attrs[i].Value, true
	}
	return Element{}, false
}

// Set adds or replaces attribute id.
func (r *Record) Set(id uint16, v Element) {
	i := sort.Search(len(r.Attrs), func(i int) bool { return r.Attrs[i].ID >= id })
	if i < len(r.Attrs) && r.Attrs[i].ID == id {
		r.Attrs[i].Value = v
		return
	}
	r.Attrs = append(r.Attrs, Attr{})
	copy(r.Attrs[i+1:], r.Attrs[i:])
	r.Attrs[i] = Attr{ID: id, Value: v}
}

// ServiceClasses returns the service class ID list.
func (r *Record) ServiceClasses() []ag.UUID16 {
	e, ok := r.Get(AttrServiceClassIDList)
	if !ok {
		return nil
	}
	var l []ag.UUID16
	for _, c := range e.Seq {
		if u, ok := c.UUID16(); ok {
			l = append(l, u)
		}
	}
	return l
}

// HasClass reports whether u is in the service class ID list.
func (r *Record) HasClass(u ag.UUID16) bool {
	for _, c := range r.ServiceClasses() {
		if c == u {
			return true
		}
	}
	return false
}

// ProtocolParam returns the first parameter of protocol proto in the
// protocol descriptor list, such as the RFCOMM server channel.
func (r *Record) ProtocolParam(proto ag.UUID16) (uint64, bool) {
	e, ok := r.Get(AttrProtocolDescList)
	if !ok {
		return 0, false
	}
	for _, pd := range e.Seq {
		if pd.Type != TypeSeq || len(pd.Seq) < 2 {
			continue
		}
		if u, ok := pd.Seq[0].UUID16(); ok && u == proto && pd.Seq[1].Type == TypeUint {
			return pd.Seq[1].Uint, true
		}
	}
	return 0, false
}

// ProfileVersion returns the version of profile in the profile descriptor list.
func (r *Record) ProfileVersion(profile ag.UUID16) (uint16, bool) {
	e, ok := r.Get(AttrProfileDescList)
	if !ok {
		return 0, false
	}
	for _, pd := range e.Seq {
		if pd.Type != TypeSeq || len(pd.Seq) < 2 {
			continue
		}
		if u, ok := pd.Seq[0].UUID16(); ok && u == profile && pd.Seq[1].Type == TypeUint {
			return uint16(pd.Seq[1].Uint), true
		}
	}
	return 0, false
}

// Element encodes the record as an attribute list.
func (r *Record) Element() Element {
	l := make([]Element, 0, 2*len(r.Attrs))
	for _, a := range r.Attrs {
		l = append(l, Uint16(a.ID), a.Value)
	}
	return Seq(l...)
}

// ParseRecord decodes an attribute list.
func ParseRecord(e Element) (*Record, error) {
	if e.Type != TypeSeq || len(e.Seq)%2 != 0 {
		return nil, errors.Wrap(ErrMalformed, "attribute list")
	}
	r := &Record{}
	for i := 0; i < len(e.Seq); i += 2 {
		id := e.Seq[i]
		if id.Type != TypeUint || id.Size != 2 {
			return nil, errors.Wrapf(ErrMalformed, "attribute id %s", id)
		}
		r.Set(uint16(id.Uint), e.Seq[i+1])
	}
	if h, ok := r.Get(AttrServiceRecordHandle); ok && h.Type == TypeUint {
		r.Handle = uint32(h.Uint)
	}
	return r, nil
}

// BuildRecord builds the local audio gateway record of service index svc.
// Only the HFP record carries supported features; the codec and super wide
// band bits are placed where SDP expects them rather than where +BRSF does.
func BuildRecord(svc int, scn uint8, name string, features ag.Feature, swb bool) *Record {
	r := &Record{}
	r.Set(AttrProtocolDescList, Seq(
		Seq(UUID(UUIDProtocolL2CAP)),
		Seq(UUID(UUIDProtocolRFCOMM), Uint8(scn)),
	))
	r.Set(AttrServiceClassIDList, Seq(UUID(AgUUID(svc)), UUID(UUIDGenericAudio)))
	if svc == ag.HFPIndex {
		r.Set(AttrProfileDescList, Seq(Seq(UUID(UUIDHFHandsfree), Uint16(ag.HFPVersion16))))
	} else {
		r.Set(AttrProfileDescList, Seq(Seq(UUID(UUIDHeadset), Uint16(ag.HSPVersion12))))
	}
	if name != "" {
		r.Set(AttrServiceName, Text(name))
	}
	if svc == ag.HFPIndex {
		network := uint8(0)
		if features&ag.FeatReject != 0 {
			network = 1
		}
		r.Set(AttrDataStoresOrNetwork, Uint8(network))
		r.Set(AttrSupportedFeatures, Uint16(SDPFeatures(features, swb)))
	}
	r.Set(AttrBrowseGroupList, Seq(UUID(UUIDPublicBrowseGroup)))
	return r
}

// SDPFeatures computes the SupportedFeatures attribute from local features.
func SDPFeatures(features ag.Feature, swb bool) uint16 {
	f := uint16(features & ag.SDPFeatMask)
	if features&ag.FeatCodec != 0 {
		f |= FeatWBS
	}
	if swb {
		f |= FeatSWB
	}
	return f
}
