package sdp

import (
	"github.com/currantlabs/ag"
)

// A DB holds the records returned by one discovery.
type DB struct {
	Addr    ag.Addr
	UUIDs   []ag.UUID16
	Attrs   []uint16
	Records []*Record
}

// NewDB returns an empty discovery database for the given search.
func NewDB(addr ag.Addr, uuids []ag.UUID16, attrs []uint16) *DB {
	return &DB{Addr: addr, UUIDs: uuids, Attrs: attrs}
}

// Add stores records, keeping only the requested attributes.
func (db *DB) Add(recs ...*Record) {
	for _, r := range recs {
		f := &Record{Handle: r.Handle}
		for _, a := range r.Attrs {
			if db.wants(a.ID) {
				f.Attrs = append(f.Attrs, a)
			}
		}
		db.Records = append(db.Records, f)
	}
}

func (db *DB) wants(id uint16) bool {
	if len(db.Attrs) == 0 {
		return true
	}
	for _, a := range db.Attrs {
		if a == id {
			return true
		}
	}
	return false
}

// FindService returns the next record after start whose service class list
// contains u. A nil start searches from the beginning.
func (db *DB) FindService(u ag.UUID16, start *Record) *Record {
	i := 0
	if start != nil {
		for ; i < len(db.Records); i++ {
			if db.Records[i] == start {
				i++
				break
			}
		}
	}
	for ; i < len(db.Records); i++ {
		if db.Records[i].HasClass(u) {
			return db.Records[i]
		}
	}
	return nil
}

// Query returns the service class and attributes to search for.
func Query(services ag.ServiceMask, role ag.Role, hspVersion uint16) ([]ag.UUID16, []uint16) {
	switch {
	case services.Has(ag.HFPIndex) && role == ag.RoleInitiator:
		return []ag.UUID16{UUIDHFHandsfree},
			[]uint16{AttrServiceClassIDList, AttrProtocolDescList, AttrProfileDescList, AttrSupportedFeatures}
	case services.Has(ag.HFPIndex):
		return []ag.UUID16{UUIDHFHandsfree},
			[]uint16{AttrServiceClassIDList, AttrProfileDescList, AttrSupportedFeatures}
	}
	u := UUIDHeadset
	if hspVersion >= ag.HSPVersion12 {
		u = UUIDHeadsetHS
	}
	return []ag.UUID16{u},
		[]uint16{AttrServiceClassIDList, AttrProtocolDescList, AttrProfileDescList, AttrRemoteAudioVolumeCtrl}
}

// Result is what FindAttr extracts from a discovery.
type Result struct {
	SCN     uint8
	Version uint16

	Features    uint16 // SupportedFeatures, HFP only
	HasFeatures bool

	Volume    bool // remote audio volume control, HSP only
	HasVolume bool

	VersionMissing bool // profile version absent, Version holds the default
}

// FindAttr looks for the first usable record of the requested service.
// version is the currently known peer version, used as the default for HFP.
// An initiator needs the peer RFCOMM channel, so records without one are skipped.
func (db *DB) FindAttr(services ag.ServiceMask, role ag.Role, version uint16) (Result, bool) {
	var res Result
	var u ag.UUID16
	hfp := services.Has(ag.HFPIndex)
	switch {
	case hfp:
		u = UUIDHFHandsfree
		res.Version = version
		if res.Version == ag.VersionUnknown {
			res.Version = ag.HFPVersion11
		}
	case role == ag.RoleInitiator:
		u = UUIDHeadsetHS
		res.Version = ag.HSPVersion12
	default:
		u = UUIDHeadsetHS
		res.Version = ag.HSPVersion10
	}

	var rec *Record
	for {
		rec = db.FindService(u, rec)
		if rec == nil {
			if u != UUIDHeadsetHS {
				return Result{}, false
			}
			// Peers may still use the old headset class.
			u = UUIDHeadset
			res.Version = ag.HSPVersion10
			if rec = db.FindService(u, nil); rec == nil {
				return Result{}, false
			}
		}
		if role == ag.RoleInitiator {
			scn, ok := rec.ProtocolParam(UUIDProtocolRFCOMM)
			if !ok {
				continue
			}
			res.SCN = uint8(scn)
		}
		break
	}

	if v, ok := rec.ProfileVersion(u); ok {
		res.Version = v
	} else if v, ok := rec.ProfileVersion(UUIDHeadset); ok && !hfp {
		res.Version = v
	} else {
		res.VersionMissing = true
	}

	if hfp {
		if e, ok := rec.Get(AttrSupportedFeatures); ok && e.Type == TypeUint && e.Size >= 2 {
			res.Features = uint16(e.Uint)
			res.HasFeatures = true
		}
		return res, true
	}
	if e, ok := rec.Get(AttrRemoteAudioVolumeCtrl); ok && e.Type == TypeBool {
		res.Volume = e.Bool
		res.HasVolume = true
	}
	return res, true
}
