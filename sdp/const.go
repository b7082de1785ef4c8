package sdp

import "github.com/currantlabs/ag"

// Service class and protocol UUIDs.
const (
	UUIDHFHandsfree       ag.UUID16 = 0x111E
	UUIDAGHandsfree       ag.UUID16 = 0x111F
	UUIDHeadset           ag.UUID16 = 0x1108
	UUIDHeadsetHS         ag.UUID16 = 0x1131
	UUIDHeadsetAG         ag.UUID16 = 0x1112
	UUIDGenericAudio      ag.UUID16 = 0x1203
	UUIDPublicBrowseGroup ag.UUID16 = 0x1002
	UUIDProtocolL2CAP     ag.UUID16 = 0x0100
	UUIDProtocolRFCOMM    ag.UUID16 = 0x0003
)

// Attribute IDs [Vol 3, Part B, 5.1; Assigned Numbers SDP].
const (
	AttrServiceRecordHandle   uint16 = 0x0000
	AttrServiceClassIDList    uint16 = 0x0001
	AttrProtocolDescList      uint16 = 0x0004
	AttrBrowseGroupList       uint16 = 0x0005
	AttrProfileDescList       uint16 = 0x0009
	AttrServiceName           uint16 = 0x0100
	AttrDataStoresOrNetwork   uint16 = 0x0301
	AttrRemoteAudioVolumeCtrl uint16 = 0x0302
	AttrSupportedFeatures     uint16 = 0x0311
)

// SDP supported features bits that differ from +BRSF.
const (
	FeatWBS uint16 = 0x0020 // Wide band speech.
	FeatSWB uint16 = 0x0100 // Super wide band speech.

	// BRSFMask selects the SDP feature bits that have the same meaning in +BRSF.
	BRSFMask uint16 = 0x001F
)

// AgUUID returns the audio gateway service class of service index i.
func AgUUID(i int) ag.UUID16 {
	if i == ag.HFPIndex {
		return UUIDAGHandsfree
	}
	return UUIDHeadsetAG
}
