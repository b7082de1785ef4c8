// Package ag defines the types shared by the hands-free and headset audio
// gateway packages: addresses, features, codecs, results and events.
package ag

// MaxClients is the number of service control blocks, and so the number of
// concurrently registered or connected peers.
const MaxClients = 6

// Handles identify a registered service control block. Valid handles are 1..MaxClients.
const (
	HandleNone uint16 = 0x0000
	HandleAll  uint16 = 0xFFFF // HandleAll addresses every connected block in Result.
)

// Service indexes and masks.
const (
	HSPIndex = 0
	HFPIndex = 1
	NumIdx   = 2

	HSPServiceMask ServiceMask = 1 << HSPIndex
	HFPServiceMask ServiceMask = 1 << HFPIndex
)

// ServiceMask is a set of services, one bit per service index.
type ServiceMask uint8

// Has reports whether the mask contains service index i.
func (m ServiceMask) Has(i int) bool { return m&(1<<uint(i)) != 0 }

// Service identifies the profile of a connection.
type Service uint8

// Services.
const (
	ServiceNone Service = iota
	ServiceHSP
	ServiceHFP
)

func (s Service) String() string {
	switch s {
	case ServiceHSP:
		return "HSP"
	case ServiceHFP:
		return "HFP"
	}
	return "none"
}

// Mask returns the service mask bit of s.
func (s Service) Mask() ServiceMask {
	switch s {
	case ServiceHSP:
		return HSPServiceMask
	case ServiceHFP:
		return HFPServiceMask
	}
	return 0
}

// Feature is a set of local audio gateway features. The low bits follow +BRSF [HFP 1.8, 4.34.2].
type Feature uint32

// Local features.
const (
	Feat3Way   Feature = 0x00000001 // Three-way calling.
	FeatECNR   Feature = 0x00000002 // Echo cancellation and/or noise reduction.
	FeatVRec   Feature = 0x00000004 // Voice recognition.
	FeatInband Feature = 0x00000008 // In-band ring tone.
	FeatVTag   Feature = 0x00000010 // Attach a phone number to a voice tag.
	FeatReject Feature = 0x00000020 // Ability to reject incoming call.
	FeatECS    Feature = 0x00000040 // Enhanced call status.
	FeatECC    Feature = 0x00000080 // Enhanced call control.
	FeatExtErr Feature = 0x00000100 // Extended error codes.
	FeatCodec  Feature = 0x00000200 // Codec negotiation.
	FeatHFInd  Feature = 0x00000400 // HF indicators.
	FeatESCOS4 Feature = 0x00000800 // eSCO S4 settings supported.
	FeatSWB    Feature = 0x00001000 // Super wide band speech.

	FeatBTRH   Feature = 0x00010000 // CCAP incoming call hold.
	FeatUNAT   Feature = 0x00020000 // Pass unknown AT commands to the application.
	FeatNoSCO  Feature = 0x00040000 // No SCO control performed by the gateway.
	FeatNoESCO Feature = 0x00080000 // Do not allow or use eSCO.
	FeatVoIP   Feature = 0x00100000 // VoIP call.
)

// SDPFeatMask selects the local features that map directly onto the SDP
// SupportedFeatures attribute.
const SDPFeatMask = Feat3Way | FeatECNR | FeatVRec | FeatInband | FeatVTag

// PeerFeature is the set of hands-free features reported with AT+BRSF.
type PeerFeature uint32

// Peer features [HFP 1.8, 4.34.2].
const (
	PeerFeatECNR   PeerFeature = 0x0001
	PeerFeat3Way   PeerFeature = 0x0002
	PeerFeatCLI    PeerFeature = 0x0004
	PeerFeatVRec   PeerFeature = 0x0008
	PeerFeatVol    PeerFeature = 0x0010
	PeerFeatECS    PeerFeature = 0x0020
	PeerFeatECC    PeerFeature = 0x0040
	PeerFeatCodec  PeerFeature = 0x0080
	PeerFeatHFInd  PeerFeature = 0x0100
	PeerFeatESCOS4 PeerFeature = 0x0200
	PeerFeatUNAT   PeerFeature = 0x1000
	PeerFeatVoIP   PeerFeature = 0x2000
)

// Profile versions as carried in the SDP profile descriptor list.
const (
	VersionUnknown uint16 = 0x0000
	HSPVersion10   uint16 = 0x0100
	HSPVersion12   uint16 = 0x0102
	HFPVersion11   uint16 = 0x0101
	HFPVersion15   uint16 = 0x0105
	HFPVersion16   uint16 = 0x0106
	HFPVersion17   uint16 = 0x0107
	HFPVersion18   uint16 = 0x0108
	HFPVersion19   uint16 = 0x0109
)

// Role is the connection role of a control block.
type Role uint8

// Roles.
const (
	RoleAcceptor  Role = 0
	RoleInitiator Role = 1
)

func (r Role) String() string {
	if r == RoleInitiator {
		return "initiator"
	}
	return "acceptor"
}

// Indicator positions in the +CIND list.
const (
	IndCall      = 1
	IndCallSetup = 2
	IndService   = 3
	IndSignal    = 4
	IndRoam      = 5
	IndBattChg   = 6
	IndCallHeld  = 7
	NumInd       = 7
)

// Indicator values.
const (
	CallInactive = 0
	CallActive   = 1

	CallSetupNone     = 0
	CallSetupIncoming = 1
	CallSetupOutgoing = 2
	CallSetupAlerting = 3

	CallHeldNone     = 0
	CallHeldActive   = 1 // A call is held and another is active.
	CallHeldNoActive = 2
)

// Limits.
const (
	MaxPeerHFInd  = 20
	MaxLocalHFInd = 4
	MaxATLen      = 256
	RFCOMMMTU     = 256
)
