package ag

import "fmt"

// EventID identifies an application callback event.
type EventID uint8

// Application events.
const (
	EvtEnable     EventID = 0  // Gateway enabled.
	EvtRegister   EventID = 1  // Service registered.
	EvtOpen       EventID = 2  // Connection opened, or failed to open.
	EvtClose      EventID = 3  // Connection closed.
	EvtConn       EventID = 4  // Service level connection established.
	EvtAudioOpen  EventID = 5  // Audio connection opened.
	EvtAudioClose EventID = 6  // Audio connection closed.
	EvtSpk        EventID = 7  // Speaker volume changed.
	EvtMic        EventID = 8  // Microphone volume changed.
	EvtCKPD       EventID = 9  // CKPD from the HS.
	EvtA          EventID = 10 // Answer a call.
	EvtD          EventID = 11 // Place a call.
	EvtCHLD       EventID = 12 // Call hold.
	EvtCHUP       EventID = 13 // Hang up a call.
	EvtCIND       EventID = 14 // Read indicator settings.
	EvtVTS        EventID = 15 // Transmit DTMF tone.
	EvtBINP       EventID = 16 // Retrieve number from voice tag.
	EvtBLDN       EventID = 17 // Place call to last dialed number.
	EvtBVRA       EventID = 18 // Enable/disable voice recognition.
	EvtNREC       EventID = 19 // Disable echo canceling.
	EvtCNUM       EventID = 20 // Retrieve subscriber number.
	EvtBTRH       EventID = 21 // CCAP-style incoming call hold.
	EvtCLCC       EventID = 22 // Query list of current calls.
	EvtCOPS       EventID = 23 // Query network operator.
	EvtUNAT       EventID = 24 // Unknown AT command.
	EvtCBC        EventID = 25 // Battery level report from HF.
	EvtBAC        EventID = 26 // Codec information from HF.
	EvtBCS        EventID = 27 // Codec select.
	EvtBIND       EventID = 28 // HF indicators.
	EvtBIEV       EventID = 29 // HF indicator updates from peer.
	EvtDisable    EventID = 30 // Gateway disabled.
	EvtCodec      EventID = 31 // Codec negotiation result.
	EvtBIA        EventID = 32 // Indicator activation update.
)

var eventName = map[EventID]string{
	EvtEnable: "ENABLE", EvtRegister: "REGISTER", EvtOpen: "OPEN", EvtClose: "CLOSE",
	EvtConn: "CONN", EvtAudioOpen: "AUDIO_OPEN", EvtAudioClose: "AUDIO_CLOSE",
	EvtSpk: "SPK", EvtMic: "MIC", EvtCKPD: "AT_CKPD", EvtA: "AT_A", EvtD: "AT_D",
	EvtCHLD: "AT_CHLD", EvtCHUP: "AT_CHUP", EvtCIND: "AT_CIND", EvtVTS: "AT_VTS",
	EvtBINP: "AT_BINP", EvtBLDN: "AT_BLDN", EvtBVRA: "AT_BVRA", EvtNREC: "AT_NREC",
	EvtCNUM: "AT_CNUM", EvtBTRH: "AT_BTRH", EvtCLCC: "AT_CLCC", EvtCOPS: "AT_COPS",
	EvtUNAT: "AT_UNAT", EvtCBC: "AT_CBC", EvtBAC: "AT_BAC", EvtBCS: "AT_BCS",
	EvtBIND: "AT_BIND", EvtBIEV: "AT_BIEV", EvtDisable: "DISABLE", EvtCodec: "CODEC",
	EvtBIA: "AT_BIA",
}

func (e EventID) String() string {
	if n, ok := eventName[e]; ok {
		return n
	}
	return fmt.Sprintf("EVT_%d", uint8(e))
}

// Header is carried by every event.
type Header struct {
	Handle uint16
	AppID  uint8
	Status Status
}

// An Event is delivered to the application Handler. The concrete type
// depends on ID.
type Event interface {
	ID() EventID
	Hdr() Header
}

// EnableEvent reports EvtEnable.
type EnableEvent struct{ Header }

// ID ...
func (EnableEvent) ID() EventID { return EvtEnable }

// DisableEvent reports EvtDisable. It fires once after every control block
// has been released.
type DisableEvent struct{ Header }

// ID ...
func (DisableEvent) ID() EventID { return EvtDisable }

// RegisterEvent reports the result of Register.
type RegisterEvent struct{ Header }

// ID ...
func (RegisterEvent) ID() EventID { return EvtRegister }

// OpenEvent reports the outcome of a connection attempt, in either role.
type OpenEvent struct {
	Header
	Addr    Addr
	Service Service
}

// ID ...
func (OpenEvent) ID() EventID { return EvtOpen }

// CloseEvent reports EvtClose.
type CloseEvent struct {
	Header
	Addr Addr
}

// ID ...
func (CloseEvent) ID() EventID { return EvtClose }

// ConnEvent reports the service level connection.
type ConnEvent struct {
	Header
	Addr         Addr
	PeerFeatures PeerFeature
	PeerCodecs   Codec
}

// ID ...
func (ConnEvent) ID() EventID { return EvtConn }

// AudioEvent reports EvtAudioOpen and EvtAudioClose.
type AudioEvent struct {
	Header
	Addr  Addr
	Open  bool
	Codec Codec
}

// ID ...
func (e AudioEvent) ID() EventID {
	if e.Open {
		return EvtAudioOpen
	}
	return EvtAudioClose
}

// ValEvent carries an AT command from the peer that the application must act on.
type ValEvent struct {
	Header
	Event EventID
	Addr  Addr
	Str   string // raw argument
	Num   int    // parsed numeric argument
	Idx   int    // list index, for BIEV and BIND
	LIdx  int
}

// ID ...
func (e ValEvent) ID() EventID { return e.Event }

// CodecEvent reports the result of codec negotiation.
type CodecEvent struct {
	Header
	Addr  Addr
	Codec Codec
}

// ID ...
func (CodecEvent) ID() EventID { return EvtCodec }

// Hdr returns the event header.
func (h Header) Hdr() Header { return h }
