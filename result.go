package ag

import "fmt"

// ResultCode selects the response or unsolicited result sent to the peer by Result.
type ResultCode uint8

// Result codes.
const (
	ResultSPK          ResultCode = 0  // Update speaker volume.
	ResultMIC          ResultCode = 1  // Update microphone volume.
	ResultInbandRing   ResultCode = 2  // Update in-band ring state.
	ResultCIND         ResultCode = 3  // Send indicator response for AT+CIND.
	ResultBINP         ResultCode = 4  // Send phone number for voice tag.
	ResultIND          ResultCode = 5  // Update an indicator value.
	ResultBVRA         ResultCode = 6  // Update voice recognition state.
	ResultCNUM         ResultCode = 7  // Send subscriber number response.
	ResultBTRH         ResultCode = 8  // Send CCAP incoming call hold.
	ResultCLCC         ResultCode = 9  // Query list of calls.
	ResultCOPS         ResultCode = 10 // Read network operator.
	ResultInCall       ResultCode = 11 // Indicate incoming phone call.
	ResultInCallConn   ResultCode = 12 // Incoming phone call connected.
	ResultCallWait     ResultCode = 13 // Call waiting notification.
	ResultOutCallOrig  ResultCode = 14 // Outgoing phone call origination.
	ResultOutCallAlert ResultCode = 15 // Outgoing phone call alerting remote party.
	ResultOutCallConn  ResultCode = 16 // Outgoing phone call connected.
	ResultCallCancel   ResultCode = 17 // Incoming/outgoing 3-way canceled before connected.
	ResultEndCall      ResultCode = 18 // End call.
	ResultInCallHeld   ResultCode = 19 // Incoming call held.
	ResultUNAT         ResultCode = 20 // Response to unknown AT command event.
	ResultMultiCall    ResultCode = 21 // SLC at three way call.
	ResultBIND         ResultCode = 22 // Activate/deactivate HF indicator.
	ResultIndOnDemand  ResultCode = 33 // Send indicator update on demand.
)

var resultName = map[ResultCode]string{
	ResultSPK: "SPK", ResultMIC: "MIC", ResultInbandRing: "INBAND_RING",
	ResultCIND: "CIND", ResultBINP: "BINP", ResultIND: "IND", ResultBVRA: "BVRA",
	ResultCNUM: "CNUM", ResultBTRH: "BTRH", ResultCLCC: "CLCC", ResultCOPS: "COPS",
	ResultInCall: "IN_CALL", ResultInCallConn: "IN_CALL_CONN", ResultCallWait: "CALL_WAIT",
	ResultOutCallOrig: "OUT_CALL_ORIG", ResultOutCallAlert: "OUT_CALL_ALERT",
	ResultOutCallConn: "OUT_CALL_CONN", ResultCallCancel: "CALL_CANCEL",
	ResultEndCall: "END_CALL", ResultInCallHeld: "IN_CALL_HELD", ResultUNAT: "UNAT",
	ResultMultiCall: "MULTI_CALL", ResultBIND: "BIND", ResultIndOnDemand: "IND_ON_DEMAND",
}

// Valid reports whether r is a known result code.
func (r ResultCode) Valid() bool {
	_, ok := resultName[r]
	return ok
}

func (r ResultCode) String() string {
	if n, ok := resultName[r]; ok {
		return n
	}
	return fmt.Sprintf("RES_%d", uint8(r))
}

// OKFlag tells Result how to terminate a solicited response.
type OKFlag uint8

// OK flags.
const (
	OKContinue OKFlag = iota // more results follow, send nothing
	OKDone                   // send OK
	OKError                  // send ERROR, or +CME ERROR when extended errors are enabled
)

// ResultData is the payload of a Result call.
type ResultData struct {
	Str     string
	Num     int
	Ind     Indicator
	OKFlag  OKFlag
	ErrCode CMEError
	State   bool

	// Audio is the handle whose audio follows the call, or HandleNone
	// when the call has no audio on this gateway.
	Audio uint16
}

// Indicator is an indicator position and value.
type Indicator struct {
	ID       int
	Value    int
	OnDemand bool
}
