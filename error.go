package ag

// Status is the result reported to the application in open and register events.
type Status byte

// Status codes carried in event headers.
const (
	StatusSuccess       Status = 0x00 // StatusSuccess means the operation completed.
	StatusFailSDP       Status = 0x01 // StatusFailSDP means service discovery failed.
	StatusFailRFCOMM    Status = 0x02 // StatusFailRFCOMM means the RFCOMM connection failed.
	StatusFailResources Status = 0x03 // StatusFailResources means no control block was available, or the peer is busy.
)

func (s Status) Error() string {
	if n, ok := statusName[s]; ok {
		return n
	}
	return "unknown status"
}

// Ok reports whether s is StatusSuccess.
func (s Status) Ok() bool { return s == StatusSuccess }

var statusName = map[Status]string{
	StatusSuccess:       "success",
	StatusFailSDP:       "service discovery failed",
	StatusFailRFCOMM:    "rfcomm connection failed",
	StatusFailResources: "insufficient resources",
}

// CMEError is an extended audio gateway error code reported with +CME ERROR.
type CMEError int

// Extended error codes [HFP 1.8, 4.34.2].
const (
	CMEAGFailure          CMEError = 0
	CMENoConnection       CMEError = 1
	CMENotAllowed         CMEError = 3
	CMENotSupported       CMEError = 4
	CMEPhSIMPinRequired   CMEError = 5
	CMESIMNotInserted     CMEError = 10
	CMESIMPinRequired     CMEError = 11
	CMESIMPukRequired     CMEError = 12
	CMESIMFailure         CMEError = 13
	CMESIMBusy            CMEError = 14
	CMEIncorrectPassword  CMEError = 16
	CMESIMPin2Required    CMEError = 17
	CMESIMPuk2Required    CMEError = 18
	CMEMemoryFull         CMEError = 20
	CMEInvalidIndex       CMEError = 21
	CMEMemoryFailure      CMEError = 23
	CMETextStringTooLong  CMEError = 24
	CMEInvalidCharsInStr  CMEError = 25
	CMEDialStrTooLong     CMEError = 26
	CMEInvalidCharsInDial CMEError = 27
	CMENoService          CMEError = 30
	CMENetworkTimeout     CMEError = 31
	CMEEmergencyOnly      CMEError = 32
	CMEOperationNotSupp   CMEError = 65535
)

func (e CMEError) Error() string {
	if n, ok := cmeName[e]; ok {
		return n
	}
	return "cme error"
}

var cmeName = map[CMEError]string{
	CMEAGFailure:          "AG failure",
	CMENoConnection:       "no connection to phone",
	CMENotAllowed:         "operation not allowed",
	CMENotSupported:       "operation not supported",
	CMEPhSIMPinRequired:   "PH-SIM PIN required",
	CMESIMNotInserted:     "SIM not inserted",
	CMESIMPinRequired:     "SIM PIN required",
	CMESIMPukRequired:     "SIM PUK required",
	CMESIMFailure:         "SIM failure",
	CMESIMBusy:            "SIM busy",
	CMEIncorrectPassword:  "incorrect password",
	CMESIMPin2Required:    "SIM PIN2 required",
	CMESIMPuk2Required:    "SIM PUK2 required",
	CMEMemoryFull:         "memory full",
	CMEInvalidIndex:       "invalid index",
	CMEMemoryFailure:      "memory failure",
	CMETextStringTooLong:  "text string too long",
	CMEInvalidCharsInStr:  "invalid characters in text string",
	CMEDialStrTooLong:     "dial string too long",
	CMEInvalidCharsInDial: "invalid characters in dial string",
	CMENoService:          "no network service",
	CMENetworkTimeout:     "network timeout",
	CMEEmergencyOnly:      "network not allowed, emergency calls only",
	CMEOperationNotSupp:   "operation not supported",
}
