package sco

// State of the shared audio link.
type State uint8

// Link states.
const (
	StateShutdown  State = iota // no listeners
	StateListen                 // listening for incoming connections
	StateCodec                  // codec negotiation in progress
	StateOpening                // outgoing connection pending
	StateOpenCl                 // opening, close requested
	StateOpenXfer               // opening, transfer requested
	StateOpen                   // connected
	StateClosing                // disconnect pending
	StateCloseOp                // closing, open requested
	StateCloseXfer              // closing before a transfer
	StateShutting               // disconnect pending, then shut down
)

var stateName = map[State]string{
	StateShutdown:  "shutdown",
	StateListen:    "listen",
	StateCodec:     "codec",
	StateOpening:   "opening",
	StateOpenCl:    "open_cl",
	StateOpenXfer:  "open_xfer",
	StateOpen:      "open",
	StateClosing:   "closing",
	StateCloseOp:   "close_op",
	StateCloseXfer: "close_xfer",
	StateShutting:  "shutting",
}

func (s State) String() string { return stateName[s] }

// Event drives the link state machine.
type Event uint8

// Link events.
const (
	EvtListen    Event = iota // start listening for an endpoint
	EvtOpen                   // open audio for an endpoint
	EvtXfer                   // move audio to another endpoint
	EvtCodecDone              // codec negotiation finished
	EvtReopen                 // retry a failed open
	EvtClose                  // close audio
	EvtShutdown               // endpoint going away
	EvtConnOpen               // link connected
	EvtConnClose              // link disconnected
)

var eventName = map[Event]string{
	EvtListen:    "listen",
	EvtOpen:      "open",
	EvtXfer:      "xfer",
	EvtCodecDone: "codec_done",
	EvtReopen:    "reopen",
	EvtClose:     "close",
	EvtShutdown:  "shutdown",
	EvtConnOpen:  "conn_open",
	EvtConnClose: "conn_close",
}

func (e Event) String() string { return eventName[e] }
