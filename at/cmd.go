package at

// ArgType classifies the argument that follows a command name.
type ArgType uint8

// Argument types. A Command accepts any combination.
const (
	ArgNone ArgType = 0x01 // AT+CMD
	ArgRead ArgType = 0x02 // AT+CMD?
	ArgTest ArgType = 0x04 // AT+CMD=?
	ArgSet  ArgType = 0x08 // AT+CMD=value
	ArgFree ArgType = 0x10 // AT+CMDanything, such as ATD<number>

	ArgSetRead     = ArgSet | ArgRead
	ArgSetTest     = ArgSet | ArgTest
	ArgSetReadTest = ArgSet | ArgRead | ArgTest
	ArgReadTest    = ArgRead | ArgTest
)

func (t ArgType) String() string {
	switch t {
	case ArgNone:
		return "none"
	case ArgRead:
		return "read"
	case ArgTest:
		return "test"
	case ArgSet:
		return "set"
	case ArgFree:
		return "free"
	}
	return "mixed"
}

// Format is the expected format of a set argument.
type Format uint8

// Formats.
const (
	FmtStr Format = iota
	FmtInt
)

// MaxInt is the largest integer argument accepted.
const MaxInt = 32767

// A Command is an entry of a command table.
type Command struct {
	Name   string  // without the leading "AT", e.g. "+BRSF"
	ID     int     // reported to the command callback
	Args   ArgType // allowed argument types
	Format Format
	Min    int
	Max    int

	// Wide marks the one command whose integer argument may be a 32-bit
	// bitmap. Reserved bits above bit 11 are masked instead of rejected.
	Wide bool
}
