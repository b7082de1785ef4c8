package ag

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// A UUID16 is a 16-bit Bluetooth SIG assigned UUID.
type UUID16 uint16

// BaseUUID is the Bluetooth base UUID, 00000000-0000-1000-8000-00805F9B34FB.
var BaseUUID = uuid.MustParse("00000000-0000-1000-8000-00805f9b34fb")

// UUID expands u to its 128-bit form on the Bluetooth base UUID.
func (u UUID16) UUID() uuid.UUID {
	b := BaseUUID
	binary.BigEndian.PutUint16(b[2:4], uint16(u))
	return b
}

// String returns the 128-bit string form, as used by BlueZ.
func (u UUID16) String() string {
	return u.UUID().String()
}

// Short returns the 4 digit hex form, such as "111f".
func (u UUID16) Short() string {
	return fmt.Sprintf("%04x", uint16(u))
}

// ParseUUID16 parses "111f", "0x111F" or a 128-bit UUID on the Bluetooth base.
func ParseUUID16(s string) (UUID16, error) {
	if len(s) <= 6 {
		if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
			s = s[2:]
		}
		v, err := strconv.ParseUint(s, 16, 16)
		if err != nil {
			return 0, errors.Wrapf(err, "invalid uuid %q", s)
		}
		return UUID16(v), nil
	}
	full, err := uuid.Parse(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid uuid %q", s)
	}
	short := binary.BigEndian.Uint16(full[2:4])
	if UUID16(short).UUID() != full {
		return 0, errors.Errorf("uuid %s is not on the bluetooth base", s)
	}
	return UUID16(short), nil
}

// Name returns the name of known profile and protocol UUIDs.
func (u UUID16) Name() string {
	if n, ok := knownUUID[u]; ok {
		return n
	}
	return u.Short()
}

var knownUUID = map[UUID16]string{
	0x0003: "RFCOMM",
	0x0100: "L2CAP",
	0x1002: "Public Browse Group",
	0x1108: "Headset",
	0x1112: "Headset Audio Gateway",
	0x111e: "Handsfree",
	0x111f: "Handsfree Audio Gateway",
	0x1131: "Headset HS",
	0x1203: "Generic Audio",
}
