package ag

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Addr is a Bluetooth device address (BD_ADDR), most significant byte first.
type Addr [6]byte

// ParseAddr parses an address in the "AA:BB:CC:DD:EE:FF" form.
// Dashes are accepted as separators.
func ParseAddr(s string) (Addr, error) {
	var a Addr
	s = strings.Replace(s, "-", ":", -1)
	parts := strings.Split(s, ":")
	if len(parts) != len(a) {
		return a, errors.Errorf("invalid address %q", s)
	}
	for i, p := range parts {
		var b byte
		if _, err := fmt.Sscanf(p, "%02x", &b); err != nil || len(p) != 2 {
			return Addr{}, errors.Errorf("invalid address %q", s)
		}
		a[i] = b
	}
	return a, nil
}

// MustParseAddr is like ParseAddr, but panics in case of error.
func MustParseAddr(s string) Addr {
	a, err := ParseAddr(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsZero reports whether a is the empty address.
func (a Addr) IsZero() bool {
	return a == Addr{}
}

// Reverse returns the address in the little-endian order used on the wire.
func (a Addr) Reverse() [6]byte {
	var r [6]byte
	for i := range a {
		r[len(a)-1-i] = a[i]
	}
	return r
}

func (a Addr) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}
