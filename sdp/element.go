// Package sdp holds service records, the discovery database and the
// transport interfaces for searching peers and publishing local records.
package sdp

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/currantlabs/ag"
)

// Type is the data element type descriptor [Vol 3, Part B, 3.2].
type Type uint8

// Data element types.
const (
	TypeNil  Type = 0
	TypeUint Type = 1
	TypeInt  Type = 2
	TypeUUID Type = 3
	TypeText Type = 4
	TypeBool Type = 5
	TypeSeq  Type = 6
	TypeAlt  Type = 7
	TypeURL  Type = 8
)

var typeName = map[Type]string{
	TypeNil: "nil", TypeUint: "uint", TypeInt: "int", TypeUUID: "uuid",
	TypeText: "text", TypeBool: "bool", TypeSeq: "seq", TypeAlt: "alt", TypeURL: "url",
}

func (t Type) String() string {
	if n, ok := typeName[t]; ok {
		return n
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// ErrMalformed is returned for data elements that can not be decoded.
var ErrMalformed = errors.New("malformed data element")

// Element is an SDP data element.
type Element struct {
	Type Type
	Size int // value size in bytes for uint, int and uuid

	Uint uint64
	Int  int64
	UUID []byte // big endian, 2, 4 or 16 bytes
	Text string // text and url
	Bool bool
	Seq  []Element // seq and alt
}

// Uint8 returns an 8-bit unsigned element.
func Uint8(v uint8) Element { return Element{Type: TypeUint, Size: 1, Uint: uint64(v)} }

// Uint16 returns a 16-bit unsigned element.
func Uint16(v uint16) Element { return Element{Type: TypeUint, Size: 2, Uint: uint64(v)} }

// Uint32 returns a 32-bit unsigned element.
func Uint32(v uint32) Element { return Element{Type: TypeUint, Size: 4, Uint: uint64(v)} }

// UUID returns a 16-bit UUID element.
func UUID(u ag.UUID16) Element {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, uint16(u))
	return Element{Type: TypeUUID, Size: 2, UUID: b}
}

// Text returns a text string element.
func Text(s string) Element { return Element{Type: TypeText, Text: s} }

// Bool returns a boolean element.
func Bool(v bool) Element { return Element{Type: TypeBool, Size: 1, Bool: v} }

// Seq returns a data element sequence.
func Seq(e ...Element) Element { return Element{Type: TypeSeq, Seq: e} }

// UUID16 returns the 16-bit form of a UUID element. 32 and 128-bit UUIDs
// are converted when they lie on the Bluetooth base UUID.
func (e Element) UUID16() (ag.UUID16, bool) {
	if e.Type != TypeUUID {
		return 0, false
	}
	switch len(e.UUID) {
	case 2:
		return ag.UUID16(binary.BigEndian.Uint16(e.UUID)), true
	case 4:
		v := binary.BigEndian.Uint32(e.UUID)
		if v > 0xFFFF {
			return 0, false
		}
		return ag.UUID16(v), true
	case 16:
		var u uuid.UUID
		copy(u[:], e.UUID)
		s := ag.UUID16(binary.BigEndian.Uint16(u[2:4]))
		if s.UUID() != u {
			return 0, false
		}
		return s, true
	}
	return 0, false
}

// Marshal encodes e.
func (e Element) Marshal() []byte {
	return e.AppendTo(nil)
}

// AppendTo appends the encoding of e to b.
func (e Element) AppendTo(b []byte) []byte {
	hdr := byte(e.Type) << 3
	switch e.Type {
	case TypeNil:
		return append(b, hdr)
	case TypeBool:
		v := byte(0)
		if e.Bool {
			v = 1
		}
		return append(b, hdr, v)
	case TypeUint, TypeInt:
		v := e.Uint
		if e.Type == TypeInt {
			v = uint64(e.Int)
		}
		idx, n := sizeIndex(e.Size)
		b = append(b, hdr|idx)
		for i := n - 1; i >= 0; i-- {
			if i >= 8 {
				b = append(b, 0)
				continue
			}
			b = append(b, byte(v>>(8*uint(i))))
		}
		return b
	case TypeUUID:
		idx, _ := sizeIndex(len(e.UUID))
		b = append(b, hdr|idx)
		return append(b, e.UUID...)
	case TypeText, TypeURL:
		b = appendVarHeader(b, hdr, len(e.Text))
		return append(b, e.Text...)
	case TypeSeq, TypeAlt:
		var body []byte
		for _, c := range e.Seq {
			body = c.AppendTo(body)
		}
		b = appendVarHeader(b, hdr, len(body))
		return append(b, body...)
	}
	return b
}

func sizeIndex(n int) (byte, int) {
	switch n {
	case 1:
		return 0, 1
	case 2:
		return 1, 2
	case 4:
		return 2, 4
	case 8:
		return 3, 8
	case 16:
		return 4, 16
	}
	return 1, 2
}

func appendVarHeader(b []byte, hdr byte, n int) []byte {
	switch {
	case n <= 0xFF:
		return append(b, hdr|5, byte(n))
	case n <= 0xFFFF:
		return append(b, hdr|6, byte(n>>8), byte(n))
	}
	return append(b, hdr|7, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}

// Unmarshal decodes one element from b and returns the number of bytes used.
func Unmarshal(b []byte) (Element, int, error) {
	if len(b) < 1 {
		return Element{}, 0, errors.Wrap(ErrMalformed, "empty")
	}
	t := Type(b[0] >> 3)
	idx := b[0] & 0x07
	b = b[1:]
	var n, hl int
	switch idx {
	case 0, 1, 2, 3, 4:
		n = 1 << idx
		if t == TypeNil {
			n = 0
		}
	case 5:
		if len(b) < 1 {
			return Element{}, 0, errors.Wrap(ErrMalformed, "short length")
		}
		n, hl = int(b[0]), 1
	case 6:
		if len(b) < 2 {
			return Element{}, 0, errors.Wrap(ErrMalformed, "short length")
		}
		n, hl = int(binary.BigEndian.Uint16(b)), 2
	case 7:
		if len(b) < 4 {
			return Element{}, 0, errors.Wrap(ErrMalformed, "short length")
		}
		n, hl = int(binary.BigEndian.Uint32(b)), 4
	}
	b = b[hl:]
	if n < 0 || len(b) < n {
		return Element{}, 0, errors.Wrapf(ErrMalformed, "%s needs %d bytes, have %d", t, n, len(b))
	}
	v := b[:n]
	used := 1 + hl + n

	e := Element{Type: t}
	switch t {
	case TypeNil:
	case TypeUint, TypeInt:
		if idx > 4 {
			return Element{}, 0, errors.Wrapf(ErrMalformed, "%s with size index %d", t, idx)
		}
		e.Size = n
		var u uint64
		for _, c := range v {
			u = u<<8 | uint64(c)
		}
		e.Uint = u
		if t == TypeInt {
			shift := uint(64 - 8*n)
			if n >= 8 {
				shift = 0
			}
			e.Int = int64(u<<shift) >> shift
			e.Uint = 0
		}
	case TypeUUID:
		if n != 2 && n != 4 && n != 16 {
			return Element{}, 0, errors.Wrapf(ErrMalformed, "uuid of %d bytes", n)
		}
		e.Size = n
		e.UUID = append([]byte(nil), v...)
	case TypeText, TypeURL:
		e.Text = string(v)
	case TypeBool:
		if n != 1 {
			return Element{}, 0, errors.Wrap(ErrMalformed, "bool size")
		}
		e.Size = 1
		e.Bool = v[0] != 0
	case TypeSeq, TypeAlt:
		for len(v) > 0 {
			c, m, err := Unmarshal(v)
			if err != nil {
				return Element{}, 0, err
			}
			e.Seq = append(e.Seq, c)
			v = v[m:]
		}
	default:
		return Element{}, 0, errors.Wrapf(ErrMalformed, "unknown type %d", t)
	}
	return e, used, nil
}

func (e Element) String() string {
	switch e.Type {
	case TypeUint:
		return fmt.Sprintf("uint%d(0x%x)", e.Size*8, e.Uint)
	case TypeInt:
		return fmt.Sprintf("int%d(%d)", e.Size*8, e.Int)
	case TypeUUID:
		if u, ok := e.UUID16(); ok {
			return "uuid(" + u.Short() + ")"
		}
		return fmt.Sprintf("uuid(%x)", e.UUID)
	case TypeText, TypeURL:
		return fmt.Sprintf("%s(%q)", e.Type, e.Text)
	case TypeBool:
		return fmt.Sprintf("bool(%v)", e.Bool)
	case TypeSeq, TypeAlt:
		s := e.Type.String() + "["
		for i, c := range e.Seq {
			if i > 0 {
				s += " "
			}
			s += c.String()
		}
		return s + "]"
	}
	return "nil"
}
