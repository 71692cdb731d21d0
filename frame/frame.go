// Package frame implements encoding and decoding of the wire frames the
// runtime multiplexes over its transport. Every frame carries a 5 byte
// header: a type tag, a 16-bit big-endian route key and a 16-bit
// big-endian session nonce, followed by a type-specific payload.
package frame

import (
	"encoding/binary"
	"fmt"
)

// Type tags a frame.
type Type byte

const (
	Opn Type = 0
	Sig Type = 1
	Msg Type = 2
	Ack Type = 3
)

func (t Type) String() string {
	switch t {
	case Opn:
		return "OPN"
	case Sig:
		return "SIG"
	case Msg:
		return "MSG"
	case Ack:
		return "ACK"
	}
	return fmt.Sprintf("Type(%d)", byte(t))
}

// HeaderLen is the fixed frame prefix length.
const HeaderLen = 5

// Header is the fixed frame prefix.
type Header struct {
	Type  Type
	Key   uint16
	Nonce uint16
}

func (h Header) String() string {
	return fmt.Sprintf("{%s key:%d nonce:%d}", h.Type, h.Key, h.Nonce)
}

// Brand writes the header followed by payload.
func Brand(h Header, payload []byte) []byte {
	b := make([]byte, HeaderLen, HeaderLen+len(payload))
	b[0] = byte(h.Type)
	binary.BigEndian.PutUint16(b[1:3], h.Key)
	binary.BigEndian.PutUint16(b[3:5], h.Nonce)
	return append(b, payload...)
}

// Parse splits a frame into header and body. It reports false for short
// input or a type tag outside the enum.
func Parse(b []byte) (Header, []byte, bool) {
	if len(b) < HeaderLen {
		return Header{}, nil, false
	}
	t := Type(b[0])
	if t > Ack {
		return Header{}, nil, false
	}
	h := Header{
		Type:  t,
		Key:   binary.BigEndian.Uint16(b[1:3]),
		Nonce: binary.BigEndian.Uint16(b[3:5]),
	}
	return h, b[HeaderLen:], true
}

// Filter constrains header fields during a match. Nil fields match any
// value.
type Filter struct {
	Type  *Type
	Key   *uint16
	Nonce *uint16
}

// Match parses b and checks it against the filter. It returns the parsed
// header and body when every constrained field agrees.
func (f Filter) Match(b []byte) (Header, []byte, bool) {
	h, body, ok := Parse(b)
	if !ok {
		return Header{}, nil, false
	}
	if f.Type != nil && h.Type != *f.Type {
		return Header{}, nil, false
	}
	if f.Key != nil && h.Key != *f.Key {
		return Header{}, nil, false
	}
	if f.Nonce != nil && h.Nonce != *f.Nonce {
		return Header{}, nil, false
	}
	return h, body, true
}
