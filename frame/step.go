package frame

import "encoding/binary"

// StepLen is the length of the little-endian step prefix carried by MSG,
// ACK and SIG payloads.
const StepLen = 4

// BrandStep prepends a 4 byte little-endian step to body. ACK frames use
// a nil body.
func BrandStep(step uint32, body []byte) []byte {
	b := make([]byte, StepLen, StepLen+len(body))
	binary.LittleEndian.PutUint32(b, step)
	return append(b, body...)
}

// ParseStep splits a step-prefixed payload.
func ParseStep(b []byte) (uint32, []byte, bool) {
	if len(b) < StepLen {
		return 0, nil, false
	}
	return binary.LittleEndian.Uint32(b[:StepLen]), b[StepLen:], true
}

// MatchStep validates the step prefix against an expected value and
// returns the remaining body.
func MatchStep(step uint32, b []byte) ([]byte, bool) {
	s, body, ok := ParseStep(b)
	if !ok || s != step {
		return nil, false
	}
	return body, true
}
