package proto

import (
	"github.com/duplexkit/duplex-go/frame"
)

// ackFilter matches an ACK for one session step.
func ackFilter(key, nonce uint16, step uint32) func([]byte) bool {
	typ := frame.Ack
	f := frame.Filter{Type: &typ, Key: &key, Nonce: &nonce}
	return func(b []byte) bool {
		_, body, ok := f.Match(b)
		if !ok {
			return false
		}
		_, ok = frame.MatchStep(step, body)
		return ok
	}
}

// msgFilter matches a MSG carrying one session step. Frames at any
// other step are skipped, which keeps delivery in order on an unordered
// transport.
func msgFilter(key, nonce uint16, step uint32) func([]byte) bool {
	typ := frame.Msg
	f := frame.Filter{Type: &typ, Key: &key, Nonce: &nonce}
	return func(b []byte) bool {
		_, body, ok := f.Match(b)
		if !ok {
			return false
		}
		_, ok = frame.MatchStep(step, body)
		return ok
	}
}

// sigFilter matches a SIG frame. A nil nonce or step leaves that field
// unconstrained; the responder captures the initiator's nonce from the
// matched frame header.
func sigFilter(key uint16, nonce *uint16, step *uint32, sig frame.Signal) func([]byte) bool {
	typ := frame.Sig
	f := frame.Filter{Type: &typ, Key: &key, Nonce: nonce}
	return func(b []byte) bool {
		_, body, ok := f.Match(b)
		if !ok {
			return false
		}
		s, got, ok := frame.ParseSignal(body)
		if !ok || got != sig {
			return false
		}
		if step != nil && s != *step {
			return false
		}
		return true
	}
}
