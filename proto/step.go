// Package proto implements the session protocol over a Socket: sequenced
// MSG/ACK streams, INIT/TERM signalling, and the initiator and responder
// halves of session establishment.
package proto

import (
	"math"
	"sync"
)

// Step is a monotonic counter modulo 2^32-1 tracking one direction of a
// session. Each side advances its send counter per MSG emitted and its
// receive counter per MSG accepted.
type Step struct {
	mu sync.Mutex
	n  uint32
}

func NewStep() *Step {
	return &Step{}
}

// Next claims the current value and advances.
func (s *Step) Next() uint32 {
	s.mu.Lock()
	v := s.n
	s.n = (s.n + 1) % math.MaxUint32
	s.mu.Unlock()
	return v
}

// Clone returns a sibling counter starting from the same value whose
// advancement is independent. Used to split receive from send after the
// handshake consumed the initial step.
func (s *Step) Clone() *Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Step{n: s.n}
}
