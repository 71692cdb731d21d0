package rpc

import (
	"sync"
	"time"

	"github.com/duplexkit/duplex-go/codec"
	"github.com/duplexkit/duplex-go/proto"
	"github.com/duplexkit/duplex-go/socket"
	"github.com/duplexkit/duplex-go/task"
)

// Nonce allocates 16-bit session nonces. Zero is reserved for session
// control frames not yet bound to a session, so allocation starts at 1
// and wraps around it.
type Nonce struct {
	mu sync.Mutex
	n  uint16
}

func (c *Nonce) Next() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	if c.n == 0 {
		c.n = 1
	}
	return c.n
}

// Initiate opens sessions for one route key. Every Start allocates the
// next nonce, builds a fresh Service and runs the initiator half of the
// handshake on its own multiplexed handle.
type Initiate[I, E any] struct {
	Key            uint16
	AckDeadline    time.Duration
	SilentDeadline time.Duration
	Codec          codec.Codec
	Validate       func(interface{}) bool
	NewService     func() Service[I, E]

	nonces Nonce
}

// Start opens a session under a subtask of t and returns the Service
// handle for loading input and taking output. The session task resolves
// when the session ends; the Service drops with it.
func (i *Initiate[I, E]) Start(t *task.Task, sock socket.Socket) (Service[I, E], *task.Task) {
	st := t.Subtask()
	svc := i.NewService()
	go func() {
		<-st.Done()
		svc.Drop()
	}()
	nonce := i.nonces.Next()
	ssock := sock.Multiplex()
	go proto.Connect(ssock, i.Key, nonce, st, i.AckDeadline, i.SilentDeadline,
		servicePull[I, E](svc, i.Codec), servicePush[I, E](svc, i.Codec, i.Validate))
	return svc, st
}
