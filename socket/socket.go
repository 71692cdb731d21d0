// Package socket defines the transport boundary: the Socket contract,
// the multiplexing VirtualSocket behind it, and adapters for in-memory
// pairs, WebSocket and QUIC transports.
package socket

import (
	"errors"

	"github.com/duplexkit/duplex-go/task"
)

var (
	// ErrBackpressure is returned by Send when the outbox is full and no
	// transport sink is connected yet.
	ErrBackpressure = errors.New("socket: outbox full")

	// ErrDropped is returned by operations on a dropped socket handle.
	ErrDropped = errors.New("socket: dropped")
)

// Socket is one multiplexed handle onto a shared message transport.
// Siblings created with Multiplex share the outbox; each handle has a
// private inbox receiving a copy of every inbound frame and is its
// exclusive consumer.
type Socket interface {
	// Send enqueues bytes for transmission. It never blocks on the
	// transport.
	Send(p []byte) error

	// Recv waits for the next inbound frame matching pred, discarding
	// non-matching frames from this handle's inbox. Cancellation of t
	// aborts the wait.
	Recv(t *task.Task, pred func([]byte) bool) ([]byte, error)

	// Multiplex returns a sibling handle with its own inbox.
	Multiplex() Socket

	// Drop releases this handle's inbox. Dropping the last handle also
	// drops the shared outbox.
	Drop()

	// Closed is resolved when this handle is dropped, or when the whole
	// socket is torn down.
	Closed() <-chan struct{}
}
