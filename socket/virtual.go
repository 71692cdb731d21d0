package socket

import (
	"sync"

	"github.com/duplexkit/duplex-go/logger"
	"github.com/duplexkit/duplex-go/metrics"
	"github.com/duplexkit/duplex-go/queue"
	"github.com/duplexkit/duplex-go/task"
)

// core is the state shared by every multiplexed handle of one virtual
// socket: the connectable outbox and the live inbox set.
type core struct {
	mu       sync.Mutex
	outbox   *queue.Connectable[[]byte]
	handles  map[*Virtual]struct{}
	inboxCap int
	released chan struct{}
	relOnce  sync.Once
}

func (c *core) release() {
	c.relOnce.Do(func() { close(c.released) })
}

// Virtual is a multiplexing fan-out socket. Inbound bytes fed by the
// transport adapter are broadcast to every live handle's inbox; outbound
// bytes funnel through the shared outbox, buffering until a transport
// sink is connected.
type Virtual struct {
	core   *core
	inbox  *queue.Queue[[]byte]
	closed chan struct{}
	once   sync.Once
}

// NewVirtual returns the first handle of a fresh virtual socket.
func NewVirtual(outboxCap, inboxCap int) *Virtual {
	c := &core{
		outbox:   queue.NewConnectable[[]byte](outboxCap),
		handles:  make(map[*Virtual]struct{}),
		inboxCap: inboxCap,
		released: make(chan struct{}),
	}
	return c.newHandle()
}

func (c *core) newHandle() *Virtual {
	v := &Virtual{
		core:   c,
		inbox:  queue.New[[]byte](c.inboxCap),
		closed: make(chan struct{}),
	}
	c.handles[v] = struct{}{}
	return v
}

func (v *Virtual) Send(p []byte) error {
	ok, err := v.core.outbox.Push(p)
	if err != nil {
		if err == queue.ErrDropped {
			return ErrDropped
		}
		return err
	}
	if !ok {
		return ErrBackpressure
	}
	return nil
}

func (v *Virtual) Recv(t *task.Task, pred func([]byte) bool) ([]byte, error) {
	for {
		p, err := v.inbox.Take(t)
		if err != nil {
			if err == queue.ErrDropped {
				return nil, ErrDropped
			}
			return nil, err
		}
		if pred == nil || pred(p) {
			return p, nil
		}
	}
}

func (v *Virtual) Multiplex() Socket {
	v.core.mu.Lock()
	defer v.core.mu.Unlock()
	return v.core.newHandle()
}

func (v *Virtual) Drop() {
	v.once.Do(func() {
		v.core.mu.Lock()
		delete(v.core.handles, v)
		last := len(v.core.handles) == 0
		v.core.mu.Unlock()
		v.inbox.Drop()
		if last {
			v.core.outbox.Drop()
			v.core.release()
		}
		close(v.closed)
	})
}

func (v *Virtual) Closed() <-chan struct{} {
	return v.closed
}

// Feed broadcasts transport bytes into every live inbox. A full inbox
// loses the frame for that consumer only.
func (v *Virtual) Feed(p []byte) {
	v.core.mu.Lock()
	handles := make([]*Virtual, 0, len(v.core.handles))
	for h := range v.core.handles {
		handles = append(handles, h)
	}
	v.core.mu.Unlock()
	for _, h := range handles {
		ok, err := h.inbox.Push(p)
		if err == nil && !ok {
			metrics.FramesDropped.Inc()
			logger.Warn("socket: inbox full, frame dropped")
		}
	}
}

// ConnectSink wires the transport push sink to the shared outbox,
// draining anything buffered. Only one sink may ever be connected.
func (v *Virtual) ConnectSink(sink func([]byte) error) error {
	return v.core.outbox.Connect(sink)
}

// DropAll drops every handle and the outbox. Transport adapters call it
// when the underlying connection closes.
func (v *Virtual) DropAll() {
	v.core.mu.Lock()
	handles := make([]*Virtual, 0, len(v.core.handles))
	for h := range v.core.handles {
		handles = append(handles, h)
	}
	v.core.mu.Unlock()
	for _, h := range handles {
		h.Drop()
	}
	v.core.outbox.Drop()
	v.core.release()
}

// Released is resolved once every handle is dropped and the outbox is
// terminal. Transport adapters use it to close the underlying
// connection.
func (v *Virtual) Released() <-chan struct{} {
	return v.core.released
}
