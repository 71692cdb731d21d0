package queue

import (
	"sync"

	"github.com/duplexkit/duplex-go/task"
)

// Connectable is a Queue with a push-through connector. Until a sink is
// connected, pushes buffer as usual. Connecting drains the buffer into
// the sink in FIFO order and routes every later push straight through.
type Connectable[T any] struct {
	mu   sync.Mutex
	q    *Queue[T]
	sink func(T) error
}

func NewConnectable[T any](capacity int) *Connectable[T] {
	return &Connectable[T]{q: New[T](capacity)}
}

// Push delivers to the sink when connected, otherwise buffers. The sink
// is invoked synchronously under the connector lock, which serializes
// delivery order.
func (c *Connectable[T]) Push(v T) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.q.Dropped() {
		return false, ErrDropped
	}
	if c.sink != nil {
		if err := c.sink(v); err != nil {
			return false, err
		}
		return true, nil
	}
	return c.q.Push(v)
}

// Connect installs the sink. It fails if one is already connected, if
// the queue is dropped, or if takers are waiting. Buffered values drain
// into the sink before it takes over.
func (c *Connectable[T]) Connect(sink func(T) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sink != nil {
		return ErrConnected
	}
	c.q.mu.Lock()
	if c.q.dropped {
		c.q.mu.Unlock()
		return ErrDropped
	}
	if len(c.q.waiters) > 0 {
		c.q.mu.Unlock()
		return ErrWaiters
	}
	vals := c.q.drainLocked()
	c.q.mu.Unlock()
	for _, v := range vals {
		if err := sink(v); err != nil {
			return err
		}
	}
	c.sink = sink
	return nil
}

// Take is forbidden once a sink is connected.
func (c *Connectable[T]) Take(t *task.Task) (T, error) {
	c.mu.Lock()
	connected := c.sink != nil
	c.mu.Unlock()
	if connected {
		var zero T
		return zero, ErrConnected
	}
	return c.q.Take(t)
}

// Drop marks the connectable terminal. Pushes fail afterwards whether or
// not a sink was connected.
func (c *Connectable[T]) Drop() {
	c.q.Drop()
}

// Dropped reports whether the connectable is terminal.
func (c *Connectable[T]) Dropped() bool {
	return c.q.Dropped()
}
