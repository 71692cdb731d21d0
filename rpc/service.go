// Package rpc binds application services to protocol sessions. A Service
// is the pair of bounded queues behind one session: the internal side is
// pulled and streamed out, the external side receives what the peer
// streamed in. Endpoint accepts inbound sessions, Initiate opens new
// ones.
package rpc

import (
	"errors"
	"sync"

	"github.com/duplexkit/duplex-go/queue"
	"github.com/duplexkit/duplex-go/task"
)

var (
	// ErrDone is returned by TakeExternal once the one-shot value has
	// already been consumed.
	ErrDone = errors.New("rpc: done")

	// ErrDropped is returned by operations on a dropped service.
	ErrDropped = errors.New("rpc: dropped")
)

// Service is the application-facing pair of bounded queues for one
// session. I flows out (internal, pulled by the session's sender), E
// flows in (external, delivered by the session's receiver). A nil
// internal load ends the outbound stream.
type Service[I, E any] interface {
	LoadInternal(v *I) bool
	Internal(t *task.Task) (*I, error)
	External(v E) bool
	TakeExternal(t *task.Task) (E, error)
	Drop()
}

// oneshot resolves at most once. A buffered value survives a drop so the
// winner of a teardown race still observes it.
type oneshot[T any] struct {
	mu       sync.Mutex
	loaded   bool
	taken    bool
	ch       chan *T
	loadedCh chan struct{}
	dropCh   chan struct{}
	dropOnce sync.Once
}

func newOneshot[T any]() *oneshot[T] {
	return &oneshot[T]{
		ch:       make(chan *T, 1),
		loadedCh: make(chan struct{}),
		dropCh:   make(chan struct{}),
	}
}

func (o *oneshot[T]) load(v *T) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.loaded {
		return false
	}
	select {
	case <-o.dropCh:
		return false
	default:
	}
	o.loaded = true
	o.ch <- v
	close(o.loadedCh)
	return true
}

func (o *oneshot[T]) take(t *task.Task) (*T, error) {
	o.mu.Lock()
	if o.taken {
		o.mu.Unlock()
		return nil, nil
	}
	o.taken = true
	o.mu.Unlock()

	select {
	case v := <-o.ch:
		return v, nil
	default:
	}
	var done <-chan struct{}
	if t != nil {
		done = t.Done()
	}
	select {
	case v := <-o.ch:
		return v, nil
	case <-done:
		// A value racing the teardown still wins.
		select {
		case v := <-o.ch:
			return v, nil
		default:
			return nil, t.Err()
		}
	case <-o.dropCh:
		select {
		case v := <-o.ch:
			return v, nil
		default:
			return nil, ErrDropped
		}
	}
}

// awaitLoaded resolves once a value has been loaded, without consuming
// it.
func (o *oneshot[T]) awaitLoaded(t *task.Task) error {
	select {
	case <-o.loadedCh:
		return nil
	default:
	}
	var done <-chan struct{}
	if t != nil {
		done = t.Done()
	}
	select {
	case <-o.loadedCh:
		return nil
	case <-done:
		return t.Err()
	case <-o.dropCh:
		return ErrDropped
	}
}

func (o *oneshot[T]) drop() {
	o.dropOnce.Do(func() { close(o.dropCh) })
}

// Once is the one-shot service shape: a single value each way, terminal
// after one resolve per side. Its outbound stream does not end until the
// inbound value has been delivered, which keeps a unary session alive
// long enough for the reply to cross.
type Once[I, E any] struct {
	in  *oneshot[I]
	out *oneshot[E]
}

func NewOnce[I, E any]() *Once[I, E] {
	return &Once[I, E]{in: newOneshot[I](), out: newOneshot[E]()}
}

func (s *Once[I, E]) LoadInternal(v *I) bool {
	return s.in.load(v)
}

func (s *Once[I, E]) Internal(t *task.Task) (*I, error) {
	v, err := s.in.take(t)
	if err != nil {
		return nil, err
	}
	if v != nil {
		return v, nil
	}
	if err := s.out.awaitLoaded(t); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Once[I, E]) External(v E) bool {
	return s.out.load(&v)
}

func (s *Once[I, E]) TakeExternal(t *task.Task) (E, error) {
	v, err := s.out.take(t)
	if err != nil {
		var zero E
		return zero, err
	}
	if v == nil {
		var zero E
		return zero, ErrDone
	}
	return *v, nil
}

func (s *Once[I, E]) Drop() {
	s.in.drop()
	s.out.drop()
}

// Many is the buffered service shape: two circular queues of configured
// capacities. A nil internal load is the close marker; when the buffer
// is full the close is recorded and observed once the buffer drains.
type Many[I, E any] struct {
	mu           sync.Mutex
	closePending bool
	in           *queue.Queue[*I]
	out          *queue.Queue[E]
}

func NewMany[I, E any](inCap, outCap int) *Many[I, E] {
	return &Many[I, E]{
		in:  queue.New[*I](inCap),
		out: queue.New[E](outCap),
	}
}

func (s *Many[I, E]) LoadInternal(v *I) bool {
	if v == nil {
		ok, err := s.in.Push(nil)
		if err != nil {
			return false
		}
		if !ok {
			s.mu.Lock()
			s.closePending = true
			s.mu.Unlock()
		}
		return true
	}
	ok, err := s.in.Push(v)
	return err == nil && ok
}

func (s *Many[I, E]) Internal(t *task.Task) (*I, error) {
	s.mu.Lock()
	if s.closePending && s.in.Len() == 0 {
		s.mu.Unlock()
		return nil, nil
	}
	s.mu.Unlock()
	return s.in.Take(t)
}

func (s *Many[I, E]) External(v E) bool {
	ok, err := s.out.Push(v)
	return err == nil && ok
}

func (s *Many[I, E]) TakeExternal(t *task.Task) (E, error) {
	return s.out.Take(t)
}

func (s *Many[I, E]) Drop() {
	s.in.Drop()
	s.out.Drop()
}
