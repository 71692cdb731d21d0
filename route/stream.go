package route

import (
	"sync"

	"github.com/duplexkit/duplex-go/rpc"
	"github.com/duplexkit/duplex-go/socket"
	"github.com/duplexkit/duplex-go/task"
)

// nothing is the placeholder payload type for the unused direction of a
// one-way stream.
type nothing struct{}

// StreamSend is the initiator side of a one-way stream route. No
// replies ever flow back.
type StreamSend[I any] struct {
	m    *meta
	init *rpc.Initiate[I, nothing]

	mu  sync.Mutex
	svc rpc.Service[I, nothing]
	st  *task.Task
}

// SendStream registers the initiator side of a one-way stream route.
// The sender buffers up to capacity values; its reply queue is size
// zero.
func SendStream[I any](r *Router, capacity int, options ...Option) *StreamSend[I] {
	o := applyOpts(options)
	m := r.register(false, o.key)
	return &StreamSend[I]{
		m: m,
		init: &rpc.Initiate[I, nothing]{
			Key:            m.key,
			AckDeadline:    pick(o.ack, r.opts.AckDeadline),
			SilentDeadline: pick(o.silent, r.opts.ServerSilentDeadline),
			Codec:          r.codec,
			Validate:       o.validate,
			NewService:     func() rpc.Service[I, nothing] { return rpc.NewMany[I, nothing](capacity, 0) },
		},
	}
}

// Open starts the route's session. A route object opens once.
func (s *StreamSend[I]) Open(t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.svc != nil {
		return ErrStarted
	}
	sock, _, err := s.m.router.connection()
	if err != nil {
		return err
	}
	s.svc, s.st = s.init.Start(t, sock)
	return nil
}

// Send offers the next value, failing with ErrSendFailed while the
// buffer is full.
func (s *StreamSend[I]) Send(v I) error {
	s.mu.Lock()
	svc := s.svc
	s.mu.Unlock()
	if svc == nil {
		return ErrNotStarted
	}
	if !svc.LoadInternal(&v) {
		return ErrSendFailed
	}
	return nil
}

// Close ends the stream after buffered values drain.
func (s *StreamSend[I]) Close() {
	s.mu.Lock()
	svc := s.svc
	s.mu.Unlock()
	if svc != nil {
		svc.LoadInternal(nil)
	}
}

// Task returns the session task, nil before Open.
func (s *StreamSend[I]) Task() *task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

// RecvStream registers the responder side of a one-way stream route.
// The handler observes values in order; its outbound queue is size
// zero.
func RecvStream[I any](r *Router, capacity int, h func(v I), options ...Option) {
	o := applyOpts(options)
	m := r.register(true, o.key)
	ep := &rpc.Endpoint[nothing, I]{
		Key:            m.key,
		AckDeadline:    pick(o.ack, r.opts.AckDeadline),
		SilentDeadline: pick(o.silent, r.opts.ClientSilentDeadline),
		Codec:          r.codec,
		Validate:       o.validate,
		NewService:     func() rpc.Service[nothing, I] { return rpc.NewMany[nothing, I](0, capacity) },
		Serve: func(st *task.Task, svc rpc.Service[nothing, I]) {
			for {
				v, err := svc.TakeExternal(st)
				if err != nil {
					return
				}
				h(v)
			}
		},
	}
	m.start = func(sock socket.Socket) *task.Task { return ep.Start(sock) }
}
