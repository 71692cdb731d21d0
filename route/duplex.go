package route

import (
	"github.com/duplexkit/duplex-go/rpc"
	"github.com/duplexkit/duplex-go/socket"
	"github.com/duplexkit/duplex-go/task"
)

// DuplexSend is the initiator side of a duplex route: independent
// streams in both directions with their own capacities.
type DuplexSend[I, O any] struct {
	m    *meta
	init *rpc.Initiate[I, O]
}

// SendDuplex registers the initiator side of a duplex route.
func SendDuplex[I, O any](r *Router, sendCap, recvCap int, options ...Option) *DuplexSend[I, O] {
	o := applyOpts(options)
	m := r.register(false, o.key)
	return &DuplexSend[I, O]{
		m: m,
		init: &rpc.Initiate[I, O]{
			Key:            m.key,
			AckDeadline:    pick(o.ack, r.opts.AckDeadline),
			SilentDeadline: pick(o.silent, r.opts.ServerSilentDeadline),
			Codec:          r.codec,
			Validate:       o.validate,
			NewService:     func() rpc.Service[I, O] { return rpc.NewMany[I, O](sendCap, recvCap) },
		},
	}
}

// DuplexHandle is one live duplex session.
type DuplexHandle[I, O any] struct {
	svc rpc.Service[I, O]
	st  *task.Task
}

// Open starts a duplex session. A route object may hold several.
func (d *DuplexSend[I, O]) Open(t *task.Task) (*DuplexHandle[I, O], error) {
	sock, _, err := d.m.router.connection()
	if err != nil {
		return nil, err
	}
	svc, st := d.init.Start(t, sock)
	return &DuplexHandle[I, O]{svc: svc, st: st}, nil
}

// Send offers the next outbound value, failing with ErrSendFailed while
// the buffer is full.
func (h *DuplexHandle[I, O]) Send(v I) error {
	if !h.svc.LoadInternal(&v) {
		return ErrSendFailed
	}
	return nil
}

// Recv takes the next inbound value.
func (h *DuplexHandle[I, O]) Recv(t *task.Task) (O, error) {
	return h.svc.TakeExternal(t)
}

// Close ends the outbound stream.
func (h *DuplexHandle[I, O]) Close() {
	h.svc.LoadInternal(nil)
}

// Task returns the session task.
func (h *DuplexHandle[I, O]) Task() *task.Task {
	return h.st
}

// DuplexPeer is the responder's view of one duplex session.
type DuplexPeer[I, O any] struct {
	svc rpc.Service[O, I]
}

// Recv takes the next inbound value.
func (p *DuplexPeer[I, O]) Recv(t *task.Task) (I, error) {
	return p.svc.TakeExternal(t)
}

// Send offers the next outbound value.
func (p *DuplexPeer[I, O]) Send(v O) error {
	if !p.svc.LoadInternal(&v) {
		return ErrSendFailed
	}
	return nil
}

// Close ends the outbound stream.
func (p *DuplexPeer[I, O]) Close() {
	p.svc.LoadInternal(nil)
}

// RecvDuplex registers the responder side of a duplex route. The
// handler owns the session's peer view for its lifetime.
func RecvDuplex[I, O any](r *Router, sendCap, recvCap int, h func(t *task.Task, p *DuplexPeer[I, O]), options ...Option) {
	o := applyOpts(options)
	m := r.register(true, o.key)
	ep := &rpc.Endpoint[O, I]{
		Key:            m.key,
		AckDeadline:    pick(o.ack, r.opts.AckDeadline),
		SilentDeadline: pick(o.silent, r.opts.ClientSilentDeadline),
		Codec:          r.codec,
		Validate:       o.validate,
		NewService:     func() rpc.Service[O, I] { return rpc.NewMany[O, I](sendCap, recvCap) },
		Serve: func(st *task.Task, svc rpc.Service[O, I]) {
			h(st, &DuplexPeer[I, O]{svc: svc})
		},
	}
	m.start = func(sock socket.Socket) *task.Task { return ep.Start(sock) }
}
