package route

import (
	"github.com/duplexkit/duplex-go/rpc"
	"github.com/duplexkit/duplex-go/socket"
	"github.com/duplexkit/duplex-go/task"
)

// ListenSend is the initiator side of a listen route: one input, a
// stream of outputs.
type ListenSend[I, O any] struct {
	m    *meta
	init *rpc.Initiate[I, O]
}

// SendListen registers the initiator side of a listen route. The single
// input gets a queue of one; outputs buffer up to buffer values.
func SendListen[I, O any](r *Router, buffer int, options ...Option) *ListenSend[I, O] {
	o := applyOpts(options)
	m := r.register(false, o.key)
	return &ListenSend[I, O]{
		m: m,
		init: &rpc.Initiate[I, O]{
			Key:            m.key,
			AckDeadline:    pick(o.ack, r.opts.AckDeadline),
			SilentDeadline: pick(o.silent, r.opts.ServerSilentDeadline),
			Codec:          r.codec,
			Validate:       o.validate,
			NewService:     func() rpc.Service[I, O] { return rpc.NewMany[I, O](1, buffer) },
		},
	}
}

// ListenHandle is one live listen session on the initiator side.
type ListenHandle[I, O any] struct {
	svc rpc.Service[I, O]
	st  *task.Task
}

// Call opens a session carrying v and returns the handle the outputs
// arrive on. As with unary, and unlike channel and stream routes, a
// route object may hold several concurrent sessions.
func (l *ListenSend[I, O]) Call(t *task.Task, v I) (*ListenHandle[I, O], error) {
	sock, _, err := l.m.router.connection()
	if err != nil {
		return nil, err
	}
	svc, st := l.init.Start(t, sock)
	if !svc.LoadInternal(&v) {
		st.Cancel("load failed")
		return nil, ErrSendFailed
	}
	return &ListenHandle[I, O]{svc: svc, st: st}, nil
}

// Next takes the next output.
func (h *ListenHandle[I, O]) Next(t *task.Task) (O, error) {
	return h.svc.TakeExternal(t)
}

// Close ends the session from the initiator side.
func (h *ListenHandle[I, O]) Close() {
	h.svc.LoadInternal(nil)
}

// Task returns the session task.
func (h *ListenHandle[I, O]) Task() *task.Task {
	return h.st
}

// RecvListen registers the responder side of a listen route. The
// handler receives the input and an emit function; emit reports false
// when the output buffer is full. The output stream closes when the
// handler returns.
func RecvListen[I, O any](r *Router, buffer int, h func(v I, emit func(O) bool), options ...Option) {
	o := applyOpts(options)
	m := r.register(true, o.key)
	ep := &rpc.Endpoint[O, I]{
		Key:            m.key,
		AckDeadline:    pick(o.ack, r.opts.AckDeadline),
		SilentDeadline: pick(o.silent, r.opts.ClientSilentDeadline),
		Codec:          r.codec,
		Validate:       o.validate,
		NewService:     func() rpc.Service[O, I] { return rpc.NewMany[O, I](buffer, buffer) },
		Serve: func(st *task.Task, svc rpc.Service[O, I]) {
			v, err := svc.TakeExternal(st)
			if err != nil {
				return
			}
			h(v, func(out O) bool { return svc.LoadInternal(&out) })
			svc.LoadInternal(nil)
		},
	}
	m.start = func(sock socket.Socket) *task.Task { return ep.Start(sock) }
}
