package route

import (
	"go.uber.org/zap"

	"github.com/duplexkit/duplex-go/logger"
	"github.com/duplexkit/duplex-go/rpc"
	"github.com/duplexkit/duplex-go/socket"
	"github.com/duplexkit/duplex-go/task"
)

// UnarySend is the initiator side of a unary route: one message, one
// reply per session.
type UnarySend[I, O any] struct {
	m    *meta
	init *rpc.Initiate[I, O]
}

// Send registers the initiator side of a unary route.
func Send[I, O any](r *Router, options ...Option) *UnarySend[I, O] {
	o := applyOpts(options)
	m := r.register(false, o.key)
	return &UnarySend[I, O]{
		m: m,
		init: &rpc.Initiate[I, O]{
			Key:            m.key,
			AckDeadline:    pick(o.ack, r.opts.AckDeadline),
			SilentDeadline: pick(o.silent, r.opts.ServerSilentDeadline),
			Codec:          r.codec,
			Validate:       o.validate,
			NewService:     func() rpc.Service[I, O] { return rpc.NewOnce[I, O]() },
		},
	}
}

// Send opens a session, sends v and waits for the reply.
func (u *UnarySend[I, O]) Send(t *task.Task, v I) (O, error) {
	var zero O
	sock, _, err := u.m.router.connection()
	if err != nil {
		return zero, err
	}
	svc, st := u.init.Start(t, sock)
	if !svc.LoadInternal(&v) {
		st.Cancel("load failed")
		return zero, ErrSendFailed
	}
	reply, err := svc.TakeExternal(st)
	if err != nil {
		return zero, err
	}
	return reply, nil
}

// UnaryRecv is the responder side of a unary route.
type UnaryRecv[I, O any] struct {
	m *meta
}

// Recv registers the responder side of a unary route. Each inbound
// session takes one request through the handler and replies with its
// result. A handler error cancels the session.
func Recv[I, O any](r *Router, h func(v I) (O, error), options ...Option) *UnaryRecv[I, O] {
	o := applyOpts(options)
	m := r.register(true, o.key)
	ep := &rpc.Endpoint[O, I]{
		Key:            m.key,
		AckDeadline:    pick(o.ack, r.opts.AckDeadline),
		SilentDeadline: pick(o.silent, r.opts.ClientSilentDeadline),
		Codec:          r.codec,
		Validate:       o.validate,
		NewService:     func() rpc.Service[O, I] { return rpc.NewOnce[O, I]() },
		Serve: func(st *task.Task, svc rpc.Service[O, I]) {
			req, err := svc.TakeExternal(st)
			if err != nil {
				return
			}
			out, err := h(req)
			if err != nil {
				logger.Warn("route: unary handler failed", zap.Error(err))
				st.Cancel("handler error: " + err.Error())
				return
			}
			svc.LoadInternal(&out)
		},
	}
	m.start = func(sock socket.Socket) *task.Task { return ep.Start(sock) }
	return &UnaryRecv[I, O]{m: m}
}
