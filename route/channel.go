package route

import (
	"sync"

	"go.uber.org/zap"

	"github.com/duplexkit/duplex-go/logger"
	"github.com/duplexkit/duplex-go/rpc"
	"github.com/duplexkit/duplex-go/socket"
	"github.com/duplexkit/duplex-go/task"
)

// ChannelSend is the initiator side of a channel route: sequenced
// request/reply pairs over one session, each input yielding exactly one
// output in series.
type ChannelSend[I, O any] struct {
	m    *meta
	init *rpc.Initiate[I, O]

	mu  sync.Mutex
	svc rpc.Service[I, O]
	st  *task.Task
}

// SendChannel registers the initiator side of a channel route with
// equal buffer capacity each way.
func SendChannel[I, O any](r *Router, capacity int, options ...Option) *ChannelSend[I, O] {
	o := applyOpts(options)
	m := r.register(false, o.key)
	return &ChannelSend[I, O]{
		m: m,
		init: &rpc.Initiate[I, O]{
			Key:            m.key,
			AckDeadline:    pick(o.ack, r.opts.AckDeadline),
			SilentDeadline: pick(o.silent, r.opts.ServerSilentDeadline),
			Codec:          r.codec,
			Validate:       o.validate,
			NewService:     func() rpc.Service[I, O] { return rpc.NewMany[I, O](capacity, capacity) },
		},
	}
}

// Open starts the route's session. A route object opens once.
func (c *ChannelSend[I, O]) Open(t *task.Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.svc != nil {
		return ErrStarted
	}
	sock, _, err := c.m.router.connection()
	if err != nil {
		return err
	}
	c.svc, c.st = c.init.Start(t, sock)
	return nil
}

// Send offers the next input. It fails with ErrSendFailed while the
// send buffer is full, leaving the caller to decide how to handle it.
func (c *ChannelSend[I, O]) Send(v I) error {
	c.mu.Lock()
	svc := c.svc
	c.mu.Unlock()
	if svc == nil {
		return ErrNotStarted
	}
	if !svc.LoadInternal(&v) {
		return ErrSendFailed
	}
	return nil
}

// Recv takes the next reply.
func (c *ChannelSend[I, O]) Recv(t *task.Task) (O, error) {
	c.mu.Lock()
	svc := c.svc
	c.mu.Unlock()
	if svc == nil {
		var zero O
		return zero, ErrNotStarted
	}
	return svc.TakeExternal(t)
}

// Close ends the outbound stream; the session terminates once buffered
// inputs drain.
func (c *ChannelSend[I, O]) Close() {
	c.mu.Lock()
	svc := c.svc
	c.mu.Unlock()
	if svc != nil {
		svc.LoadInternal(nil)
	}
}

// Task returns the session task, nil before Open.
func (c *ChannelSend[I, O]) Task() *task.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st
}

// RecvChannel registers the responder side of a channel route. The
// handler runs in series: every input produces one output. A handler
// error cancels the session.
func RecvChannel[I, O any](r *Router, capacity int, h func(v I) (O, error), options ...Option) {
	o := applyOpts(options)
	m := r.register(true, o.key)
	ep := &rpc.Endpoint[O, I]{
		Key:            m.key,
		AckDeadline:    pick(o.ack, r.opts.AckDeadline),
		SilentDeadline: pick(o.silent, r.opts.ClientSilentDeadline),
		Codec:          r.codec,
		Validate:       o.validate,
		NewService:     func() rpc.Service[O, I] { return rpc.NewMany[O, I](capacity, capacity) },
		Serve: func(st *task.Task, svc rpc.Service[O, I]) {
			for {
				v, err := svc.TakeExternal(st)
				if err != nil {
					return
				}
				out, err := h(v)
				if err != nil {
					logger.Warn("route: channel handler failed", zap.Error(err))
					st.Cancel("handler error: " + err.Error())
					return
				}
				svc.LoadInternal(&out)
			}
		},
	}
	m.start = func(sock socket.Socket) *task.Task { return ep.Start(sock) }
}
