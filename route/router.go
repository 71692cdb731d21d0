// Package route is the typed surface over the runtime: a Router issues
// stable keys to routes, and five route shapes expose the service
// queues as unary calls, channels, one-way streams, listens and duplex
// streams.
package route

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/duplexkit/duplex-go/codec"
	"github.com/duplexkit/duplex-go/logger"
	"github.com/duplexkit/duplex-go/config"
	"github.com/duplexkit/duplex-go/socket"
	"github.com/duplexkit/duplex-go/task"
)

var (
	// ErrSendFailed is returned when a value cannot be loaded into a
	// full or terminal service queue.
	ErrSendFailed = errors.New("route: failed to send")

	// ErrNotStarted is returned by send-side operations before Start.
	ErrNotStarted = errors.New("route: router not started")

	// ErrStarted is returned by Start on a started router.
	ErrStarted = errors.New("route: router already started")
)

// Router issues route keys and owns one connection's worth of routes.
// Registration happens before Start; responder routes bind their
// handlers at registration and are wired onto the socket when Start
// runs.
type Router struct {
	mu      sync.Mutex
	opts    config.Options
	codec   codec.Codec
	nextKey uint16
	keys    map[uint16]bool
	routes  []*meta
	started bool
	sock    socket.Socket
	root    *task.Task
}

// NewRouter returns a router carrying the given options. Configuration
// errors are fatal at bind time.
func NewRouter(o config.Options) *Router {
	c, err := o.Codec()
	if err != nil {
		panic(err.Error())
	}
	return &Router{opts: o, codec: c, keys: make(map[uint16]bool)}
}

type meta struct {
	router    *Router
	key       uint16
	responder bool
	start     func(sock socket.Socket) *task.Task
}

func (r *Router) register(responder bool, key *uint16) *meta {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		panic("route: registration after start")
	}
	var k uint16
	if key != nil {
		k = *key
	} else {
		for r.keys[r.nextKey] {
			r.nextKey++
		}
		k = r.nextKey
		r.nextKey++
	}
	if r.keys[k] {
		panic(fmt.Sprintf("route: duplicate key %d", k))
	}
	r.keys[k] = true
	m := &meta{router: r, key: k, responder: responder}
	r.routes = append(r.routes, m)
	return m
}

// Start binds every responder route onto sock and enables the send
// side. The returned root task cancels when the socket closes;
// resolving it tears every endpoint down.
func (r *Router) Start(sock socket.Socket) (*task.Task, error) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return nil, ErrStarted
	}
	for _, m := range r.routes {
		if m.responder && m.start == nil {
			r.mu.Unlock()
			return nil, fmt.Errorf("route: key %d not bound", m.key)
		}
	}
	r.started = true
	r.sock = sock
	root := task.New()
	r.root = root
	routes := append([]*meta(nil), r.routes...)
	r.mu.Unlock()

	logger.Debug("route: router started",
		zap.String("conn", xid.New().String()), zap.Int("routes", len(routes)))
	go func() {
		select {
		case <-sock.Closed():
			root.Cancel("socket closed")
		case <-root.Done():
		}
	}()
	for _, m := range routes {
		if !m.responder {
			continue
		}
		ep := m.start(sock)
		go func(ep *task.Task) {
			select {
			case <-root.Done():
				reason, _ := root.Reason()
				ep.Cancel(reason)
			case <-ep.Done():
			}
		}(ep)
	}
	return root, nil
}

// connection returns the started socket and root task for send-side
// routes.
func (r *Router) connection() (socket.Socket, *task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return nil, nil, ErrNotStarted
	}
	return r.sock, r.root, nil
}

// Option adjusts one route's registration.
type Option func(*routeOpts)

type routeOpts struct {
	key      *uint16
	ack      *time.Duration
	silent   *time.Duration
	validate func(interface{}) bool
}

// WithKey pins an explicit route key instead of the next sequential
// one.
func WithKey(k uint16) Option {
	return func(o *routeOpts) { o.key = &k }
}

// WithAckDeadline overrides the router's ack deadline for this route.
func WithAckDeadline(d time.Duration) Option {
	return func(o *routeOpts) { o.ack = &d }
}

// WithSilentDeadline overrides the silent deadline observed by this
// route's side of its sessions.
func WithSilentDeadline(d time.Duration) Option {
	return func(o *routeOpts) { o.silent = &d }
}

// WithValidator installs a boundary validator for inbound decoded
// values. A false return drops the payload silently.
func WithValidator(f func(interface{}) bool) Option {
	return func(o *routeOpts) { o.validate = f }
}

func applyOpts(options []Option) routeOpts {
	var o routeOpts
	for _, fn := range options {
		fn(&o)
	}
	return o
}

func pick(override *time.Duration, fallback time.Duration) time.Duration {
	if override != nil {
		return *override
	}
	return fallback
}
