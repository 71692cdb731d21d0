package rpc

import (
	"time"

	"github.com/duplexkit/duplex-go/codec"
	"github.com/duplexkit/duplex-go/proto"
	"github.com/duplexkit/duplex-go/socket"
	"github.com/duplexkit/duplex-go/task"
)

// Endpoint accepts inbound sessions for one route key. Each accepted
// session gets a fresh Service whose lifetime is owned by the session
// task; Serve runs the application side of the exchange.
type Endpoint[I, E any] struct {
	Key            uint16
	AckDeadline    time.Duration
	SilentDeadline time.Duration
	Codec          codec.Codec
	Validate       func(interface{}) bool
	NewService     func() Service[I, E]
	Serve          func(t *task.Task, s Service[I, E])
}

// Start runs the responder accept loop on sock. The returned root task
// cancels when the socket closes and tears the loop down when resolved.
func (e *Endpoint[I, E]) Start(sock socket.Socket) *task.Task {
	root := task.New()
	go func() {
		select {
		case <-sock.Closed():
			root.Cancel("socket closed")
		case <-root.Done():
		}
	}()
	go proto.Channel(sock, e.Key, root, e.AckDeadline, e.SilentDeadline, func(st *task.Task) (proto.Pull, proto.Push) {
		svc := e.NewService()
		go func() {
			<-st.Done()
			svc.Drop()
		}()
		if e.Serve != nil {
			go e.Serve(st, svc)
		}
		return servicePull[I, E](svc, e.Codec), servicePush[I, E](svc, e.Codec, e.Validate)
	})
	return root
}
