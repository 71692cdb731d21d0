package proto

import (
	"time"

	"go.uber.org/zap"

	"github.com/duplexkit/duplex-go/frame"
	"github.com/duplexkit/duplex-go/logger"
	"github.com/duplexkit/duplex-go/metrics"
	"github.com/duplexkit/duplex-go/socket"
	"github.com/duplexkit/duplex-go/task"
)

type recvResult struct {
	b   []byte
	err error
}

// Connect runs the initiator half of a session: reserve the handshake
// ACK, emit SIG INIT at step 0 under the ack deadline, then run the
// inbound listen on a multiplexed handle and the outbound stream on the
// main one. When the stream exhausts, the task is cleaned up, SIG TERM
// goes out at the next send step and the session handles are dropped.
func Connect(sock socket.Socket, key, nonce uint16, t *task.Task, ackWait, silent time.Duration, pull Pull, push Push) error {
	steps := NewStep()
	initStep := steps.Next()

	sub := t.Subtask()
	sub.Deadline(ackWait, "sig init")

	// Reserve the ACK before the INIT leaves, so the reply cannot slip
	// past the receiver.
	ackCh := make(chan recvResult, 1)
	go func() {
		b, err := sock.Recv(sub, ackFilter(key, nonce, initStep))
		ackCh <- recvResult{b, err}
	}()

	err := sock.Send(frame.Brand(frame.Header{Type: frame.Sig, Key: key, Nonce: nonce}, frame.BrandSignal(initStep, frame.SignalInit)))
	if err != nil {
		sub.Cancel("send failed")
		t.Cancel(err.Error())
		sock.Drop()
		return err
	}
	metrics.FramesSent.WithLabelValues("SIG").Inc()

	res := <-ackCh
	if res.err != nil {
		reason := reasonOf(res.err)
		sub.Cancel(reason)
		t.Cancel(reason)
		sock.Drop()
		logger.Debug("connect: handshake failed",
			zap.Uint16("key", key), zap.Uint16("nonce", nonce), zap.String("reason", reason))
		return res.err
	}
	sub.Cleanup("sig acked")
	metrics.SessionsOpened.Inc()

	recvSteps := steps.Clone()
	lsock := sock.Multiplex()
	go Listen(lsock, key, nonce, t, recvSteps, silent, push)

	err = Stream(sock, key, nonce, t, steps, ackWait, pull)
	if err == nil {
		t.Cleanup("connect stream finished")
		sock.Send(frame.Brand(frame.Header{Type: frame.Sig, Key: key, Nonce: nonce}, frame.BrandSignal(steps.Next(), frame.SignalTerm)))
		metrics.FramesSent.WithLabelValues("SIG").Inc()
		metrics.SessionsClosed.WithLabelValues("finished").Inc()
	} else {
		metrics.SessionsClosed.WithLabelValues("failed").Inc()
	}
	lsock.Drop()
	sock.Drop()
	return err
}
