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

// CreateHandle produces the pull and push ends of a fresh service bound
// to one session task.
type CreateHandle func(t *task.Task) (Pull, Push)

// Channel runs the responder accept loop for one route key. Each
// iteration waits for a SIG INIT at step 0, captures the initiator's
// nonce from the frame header and serves that session concurrently
// before returning to wait for the next one. A session whose INIT never
// arrives within the silent deadline is discarded and the loop retries.
func Channel(sock socket.Socket, key uint16, t *task.Task, ackWait, silent time.Duration, create CreateHandle) error {
	for {
		if _, done := t.Reason(); done {
			return t.Err()
		}
		sub := t.Subtask()
		ssock := sock.Multiplex()
		pull, push := create(sub)
		steps := NewStep()
		initStep := steps.Next()

		isub := sub.Subtask()
		isub.Deadline(silent, "sig init")
		b, err := ssock.Recv(isub, sigFilter(key, nil, &initStep, frame.SignalInit))
		if err != nil {
			reason := reasonOf(err)
			isub.Cancel(reason)
			sub.Cancel(reason)
			ssock.Drop()
			if _, done := t.Reason(); done {
				return t.Err()
			}
			continue
		}
		isub.Cleanup("sig init received")
		metrics.FramesReceived.WithLabelValues("SIG").Inc()
		metrics.SessionsAccepted.Inc()

		h, _, _ := frame.Parse(b)
		logger.Debug("channel: session accepted",
			zap.Uint16("key", key), zap.Uint16("nonce", h.Nonce))
		go serve(sock, ssock, key, h.Nonce, sub, steps, initStep, ackWait, silent, pull, push)
	}
}

// serve binds one accepted session: inbound listen on its own handle,
// INIT acknowledgement, a TERM watcher, and the outbound stream.
func serve(root, ssock socket.Socket, key, nonce uint16, sub *task.Task, steps *Step, initStep uint32, ackWait, silent time.Duration, pull Pull, push Push) {
	recvSteps := steps.Clone()
	lsock := root.Multiplex()
	go Listen(lsock, key, nonce, sub, recvSteps, silent, push)

	// The ACK carries the nonce captured from the INIT header; the
	// initiator filters on it.
	err := ssock.Send(frame.Brand(frame.Header{Type: frame.Ack, Key: key, Nonce: nonce}, frame.BrandStep(initStep, nil)))
	if err != nil {
		sub.Cancel(err.Error())
	}
	metrics.FramesSent.WithLabelValues("ACK").Inc()

	tsock := root.Multiplex()
	go func() {
		_, err := tsock.Recv(sub, sigFilter(key, &nonce, nil, frame.SignalTerm))
		if err == nil {
			metrics.FramesReceived.WithLabelValues("SIG").Inc()
			sub.Cleanup("term received")
			metrics.SessionsClosed.WithLabelValues("term").Inc()
		}
	}()

	err = Stream(ssock, key, nonce, sub, steps, ackWait, pull)
	if err == nil {
		sub.Cleanup("channel stream finished")
		metrics.SessionsClosed.WithLabelValues("finished").Inc()
	}
	lsock.Drop()
	tsock.Drop()
	ssock.Drop()
}
