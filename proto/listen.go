package proto

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/duplexkit/duplex-go/frame"
	"github.com/duplexkit/duplex-go/logger"
	"github.com/duplexkit/duplex-go/metrics"
	"github.com/duplexkit/duplex-go/socket"
	"github.com/duplexkit/duplex-go/task"
)

// Listen drives the receiver half of a session: claim the next expected
// step, await its MSG under the silent deadline, deliver the payload to
// the consumer and only then emit the ACK. MSGs at any other step are
// never delivered and never ACKed.
func Listen(sock socket.Socket, key, nonce uint16, t *task.Task, step *Step, silent time.Duration, push Push) error {
	for {
		if _, done := t.Reason(); done {
			return t.Err()
		}
		s := step.Next()
		sub := t.Subtask()
		sub.Deadline(silent, "listen")

		b, err := sock.Recv(sub, msgFilter(key, nonce, s))
		if err != nil {
			reason := reasonOf(err)
			sub.Cancel(reason)
			push(nil, &task.CancelledError{Reason: reason})
			t.Cancel(reason)
			if strings.HasPrefix(reason, "timeout: ") {
				metrics.DeadlineExpirations.WithLabelValues("listen").Inc()
			}
			logger.Debug("listen: receive failed",
				zap.Uint16("key", key), zap.Uint16("nonce", nonce),
				zap.Uint32("step", s), zap.String("reason", reason))
			return err
		}
		metrics.FramesReceived.WithLabelValues("MSG").Inc()

		_, payload, _ := frame.Parse(b)
		body, _ := frame.MatchStep(s, payload)
		push(body, nil)

		err = sock.Send(frame.Brand(frame.Header{Type: frame.Ack, Key: key, Nonce: nonce}, frame.BrandStep(s, nil)))
		if err != nil {
			sub.Cancel("send failed")
			t.Cancel(err.Error())
			return err
		}
		metrics.FramesSent.WithLabelValues("ACK").Inc()
		sub.Cleanup("delivered")
	}
}
