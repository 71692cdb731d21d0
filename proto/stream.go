package proto

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/duplexkit/duplex-go/frame"
	"github.com/duplexkit/duplex-go/logger"
	"github.com/duplexkit/duplex-go/metrics"
	"github.com/duplexkit/duplex-go/socket"
	"github.com/duplexkit/duplex-go/task"
)

// Pull produces the next outbound payload for a session, or nil to end
// the stream normally.
type Pull func(t *task.Task) ([]byte, error)

// Push delivers an inbound payload to the session consumer. A non-nil
// error carries the terminal reason instead of a payload.
type Push func(p []byte, err error)

func reasonOf(err error) string {
	var ce *task.CancelledError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return err.Error()
}

// Stream drives the sender half of a session: pull a payload, claim the
// next step, emit MSG and await its ACK under the ack deadline before
// pulling again. A nil payload ends the stream; any failure cancels the
// session task with the reason.
func Stream(sock socket.Socket, key, nonce uint16, t *task.Task, step *Step, ackWait time.Duration, pull Pull) error {
	for {
		if _, done := t.Reason(); done {
			return t.Err()
		}
		payload, err := pull(t)
		if err != nil {
			t.Cancel(reasonOf(err))
			return err
		}
		if payload == nil {
			return nil
		}

		s := step.Next()
		sub := t.Subtask()
		sub.Deadline(ackWait, "send ack")
		err = sock.Send(frame.Brand(frame.Header{Type: frame.Msg, Key: key, Nonce: nonce}, frame.BrandStep(s, payload)))
		if err != nil {
			sub.Cancel("send failed")
			t.Cancel(err.Error())
			return err
		}
		metrics.FramesSent.WithLabelValues("MSG").Inc()

		_, err = sock.Recv(sub, ackFilter(key, nonce, s))
		if err != nil {
			reason := reasonOf(err)
			sub.Cancel(reason)
			t.Cancel(reason)
			if strings.HasPrefix(reason, "timeout: ") {
				metrics.DeadlineExpirations.WithLabelValues("send ack").Inc()
			}
			logger.Debug("stream: ack wait failed",
				zap.Uint16("key", key), zap.Uint16("nonce", nonce),
				zap.Uint32("step", s), zap.String("reason", reason))
			return err
		}
		metrics.FramesReceived.WithLabelValues("ACK").Inc()
		sub.Cleanup("acked")
	}
}
