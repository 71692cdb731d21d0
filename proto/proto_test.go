package proto

import (
	"bytes"
	"testing"
	"time"

	"github.com/duplexkit/duplex-go/frame"
	"github.com/duplexkit/duplex-go/socket"
	"github.com/duplexkit/duplex-go/task"
)

func TestStepCounter(t *testing.T) {
	s := NewStep()
	if s.Next() != 0 || s.Next() != 1 {
		t.Fatal("counter not sequential")
	}
	c := s.Clone()
	if c.Next() != 2 {
		t.Fatal("clone lost position")
	}
	s.Next()
	if c.Next() != 3 {
		t.Fatal("clone advancement not independent")
	}
}

func TestStreamListenInOrder(t *testing.T) {
	a, b := socket.Pipe(64)
	sender := task.New()
	receiver := task.New()
	defer sender.Cleanup("test over")
	defer receiver.Cleanup("test over")

	gotCh := make(chan []byte, 8)
	go Listen(b, 1, 1, receiver, NewStep(), time.Second, func(p []byte, err error) {
		if err == nil {
			gotCh <- p
		}
	})

	vals := [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	i := 0
	err := Stream(a, 1, 1, sender, NewStep(), time.Second, func(*task.Task) ([]byte, error) {
		if i < len(vals) {
			v := vals[i]
			i++
			return v, nil
		}
		return nil, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range vals {
		select {
		case got := <-gotCh:
			if !bytes.Equal(got, want) {
				t.Fatalf("got %q, want %q", got, want)
			}
		case <-time.After(time.Second):
			t.Fatal("payload never delivered")
		}
	}
}

// MSGs out of the expected step are neither delivered nor ACKed.
func TestListenSkipsWrongStep(t *testing.T) {
	a, b := socket.Pipe(64)
	receiver := task.New()
	defer receiver.Cleanup("test over")

	gotCh := make(chan []byte, 8)
	go Listen(b, 1, 1, receiver, NewStep(), 5*time.Second, func(p []byte, err error) {
		if err == nil {
			gotCh <- p
		}
	})

	hdr := frame.Header{Type: frame.Msg, Key: 1, Nonce: 1}
	a.Send(frame.Brand(hdr, frame.BrandStep(1, []byte("early"))))
	a.Send(frame.Brand(hdr, frame.BrandStep(0, []byte("now"))))

	select {
	case got := <-gotCh:
		if string(got) != "now" {
			t.Fatalf("delivered %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("expected step never delivered")
	}

	tk := task.New()
	defer tk.Cleanup("test over")
	if _, err := a.Recv(tk, ackFilter(1, 1, 0)); err != nil {
		t.Fatalf("ack for step 0: %v", err)
	}
	sub := tk.Subtask()
	sub.Deadline(150*time.Millisecond, "no ack expected")
	if _, err := a.Recv(sub, ackFilter(1, 1, 1)); err == nil {
		t.Fatal("wrong-step MSG was ACKed")
	}
}

// An initiator whose INIT is never acknowledged cancels with
// "timeout: sig init" after emitting the INIT exactly once.
func TestConnectInitTimeout(t *testing.T) {
	a, b := socket.Pipe(64)
	tk := task.New()

	err := Connect(a, 1, 7, tk, 100*time.Millisecond, time.Second,
		func(*task.Task) ([]byte, error) {
			t.Error("pull invoked without a session")
			return nil, nil
		},
		func([]byte, error) {})
	if err == nil {
		t.Fatal("connect succeeded without responder")
	}
	reason, done := tk.Reason()
	if !done || reason != "timeout: sig init" {
		t.Fatalf("reason: %q", reason)
	}

	btk := task.New()
	defer btk.Cleanup("test over")
	f, err := b.Recv(btk, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := frame.Brand(frame.Header{Type: frame.Sig, Key: 1, Nonce: 7}, frame.BrandSignal(0, frame.SignalInit))
	if !bytes.Equal(f, want) {
		t.Fatalf("INIT bytes:\n got %#v\nwant %#v", f, want)
	}
	sub := btk.Subtask()
	sub.Deadline(150*time.Millisecond, "single init expected")
	if _, err := b.Recv(sub, nil); err == nil {
		t.Fatal("INIT emitted more than once")
	}
}

// A responder that stops ACKing mid-stream trips the ack deadline.
func TestStreamAckTimeout(t *testing.T) {
	a, b := socket.Pipe(64)
	tk := task.New()

	go func() {
		rt := task.New()
		defer rt.Cleanup("responder done")
		// handshake
		if _, err := b.Recv(rt, nil); err != nil {
			return
		}
		b.Send(frame.Brand(frame.Header{Type: frame.Ack, Key: 1, Nonce: 7}, frame.BrandStep(0, nil)))
		// ACK the first two MSGs, then go silent
		for i := 0; i < 2; i++ {
			f, err := b.Recv(rt, nil)
			if err != nil {
				return
			}
			_, payload, _ := frame.Parse(f)
			s, _, _ := frame.ParseStep(payload)
			b.Send(frame.Brand(frame.Header{Type: frame.Ack, Key: 1, Nonce: 7}, frame.BrandStep(s, nil)))
		}
	}()

	sent := 0
	err := Connect(a, 1, 7, tk, 150*time.Millisecond, 5*time.Second,
		func(*task.Task) ([]byte, error) {
			if sent < 3 {
				sent++
				return []byte{byte(sent)}, nil
			}
			return nil, nil
		},
		func([]byte, error) {})
	if err == nil {
		t.Fatal("stream survived missing ACK")
	}
	reason, _ := tk.Reason()
	if reason != "timeout: send ack" {
		t.Fatalf("reason: %q", reason)
	}
	if sent != 3 {
		t.Fatalf("sent %d messages, want 3", sent)
	}
}

// A full handshake against the responder accept loop: the INIT is ACKed
// once, MSGs flow from step 1, and the initiator's exhausted stream
// terminates the session.
func TestChannelAcceptsSession(t *testing.T) {
	a, b := socket.Pipe(64)
	root := task.New()
	defer root.Cleanup("test over")

	gotCh := make(chan []byte, 8)
	go Channel(b, 2, root, time.Second, 2*time.Second, func(st *task.Task) (Pull, Push) {
		pull := func(pt *task.Task) ([]byte, error) {
			<-pt.Done()
			return nil, pt.Err()
		}
		push := func(p []byte, err error) {
			if err == nil {
				gotCh <- p
			}
		}
		return pull, push
	})

	tk := task.New()
	sent := false
	err := Connect(a, 2, 9, tk, time.Second, 2*time.Second,
		func(*task.Task) ([]byte, error) {
			if !sent {
				sent = true
				return []byte("ping"), nil
			}
			return nil, nil
		},
		func([]byte, error) {})
	if err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-gotCh:
		if string(got) != "ping" {
			t.Fatalf("responder got %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("responder never received the payload")
	}
	reason, _ := tk.Reason()
	if reason != "cleanup: connect stream finished" {
		t.Fatalf("initiator reason: %q", reason)
	}
}
