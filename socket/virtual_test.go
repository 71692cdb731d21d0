package socket

import (
	"bytes"
	"testing"
	"time"

	"github.com/duplexkit/duplex-go/task"
)

func TestPipeRoundTrip(t *testing.T) {
	a, b := Pipe(16)
	msg := []byte{1, 2, 3}
	if err := a.Send(msg); err != nil {
		t.Fatal(err)
	}
	tk := task.New()
	defer tk.Cleanup("test over")
	got, err := b.Recv(tk, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, msg) {
		t.Fatalf("recv: %v", got)
	}
}

func TestRecvPredicateDiscards(t *testing.T) {
	a, b := Pipe(16)
	a.Send([]byte{9})
	a.Send([]byte{1})
	tk := task.New()
	defer tk.Cleanup("test over")
	got, err := b.Recv(tk, func(p []byte) bool { return p[0] == 1 })
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 1 {
		t.Fatalf("recv: %v", got)
	}
}

func TestMultiplexBroadcast(t *testing.T) {
	a, b := Pipe(16)
	_ = a
	m := b.Multiplex()
	a.Send([]byte{7})
	tk := task.New()
	defer tk.Cleanup("test over")
	if got, _ := b.Recv(tk, nil); got[0] != 7 {
		t.Fatal("original handle missed frame")
	}
	if got, _ := m.Recv(tk, nil); got[0] != 7 {
		t.Fatal("multiplexed handle missed frame")
	}
}

func TestDropSiblingLeavesOthers(t *testing.T) {
	a, b := Pipe(16)
	m := b.Multiplex()
	m.Drop()
	select {
	case <-m.Closed():
	default:
		t.Fatal("dropped handle not closed")
	}
	a.Send([]byte{5})
	tk := task.New()
	defer tk.Cleanup("test over")
	if got, err := b.Recv(tk, nil); err != nil || got[0] != 5 {
		t.Fatalf("sibling broken after drop: %v err=%v", got, err)
	}
}

func TestDropLastClosesOutbox(t *testing.T) {
	v := NewVirtual(4, 4)
	m := v.Multiplex()
	v.Drop()
	if err := m.Send([]byte{1}); err != nil {
		t.Fatalf("outbox closed early: %v", err)
	}
	m.Drop()
	if err := m.Send([]byte{1}); err != ErrDropped {
		t.Fatalf("send after last drop: %v", err)
	}
	select {
	case <-v.Released():
	case <-time.After(time.Second):
		t.Fatal("released never resolved")
	}
}

func TestOutboxBuffersUntilSink(t *testing.T) {
	v := NewVirtual(4, 4)
	v.Send([]byte{1})
	v.Send([]byte{2})
	var sunk [][]byte
	err := v.ConnectSink(func(p []byte) error {
		sunk = append(sunk, p)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	v.Send([]byte{3})
	if len(sunk) != 3 || sunk[0][0] != 1 || sunk[2][0] != 3 {
		t.Fatalf("sink: %v", sunk)
	}
	if err := v.ConnectSink(func([]byte) error { return nil }); err == nil {
		t.Fatal("second sink accepted")
	}
}

func TestDropAll(t *testing.T) {
	a, b := Pipe(16)
	m := b.Multiplex()
	b.DropAll()
	select {
	case <-b.Closed():
	default:
		t.Fatal("handle not closed by DropAll")
	}
	select {
	case <-m.Closed():
	default:
		t.Fatal("sibling not closed by DropAll")
	}
	tk := task.New()
	defer tk.Cleanup("test over")
	if _, err := b.Recv(tk, nil); err != ErrDropped {
		t.Fatalf("recv after DropAll: %v", err)
	}
	_ = a
}

func TestRecvCancelled(t *testing.T) {
	_, b := Pipe(16)
	tk := task.New()
	errs := make(chan error, 1)
	go func() {
		_, err := b.Recv(tk, nil)
		errs <- err
	}()
	time.Sleep(20 * time.Millisecond)
	tk.Cancel("abort")
	select {
	case err := <-errs:
		if _, ok := err.(*task.CancelledError); !ok {
			t.Fatalf("recv error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("recv never aborted")
	}
}
