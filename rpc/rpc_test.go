package rpc

import (
	"sync"
	"testing"
	"time"

	"github.com/duplexkit/duplex-go/codec"
	"github.com/duplexkit/duplex-go/socket"
	"github.com/duplexkit/duplex-go/task"
)

type payload struct {
	Val int
}

func newDoubler(key uint16, subCh chan *task.Task) *Endpoint[payload, payload] {
	return &Endpoint[payload, payload]{
		Key:            key,
		AckDeadline:    time.Second,
		SilentDeadline: 2 * time.Second,
		Codec:          codec.JSONCodec{},
		NewService:     func() Service[payload, payload] { return NewOnce[payload, payload]() },
		Serve: func(st *task.Task, svc Service[payload, payload]) {
			if subCh != nil {
				subCh <- st
			}
			req, err := svc.TakeExternal(st)
			if err != nil {
				return
			}
			out := payload{Val: req.Val * 2}
			svc.LoadInternal(&out)
		},
	}
}

func newInitiate(key uint16) *Initiate[payload, payload] {
	return &Initiate[payload, payload]{
		Key:            key,
		AckDeadline:    time.Second,
		SilentDeadline: 2 * time.Second,
		Codec:          codec.JSONCodec{},
		NewService:     func() Service[payload, payload] { return NewOnce[payload, payload]() },
	}
}

func TestUnaryRoundTrip(t *testing.T) {
	sa, sb := socket.Pipe(64)
	subCh := make(chan *task.Task, 4)
	root := newDoubler(0xDEAD, subCh).Start(sb)
	defer root.Cleanup("test over")

	tk := task.New()
	defer tk.Cleanup("test over")
	svc, st := newInitiate(0xDEAD).Start(tk, sa)
	in := payload{Val: 21}
	if !svc.LoadInternal(&in) {
		t.Fatal("load failed")
	}
	reply, err := svc.TakeExternal(st)
	if err != nil {
		t.Fatal(err)
	}
	if reply.Val != 42 {
		t.Fatalf("reply: %d", reply.Val)
	}

	select {
	case <-st.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("initiator session never resolved")
	}
	if reason, _ := st.Reason(); reason != "cleanup: connect stream finished" {
		t.Fatalf("initiator reason: %q", reason)
	}

	sub := <-subCh
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("responder session never resolved")
	}
	// Either the responder's own stream finished first or the
	// initiator's TERM won the race; both are orderly teardowns.
	reason, _ := sub.Reason()
	if reason != "cleanup: channel stream finished" && reason != "cleanup: term received" {
		t.Fatalf("responder reason: %q", reason)
	}
}

// Concurrent sessions on one key stay isolated by nonce.
func TestConcurrentSessions(t *testing.T) {
	sa, sb := socket.Pipe(256)
	root := newDoubler(7, nil).Start(sb)
	defer root.Cleanup("test over")

	tk := task.New()
	defer tk.Cleanup("test over")
	init := newInitiate(7)

	inputs := []int{10, 300, 4000}
	results := make([]int, len(inputs))
	var wg sync.WaitGroup
	for i, val := range inputs {
		wg.Add(1)
		go func(i, val int) {
			defer wg.Done()
			svc, st := init.Start(tk, sa)
			in := payload{Val: val}
			if !svc.LoadInternal(&in) {
				t.Error("load failed")
				return
			}
			reply, err := svc.TakeExternal(st)
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = reply.Val
		}(i, val)
	}
	wg.Wait()
	for i, val := range inputs {
		if results[i] != val*2 {
			t.Fatalf("session %d: got %d, want %d", i, results[i], val*2)
		}
	}
}

func TestOnceShape(t *testing.T) {
	s := NewOnce[int, string]()
	v := 5
	if !s.LoadInternal(&v) {
		t.Fatal("first load rejected")
	}
	w := 6
	if s.LoadInternal(&w) {
		t.Fatal("second load accepted")
	}
	if !s.External("reply") {
		t.Fatal("external rejected")
	}
	if s.External("again") {
		t.Fatal("second external accepted")
	}

	tk := task.New()
	defer tk.Cleanup("test over")
	got, err := s.Internal(tk)
	if err != nil || got == nil || *got != 5 {
		t.Fatalf("internal: %v err=%v", got, err)
	}
	// second internal ends the stream once the external value landed
	got, err = s.Internal(tk)
	if err != nil || got != nil {
		t.Fatalf("internal end: %v err=%v", got, err)
	}
	r, err := s.TakeExternal(tk)
	if err != nil || r != "reply" {
		t.Fatalf("take external: %q err=%v", r, err)
	}
	if _, err := s.TakeExternal(tk); err != ErrDone {
		t.Fatalf("second take: %v", err)
	}
}

func TestOnceSurvivesDropRace(t *testing.T) {
	s := NewOnce[int, string]()
	s.External("late reply")
	s.Drop()
	tk := task.New()
	defer tk.Cleanup("test over")
	r, err := s.TakeExternal(tk)
	if err != nil || r != "late reply" {
		t.Fatalf("loaded value lost on drop: %q err=%v", r, err)
	}
}

func TestManyShape(t *testing.T) {
	s := NewMany[int, int](2, 2)
	one, two, three := 1, 2, 3
	if !s.LoadInternal(&one) || !s.LoadInternal(&two) {
		t.Fatal("loads rejected")
	}
	if s.LoadInternal(&three) {
		t.Fatal("load accepted beyond capacity")
	}
	if !s.LoadInternal(nil) {
		t.Fatal("close rejected")
	}

	tk := task.New()
	defer tk.Cleanup("test over")
	for want := 1; want <= 2; want++ {
		v, err := s.Internal(tk)
		if err != nil || v == nil || *v != want {
			t.Fatalf("internal: %v err=%v", v, err)
		}
	}
	v, err := s.Internal(tk)
	if err != nil || v != nil {
		t.Fatalf("close marker: %v err=%v", v, err)
	}
}
