package task

import (
	"testing"
	"time"
)

func TestCancelStable(t *testing.T) {
	tk := New()
	if _, done := tk.Reason(); done {
		t.Fatal("fresh task already resolved")
	}
	tk.Cancel("first")
	tk.Cancel("second")
	tk.Cleanup("third")
	reason, done := tk.Reason()
	if !done || reason != "first" {
		t.Fatalf("reason: %q done=%v", reason, done)
	}
	select {
	case <-tk.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestCleanupPrefix(t *testing.T) {
	tk := New()
	tk.Cleanup("stream finished")
	reason, _ := tk.Reason()
	if reason != "cleanup: stream finished" {
		t.Fatalf("reason: %q", reason)
	}
}

func TestDeadline(t *testing.T) {
	tk := New()
	tk.Deadline(30*time.Millisecond, "send ack")
	select {
	case <-tk.Done():
	case <-time.After(time.Second):
		t.Fatal("deadline never fired")
	}
	reason, _ := tk.Reason()
	if reason != "timeout: send ack" {
		t.Fatalf("reason: %q", reason)
	}
}

func TestDeadlineForever(t *testing.T) {
	tk := New()
	tk.Deadline(Forever, "never")
	select {
	case <-tk.Done():
		t.Fatal("forever deadline fired")
	case <-time.After(50 * time.Millisecond):
	}
	tk.Cleanup("done")
}

func TestCleanupClearsDeadline(t *testing.T) {
	tk := New()
	tk.Deadline(20*time.Millisecond, "x")
	tk.Cleanup("early")
	time.Sleep(50 * time.Millisecond)
	reason, _ := tk.Reason()
	if reason != "cleanup: early" {
		t.Fatalf("reason: %q", reason)
	}
}

func TestSubtask(t *testing.T) {
	parent := New()
	child := parent.Subtask()
	parent.Cancel("shutting down")
	select {
	case <-child.Done():
	case <-time.After(time.Second):
		t.Fatal("child never cancelled")
	}
	reason, _ := child.Reason()
	if reason != "parent cancelled: shutting down" {
		t.Fatalf("child reason: %q", reason)
	}
}

func TestSubtaskIndependentResolve(t *testing.T) {
	parent := New()
	child := parent.Subtask()
	child.Cleanup("done early")
	parent.Cancel("later")
	reason, _ := child.Reason()
	if reason != "cleanup: done early" {
		t.Fatalf("child reason overwritten: %q", reason)
	}
}

func TestRace(t *testing.T) {
	tk := New()
	ch := make(chan int, 1)
	ch <- 42
	v, err := Race(tk, ch)
	if err != nil || v != 42 {
		t.Fatalf("race value: %d err=%v", v, err)
	}

	tk2 := New()
	tk2.Cancel("lost")
	_, err = Race(tk2, make(chan int))
	ce, ok := err.(*CancelledError)
	if !ok || ce.Reason != "lost" {
		t.Fatalf("race error: %v", err)
	}
}
