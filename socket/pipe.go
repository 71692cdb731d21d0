package socket

// Pipe returns two virtual sockets with their outboxes cross-connected,
// the in-memory transport used by tests and in-process peers.
func Pipe(capacity int) (*Virtual, *Virtual) {
	a := NewVirtual(capacity, capacity)
	b := NewVirtual(capacity, capacity)
	a.ConnectSink(func(p []byte) error {
		b.Feed(p)
		return nil
	})
	b.ConnectSink(func(p []byte) error {
		a.Feed(p)
		return nil
	})
	return a, b
}
