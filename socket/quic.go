package socket

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"io"

	"github.com/quic-go/quic-go"
)

var defaultNextProtos = []string{"duplex-quic"}

// DialQUIC establishes a socket over a QUIC connection. Frames travel on
// a single bidirectional stream with a 4 byte big-endian length prefix.
func DialQUIC(addr string, tlsConf *tls.Config, outboxCap, inboxCap int) (*Virtual, error) {
	if tlsConf == nil {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}
	if len(tlsConf.NextProtos) == 0 {
		tlsConf.NextProtos = defaultNextProtos
	}
	conn, err := quic.DialAddr(context.Background(), addr, tlsConf, nil)
	if err != nil {
		return nil, err
	}
	stream, err := conn.OpenStreamSync(context.Background())
	if err != nil {
		conn.CloseWithError(0, "open stream failed")
		return nil, err
	}
	v := NewVirtual(outboxCap, inboxCap)
	bindQUIC(v, conn, stream)
	return v, nil
}

func bindQUIC(v *Virtual, conn quic.Connection, stream quic.Stream) {
	v.ConnectSink(func(p []byte) error {
		buf := make([]byte, 4, 4+len(p))
		binary.BigEndian.PutUint32(buf, uint32(len(p)))
		_, err := stream.Write(append(buf, p...))
		return err
	})
	go func() {
		defer conn.CloseWithError(0, "read finished")
		prefix := make([]byte, 4)
		for {
			if _, err := io.ReadFull(stream, prefix); err != nil {
				v.DropAll()
				return
			}
			p := make([]byte, binary.BigEndian.Uint32(prefix))
			if _, err := io.ReadFull(stream, p); err != nil {
				v.DropAll()
				return
			}
			v.Feed(p)
		}
	}()
	go func() {
		<-v.Released()
		conn.CloseWithError(0, "released")
	}()
}

// QUICListener accepts QUIC connections and hands them out as sockets.
type QUICListener struct {
	ln        *quic.Listener
	outboxCap int
	inboxCap  int
}

// ListenQUIC starts a QUIC server on addr. The TLS config must carry a
// certificate.
func ListenQUIC(addr string, tlsConf *tls.Config, outboxCap, inboxCap int) (*QUICListener, error) {
	if len(tlsConf.NextProtos) == 0 {
		tlsConf.NextProtos = defaultNextProtos
	}
	ln, err := quic.ListenAddr(addr, tlsConf, nil)
	if err != nil {
		return nil, err
	}
	return &QUICListener{ln: ln, outboxCap: outboxCap, inboxCap: inboxCap}, nil
}

// Accept waits for the next connection and its first bidirectional
// stream.
func (l *QUICListener) Accept() (*Virtual, error) {
	conn, err := l.ln.Accept(context.Background())
	if err != nil {
		return nil, err
	}
	stream, err := conn.AcceptStream(context.Background())
	if err != nil {
		conn.CloseWithError(0, "accept stream failed")
		return nil, err
	}
	v := NewVirtual(l.outboxCap, l.inboxCap)
	bindQUIC(v, conn, stream)
	return v, nil
}

func (l *QUICListener) Close() error {
	return l.ln.Close()
}
