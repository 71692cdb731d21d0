package socket

import (
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/duplexkit/duplex-go/logger"
)

// DialWS establishes a socket over a WebSocket connection. The address
// must be a host and port; the peer is expected at the root path.
func DialWS(addr string, outboxCap, inboxCap int) (*Virtual, error) {
	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/", addr), nil)
	if err != nil {
		return nil, err
	}
	v := NewVirtual(outboxCap, inboxCap)
	bindWS(v, conn)
	return v, nil
}

// bindWS wires a WebSocket connection to a virtual socket: outbound
// buffers go out as binary messages, inbound binary messages feed the
// inboxes. Text messages are ignored per the wire contract.
func bindWS(v *Virtual, conn *websocket.Conn) {
	id := xid.New().String()
	logger.Debug("socket: websocket connected",
		zap.String("conn", id), zap.String("remote", conn.RemoteAddr().String()))
	v.ConnectSink(func(p []byte) error {
		return conn.WriteMessage(websocket.BinaryMessage, p)
	})
	go func() {
		defer conn.Close()
		for {
			mt, p, err := conn.ReadMessage()
			if err != nil {
				logger.Debug("socket: websocket closed", zap.String("conn", id))
				v.DropAll()
				return
			}
			if mt != websocket.BinaryMessage {
				continue
			}
			v.Feed(p)
		}
	}()
	go func() {
		<-v.Released()
		conn.Close()
	}()
}

// WSListener accepts WebSocket connections and hands them out as
// sockets.
type WSListener struct {
	net.Listener
	accepted  chan *Virtual
	outboxCap int
	inboxCap  int
}

// ListenWS starts an HTTP+WebSocket server on addr.
func ListenWS(addr string, outboxCap, inboxCap int) (*WSListener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	wsl := &WSListener{
		Listener:  l,
		accepted:  make(chan *Virtual),
		outboxCap: outboxCap,
		inboxCap:  inboxCap,
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	srv := &http.Server{
		Addr: addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				logger.Warn("socket: websocket upgrade failed")
				return
			}
			v := NewVirtual(wsl.outboxCap, wsl.inboxCap)
			bindWS(v, conn)
			wsl.accepted <- v
		}),
	}
	go srv.Serve(l)
	return wsl, nil
}

// Accept waits for and returns the next connected socket.
func (l *WSListener) Accept() (*Virtual, error) {
	v, ok := <-l.accepted
	if !ok {
		return nil, io.EOF
	}
	return v, nil
}

// Close closes the listener. Blocked Accept calls return io.EOF.
func (l *WSListener) Close() error {
	close(l.accepted)
	return l.Listener.Close()
}
