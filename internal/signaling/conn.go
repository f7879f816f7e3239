package signaling

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// connWrapper serializes writes to a websocket connection. gorilla/websocket
// allows only one concurrent writer; the write pump and control frames both
// go through here.
type connWrapper struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newConnWrapper(conn *websocket.Conn) *connWrapper {
	return &connWrapper{conn: conn}
}

func (w *connWrapper) WriteJSON(v any, deadline time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(deadline)
	return w.conn.WriteJSON(v)
}

func (w *connWrapper) WriteControl(messageType int, data []byte, deadline time.Time) error {
	return w.conn.WriteControl(messageType, data, deadline)
}

func (w *connWrapper) Close() error {
	return w.conn.Close()
}
