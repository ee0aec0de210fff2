package bridge

import (
	"github.com/gorilla/websocket"
)

// websocketRWC adapts a *websocket.Conn to io.ReadWriteCloser so a yamux
// session can be multiplexed over it.
type websocketRWC struct {
	conn   *websocket.Conn
	reader readerState
}

type readerState struct {
	buf []byte
}

// NewWebSocketRWC wraps conn for use as a yamux.Client/yamux.Server
// transport. Each websocket message is treated as one chunk of the
// underlying byte stream; a read that finds the buffered chunk exhausted
// blocks on the next message frame.
func NewWebSocketRWC(conn *websocket.Conn) *websocketRWC {
	return &websocketRWC{conn: conn}
}

func (w *websocketRWC) Read(p []byte) (int, error) {
	for len(w.reader.buf) == 0 {
		_, msg, err := w.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		w.reader.buf = msg
	}
	n := copy(p, w.reader.buf)
	w.reader.buf = w.reader.buf[n:]
	return n, nil
}

func (w *websocketRWC) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *websocketRWC) Close() error {
	return w.conn.Close()
}
