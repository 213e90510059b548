package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// ReadJSON reads and decodes a message into the provided structure.
// It sets a read deadline.
//
// There is no matching write helper: a connection permits one concurrent
// writer, so outgoing frames go through the stream loop's writer
// goroutine instead of ad hoc writes.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
	return conn.ReadJSON(v)
}
