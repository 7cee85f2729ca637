package transport

import (
	"context"

	"github.com/gorilla/websocket"

	"github.com/dmtf/spdm-core/spdmerr"
)

// WebSocketDeviceIo binds DeviceIo to a *websocket.Conn, one binary
// message per SPDM frame, grounded on the same gorilla/websocket framed
// transport used for the relay's client connections.
type WebSocketDeviceIo struct {
	conn *websocket.Conn
}

func NewWebSocketDeviceIo(conn *websocket.Conn) *WebSocketDeviceIo {
	return &WebSocketDeviceIo{conn: conn}
}

func (w *WebSocketDeviceIo) Send(_ context.Context, buf []byte) error {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, buf); err != nil {
		return spdmerr.Wrap(spdmerr.IoFailure, "websocket write", err)
	}
	return nil
}

func (w *WebSocketDeviceIo) Receive(_ context.Context, bufOut []byte) (int, error) {
	msgType, data, err := w.conn.ReadMessage()
	if err != nil {
		return 0, spdmerr.Wrap(spdmerr.IoFailure, "websocket read", err)
	}
	if msgType != websocket.BinaryMessage {
		return 0, spdmerr.New(spdmerr.IoFailure, "unexpected websocket message type")
	}
	if len(data) > len(bufOut) {
		return 0, spdmerr.New(spdmerr.BufferOverflow, "incoming message exceeds buffer")
	}
	return copy(bufOut, data), nil
}

func (w *WebSocketDeviceIo) Close() error { return w.conn.Close() }
