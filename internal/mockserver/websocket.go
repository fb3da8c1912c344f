package mockserver

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// handleWSHello implements scenario 5: reply to "Hello world!" with
// "Hi there!", then wait for and echo the client's close handshake.
func (s *Server) handleWSHello(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		switch msgType {
		case websocket.TextMessage:
			if string(payload) == "Hello world!" {
				if err := conn.WriteMessage(websocket.TextMessage, []byte("Hi there!")); err != nil {
					return
				}
			}
		case websocket.CloseMessage:
			code, reason := decodeClosePayload(payload)
			echo := websocket.FormatCloseMessage(code, reason)
			conn.WriteMessage(websocket.CloseMessage, echo)
			return
		}
	}
}

// handleWSGoodbye implements scenario 6: on receiving the magic text
// "SEND BACK CONTROL CLOSE", the server itself initiates the close
// handshake with a fixed reason, then waits for the client's echo.
func (s *Server) handleWSGoodbye(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		switch msgType {
		case websocket.TextMessage:
			if string(payload) == "SEND BACK CONTROL CLOSE" {
				closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "Server initiating close")
				if err := conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
					return
				}
			}
		case websocket.CloseMessage:
			return
		}
	}
}

// decodeClosePayload mirrors gorilla's own close-payload parsing so the
// server can echo back whatever status/reason the client sent, per
// RFC 6455 section 5.5.1.
func decodeClosePayload(payload []byte) (int, string) {
	if len(payload) < 2 {
		return websocket.CloseNoStatusReceived, ""
	}
	code := int(payload[0])<<8 | int(payload[1])
	return code, string(payload[2:])
}
