package engine

import (
	"net"

	"github.com/google/uuid"

	"github.com/momentics/urlreq/core"
	"github.com/momentics/urlreq/http"
	"github.com/momentics/urlreq/ws"
)

// transferID is the Go analogue of the original's CURL* easy-handle
// pointer used as a map key — a stable identity for one submitted
// request for as long as it is pending or active. Deliberately not
// reused for ws.ConnectionID, which must stay a monotonically
// increasing integer (see ws.Handler); a UUID would violate that.
type transferID = uuid.UUID

func newTransferID() transferID { return uuid.New() }

type transferKind int

const (
	kindHTTP transferKind = iota
	kindWS
)

// pendingRequest is one item sitting in the engine's pending queue or
// active map. Exactly one of the http/ws fields is populated, per kind.
type pendingRequest struct {
	id   transferID
	kind transferKind

	httpReq      http.Request
	httpComplete http.Completion

	wsReq      ws.Request
	wsComplete ws.Completion
}

// doneResult is what a dispatch goroutine posts back to the poll loop
// once a transfer's initial attempt (the HTTP round trip, or the
// WebSocket dial+upgrade) has finished. The poll loop is the only
// consumer and the only place completions are invoked from, preserving
// "every callback runs on the engine goroutine."
type doneResult struct {
	id transferID
	rc core.ResponseCode

	httpCode    int
	httpContent []byte

	wsConn       net.Conn
	wsStatusCode int
}
