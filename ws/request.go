package ws

import (
	"time"

	"github.com/momentics/urlreq/core"
)

// Request describes a WebSocket connection to open.
type Request struct {
	URL          string
	Receivers    Receivers
	CloseTimeout time.Duration // default 2000ms if zero, see DefaultCloseTimeout
}

// DefaultCloseTimeout is applied when Request.CloseTimeout is zero.
const DefaultCloseTimeout = 2000 * time.Millisecond

// Response is delivered to the caller's Completion once the initial
// GET either upgrades or fails. If the upgrade failed, ConnectionID is
// zero and Senders is the zero value (degrades to NoImplementation).
type Response struct {
	ConnectionID uint64
	Senders      Senders
}

// Completion is invoked exactly once per submitted Request.
type Completion func(core.ResponseCode, Response)
