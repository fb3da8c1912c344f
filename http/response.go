package http

import "github.com/momentics/urlreq/core"

// Response is delivered to a Request's Completion. Code and Content are
// only set when the accompanying core.ResponseCode is
// core.ResponseSuccess; for every other code the Response is empty
// (see Handler.Respond).
type Response struct {
	Code    int
	Content []byte
}

// Completion is invoked exactly once per submitted Request.
type Completion func(core.ResponseCode, Response)
