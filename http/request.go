// Package http implements the client side of a single HTTP/HTTPS
// request: method-specific setup of the outgoing transfer, and
// translation of the transport's outcome into the shared ResponseCode
// vocabulary. It intentionally shadows the standard library's package
// name (as its own import path segment, never imported unqualified
// next to net/http) to mirror the upstream lb::url::http namespace.
package http

import "github.com/momentics/urlreq/mimepart"

// Method enumerates the HTTP verbs this library drives directly.
// MethodInvalid is the zero value so a caller who forgets to set
// Request.Method fails setup rather than silently issuing a GET.
type Method int

const (
	MethodInvalid Method = iota
	MethodGet
	MethodHead
	MethodPost
	MethodPut
	MethodDelete
)

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodHead:
		return "HEAD"
	case MethodPost:
		return "POST"
	case MethodPut:
		return "PUT"
	case MethodDelete:
		return "DELETE"
	default:
		return "INVALID"
	}
}

// Request describes one HTTP transfer to submit to the engine.
//
// For MethodPost, PostUrlEncodedValues takes priority over MimePost
// when non-empty — see formenc.Builder for constructing a correctly
// escaped value. Neither field is used for any other Method.
type Request struct {
	Method  Method
	URL     string
	Headers []string

	// PostUrlEncodedValues is raw application/x-www-form-urlencoded
	// body data, e.g. "fruit=apple&vegetable=pot%26to". Sent verbatim;
	// the caller is responsible for correct escaping (formenc.Builder
	// handles this).
	PostUrlEncodedValues string

	// MimePost is used for MethodPost when PostUrlEncodedValues is
	// empty.
	MimePost mimepart.Mime
}
