package http

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/momentics/urlreq/core"
	"github.com/momentics/urlreq/mimepart"
)

// Handler prepares one Request for the transport and translates the
// transport's eventual outcome back into the shared ResponseCode
// vocabulary. It holds no network state of its own — the transport
// package owns the *net/http.Client and the actual round trip — it is
// purely the method-specific setup and response-shaping step, mirroring
// HttpHandler's division of labor from the constructor/respond split.
type Handler struct {
	req         Request
	verb        string
	body        io.Reader
	contentType string
}

// NewHandler validates req and performs the method-specific setup that
// HttpHandler's constructor does inline: choosing the outgoing verb,
// and for POST, picking url-encoded values over MIME multipart when
// both could apply.
func NewHandler(req Request) (*Handler, error) {
	h := &Handler{req: req}

	switch req.Method {
	case MethodGet:
		h.verb = "GET"
	case MethodHead:
		h.verb = "HEAD"
	case MethodPost:
		h.verb = "POST"
		if err := h.setupPostBody(); err != nil {
			return nil, err
		}
	case MethodPut:
		h.verb = "PUT"
		h.body = bytes.NewReader(nil)
	case MethodDelete:
		h.verb = "DELETE"
	default:
		return nil, fmt.Errorf("http: invalid method %v", req.Method)
	}

	return h, nil
}

func (h *Handler) setupPostBody() error {
	if h.req.PostUrlEncodedValues != "" {
		h.body = strings.NewReader(h.req.PostUrlEncodedValues)
		h.contentType = "application/x-www-form-urlencoded"
		return nil
	}

	// Assume MIME for now, mirroring HttpHandler.cpp's comment at the
	// equivalent branch. Streamed through a pipe rather than built into
	// a buffer first, so a Reader-backed part (e.g. a gigabyte-sized
	// one) is never materialized in process memory.
	body, contentType := mimepart.WriteToPipe(h.req.MimePost)
	h.body = body
	h.contentType = contentType
	return nil
}

// Verb returns the HTTP method string the transport should issue.
func (h *Handler) Verb() string { return h.verb }

// Body returns the prepared request body, or nil for GET/HEAD/DELETE.
func (h *Handler) Body() io.Reader { return h.body }

// ContentType returns the Content-Type header value to send alongside
// Body: set for POST, "" for every other method. Request.Headers is not
// consulted, so a caller-supplied Content-Type line is sent in addition.
func (h *Handler) ContentType() string { return h.contentType }

// Headers returns the caller-supplied headers to attach verbatim.
func (h *Handler) Headers() []string { return h.req.Headers }

// URL returns the target URL.
func (h *Handler) URL() string { return h.req.URL }

// StatusCodeFunc is queried once the transport reports a terminal
// ResponseCode, to fetch the final HTTP status code and response body.
type StatusCodeFunc func() (code int, content []byte, ok bool)

// Respond mirrors HttpHandler::respond. For ResponseSuccess it asks the
// transport for the final status code: if that query succeeds the
// result is (ResponseSuccess, {code, content}); a getinfo-equivalent
// failure forces ResponseFailure with an empty Response. Any other rc
// (e.g. ResponseAborted) is passed through unchanged with an empty
// Response, without querying the transport.
func (h *Handler) Respond(rc core.ResponseCode, statusCode StatusCodeFunc) (core.ResponseCode, Response) {
	if rc != core.ResponseSuccess {
		return rc, Response{}
	}
	code, content, ok := statusCode()
	if !ok {
		return core.ResponseFailure, Response{}
	}
	return rc, Response{Code: code, Content: content}
}
