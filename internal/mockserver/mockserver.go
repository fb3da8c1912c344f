// Package mockserver is test-only infrastructure: an HTTP+WebSocket
// peer implementing the fixed routes exercised by the end-to-end
// scenarios. It plays the server role opposite the engine's client
// behavior, so it is free to use gorilla/websocket for its own framing
// even though the engine's own WebSocket client never does.
package mockserver

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/gorilla/websocket"
)

// Server wraps an httptest.Server exposing the fixed scenario routes.
type Server struct {
	httpServer *httptest.Server
	upgrader   websocket.Upgrader
}

// New starts the mock server on a free local port and returns it
// started; callers must Close it when done.
func New() *Server {
	s := &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/test/url/http/get200", s.handleGet200)
	mux.HandleFunc("/test/url/http/get/containsnull", s.handleGetContainsNull)
	mux.HandleFunc("/test/url/http/post/form/no-encoding", s.handlePostFormNoEncoding)
	mux.HandleFunc("/test/url/http/post/mime/form/large", s.handlePostMimeLarge)
	mux.HandleFunc("/test/url/ws/hello", s.handleWSHello)
	mux.HandleFunc("/test/url/ws/goodbye", s.handleWSGoodbye)

	s.httpServer = httptest.NewServer(mux)
	return s
}

// URL returns the server's base URL, e.g. "http://127.0.0.1:54321".
func (s *Server) URL() string { return s.httpServer.URL }

// Addr returns the server's host:port, suitable for building raw
// ws:// URLs for the WebSocket scenarios.
func (s *Server) Addr() string { return s.httpServer.Listener.Addr().String() }

// Close shuts the server down.
func (s *Server) Close() { s.httpServer.Close() }

func (s *Server) handleGet200(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "GET test response SUCCESS")
}

func (s *Server) handleGetContainsNull(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("GET test response contains \x00 and \x00"))
}

func (s *Server) handlePostFormNoEncoding(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	name := r.PostForm.Get("name")
	handle := r.PostForm.Get("handle")
	fmt.Fprintf(w, "%s, your real name is %s!", handle, name)
}

func (s *Server) handlePostMimeLarge(w http.ResponseWriter, r *http.Request) {
	reader, err := r.MultipartReader()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var total int64
	for {
		part, err := reader.NextPart()
		if err != nil {
			break
		}
		if part.FormName() != "large" {
			part.Close()
			continue
		}
		n, _ := countBytes(part)
		total += n
		part.Close()
	}
	fmt.Fprintf(w, "Processed %d bytes of data from MIME part", total)
}

func countBytes(r io.Reader) (int64, error) {
	return io.Copy(io.Discard, r)
}
