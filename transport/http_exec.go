package transport

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient is the shared client used for every submitted HTTP
// request. It has no cookie jar (each request is self-contained, like
// the underlying curl easy handles). Redirects follow net/http's default
// policy (up to 10 redirects are followed), unlike curl's default of
// CURLOPT_FOLLOWLOCATION off.
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}

// ExecuteHTTP builds and issues one *http.Request from the pieces
// http.Handler has already prepared, and reads the entire body so the
// caller's StatusCodeFunc can hand back a fully-materialized Response —
// there is no streaming-response support in this library, matching the
// original's CURLOPT_WRITEFUNCTION accumulating into one std::string.
func ExecuteHTTP(verb, url string, body io.Reader, contentType string, headers []string) (statusCode int, content []byte, err error) {
	req, err := http.NewRequest(verb, url, body)
	if err != nil {
		return 0, nil, fmt.Errorf("transport: building request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, h := range headers {
		name, value, ok := splitHeader(h)
		if ok {
			req.Header.Add(name, value)
		}
	}

	resp, err := HTTPClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("transport: executing request: %w", err)
	}
	defer resp.Body.Close()

	content, err = io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("transport: reading response body: %w", err)
	}
	return resp.StatusCode, content, nil
}

func splitHeader(h string) (name, value string, ok bool) {
	for i := 0; i < len(h); i++ {
		if h[i] == ':' {
			name = h[:i]
			value = h[i+1:]
			if len(value) > 0 && value[0] == ' ' {
				value = value[1:]
			}
			return name, value, true
		}
	}
	return "", "", false
}
