// Package mimepart models a multipart/form-data payload as an ordered
// list of parts, each either small inline data or a streamed reader —
// the latter lets a caller describe a part containing, say, a
// gigabyte of data without the library ever materializing it in
// memory.
package mimepart

import (
	"io"
	"mime/multipart"
	"strings"
)

// DataReader streams a part's content on demand rather than up front,
// mirroring the upstream MimeHelper's dataReadFn/dataSeekFn trampoline
// pair, reshaped into Go's native io.Reader/io.Seeker.
type DataReader struct {
	Read          func(buf []byte) (int, error)
	Seek          func(offset int64, whence int) (int64, error)
	TotalNumBytes int64
}

// readSeeker adapts a DataReader to io.ReadSeeker so it can be handed
// directly to mime/multipart.Writer without copying.
type readSeeker struct{ dr DataReader }

func (rs readSeeker) Read(p []byte) (int, error)                  { return rs.dr.Read(p) }
func (rs readSeeker) Seek(offset int64, whence int) (int64, error) { return rs.dr.Seek(offset, whence) }

// Part is one section of a multipart/form-data body.
type Part struct {
	// Type is the explicit MIME type, or "" for application/octet-stream.
	Type string
	// Encoding documents the content-transfer-encoding; informational
	// only, multipart/form-data bodies are not Content-Transfer-Encoding
	// aware the way MIME email is.
	Encoding string
	// Name is the form field name.
	Name string
	// Data holds inline content. Use Reader instead for large parts.
	Data []byte
	// Reader streams content instead of Data. Only one of Data/Reader
	// should be set; Reader takes precedence if both are non-zero.
	Reader DataReader
	// Headers are additional "Name: Value" header lines for this part;
	// a line without a colon is skipped.
	Headers []string
}

// Mime is an ordered collection of parts.
type Mime struct {
	Parts []Part
}

// WriteTo writes the full multipart body to w using a randomly
// generated boundary, setting
// each part's headers, and returns the content-type boundary-qualified
// header value to send alongside. Callers that need the content type
// before the body is fully written (e.g. to set an HTTP header ahead
// of streaming the request) should use WriteToPipe instead.
func WriteTo(w io.Writer, m Mime) (contentType string, err error) {
	mw := multipart.NewWriter(w)
	if err := writeParts(mw, m); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}
	return "multipart/form-data; boundary=" + mw.Boundary(), nil
}

// WriteToPipe streams m's encoding through an in-memory pipe instead of
// a caller-supplied buffer, so a Reader-backed part of arbitrary size
// (the 1GB MIME part scenario this package exists for) is never held
// in process memory even transiently. The boundary is fixed the moment
// multipart.NewWriter is constructed, so the content-type header is
// known and returned immediately; the body itself is written by a
// background goroutine as the returned ReadCloser is consumed. The
// caller must read the ReadCloser to completion (or close it early) or
// the writing goroutine blocks forever on the pipe.
func WriteToPipe(m Mime) (body io.ReadCloser, contentType string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	contentType = "multipart/form-data; boundary=" + mw.Boundary()

	go func() {
		err := writeParts(mw, m)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	return pr, contentType
}

func writeParts(mw *multipart.Writer, m Mime) error {
	for _, p := range m.Parts {
		header := make(map[string][]string)
		partContentType := p.Type
		if partContentType == "" {
			partContentType = "application/octet-stream"
		}
		header["Content-Disposition"] = []string{
			`form-data; name="` + p.Name + `"`,
		}
		header["Content-Type"] = []string{partContentType}
		for _, h := range p.Headers {
			name, value, ok := strings.Cut(h, ":")
			if !ok {
				continue
			}
			name = strings.TrimSpace(name)
			header[name] = append(header[name], strings.TrimSpace(value))
		}

		pw, err := mw.CreatePart(header)
		if err != nil {
			return err
		}

		if p.Reader.Read != nil {
			if _, err := io.Copy(pw, readSeeker{p.Reader}); err != nil {
				return err
			}
			continue
		}
		if _, err := pw.Write(p.Data); err != nil {
			return err
		}
	}
	return nil
}
