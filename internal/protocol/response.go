package protocol

import (
	"bufio"
	"bytes"
	"io"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Status codes produced by the handlers.
const (
	StatusOK                  = 200
	StatusBadRequest          = 400
	StatusNotFound            = 404
	StatusInternalServerError = 500
)

// Response is built by a handler and written to the connection once.
type Response struct {
	Version    ProtocolVersion
	StatusCode int
	StatusText string
	Headers    map[string]string
	// Body is nil when the response carries no body.
	Body []byte
}

// StatusText returns the reason phrase for code. Unrecognized codes map
// to "Not Found".
func StatusText(code int) string {
	switch code {
	case StatusOK:
		return "OK"
	case StatusBadRequest:
		return "Bad Request"
	case StatusNotFound:
		return "Not Found"
	case StatusInternalServerError:
		return "Internal Server Error"
	default:
		return "Not Found"
	}
}

// NewResponse builds an HTTP/1.1 response. A nil headers map defaults to
// Content-Type: text/plain.
func NewResponse(code int, headers map[string]string, body []byte) *Response {
	if headers == nil {
		headers = map[string]string{"Content-Type": "text/plain"}
	}
	return &Response{
		Version:    VersionHTTP11,
		StatusCode: code,
		StatusText: StatusText(code),
		Headers:    headers,
		Body:       body,
	}
}

// Send serializes the response to w and flushes it.
func (r *Response) Send(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := r.write(bw); err != nil {
		return err
	}
	return bw.Flush()
}

// Bytes returns the serialized response.
func (r *Response) Bytes() []byte {
	var buf bytes.Buffer
	_ = r.write(&buf)
	return buf.Bytes()
}

type stringWriter interface {
	io.Writer
	io.StringWriter
}

// write emits the status line, Content-Length, the remaining headers in
// key order, a blank line and the body. Content-Length always counts body
// bytes; any caller-supplied value is dropped.
func (r *Response) write(w stringWriter) error {
	version := r.Version
	if version == VersionUnknown {
		version = VersionHTTP11
	}
	text := r.StatusText
	if text == "" {
		text = StatusText(r.StatusCode)
	}

	var head strings.Builder
	head.WriteString(version.String())
	head.WriteByte(' ')
	head.WriteString(strconv.Itoa(r.StatusCode))
	head.WriteByte(' ')
	head.WriteString(text)
	head.WriteString("\r\n")

	head.WriteString("Content-Length: ")
	head.WriteString(strconv.Itoa(len(r.Body)))
	head.WriteString("\r\n")

	for _, key := range r.headerKeys() {
		head.WriteString(key)
		head.WriteString(": ")
		head.WriteString(r.Headers[key])
		head.WriteString("\r\n")
	}
	head.WriteString("\r\n")

	if _, err := w.WriteString(head.String()); err != nil {
		return err
	}
	if len(r.Body) > 0 {
		if _, err := w.Write(r.Body); err != nil {
			return err
		}
	}
	return nil
}

// headerKeys returns the sorted, valid header names other than
// Content-Length.
func (r *Response) headerKeys() []string {
	keys := make([]string, 0, len(r.Headers))
	for key, value := range r.Headers {
		if strings.EqualFold(key, "Content-Length") {
			continue
		}
		if !httpguts.ValidHeaderFieldName(key) || !httpguts.ValidHeaderFieldValue(value) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
