// Package handlers produces responses for routed requests: static files
// from the configured root, the API stub, and the not-found page.
package handlers

import (
	"context"
	"strings"

	"github.com/conneroisu/poolserve/internal/protocol"
)

// Handler turns a request into a response. Implementations never fail;
// every error path yields a well-formed response.
type Handler interface {
	Handle(ctx context.Context, req *protocol.Request) *protocol.Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *protocol.Request) *protocol.Response

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, req *protocol.Request) *protocol.Response {
	return f(ctx, req)
}

// StripQuery removes any query string or fragment from a request path.
func StripQuery(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		return path[:i]
	}
	return path
}

// ContentType maps a file extension, including the dot, to the
// Content-Type served for it.
func ContentType(ext string) string {
	switch strings.ToLower(ext) {
	case ".css":
		return "text/css"
	case ".js":
		return "text/javascript"
	case ".html":
		return "text/html"
	default:
		return "text/plain"
	}
}
