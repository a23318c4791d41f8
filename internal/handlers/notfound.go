package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	"github.com/conneroisu/poolserve/internal/logging"
	"github.com/conneroisu/poolserve/internal/protocol"
	"github.com/conneroisu/poolserve/internal/validation"
)

// NotFoundHandler answers with the configured error page and status 404.
type NotFoundHandler struct {
	Root   string
	Page   string
	Files  FileSource
	Logger logging.Logger
}

// NewNotFoundHandler creates a handler serving page from root.
func NewNotFoundHandler(root, page string, files FileSource, logger logging.Logger) *NotFoundHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if files == nil {
		files = OSSource{}
	}
	return &NotFoundHandler{
		Root:   root,
		Page:   page,
		Files:  files,
		Logger: logger.WithComponent("handlers"),
	}
}

// Handle returns the error page, or a generated page when it is missing.
func (h *NotFoundHandler) Handle(ctx context.Context, req *protocol.Request) *protocol.Response {
	headers := map[string]string{"Content-Type": "text/html"}

	if pagePath, err := validation.SafeJoin(h.Root, h.Page); err == nil {
		if data, err := h.Files.ReadFile(pagePath); err == nil {
			return protocol.NewResponse(protocol.StatusNotFound, headers, data)
		}
	}

	path := ""
	if req != nil {
		path = validation.SanitizeInput(req.Path)
	}

	var buf bytes.Buffer
	if err := notFoundPage(path).Render(ctx, &buf); err != nil {
		h.Logger.Warn(ctx, err, "Failed to render fallback not found page")
		return protocol.NewResponse(protocol.StatusNotFound, headers, nil)
	}

	return protocol.NewResponse(protocol.StatusNotFound, headers, buf.Bytes())
}

// notFoundPage renders the built-in page used when the configured error
// page is unavailable.
func notFoundPage(path string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			"<!DOCTYPE html><html><head><title>404 Not Found</title></head>"+
				"<body><h1>404 Not Found</h1><p>%s was not found on this server.</p></body></html>",
			templ.EscapeString(path))
		return err
	})
}

var (
	_ Handler = (*NotFoundHandler)(nil)
	_ Handler = (*StaticHandler)(nil)
	_ Handler = APIHandler{}
)
