package handlers

import (
	"context"
	"path/filepath"
	"time"

	"github.com/conneroisu/poolserve/internal/errors"
	"github.com/conneroisu/poolserve/internal/logging"
	"github.com/conneroisu/poolserve/internal/protocol"
	"github.com/conneroisu/poolserve/internal/validation"
)

const (
	indexPage = "/index.html"
	sleepPage = "/sleep.html"
)

// StaticHandler serves files below Root.
type StaticHandler struct {
	Root       string
	SleepDelay time.Duration
	Files      FileSource
	NotFound   Handler
	Logger     logging.Logger
	ErrHandler *errors.ErrorHandler
}

// NewStaticHandler creates a handler serving root. Files that cannot be
// served are answered by notFound.
func NewStaticHandler(root string, sleepDelay time.Duration, files FileSource, notFound Handler, logger logging.Logger) *StaticHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if files == nil {
		files = OSSource{}
	}
	logger = logger.WithComponent("handlers")
	return &StaticHandler{
		Root:       root,
		SleepDelay: sleepDelay,
		Files:      files,
		NotFound:   notFound,
		Logger:     logger,
		ErrHandler: errors.NewErrorHandler(logger),
	}
}

// Handle serves the file named by the request path.
func (h *StaticHandler) Handle(ctx context.Context, req *protocol.Request) *protocol.Response {
	path := StripQuery(req.Path)

	switch path {
	case "/", indexPage:
		path = indexPage
	case sleepPage:
		// Deliberately slow route; it holds its worker for the whole delay.
		time.Sleep(h.SleepDelay)
	}

	fullPath, err := validation.SafeJoin(h.Root, path)
	if err != nil {
		h.ErrHandler.Handle(ctx, err, "path", validation.SanitizeInput(req.Path))
		return h.NotFound.Handle(ctx, req)
	}

	data, err := h.Files.ReadFile(fullPath)
	if err != nil {
		h.ErrHandler.Handle(ctx, err)
		return h.NotFound.Handle(ctx, req)
	}

	return protocol.NewResponse(protocol.StatusOK, map[string]string{
		"Content-Type": ContentType(filepath.Ext(fullPath)),
	}, data)
}
