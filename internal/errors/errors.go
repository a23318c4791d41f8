// Package errors defines the server's error taxonomy and the policy for
// handling errors raised while serving a connection.
//
// Startup failures (bind, configuration) are fatal. Everything that happens
// inside a connection job is recoverable and ends at the job boundary.
package errors

import (
	"context"
	"errors"
)

// Logger interface for error logging.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
	Error(ctx context.Context, err error, msg string, fields ...interface{})
}

// ErrorHandler provides centralized error handling.
type ErrorHandler struct {
	logger Logger
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs err at a level matching its type. It never panics and never
// terminates the process.
func (h *ErrorHandler) Handle(ctx context.Context, err error, fields ...interface{}) {
	if err == nil || h.logger == nil {
		return
	}

	var se *ServeError
	if !errors.As(err, &se) {
		h.logger.Error(ctx, err, "Unhandled error occurred", fields...)
		return
	}

	fields = append(fields, "type", string(se.Type), "code", se.Code)
	for k, v := range se.Context {
		fields = append(fields, k, v)
	}

	switch se.Type {
	case ErrorTypeSecurity:
		h.logger.Warn(ctx, err, "Security violation rejected", fields...)
	case ErrorTypeNetwork:
		h.logger.Warn(ctx, err, "Connection dropped", fields...)
	case ErrorTypeIO, ErrorTypeProtocol:
		h.logger.Debug(ctx, se.Error(), fields...)
	default:
		h.logger.Error(ctx, err, "Error occurred", fields...)
	}
}
