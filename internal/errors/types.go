package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeBind     ErrorType = "bind"
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeNetwork  ErrorType = "network"
	ErrorTypeIO       ErrorType = "io"
	ErrorTypeProtocol ErrorType = "protocol"
	ErrorTypeSecurity ErrorType = "security"
	ErrorTypePool     ErrorType = "pool"
	ErrorTypeInternal ErrorType = "internal"
)

// ServeError is a structured error type with context.
type ServeError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Recoverable bool
}

// Error implements the error interface.
func (e *ServeError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *ServeError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *ServeError) Is(target error) bool {
	var t *ServeError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *ServeError) WithContext(key string, value interface{}) *ServeError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// Common error codes.
const (
	ErrCodeBind            = "ERR_BIND"
	ErrCodeConfigInvalid   = "ERR_CONFIG_INVALID"
	ErrCodeConnRead        = "ERR_CONN_READ"
	ErrCodeConnWrite       = "ERR_CONN_WRITE"
	ErrCodeFileNotFound    = "ERR_FILE_NOT_FOUND"
	ErrCodeParse           = "ERR_PARSE"
	ErrCodePathTraversal   = "ERR_PATH_TRAVERSAL"
	ErrCodeInvalidPoolSize = "ERR_INVALID_POOL_SIZE"
	ErrCodePoolClosed      = "ERR_POOL_CLOSED"
	ErrCodeInvalidJob      = "ERR_INVALID_JOB"
	ErrCodeInternalError   = "ERR_INTERNAL"
)

// Error creation functions

// NewBindError creates an error for a listening socket that could not be
// created. It is fatal.
func NewBindError(addr string, cause error) *ServeError {
	return (&ServeError{
		Type:        ErrorTypeBind,
		Code:        ErrCodeBind,
		Message:     "failed to bind " + addr,
		Cause:       cause,
		Recoverable: false,
	}).WithContext("addr", addr)
}

// NewConfigError creates a configuration error. It is fatal at startup.
func NewConfigError(code, message string) *ServeError {
	return &ServeError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewConnectionReadError wraps a failure reading from a client connection.
func NewConnectionReadError(remote string, cause error) *ServeError {
	return (&ServeError{
		Type:        ErrorTypeNetwork,
		Code:        ErrCodeConnRead,
		Message:     "failed to read request",
		Cause:       cause,
		Recoverable: true,
	}).WithContext("remote", remote)
}

// NewConnectionWriteError wraps a failure writing to a client connection.
func NewConnectionWriteError(remote string, cause error) *ServeError {
	return (&ServeError{
		Type:        ErrorTypeNetwork,
		Code:        ErrCodeConnWrite,
		Message:     "failed to write response",
		Cause:       cause,
		Recoverable: true,
	}).WithContext("remote", remote)
}

// NewFileNotFoundError creates an I/O error for a missing static file.
func NewFileNotFoundError(path string, cause error) *ServeError {
	return (&ServeError{
		Type:        ErrorTypeIO,
		Code:        ErrCodeFileNotFound,
		Message:     "file not found: " + path,
		Cause:       cause,
		Recoverable: true,
	}).WithContext("path", path)
}

// NewParseError creates a protocol error for a malformed request.
func NewParseError(message string) *ServeError {
	return &ServeError{
		Type:        ErrorTypeProtocol,
		Code:        ErrCodeParse,
		Message:     message,
		Recoverable: true,
	}
}

// NewPoolError creates a worker pool error.
func NewPoolError(code, message string) *ServeError {
	return &ServeError{
		Type:        ErrorTypePool,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *ServeError {
	return &ServeError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// Error recovery and handling utilities

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var se *ServeError
	if errors.As(err, &se) {
		return se.Recoverable
	}

	return false
}

// IsSecurityError checks if an error is security-related.
func IsSecurityError(err error) bool {
	var se *ServeError
	if errors.As(err, &se) {
		return se.Type == ErrorTypeSecurity
	}

	return false
}

// IsFatal reports whether err must terminate the process. Only startup
// failures (bind, config) qualify.
func IsFatal(err error) bool {
	var se *ServeError
	if errors.As(err, &se) {
		return se.Type == ErrorTypeBind || se.Type == ErrorTypeConfig
	}

	return false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code string) bool {
	var se *ServeError
	if errors.As(err, &se) {
		return se.Code == code
	}

	return false
}

// Helper functions for common errors

// ErrPathTraversal creates a path traversal security error.
func ErrPathTraversal(path string) *ServeError {
	return &ServeError{
		Type:        ErrorTypeSecurity,
		Code:        ErrCodePathTraversal,
		Message:     "path traversal attempt: " + path,
		Recoverable: true,
	}
}

// Sentinel pool errors, comparable with errors.Is.
var (
	ErrPoolClosed      = NewPoolError(ErrCodePoolClosed, "worker pool has been shut down")
	ErrInvalidPoolSize = NewPoolError(ErrCodeInvalidPoolSize, "worker pool size must be greater than zero")
	ErrInvalidJob      = NewPoolError(ErrCodeInvalidJob, "job must not be nil")
)
