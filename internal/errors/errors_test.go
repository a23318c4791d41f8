package errors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeError(t *testing.T) {
	t.Run("error message includes code and cause", func(t *testing.T) {
		err := NewBindError("127.0.0.1:80", errors.New("permission denied"))

		assert.Equal(t, "[ERR_BIND] failed to bind 127.0.0.1:80: permission denied", err.Error())
		assert.Equal(t, "127.0.0.1:80", err.Context["addr"])
		assert.False(t, err.Recoverable)
	})

	t.Run("unwrap exposes the cause", func(t *testing.T) {
		err := NewConnectionReadError("10.0.0.1:5000", io.ErrUnexpectedEOF)

		assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	})

	t.Run("is compares type and code", func(t *testing.T) {
		wrapped := fmt.Errorf("submit: %w", ErrPoolClosed)

		assert.True(t, errors.Is(wrapped, ErrPoolClosed))
		assert.False(t, errors.Is(wrapped, ErrInvalidPoolSize))
	})
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		recoverable bool
		security    bool
		fatal       bool
	}{
		{"bind", NewBindError(":8080", nil), false, false, true},
		{"config", NewConfigError(ErrCodeConfigInvalid, "bad port"), false, false, true},
		{"read", NewConnectionReadError("remote", io.EOF), true, false, false},
		{"write", NewConnectionWriteError("remote", io.ErrClosedPipe), true, false, false},
		{"not found", NewFileNotFoundError("missing.xyz", nil), true, false, false},
		{"parse", NewParseError("short request line"), true, false, false},
		{"traversal", ErrPathTraversal("/../etc/passwd"), true, true, false},
		{"plain", errors.New("plain"), false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.recoverable, IsRecoverable(tt.err))
			assert.Equal(t, tt.security, IsSecurityError(tt.err))
			assert.Equal(t, tt.fatal, IsFatal(tt.err))
		})
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewFileNotFoundError("a.html", nil))

	assert.True(t, HasCode(err, ErrCodeFileNotFound))
	assert.False(t, HasCode(err, ErrCodeParse))
	assert.False(t, HasCode(errors.New("x"), ErrCodeParse))
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		level string
	}{
		{"security goes to warn", ErrPathTraversal("/.."), "warn"},
		{"network goes to warn", NewConnectionWriteError("r", io.EOF), "warn"},
		{"io goes to debug", NewFileNotFoundError("x", nil), "debug"},
		{"bind goes to error", NewBindError(":1", nil), "error"},
		{"generic goes to error", errors.New("boom"), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &recordingLogger{}
			NewErrorHandler(logger).Handle(context.Background(), tt.err)

			require.Len(t, logger.levels, 1)
			assert.Equal(t, tt.level, logger.levels[0])
		})
	}

	t.Run("nil error is ignored", func(t *testing.T) {
		logger := &recordingLogger{}
		NewErrorHandler(logger).Handle(context.Background(), nil)
		assert.Empty(t, logger.levels)
	})

	t.Run("context fields are forwarded", func(t *testing.T) {
		logger := &recordingLogger{}
		NewErrorHandler(logger).Handle(context.Background(),
			NewConnectionReadError("1.2.3.4:5", io.EOF), "conn_id", 7)

		fields := fieldsToMap(logger.fields)
		assert.Equal(t, 7, fields["conn_id"])
		assert.Equal(t, "1.2.3.4:5", fields["remote"])
		assert.Equal(t, ErrCodeConnRead, fields["code"])
	})
}

type recordingLogger struct {
	levels []string
	fields []interface{}
}

func (l *recordingLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.levels = append(l.levels, "debug")
	l.fields = fields
}

func (l *recordingLogger) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.levels = append(l.levels, "warn")
	l.fields = fields
}

func (l *recordingLogger) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.levels = append(l.levels, "error")
	l.fields = fields
}

func fieldsToMap(fields []interface{}) map[string]interface{} {
	result := make(map[string]interface{})
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			result[key] = fields[i+1]
		}
	}
	return result
}
