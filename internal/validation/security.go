// Package validation provides security validation functions for preventing
// path traversal out of the static root and unsafe websocket origins.
package validation

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/conneroisu/poolserve/internal/errors"
)

// SafeJoin resolves the request path reqPath against root and returns the
// filesystem path to read. Any ".." segment is rejected outright, and the
// resolved path must stay inside root.
//
// reqPath is used as received; percent-escapes are not decoded, so "%2e%2e"
// names a literal file inside root.
func SafeJoin(root, reqPath string) (string, error) {
	if strings.ContainsRune(reqPath, 0) {
		return "", errors.ErrPathTraversal(reqPath).WithContext("reason", "nul byte")
	}

	for _, segment := range strings.FieldsFunc(reqPath, isSeparator) {
		if segment == ".." {
			return "", errors.ErrPathTraversal(reqPath)
		}
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root %q: %w", root, err)
	}

	rel := filepath.FromSlash(strings.TrimLeft(reqPath, "/\\"))
	resolved := filepath.Join(absRoot, rel)

	if !Within(absRoot, resolved) {
		return "", errors.ErrPathTraversal(reqPath)
	}

	return resolved, nil
}

// Within reports whether path equals root or lies below it. Both must be
// absolute and clean.
func Within(root, path string) bool {
	if path == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

func isSeparator(r rune) bool {
	return r == '/' || r == '\\'
}

// ValidateOrigin validates WebSocket origin for CSRF protection
func ValidateOrigin(origin string, allowedOrigins []string) error {
	if origin == "" {
		return fmt.Errorf("origin header is required")
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("invalid origin format: %w", err)
	}

	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return fmt.Errorf("invalid origin scheme '%s': only http and https are allowed", originURL.Scheme)
	}

	for _, allowed := range allowedOrigins {
		if origin == allowed || originURL.Host == allowed {
			return nil
		}
	}

	return fmt.Errorf("origin '%s' is not in allowed origins list", origin)
}

// SanitizeInput strips NUL and control characters so that request data can
// be logged safely.
func SanitizeInput(input string) string {
	var sanitized strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' {
			sanitized.WriteRune(r)
		}
	}

	return sanitized.String()
}
