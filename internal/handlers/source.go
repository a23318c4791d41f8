package handlers

import (
	"os"

	"github.com/conneroisu/poolserve/internal/cache"
	"github.com/conneroisu/poolserve/internal/errors"
)

// FileSource reads file contents by absolute path.
type FileSource interface {
	ReadFile(path string) ([]byte, error)
}

// OSSource reads straight from the filesystem.
type OSSource struct{}

// ReadFile reads path. Missing files, directories and permission failures
// are all reported as FileNotFound.
func (OSSource) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewFileNotFoundError(path, err)
	}
	return data, nil
}

// CachedSource serves reads from a FileCache, falling back to Next on a
// miss and caching the result.
type CachedSource struct {
	Cache *cache.FileCache
	Next  FileSource
}

// NewCachedSource wraps next with c.
func NewCachedSource(c *cache.FileCache, next FileSource) *CachedSource {
	return &CachedSource{Cache: c, Next: next}
}

// ReadFile returns the cached content for path or reads it through Next.
func (s *CachedSource) ReadFile(path string) ([]byte, error) {
	if data, ok := s.Cache.Get(path); ok {
		return data, nil
	}

	data, err := s.Next.ReadFile(path)
	if err != nil {
		return nil, err
	}

	s.Cache.Set(path, data)
	return data, nil
}
