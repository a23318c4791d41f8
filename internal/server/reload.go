package server

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/conneroisu/poolserve/internal/livereload"
	"github.com/conneroisu/poolserve/internal/watcher"
)

// handleFileChange drops stale cache entries for every changed path and
// tells connected browsers to reload.
func (s *Server) handleFileChange(events []watcher.ChangeEvent) error {
	ctx := context.Background()

	for _, event := range events {
		dropped := 0
		if s.cache != nil {
			dropped = s.cache.Invalidate(event.Path)
		}

		urlPath, ok := s.urlPath(event.Path)
		if !ok {
			continue
		}

		s.logger.Debug(ctx, "File changed",
			"path", urlPath,
			"event", event.Type.String(),
			"cache_entries_dropped", dropped)

		if s.reload != nil {
			s.reload.Hub().Broadcast(livereload.Message{
				Type:      livereload.MessageTypeReload,
				Path:      urlPath,
				Timestamp: time.Now(),
			})
		}
	}

	return nil
}

// urlPath maps an absolute file path under the root to the request path
// that serves it.
func (s *Server) urlPath(path string) (string, bool) {
	rel, err := filepath.Rel(s.rootDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return "/" + filepath.ToSlash(rel), true
}
