// Package playback serves composed videos to the preview surface.
package playback

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/moments/moments-agent/internal/logging"
)

var ErrNotPlayable = errors.New("not a playable file")

// videoTypes covers containers the platform mime table may not know.
var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
}

type PlaybackService interface {
	ServeFile(w http.ResponseWriter, r *http.Request, filePath string) error
}

type Server struct {
	logger *slog.Logger
}

func NewServer(logger *slog.Logger) *Server {
	return &Server{logger: logging.WithComponent(logging.OrDiscard(logger), "playback")}
}

// ServeFile streams filePath with byte-range support. A missing file is
// answered with 404 and no error.
func (s *Server) ServeFile(w http.ResponseWriter, r *http.Request, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "file not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrNotPlayable, filepath.Base(filePath))
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	contentType := videoTypes[ext]
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Accept-Ranges", "bytes")

	s.logger.Debug("serving video",
		"path", logging.SanitizePath(filePath),
		"size", stat.Size(),
		"range", r.Header.Get("Range"),
	)
	http.ServeContent(w, r, stat.Name(), stat.ModTime(), file)
	return nil
}

// Verify reports whether filePath is an existing regular file.
func Verify(filePath string) error {
	stat, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotPlayable, err)
	}
	if !stat.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotPlayable, filepath.Base(filePath))
	}
	return nil
}
