// Package gallery offers the media items in a folder to the composer.
package gallery

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/moments/moments-agent/internal/ffmpeg"
	"github.com/moments/moments-agent/internal/logging"
	"github.com/moments/moments-agent/internal/media"
)

var ErrItemNotFound = errors.New("media item not found in gallery")

var (
	VideoExtensions = map[string]bool{
		".mp4":  true,
		".mov":  true,
		".mkv":  true,
		".m4v":  true,
		".webm": true,
		".3gp":  true,
	}
	ImageExtensions = map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".webp": true,
		".heic": true,
		".bmp":  true,
	}
)

// Prober reports a video's native duration. *ffmpeg.Prober implements it.
type Prober interface {
	Probe(ctx context.Context, path string) (ffmpeg.ProbeInfo, error)
}

// Scanner lists images and videos under a folder.
type Scanner struct {
	dir    string
	prober Prober
	logger *slog.Logger
}

// NewScanner creates a scanner for dir. A nil prober leaves video durations
// at 0.
func NewScanner(dir string, prober Prober, logger *slog.Logger) *Scanner {
	return &Scanner{dir: dir, prober: prober, logger: logging.WithComponent(logging.OrDiscard(logger), "gallery")}
}

func (s *Scanner) Dir() string {
	return s.dir
}

type found struct {
	path  string
	video bool
	mtime time.Time
}

// Scan walks the folder and returns its media, newest first. Hidden
// directories are skipped; unreadable entries are ignored.
func (s *Scanner) Scan(ctx context.Context) ([]media.MediaItem, error) {
	if s.dir == "" {
		return []media.MediaItem{}, nil
	}
	root, err := filepath.Abs(s.dir)
	if err != nil {
		return nil, fmt.Errorf("invalid gallery path: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("gallery path does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("gallery path is not a directory")
	}

	var files []found
	err = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		video, ok := Classify(d.Name())
		if !ok {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, found{path: p, video: video, mtime: fi.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].mtime.Equal(files[j].mtime) {
			return files[i].mtime.After(files[j].mtime)
		}
		return files[i].path < files[j].path
	})

	items := make([]media.MediaItem, 0, len(files))
	for _, f := range files {
		item := media.MediaItem{ID: StableID(f.path), URI: f.path, IsVideo: f.video}
		if f.video && s.prober != nil {
			probe, err := s.prober.Probe(ctx, f.path)
			if err != nil {
				s.logger.Warn("failed to probe video", "path", logging.SanitizePath(f.path), "error", err)
			} else {
				item.DurationMs = probe.DurationMs
			}
		}
		items = append(items, item)
	}

	s.logger.Info("gallery scanned", "path", logging.SanitizePath(root), "items", len(items))
	return items, nil
}

// Find resolves ids against the folder, in the order given.
func (s *Scanner) Find(ctx context.Context, ids []int64) ([]media.MediaItem, error) {
	items, err := s.Scan(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]media.MediaItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	out := make([]media.MediaItem, 0, len(ids))
	for _, id := range ids {
		it, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrItemNotFound, id)
		}
		out = append(out, it)
	}
	return out, nil
}

// Classify reports whether name is a video or an image by extension.
func Classify(name string) (video, ok bool) {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case VideoExtensions[ext]:
		return true, true
	case ImageExtensions[ext]:
		return false, true
	}
	return false, false
}

// StableID derives a positive numeric id from a file's path.
func StableID(path string) int64 {
	sum := sha256.Sum256([]byte(path))
	return int64(binary.BigEndian.Uint64(sum[:8]) >> 1)
}
