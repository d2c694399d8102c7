package project

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moments/moments-agent/internal/logging"
	"github.com/moments/moments-agent/internal/media"
)

// Service owns the project lifecycle. Reads degrade to empty results when
// the store fails; the failure is logged and not returned.
type Service struct {
	repo       Repository
	libraryDir string
	logger     *slog.Logger
	live       *Live

	now   func() time.Time
	newID func() string

	// mu orders mutations with their published snapshots.
	mu sync.Mutex
}

// NewService creates a Service. Saved outputs are copied into libraryDir;
// an empty libraryDir keeps outputs where the engine wrote them.
func NewService(repo Repository, libraryDir string, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		libraryDir: libraryDir,
		logger:     logging.WithComponent(logging.OrDiscard(logger), "projects"),
		live:       NewLive(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Save records a new project for a successful composition. The template and
// selection are copied. When the output is copied into the library the
// cache original is removed once the record is stored; a failed insert
// removes the copy instead.
func (s *Service) Save(ctx context.Context, outputRef string, tmpl media.Template, sel media.Selection) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := time.UnixMilli(s.now().UnixMilli())
	kept := s.keep(outputRef, createdAt)
	p := &Project{
		ID:           s.newID(),
		Name:         DefaultName,
		OutputRef:    kept,
		ThumbnailRef: ThumbnailFor(kept, sel),
		Template:     tmpl.Clone(),
		Selection:    sel.Clone(),
		CreatedAt:    createdAt,
	}

	copied := kept != outputRef
	if err := s.repo.Insert(ctx, p); err != nil {
		if copied {
			s.removeFile(kept)
		}
		return nil, fmt.Errorf("failed to save project: %w", err)
	}
	if copied {
		s.removeFile(outputRef)
	}
	logging.WithProjectID(s.logger, p.ID).Info("project saved",
		"template_id", p.Template.ID,
		"items", len(p.Selection),
		"output", logging.SanitizePath(p.OutputRef),
	)
	s.publishLocked(ctx)
	return p.Clone(), nil
}

// Get returns the project with id, or nil when absent or unreadable.
func (s *Service) Get(ctx context.Context, id string) *Project {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		s.logger.Warn("failed to load project", "project_id", id, "error", err)
		return nil
	}
	return p
}

// List returns every project, newest first, or an empty list when the store
// is unreadable. Records that no longer decode are logged and left out.
func (s *Service) List(ctx context.Context) []*Project {
	projects, err := s.repo.List(ctx)
	switch {
	case errors.Is(err, ErrUndecodable):
		s.logger.Warn("skipped unreadable projects", "error", err)
	case err != nil:
		s.logger.Warn("failed to list projects", "error", err)
		return []*Project{}
	}
	if projects == nil {
		projects = []*Project{}
	}
	return projects
}

// Count returns the number of stored projects, or 0 when unreadable.
func (s *Service) Count(ctx context.Context) int {
	n, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.Warn("failed to count projects", "error", err)
		return 0
	}
	return n
}

// Watch streams the ordered project list: the current list first, then a
// fresh list after every change. The channel closes when ctx ends.
func (s *Service) Watch(ctx context.Context) <-chan []*Project {
	s.mu.Lock()
	src, cancel := s.live.Subscribe()
	s.mu.Unlock()

	out := make(chan []*Project, 1)
	go func() {
		defer close(out)
		defer cancel()

		send := func(list []*Project) bool {
			select {
			case out <- list:
				return true
			case <-ctx.Done():
				return false
			}
		}
		if !send(s.List(ctx)) {
			return
		}
		for {
			select {
			case list, ok := <-src:
				if !ok || !send(list) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Rename overwrites the stored name with name as given. A blank name is
// rejected with ErrBlankName and nothing changes; an absent id is a no-op.
func (s *Service) Rename(ctx context.Context, id, name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrBlankName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := s.repo.UpdateName(ctx, id, name)
	if err != nil {
		return fmt.Errorf("failed to rename project: %w", err)
	}
	if changed {
		logging.WithProjectID(s.logger, id).Info("project renamed")
		s.publishLocked(ctx)
	}
	return nil
}

// Delete removes the project with id. An absent id is a no-op. A library
// copy owned by the project is removed with it.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}
	if existing == nil {
		return nil
	}
	if _, err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if s.ownsFile(existing.OutputRef) {
		s.removeFile(existing.OutputRef)
	}
	logging.WithProjectID(s.logger, id).Info("project deleted")
	s.publishLocked(ctx)
	return nil
}

func (s *Service) publishLocked(ctx context.Context) {
	if s.live.Subscribers() == 0 {
		return
	}
	s.live.Publish(s.List(ctx))
}

// keep copies a finished output into the library dir and returns the copy's
// location. The original location is returned when copying fails.
func (s *Service) keep(outputRef string, at time.Time) string {
	if s.libraryDir == "" || s.ownsFile(outputRef) {
		return outputRef
	}
	dest, err := copyIntoLibrary(outputRef, s.libraryDir, at)
	if err != nil {
		s.logger.Warn("failed to copy output into library; keeping cache location",
			"output", logging.SanitizePath(outputRef), "error", err)
		return outputRef
	}
	return dest
}

func (s *Service) removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove output file", "path", logging.SanitizePath(path), "error", err)
	}
}

func (s *Service) ownsFile(path string) bool {
	if s.libraryDir == "" || path == "" {
		return false
	}
	rel, err := filepath.Rel(s.libraryDir, path)
	return err == nil && !strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel)
}

func copyIntoLibrary(src, dir string, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	base := "MOMENTS_" + at.Format("20060102_150405")
	for i := 0; i < 1000; i++ {
		name := base + ".mp4"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.mp4", base, i)
		}
		dest := filepath.Join(dir, name)
		out, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			os.Remove(dest)
			return "", err
		}
		if err := out.Close(); err != nil {
			os.Remove(dest)
			return "", err
		}
		return dest, nil
	}
	return "", fmt.Errorf("no free library name for %s", base)
}
