package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/moments/moments-agent/internal/ffmpeg"
	"github.com/moments/moments-agent/internal/media"
	"github.com/moments/moments-agent/internal/playback"
	"github.com/moments/moments-agent/internal/project"
	"github.com/moments/moments-agent/internal/studio"
)

// Studio is the composition session. *studio.Studio implements it.
type Studio interface {
	Start(ctx context.Context, templateID int, items []media.MediaItem) (*studio.Attempt, error)
	State() studio.Snapshot
	Reset() error
	Cancel() bool
	Subscribe() (<-chan studio.Snapshot, func())
	Attempts(ctx context.Context, limit int) []*studio.Attempt
}

// Projects is the saved project store. *project.Service implements it.
type Projects interface {
	Get(ctx context.Context, id string) *project.Project
	List(ctx context.Context) []*project.Project
	Count(ctx context.Context) int
	Watch(ctx context.Context) <-chan []*project.Project
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
}

// Gallery offers media to compose from. *gallery.Scanner implements it.
type Gallery interface {
	Scan(ctx context.Context) ([]media.MediaItem, error)
	Find(ctx context.Context, ids []int64) ([]media.MediaItem, error)
}

// Doctor reports encoder availability. *ffmpeg.Doctor implements it.
type Doctor interface {
	Get(ctx context.Context) *ffmpeg.Capabilities
}

// TokenSource yields stored config values. *db.DB implements it.
type TokenSource interface {
	GetConfig(ctx context.Context, key string) (string, error)
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger

	// closeStreams ends open event streams, which Shutdown would otherwise
	// wait on until its deadline.
	closeStreams context.CancelFunc
}

type ServerConfig struct {
	Port           int
	Studio         Studio
	Projects       Projects
	Gallery        Gallery // nil when no gallery folder is configured
	PlaybackServer playback.PlaybackService
	Doctor         Doctor
	Tokens         TokenSource
	Logger         *slog.Logger
	StartTime      time.Time
	DeviceID       string
	Version        string
	MaxTotal       time.Duration // reported in /status when positive
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)
	base, cancel := context.WithCancel(context.Background())

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0, // event streams and playback hold responses open
			IdleTimeout:  60 * time.Second,
			BaseContext:  func(net.Listener) context.Context { return base },
		},
		logger:       cfg.Logger,
		closeStreams: cancel,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	s.closeStreams()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}

