package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/moments/moments-agent/internal/api"
	"github.com/moments/moments-agent/internal/compose"
	"github.com/moments/moments-agent/internal/config"
	"github.com/moments/moments-agent/internal/ffmpeg"
	"github.com/moments/moments-agent/internal/gallery"
	"github.com/moments/moments-agent/internal/logging"
	"github.com/moments/moments-agent/internal/playback"
	"github.com/moments/moments-agent/internal/studio"
	"github.com/moments/moments-agent/internal/ui"
)

const (
	probeTimeout    = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the agent: local API, composer and system tray",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func runServe(parent context.Context, out io.Writer) error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting moments agent", "version", config.Version, "data_dir", cfg.DataDir())
	if f := cfg.File(); f != "" {
		logger.Info("loaded config file", "path", f)
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another moments agent is already running (lock %s)", cfg.LockPath())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release instance lock", "error", err)
		}
	}()

	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	deviceID, err := ensureDeviceID(ctx, st.db)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}
	authToken, err := ensureAuthToken(ctx, st.db)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}
	printBanner(out, cfg.Port(), authToken, deviceID)

	doctor := ffmpeg.NewDoctor(cfg.FFmpegPath(), cfg.FFprobePath(), logger)
	probeCtx, probeCancel := context.WithTimeout(ctx, probeTimeout)
	caps := doctor.Refresh(probeCtx)
	probeCancel()
	if caps.Ready() {
		logger.Info("encoder detected", "ffmpeg", caps.FFmpegPath, "version", caps.FFmpegVersion, "ffprobe", caps.HasFFprobe)
	} else {
		logger.Warn("ffmpeg not found, compositions will fail until it is installed")
	}

	var prober *ffmpeg.Prober
	if caps.HasFFprobe {
		prober = ffmpeg.NewProber(caps.FFprobePath)
	}

	engine := compose.NewEngine(ffmpeg.NewBackend(caps, prober, logger), compose.Config{
		OutputDir: cfg.CacheDir(),
		Timeout:   cfg.ComposeTimeout(),
		Logger:    logger,
	})

	session := studio.New(engine, st.projects, studio.NewAttemptRepository(st.db.Conn()), studio.Config{
		MaxTotal: studioMaxTotal(cfg.MaxTotal()),
		Logger:   logger,
	})
	defer session.Close()

	serverCfg := api.ServerConfig{
		Port:           cfg.Port(),
		Studio:         session,
		Projects:       st.projects,
		PlaybackServer: playback.NewServer(logger),
		Doctor:         doctor,
		Tokens:         st.db,
		Logger:         logger,
		StartTime:      startTime,
		DeviceID:       deviceID,
		Version:        config.Version,
		MaxTotal:       cfg.MaxTotal(),
	}
	if dir := cfg.GalleryDir(); dir != "" {
		serverCfg.Gallery = newGallery(dir, prober, logger)
		logger.Info("gallery enabled", "dir", dir)
	}
	apiServer := api.NewServer(serverCfg)

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	quitCh := make(chan struct{})
	var quitOnce sync.Once

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
		case <-ctx.Done():
		}
		cancel()
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Session:  session,
			Projects: st.projects,
			Logger:   logger,
			OnOpenLibrary: func() error {
				return openFolder(cfg.LibraryDir())
			},
			OnQuit: func() {
				quitOnce.Do(func() { close(quitCh) })
			},
		})
		go tray.Run()
		defer tray.Quit()
	}

	select {
	case <-ctx.Done():
	case <-quitCh:
	}

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// studioMaxTotal maps the configured plan limit onto the studio's: a
// configured 0 turns the check off.
func studioMaxTotal(configured time.Duration) time.Duration {
	if configured <= 0 {
		return -1
	}
	return configured
}

// newGallery builds the scanner. A nil prober must stay a nil interface so
// the scanner skips duration probing.
func newGallery(dir string, prober *ffmpeg.Prober, logger *slog.Logger) *gallery.Scanner {
	if prober == nil {
		return gallery.NewScanner(dir, nil, logger)
	}
	return gallery.NewScanner(dir, prober, logger)
}

func printBanner(w io.Writer, port int, authToken, deviceID string) {
	if len(deviceID) > 16 {
		deviceID = deviceID[:16] + "..."
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "╔═══════════════════════════════════════════════════════════╗")
	fmt.Fprintf(w, "║                    MOMENTS AGENT v%-23s ║\n", config.Version)
	fmt.Fprintln(w, "╠═══════════════════════════════════════════════════════════╣")
	fmt.Fprintf(w, "║  API URL:    http://127.0.0.1:%-27d ║\n", port)
	fmt.Fprintf(w, "║  Auth Token: %-45s ║\n", authToken)
	fmt.Fprintf(w, "║  Device ID:  %-45s ║\n", deviceID)
	fmt.Fprintln(w, "╚═══════════════════════════════════════════════════════════╝")
	fmt.Fprintln(w)
}
