package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/moments/moments-agent/internal/compose"
	"github.com/moments/moments-agent/internal/logging"
)

// Config holds the backend's configuration.
type Config struct {
	FFmpegPath string // resolved ffmpeg binary
	Prober     *Prober
	Logger     *slog.Logger
}

// Backend encodes composition requests with the ffmpeg CLI. One request runs
// at a time.
type Backend struct {
	cfg      Config
	logger   *slog.Logger
	progress progressTracker
}

var _ compose.Backend = (*Backend)(nil)

// New creates a Backend from a resolved ffmpeg path.
func New(cfg Config) *Backend {
	logger := logging.WithComponent(logging.OrDiscard(cfg.Logger), "ffmpeg")
	return &Backend{cfg: cfg, logger: logger}
}

// Start launches ffmpeg for req and returns once the process is running.
func (b *Backend) Start(ctx context.Context, req compose.Request, dest string, done chan<- compose.Outcome) error {
	args, err := BuildArgs(req, dest, b.audioProbe(ctx))
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, b.cfg.FFmpegPath, args...)
	var stderrBuf bytes.Buffer
	cmd.Stderr = &limitedWriter{w: &stderrBuf, limit: maxStderrBytes}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("cannot attach to ffmpeg stdout: %w", err)
	}

	b.progress.reset()
	b.logger.Debug("executing ffmpeg", "args", args)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("cannot start ffmpeg: %w", err)
	}

	go func() {
		b.progress.consume(stdout, req.TotalMs)
		err := cmd.Wait()
		elapsed := time.Since(start)

		switch {
		case ctx.Err() != nil:
			done <- compose.Outcome{Err: ctx.Err()}
		case err != nil:
			tail := stderrBuf.String()
			b.logger.Warn("ffmpeg failed",
				"error", err,
				"duration_ms", elapsed.Milliseconds(),
				"stderr_tail", truncate(tail, 512),
			)
			done <- compose.Outcome{Err: exitError(err, tail)}
		default:
			b.logger.Info("ffmpeg succeeded",
				"duration_ms", elapsed.Milliseconds(),
				"output", logging.SanitizePath(dest),
			)
			done <- compose.Outcome{OutputRef: dest}
		}
	}()
	return nil
}

// Progress reports the fraction parsed from ffmpeg's progress stream.
func (b *Backend) Progress() (float64, bool) {
	return b.progress.get()
}

func (b *Backend) audioProbe(ctx context.Context) AudioProbe {
	if b.cfg.Prober == nil {
		return nil
	}
	return func(uri string) bool {
		info, err := b.cfg.Prober.Probe(ctx, uri)
		if err != nil {
			// Unknown sources are treated as silent; concat needs a matching
			// audio pad either way.
			b.logger.Debug("probe failed", "path", logging.SanitizePath(uri), "error", err)
			return false
		}
		return info.HasAudio
	}
}

func exitError(err error, stderrTail string) error {
	reason := lastLine(stderrTail)
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if reason == "" {
			return fmt.Errorf("ffmpeg exited %d", exitErr.ExitCode())
		}
		return fmt.Errorf("ffmpeg exited %d: %s", exitErr.ExitCode(), reason)
	}
	if reason == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, reason)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}
