package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/moments/moments-agent/internal/logging"
)

const defaultCacheTTL = 5 * time.Minute

// Capabilities describes the encoder tools found on this machine.
type Capabilities struct {
	FFmpegPath    string    `json:"ffmpeg_path,omitempty"`
	FFprobePath   string    `json:"ffprobe_path,omitempty"`
	FFmpegVersion string    `json:"ffmpeg_version,omitempty"`
	HasFFmpeg     bool      `json:"has_ffmpeg"`
	HasFFprobe    bool      `json:"has_ffprobe"`
	ProbedAt      time.Time `json:"probed_at"`
}

// Ready reports whether compositions can be encoded.
func (c *Capabilities) Ready() bool {
	return c != nil && c.HasFFmpeg
}

// Doctor probes for ffmpeg and ffprobe and caches the result with a TTL.
type Doctor struct {
	ffmpegPath  string
	ffprobePath string
	ttl         time.Duration
	logger      *slog.Logger

	lookPath func(string) (string, error)
	version  func(ctx context.Context, bin string) (string, error)

	mu     sync.RWMutex
	cached *Capabilities
}

// NewDoctor creates a doctor for the configured binaries. Empty paths
// auto-detect on PATH.
func NewDoctor(ffmpegPath, ffprobePath string, logger *slog.Logger) *Doctor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Doctor{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		ttl:         defaultCacheTTL,
		logger:      logging.WithComponent(logging.OrDiscard(logger), "doctor"),
		lookPath:    exec.LookPath,
		version:     binaryVersion,
	}
}

// Get returns cached capabilities if fresh, otherwise re-probes.
func (d *Doctor) Get(ctx context.Context) *Capabilities {
	d.mu.RLock()
	if d.cached != nil && time.Since(d.cached.ProbedAt) < d.ttl {
		caps := d.cached
		d.mu.RUnlock()
		return caps
	}
	d.mu.RUnlock()

	return d.Refresh(ctx)
}

func (d *Doctor) Peek() *Capabilities {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cached
}

// Refresh forces a new probe regardless of cache freshness.
func (d *Doctor) Refresh(ctx context.Context) *Capabilities {
	d.mu.Lock()
	defer d.mu.Unlock()

	caps := &Capabilities{ProbedAt: time.Now()}
	if p, err := d.lookPath(d.ffmpegPath); err == nil {
		caps.FFmpegPath, caps.HasFFmpeg = p, true
		v, err := d.version(ctx, p)
		if err != nil {
			d.logger.Warn("ffmpeg version probe failed", "error", err)
		}
		caps.FFmpegVersion = v
	}
	if p, err := d.lookPath(d.ffprobePath); err == nil {
		caps.FFprobePath, caps.HasFFprobe = p, true
	}

	d.logger.Info("doctor probe complete",
		"ffmpeg", caps.HasFFmpeg,
		"ffprobe", caps.HasFFprobe,
		"version", caps.FFmpegVersion,
	)
	d.cached = caps
	return caps
}

// Invalidate clears the cached capabilities.
func (d *Doctor) Invalidate() {
	d.mu.Lock()
	d.cached = nil
	d.mu.Unlock()
}

// binaryVersion returns the first line of `<bin> -version`.
func binaryVersion(ctx context.Context, bin string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, bin, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("%s -version: %w", bin, err)
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}
