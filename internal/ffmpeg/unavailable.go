package ffmpeg

import (
	"context"
	"errors"
	"log/slog"

	"github.com/moments/moments-agent/internal/compose"
	"github.com/moments/moments-agent/internal/logging"
)

// UnavailableReason is the failure reported when no encoder is installed.
const UnavailableReason = "ffmpeg is not installed; install it or set MOMENTS_FFMPEG_PATH"

// Unavailable is the backend used when ffmpeg cannot be found. Every
// attempt fails with UnavailableReason.
type Unavailable struct {
	logger *slog.Logger
}

var _ compose.Backend = (*Unavailable)(nil)

func NewUnavailable(logger *slog.Logger) *Unavailable {
	return &Unavailable{logger: logging.OrDiscard(logger)}
}

func (u *Unavailable) Start(_ context.Context, req compose.Request, _ string, _ chan<- compose.Outcome) error {
	u.logger.Warn("composition requested without an encoder", "clips", len(req.Clips))
	return errUnavailable
}

func (u *Unavailable) Progress() (float64, bool) {
	return 0, false
}

var errUnavailable = errors.New(UnavailableReason)

// NewBackend picks the ffmpeg backend when caps reports an encoder, and
// Unavailable otherwise.
func NewBackend(caps *Capabilities, prober *Prober, logger *slog.Logger) compose.Backend {
	if !caps.Ready() {
		return NewUnavailable(logger)
	}
	return New(Config{FFmpegPath: caps.FFmpegPath, Prober: prober, Logger: logger})
}
