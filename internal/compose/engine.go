package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/moments/moments-agent/internal/timeline"
)

const outputPrefix = "MOMENTS_"

// Config holds the engine's configuration.
type Config struct {
	OutputDir    string        // where attempt outputs are allocated
	PollInterval time.Duration // progress cadence; default 100ms
	Timeout      time.Duration // 0 waits on the backend without bound
	VideoCodec   string        // default libx264
	Logger       *slog.Logger
	Now          func() time.Time
}

// Engine runs one composition attempt at a time against a backend. The
// caller must not start a second attempt while one is in flight.
type Engine struct {
	backend Backend
	cfg     Config
	logger  *slog.Logger
}

func NewEngine(backend Backend, cfg Config) *Engine {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{backend: backend, cfg: cfg, logger: logger.With("component", "compose")}
}

// Compose starts an attempt and returns its result stream. The stream carries
// zero or more Progress results followed by exactly one Success or Failure,
// then closes. The caller must drain it.
//
// Cancelling ctx, or exceeding the configured timeout, ends the attempt with
// a Failure.
func (e *Engine) Compose(ctx context.Context, clips []timeline.ClipDescriptor) <-chan Result {
	out := make(chan Result, 1)
	go e.run(ctx, clips, out)
	return out
}

func (e *Engine) run(ctx context.Context, clips []timeline.ClipDescriptor, out chan<- Result) {
	defer close(out)

	lastPercent := -1
	emit := func(r Result) {
		if p, ok := r.(Progress); ok {
			lastPercent = p.Percent
		}
		out <- r
	}

	var dest string
	fail := func(msg string) {
		if dest != "" {
			os.Remove(dest)
		}
		if msg == "" {
			msg = UnknownError
		}
		e.logger.Warn("composition failed", "output", filepath.Base(dest), "reason", msg)
		emit(Failure{Message: msg})
	}

	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("composition panicked", "error", rec)
			fail(fmt.Sprint(rec))
		}
	}()

	emit(Progress{Percent: 0})

	if len(clips) == 0 {
		fail("timeline is empty")
		return
	}

	var err error
	dest, err = e.allocateOutput()
	if err != nil {
		fail(err.Error())
		return
	}

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	req := NewRequest(clips, e.cfg.VideoCodec)
	done := make(chan Outcome, 1)

	e.logger.Info("composition started",
		"output", filepath.Base(dest),
		"clips", len(req.Clips),
		"total_ms", req.TotalMs,
		"force_audio", req.ForceAudioTrack,
	)

	if err := e.backend.Start(ctx, req, dest, done); err != nil {
		fail(errorMessage(err))
		return
	}

	outcome, err := NewMonitor(e.backend, e.cfg.PollInterval).Run(ctx, done, emit)
	if err == nil {
		// A backend stopped by ctx reports ctx's error as its outcome.
		err = ctx.Err()
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		fail(fmt.Sprintf("composition timed out after %s", e.cfg.Timeout))
		return
	case err != nil:
		fail("composition cancelled")
		return
	case outcome.Err != nil:
		fail(errorMessage(outcome.Err))
		return
	}

	ref := outcome.OutputRef
	if ref == "" {
		ref = dest
	}
	if lastPercent != 100 {
		emit(Progress{Percent: 100})
	}
	e.logger.Info("composition completed", "output", filepath.Base(ref))
	emit(Success{OutputRef: ref})
}

// allocateOutput reserves a fresh timestamp-named file in the output dir.
// A name already on disk is never reused.
func (e *Engine) allocateOutput() (string, error) {
	if err := os.MkdirAll(e.cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	base := outputPrefix + e.cfg.Now().Format("20060102_150405")
	for i := 0; i < 1000; i++ {
		name := base + ".mp4"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.mp4", base, i)
		}
		path := filepath.Join(e.cfg.OutputDir, name)

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create output file: %w", err)
		}
		f.Close()
		return path, nil
	}
	return "", fmt.Errorf("no free output name for %s", base)
}

func errorMessage(err error) string {
	if err == nil || err.Error() == "" {
		return UnknownError
	}
	return err.Error()
}
