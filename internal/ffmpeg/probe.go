package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	ffgo "github.com/u2takey/ffmpeg-go"
)

// ProbeInfo is the subset of ffprobe output the agent uses.
type ProbeInfo struct {
	DurationMs int64
	HasVideo   bool
	HasAudio   bool
	Width      int
	Height     int
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

// Prober runs ffprobe and caches results per path.
type Prober struct {
	run func(ctx context.Context, path string) (string, error)

	mu    sync.Mutex
	cache map[string]ProbeInfo
}

// NewProber returns a Prober for the given ffprobe binary. An empty path or
// a bare "ffprobe" resolves through PATH.
func NewProber(ffprobePath string) *Prober {
	p := &Prober{cache: make(map[string]ProbeInfo)}
	if ffprobePath == "" || filepath.Base(ffprobePath) == ffprobePath {
		p.run = func(_ context.Context, path string) (string, error) {
			return ffgo.Probe(path)
		}
		return p
	}
	p.run = func(ctx context.Context, path string) (string, error) {
		out, err := exec.CommandContext(ctx, ffprobePath,
			"-show_format", "-show_streams", "-of", "json", path).Output()
		return string(out), err
	}
	return p
}

// Probe returns stream information for path.
func (p *Prober) Probe(ctx context.Context, path string) (ProbeInfo, error) {
	p.mu.Lock()
	if info, ok := p.cache[path]; ok {
		p.mu.Unlock()
		return info, nil
	}
	p.mu.Unlock()

	raw, err := p.run(ctx, path)
	if err != nil {
		return ProbeInfo{}, fmt.Errorf("ffprobe %s: %w", filepath.Base(path), err)
	}
	info, err := parseProbe(raw)
	if err != nil {
		return ProbeInfo{}, err
	}

	p.mu.Lock()
	p.cache[path] = info
	p.mu.Unlock()
	return info, nil
}

func parseProbe(raw string) (ProbeInfo, error) {
	var out probeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return ProbeInfo{}, fmt.Errorf("cannot parse ffprobe JSON: %w", err)
	}

	var info ProbeInfo
	streamSeconds := 0.0
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if !info.HasVideo {
				info.Width, info.Height = s.Width, s.Height
			}
			info.HasVideo = true
			if d, err := strconv.ParseFloat(s.Duration, 64); err == nil && d > streamSeconds {
				streamSeconds = d
			}
		case "audio":
			info.HasAudio = true
		}
	}

	seconds, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		seconds = streamSeconds
	}
	info.DurationMs = int64(math.Round(seconds * 1000))
	return info, nil
}
