package ffmpeg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/moments/moments-agent/internal/compose"
)

func fakeDoctor(found map[string]string) (*Doctor, *int) {
	probes := 0
	d := NewDoctor("", "", nil)
	d.lookPath = func(name string) (string, error) {
		if p, ok := found[name]; ok {
			return p, nil
		}
		return "", errors.New("not found")
	}
	d.version = func(context.Context, string) (string, error) {
		probes++
		return "ffmpeg version 7.1", nil
	}
	return d, &probes
}

func TestDoctor_DetectsTools(t *testing.T) {
	d, _ := fakeDoctor(map[string]string{"ffmpeg": "/usr/bin/ffmpeg", "ffprobe": "/usr/bin/ffprobe"})
	caps := d.Get(context.Background())
	if !caps.Ready() || !caps.HasFFprobe {
		t.Fatalf("caps = %+v", caps)
	}
	if caps.FFmpegVersion != "ffmpeg version 7.1" {
		t.Errorf("FFmpegVersion = %q", caps.FFmpegVersion)
	}
}

func TestDoctor_CachesWithinTTL(t *testing.T) {
	d, probes := fakeDoctor(map[string]string{"ffmpeg": "/usr/bin/ffmpeg"})
	d.Get(context.Background())
	d.Get(context.Background())
	if *probes != 1 {
		t.Errorf("probed %d times, want 1", *probes)
	}

	d.ttl = time.Nanosecond
	time.Sleep(time.Millisecond)
	d.Get(context.Background())
	if *probes != 2 {
		t.Errorf("probed %d times after expiry, want 2", *probes)
	}
}

func TestDoctor_Invalidate(t *testing.T) {
	d, _ := fakeDoctor(nil)
	d.Get(context.Background())
	d.Invalidate()
	if d.Peek() != nil {
		t.Error("Peek() after Invalidate should be nil")
	}
}

func TestNewBackend_UnavailableWithoutFFmpeg(t *testing.T) {
	d, _ := fakeDoctor(nil)
	b := NewBackend(d.Get(context.Background()), nil, nil)

	if _, ok := b.(*Unavailable); !ok {
		t.Fatalf("NewBackend() = %T, want *Unavailable", b)
	}
	err := b.Start(context.Background(), compose.Request{}, "/tmp/x.mp4", make(chan compose.Outcome, 1))
	if err == nil || err.Error() != UnavailableReason {
		t.Errorf("Start() error = %v, want %q", err, UnavailableReason)
	}
	if _, ok := b.Progress(); ok {
		t.Error("Progress() ok for unavailable backend")
	}
}

func TestNewBackend_FFmpeg(t *testing.T) {
	d, _ := fakeDoctor(map[string]string{"ffmpeg": "/usr/bin/ffmpeg"})
	if _, ok := NewBackend(d.Get(context.Background()), nil, nil).(*Backend); !ok {
		t.Error("NewBackend() should pick the ffmpeg backend")
	}
}
