// Package ffmpeg drives the ffmpeg CLI as the composition backend.
package ffmpeg

import (
	"fmt"
	"strconv"

	ffgo "github.com/u2takey/ffmpeg-go"

	"github.com/moments/moments-agent/internal/compose"
	"github.com/moments/moments-agent/internal/timeline"
)

// Output geometry every clip is normalised to before concat.
const (
	OutputWidth     = 1080
	OutputHeight    = 1920
	OutputFrameRate = 30
	audioSampleRate = 44100
	audioLayout     = "stereo"
)

// AudioProbe reports whether a source carries an audio stream.
type AudioProbe func(uri string) bool

// BuildArgs compiles req into ffmpeg command-line arguments writing to dest.
// Progress is reported as key=value lines on stdout.
func BuildArgs(req compose.Request, dest string, hasAudio AudioProbe) ([]string, error) {
	if len(req.Clips) == 0 {
		return nil, fmt.Errorf("no clips to encode")
	}
	if hasAudio == nil {
		hasAudio = func(string) bool { return true }
	}

	sources := make([]bool, len(req.Clips))
	withAudio := req.ForceAudioTrack
	for i, clip := range req.Clips {
		sources[i] = clip.IsVideo && !clip.RemoveAudio && hasAudio(clip.SourceURI)
		withAudio = withAudio || sources[i]
	}

	var streams []*ffgo.Stream
	for i, clip := range req.Clips {
		in := clipInput(clip)
		streams = append(streams, normaliseVideo(in.Video()))
		if !withAudio {
			continue
		}
		if sources[i] {
			streams = append(streams, normaliseAudio(in.Audio()))
		} else {
			streams = append(streams, silence(clipMs(clip)))
		}
	}

	kw := ffgo.KwArgs{
		"c:v":      codecOrDefault(req.VideoCodec),
		"pix_fmt":  "yuv420p",
		"movflags": "+faststart",
	}

	var outputs []*ffgo.Stream
	joined := ffgo.FilterMultiOutput(streams, "concat", ffgo.Args{}, ffgo.KwArgs{
		"n": strconv.Itoa(len(req.Clips)),
		"v": "1",
		"a": boolDigit(withAudio),
	})
	outputs = append(outputs, joined.Get("0"))
	if withAudio {
		outputs = append(outputs, joined.Get("1"))
		kw["c:a"] = "aac"
		kw["b:a"] = "192k"
	}

	args := ffgo.Output(outputs, dest, kw).OverWriteOutput().GetArgs()
	return append([]string{"-hide_banner", "-nostats", "-progress", "pipe:1"}, args...), nil
}

func clipInput(clip timeline.ClipDescriptor) *ffgo.Stream {
	if clip.IsVideo {
		return ffgo.Input(clip.SourceURI, ffgo.KwArgs{
			"ss": seconds(clip.TrimStartMs),
			"t":  seconds(clip.TrimEndMs - clip.TrimStartMs),
		})
	}
	fps := clip.FrameRate
	if fps <= 0 {
		fps = timeline.StillFrameRate
	}
	return ffgo.Input(clip.SourceURI, ffgo.KwArgs{
		"loop":      "1",
		"framerate": strconv.Itoa(fps),
		"t":         seconds(clip.DisplayMs),
	})
}

func normaliseVideo(s *ffgo.Stream) *ffgo.Stream {
	size := fmt.Sprintf("%d:%d", OutputWidth, OutputHeight)
	return s.
		Filter("scale", ffgo.Args{size}, ffgo.KwArgs{"force_original_aspect_ratio": "decrease"}).
		Filter("pad", ffgo.Args{size + ":(ow-iw)/2:(oh-ih)/2"}).
		Filter("setsar", ffgo.Args{"1"}).
		Filter("fps", ffgo.Args{strconv.Itoa(OutputFrameRate)}).
		Filter("format", ffgo.Args{"yuv420p"})
}

func normaliseAudio(s *ffgo.Stream) *ffgo.Stream {
	return s.Filter("aformat", ffgo.Args{}, ffgo.KwArgs{
		"sample_rates":    strconv.Itoa(audioSampleRate),
		"channel_layouts": audioLayout,
	})
}

// silence is a lavfi null source the length of one clip.
func silence(ms int64) *ffgo.Stream {
	src := fmt.Sprintf("anullsrc=channel_layout=%s:sample_rate=%d", audioLayout, audioSampleRate)
	return ffgo.Input(src, ffgo.KwArgs{"f": "lavfi", "t": seconds(ms)}).Audio()
}

func clipMs(clip timeline.ClipDescriptor) int64 {
	if clip.IsVideo {
		return clip.TrimEndMs - clip.TrimStartMs
	}
	return clip.DisplayMs
}

func seconds(ms int64) string {
	return strconv.FormatFloat(float64(ms)/1000, 'f', 3, 64)
}

func codecOrDefault(codec string) string {
	if codec == "" {
		return compose.DefaultVideoCodec
	}
	return codec
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
