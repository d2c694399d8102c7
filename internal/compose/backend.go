package compose

import (
	"context"

	"github.com/moments/moments-agent/internal/timeline"
)

// DefaultVideoCodec is H.264.
const DefaultVideoCodec = "libx264"

// Request is a single sequential track built from the timeline.
type Request struct {
	Clips []timeline.ClipDescriptor

	// ForceAudioTrack makes the backend emit an audio track even where clips
	// contribute silence. Set whenever stills are present.
	ForceAudioTrack bool

	VideoCodec string
	TotalMs    int64
}

// Outcome is the backend's single completion report. A nil Err is success.
type Outcome struct {
	OutputRef string
	Err       error
}

// Backend is the external encoder.
type Backend interface {
	// Start submits req for encoding into dest and returns without waiting.
	// Exactly one Outcome is delivered on done unless Start returns an error.
	Start(ctx context.Context, req Request, dest string, done chan<- Outcome) error

	// Progress reports the completed fraction of the running request in
	// [0, 1]. ok is false while no estimate is available.
	Progress() (fraction float64, ok bool)
}

// NewRequest joins clips into one request with codec selection and the
// audio directive applied.
func NewRequest(clips []timeline.ClipDescriptor, codec string) Request {
	if codec == "" {
		codec = DefaultVideoCodec
	}
	return Request{
		Clips:           append([]timeline.ClipDescriptor(nil), clips...),
		ForceAudioTrack: timeline.MixesStills(clips),
		VideoCodec:      codec,
		TotalMs:         timeline.TotalMs(clips),
	}
}
