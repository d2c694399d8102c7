// Package timeline turns planned selections into backend-ready clip
// descriptors.
package timeline

import (
	"github.com/moments/moments-agent/internal/media"
	"github.com/moments/moments-agent/internal/planner"
)

// StillFrameRate is the frame rate hint every still must carry; the backend
// rejects mixed image and video timelines without it.
const StillFrameRate = 30

// ClipDescriptor is one normalized timeline entry.
//
// For video, the trim window is [TrimStartMs, TrimEndMs]. For stills,
// DisplayMs is how long the image is shown and FrameRate is set.
type ClipDescriptor struct {
	MediaID     int64  `json:"media_id"`
	SourceURI   string `json:"source_uri"`
	IsVideo     bool   `json:"is_video"`
	DurationMs  int64  `json:"duration_ms"`
	TrimStartMs int64  `json:"trim_start_ms,omitempty"`
	TrimEndMs   int64  `json:"trim_end_ms,omitempty"`
	DisplayMs   int64  `json:"display_ms,omitempty"`
	FrameRate   int    `json:"frame_rate,omitempty"`
	RemoveAudio bool   `json:"remove_audio"`
}

// Build maps assignments to descriptors, one per assignment, in the same order.
func Build(assignments []planner.Assignment) []ClipDescriptor {
	clips := make([]ClipDescriptor, len(assignments))
	for i, a := range assignments {
		clips[i] = describe(a.Item, a.DurationMs())
	}
	return clips
}

func describe(item media.MediaItem, durationMs int64) ClipDescriptor {
	c := ClipDescriptor{
		MediaID:    item.ID,
		SourceURI:  item.URI,
		IsVideo:    item.IsVideo,
		DurationMs: durationMs,
	}
	if item.IsVideo {
		// The backend clamps an end past the clip's native length.
		c.TrimStartMs = 0
		c.TrimEndMs = durationMs
		return c
	}
	c.DisplayMs = durationMs
	c.FrameRate = StillFrameRate
	c.RemoveAudio = true
	return c
}

// MixesStills reports whether the timeline contains at least one still.
func MixesStills(clips []ClipDescriptor) bool {
	for _, c := range clips {
		if !c.IsVideo {
			return true
		}
	}
	return false
}

// TotalMs is the summed duration of every clip.
func TotalMs(clips []ClipDescriptor) int64 {
	var total int64
	for _, c := range clips {
		total += c.DurationMs
	}
	return total
}
