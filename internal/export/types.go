// Package export writes a project's timeline as a CMX3600 edit decision list
// for editors that want to rework a composition.
package export

import (
	"fmt"
	"path/filepath"

	"github.com/moments/moments-agent/internal/planner"
	"github.com/moments/moments-agent/internal/project"
	"github.com/moments/moments-agent/internal/timeline"
)

// DefaultFrameRate matches the still-image frame rate used when composing.
const DefaultFrameRate = float64(timeline.StillFrameRate)

// Clip is one EDL event. Source times are relative to the media file.
type Clip struct {
	Name      string
	MediaPath string
	StartMs   int64
	EndMs     int64
	Still     bool
}

func (c Clip) DurationMs() int64 {
	return c.EndMs - c.StartMs
}

// FromProject rebuilds the clip list a project was composed from.
func FromProject(p *project.Project) ([]Clip, error) {
	assignments, err := planner.Plan(p.Template, p.Selection)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", p.ID, err)
	}

	descs := timeline.Build(assignments)
	clips := make([]Clip, 0, len(descs))
	for _, d := range descs {
		name := SanitizeName(filepath.Base(d.SourceURI), 160)
		if name == "" {
			name = fmt.Sprintf("media_%d", d.MediaID)
		}
		c := Clip{Name: name, MediaPath: d.SourceURI, Still: !d.IsVideo}
		if d.IsVideo {
			c.StartMs, c.EndMs = d.TrimStartMs, d.TrimEndMs
		} else {
			c.EndMs = d.DisplayMs
		}
		clips = append(clips, c)
	}
	return clips, nil
}
