// Package project persists completed compositions as reopenable projects.
package project

import (
	"errors"
	"time"

	"github.com/moments/moments-agent/internal/media"
)

// DefaultName is given to every newly saved project.
const DefaultName = "your projects name"

var ErrBlankName = errors.New("project name is blank")

// Project is a completed composition plus the inputs that produced it.
// Template and Selection are value copies taken at save time.
type Project struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	OutputRef    string          `json:"output_ref"`
	ThumbnailRef string          `json:"thumbnail_ref"`
	Template     media.Template  `json:"template"`
	Selection    media.Selection `json:"selection"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Clone returns a deep copy of p.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	c.Template = p.Template.Clone()
	c.Selection = p.Selection.Clone()
	return &c
}

// ThumbnailFor picks the first selected item's location, falling back to the
// output itself.
func ThumbnailFor(outputRef string, sel media.Selection) string {
	if len(sel) > 0 && sel[0].URI != "" {
		return sel[0].URI
	}
	return outputRef
}
