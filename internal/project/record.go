package project

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/moments/moments-agent/internal/media"
)

// Record is the flat persisted shape of a Project. List-valued fields are
// JSON text.
type Record struct {
	ID                           string
	Name                         string
	OutputRef                    string
	ThumbnailRef                 string
	TemplateID                   int
	TemplateTitle                string
	TemplateSlotCount            int
	TemplateTotalDurationSeconds float64
	TemplateCategory             string
	TemplateSlotDurationsJSON    string
	SelectedMediaJSON            string
	CreatedAtEpochMillis         int64
}

// mediaRecord keeps the key names of records written by earlier versions.
type mediaRecord struct {
	ID         int64  `json:"id"`
	URIString  string `json:"uriString"`
	IsVideo    bool   `json:"isVideo"`
	Duration   int64  `json:"duration"`
	IsSelected bool   `json:"isSelected"`
}

// Encode flattens p into a Record.
func Encode(p *Project) (Record, error) {
	durations := p.Template.SlotDurations
	if durations == nil {
		durations = []float64{}
	}
	durationsJSON, err := json.Marshal(durations)
	if err != nil {
		return Record{}, fmt.Errorf("failed to encode slot durations: %w", err)
	}

	items := make([]mediaRecord, 0, len(p.Selection))
	for _, m := range p.Selection {
		items = append(items, mediaRecord{
			ID:         m.ID,
			URIString:  m.URI,
			IsVideo:    m.IsVideo,
			Duration:   m.DurationMs,
			IsSelected: m.IsSelected,
		})
	}
	mediaJSON, err := json.Marshal(items)
	if err != nil {
		return Record{}, fmt.Errorf("failed to encode selected media: %w", err)
	}

	return Record{
		ID:                           p.ID,
		Name:                         p.Name,
		OutputRef:                    p.OutputRef,
		ThumbnailRef:                 p.ThumbnailRef,
		TemplateID:                   p.Template.ID,
		TemplateTitle:                p.Template.Title,
		TemplateSlotCount:            p.Template.SlotCount(),
		TemplateTotalDurationSeconds: p.Template.TotalSeconds(),
		TemplateCategory:             string(p.Template.Category),
		TemplateSlotDurationsJSON:    string(durationsJSON),
		SelectedMediaJSON:            string(mediaJSON),
		CreatedAtEpochMillis:         p.CreatedAt.UnixMilli(),
	}, nil
}

// Decode rebuilds a Project from r. Per-item selection flags are reset to
// false; they carry no meaning once a composition exists.
func Decode(r Record) (*Project, error) {
	category, err := media.ParseCategory(r.TemplateCategory)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", r.ID, err)
	}

	var durations []float64
	if err := json.Unmarshal([]byte(r.TemplateSlotDurationsJSON), &durations); err != nil {
		return nil, fmt.Errorf("project %s: failed to decode slot durations: %w", r.ID, err)
	}

	var items []mediaRecord
	if err := json.Unmarshal([]byte(r.SelectedMediaJSON), &items); err != nil {
		return nil, fmt.Errorf("project %s: failed to decode selected media: %w", r.ID, err)
	}
	sel := make(media.Selection, 0, len(items))
	for _, it := range items {
		sel = append(sel, media.MediaItem{
			ID:         it.ID,
			URI:        it.URIString,
			IsVideo:    it.IsVideo,
			DurationMs: it.Duration,
		})
	}

	return &Project{
		ID:           r.ID,
		Name:         r.Name,
		OutputRef:    r.OutputRef,
		ThumbnailRef: r.ThumbnailRef,
		Template: media.Template{
			ID:            r.TemplateID,
			Title:         r.TemplateTitle,
			SlotDurations: durations,
			Category:      category,
		},
		Selection: sel,
		CreatedAt: time.UnixMilli(r.CreatedAtEpochMillis),
	}, nil
}
