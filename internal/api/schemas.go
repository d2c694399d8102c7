package api

import (
	"time"

	"github.com/moments/moments-agent/internal/compose"
	"github.com/moments/moments-agent/internal/ffmpeg"
	"github.com/moments/moments-agent/internal/media"
	"github.com/moments/moments-agent/internal/project"
	"github.com/moments/moments-agent/internal/studio"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	State          string           `json:"state"`
	Composition    CompositionState `json:"composition"`
	ProjectsCount  int              `json:"projects_count"`
	RecentAttempts int              `json:"recent_attempts"`
	Encoder        *EncoderResponse `json:"encoder,omitempty"`
	Limits         *LimitsResponse  `json:"limits,omitempty"`
}

type EncoderResponse struct {
	Ready         bool   `json:"ready"`
	HasFFmpeg     bool   `json:"has_ffmpeg"`
	HasFFprobe    bool   `json:"has_ffprobe"`
	FFmpegVersion string `json:"ffmpeg_version,omitempty"`
	LastProbeAt   string `json:"last_probe_at,omitempty"`
}

type LimitsResponse struct {
	MaxTotalSeconds float64 `json:"max_total_seconds"`
}

// CompositionState is one session snapshot. Percent is set for progress, and
// is 100 on success.
type CompositionState struct {
	State     string `json:"state"`
	Percent   int    `json:"percent"`
	OutputRef string `json:"output_ref,omitempty"`
	Error     string `json:"error,omitempty"`
	AttemptID string `json:"attempt_id,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
}

type TemplatesResponse struct {
	Templates []TemplateResponse `json:"templates"`
}

type TemplateResponse struct {
	ID            int       `json:"id"`
	Title         string    `json:"title"`
	Category      string    `json:"category"`
	SlotCount     int       `json:"slot_count"`
	SlotDurations []float64 `json:"slot_durations"`
	TotalSeconds  float64   `json:"total_seconds"`
}

type GalleryResponse struct {
	Items []media.MediaItem `json:"items"`
}

// StartCompositionRequest names the pick either inline or by gallery id.
// Media wins when both are given.
type StartCompositionRequest struct {
	TemplateID int               `json:"template_id"`
	Media      []media.MediaItem `json:"media,omitempty"`
	MediaIDs   []int64           `json:"media_ids,omitempty"`
}

type StartCompositionResponse struct {
	AttemptID string `json:"attempt_id"`
}

type AttemptResponse struct {
	ID         string `json:"id"`
	TemplateID int    `json:"template_id"`
	Status     string `json:"status"`
	Progress   int    `json:"progress"`
	OutputRef  string `json:"output_ref,omitempty"`
	ProjectID  string `json:"project_id,omitempty"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type AttemptsResponse struct {
	Attempts []AttemptResponse `json:"attempts"`
}

type ProjectResponse struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	OutputRef    string           `json:"output_ref"`
	ThumbnailRef string           `json:"thumbnail_ref"`
	Template     TemplateResponse `json:"template"`
	Selection    media.Selection  `json:"selection"`
	CreatedAt    string           `json:"created_at"`
}

type ProjectsResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

type RenameProjectRequest struct {
	Name string `json:"name"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func SnapshotToState(s studio.Snapshot) CompositionState {
	cs := CompositionState{
		State:     compose.StateName(s.Result),
		AttemptID: s.AttemptID,
		ProjectID: s.ProjectID,
	}
	switch v := s.Result.(type) {
	case compose.Progress:
		cs.Percent = v.Percent
	case compose.Success:
		cs.Percent = 100
		cs.OutputRef = v.OutputRef
	case compose.Failure:
		cs.Error = v.Message
	case nil:
		cs.State = compose.StateName(compose.Idle{})
	}
	return cs
}

func TemplateToResponse(t media.Template) TemplateResponse {
	return TemplateResponse{
		ID:            t.ID,
		Title:         t.Title,
		Category:      string(t.Category),
		SlotCount:     t.SlotCount(),
		SlotDurations: append([]float64{}, t.SlotDurations...),
		TotalSeconds:  t.TotalSeconds(),
	}
}

func AttemptToResponse(a *studio.Attempt) AttemptResponse {
	return AttemptResponse{
		ID:         a.ID,
		TemplateID: a.TemplateID,
		Status:     a.Status,
		Progress:   a.Progress,
		OutputRef:  a.OutputRef,
		ProjectID:  a.ProjectID,
		Error:      a.Error,
		CreatedAt:  a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  a.UpdatedAt.Format(time.RFC3339),
	}
}

func ProjectToResponse(p *project.Project) ProjectResponse {
	sel := p.Selection
	if sel == nil {
		sel = media.Selection{}
	}
	return ProjectResponse{
		ID:           p.ID,
		Name:         p.Name,
		OutputRef:    p.OutputRef,
		ThumbnailRef: p.ThumbnailRef,
		Template:     TemplateToResponse(p.Template),
		Selection:    sel,
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
	}
}

func ProjectsToResponse(list []*project.Project) ProjectsResponse {
	resp := ProjectsResponse{Projects: make([]ProjectResponse, len(list))}
	for i, p := range list {
		resp.Projects[i] = ProjectToResponse(p)
	}
	return resp
}

func CapabilitiesToResponse(c *ffmpeg.Capabilities) *EncoderResponse {
	resp := &EncoderResponse{
		Ready:         c.Ready(),
		HasFFmpeg:     c.HasFFmpeg,
		HasFFprobe:    c.HasFFprobe,
		FFmpegVersion: c.FFmpegVersion,
	}
	if !c.ProbedAt.IsZero() {
		resp.LastProbeAt = c.ProbedAt.Format(time.RFC3339)
	}
	return resp
}
