package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/moments/moments-agent/internal/gallery"
	"github.com/moments/moments-agent/internal/media"
	"github.com/moments/moments-agent/internal/planner"
	"github.com/moments/moments-agent/internal/playback"
	"github.com/moments/moments-agent/internal/project"
	"github.com/moments/moments-agent/internal/studio"
)

const (
	defaultAttemptsLimit = 20
	maxAttemptsLimit     = 100
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(LoopbackGuard())
	r.Use(CORSAllowlist())

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Tokens, cfg.Logger))

		r.Get("/status", statusHandler(cfg))

		r.Get("/templates", listTemplatesHandler(cfg))
		r.Get("/templates/{id}", getTemplateHandler(cfg))
		r.Get("/gallery", galleryHandler(cfg))

		r.Post("/compositions", startCompositionHandler(cfg))
		r.Get("/compositions", listAttemptsHandler(cfg))
		r.Get("/compositions/current", currentCompositionHandler(cfg))
		r.Get("/compositions/events", compositionEventsHandler(cfg))
		r.Post("/compositions/reset", resetCompositionHandler(cfg))
		r.Post("/compositions/cancel", cancelCompositionHandler(cfg))

		r.Get("/projects", listProjectsHandler(cfg))
		r.Get("/projects/events", projectEventsHandler(cfg))
		r.Get("/projects/{id}", getProjectHandler(cfg))
		r.Patch("/projects/{id}", renameProjectHandler(cfg))
		r.Delete("/projects/{id}", deleteProjectHandler(cfg))
		r.Get("/projects/{id}/video", projectVideoHandler(cfg))
		r.Head("/projects/{id}/video", projectVideoHandler(cfg))
		r.Get("/projects/{id}/edl", projectEDLHandler(cfg))
		r.Post("/projects/{id}/export", exportProjectHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  cfg.Version,
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		current := SnapshotToState(cfg.Studio.State())
		resp := StatusResponse{
			State:          current.State,
			Composition:    current,
			ProjectsCount:  cfg.Projects.Count(ctx),
			RecentAttempts: len(cfg.Studio.Attempts(ctx, defaultAttemptsLimit)),
		}

		if cfg.Doctor != nil {
			if caps := cfg.Doctor.Get(ctx); caps != nil {
				resp.Encoder = CapabilitiesToResponse(caps)
			}
		}
		if cfg.MaxTotal > 0 {
			resp.Limits = &LimitsResponse{MaxTotalSeconds: cfg.MaxTotal.Seconds()}
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func listTemplatesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var category media.Category
		if c := r.URL.Query().Get("category"); c != "" {
			parsed, err := media.ParseCategory(c)
			if err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
			category = parsed
		}

		templates := media.Templates(category)
		resp := TemplatesResponse{Templates: make([]TemplateResponse, len(templates))}
		for i, t := range templates {
			resp.Templates[i] = TemplateToResponse(t)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getTemplateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusBadRequest, "template id must be a number", "BAD_REQUEST")
			return
		}

		t, ok := media.FindTemplate(id)
		if !ok {
			WriteError(w, http.StatusNotFound, "template not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, TemplateToResponse(t))
	}
}

func galleryHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Gallery == nil {
			WriteError(w, http.StatusNotFound, "no gallery folder configured", "NOT_FOUND")
			return
		}

		items, err := cfg.Gallery.Scan(r.Context())
		if err != nil {
			cfg.Logger.Error("gallery scan failed", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to scan gallery", "INTERNAL_ERROR")
			return
		}
		if items == nil {
			items = []media.MediaItem{}
		}
		WriteJSON(w, http.StatusOK, GalleryResponse{Items: items})
	}
}

func startCompositionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartCompositionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		items := req.Media
		if len(items) == 0 && len(req.MediaIDs) > 0 {
			if cfg.Gallery == nil {
				WriteError(w, http.StatusBadRequest, "media_ids require a gallery folder", "BAD_REQUEST")
				return
			}
			found, err := cfg.Gallery.Find(r.Context(), req.MediaIDs)
			if errors.Is(err, gallery.ErrItemNotFound) {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
			if err != nil {
				WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
				return
			}
			items = found
		}

		attempt, err := cfg.Studio.Start(r.Context(), req.TemplateID, items)
		if err != nil {
			status, code := startErrorStatus(err)
			WriteError(w, status, err.Error(), code)
			return
		}

		WriteJSON(w, http.StatusAccepted, StartCompositionResponse{AttemptID: attempt.ID})
	}
}

// startErrorStatus maps a rejected start to its HTTP status and error code.
func startErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, studio.ErrUnknownTemplate):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, studio.ErrBusy):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, planner.ErrSelectionIncomplete),
		errors.Is(err, planner.ErrPlanTooLong),
		errors.Is(err, media.ErrDuplicateMedia),
		errors.Is(err, media.ErrInvalidTemplate):
		return http.StatusBadRequest, "BAD_REQUEST"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

func listAttemptsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultAttemptsLimit
		if l := r.URL.Query().Get("limit"); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil || n < 1 {
				WriteError(w, http.StatusBadRequest, "limit must be a positive number", "BAD_REQUEST")
				return
			}
			limit = min(n, maxAttemptsLimit)
		}

		attempts := cfg.Studio.Attempts(r.Context(), limit)
		resp := AttemptsResponse{Attempts: make([]AttemptResponse, len(attempts))}
		for i, a := range attempts {
			resp.Attempts[i] = AttemptToResponse(a)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func currentCompositionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, SnapshotToState(cfg.Studio.State()))
	}
}

func resetCompositionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Studio.Reset(); err != nil {
			WriteError(w, http.StatusConflict, err.Error(), "CONFLICT")
			return
		}
		WriteJSON(w, http.StatusOK, SnapshotToState(cfg.Studio.State()))
	}
}

func cancelCompositionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.Studio.Cancel() {
			WriteError(w, http.StatusConflict, "no composition in progress", "CONFLICT")
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, ProjectsToResponse(cfg.Projects.List(r.Context())))
	}
}

func getProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := cfg.Projects.Get(r.Context(), chi.URLParam(r, "id"))
		if p == nil {
			WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, ProjectToResponse(p))
	}
}

func renameProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RenameProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		id := chi.URLParam(r, "id")
		err := cfg.Projects.Rename(r.Context(), id, req.Name)
		if errors.Is(err, project.ErrBlankName) {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		p := cfg.Projects.Get(r.Context(), id)
		if p == nil {
			WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, ProjectToResponse(p))
	}
}

func deleteProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Projects.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func projectVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		p := cfg.Projects.Get(r.Context(), id)
		if p == nil {
			WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			return
		}

		if err := cfg.PlaybackServer.ServeFile(w, r, p.OutputRef); err != nil {
			cfg.Logger.Error("playback error", "error", err, "project_id", id)
			if errors.Is(err, playback.ErrNotPlayable) {
				WriteError(w, http.StatusNotFound, "project video is not available", "NOT_FOUND")
				return
			}
			WriteError(w, http.StatusInternalServerError, "failed to serve video", "INTERNAL_ERROR")
		}
	}
}
