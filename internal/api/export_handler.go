package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/moments/moments-agent/internal/export"
)

type ExportProjectRequest struct {
	OutputDir string `json:"output_dir"`
}

type ExportProjectResponse struct {
	Status     string `json:"status"`
	Format     string `json:"format"`
	OutputPath string `json:"output_path"`
	ClipCount  int    `json:"clip_count"`
}

// projectEDLHandler answers with p's timeline as an EDL attachment.
func projectEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		p := cfg.Projects.Get(r.Context(), id)
		if p == nil {
			WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			return
		}

		edl, err := export.ProjectEDL(p)
		if err != nil {
			cfg.Logger.Error("edl export failed", "error", err, "project_id", id)
			WriteError(w, http.StatusUnprocessableEntity, err.Error(), "UNRESOLVABLE_TIMELINE")
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+export.Title(p)+`.edl"`)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(edl))
	}
}

// exportProjectHandler writes p's EDL into a local folder.
func exportProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExportProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if err := export.ValidateOutputDir(req.OutputDir); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		id := chi.URLParam(r, "id")
		p := cfg.Projects.Get(r.Context(), id)
		if p == nil {
			WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			return
		}

		clips, err := export.FromProject(p)
		if err != nil {
			WriteError(w, http.StatusUnprocessableEntity, err.Error(), "UNRESOLVABLE_TIMELINE")
			return
		}

		path, err := export.WriteProjectEDL(req.OutputDir, p)
		if err != nil {
			cfg.Logger.Error("edl export failed", "error", err, "project_id", id)
			WriteError(w, http.StatusInternalServerError, "failed to write export file", "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusOK, ExportProjectResponse{
			Status:     "ok",
			Format:     "edl",
			OutputPath: path,
			ClipCount:  len(clips),
		})
	}
}
