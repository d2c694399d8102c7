package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/moments/moments-agent/internal/media"
)

func TestProjectEDL(t *testing.T) {
	cfg := testConfig()
	p := sampleProject("p1")
	p.Name = "Summer / Trip"
	cfg.Projects = newFakeProjects(p)

	rr := serve(cfg, newLocalRequest(t, http.MethodGet, "/projects/p1/edl", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, ".edl") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	body := rr.Body.String()
	if !strings.HasPrefix(body, "TITLE: ") {
		t.Errorf("body does not start with a title: %q", body)
	}
	if n := strings.Count(body, "* FROM CLIP NAME:"); n != 7 {
		t.Errorf("%d events, want 7", n)
	}
}

func TestProjectEDL_Errors(t *testing.T) {
	cfg := testConfig()
	broken := sampleProject("broken")
	broken.Selection = media.Selection{broken.Selection[0]}
	cfg.Projects = newFakeProjects(broken)

	if rr := serve(cfg, newLocalRequest(t, http.MethodGet, "/projects/missing/edl", nil)); rr.Code != http.StatusNotFound {
		t.Errorf("missing: status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	rr := serve(cfg, newLocalRequest(t, http.MethodGet, "/projects/broken/edl", nil))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("mismatched selection: status = %d, want %d", rr.Code, http.StatusUnprocessableEntity)
	}
}

func TestExportProject_WritesFile(t *testing.T) {
	outDir := t.TempDir()
	cfg := testConfig()
	p := sampleProject("p1")
	p.Name = "Weekend"
	cfg.Projects = newFakeProjects(p)

	rr := serve(cfg, newLocalRequest(t, http.MethodPost, "/projects/p1/export", ExportProjectRequest{OutputDir: outDir}))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	body := decodeJSONBody(t, rr)
	want := filepath.Join(outDir, "Weekend.edl")
	if body["output_path"] != want || body["clip_count"] != float64(7) {
		t.Errorf("body = %v", body)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if !strings.HasPrefix(string(data), "TITLE: Weekend") {
		t.Errorf("edl = %q", data)
	}
}

func TestExportProject_Rejected(t *testing.T) {
	cfg := testConfig()
	cfg.Projects = newFakeProjects(sampleProject("p1"))

	tests := []struct {
		name string
		path string
		dir  string
		code int
	}{
		{"missing dir", "/projects/p1/export", "", http.StatusBadRequest},
		{"traversal", "/projects/p1/export", "/tmp/../etc", http.StatusBadRequest},
		{"nonexistent dir", "/projects/p1/export", filepath.Join(t.TempDir(), "nope"), http.StatusBadRequest},
		{"unknown project", "/projects/nope/export", t.TempDir(), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(cfg, newLocalRequest(t, http.MethodPost, tt.path, ExportProjectRequest{OutputDir: tt.dir}))
			if rr.Code != tt.code {
				t.Errorf("status = %d, want %d", rr.Code, tt.code)
			}
		})
	}
}
