package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/moments/moments-agent/internal/compose"
	"github.com/moments/moments-agent/internal/ffmpeg"
	"github.com/moments/moments-agent/internal/media"
	"github.com/moments/moments-agent/internal/project"
	"github.com/moments/moments-agent/internal/studio"
)

const testToken = "test-token-0123456789"

type fakeStudio struct {
	mu        sync.Mutex
	state     studio.Snapshot
	startErr  error
	resetErr  error
	cancelled bool
	busy      bool
	started   []media.MediaItem
	attempts  []*studio.Attempt
	subs      []chan studio.Snapshot
}

func (f *fakeStudio) Start(ctx context.Context, templateID int, items []media.MediaItem) (*studio.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = append([]media.MediaItem(nil), items...)
	return &studio.Attempt{ID: "attempt-1", TemplateID: templateID, Status: studio.StatusRunning}, nil
}

func (f *fakeStudio) State() studio.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.Result == nil {
		return studio.Snapshot{Result: compose.Idle{}}
	}
	return f.state
}

func (f *fakeStudio) Reset() error {
	return f.resetErr
}

func (f *fakeStudio) Cancel() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.busy {
		return false
	}
	f.cancelled = true
	return true
}

func (f *fakeStudio) Subscribe() (<-chan studio.Snapshot, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan studio.Snapshot, 4)
	ch <- f.state
	f.subs = append(f.subs, ch)
	return ch, func() {}
}

func (f *fakeStudio) push(s studio.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		ch <- s
	}
}

func (f *fakeStudio) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeStudio) Attempts(ctx context.Context, limit int) []*studio.Attempt {
	if len(f.attempts) > limit {
		return f.attempts[:limit]
	}
	return f.attempts
}

type fakeProjects struct {
	mu        sync.Mutex
	projects  map[string]*project.Project
	order     []string
	renameErr error
	deleted   []string
	watch     chan []*project.Project
}

func newFakeProjects(list ...*project.Project) *fakeProjects {
	f := &fakeProjects{projects: map[string]*project.Project{}}
	for _, p := range list {
		f.projects[p.ID] = p
		f.order = append(f.order, p.ID)
	}
	return f
}

func (f *fakeProjects) Get(ctx context.Context, id string) *project.Project {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.projects[id].Clone()
}

func (f *fakeProjects) List(ctx context.Context) []*project.Project {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*project.Project{}
	for _, id := range f.order {
		if p, ok := f.projects[id]; ok {
			out = append(out, p.Clone())
		}
	}
	return out
}

func (f *fakeProjects) Count(ctx context.Context) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.projects)
}

func (f *fakeProjects) Watch(ctx context.Context) <-chan []*project.Project {
	if f.watch != nil {
		return f.watch
	}
	ch := make(chan []*project.Project, 1)
	ch <- f.List(ctx)
	return ch
}

func (f *fakeProjects) Rename(ctx context.Context, id, name string) error {
	if f.renameErr != nil {
		return f.renameErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.projects[id]; ok {
		p.Name = name
	}
	return nil
}

func (f *fakeProjects) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.projects, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeGallery struct {
	items []media.MediaItem
	err   error
}

func (f *fakeGallery) Scan(ctx context.Context) ([]media.MediaItem, error) {
	return f.items, f.err
}

func (f *fakeGallery) Find(ctx context.Context, ids []int64) ([]media.MediaItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]media.MediaItem, 0, len(ids))
	for _, id := range ids {
		for _, it := range f.items {
			if it.ID == id {
				out = append(out, it)
			}
		}
	}
	return out, nil
}

type fakeDoctor struct {
	caps *ffmpeg.Capabilities
}

func (f *fakeDoctor) Get(ctx context.Context) *ffmpeg.Capabilities {
	return f.caps
}

type fakeTokens struct {
	token string
	err   error
}

func (f *fakeTokens) GetConfig(ctx context.Context, key string) (string, error) {
	if key != AuthTokenKey {
		return "", nil
	}
	return f.token, f.err
}

type fakePlayback struct {
	served []string
	err    error
}

func (f *fakePlayback) ServeFile(w http.ResponseWriter, r *http.Request, path string) error {
	if f.err != nil {
		return f.err
	}
	f.served = append(f.served, path)
	w.Header().Set("Accept-Ranges", "bytes")
	w.WriteHeader(http.StatusOK)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() ServerConfig {
	return ServerConfig{
		Studio:         &fakeStudio{},
		Projects:       newFakeProjects(),
		PlaybackServer: &fakePlayback{},
		Tokens:         &fakeTokens{token: testToken},
		Logger:         testLogger(),
		StartTime:      time.Now().Add(-10 * time.Second),
		DeviceID:       "test-device",
	}
}

func sampleProject(id string) *project.Project {
	tmpl, _ := media.FindTemplate(1)
	sel := make(media.Selection, tmpl.SlotCount())
	for i := range sel {
		sel[i] = media.MediaItem{ID: int64(i + 1), URI: "/media/clip" + string(rune('a'+i)) + ".mp4", IsVideo: true, DurationMs: 10000}
	}
	return &project.Project{
		ID:           id,
		Name:         project.DefaultName,
		OutputRef:    "/library/" + id + ".mp4",
		ThumbnailRef: sel[0].URI,
		Template:     tmpl,
		Selection:    sel,
		CreatedAt:    time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC),
	}
}

// newLocalRequest builds an authenticated request from a loopback client.
func newLocalRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json.Marshal error: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	req.RemoteAddr = "127.0.0.1:54321"
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func serve(cfg ServerConfig, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	NewRouter(cfg).ServeHTTP(rr, req)
	return rr
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}

	return body
}
