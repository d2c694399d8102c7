package export

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/moments/moments-agent/internal/media"
	"github.com/moments/moments-agent/internal/project"
)

func scenarioProject() *project.Project {
	return &project.Project{
		ID:   "p-1",
		Name: "Trip / Day 1",
		Template: media.Template{
			ID: 1, Title: "Two", SlotDurations: []float64{2.0, 3.0}, Category: media.CategoryNew,
		},
		Selection: media.Selection{
			{ID: 1, URI: "/media/imageA.jpg"},
			{ID: 2, URI: "/media/videoB.mp4", IsVideo: true, DurationMs: 9000},
		},
		CreatedAt: time.UnixMilli(1_700_000_000_000),
	}
}

func TestGenerateEDL_SingleClip(t *testing.T) {
	clips := []Clip{{Name: "Intro", MediaPath: "/media/intro.mp4", StartMs: 0, EndMs: 2000}}

	edl := GenerateEDL(clips, "Project One", 30.0)

	for _, want := range []string{
		"TITLE: Project One",
		"FCM: NON-DROP FRAME",
		"001  AX       V     C        00:00:00:00 00:00:02:00 00:00:00:00 00:00:02:00",
		"* FROM CLIP NAME:  Intro",
		"* MEDIA PATH:  /media/intro.mp4",
	} {
		if !strings.Contains(edl, want) {
			t.Fatalf("EDL missing %q: %q", want, edl)
		}
	}
}

func TestGenerateEDL_RecordOffsetAccumulates(t *testing.T) {
	clips := []Clip{
		{Name: "A", MediaPath: "/a.mp4", StartMs: 0, EndMs: 1000},
		{Name: "B", MediaPath: "/b.mp4", StartMs: 1000, EndMs: 2500},
	}

	edl := GenerateEDL(clips, "Multi", 30.0)

	if !strings.Contains(edl, "002  AX       V     C        00:00:01:00 00:00:02:15 00:00:01:00 00:00:02:15") {
		t.Fatalf("second event line mismatch or bad record offset: %q", edl)
	}
}

func TestGenerateEDL_DropFrame(t *testing.T) {
	edl := GenerateEDL([]Clip{{Name: "Clip", MediaPath: "/x.mp4", EndMs: 1000}}, "Drop", 29.97)
	if !strings.Contains(edl, "FCM: DROP FRAME") {
		t.Fatalf("expected drop frame FCM, got: %q", edl)
	}
}

func TestTimecode(t *testing.T) {
	tests := []struct {
		name string
		ms   int64
		fps  int
		want string
	}{
		{name: "zero", ms: 0, fps: 30, want: "00:00:00:00"},
		{name: "one second", ms: 1000, fps: 30, want: "00:00:01:00"},
		{name: "fractional second", ms: 500, fps: 30, want: "00:00:00:15"},
		{name: "one minute", ms: 60000, fps: 30, want: "00:01:00:00"},
		{name: "one hour", ms: 3600000, fps: 30, want: "01:00:00:00"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := timecode(tc.ms, tc.fps); got != tc.want {
				t.Fatalf("timecode(%d, %d) = %q, want %q", tc.ms, tc.fps, got, tc.want)
			}
		})
	}
}

func TestFromProject(t *testing.T) {
	clips, err := FromProject(scenarioProject())
	if err != nil {
		t.Fatalf("FromProject() error = %v", err)
	}
	if len(clips) != 2 {
		t.Fatalf("len = %d, want 2", len(clips))
	}
	if !clips[0].Still || clips[0].DurationMs() != 2000 || clips[0].Name != "imageA.jpg" {
		t.Errorf("still clip = %+v", clips[0])
	}
	if clips[1].Still || clips[1].StartMs != 0 || clips[1].EndMs != 3000 {
		t.Errorf("video clip = %+v", clips[1])
	}
}

func TestFromProject_MismatchedSelection(t *testing.T) {
	p := scenarioProject()
	p.Selection = p.Selection[:1]
	if _, err := FromProject(p); err == nil {
		t.Error("FromProject() should fail when selection does not fill the template")
	}
}

func TestProjectEDL(t *testing.T) {
	edl, err := ProjectEDL(scenarioProject())
	if err != nil {
		t.Fatalf("ProjectEDL() error = %v", err)
	}
	if !strings.Contains(edl, "TITLE: Trip _ Day 1") {
		t.Errorf("title not sanitised: %q", edl)
	}
	if !strings.Contains(edl, "002  AX       V     C        00:00:00:00 00:00:03:00 00:00:02:00 00:00:05:00") {
		t.Errorf("video event mismatch: %q", edl)
	}
	if strings.Count(edl, "* STILL IMAGE") != 1 {
		t.Errorf("want one still marker: %q", edl)
	}
}

func TestWriteProjectEDL(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteProjectEDL(dir, scenarioProject())
	if err != nil {
		t.Fatalf("WriteProjectEDL() error = %v", err)
	}
	if !strings.HasSuffix(path, "Trip _ Day 1.edl") {
		t.Errorf("path = %s", path)
	}
	if data, err := os.ReadFile(path); err != nil || !strings.HasPrefix(string(data), "TITLE:") {
		t.Errorf("written EDL = %q, %v", data, err)
	}

	if _, err := WriteProjectEDL(dir+"/missing", scenarioProject()); err == nil {
		t.Error("WriteProjectEDL() into a missing dir should fail")
	}
}
