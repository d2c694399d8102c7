package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/moments/moments-agent/internal/project"
)

// GenerateEDL renders clips back to back on one video track.
func GenerateEDL(clips []Clip, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = int(DefaultFrameRate)
	}

	dropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	var b strings.Builder
	fmt.Fprintf(&b, "TITLE: %s\n", title)
	if dropFrame {
		b.WriteString("FCM: DROP FRAME\n")
	} else {
		b.WriteString("FCM: NON-DROP FRAME\n")
	}
	b.WriteString("\n")

	var recordMs int64
	for i, c := range clips {
		reel := "AX"
		fmt.Fprintf(&b, "%03d  %-8s %-5s C        %s %s %s %s\n",
			i+1, reel, "V",
			timecode(c.StartMs, fps), timecode(c.EndMs, fps),
			timecode(recordMs, fps), timecode(recordMs+c.DurationMs(), fps))
		fmt.Fprintf(&b, "* FROM CLIP NAME:  %s\n", c.Name)
		fmt.Fprintf(&b, "* MEDIA PATH:  %s\n", c.MediaPath)
		if c.Still {
			b.WriteString("* STILL IMAGE\n")
		}
		recordMs += c.DurationMs()
	}
	return b.String()
}

// ProjectEDL renders p's timeline with its name as the title.
func ProjectEDL(p *project.Project) (string, error) {
	clips, err := FromProject(p)
	if err != nil {
		return "", err
	}
	return GenerateEDL(clips, Title(p), DefaultFrameRate), nil
}

// Title is the sanitised EDL title of p.
func Title(p *project.Project) string {
	title := SanitizeName(p.Name, 120)
	if title == "" {
		title = "moments_export"
	}
	return title
}

// WriteProjectEDL writes p's EDL into dir and returns the file path.
func WriteProjectEDL(dir string, p *project.Project) (string, error) {
	if err := ValidateOutputDir(dir); err != nil {
		return "", err
	}
	edl, err := ProjectEDL(p)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, Title(p)+".edl")
	if err := os.WriteFile(path, []byte(edl), 0644); err != nil {
		return "", fmt.Errorf("failed to write EDL: %w", err)
	}
	return path, nil
}

func timecode(ms int64, fps int) string {
	frames := int64(math.Round(float64(ms) * float64(fps) / 1000.0))
	f := frames % int64(fps)
	secs := frames / int64(fps)
	return fmt.Sprintf("%02d:%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60, f)
}
