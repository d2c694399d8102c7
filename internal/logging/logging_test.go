package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger_WritesJSONWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := WithAttemptID(WithComponent(newLogger(&buf, "info"), "studio"), "a-1")
	logger.Debug("hidden")
	logger.Info("composition started", "clips", 7)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "composition started" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["component"] != "studio" || entry["attempt_id"] != "a-1" {
		t.Errorf("attrs missing: %v", entry)
	}
	if entry["clips"] != float64(7) {
		t.Errorf("clips = %v, want 7", entry["clips"])
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "****"},
		{"12345678", "****"},
		{"abcdefghijkl", "abcd...ijkl"},
	}
	for _, tt := range tests {
		if got := SanitizeToken(tt.in); got != tt.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizePath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		t.Skip("no home directory")
	}
	in := filepath.Join(home, ".moments", "videos", "MOMENTS_1.mp4")
	want := "~" + in[len(home):]
	if got := SanitizePath(in); got != want {
		t.Errorf("SanitizePath(%q) = %q, want %q", in, got, want)
	}
	if got := SanitizePath("/opt/media/a.mp4"); got != "/opt/media/a.mp4" && home != "/" {
		t.Errorf("SanitizePath changed non-home path: %q", got)
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatal("OrDiscard(nil) returned nil")
	}
	l := Discard()
	if OrDiscard(l) != l {
		t.Error("OrDiscard replaced a non-nil logger")
	}
}
