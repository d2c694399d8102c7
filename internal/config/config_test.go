package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points the config at a fresh data dir with no file and clears
// every override.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, key := range []string{
		EnvConfigFile, EnvPort, EnvLogLevel, EnvFFmpegPath, EnvFFprobePath,
		EnvComposeTimeout, EnvHeadless, EnvGalleryDir, EnvMaxTotal,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv(EnvDataDir, dir)
	return dir
}

func TestNew_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.Port() != DefaultPort {
		t.Errorf("Port() = %d, want %d", cfg.Port(), DefaultPort)
	}
	if cfg.LogLevel() != "info" {
		t.Errorf("LogLevel() = %q, want info", cfg.LogLevel())
	}
	if cfg.ComposeTimeout() != 0 {
		t.Errorf("ComposeTimeout() = %v, want 0", cfg.ComposeTimeout())
	}
	if cfg.MaxTotal() != 40*time.Second {
		t.Errorf("MaxTotal() = %v, want 40s", cfg.MaxTotal())
	}
	if cfg.Headless() || cfg.GalleryDir() != "" || cfg.FFmpegPath() != "" {
		t.Errorf("unexpected optional values: headless=%v gallery=%q ffmpeg=%q", cfg.Headless(), cfg.GalleryDir(), cfg.FFmpegPath())
	}
	if cfg.File() != "" {
		t.Errorf("File() = %q, want empty without a config file", cfg.File())
	}

	paths := map[string]string{
		"DBPath":     cfg.DBPath(),
		"CacheDir":   cfg.CacheDir(),
		"LibraryDir": cfg.LibraryDir(),
		"LockPath":   cfg.LockPath(),
	}
	want := map[string]string{
		"DBPath":     filepath.Join(dir, "moments.db"),
		"CacheDir":   filepath.Join(dir, "cache"),
		"LibraryDir": filepath.Join(dir, "videos"),
		"LockPath":   filepath.Join(dir, "moments.lock"),
	}
	for name, got := range paths {
		if got != want[name] {
			t.Errorf("%s() = %q, want %q", name, got, want[name])
		}
	}
}

func TestNew_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(EnvPort, "9100")
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvFFmpegPath, "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv(EnvComposeTimeout, "120")
	t.Setenv(EnvHeadless, "true")
	t.Setenv(EnvMaxTotal, "0")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.Port() != 9100 {
		t.Errorf("Port() = %d, want 9100", cfg.Port())
	}
	if cfg.LogLevel() != "debug" {
		t.Errorf("LogLevel() = %q, want debug", cfg.LogLevel())
	}
	if cfg.FFmpegPath() != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("FFmpegPath() = %q", cfg.FFmpegPath())
	}
	if cfg.ComposeTimeout() != 2*time.Minute {
		t.Errorf("ComposeTimeout() = %v, want 2m", cfg.ComposeTimeout())
	}
	if !cfg.Headless() {
		t.Error("Headless() = false, want true")
	}
	if cfg.MaxTotal() != 0 {
		t.Errorf("MaxTotal() = %v, want 0", cfg.MaxTotal())
	}
}

func TestNew_FileThenEnv(t *testing.T) {
	dir := isolate(t)
	gallery := t.TempDir()
	content := strings.Join([]string{
		`port = 9200`,
		`log_level = "warn"`,
		`compose_timeout = 30`,
		`gallery_dir = "` + filepath.ToSlash(gallery) + `"`,
		`headless = true`,
	}, "\n")
	if err := os.WriteFile(filepath.Join(dir, ConfigFilename), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvPort, "9300")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.Port() != 9300 {
		t.Errorf("Port() = %d, want env value 9300", cfg.Port())
	}
	if cfg.LogLevel() != "warn" {
		t.Errorf("LogLevel() = %q, want file value warn", cfg.LogLevel())
	}
	if cfg.ComposeTimeout() != 30*time.Second {
		t.Errorf("ComposeTimeout() = %v, want 30s", cfg.ComposeTimeout())
	}
	if cfg.GalleryDir() != gallery {
		t.Errorf("GalleryDir() = %q, want %q", cfg.GalleryDir(), gallery)
	}
	if !cfg.Headless() {
		t.Error("Headless() = false, want file value true")
	}
	if cfg.File() != filepath.Join(dir, ConfigFilename) {
		t.Errorf("File() = %q", cfg.File())
	}
}

func TestNew_ExplicitFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.toml")
	if err := os.WriteFile(path, []byte("port = 9400\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfigFile, path)

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.Port() != 9400 {
		t.Errorf("Port() = %d, want 9400", cfg.Port())
	}

	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "missing.toml"))
	if _, err := New(); err == nil {
		t.Error("New() with a missing explicit config file should fail")
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port not a number", EnvPort, "abc"},
		{"port out of range", EnvPort, "70000"},
		{"port zero", EnvPort, "0"},
		{"negative timeout", EnvComposeTimeout, "-5"},
		{"timeout not a number", EnvComposeTimeout, "soon"},
		{"negative max total", EnvMaxTotal, "-1"},
		{"headless not a bool", EnvHeadless, "maybe"},
		{"unknown log level", EnvLogLevel, "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.value)
			if _, err := New(); err == nil {
				t.Errorf("New() with %s=%q should fail", tt.key, tt.value)
			}
		})
	}
}

func TestNew_MalformedFile(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, ConfigFilename), []byte("port = \"nine\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(); err == nil {
		t.Error("New() with a malformed config file should fail")
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := isolate(t)
	t.Setenv(EnvDataDir, filepath.Join(dir, "nested", "data"))

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories() error = %v", err)
	}
	for _, d := range []string{cfg.DataDir(), cfg.CacheDir(), cfg.LibraryDir()} {
		if info, err := os.Stat(d); err != nil || !info.IsDir() {
			t.Errorf("%s was not created", d)
		}
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~", home},
		{"~/media", filepath.Join(home, "media")},
		{"/var/data/../videos", "/var/videos"},
	}
	for _, tt := range tests {
		got, err := ExpandPath(tt.in)
		if err != nil {
			t.Errorf("ExpandPath(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
