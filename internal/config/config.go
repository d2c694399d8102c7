// Package config provides configuration management for the Moments agent.
// Values come from built-in defaults, then an optional TOML file, then
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	// Default values
	DefaultPort            = 8789
	DefaultLogLevel        = "info"
	DefaultDataDir         = ".moments"
	DefaultMaxTotalSeconds = 40

	// Environment variable names
	EnvConfigFile     = "MOMENTS_CONFIG"
	EnvPort           = "MOMENTS_PORT"
	EnvLogLevel       = "MOMENTS_LOG_LEVEL"
	EnvDataDir        = "MOMENTS_DATA_DIR"
	EnvFFmpegPath     = "MOMENTS_FFMPEG_PATH"
	EnvFFprobePath    = "MOMENTS_FFPROBE_PATH"
	EnvComposeTimeout = "MOMENTS_COMPOSE_TIMEOUT"
	EnvHeadless       = "MOMENTS_HEADLESS"
	EnvGalleryDir     = "MOMENTS_GALLERY_DIR"
	EnvMaxTotal       = "MOMENTS_MAX_TOTAL_SECONDS"

	// File names under the data directory
	ConfigFilename = "config.toml"
	DBFilename     = "moments.db"
	LockFilename   = "moments.lock"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	CacheDir() string
	LibraryDir() string
	LockPath() string
	FFmpegPath() string
	FFprobePath() string
	ComposeTimeout() time.Duration
	MaxTotal() time.Duration
	Headless() bool
	GalleryDir() string
}

// fileConfig is the TOML file shape. Absent keys leave defaults in place.
type fileConfig struct {
	Port            *int    `toml:"port"`
	LogLevel        *string `toml:"log_level"`
	DataDir         *string `toml:"data_dir"`
	FFmpegPath      *string `toml:"ffmpeg_path"`
	FFprobePath     *string `toml:"ffprobe_path"`
	ComposeTimeout  *int    `toml:"compose_timeout"`
	Headless        *bool   `toml:"headless"`
	GalleryDir      *string `toml:"gallery_dir"`
	MaxTotalSeconds *int    `toml:"max_total_seconds"`
}

// EnvConfig holds the resolved configuration.
type EnvConfig struct {
	port            int
	logLevel        string
	dataDir         string
	ffmpegPath      string
	ffprobePath     string
	composeTimeout  int
	headless        bool
	galleryDir      string
	maxTotalSeconds int

	file string // config file that was read, if any
}

// New creates a new EnvConfig with defaults, file values and environment
// variable overrides applied, in that order.
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:            DefaultPort,
		logLevel:        DefaultLogLevel,
		dataDir:         defaultDataDir(),
		maxTotalSeconds: DefaultMaxTotalSeconds,
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	path := os.Getenv(EnvConfigFile)
	explicit := path != ""
	if !explicit {
		path = filepath.Join(cfg.dataDir, ConfigFilename)
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile merges the TOML file at path. A missing file is an error only
// when it was named explicitly.
func (c *EnvConfig) loadFile(path string, explicit bool) error {
	expanded, err := ExpandPath(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", expanded, err)
	}

	if fc.Port != nil {
		c.port = *fc.Port
	}
	if fc.LogLevel != nil {
		c.logLevel = *fc.LogLevel
	}
	// The data dir named by the environment wins over the file's.
	if fc.DataDir != nil && os.Getenv(EnvDataDir) == "" {
		c.dataDir = *fc.DataDir
	}
	if fc.FFmpegPath != nil {
		c.ffmpegPath = *fc.FFmpegPath
	}
	if fc.FFprobePath != nil {
		c.ffprobePath = *fc.FFprobePath
	}
	if fc.ComposeTimeout != nil {
		c.composeTimeout = *fc.ComposeTimeout
	}
	if fc.Headless != nil {
		c.headless = *fc.Headless
	}
	if fc.GalleryDir != nil {
		c.galleryDir = *fc.GalleryDir
	}
	if fc.MaxTotalSeconds != nil {
		c.maxTotalSeconds = *fc.MaxTotalSeconds
	}
	c.file = expanded
	return nil
}

func (c *EnvConfig) applyEnv() error {
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		c.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		c.logLevel = ll
	}
	if v, ok := os.LookupEnv(EnvFFmpegPath); ok {
		c.ffmpegPath = v
	}
	if v, ok := os.LookupEnv(EnvFFprobePath); ok {
		c.ffprobePath = v
	}
	if v, ok := os.LookupEnv(EnvGalleryDir); ok {
		c.galleryDir = v
	}

	if t := os.Getenv(EnvComposeTimeout); t != "" {
		secs, err := strconv.Atoi(t)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvComposeTimeout, err)
		}
		c.composeTimeout = secs
	}

	if m := os.Getenv(EnvMaxTotal); m != "" {
		secs, err := strconv.Atoi(m)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMaxTotal, err)
		}
		c.maxTotalSeconds = secs
	}

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		c.headless = headless
	}
	return nil
}

func (c *EnvConfig) normalize() error {
	var err error
	if c.dataDir, err = ExpandPath(c.dataDir); err != nil {
		return err
	}
	if c.galleryDir, err = ExpandPath(c.galleryDir); err != nil {
		return err
	}
	c.logLevel = strings.ToLower(strings.TrimSpace(c.logLevel))
	return nil
}

// Validate ensures the configuration is usable.
func (c *EnvConfig) Validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port %d: port must be between 1 and 65535", c.port)
	}
	if c.composeTimeout < 0 {
		return fmt.Errorf("invalid compose timeout %d: must be 0 or more seconds", c.composeTimeout)
	}
	if c.maxTotalSeconds < 0 {
		return fmt.Errorf("invalid max total %d: must be 0 or more seconds", c.maxTotalSeconds)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.logLevel)
	}
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// CacheDir holds composition outputs until they are saved.
func (c *EnvConfig) CacheDir() string {
	return filepath.Join(c.dataDir, "cache")
}

// LibraryDir holds the videos of saved projects.
func (c *EnvConfig) LibraryDir() string {
	return filepath.Join(c.dataDir, "videos")
}

func (c *EnvConfig) LockPath() string {
	return filepath.Join(c.dataDir, LockFilename)
}

// FFmpegPath is empty when ffmpeg should be found on PATH.
func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

func (c *EnvConfig) FFprobePath() string {
	return c.ffprobePath
}

// ComposeTimeout bounds one composition attempt; 0 means unbounded.
func (c *EnvConfig) ComposeTimeout() time.Duration {
	return time.Duration(c.composeTimeout) * time.Second
}

// MaxTotal is the longest template plan accepted; 0 disables the check.
func (c *EnvConfig) MaxTotal() time.Duration {
	return time.Duration(c.maxTotalSeconds) * time.Second
}

func (c *EnvConfig) Headless() bool {
	return c.headless
}

// GalleryDir is the folder offered as the media gallery, or empty.
func (c *EnvConfig) GalleryDir() string {
	return c.galleryDir
}

// File returns the config file that was read, or empty when none was.
func (c *EnvConfig) File() string {
	return c.file
}

// EnsureDirectories creates the data, cache and library directories.
func (c *EnvConfig) EnsureDirectories() error {
	for _, dir := range []string{c.dataDir, c.CacheDir(), c.LibraryDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ExpandPath resolves a leading ~ and makes the path absolute. Empty stays
// empty.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
