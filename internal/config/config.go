// Package config provides configuration management for the Reelcut Agent.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort     = 8791
	DefaultLogLevel = "info"
	DefaultDataDir  = ".reelcut"

	// Environment variable names
	EnvPort     = "REELCUT_PORT"
	EnvLogLevel = "REELCUT_LOG_LEVEL"
	EnvDataDir  = "REELCUT_DATA_DIR"
	EnvHeadless = "REELCUT_HEADLESS"

	// Media tool environment variable names
	EnvFFmpeg        = "REELCUT_FFMPEG"
	EnvFFprobe       = "REELCUT_FFPROBE"
	EnvTranslatorURL = "REELCUT_TRANSLATOR_URL"
	EnvTranslatorKey = "REELCUT_TRANSLATOR_KEY"

	// Database filename
	DBFilename = "reelcut.db"

	// Preview defaults
	DefaultPreviewWidth  = 640
	DefaultPreviewHeight = 480

	// Timeouts
	DefaultTransformTimeout = 600 // seconds; edits can re-encode whole files
	DefaultProbeTimeout     = 15  // seconds
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	EditsDir() string
	FFmpegPath() string
	FFprobePath() string
	TranslatorURL() string
	TranslatorKey() string
	PreviewWidth() int
	PreviewHeight() int
	TransformTimeout() time.Duration
	ProbeTimeout() time.Duration
	Headless() bool
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string
	headless bool

	ffmpegPath    string
	ffprobePath   string
	translatorURL string
	translatorKey string

	previewWidth  int
	previewHeight int
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:          DefaultPort,
		logLevel:      DefaultLogLevel,
		dataDir:       defaultDataDir(),
		previewWidth:  DefaultPreviewWidth,
		previewHeight: DefaultPreviewHeight,
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	// Override log level from environment
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	// Override data directory from environment
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	cfg.ffmpegPath = os.Getenv(EnvFFmpeg)
	cfg.ffprobePath = os.Getenv(EnvFFprobe)
	cfg.translatorURL = os.Getenv(EnvTranslatorURL)
	cfg.translatorKey = os.Getenv(EnvTranslatorKey)

	return cfg, nil
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

// EditsDir returns the base directory for per-session edit artifacts
func (c *EnvConfig) EditsDir() string {
	return filepath.Join(c.dataDir, "edits")
}

// FFmpegPath returns the configured ffmpeg binary; empty means auto-detect
func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

// FFprobePath returns the configured ffprobe binary; empty means auto-detect
func (c *EnvConfig) FFprobePath() string {
	return c.ffprobePath
}

// TranslatorURL returns the command translator endpoint; empty disables it
func (c *EnvConfig) TranslatorURL() string {
	return c.translatorURL
}

// TranslatorKey returns the bearer token for the translator endpoint
func (c *EnvConfig) TranslatorKey() string {
	return c.translatorKey
}

// PreviewWidth returns the target preview frame width
func (c *EnvConfig) PreviewWidth() int {
	return c.previewWidth
}

// PreviewHeight returns the target preview frame height
func (c *EnvConfig) PreviewHeight() int {
	return c.previewHeight
}

func (c *EnvConfig) TransformTimeout() time.Duration {
	return time.Duration(DefaultTransformTimeout) * time.Second
}

func (c *EnvConfig) ProbeTimeout() time.Duration {
	return time.Duration(DefaultProbeTimeout) * time.Second
}

func (c *EnvConfig) Headless() bool {
	return c.headless
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
