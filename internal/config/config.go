package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions.

const (
	// DefaultOutput is the Markdown file written when no --output flag
	// or config value is given.
	DefaultOutput = "weekly_calendar.md"

	// DefaultUserAgent is a browser-like identifying header. Some shared
	// calendar endpoints (notably Outlook) reject non-browser clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	defaultTimeoutSeconds = 15
)

// DefaultTruncateMarkers are the meeting-invite boilerplate markers at
// which event descriptions are cut off, so dial-in noise never reaches
// the rendered document.
func DefaultTruncateMarkers() []string {
	return []string{
		"Join Microsoft Teams Meeting",
		"Join Zoom Meeting",
		"Sie wurden zu einem Zoom-Meeting eingeladen",
	}
}

// Config is the top-level application configuration.
type Config struct {
	// Output is the Markdown file path written by a fetch-and-render run.
	Output string `yaml:"output" json:"output"`

	// UserAgent is sent on feed requests.
	UserAgent string `yaml:"user_agent" json:"user_agent"`

	// TimeoutSeconds bounds a single feed fetch.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`

	// TruncateMarkers are description cut-off markers; see
	// DefaultTruncateMarkers.
	TruncateMarkers []string `yaml:"truncate_markers" json:"truncate_markers"`

	// Refresh is a cron-style schedule string (e.g. "*/30 * * * *")
	// used by watch mode for periodic re-rendering.
	Refresh string `yaml:"refresh" json:"refresh"`

	// Listen is the HTTP listen address for the watch-mode preview server.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Output:          DefaultOutput,
		UserAgent:       DefaultUserAgent,
		TimeoutSeconds:  defaultTimeoutSeconds,
		TruncateMarkers: DefaultTruncateMarkers(),
		Refresh:         "*/30 * * * *",
		Listen:          "127.0.0.1:8080",
		LogLevel:        "info",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.TruncateMarkers == nil {
		c.TruncateMarkers = DefaultTruncateMarkers()
	}
	if c.Refresh == "" {
		c.Refresh = "*/30 * * * *"
	}
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Timeout returns the fetch timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".weekcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Set permissions to 0600 on temp file before rename.
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	// Rename over the target path.
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}
