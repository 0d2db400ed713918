package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Defaults used by DefaultConfig and Normalize.
const (
	DefaultListen       = "127.0.0.1:8080"
	DefaultSettingsPath = "./data/settings.json"
	DefaultNotesRoot    = "./vault"
	DefaultAutoFillCron = "@hourly"
	DefaultZoomMin      = 0.25
	DefaultZoomMax      = 3.0
)

// ViewportConfig is the assumed drawing area used for zoom-to-fit when a
// client does not report its own size.
type ViewportConfig struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// CaptureConfig controls PNG snapshots of the grid page.
type CaptureConfig struct {
	Width          int    `yaml:"width" json:"width"`
	Height         int    `yaml:"height" json:"height"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
	Output         string `yaml:"output" json:"output"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
// PasswordHash is an Argon2id hash produced by `lifeweeks hash-password`.
type BasicAuthConfig struct {
	Username     string `yaml:"username" json:"username"`
	PasswordHash string `yaml:"password_hash" json:"password_hash"`
}

// Config is the top-level service configuration. It is distinct from the
// user settings blob (birthday, events, ...), which lives at SettingsPath.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// SettingsPath is the JSON settings blob (events, colors, filled weeks).
	SettingsPath string `yaml:"settings_path" json:"settings_path"`

	// NotesRoot is the vault directory; the settings notes folder is
	// resolved relative to it.
	NotesRoot string `yaml:"notes_root" json:"notes_root"`

	// AutoFillCron is a cron-style schedule for the auto-fill check
	// (e.g. "@hourly" or "0 * * * *").
	AutoFillCron string `yaml:"autofill_cron" json:"autofill_cron"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	ZoomMin float64 `yaml:"zoom_min" json:"zoom_min"`
	ZoomMax float64 `yaml:"zoom_max" json:"zoom_max"`

	Viewport ViewportConfig `yaml:"viewport" json:"viewport"`
	Capture  CaptureConfig  `yaml:"capture" json:"capture"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.SettingsPath == "" {
		c.SettingsPath = DefaultSettingsPath
	}
	if c.NotesRoot == "" {
		c.NotesRoot = DefaultNotesRoot
	}
	if c.AutoFillCron == "" {
		c.AutoFillCron = DefaultAutoFillCron
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ZoomMin <= 0 {
		c.ZoomMin = DefaultZoomMin
	}
	if c.ZoomMax < c.ZoomMin {
		c.ZoomMax = DefaultZoomMax
		if c.ZoomMax < c.ZoomMin {
			c.ZoomMax = c.ZoomMin
		}
	}
	if c.Viewport.Width <= 0 {
		c.Viewport.Width = 1600
	}
	if c.Viewport.Height <= 0 {
		c.Viewport.Height = 1000
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = 1920
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = 1200
	}
	if c.Capture.TimeoutSeconds <= 0 {
		c.Capture.TimeoutSeconds = 30
	}
	if c.Capture.Output == "" {
		c.Capture.Output = "./data/lifeweeks.png"
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is unmarshalled and normalized.
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

// Save writes the given configuration to the specified path atomically.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0o600)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// WriteFileAtomic writes data next to path in a temp file, syncs it, applies
// perm and renames it over path. Parent directories are created (0700).
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
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

	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
