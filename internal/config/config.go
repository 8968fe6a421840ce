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

// WindowConfig describes the week-grid display window. Events are laid out
// against this window; it is a rendering policy, not part of the grid math.
type WindowConfig struct {
	// StartHour is the first hour shown in the week grid (0-23).
	StartHour int `yaml:"start_hour" json:"start_hour"`
	// EndHour is the exclusive last hour shown in the week grid (1-24).
	EndHour int `yaml:"end_hour" json:"end_hour"`
	// MinSpanMinutes is the minimum visual span of an event in minutes,
	// so that very short events remain clickable.
	MinSpanMinutes int `yaml:"min_span_minutes" json:"min_span_minutes"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used as canonical display zone
	// (e.g. "America/New_York"). Day grouping and week-grid layout are
	// computed in this zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart controls which weekday is treated as the first day of the
	// week in calendar views. Supported values:
	//   - "monday" (default)
	//   - "sunday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// DBPath is the SQLite database file path.
	DBPath string `yaml:"db_path" json:"db_path"`

	// RefreshCron is a cron-style schedule string (e.g. "*/5 * * * *")
	// used for the kiosk snapshot refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// UIDDomain is the domain suffix appended to event ids when building
	// iCalendar UIDs.
	UIDDomain string `yaml:"uid_domain" json:"uid_domain"`

	// ImportHorizonDays bounds recurrence expansion when importing an
	// external iCalendar feed.
	ImportHorizonDays int `yaml:"import_horizon_days" json:"import_horizon_days"`

	// Window is the week-grid display window.
	Window WindowConfig `yaml:"window" json:"window"`

	// LogLevel is the minimum log level ("debug", "info", "error").
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:            "127.0.0.1:8080",
		Timezone:          "America/New_York",
		WeekStart:         "monday",
		DBPath:            "./var/centercal.db",
		RefreshCron:       "*/5 * * * *",
		UIDDomain:         "events.centercal.local",
		ImportHorizonDays: 180,
		Window: WindowConfig{
			StartHour:      8,
			EndHour:        20,
			MinSpanMinutes: 30,
		},
		LogLevel: "info",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "America/New_York"
	}
	// WeekStart default & validation.
	switch c.WeekStart {
	case "monday", "sunday":
		// ok
	case "":
		c.WeekStart = "monday"
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = "monday"
	}
	if c.DBPath == "" {
		c.DBPath = "./var/centercal.db"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/5 * * * *"
	}
	if c.UIDDomain == "" {
		c.UIDDomain = "events.centercal.local"
	}
	if c.ImportHorizonDays <= 0 {
		c.ImportHorizonDays = 180
	}
	if c.Window.EndHour <= 0 {
		c.Window.StartHour = 8
		c.Window.EndHour = 20
	}
	if c.Window.StartHour < 0 || c.Window.StartHour >= c.Window.EndHour {
		c.Window.StartHour = 8
		c.Window.EndHour = 20
	}
	if c.Window.EndHour > 24 {
		c.Window.EndHour = 24
	}
	if c.Window.MinSpanMinutes <= 0 {
		c.Window.MinSpanMinutes = 30
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
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
	tmp, err := os.CreateTemp(dir, ".centercal-config-*.tmp")
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

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// Location resolves the configured timezone, falling back to time.Local
// when the name is empty or unknown.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
