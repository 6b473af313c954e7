package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	appLog "schoolcal/internal/log"
)

const dateLayout = "2006-01-02"

// BasicAuthConfig holds HTTP Basic Auth credentials for the feed endpoints.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for serve mode.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone all schedule times are interpreted in
	// (e.g. "Asia/Tokyo"). The feed itself carries floating local times.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// controlling feed regeneration in serve mode.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// DataDir holds the JSON data files (periods.json, subjects.json,
	// timetable.json, holidays.json, overrides.json).
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// OutputPath is where the generated ICS file is written.
	OutputPath string `yaml:"output_path" json:"output_path"`

	// UIDDomain is the host part of generated event identifiers.
	UIDDomain string `yaml:"uid_domain" json:"uid_domain"`

	// DefaultTermStart / DefaultTermEnd (YYYY-MM-DD) bound timetables
	// that declare no date range of their own. Overridable via the
	// DEFAULT_START_DATE / DEFAULT_END_DATE environment variables.
	DefaultTermStart string `yaml:"default_term_start" json:"default_term_start"`
	DefaultTermEnd   string `yaml:"default_term_end" json:"default_term_end"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:           "127.0.0.1:8080",
		Timezone:         "Asia/Tokyo",
		RefreshCron:      "*/15 * * * *",
		DataDir:          "data",
		OutputPath:       "_site/calendar.ics",
		UIDDomain:        "timetable.local",
		DefaultTermStart: "2025-02-20",
		DefaultTermEnd:   "2025-07-10",
		BasicAuth:        nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.OutputPath == "" {
		c.OutputPath = def.OutputPath
	}
	if c.UIDDomain == "" {
		c.UIDDomain = def.UIDDomain
	}
	if c.DefaultTermStart == "" {
		c.DefaultTermStart = def.DefaultTermStart
	}
	if c.DefaultTermEnd == "" {
		c.DefaultTermEnd = def.DefaultTermEnd
	}
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// TermDates returns the default term range for timetables without their
// own, applying the DEFAULT_START_DATE / DEFAULT_END_DATE environment
// overrides. An invalid override is logged and ignored.
func (c *Config) TermDates(loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(dateLayout, c.DefaultTermStart, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid default_term_start %q: %w", c.DefaultTermStart, err)
	}
	end, err := time.ParseInLocation(dateLayout, c.DefaultTermEnd, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid default_term_end %q: %w", c.DefaultTermEnd, err)
	}

	start = envDate("DEFAULT_START_DATE", start, loc)
	end = envDate("DEFAULT_END_DATE", end, loc)
	return start, end, nil
}

// envDate reads a date from an environment variable, falling back (with a
// warning) when the variable is missing or malformed.
func envDate(name string, fallback time.Time, loc *time.Location) time.Time {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	t, err := time.ParseInLocation(dateLayout, v, loc)
	if err != nil {
		appLog.Warn("invalid env var, using default",
			"var", name, "value", v, "default", fallback.Format(dateLayout))
		return fallback
	}
	return t
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist: create parent directory if needed, write
//     a default config with 0600 perms and return the default config.
//   - If the file exists: read YAML, unmarshal and normalize defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	body, err := os.ReadFile(path)
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
	if err := yaml.Unmarshal(body, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path, atomically
// (temp file + rename) with 0600 permissions.
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

	body, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".schoolcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method that delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
