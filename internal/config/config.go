package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Source kinds understood by the event provider adapter.
const (
	SourceICS    = "ics"
	SourceSQLite = "sqlite"
)

// SourceConfig describes one calendar-store event source.
type SourceConfig struct {
	// Kind is "ics" (URL or local file) or "sqlite" (calendar-store snapshot).
	Kind string `yaml:"kind" json:"kind"`
	// Name is the calendar name for ICS sources; sqlite rows carry their own.
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url,omitempty" json:"url,omitempty"`
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// CalendarConfig is a directory of .ics files served as one merged feed.
type CalendarConfig struct {
	ID          string `yaml:"id" json:"id"`
	Directory   string `yaml:"directory" json:"directory"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// ImportConfig controls the periodic calendar to outline refresh.
type ImportConfig struct {
	OutputFile string `yaml:"output_file" json:"output_file"`

	// Refresh is a cron-style schedule string (e.g. "*/5 * * * *").
	Refresh string `yaml:"refresh" json:"refresh"`

	// NumDays is the half-width of the query window around now.
	NumDays int `yaml:"num_days" json:"num_days"`

	IncludeEndTime   bool     `yaml:"include_end_time" json:"include_end_time"`
	IncludeDuration  bool     `yaml:"include_duration" json:"include_duration"`
	IncludeCalendars []string `yaml:"include_calendars" json:"include_calendars"`
	ExcludeCalendars []string `yaml:"exclude_calendars" json:"exclude_calendars"`

	// CacheDir holds the HTTP cache of subscribed ICS feeds.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the feed server.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the feed server.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone every timestamp is anchored to.
	Timezone string `yaml:"timezone" json:"timezone"`

	// OrgDirectory is scanned recursively for .org and .org_archive files.
	OrgDirectory string `yaml:"org_directory" json:"org_directory"`

	// FeedWindowDays bounds served org feeds to now ± this many days.
	FeedWindowDays int `yaml:"feed_window_days" json:"feed_window_days"`

	// TimelineDir, if set, is served under /timeline/.
	TimelineDir string `yaml:"timeline_dir,omitempty" json:"timeline_dir,omitempty"`

	Import    ImportConfig     `yaml:"import" json:"import"`
	Sources   []SourceConfig   `yaml:"sources" json:"sources"`
	Calendars []CalendarConfig `yaml:"calendars" json:"calendars"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         "127.0.0.1:8991",
		Timezone:       "Europe/Berlin",
		OrgDirectory:   "~/org",
		FeedWindowDays: 30,
		Import: ImportConfig{
			OutputFile: "~/org/calendar.org",
			Refresh:    "*/5 * * * *",
			NumDays:    30,
			CacheDir:   "~/.cache/orgcal/ics",
		},
		Sources:   []SourceConfig{},
		Calendars: []CalendarConfig{},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.OrgDirectory == "" {
		c.OrgDirectory = def.OrgDirectory
	}
	if c.FeedWindowDays <= 0 {
		c.FeedWindowDays = def.FeedWindowDays
	}
	if c.Import.OutputFile == "" {
		c.Import.OutputFile = def.Import.OutputFile
	}
	if c.Import.Refresh == "" {
		c.Import.Refresh = def.Import.Refresh
	}
	if c.Import.NumDays <= 0 {
		c.Import.NumDays = def.Import.NumDays
	}
	if c.Import.CacheDir == "" {
		c.Import.CacheDir = def.Import.CacheDir
	}
	if c.Sources == nil {
		c.Sources = []SourceConfig{}
	}
	for i := range c.Sources {
		c.Sources[i].Kind = strings.ToLower(strings.TrimSpace(c.Sources[i].Kind))
		if c.Sources[i].Kind == "" {
			c.Sources[i].Kind = SourceICS
		}
	}
	if c.Calendars == nil {
		c.Calendars = []CalendarConfig{}
	}
}

// Validate reports configuration errors that would otherwise surface only
// at request or refresh time.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	if _, err := cron.ParseStandard(c.Import.Refresh); err != nil {
		return fmt.Errorf("import.refresh %q: %w", c.Import.Refresh, err)
	}
	for i, s := range c.Sources {
		switch s.Kind {
		case SourceICS:
			if s.URL == "" && s.Path == "" {
				return fmt.Errorf("sources[%d]: ics source needs url or path", i)
			}
		case SourceSQLite:
			if s.Path == "" {
				return fmt.Errorf("sources[%d]: sqlite source needs path", i)
			}
		default:
			return fmt.Errorf("sources[%d]: unknown kind %q", i, s.Kind)
		}
	}
	seen := make(map[string]bool, len(c.Calendars))
	for i, cal := range c.Calendars {
		if cal.ID == "" || cal.Directory == "" || cal.Name == "" || cal.Description == "" {
			return fmt.Errorf("calendars[%d]: id, directory, name and description are required", i)
		}
		if cal.ID == "org" {
			return fmt.Errorf("calendars[%d]: id %q is reserved", i, cal.ID)
		}
		if seen[cal.ID] {
			return fmt.Errorf("calendars[%d]: duplicate id %q", i, cal.ID)
		}
		seen[cal.ID] = true
	}
	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Calendar looks up a merged calendar by id.
func (c *Config) Calendar(id string) (CalendarConfig, bool) {
	for _, cal := range c.Calendars {
		if cal.ID == id {
			return cal, true
		}
	}
	return CalendarConfig{}, false
}

// ExpandPath resolves a leading "~/" against the user's home directory.
func ExpandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}

// Load reads the YAML config at path. A missing file is seeded with
// DefaultConfig (mode 0600) and that default is returned; a seeding failure
// still returns the default alongside the error.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: no path given")
	}
	path = ExpandPath(path)

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		def := DefaultConfig()
		return def, Save(path, def)
	case err != nil:
		return nil, err
	}

	cfg := new(Config)
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Save normalizes cfg and writes it to path with mode 0600.
func Save(path string, cfg *Config) error {
	switch {
	case path == "":
		return errors.New("config: no path given")
	case cfg == nil:
		return errors.New("config: nil config")
	}
	cfg.Normalize()
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(ExpandPath(path), out, 0o600)
}

// WriteFileAtomic replaces path with data via a sibling temp file and a
// rename. Readers see either the old content or the new, never a mix.
func WriteFileAtomic(path string, data []byte, perm fs.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if _, err = f.Write(data); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Chmod(perm); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
