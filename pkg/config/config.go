package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrisonrobin/wastecal/pkg/auth"
	"github.com/harrisonrobin/wastecal/pkg/colors"
	"github.com/harrisonrobin/wastecal/pkg/extract"
	"github.com/harrisonrobin/wastecal/pkg/fetch"
	"github.com/harrisonrobin/wastecal/pkg/google"
	"github.com/harrisonrobin/wastecal/pkg/logger"
)

const configFile = "config.yaml"

// Reminder is one reminder override on created events.
type Reminder struct {
	Method string        `yaml:"method"`
	Before time.Duration `yaml:"before"`
}

type Config struct {
	// Calendar is a calendar ID, a calendar name, or "primary".
	Calendar  string `yaml:"calendar"`
	Street    string `yaml:"street"`
	SourceURL string `yaml:"source_url"`
	// Location is set on every created event. An empty value in an existing
	// file means no location.
	Location string `yaml:"location"`
	// Timezone is the IANA zone whose days the pickups fall on. Empty means
	// the local zone.
	Timezone string `yaml:"timezone"`

	// Interval is the minimum spacing between two calendar calls.
	Interval time.Duration `yaml:"interval"`
	// TaskTimeout bounds a single calendar call. Zero or missing means the
	// default.
	TaskTimeout time.Duration `yaml:"task_timeout"`

	Reminders []Reminder        `yaml:"reminders"`
	Colors    map[string]string `yaml:"colors"`
	Layout    extract.Layout    `yaml:"layout"`
	LogLevel  string            `yaml:"log_level"`
}

func DefaultConfig() *Config {
	return &Config{
		Calendar:    "primary",
		Street:      "Sengestraße",
		SourceURL:   fetch.DefaultURL,
		Location:    "Sengestr. 1, 76187 Karlsruhe",
		Timezone:    "Europe/Berlin",
		Interval:    time.Second,
		TaskTimeout: 30 * time.Second,
		Reminders: []Reminder{
			{Method: "email", Before: 6 * time.Hour},
			{Method: "popup", Before: 6 * time.Hour},
		},
		Colors:   map[string]string{},
		Layout:   extract.DefaultLayout(),
		LogLevel: "info",
	}
}

// Normalize fills zero values from DefaultConfig so that partial files
// still work.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Calendar == "" {
		c.Calendar = def.Calendar
	}
	if c.SourceURL == "" {
		c.SourceURL = def.SourceURL
	}
	if c.Interval == 0 {
		c.Interval = def.Interval
	}
	if c.TaskTimeout == 0 {
		c.TaskTimeout = def.TaskTimeout
	}
	if c.Reminders == nil {
		c.Reminders = def.Reminders
	}
	if c.Colors == nil {
		c.Colors = map[string]string{}
	}
	if c.Layout.RowSelector == "" {
		c.Layout.RowSelector = def.Layout.RowSelector
	}
	if c.Layout.Rows == 0 {
		c.Layout.Rows = def.Layout.Rows
	}
	if c.Layout.TitleCell == 0 && c.Layout.DatesCell == 0 {
		c.Layout.TitleCell = def.Layout.TitleCell
		c.Layout.DatesCell = def.Layout.DatesCell
	}
	if c.Layout.DateToken == 0 {
		c.Layout.DateToken = def.Layout.DateToken
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

var reminderMethods = map[string]bool{"email": true, "popup": true}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.Interval < 0 {
		return fmt.Errorf("interval must not be negative, got %s", c.Interval)
	}
	if c.TaskTimeout < 0 {
		return fmt.Errorf("task_timeout must not be negative, got %s", c.TaskTimeout)
	}
	if c.Layout.Rows <= 0 {
		return fmt.Errorf("layout.rows must be positive, got %d", c.Layout.Rows)
	}
	if c.Layout.TitleCell < 0 || c.Layout.DatesCell < 0 || c.Layout.DateToken < 0 {
		return errors.New("layout indices must not be negative")
	}
	if c.Layout.TitleCell == c.Layout.DatesCell {
		return fmt.Errorf("layout.title_cell and layout.dates_cell are both %d", c.Layout.TitleCell)
	}
	for i, r := range c.Reminders {
		if !reminderMethods[r.Method] {
			return fmt.Errorf("reminders[%d]: unknown method %q", i, r.Method)
		}
		if r.Before < 0 {
			return fmt.Errorf("reminders[%d]: before must not be negative", i)
		}
	}
	for title, id := range c.Colors {
		if !colors.Valid(id) {
			return fmt.Errorf("colors[%s]: %q is not a calendar color ID", title, id)
		}
	}
	if _, err := c.Zone(); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Zone loads Timezone.
func (c *Config) Zone() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
}

// EventOptions derives the fixed properties of created events.
func (c *Config) EventOptions() (google.EventOptions, error) {
	zone, err := c.Zone()
	if err != nil {
		return google.EventOptions{}, err
	}
	reminders := make([]google.Reminder, 0, len(c.Reminders))
	for _, r := range c.Reminders {
		reminders = append(reminders, google.Reminder{Method: r.Method, Before: r.Before})
	}
	return google.EventOptions{
		Location:  c.Location,
		Reminders: reminders,
		Zone:      zone,
		Palette:   colors.NewPalette(c.Colors),
	}, nil
}

// GetConfigPath is config.yaml in the same directory as the OAuth files.
func GetConfigPath() (string, error) {
	dir, err := auth.GetXdgHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the YAML file at path. A missing file is created with the
// defaults on first run.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			logger.Info("wrote default config", "path", path)
			return cfg, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes cfg to path with 0600 permissions, replacing the old file in
// one rename.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}
