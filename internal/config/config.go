package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds server configuration loaded from environment variables.
type Config struct {
	Port          string `envconfig:"PORT" default:"8080"`
	DBPath        string `envconfig:"DB_PATH" default:"./data/ap.db"`
	DatabaseURL   string `envconfig:"DATABASE_URL"` // postgres://... switches the store to PostgreSQL
	TemplateDir   string `envconfig:"TEMPLATE_DIR" default:"web/templates"`
	StaticDir     string `envconfig:"STATIC_DIR" default:"web/static"`
	TimeZone      string `envconfig:"TIME_ZONE" default:"Local"`
	WeekStart     string `envconfig:"WEEK_START" default:"monday"` // monday|sunday
	SecureCookie  bool   `envconfig:"SECURE_COOKIE" default:"false"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	LogFile       string `envconfig:"LOG_FILE"`
	AdminUser     string `envconfig:"ADMIN_USER"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`
}

// Load reads environment variables into Config and validates them.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if _, err := cfg.Location(); err != nil {
		return cfg, err
	}
	if _, err := cfg.WeekStartDay(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Addr is the listen address of the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// Location resolves TIME_ZONE. "Local" and "" mean the host time zone.
func (c Config) Location() (*time.Location, error) {
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("TIME_ZONE: %w", err)
	}
	return loc, nil
}

// WeekStartDay resolves WEEK_START.
func (c Config) WeekStartDay() (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(c.WeekStart)) {
	case "", "monday":
		return time.Monday, nil
	case "sunday":
		return time.Sunday, nil
	}
	return 0, fmt.Errorf("WEEK_START: must be monday or sunday, got %q", c.WeekStart)
}

// BootstrapAdmin reports whether an initial user should be created at startup.
func (c Config) BootstrapAdmin() bool {
	return c.AdminUser != "" && c.AdminPassword != ""
}
