// Package config resolves lesezeichen settings. Later sources win:
// defaults, the YAML file, LESEZEICHEN_* environment variables, flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lotas/lesezeichen/internal/favicon"
)

const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// Config holds every setting. Durations in the file are Go duration
// strings ("3s").
type Config struct {
	Profile        string        `yaml:"profile"`
	Port           int           `yaml:"port"`
	DataDir        string        `yaml:"data_dir"`
	FaviconTimeout time.Duration `yaml:"favicon_timeout"`
	CacheDays      int           `yaml:"cache_expiry_days"`
	CacheBackend   string        `yaml:"cache_backend"`
	AllowedOrigins []string      `yaml:"allowed_origins"` // favicon page fetches
	HistoryMax     int           `yaml:"history_max"`
	FirefoxBinary  string        `yaml:"firefox_binary"`
	ReadOnly       bool          `yaml:"read_only"`
}

// Default returns the built-in settings. DataDir is left empty when the
// home directory is unknown.
func Default() Config {
	c := Config{
		Port:           19192,
		FaviconTimeout: favicon.DefaultTimeout,
		CacheDays:      7,
		CacheBackend:   BackendSQLite,
		HistoryMax:     50,
		FirefoxBinary:  "firefox",
	}
	if home, err := os.UserHomeDir(); err == nil {
		c.DataDir = filepath.Join(home, ".local", "share", "lesezeichen")
	}
	return c
}

// DefaultPath returns ~/.config/lesezeichen/config.yaml, honouring
// XDG_CONFIG_HOME.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "lesezeichen", "config.yaml")
}

// Load applies the file at path (when it exists) and the environment on
// top of the defaults. LESEZEICHEN_CONFIG overrides path.
func Load(path string) (Config, error) {
	c := Default()
	if p := os.Getenv("LESEZEICHEN_CONFIG"); p != "" {
		path = p
	}
	if path != "" {
		if err := c.loadFile(path); err != nil {
			return c, err
		}
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return c, err
	}
	return c, c.Validate()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup("LESEZEICHEN_" + key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup("LESEZEICHEN_" + key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LESEZEICHEN_%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("PROFILE", &c.Profile)
	str("DATA_DIR", &c.DataDir)
	str("CACHE_BACKEND", &c.CacheBackend)
	str("FIREFOX", &c.FirefoxBinary)
	for key, dst := range map[string]*int{"PORT": &c.Port, "CACHE_DAYS": &c.CacheDays, "HISTORY_MAX": &c.HistoryMax} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	if v, ok := lookup("LESEZEICHEN_FAVICON_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LESEZEICHEN_FAVICON_TIMEOUT: %w", err)
		}
		c.FaviconTimeout = d
	}
	if v, ok := lookup("LESEZEICHEN_ALLOWED_ORIGINS"); ok && v != "" {
		c.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup("LESEZEICHEN_READ_ONLY"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LESEZEICHEN_READ_ONLY: %w", err)
		}
		c.ReadOnly = b
	}
	return nil
}

// Bind registers flags for the settings a subcommand exposes, using the
// current values as defaults.
func (c *Config) Bind(flags *flag.FlagSet, keys ...string) {
	for _, k := range keys {
		switch k {
		case "profile":
			flags.StringVar(&c.Profile, "profile", c.Profile, "Firefox profile name")
		case "port":
			flags.IntVar(&c.Port, "port", c.Port, "HTTP port for the new-tab page")
		case "data-dir":
			flags.StringVar(&c.DataDir, "data-dir", c.DataDir, "Directory for the cache and log")
		case "favicon-timeout":
			flags.DurationVar(&c.FaviconTimeout, "favicon-timeout", c.FaviconTimeout, "Timeout per favicon probe")
		case "cache-days":
			flags.IntVar(&c.CacheDays, "cache-days", c.CacheDays, "Days before the favicon cache expires")
		case "cache-backend":
			flags.StringVar(&c.CacheBackend, "cache-backend", c.CacheBackend, "Favicon cache backend: sqlite or file")
		case "history-max":
			flags.IntVar(&c.HistoryMax, "history-max", c.HistoryMax, "Maximum history entries shown")
		case "firefox":
			flags.StringVar(&c.FirefoxBinary, "firefox", c.FirefoxBinary, "Firefox binary used to open tabs")
		case "read-only":
			flags.BoolVar(&c.ReadOnly, "read-only", c.ReadOnly, "Never write to places.sqlite")
		}
	}
}

// Validate rejects settings no component can work with.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.CacheBackend != BackendSQLite && c.CacheBackend != BackendFile {
		return fmt.Errorf("invalid cache backend %q (want %s or %s)", c.CacheBackend, BackendSQLite, BackendFile)
	}
	if c.CacheDays < 1 {
		return fmt.Errorf("cache expiry must be at least one day, got %d", c.CacheDays)
	}
	if c.HistoryMax < 1 {
		return fmt.Errorf("history cap must be positive, got %d", c.HistoryMax)
	}
	return nil
}

// CacheExpiry is the favicon cache lifetime.
func (c Config) CacheExpiry() time.Duration {
	return time.Duration(c.CacheDays) * 24 * time.Hour
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
