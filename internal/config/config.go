package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultListen        = "127.0.0.1:8080"
	DefaultTimezone      = "Europe/London"
	DefaultDataFile      = "/var/lib/ukprayer/prayer_times.json"
	DefaultReferenceYear = 2024
	DefaultLogLevel      = "info"

	DefaultFeedWindowDays = 30
	MaxFeedWindowDays     = 366
	DefaultFeedRefresh    = "0 0 * * *"
	DefaultFeedProductID  = "-//ukprayer//Prayer Times//EN"
	DefaultFeedUIDDomain  = "ukprayer.local"

	envPrefix = "UKPRAYER_"
)

// FeedConfig controls the calendar feed.
type FeedConfig struct {
	// WindowDays is how many days ahead (today included) the feed covers
	// when the request does not say.
	WindowDays int `yaml:"window_days" json:"window_days"`

	// Refresh is a cron expression (e.g. "0 0 * * *") describing when
	// subscribers should re-fetch. It drives REFRESH-INTERVAL and the
	// HTTP Cache-Control max-age of the feed.
	Refresh string `yaml:"refresh" json:"refresh"`

	ProductID string `yaml:"product_id" json:"product_id"`
	UIDDomain string `yaml:"uid_domain" json:"uid_domain"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA civil zone times are displayed in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// DataFile is the JSON prayer table loaded once at startup.
	DataFile string `yaml:"data_file" json:"data_file"`

	// ReferenceYear is used for conversions when a request does not pin a
	// year. Must be a leap year.
	ReferenceYear int `yaml:"reference_year" json:"reference_year"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// Metrics exposes Prometheus metrics on /metrics.
	Metrics bool `yaml:"metrics" json:"metrics"`

	Feed FeedConfig `yaml:"feed" json:"feed"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:        DefaultListen,
		Timezone:      DefaultTimezone,
		DataFile:      DefaultDataFile,
		ReferenceYear: DefaultReferenceYear,
		LogLevel:      DefaultLogLevel,
		Metrics:       true,
		Feed: FeedConfig{
			WindowDays: DefaultFeedWindowDays,
			Refresh:    DefaultFeedRefresh,
			ProductID:  DefaultFeedProductID,
			UIDDomain:  DefaultFeedUIDDomain,
		},
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.DataFile == "" {
		c.DataFile = DefaultDataFile
	}
	if c.ReferenceYear == 0 {
		c.ReferenceYear = DefaultReferenceYear
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Feed.WindowDays <= 0 {
		c.Feed.WindowDays = DefaultFeedWindowDays
	}
	if c.Feed.WindowDays > MaxFeedWindowDays {
		c.Feed.WindowDays = MaxFeedWindowDays
	}
	if c.Feed.Refresh == "" {
		c.Feed.Refresh = DefaultFeedRefresh
	}
	if c.Feed.ProductID == "" {
		c.Feed.ProductID = DefaultFeedProductID
	}
	if c.Feed.UIDDomain == "" {
		c.Feed.UIDDomain = DefaultFeedUIDDomain
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - A .env file next to the config (or in the working directory) is
//     loaded into the environment if present.
//   - If the config file does not exist, a default config is written with
//     0600 perms and returned.
//   - UKPRAYER_* environment variables override file values.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	loadDotEnv(filepath.Join(filepath.Dir(path), ".env"), ".env")

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First run: create default config file.
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
	case err != nil:
		return nil, err
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

// loadDotEnv loads the first .env file that exists. Variables already set
// in the process environment win.
func loadDotEnv(candidates ...string) {
	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
		return
	}
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"LISTEN":          &c.Listen,
		"TIMEZONE":        &c.Timezone,
		"DATA_FILE":       &c.DataFile,
		"LOG_LEVEL":       &c.LogLevel,
		"FEED_REFRESH":    &c.Feed.Refresh,
		"FEED_PRODUCT_ID": &c.Feed.ProductID,
		"FEED_UID_DOMAIN": &c.Feed.UIDDomain,
	}
	for k, dst := range str {
		if v, ok := os.LookupEnv(envPrefix + k); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"REFERENCE_YEAR":   &c.ReferenceYear,
		"FEED_WINDOW_DAYS": &c.Feed.WindowDays,
	}
	for k, dst := range ints {
		v, ok := os.LookupEnv(envPrefix + k)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, k, err)
		}
		*dst = n
	}

	if v, ok := os.LookupEnv(envPrefix + "METRICS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sMETRICS: %w", envPrefix, err)
		}
		c.Metrics = b
	}
	return nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
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

	tmp, err := os.CreateTemp(dir, ".ukprayer-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
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
