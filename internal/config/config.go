// Package config loads marketlens settings: built-in defaults, then an
// optional TOML file, then environment variables (with .env applied first).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/marketlens/internal/core/domain"
)

// Duration is a time.Duration that reads and writes as "24h" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the full application configuration.
type Config struct {
	Sheet     SheetConfig     `toml:"sheet"`
	Data      DataConfig      `toml:"data"`
	Generator GeneratorConfig `toml:"generator"`
	Macro     MacroConfig     `toml:"macro"`
	Storage   StorageConfig   `toml:"storage"`

	UpstreamTimeout Duration `toml:"upstream_timeout"`
}

type SheetConfig struct {
	ID              string `toml:"id"` // Key or docs.google.com URL
	CredentialsFile string `toml:"credentials_file"`
}

type DataConfig struct {
	Dir            string              `toml:"dir"`
	Sectors        map[string][]string `toml:"sectors"` // Long-format sector filter
	ReloadInterval Duration            `toml:"reload_interval"`
	SynthSeed      uint64              `toml:"synth_seed"` // 0 picks a random seed
}

type GeneratorConfig struct {
	Provider string `toml:"provider"`
	APIKey   string `toml:"api_key"`
	Model    string `toml:"model"`
}

type MacroConfig struct {
	BaseURL    string             `toml:"base_url"`
	Country    string             `toml:"country"`
	TTL        Duration           `toml:"ttl"`
	RetryAfter Duration           `toml:"retry_after"`
	Periods    int                `toml:"periods"`
	RatePerSec float64            `toml:"rate_per_sec"`
	Indicators []domain.Indicator `toml:"indicators"`
}

type StorageConfig struct {
	RedisURL    string `toml:"redis_url"`
	DatabaseURL string `toml:"database_url"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Dir:     "data",
			Sectors: map[string][]string{"Real Estate": {"Commercial", "Residential"}},
		},
		Generator: GeneratorConfig{
			Provider: "gemini",
			Model:    "gemini-2.0-flash",
		},
		Macro: MacroConfig{
			BaseURL:    "https://api.worldbank.org/v2",
			Country:    "egy",
			TTL:        Duration{24 * time.Hour},
			RetryAfter: Duration{5 * time.Minute},
			Periods:    5,
			RatePerSec: 4,
			Indicators: domain.DefaultIndicators(),
		},
		UpstreamTimeout: Duration{10 * time.Second},
	}
}

// Load builds the configuration. path names a TOML file; when empty,
// MARKETLENS_CONFIG is used, and when that is empty no file is read.
// A .env file in the working directory is applied to the environment
// first without overriding variables that are already set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("MARKETLENS_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	// Tables and arrays in the file replace the defaults rather than merge.
	sectors, indicators := c.Data.Sectors, c.Macro.Indicators
	c.Data.Sectors, c.Macro.Indicators = nil, nil

	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if c.Data.Sectors == nil {
		c.Data.Sectors = sectors
	}
	if c.Macro.Indicators == nil {
		c.Macro.Indicators = indicators
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Sheet.ID = getEnv("GOOGLE_SHEET_ID", c.Sheet.ID)
	c.Sheet.CredentialsFile = getEnv("GOOGLE_CREDENTIALS_FILE", c.Sheet.CredentialsFile)

	c.Data.Dir = getEnv("MICRO_DATA_DIR", c.Data.Dir)
	c.Data.ReloadInterval.Duration = getEnvDuration("DATASET_RELOAD_INTERVAL", c.Data.ReloadInterval.Duration)
	c.Data.SynthSeed = getEnvUint("SYNTH_SEED", c.Data.SynthSeed)

	c.Generator.APIKey = getEnv("GEMINI_API_KEY", c.Generator.APIKey)
	c.Generator.Model = getEnv("GEMINI_MODEL", c.Generator.Model)

	c.Macro.BaseURL = getEnv("WORLDBANK_URL", c.Macro.BaseURL)
	c.Macro.Country = getEnv("MACRO_COUNTRY", c.Macro.Country)
	c.Macro.TTL.Duration = getEnvDuration("MACRO_TTL", c.Macro.TTL.Duration)
	c.Macro.RetryAfter.Duration = getEnvDuration("MACRO_RETRY_AFTER", c.Macro.RetryAfter.Duration)
	c.Macro.Periods = getEnvInt("MACRO_PERIODS", c.Macro.Periods)
	c.Macro.RatePerSec = getEnvFloat("STATS_RATE_PER_SEC", c.Macro.RatePerSec)

	c.Storage.RedisURL = getEnv("REDIS_URL", c.Storage.RedisURL)
	c.Storage.DatabaseURL = getEnv("DATABASE_URL", c.Storage.DatabaseURL)

	c.UpstreamTimeout.Duration = getEnvDuration("UPSTREAM_TIMEOUT", c.UpstreamTimeout.Duration)
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	var problems []string
	if c.Macro.TTL.Duration <= 0 {
		problems = append(problems, "macro ttl must be positive")
	}
	if c.Macro.RetryAfter.Duration < 0 {
		problems = append(problems, "macro retry_after must not be negative")
	}
	if c.Macro.Periods <= 0 {
		problems = append(problems, "macro periods must be positive")
	}
	if c.UpstreamTimeout.Duration <= 0 {
		problems = append(problems, "upstream timeout must be positive")
	}
	if c.Data.ReloadInterval.Duration < 0 {
		problems = append(problems, "dataset reload interval must not be negative")
	}
	seen := make(map[string]bool)
	for _, ind := range c.Macro.Indicators {
		if ind.Name == "" || ind.Code == "" {
			problems = append(problems, "indicators need a name and a code")
			break
		}
		if seen[ind.Name] {
			problems = append(problems, "duplicate indicator "+ind.Name)
		}
		seen[ind.Name] = true
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrConfigurationFatal, strings.Join(problems, "; "))
	}
	return nil
}

// SummaryBackend names where macro snapshots are shared.
func (c *Config) SummaryBackend() string {
	switch {
	case c.Storage.RedisURL != "":
		return "redis"
	case c.Storage.DatabaseURL != "":
		return "postgres"
	default:
		return "memory"
	}
}

// LockBackend names the refresh lease backend.
func (c *Config) LockBackend() string {
	if b := c.SummaryBackend(); b != "memory" {
		return b
	}
	return "none"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvUint(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return v
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") and bare seconds ("90").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
