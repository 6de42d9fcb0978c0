// Package config loads dashboard configuration from an optional YAML file,
// a .env file and TABBYCAT_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAddr           = ":3000"
	DefaultInsightTimeout = 5 * time.Second
	DefaultSessionTTL     = 30 * time.Minute
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Data     DataConfig     `yaml:"data"`
	Insights InsightsConfig `yaml:"insights"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Addr       string        `yaml:"addr"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// DataConfig selects where the four tournament resources come from: either
// a backend base URL or a directory of static JSON files.
type DataConfig struct {
	BaseURL string            `yaml:"base_url"`
	Dir     string            `yaml:"dir"`
	Paths   map[string]string `yaml:"paths"` // resource -> path or file name override
	Timeout time.Duration     `yaml:"timeout"`
}

type InsightsConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads path (if non-empty), then applies .env and environment
// overrides and fills defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("TABBYCAT_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("TABBYCAT_DATA_URL"); v != "" {
		c.Data.BaseURL = v
		c.Data.Dir = ""
	}
	if v := os.Getenv("TABBYCAT_DATA_DIR"); v != "" {
		c.Data.Dir = v
		c.Data.BaseURL = ""
	}
	if v := os.Getenv("TABBYCAT_INSIGHT_URL"); v != "" {
		c.Insights.BaseURL = v
	}
	if v := os.Getenv("TABBYCAT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	durations := []struct {
		env string
		dst *time.Duration
	}{
		{"TABBYCAT_INSIGHT_TIMEOUT", &c.Insights.Timeout},
		{"TABBYCAT_DATA_TIMEOUT", &c.Data.Timeout},
		{"TABBYCAT_SESSION_TTL", &c.Server.SessionTTL},
	}
	for _, d := range durations {
		v := os.Getenv(d.env)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.env, err)
		}
		*d.dst = parsed
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.SessionTTL <= 0 {
		c.Server.SessionTTL = DefaultSessionTTL
	}
	if c.Insights.Timeout <= 0 {
		c.Insights.Timeout = DefaultInsightTimeout
	}
	if c.Data.Timeout <= 0 {
		c.Data.Timeout = 10 * time.Second
	}
	if c.Insights.BaseURL == "" {
		c.Insights.BaseURL = c.Data.BaseURL
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks that exactly one data source is configured.
func (c *Config) Validate() error {
	switch {
	case c.Data.BaseURL == "" && c.Data.Dir == "":
		return errors.New("no data source: set data.base_url or data.dir")
	case c.Data.BaseURL != "" && c.Data.Dir != "":
		return errors.New("data.base_url and data.dir are mutually exclusive")
	}
	if c.Data.BaseURL != "" && !strings.HasPrefix(c.Data.BaseURL, "http://") && !strings.HasPrefix(c.Data.BaseURL, "https://") {
		return fmt.Errorf("data.base_url %q must be an http(s) URL", c.Data.BaseURL)
	}
	return nil
}
