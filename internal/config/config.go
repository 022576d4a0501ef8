// Package config loads the shelf client configuration from YAML with
// environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all shelf client configuration.
type Config struct {
	API     API     `yaml:"api"`
	Display Display `yaml:"display"`
}

// API locates the catalog server.
type API struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"` // per request, applied to the http.Client
}

// Display tunes the text renderer.
type Display struct {
	Color bool `yaml:"color"`
}

// DefaultPath is where the CLI looks for a config file when --config is not given.
func DefaultPath() string {
	return os.ExpandEnv("$HOME/.config/shelf/config.yaml")
}

// DefaultConfig returns a Config pointing at a local server.
func DefaultConfig() Config {
	return Config{
		API: API{
			URL:     "http://localhost:4000",
			Timeout: 15 * time.Second,
		},
		Display: Display{
			Color: true,
		},
	}
}

// Load reads the YAML config file at path. A missing or empty file yields
// the defaults. Unknown fields are rejected.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return &cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// Comment-only files decode to EOF.
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &cfg, nil
}

// ApplyEnv applies environment variable overrides.
// Supported variables: SHELF_API_URL, SHELF_TIMEOUT, SHELF_NO_COLOR.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("SHELF_API_URL"); v != "" {
		c.API.URL = v
	}
	if v := os.Getenv("SHELF_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid SHELF_TIMEOUT %q: %w", v, err)
		}
		c.API.Timeout = d
	}
	if os.Getenv("SHELF_NO_COLOR") != "" {
		c.Display.Color = false
	}
	return nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	if c.API.URL == "" {
		return errors.New("config: api.url cannot be empty")
	}
	u, err := url.Parse(c.API.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: api.url must be an absolute http(s) URL, got %q", c.API.URL)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("config: api.timeout must be non-negative, got %v", c.API.Timeout)
	}
	return nil
}
