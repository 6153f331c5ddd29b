package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds runtime settings for the uploader.
//
// Fields:
//   - ServerURL: base URL of the upload server.
//   - Concurrency: how many uploads may be in flight at once.
//   - MaxRetries: retries allowed per file after the first attempt.
//   - AttemptTimeout: deadline for a single upload attempt.
//   - BackoffBase / BackoffMax: bounds of the exponential retry delay.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	ServerURL      string
	Concurrency    int
	MaxRetries     int
	AttemptTimeout time.Duration
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	LogLevel       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:3002"
	c.Concurrency = 3
	c.MaxRetries = 3
	c.AttemptTimeout = 30 * time.Second
	c.BackoffBase = 500 * time.Millisecond
	c.BackoffMax = 10 * time.Second
	c.LogLevel = "warn"
}

// Validate reports settings the uploader cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server url %q", c.ServerURL)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries)
	}
	if c.AttemptTimeout <= 0 {
		return fmt.Errorf("attempt timeout must be positive, got %v", c.AttemptTimeout)
	}
	if c.BackoffBase <= 0 || c.BackoffMax < c.BackoffBase {
		return fmt.Errorf("backoff bounds are invalid: base %v, max %v", c.BackoffBase, c.BackoffMax)
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
