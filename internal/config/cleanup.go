package config

import (
	"fmt"
	"os"
	"time"
)

const (
	// EnvCleanupTTL overrides the output retention period.
	EnvCleanupTTL = "CLEANUP_TTL"

	// EnvCleanupInterval overrides the sweep interval.
	EnvCleanupInterval = "CLEANUP_INTERVAL"
)

// CleanupConfig controls the retention of generated files and the
// periodic sweep that removes them.
type CleanupConfig struct {
	TTL      string `toml:"ttl"`
	Interval string `toml:"interval"`
}

// TTLDuration parses and returns the retention period.
func (c *CleanupConfig) TTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.TTL)
	return d
}

// IntervalDuration parses and returns the sweep interval.
func (c *CleanupConfig) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
}

// Finalize applies defaults, loads environment overrides, and validates the
// cleanup configuration.
func (c *CleanupConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *CleanupConfig) Merge(overlay *CleanupConfig) {
	if overlay.TTL != "" {
		c.TTL = overlay.TTL
	}
	if overlay.Interval != "" {
		c.Interval = overlay.Interval
	}
}

func (c *CleanupConfig) loadDefaults() {
	if c.TTL == "" {
		c.TTL = "24h"
	}
	if c.Interval == "" {
		c.Interval = "10m"
	}
}

func (c *CleanupConfig) loadEnv() {
	if v := os.Getenv(EnvCleanupTTL); v != "" {
		c.TTL = v
	}
	if v := os.Getenv(EnvCleanupInterval); v != "" {
		c.Interval = v
	}
}

func (c *CleanupConfig) validate() error {
	ttl, err := time.ParseDuration(c.TTL)
	if err != nil {
		return fmt.Errorf("invalid ttl: %w", err)
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	interval, err := time.ParseDuration(c.Interval)
	if err != nil {
		return fmt.Errorf("invalid interval: %w", err)
	}
	if interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	return nil
}
