package config

import (
	"fmt"
	"os"
	"time"
)

// Registry backend names.
const (
	RegistryBackendMemory   = "memory"
	RegistryBackendPostgres = "postgres"
)

const (
	// EnvRegistryBackend overrides the registry backend selection.
	EnvRegistryBackend = "REGISTRY_BACKEND"

	// EnvRegistryDatabaseDSN overrides the full database connection string.
	EnvRegistryDatabaseDSN = "REGISTRY_DATABASE_DSN"
)

// RegistryConfig selects and configures the download registry backend.
type RegistryConfig struct {
	Backend  string         `toml:"backend"`
	Database DatabaseConfig `toml:"database"`
}

// Finalize applies defaults, loads environment overrides, and validates the
// registry configuration.
func (c *RegistryConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	switch c.Backend {
	case RegistryBackendMemory:
		return nil
	case RegistryBackendPostgres:
		if err := c.Database.Finalize(); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("invalid registry backend: %s (must be memory or postgres)", c.Backend)
	}
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *RegistryConfig) Merge(overlay *RegistryConfig) {
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	c.Database.Merge(&overlay.Database)
}

func (c *RegistryConfig) loadDefaults() {
	if c.Backend == "" {
		c.Backend = RegistryBackendMemory
	}
}

func (c *RegistryConfig) loadEnv() {
	if v := os.Getenv(EnvRegistryBackend); v != "" {
		c.Backend = v
	}
}

// DatabaseConfig contains PostgreSQL connection configuration for the
// postgres registry backend.
type DatabaseConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Name         string `toml:"name"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	ConnTimeout  string `toml:"conn_timeout"`
}

// Dsn returns the PostgreSQL connection string. The
// REGISTRY_DATABASE_DSN environment variable takes precedence when set.
func (c *DatabaseConfig) Dsn() string {
	if v := os.Getenv(EnvRegistryDatabaseDSN); v != "" {
		return v
	}
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		c.Host, c.Port, c.Name, c.User, c.Password,
	)
}

// ConnTimeoutDuration parses and returns the connection timeout.
func (c *DatabaseConfig) ConnTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnTimeout)
	return d
}

// Finalize applies defaults and validates the database configuration.
func (c *DatabaseConfig) Finalize() error {
	c.loadDefaults()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *DatabaseConfig) Merge(overlay *DatabaseConfig) {
	if overlay.Host != "" {
		c.Host = overlay.Host
	}
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	if overlay.Name != "" {
		c.Name = overlay.Name
	}
	if overlay.User != "" {
		c.User = overlay.User
	}
	if overlay.Password != "" {
		c.Password = overlay.Password
	}
	if overlay.MaxOpenConns != 0 {
		c.MaxOpenConns = overlay.MaxOpenConns
	}
	if overlay.MaxIdleConns != 0 {
		c.MaxIdleConns = overlay.MaxIdleConns
	}
	if overlay.ConnTimeout != "" {
		c.ConnTimeout = overlay.ConnTimeout
	}
}

func (c *DatabaseConfig) loadDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnTimeout == "" {
		c.ConnTimeout = "5s"
	}
}

func (c *DatabaseConfig) validate() error {
	if _, err := time.ParseDuration(c.ConnTimeout); err != nil {
		return fmt.Errorf("invalid conn_timeout: %w", err)
	}
	return nil
}
