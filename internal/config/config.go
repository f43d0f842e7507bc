// Package config provides configuration loading and management for the catalog proxy.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultRegistryURL is the canonical upstream registry endpoint used when
	// no custom registry URL is configured.
	DefaultRegistryURL = "https://registry.modelcontextprotocol.io"

	// EnvPrefix is the prefix for environment variables consumed by the
	// application (e.g. RPX_LOG_LEVEL).
	EnvPrefix = "RPX"

	// passwordEnvVar is the environment variable consulted for the database
	// password when no password file is configured.
	passwordEnvVar = "RPX_DATABASE_PASSWORD"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// Registry configures the upstream catalog feed
	Registry RegistryConfig `yaml:"registry"`

	// Server configures the HTTP API server
	Server ServerConfig `yaml:"server,omitempty"`

	// Sync configures the catalog sync engine
	Sync SyncConfig `yaml:"sync,omitempty"`

	// Listing configures the paginated listing engine
	Listing ListingConfig `yaml:"listing,omitempty"`

	// Filter defines which upstream entries are excluded from the catalog
	Filter *FilterConfig `yaml:"filter,omitempty"`

	Database *DatabaseConfig `yaml:"database,omitempty"`
}

// RegistryConfig defines the upstream registry feed settings
type RegistryConfig struct {
	// URL is the base registry API URL (without the /v0 path).
	// Defaults to DefaultRegistryURL.
	URL string `yaml:"url,omitempty"`
}

// ServerConfig defines HTTP server settings
type ServerConfig struct {
	// Address is the listen address, e.g. ":8080"
	Address string `yaml:"address,omitempty"`

	// RequestTimeout bounds in-flight request handling (e.g. "60s")
	RequestTimeout string `yaml:"requestTimeout,omitempty"`
}

// SyncConfig defines catalog sync settings
type SyncConfig struct {
	// MaxApps caps the total number of entities synced per run.
	// Zero means no cap.
	MaxApps int `yaml:"maxApps,omitempty"`

	// OnlyWithRemotes skips entities without remote endpoints
	OnlyWithRemotes bool `yaml:"onlyWithRemotes,omitempty"`

	// Interval enables periodic background sync when set (e.g. "30m").
	// Empty disables the background loop; sync is then trigger-only.
	Interval string `yaml:"interval,omitempty"`
}

// ListingConfig defines paginated listing settings
type ListingConfig struct {
	// AllowedNames overrides the embedded allow-list used when serving
	// the canonical registry. Order is preserved as given.
	AllowedNames []string `yaml:"allowedNames,omitempty"`
}

// FilterConfig defines filtering rules for catalog entries
type FilterConfig struct {
	// Blacklist holds names (or glob patterns) that are never synced or listed
	Blacklist []string `yaml:"blacklist,omitempty"`

	// DeniedKeywords replaces the built-in set of denied name substrings
	// (placeholder/test/demo markers) when non-empty
	DeniedKeywords []string `yaml:"deniedKeywords,omitempty"`

	// Names applies include/exclude glob patterns during sync
	Names *NameFilterConfig `yaml:"names,omitempty"`
}

// NameFilterConfig defines name-based filtering
type NameFilterConfig struct {
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password.
	// This is the recommended approach for production deployments.
	// The file should contain only the password with optional trailing whitespace.
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxConns is the maximum number of connections in the pool
	MaxConns int32 `yaml:"maxConns,omitempty"`

	// MinConns is the minimum number of idle connections kept in the pool
	MinConns int32 `yaml:"minConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g., "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from the RPX_DATABASE_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (d *DatabaseConfig) GetPassword() (string, error) {
	// Priority 1: Read from file if specified
	if d.PasswordFile != "" {
		// Use filepath.Clean to prevent path traversal attacks
		cleanPath := filepath.Clean(d.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}

		// Trim whitespace (including newlines) from file content
		password := strings.TrimSpace(string(data))
		return password, nil
	}

	// Priority 2: Check environment variable
	if envPassword := os.Getenv(passwordEnvVar); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s environment variable",
		passwordEnvVar,
	)
}

// GetConnectionString builds a PostgreSQL connection string with proper password handling.
// The password is URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	// URL-escape the password to handle special characters
	escapedPassword := url.QueryEscape(password)

	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User,
		escapedPassword,
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	)

	return connString, nil
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	// As of now, this is required because there's no other options to load
	// configuration. Once we add more options, we can remove this check.
	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	// Read the entire file into memory
	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML content
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	config.applyDefaults()

	// Validate the config
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a configuration with all defaults applied and no database.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in every optional field in one place so the rest of
// the codebase never needs fallback logic.
func (c *Config) applyDefaults() {
	if c.Registry.URL == "" {
		c.Registry.URL = DefaultRegistryURL
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.RequestTimeout == "" {
		c.Server.RequestTimeout = "60s"
	}
}

// IsCanonicalRegistry reports whether the configured registry URL is the
// canonical upstream endpoint. A custom URL switches listing to dynamic
// pagination and clears the official marker on synced records.
func (c *Config) IsCanonicalRegistry() bool {
	return c.Registry.URL == DefaultRegistryURL
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if _, err := url.Parse(c.Registry.URL); err != nil {
		return fmt.Errorf("registry.url is not a valid URL: %w", err)
	}

	if _, err := time.ParseDuration(c.Server.RequestTimeout); err != nil {
		return fmt.Errorf("server.requestTimeout must be a valid duration (e.g., '60s'): %w", err)
	}

	if c.Sync.Interval != "" {
		if _, err := time.ParseDuration(c.Sync.Interval); err != nil {
			return fmt.Errorf("sync.interval must be a valid duration (e.g., '30m'): %w", err)
		}
	}

	if c.Sync.MaxApps < 0 {
		return fmt.Errorf("sync.maxApps must not be negative")
	}

	if c.Database != nil {
		if err := c.Database.validate(); err != nil {
			return err
		}
	}

	return nil
}

// validate checks that the required database fields are present
func (d *DatabaseConfig) validate() error {
	if d.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if d.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if d.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if d.Database == "" {
		return fmt.Errorf("database.database is required")
	}
	if d.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(d.ConnMaxLifetime); err != nil {
			return fmt.Errorf("database.connMaxLifetime must be a valid duration: %w", err)
		}
	}
	return nil
}
