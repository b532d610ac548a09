package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	// HTTP server configuration
	Server ServerConfig `toml:"server"`

	// Card catalog source
	Catalog CatalogConfig `toml:"catalog"`

	// SQLite catalog store
	Database DatabaseConfig `toml:"database"`

	// Logging
	Log LogConfig `toml:"log"`

	// Recommendation request limits
	Recommend RecommendConfig `toml:"recommend"`
}

// ServerConfig contains REST API settings.
type ServerConfig struct {
	Port           int      `toml:"port"`            // Listen port
	AllowedOrigins []string `toml:"allowed_origins"` // CORS origins
	RateLimit      float64  `toml:"rate_limit"`      // Requests per second (0 = unlimited)
	RateBurst      int      `toml:"rate_burst"`      // Token bucket size
}

// CatalogConfig selects where cards are loaded from.
type CatalogConfig struct {
	Source   string `toml:"source"`   // "csv" or "sqlite"
	Path     string `toml:"path"`     // CSV file path (source = csv)
	Watch    bool   `toml:"watch"`    // Rebuild the index when the CSV changes
	Debounce string `toml:"debounce"` // Delay before reloading after a change (e.g., "500ms")
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path        string `toml:"path"`         // SQLite file path
	AutoMigrate bool   `toml:"auto_migrate"` // Apply migrations on open
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // json or console
}

// RecommendConfig bounds recommendation requests.
type RecommendConfig struct {
	DefaultTopN int `toml:"default_top_n"` // Used when a request omits top_n
	MaxTopN     int `toml:"max_top_n"`     // Upper bound accepted from clients
	MaxSelected int `toml:"max_selected"`  // Upper bound on selected cards per request
}

// Catalog sources.
const (
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
			RateLimit:      20,
			RateBurst:      40,
		},
		Catalog: CatalogConfig{
			Source:   SourceCSV,
			Path:     "clash_royale_cards.csv",
			Watch:    false,
			Debounce: "500ms",
		},
		Database: DatabaseConfig{
			Path:        filepath.Join(dataDir(), "catalog.db"),
			AutoMigrate: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Recommend: RecommendConfig{
			DefaultTopN: 10,
			MaxTopN:     200,
			MaxSelected: 8,
		},
	}
}

// dataDir returns ~/.clash-synergy, or the working directory if home is unknown.
func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".clash-synergy"
	}
	return filepath.Join(home, ".clash-synergy")
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(dataDir(), "config.toml")
}

// Load reads the configuration at path, falling back to DefaultPath when path
// is empty. A missing file yields the defaults. Values left out of the file keep
// their defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	return config, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides settings from SYNERGY_* environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("SYNERGY_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SYNERGY_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("SYNERGY_CATALOG_SOURCE"); ok {
		c.Catalog.Source = v
	}
	if v, ok := lookup("SYNERGY_CATALOG_PATH"); ok {
		c.Catalog.Path = v
	}
	if v, ok := lookup("SYNERGY_DB_PATH"); ok {
		c.Database.Path = v
	}
	if v, ok := lookup("SYNERGY_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup("SYNERGY_LOG_FORMAT"); ok {
		c.Log.Format = v
	}
	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative: %v", c.Server.RateLimit)
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		return fmt.Errorf("rate burst must be at least 1 when rate limiting: %d", c.Server.RateBurst)
	}

	switch c.Catalog.Source {
	case SourceCSV:
		if c.Catalog.Path == "" {
			return fmt.Errorf("catalog path is required for csv source")
		}
	case SourceSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite source")
		}
	default:
		return fmt.Errorf("unknown catalog source %q", c.Catalog.Source)
	}

	if _, err := time.ParseDuration(c.Catalog.Debounce); err != nil {
		return fmt.Errorf("invalid catalog debounce %q: %w", c.Catalog.Debounce, err)
	}

	if c.Recommend.DefaultTopN < 1 {
		return fmt.Errorf("default top_n must be positive: %d", c.Recommend.DefaultTopN)
	}
	if c.Recommend.MaxTopN < c.Recommend.DefaultTopN {
		return fmt.Errorf("max top_n (%d) is below default top_n (%d)", c.Recommend.MaxTopN, c.Recommend.DefaultTopN)
	}
	if c.Recommend.MaxSelected < 1 {
		return fmt.Errorf("max selected must be positive: %d", c.Recommend.MaxSelected)
	}

	return nil
}

// GetDebounce returns the catalog reload debounce as a duration.
func (c *Config) GetDebounce() (time.Duration, error) {
	return time.ParseDuration(c.Catalog.Debounce)
}
