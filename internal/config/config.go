// Package config provides configuration for the Dementor CMDB API.
//
// Configuration comes from a YAML file with environment overrides layered
// on top. The API key table is part of the config and is loaded exactly
// once at startup; the running process treats it as immutable.
//
// Config file locations (priority order):
//  1. $CMDB_CONFIG
//  2. ./config.yml
//  3. /etc/dementor/config.yml
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/T-6891/Dementor-API/internal/auth"
)

// Duration wraps time.Duration for YAML unmarshaling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the top-level application configuration.
type Config struct {
	AppName    string           `yaml:"app_name"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Pagination PaginationConfig `yaml:"pagination"`
	APIKeys    []auth.KeyEntry  `yaml:"api_keys"`
}

// ServerConfig holds the HTTP boundary settings.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	RequestTimeout Duration `yaml:"request_timeout"`
	ReadTimeout    Duration `yaml:"read_timeout"`
	WriteTimeout   Duration `yaml:"write_timeout"`
	IdleTimeout    Duration `yaml:"idle_timeout"`
}

// DatabaseConfig holds the store settings.
type DatabaseConfig struct {
	Path         string   `yaml:"path"`
	QueryTimeout Duration `yaml:"query_timeout"`
}

// PaginationConfig bounds list and search windows.
type PaginationConfig struct {
	DefaultPageSize    int `yaml:"default_page_size"`
	MaxPageSize        int `yaml:"max_page_size"`
	DefaultSearchLimit int `yaml:"default_search_limit"`
	MaxSearchLimit     int `yaml:"max_search_limit"`
}

// Load finds and loads the config file, or returns defaults if none found.
// Environment overrides are applied in both cases.
func Load() (*Config, string, error) {
	path := FindConfigPath()
	if path == "" {
		cfg := DefaultConfig()
		if err := cfg.applyEnv(); err != nil {
			return nil, "", err
		}
		return cfg, "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path.
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, path, err
	}

	return &cfg, path, nil
}

// FindConfigPath returns the first existing config location, or "".
func FindConfigPath() string {
	if p := os.Getenv("CMDB_CONFIG"); p != "" {
		return p
	}
	for _, p := range []string{"./config.yml", "/etc/dementor/config.yml"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// DefaultConfig returns sensible defaults for a new installation.
func DefaultConfig() *Config {
	cfg := &Config{AppName: "Dementor CMDB API"}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.AppName == "" {
		c.AppName = "Dementor CMDB API"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = Duration(30 * time.Second)
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(10 * time.Second)
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = Duration(30 * time.Second)
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = Duration(60 * time.Second)
	}
	if c.Database.Path == "" {
		c.Database.Path = "./cmdb.db"
	}
	if c.Database.QueryTimeout == 0 {
		c.Database.QueryTimeout = Duration(5 * time.Second)
	}
	if c.Pagination.DefaultPageSize == 0 {
		c.Pagination.DefaultPageSize = 100
	}
	if c.Pagination.MaxPageSize == 0 {
		c.Pagination.MaxPageSize = 1000
	}
	if c.Pagination.DefaultSearchLimit == 0 {
		c.Pagination.DefaultSearchLimit = 20
	}
	if c.Pagination.MaxSearchLimit == 0 {
		c.Pagination.MaxSearchLimit = 100
	}
	if len(c.APIKeys) == 0 {
		c.APIKeys = []auth.KeyEntry{{
			ClientID:    "default",
			Key:         "test-api-key",
			Permissions: []auth.Permission{auth.PermissionRead, auth.PermissionWrite},
			Description: "Default test API key",
		}}
	}
}

// applyEnv layers environment overrides on top of file values.
func (c *Config) applyEnv() error {
	if v := os.Getenv("CMDB_LISTEN_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CMDB_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("CMDB_API_KEYS"); v != "" {
		entries, err := auth.ParseKeyTable(v)
		if err != nil {
			return fmt.Errorf("parse CMDB_API_KEYS: %w", err)
		}
		if len(entries) > 0 {
			c.APIKeys = entries
		}
	}
	return nil
}

// Save writes config to the specified path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
