// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"uigen/internal/vfs"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Host string `json:"host" yaml:"host"`
		Port int    `json:"port" yaml:"port"`
	} `json:"server" yaml:"server"`

	Database struct {
		Path     string `json:"path" yaml:"path"`
		InMemory bool   `json:"in_memory" yaml:"in_memory"`
	} `json:"database" yaml:"database"`

	Sessions struct {
		CacheSize    int `json:"cache_size" yaml:"cache_size"`
		HistoryLimit int `json:"history_limit" yaml:"history_limit"`
	} `json:"sessions" yaml:"sessions"`

	Snapshots struct {
		CacheSize       int `json:"cache_size" yaml:"cache_size"`
		ZstdLevel       int `json:"zstd_level" yaml:"zstd_level"`             // 1 fastest .. 4 best
		MinCompressSize int `json:"min_compress_size" yaml:"min_compress_size"` // bytes
	} `json:"snapshots" yaml:"snapshots"`

	Limits vfs.Limits `json:"limits" yaml:"limits"`

	Environment string `json:"environment" yaml:"environment"` // development, production
	LogLevel    string `json:"log_level" yaml:"log_level"`     // debug, info, warn, error
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var c Config
	c.Server.Host = "localhost"
	c.Server.Port = 8080
	c.Database.Path = "data/uigen"
	c.Sessions.CacheSize = 64
	c.Sessions.HistoryLimit = 50
	c.Snapshots.CacheSize = 128
	c.Snapshots.ZstdLevel = 2
	c.Snapshots.MinCompressSize = 512
	c.Limits = vfs.DefaultLimits()
	c.Environment = "development"
	c.LogLevel = "info"
	return &c
}

// Path returns the config file for the current UIGEN_ENV.
func Path() string {
	env := os.Getenv("UIGEN_ENV")
	if env == "" {
		env = "development"
	}
	return fmt.Sprintf("config/config.%s.json", env)
}

// Load reads path over the defaults and then applies environment overrides.
// JSON and YAML files are both accepted, chosen by extension. An empty path
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
			}
		case ".json":
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
			}
		default:
			return nil, fmt.Errorf("unsupported config file format: %s", ext)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("UIGEN_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("UIGEN_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("UIGEN_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid UIGEN_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}
	if !c.Database.InMemory && c.Database.Path == "" {
		return fmt.Errorf("database path is required unless in_memory is set")
	}
	if c.Sessions.CacheSize <= 0 {
		return fmt.Errorf("sessions cache_size must be positive")
	}
	if c.Snapshots.CacheSize <= 0 {
		return fmt.Errorf("snapshots cache_size must be positive")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
