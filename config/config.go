// Package config loads the API server configuration.
//
// Sources are layered with koanf, later layers winning:
//  1. built-in defaults
//  2. an optional YAML file (CONFIG_PATH, or ./config.yaml when present)
//  3. environment variables
//
// The store connection string has no default. Starting without one is a hard
// failure (ErrMissingStoreURI).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

const defaultConfigPath = "config.yaml"

// ErrMissingStoreURI is returned when no connection string for the backing store is configured.
var ErrMissingStoreURI = errors.New("store connection string not set (MONGO_URI or DATABASE_URL)")

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	CORS      CORSConfig      `koanf:"cors"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type StoreConfig struct {
	URI            string        `koanf:"uri"`
	Database       string        `koanf:"database"`
	Collection     string        `koanf:"collection"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// RateLimitConfig throttles POST /consumo per client IP. Requests <= 0 disables it.
type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8000,
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Store: StoreConfig{
			Database:       "TCC",
			Collection:     "consumo_eletrico",
			ConnectTimeout: 5 * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		RateLimit: RateLimitConfig{
			Requests: 0,
			Window:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// envMappings maps environment variable names (lower-cased) to config keys.
// Variables not listed here are ignored.
var envMappings = map[string]string{
	"port":                  "server.port",
	"request_timeout":       "server.request_timeout",
	"shutdown_timeout":      "server.shutdown_timeout",
	"mongo_uri":             "store.uri",
	"database_url":          "store.uri",
	"mongo_database":        "store.database",
	"mongo_collection":      "store.collection",
	"store_connect_timeout": "store.connect_timeout",
	"cors_allowed_origins":  "cors.allowed_origins",
	"rate_limit_requests":   "rate_limit.requests",
	"rate_limit_window":     "rate_limit.window",
	"log_level":             "logging.level",
	"log_format":            "logging.format",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Load reads configuration from defaults, the optional config file and the environment.
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit config file path. An empty path skips the file layer.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// MONGO_URI wins over DATABASE_URL when both are set.
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if uri := strings.TrimSpace(os.Getenv("MONGO_URI")); uri != "" {
		if err := k.Set("store.uri", uri); err != nil {
			return nil, fmt.Errorf("failed to apply MONGO_URI: %w", err)
		}
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// sliceConfigPaths are keys whose environment values are comma-separated lists.
var sliceConfigPaths = []string{
	"cors.allowed_origins",
}

// processSliceFields splits comma-separated string values of list keys.
// Values that are already lists (from YAML or defaults) are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	c.Store.URI = strings.TrimSpace(c.Store.URI)
	if c.Store.URI == "" {
		return ErrMissingStoreURI
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Store.Database == "" || c.Store.Collection == "" {
		return errors.New("store database and collection must not be empty")
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		return errors.New("rate_limit.window must be positive when rate limiting is enabled")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
