// Package config loads palaver.yaml and applies PALAVER_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no config path is given.
const DefaultFile = "palaver.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PALAVER_"

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Loader kinds.
const (
	LoaderFile = "file"
	LoaderLoam = "loam"
)

// Config is the whole runtime configuration.
type Config struct {
	Documents    string        `yaml:"documents" env:"DOCUMENTS"`
	Loader       string        `yaml:"loader" env:"LOADER"`
	Watch        bool          `yaml:"watch" env:"WATCH"`
	Debug        bool          `yaml:"debug" env:"DEBUG"`
	LogLevel     string        `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat    string        `yaml:"log_format" env:"LOG_FORMAT"`
	TickInterval time.Duration `yaml:"tick_interval" env:"TICK_INTERVAL"`

	Store  StoreConfig  `yaml:"store" envPrefix:"STORE_"`
	Host   HostConfig   `yaml:"host" envPrefix:"HOST_"`
	Server ServerConfig `yaml:"server" envPrefix:"SERVER_"`
}

// StoreConfig selects where conversation snapshots live.
type StoreConfig struct {
	Kind          string        `yaml:"kind" env:"KIND"`
	Path          string        `yaml:"path" env:"PATH"`
	RedisAddr     string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" env:"REDIS_DB"`
	TTL           time.Duration `yaml:"ttl" env:"TTL"`
	Lock          bool          `yaml:"lock" env:"LOCK"`
}

// HostConfig points at the process host handlers.
type HostConfig struct {
	Handlers string `yaml:"handlers" env:"HANDLERS"`
	Dir      string `yaml:"dir" env:"DIR"`
}

// ServerConfig configures serve.
type ServerConfig struct {
	Addr    string `yaml:"addr" env:"ADDR"`
	Metrics bool   `yaml:"metrics" env:"METRICS"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Documents:    "dialogues",
		Loader:       LoaderFile,
		LogLevel:     "info",
		LogFormat:    "text",
		TickInterval: 50 * time.Millisecond,
		Store: StoreConfig{
			Kind:      StoreMemory,
			RedisAddr: "localhost:6379",
		},
		Host: HostConfig{
			Handlers: "host.yaml",
		},
		Server: ServerConfig{
			Addr:    ":8080",
			Metrics: true,
		},
	}
}

// Load reads path over the defaults, then applies the environment.
// Debug forces the debug log level.
// A missing file is only an error when required is true.
func Load(path string, required bool) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !required:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

// Validate rejects unknown kinds.
func (c Config) Validate() error {
	switch c.Store.Kind {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
	switch c.Loader {
	case LoaderFile, LoaderLoam:
	default:
		return fmt.Errorf("unknown loader %q", c.Loader)
	}
	if c.TickInterval <= 0 {
		return errors.New("tick_interval must be positive")
	}
	return nil
}
