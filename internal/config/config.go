// Package config loads the artifact cache configuration.
//
// Values start from defaults, are then overlaid by an optional YAML file named
// by CACHE_CONFIG_FILE and finally by individual environment variables. The
// configuration is read once at startup and passed down explicitly.
//
// Environment Variables:
//
// Cache Settings:
//   - CACHE_CONFIG_FILE: Optional YAML file with a "cache" section
//   - CACHE_TYPE: Backend - "local" or "redis" (default: local)
//   - CACHE_MAX_SIZE: Entries kept per category after eviction, or "none" for unbounded (default: 50)
//   - CACHE_EVICTION_BUFFER: Entries allowed above the max before eviction runs (default: 5)
//   - CACHE_SERIALIZER: Value codec - "gob" or "json" (default: gob)
//   - CACHE_COMPRESSION: "none" or "zstd" (default: none)
//   - CACHE_PATH: Root directory of the local backend (default: ./cache)
//   - CACHE_MEMORY_TTL: Lifetime of the in-process read layer, 0 disables it (default: 0)
//   - CACHE_LOCK: Category lock - "local" or "redis" (default: local)
//
// Redis Configuration:
//   - REDIS_ADDRESS: Redis server address (default: localhost:6379)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_POOL_SIZE: Redis connection pool size (default: 10)
//
// Logging:
//   - LOG_LEVEL: debug, info, warn or error (default: info)
//   - LOG_FORMAT: console or json (default: console)
//   - LOG_FILE: Log destination, stderr when empty
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//		return err
//	}
//	provider, err := cache.Open(ctx, cfg.Cache)
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"artifact-cache/internal/cache"
	"artifact-cache/internal/common/errors"
	"artifact-cache/internal/common/validation"
)

// Config holds all configuration values of the artifact cache
type Config struct {
	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat string `yaml:"log_format" validate:"oneof=console json"`
	LogFile   string `yaml:"log_file"`

	Cache cache.Config `yaml:"cache" validate:"-"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "console",
		Cache:     cache.DefaultConfig(),
	}
}

// Load builds the configuration from defaults, the optional config file and
// the environment, in that order of increasing precedence. Log level and
// format are case-insensitive and come back lowercased. Load does not
// validate; call Validate on the result.
func Load() (*Config, error) {
	config := Default()

	if path := os.Getenv("CACHE_CONFIG_FILE"); path != "" {
		if err := config.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	config.LogLevel = strings.ToLower(strings.TrimSpace(config.LogLevel))
	config.LogFormat = strings.ToLower(strings.TrimSpace(config.LogFormat))
	return config, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.ConfigError(fmt.Sprintf("cannot read config file %s: %v", path, err))
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.ConfigError(fmt.Sprintf("cannot parse config file %s: %v", path, err))
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)

	cc := &c.Cache
	cc.Type = cache.Type(getEnv("CACHE_TYPE", string(cc.Type)))
	cc.Serializer = getEnv("CACHE_SERIALIZER", cc.Serializer)
	cc.Compression = getEnv("CACHE_COMPRESSION", cc.Compression)
	cc.Path = getEnv("CACHE_PATH", cc.Path)
	cc.Lock = getEnv("CACHE_LOCK", cc.Lock)
	cc.Params.Address = getEnv("REDIS_ADDRESS", cc.Params.Address)
	cc.Params.Password = getEnv("REDIS_PASSWORD", cc.Params.Password)

	var err error
	if cc.MaxSize, err = getMaxSizeEnv("CACHE_MAX_SIZE", cc.MaxSize); err != nil {
		return err
	}
	if cc.EvictionBuffer, err = getIntEnv("CACHE_EVICTION_BUFFER", cc.EvictionBuffer); err != nil {
		return err
	}
	if cc.MemoryTTL, err = getDurationEnv("CACHE_MEMORY_TTL", cc.MemoryTTL); err != nil {
		return err
	}
	if cc.Params.DB, err = getIntEnv("REDIS_DB", cc.Params.DB); err != nil {
		return err
	}
	if cc.Params.PoolSize, err = getIntEnv("REDIS_POOL_SIZE", cc.Params.PoolSize); err != nil {
		return err
	}
	return nil
}

// Validate checks the logging settings and the cache configuration
func (c *Config) Validate() error {
	if err := validation.New().ValidateStruct(c); err != nil {
		return err
	}
	return c.Cache.Validate()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.ConfigError(fmt.Sprintf("%s must be an integer, got %q", key, value))
	}
	return n, nil
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if value == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.ConfigError(fmt.Sprintf("%s must be a duration such as 30s, got %q", key, value))
	}
	return d, nil
}

// getMaxSizeEnv reads an entry bound; "none", "unbounded" and "null" mean no bound
func getMaxSizeEnv(key string, defaultValue *int) (*int, error) {
	value := os.Getenv(key)
	switch strings.ToLower(value) {
	case "":
		return defaultValue, nil
	case "none", "unbounded", "null":
		return nil, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("%s must be an integer or \"none\", got %q", key, value))
	}
	return &n, nil
}
