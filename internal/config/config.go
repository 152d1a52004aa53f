package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "vehiclesense/libs/config"
)

// HTTPConfig holds listener settings.
type HTTPConfig struct {
	Port string `yaml:"port" env:"HTTP_PORT"`
}

// DatabaseConfig holds Postgres settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"POSTGRES_DSN"`
}

// RedisConfig holds the optional active-session cache settings. An empty addr
// disables the cache entirely.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

// SessionConfig holds lifecycle tuning.
type SessionConfig struct {
	TimeoutSeconds int `yaml:"timeoutSeconds" env:"ACTIVE_SESSION_TIMEOUT_SECONDS"`
}

// ImagesConfig holds crop storage settings.
type ImagesConfig struct {
	Dir string `yaml:"dir" env:"STATIC_IMAGE_DIR"`
}

// LookupConfig holds external ownership lookup settings. An empty base URL
// disables the external fetch and every resolution degrades to placeholders.
type LookupConfig struct {
	BaseURL         string `yaml:"baseUrl" env:"EXCISE_LOOKUP_BASE_URL"`
	TimeoutSeconds  int    `yaml:"timeoutSeconds" env:"EXCISE_LOOKUP_TIMEOUT"`
	CacheTTLSeconds int    `yaml:"cacheTtlSeconds" env:"LOOKUP_CACHE_TTL"`
}

// Config defines the vehiclesense service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Session  SessionConfig  `yaml:"session"`
	Images   ImagesConfig   `yaml:"images"`
	Lookup   LookupConfig   `yaml:"lookup"`
}

// Load reads configuration via the shared helper.
func Load() (*Config, error) {
	cfg := &Config{
		HTTP:    HTTPConfig{Port: "8000"},
		Session: SessionConfig{TimeoutSeconds: 300},
		Images:  ImagesConfig{Dir: "static/images"},
		Lookup:  LookupConfig{TimeoutSeconds: 8},
	}

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate is invoked by the shared loader after env overrides.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database dsn required")
	}
	if c.Session.TimeoutSeconds <= 0 {
		return errors.New("session timeout must be positive")
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8000"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// SessionTimeout returns the active session timeout as a duration.
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.Session.TimeoutSeconds) * time.Second
}

// LookupTimeout returns the excise client timeout.
func (c *Config) LookupTimeout() time.Duration {
	if c.Lookup.TimeoutSeconds <= 0 {
		return 8 * time.Second
	}
	return time.Duration(c.Lookup.TimeoutSeconds) * time.Second
}

// LookupCacheTTL returns the owner cache refresh TTL. Zero keeps entries
// forever.
func (c *Config) LookupCacheTTL() time.Duration {
	if c.Lookup.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Lookup.CacheTTLSeconds) * time.Second
}
