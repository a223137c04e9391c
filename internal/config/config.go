// Package config loads process configuration: defaults, then an optional
// YAML file named by APP_CONFIG_FILE, then environment variables (a .env
// file in the working directory is read first).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel  string         `yaml:"log_level"`
	LogFormat string         `yaml:"log_format"`
	Server    ServerConfig   `yaml:"server"`
	Database  DatabaseConfig `yaml:"database"`
	Redis     RedisConfig    `yaml:"redis"`
	API       APIConfig      `yaml:"api"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	URL             string `yaml:"url"`
	DraftTTLSeconds int    `yaml:"draft_ttl_seconds"`
}

// APIConfig is used by clients of the REST API such as flowctl.
type APIConfig struct {
	BaseURL  string `yaml:"base_url"`
	TenantID string `yaml:"tenant_id"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3000,
		},
		Database: DatabaseConfig{
			MaxConns: 10,
		},
		Redis: RedisConfig{
			DraftTTLSeconds: 86400,
		},
		API: APIConfig{
			BaseURL: "http://localhost:3000",
		},
	}
}

// Load reads the configuration. It does not require a database; servers
// call RequireDatabase after loading.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env is optional

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.normalize()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Addr is the listen address of the server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DraftTTL is how long drafts are kept in Redis.
func (c *Config) DraftTTL() time.Duration {
	return time.Duration(c.Redis.DraftTTLSeconds) * time.Second
}

// RequireDatabase fails when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read APP_CONFIG_FILE %q failed: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse APP_CONFIG_FILE %q failed: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	applyString("LOG_LEVEL", &c.LogLevel)
	applyString("LOG_FORMAT", &c.LogFormat)

	applyString("HOST", &c.Server.Host)
	applyInt("PORT", &c.Server.Port)

	applyString("DATABASE_URL", &c.Database.URL)
	applyInt("DATABASE_MAX_CONNS", &c.Database.MaxConns)

	applyString("REDIS_URL", &c.Redis.URL)
	applyInt("DRAFT_TTL_SECONDS", &c.Redis.DraftTTLSeconds)

	applyString("API_BASE_URL", &c.API.BaseURL)
	applyString("TENANT_ID", &c.API.TenantID)
}

func (c *Config) normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", c.Server.Port)
	}
	if c.Redis.DraftTTLSeconds < 0 {
		return fmt.Errorf("DRAFT_TTL_SECONDS must not be negative")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT %q must be text or json", c.LogFormat)
	}
	return nil
}

func applyString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func applyInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}
