package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration, loaded from a yaml file selected
// by APP_ENV with environment variable overrides for secrets.
type Config struct {
	Env string `yaml:"env"`

	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	CORS struct {
		AllowOrigins string `yaml:"allow_origins"`
	} `yaml:"cors"`

	JWT struct {
		Secret    string        `yaml:"secret"`
		ExpiresIn time.Duration `yaml:"expires_in"`
	} `yaml:"jwt"`

	Redis struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Database struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Telemetry struct {
		// MaxErrorsPerPage bounds each page bucket (default 100)
		MaxErrorsPerPage int `yaml:"max_errors_per_page"`
		// DedupWindow collapses identical reports (default 30s)
		DedupWindow time.Duration `yaml:"dedup_window"`
		// DefaultQueryLimit caps query results when unset (default 50)
		DefaultQueryLimit int `yaml:"default_query_limit"`
		// NotifyChannel is the Redis pub/sub channel for critical alerts
		NotifyChannel string `yaml:"notify_channel"`
		// Source tags stored errors, "production" or "local"
		Source string `yaml:"source"`
	} `yaml:"telemetry"`
}

// Load reads and parses the config file, then applies env overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return cfg, nil
}

// applyEnvOverrides lets deployment env vars win over yaml values
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWT.Secret = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "local"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8082
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.JWT.ExpiresIn == 0 {
		c.JWT.ExpiresIn = 24 * time.Hour
	}
}

// IsDevelopment reports whether the app runs in a development environment
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev" || c.Env == "local"
}

// DSN builds the MySQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Name)
}
