package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
)

// Config holds everything the server needs at startup. Values come from the
// environment first; an optional YAML file named by LMS_CONFIG is overlaid
// on top for local development.
type Config struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	AppSecretKey string `yaml:"app_secret_key"`
	SiteDomain   string `yaml:"site_domain"`

	// TokenTTL bounds both the signed claim and the session cache entry.
	TokenTTL time.Duration `yaml:"token_ttl"`

	// Login rate limiting, requests per minute per client IP.
	LoginRatePerMinute int `yaml:"login_rate_per_minute"`
	LoginBurst         int `yaml:"login_burst"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:               getenv("PORT", "5050"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisAddr:          getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		AppSecretKey:       os.Getenv("APP_SECRET_KEY"),
		SiteDomain:         getenv("SITE_DOMAIN", "localhost:5050"),
		TokenTTL:           48 * time.Hour,
		LoginRatePerMinute: 30,
		LoginBurst:         10,
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("REDIS_DB: %w", err)
		}
		cfg.RedisDB = n
	}
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("TOKEN_TTL: %w", err)
		}
		cfg.TokenTTL = d
	}

	if path := os.Getenv("LMS_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	if cfg.AppSecretKey == "" {
		return nil, fmt.Errorf("APP_SECRET_KEY is empty")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
