package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the daemon configuration, loaded from an optional YAML file
// with environment-variable overrides on top.
type Config struct {
	HTTPPort  int    `yaml:"http_port"`
	RedisAddr string `yaml:"redis_addr"`

	Concurrency       int           `yaml:"concurrency"`
	ProcessTimeout    time.Duration `yaml:"process_timeout"`
	CleanupMaxAge     time.Duration `yaml:"cleanup_max_age"`
	ShutdownDeadline  time.Duration `yaml:"shutdown_deadline"`
	RetryMaxAttempts  int           `yaml:"retry_max_attempts"`
	RetryBaseDelay    time.Duration `yaml:"retry_base_delay"`
	RetryJitter       float64       `yaml:"retry_jitter"`
	AIBaseURL         string        `yaml:"ai_base_url"`
	AIModel           string        `yaml:"ai_model"`
	AIKey             string        `yaml:"ai_key"`
	AIRequestTimeout  time.Duration `yaml:"ai_request_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPPort:         8080,
		RedisAddr:        "127.0.0.1:6379",
		Concurrency:      3,
		ProcessTimeout:   5 * time.Minute,
		CleanupMaxAge:    24 * time.Hour,
		ShutdownDeadline: 30 * time.Second,
		RetryMaxAttempts: 3,
		RetryBaseDelay:   time.Second,
		AIBaseURL:        "https://api.openai.com/v1",
		AIModel:          "gpt-4o-mini",
		AIRequestTimeout: 30 * time.Second,
	}
}

// Load reads the YAML file at path (skipped when path is empty) and then
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTPPort = getEnvInt("HTTP_PORT", c.HTTPPort)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.Concurrency = getEnvInt("QUEUE_CONCURRENCY", c.Concurrency)
	c.AIBaseURL = getEnv("AI_BASE_URL", c.AIBaseURL)
	c.AIModel = getEnv("AI_MODEL", c.AIModel)
	c.AIKey = getEnv("AI_API_KEY", c.AIKey)
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
