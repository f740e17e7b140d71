// Package config loads threadchat settings from a YAML file, a .env file and
// the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/boat-builder/threadchat"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	AssistantID   string `yaml:"assistant_id"`
	MaxRetries    int    `yaml:"max_retries"`

	Addr      string `yaml:"addr"`
	ServerURL string `yaml:"server_url"`

	Store       string `yaml:"store"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	RedisAddr   string `yaml:"redis_addr"`

	PollInterval    time.Duration `yaml:"poll_interval"`
	PollMaxAttempts int           `yaml:"poll_max_attempts"`
	PollTimeout     time.Duration `yaml:"poll_timeout"`

	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`
}

func defaults() *Config {
	return &Config{
		Addr:         ":8080",
		Store:        StoreSQLite,
		SQLitePath:   "threadchat.db",
		RedisAddr:    "localhost:6379",
		PollInterval: threadchat.DefaultPollInterval,
		LogLevel:     "INFO",
	}
}

// Load builds the configuration. path names an optional YAML file; an empty
// path skips it. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Error loading .env file, falling back to environment variables", "error", err)
	}

	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.AssistantID = getEnv("OPENAI_ASSISTANT_ID", cfg.AssistantID)
	cfg.Addr = getEnv("THREADCHAT_ADDR", cfg.Addr)
	cfg.ServerURL = getEnv("THREADCHAT_SERVER_URL", cfg.ServerURL)
	cfg.Store = strings.ToLower(getEnv("THREADCHAT_STORE", cfg.Store))
	cfg.SQLitePath = getEnv("THREADCHAT_SQLITE_PATH", cfg.SQLitePath)
	cfg.PostgresDSN = getEnv("THREADCHAT_POSTGRES_DSN", cfg.PostgresDSN)
	cfg.RedisAddr = getEnv("THREADCHAT_REDIS_ADDR", cfg.RedisAddr)
	cfg.LogFile = getEnv("THREADCHAT_LOG_FILE", cfg.LogFile)
	cfg.LogLevel = getEnv("THREADCHAT_LOG_LEVEL", cfg.LogLevel)

	var err error
	if cfg.MaxRetries, err = getIntEnv("THREADCHAT_MAX_RETRIES", cfg.MaxRetries); err != nil {
		return nil, err
	}
	if cfg.PollMaxAttempts, err = getIntEnv("THREADCHAT_POLL_MAX_ATTEMPTS", cfg.PollMaxAttempts); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = getDurationEnv("THREADCHAT_POLL_INTERVAL", cfg.PollInterval); err != nil {
		return nil, err
	}
	if cfg.PollTimeout, err = getDurationEnv("THREADCHAT_POLL_TIMEOUT", cfg.PollTimeout); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateGenerator checks the settings needed to talk to the assistant API.
func (c *Config) ValidateGenerator() error {
	if c.OpenAIAPIKey == "" {
		return errors.New("OPENAI_API_KEY must be set")
	}
	if c.AssistantID == "" {
		return errors.New("OPENAI_ASSISTANT_ID must be set")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.PollMaxAttempts < 0 || c.PollTimeout < 0 {
		return errors.New("poll limits must not be negative")
	}
	return nil
}

// ValidateStore checks that the selected store backend is known and configured.
func (c *Config) ValidateStore() error {
	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return errors.New("THREADCHAT_SQLITE_PATH must be set for the sqlite store")
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return errors.New("THREADCHAT_POSTGRES_DSN must be set for the postgres store")
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return errors.New("THREADCHAT_REDIS_ADDR must be set for the redis store")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	return nil
}

// PollConfig returns the polling settings for the Generator.
func (c *Config) PollConfig() threadchat.PollConfig {
	return threadchat.PollConfig{
		Interval:    c.PollInterval,
		MaxAttempts: c.PollMaxAttempts,
		Timeout:     c.PollTimeout,
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
