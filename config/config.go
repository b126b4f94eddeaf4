// Package config loads the configuration of the fin tool from a YAML file,
// a .env file and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/etnz/finance/gateway"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "fin.yaml"

// Config represents the application configuration.
type Config struct {
	User     string      `yaml:"user"`
	Book     string      `yaml:"book"`
	Currency string      `yaml:"currency"`
	DataDir  string      `yaml:"dataDir"`
	Listen   string      `yaml:"listen"`
	Retry    RetryConfig `yaml:"retry"`
}

// RetryConfig bounds the retries of gateway writes.
type RetryConfig struct {
	Attempts   int           `yaml:"attempts"`
	Backoff    time.Duration `yaml:"backoff"`
	MaxBackoff time.Duration `yaml:"maxBackoff"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	p := gateway.DefaultPolicy()
	return &Config{
		User:     "me",
		Book:     "main",
		Currency: "EUR",
		DataDir:  ".fin",
		Listen:   "localhost:8080",
		Retry:    RetryConfig{Attempts: p.MaxAttempts, Backoff: p.InitialBackoff, MaxBackoff: p.MaxBackoff},
	}
}

// Load reads the configuration.
//
// The YAML file at path is optional when path is DefaultFile or empty. The
// .env file of the current directory is loaded if present, then FIN_*
// environment variables override the file values.
func Load(path string) (*Config, error) {
	c := Default()

	if path == "" {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultFile:
	default:
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	// Try to load .env from current directory (ignore error if not found)
	_ = godotenv.Load()

	if err := c.fromEnv(); err != nil {
		return nil, err
	}
	return c, c.Validate()
}

func (c *Config) fromEnv() error {
	setString(&c.User, "FIN_USER")
	setString(&c.Book, "FIN_BOOK")
	setString(&c.Currency, "FIN_CURRENCY")
	setString(&c.DataDir, "FIN_DATA_DIR")
	setString(&c.Listen, "FIN_LISTEN")

	if v := os.Getenv("FIN_RETRY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid FIN_RETRY_ATTEMPTS: %w", err)
		}
		c.Retry.Attempts = n
	}
	if v := os.Getenv("FIN_RETRY_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid FIN_RETRY_BACKOFF: %w", err)
		}
		c.Retry.Backoff = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	var missing []string
	for name, v := range map[string]string{"user": c.User, "book": c.Book, "currency": c.Currency, "dataDir": c.DataDir} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v", missing)
	}
	if strings.Contains(c.User, "/") || strings.Contains(c.Book, "/") {
		return fmt.Errorf("user and book cannot contain '/': %q, %q", c.User, c.Book)
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1, got %d", c.Retry.Attempts)
	}
	if c.Retry.Backoff < 0 || c.Retry.MaxBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	return nil
}

// Scope returns the book addressed by the configuration.
func (c *Config) Scope() gateway.Scope { return gateway.Scope{User: c.User, Book: c.Book} }

// BoltPath returns the path of the local document store.
func (c *Config) BoltPath() string { return filepath.Join(c.DataDir, "fin.db") }

// OutboxPath returns the path of the outbox database.
func (c *Config) OutboxPath() string { return filepath.Join(c.DataDir, "outbox.sqlite") }

// RetryPolicy returns the retry policy of gateway writes.
func (c *Config) RetryPolicy() gateway.Policy {
	return gateway.Policy{MaxAttempts: c.Retry.Attempts, InitialBackoff: c.Retry.Backoff, MaxBackoff: c.Retry.MaxBackoff}
}
