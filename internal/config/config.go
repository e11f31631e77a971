// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the mail service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported storage backends.
const (
	BackendJSONFile = "jsonfile"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// defaultMaxBodySize is 10 MB in bytes.
const defaultMaxBodySize = 10485760

// Config holds the complete application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Limits  LimitsConfig  `yaml:"limits"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig selects and configures the message storage backend.
type StoreConfig struct {
	Backend      string `yaml:"backend"`
	MessagesPath string `yaml:"messages_path"`
	AccountsPath string `yaml:"accounts_path"`
	PostgresDSN  string `yaml:"postgres_dsn"`
}

// LimitsConfig holds message size and query limits.
type LimitsConfig struct {
	MaxSubjectLength int `yaml:"max_subject_length"`
	MaxBodySize      int `yaml:"max_body_size"`
	MaxRecipients    int `yaml:"max_recipients"`
	MaxQueryLimit    int `yaml:"max_query_limit"`
}

// AuthConfig holds account credential settings.
type AuthConfig struct {
	BcryptCost       int `yaml:"bcrypt_cost"`
	MaxLoginAttempts int `yaml:"max_login_attempts"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, cfg.validate()
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	cfg.applyEnvVars()

	return cfg, cfg.validate()
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Store.Backend = BackendJSONFile
	c.Store.MessagesPath = "minimail-messages.json"
	c.Store.AccountsPath = "minimail-accounts.json"
	c.Limits.MaxSubjectLength = 998
	c.Limits.MaxBodySize = defaultMaxBodySize
	c.Limits.MaxRecipients = 100
	c.Limits.MaxQueryLimit = 1000
	c.Auth.BcryptCost = 10
	c.Auth.MaxLoginAttempts = 3
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("MINIMAIL_STORE_BACKEND"); v != "" {
		c.Store.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("MINIMAIL_MESSAGES_PATH"); v != "" {
		c.Store.MessagesPath = v
	}
	if v := os.Getenv("MINIMAIL_ACCOUNTS_PATH"); v != "" {
		c.Store.AccountsPath = v
	}
	if v := os.Getenv("MINIMAIL_POSTGRES_DSN"); v != "" {
		c.Store.PostgresDSN = v
	}

	if v := os.Getenv("MINIMAIL_MAX_SUBJECT_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Limits.MaxSubjectLength = n
		}
	}
	if v := os.Getenv("MINIMAIL_MAX_BODY_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Limits.MaxBodySize = n
		}
	}
	if v := os.Getenv("MINIMAIL_MAX_RECIPIENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Limits.MaxRecipients = n
		}
	}
	if v := os.Getenv("MINIMAIL_MAX_QUERY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Limits.MaxQueryLimit = n
		}
	}

	if v := os.Getenv("MINIMAIL_BCRYPT_COST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Auth.BcryptCost = n
		}
	}
	if v := os.Getenv("MINIMAIL_MAX_LOGIN_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Auth.MaxLoginAttempts = n
		}
	}

	if v := os.Getenv("MINIMAIL_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}

// validate checks cross-field constraints after all layers are applied.
func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendJSONFile, BackendMemory:
	case BackendPostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("postgres backend requires a DSN")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Auth.MaxLoginAttempts < 1 {
		return fmt.Errorf("max_login_attempts must be at least 1")
	}
	return nil
}
