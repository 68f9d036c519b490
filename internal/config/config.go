// Package config provides configuration management for promptvault.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultPort     = 7432
	DefaultMaxConns = 4
	DefaultDBFile   = "promptvault.db"

	// Endpoint rate-limit policy constants, per authenticated identity.
	DefaultEnhanceLimit         = 20
	DefaultEnhanceWindowSeconds = 60
	DefaultInviteLimit          = 10
	DefaultInviteWindowSeconds  = 60
)

// TokenEntry maps a static API token to an identity.
type TokenEntry struct {
	Token  string `yaml:"token"`
	UserID string `yaml:"user_id"`
	Email  string `yaml:"email"`
}

// RateLimitPolicy is one endpoint's request budget.
type RateLimitPolicy struct {
	MaxRequests   int `yaml:"max_requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

// Config is the service configuration.
type Config struct {
	Port     int    `yaml:"port"`
	DataDir  string `yaml:"data_dir"`
	DBDriver string `yaml:"db_driver"` // "sqlite" or "postgres"
	DBPath   string `yaml:"db_path"`
	DBDSN    string `yaml:"db_dsn"`
	MaxConns int    `yaml:"max_conns"`

	// RedisAddr enables the Redis-backed rate limiter. Empty selects
	// the always-allow stub (fail-open).
	RedisAddr string `yaml:"redis_addr"`

	OpenAIKey   string `yaml:"openai_key"`
	OpenAIModel string `yaml:"openai_model"`

	EnhanceLimit RateLimitPolicy `yaml:"enhance_limit"`
	InviteLimit  RateLimitPolicy `yaml:"invite_limit"`

	Tokens []TokenEntry `yaml:"tokens"`

	Debug bool `yaml:"debug"`
}

// Default returns the default configuration.
func Default() *Config {
	dataDir := DataDir()
	return &Config{
		Port:     DefaultPort,
		DataDir:  dataDir,
		DBDriver: "sqlite",
		DBPath:   filepath.Join(dataDir, DefaultDBFile),
		MaxConns: DefaultMaxConns,
		EnhanceLimit: RateLimitPolicy{
			MaxRequests:   DefaultEnhanceLimit,
			WindowSeconds: DefaultEnhanceWindowSeconds,
		},
		InviteLimit: RateLimitPolicy{
			MaxRequests:   DefaultInviteLimit,
			WindowSeconds: DefaultInviteWindowSeconds,
		},
	}
}

// DataDir returns the data directory path (~/.promptvault).
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".promptvault"
	}
	return filepath.Join(home, ".promptvault")
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.yaml")
}

// GuestDir returns the directory for guest session storage scopes.
func GuestDir() string {
	return filepath.Join(DataDir(), "guest")
}

// EnsureAll creates the data and guest directories.
func EnsureAll() error {
	for _, dir := range []string{DataDir(), GuestDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Load reads the settings file, fills unset fields with defaults, and
// applies environment overrides. A missing settings file is not an
// error: defaults are returned.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(SettingsPath())
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse settings: %w", err)
		}
	}

	applyDefaults(cfg)
	applyEnv(cfg)
	return cfg, nil
}

// applyDefaults backfills zero values left by a partial settings file.
func applyDefaults(cfg *Config) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DataDir()
	}
	if cfg.DBDriver == "" {
		cfg.DBDriver = "sqlite"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, DefaultDBFile)
	}
	if cfg.MaxConns == 0 {
		cfg.MaxConns = DefaultMaxConns
	}
	if cfg.EnhanceLimit.MaxRequests == 0 {
		cfg.EnhanceLimit.MaxRequests = DefaultEnhanceLimit
	}
	if cfg.EnhanceLimit.WindowSeconds == 0 {
		cfg.EnhanceLimit.WindowSeconds = DefaultEnhanceWindowSeconds
	}
	if cfg.InviteLimit.MaxRequests == 0 {
		cfg.InviteLimit.MaxRequests = DefaultInviteLimit
	}
	if cfg.InviteLimit.WindowSeconds == 0 {
		cfg.InviteLimit.WindowSeconds = DefaultInviteWindowSeconds
	}
}

// applyEnv overrides settings from the environment.
func applyEnv(cfg *Config) {
	if v := os.Getenv("PROMPTVAULT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("PROMPTVAULT_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("PROMPTVAULT_DB_DSN"); v != "" {
		cfg.DBDSN = v
		cfg.DBDriver = "postgres"
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIKey = v
	}
}

// Save writes the configuration to the settings file.
func Save(cfg *Config) error {
	if err := EnsureAll(); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return os.WriteFile(SettingsPath(), data, 0o600)
}
