// Package config provides configuration management for the importer.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"allsidestg/pkg/utils"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. ASTG_TELEGRAM_SECRET.
const EnvPrefix = "ASTG"

// Configuration validation errors.
var (
	ErrInvalidUpdateInterval    = errors.New("importer.update_interval must be at least 1 minute")
	ErrInvalidMainURL           = errors.New("importer.main_url must be an absolute URL")
	ErrInvalidStoryErrorPolicy  = errors.New("importer.on_story_error must be 'isolate' or 'abort'")
	ErrInvalidExcerptPolicy     = errors.New("importer.excerpt_policy must be 'take_while' or 'filter'")
	ErrInvalidFetcherKind       = errors.New("fetcher.kind must be one of: chrome, http, file")
	ErrMissingFetcherPort       = errors.New("fetcher.port is required when fetcher.host is set")
	ErrMissingFetcherDir        = errors.New("fetcher.dir is required for the file fetcher")
	ErrInvalidMaxAttempts       = errors.New("fetcher.retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("fetcher.retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("fetcher.retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("fetcher.retry.timeout_sec must be at least 1")
	ErrInvalidStoreBackend      = errors.New("store.backend must be one of: bolt, sqlite, redis")
	ErrMissingStorePath         = errors.New("store.path is required for file-backed stores")
	ErrMissingRedisAddr         = errors.New("store.redis.addr is required for the redis store")
	ErrMissingTelegramSecret    = errors.New("telegram.secret is required")
	ErrMissingTelegramChannel   = errors.New("telegram.channel is required")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat         = errors.New("logging.format must be 'text' or 'json'")
	ErrMissingMetricsAddress    = errors.New("metrics.address is required when metrics are enabled")
)

// Config represents the complete importer configuration.
type Config struct {
	Importer ImporterConfig `yaml:"importer" mapstructure:"importer"`
	Fetcher  FetcherConfig  `yaml:"fetcher"  mapstructure:"fetcher"`
	Store    StoreConfig    `yaml:"store"    mapstructure:"store"`
	Telegram TelegramConfig `yaml:"telegram" mapstructure:"telegram"`
	Logging  LoggingConfig  `yaml:"logging"  mapstructure:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"  mapstructure:"metrics"`
}

// ImporterConfig controls the poll loop.
type ImporterConfig struct {
	MainURL        string `yaml:"main_url"        mapstructure:"main_url"`
	OnStoryError   string `yaml:"on_story_error"  mapstructure:"on_story_error"`
	ExcerptPolicy  string `yaml:"excerpt_policy"  mapstructure:"excerpt_policy"`
	UpdateInterval int    `yaml:"update_interval" mapstructure:"update_interval"`
	DryRun         bool   `yaml:"dry_run"         mapstructure:"dry_run"`
}

// FetcherConfig selects and tunes the page fetcher.
type FetcherConfig struct {
	Kind         string      `yaml:"kind"           mapstructure:"kind"`
	Host         string      `yaml:"host"           mapstructure:"host"`
	Dir          string      `yaml:"dir"            mapstructure:"dir"`
	Retry        RetryPolicy `yaml:"retry"          mapstructure:"retry"`
	Port         int         `yaml:"port"           mapstructure:"port"`
	BufferSizeKb int         `yaml:"buffer_size_kb" mapstructure:"buffer_size_kb"`
}

// RetryPolicy defines retry behavior.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"       mapstructure:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"   mapstructure:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"       mapstructure:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier" mapstructure:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"        mapstructure:"timeout_sec"`
}

// StoreConfig selects the dedup store backend.
type StoreConfig struct {
	Backend string      `yaml:"backend" mapstructure:"backend"`
	Path    string      `yaml:"path"    mapstructure:"path"`
	Redis   RedisConfig `yaml:"redis"   mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"     mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	Prefix   string `yaml:"prefix"   mapstructure:"prefix"`
	DB       int    `yaml:"db"       mapstructure:"db"`
}

// TelegramConfig holds bot credentials and targets.
type TelegramConfig struct {
	Secret      string `yaml:"secret"       mapstructure:"secret"`
	Channel     string `yaml:"channel"      mapstructure:"channel"`
	Admin       string `yaml:"admin"        mapstructure:"admin"`
	APIEndpoint string `yaml:"api_endpoint" mapstructure:"api_endpoint"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"  mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// MetricsConfig controls the ops HTTP listener.
type MetricsConfig struct {
	Address string `yaml:"address" mapstructure:"address"`
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
}

// Default returns the configuration used when no file or environment sets a value.
func Default() Config {
	return Config{
		Importer: ImporterConfig{
			MainURL:        "https://www.allsides.com/unbiased-balanced-news",
			OnStoryError:   "isolate",
			ExcerptPolicy:  "take_while",
			UpdateInterval: 10,
		},
		Fetcher: FetcherConfig{
			Kind: "chrome",
			Host: "localhost",
			Port: 9222,
			Retry: RetryPolicy{
				MaxAttempts:       3,
				InitialDelayMs:    500,
				MaxDelayMs:        30000,
				BackoffMultiplier: 2.0,
				TimeoutSec:        60,
			},
			BufferSizeKb: 4096,
		},
		Store: StoreConfig{
			Backend: "bolt",
			Path:    "stories.db",
			Redis:   RedisConfig{Prefix: "allsidestg:"},
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Address: ":9090"},
	}
}

// LoadConfig reads .env (if present), then the YAML file at path (optional),
// then ASTG_* environment overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys absent from the file.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("importer.main_url", d.Importer.MainURL)
	v.SetDefault("importer.on_story_error", d.Importer.OnStoryError)
	v.SetDefault("importer.excerpt_policy", d.Importer.ExcerptPolicy)
	v.SetDefault("importer.update_interval", d.Importer.UpdateInterval)
	v.SetDefault("importer.dry_run", d.Importer.DryRun)
	v.SetDefault("fetcher.kind", d.Fetcher.Kind)
	v.SetDefault("fetcher.host", d.Fetcher.Host)
	v.SetDefault("fetcher.port", d.Fetcher.Port)
	v.SetDefault("fetcher.dir", d.Fetcher.Dir)
	v.SetDefault("fetcher.buffer_size_kb", d.Fetcher.BufferSizeKb)
	v.SetDefault("fetcher.retry.max_attempts", d.Fetcher.Retry.MaxAttempts)
	v.SetDefault("fetcher.retry.initial_delay_ms", d.Fetcher.Retry.InitialDelayMs)
	v.SetDefault("fetcher.retry.max_delay_ms", d.Fetcher.Retry.MaxDelayMs)
	v.SetDefault("fetcher.retry.backoff_multiplier", d.Fetcher.Retry.BackoffMultiplier)
	v.SetDefault("fetcher.retry.timeout_sec", d.Fetcher.Retry.TimeoutSec)
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.redis.addr", d.Store.Redis.Addr)
	v.SetDefault("store.redis.password", d.Store.Redis.Password)
	v.SetDefault("store.redis.db", d.Store.Redis.DB)
	v.SetDefault("store.redis.prefix", d.Store.Redis.Prefix)
	v.SetDefault("telegram.secret", d.Telegram.Secret)
	v.SetDefault("telegram.channel", d.Telegram.Channel)
	v.SetDefault("telegram.admin", d.Telegram.Admin)
	v.SetDefault("telegram.api_endpoint", d.Telegram.APIEndpoint)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.address", d.Metrics.Address)
}

// SaveConfig saves configuration to YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}

	if err := os.WriteFile(filepath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// YAML renders the configuration.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	return data, nil
}

// Redacted returns a copy with credentials masked, for display.
func (c *Config) Redacted() Config {
	out := *c
	if out.Telegram.Secret != "" {
		out.Telegram.Secret = "***"
	}

	if out.Store.Redis.Password != "" {
		out.Store.Redis.Password = "***"
	}

	return out
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Importer.UpdateInterval < 1 {
		return ErrInvalidUpdateInterval
	}

	if !utils.IsValidURL(c.Importer.MainURL) {
		return ErrInvalidMainURL
	}

	switch c.Importer.OnStoryError {
	case "isolate", "abort":
	default:
		return ErrInvalidStoryErrorPolicy
	}

	switch c.Importer.ExcerptPolicy {
	case "take_while", "filter":
	default:
		return ErrInvalidExcerptPolicy
	}

	if err := c.Fetcher.Validate(); err != nil {
		return err
	}

	if err := c.Store.Validate(); err != nil {
		return err
	}

	if !c.Importer.DryRun {
		if c.Telegram.Secret == "" {
			return ErrMissingTelegramSecret
		}

		if c.Telegram.Channel == "" {
			return ErrMissingTelegramChannel
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return ErrMissingMetricsAddress
	}

	return nil
}

// Validate checks the fetcher section.
func (f *FetcherConfig) Validate() error {
	switch f.Kind {
	case "chrome":
		if f.Host != "" && f.Port <= 0 {
			return ErrMissingFetcherPort
		}
	case "http":
	case "file":
		if f.Dir == "" {
			return ErrMissingFetcherDir
		}
	default:
		return ErrInvalidFetcherKind
	}

	return f.Retry.Validate()
}

// Validate checks the retry policy.
func (rp *RetryPolicy) Validate() error {
	if rp.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if rp.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if rp.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if rp.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	return nil
}

// Validate checks the store section.
func (s *StoreConfig) Validate() error {
	switch s.Backend {
	case "bolt", "sqlite":
		if s.Path == "" {
			return ErrMissingStorePath
		}
	case "redis":
		if s.Redis.Addr == "" {
			return ErrMissingRedisAddr
		}
	default:
		return ErrInvalidStoreBackend
	}

	return nil
}

// PollInterval returns the sleep between cycles.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Importer.UpdateInterval) * time.Minute
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 2; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	// Cap at max delay
	if int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the timeout duration.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Interval: %dm, Fetcher: %s, Store: %s, DryRun: %t}",
		c.Importer.UpdateInterval,
		c.Fetcher.Kind,
		c.Store.Backend,
		c.Importer.DryRun,
	)
}
