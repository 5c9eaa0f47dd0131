// Package config loads and validates the bot configuration from a YAML
// file, with environment variable overrides and .env credential loading.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rmarques/cryptobot/internal/core"
)

// Environment variables holding the exchange credentials, conventionally
// kept in a local .env file rather than the config file.
const (
	EnvAPIKey    = "KEY_BINANCE"
	EnvAPISecret = "SECRET_BINANCE"
)

type Config struct {
	Trading  TradingConfig  `mapstructure:"trading"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Observer ObserverConfig `mapstructure:"observer"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type TradingConfig struct {
	Symbol        string        `mapstructure:"symbol"`
	Interval      string        `mapstructure:"interval"`
	CandleLimit   int           `mapstructure:"candle_limit"`
	FastPeriod    int           `mapstructure:"fast_period"`
	SlowPeriod    int           `mapstructure:"slow_period"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	ErrorCooldown time.Duration `mapstructure:"error_cooldown"`
	InvestedValue float64       `mapstructure:"invested_value"`
	InvestedQty   float64       `mapstructure:"invested_qty"`
}

type ExchangeConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

type StorageConfig struct {
	Archive ArchiveConfig `mapstructure:"archive"`
}

type ArchiveConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"` // "localfs" or "s3"
	Path    string   `mapstructure:"path"` // For localfs
	S3      S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type ObserverConfig struct {
	Webhook WebhookConfig `mapstructure:"webhook"`
}

type WebhookConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

// MetricsConfig holds the Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
}

// Load reads configuration from file. Credentials from the process
// environment (optionally seeded from a .env file next to the working
// directory) override empty values in the file.
func Load(path string) (*Config, error) {
	// Best effort; a missing .env just means the variables come from the
	// real environment.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand ${VAR} references in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.Exchange.APIKey == "" {
		cfg.Exchange.APIKey = os.Getenv(EnvAPIKey)
	}
	if cfg.Exchange.APISecret == "" {
		cfg.Exchange.APISecret = os.Getenv(EnvAPISecret)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Trading: TradingConfig{
			Interval:      "1h",
			CandleLimit:   1000,
			FastPeriod:    7,
			SlowPeriod:    40,
			PollInterval:  5 * time.Minute,
			ErrorCooldown: time.Minute,
		},
		Storage: StorageConfig{
			Archive: ArchiveConfig{
				Type: "localfs",
				Path: "./data/archive",
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Trading.Symbol == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("trading symbol is required"))
	}
	if c.Trading.FastPeriod <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("fast_period must be positive, got %d", c.Trading.FastPeriod))
	}
	if c.Trading.FastPeriod >= c.Trading.SlowPeriod {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("fast_period %d must be below slow_period %d", c.Trading.FastPeriod, c.Trading.SlowPeriod))
	}
	if c.Trading.CandleLimit < c.Trading.SlowPeriod {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("candle_limit %d cannot cover slow_period %d", c.Trading.CandleLimit, c.Trading.SlowPeriod))
	}
	if c.Trading.PollInterval <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("poll_interval must be positive, got %s", c.Trading.PollInterval))
	}
	if c.Trading.InvestedQty < 0 || c.Trading.InvestedValue < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("invested amounts cannot be negative"))
	}

	switch c.Storage.Archive.Type {
	case "", "localfs":
		if c.Storage.Archive.Enabled && c.Storage.Archive.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("archive path required for localfs archive"))
		}
	case "s3":
		if c.Storage.Archive.Enabled && c.Storage.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required for s3 archive"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type %q", c.Storage.Archive.Type))
	}

	if c.Observer.Webhook.Enabled && c.Observer.Webhook.URL == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("webhook url required when webhook observer is enabled"))
	}

	return nil
}
