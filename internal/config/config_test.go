package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_FromFile(t *testing.T) {
	content := []byte(`
trading:
  symbol: "BTCBRL"
  interval: "1h"
  fast_period: 7
  slow_period: 40
  poll_interval: 5m
  invested_value: 1000
  invested_qty: 0.005

storage:
  archive:
    enabled: true
    type: localfs
    path: "/tmp/cryptobot/archive"
`)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Trading.Symbol != "BTCBRL" {
		t.Errorf("expected symbol BTCBRL, got %s", cfg.Trading.Symbol)
	}
	if cfg.Trading.PollInterval != 5*time.Minute {
		t.Errorf("expected 5m poll interval, got %s", cfg.Trading.PollInterval)
	}
	if cfg.Storage.Archive.Path != "/tmp/cryptobot/archive" {
		t.Errorf("expected archive path set, got %s", cfg.Storage.Archive.Path)
	}
	// File keeps the defaults it does not mention.
	if cfg.Trading.CandleLimit != 1000 {
		t.Errorf("expected default candle_limit 1000, got %d", cfg.Trading.CandleLimit)
	}
}

func TestLoad_CredentialsFromEnv(t *testing.T) {
	content := []byte(`
trading:
  symbol: "BTCBRL"
`)
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv(EnvAPISecret, "env-secret")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Exchange.APIKey != "env-key" {
		t.Errorf("expected api key from env, got %q", cfg.Exchange.APIKey)
	}
	if cfg.Exchange.APISecret != "env-secret" {
		t.Errorf("expected api secret from env, got %q", cfg.Exchange.APISecret)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Trading.FastPeriod != 7 || cfg.Trading.SlowPeriod != 40 {
		t.Errorf("expected default periods 7/40, got %d/%d", cfg.Trading.FastPeriod, cfg.Trading.SlowPeriod)
	}
	if cfg.Trading.Interval != "1h" {
		t.Errorf("expected default interval 1h, got %s", cfg.Trading.Interval)
	}
	if cfg.Trading.PollInterval != 5*time.Minute {
		t.Errorf("expected default poll interval 5m, got %s", cfg.Trading.PollInterval)
	}
	if !cfg.Metrics.Enabled {
		t.Error("expected metrics enabled by default")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := Defaults()
		cfg.Trading.Symbol = "BTCBRL"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing symbol",
			mutate:  func(c *Config) { c.Trading.Symbol = "" },
			wantErr: true,
		},
		{
			name:    "zero fast period",
			mutate:  func(c *Config) { c.Trading.FastPeriod = 0 },
			wantErr: true,
		},
		{
			name:    "fast period not below slow",
			mutate:  func(c *Config) { c.Trading.FastPeriod = 40 },
			wantErr: true,
		},
		{
			name:    "candle limit below slow period",
			mutate:  func(c *Config) { c.Trading.CandleLimit = 10 },
			wantErr: true,
		},
		{
			name:    "unknown archive type",
			mutate:  func(c *Config) { c.Storage.Archive.Type = "ftp" },
			wantErr: true,
		},
		{
			name: "s3 archive without bucket",
			mutate: func(c *Config) {
				c.Storage.Archive.Enabled = true
				c.Storage.Archive.Type = "s3"
			},
			wantErr: true,
		},
		{
			name: "webhook enabled without url",
			mutate: func(c *Config) {
				c.Observer.Webhook.Enabled = true
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
