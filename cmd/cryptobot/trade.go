package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rmarques/cryptobot/internal/config"
	"github.com/rmarques/cryptobot/internal/exchange/binance"
	"github.com/rmarques/cryptobot/internal/logger"
	"github.com/rmarques/cryptobot/internal/metrics"
	"github.com/rmarques/cryptobot/internal/observer"
	"github.com/rmarques/cryptobot/internal/observer/webhook"
	"github.com/rmarques/cryptobot/internal/session"
	"github.com/rmarques/cryptobot/internal/storage"
	"github.com/rmarques/cryptobot/internal/storage/archive"
	"github.com/rmarques/cryptobot/internal/strategy/ma_crossover"
)

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Start a live trading session",
	Long:  "Start the polling trading loop for the configured symbol. Stops cleanly on SIGINT/SIGTERM.",
	RunE:  runTrade,
}

func init() {
	rootCmd.AddCommand(tradeCmd)
}

func runTrade(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := buildLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	if cfg.Exchange.APIKey == "" || cfg.Exchange.APISecret == "" {
		return fmt.Errorf("exchange credentials missing: set %s and %s", config.EnvAPIKey, config.EnvAPISecret)
	}

	var exch *binance.Client
	if cfg.Exchange.BaseURL != "" {
		exch = binance.NewWithBaseURL(cfg.Exchange.APIKey, cfg.Exchange.APISecret, cfg.Exchange.BaseURL)
	} else {
		exch = binance.New(cfg.Exchange.APIKey, cfg.Exchange.APISecret)
	}

	gen, err := ma_crossover.New(cfg.Trading.FastPeriod, cfg.Trading.SlowPeriod)
	if err != nil {
		return fmt.Errorf("creating strategy: %w", err)
	}

	obs := buildObserver(cfg)
	arch, err := buildArchiver(cfg)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
		go serveMetrics(cfg, reg, log)
	}

	engine := session.New(session.Config{
		Symbol:        cfg.Trading.Symbol,
		Interval:      cfg.Trading.Interval,
		CandleLimit:   cfg.Trading.CandleLimit,
		PollInterval:  cfg.Trading.PollInterval,
		ErrorCooldown: cfg.Trading.ErrorCooldown,
	}, exch, storage.NewMemoryStore(), gen, log, obs, reg, arch)

	id, err := engine.Start(context.Background(), cfg.Trading.InvestedValue, cfg.Trading.InvestedQty)
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	log.Info("trading",
		zap.String("session_id", id),
		zap.String("symbol", cfg.Trading.Symbol),
		zap.String("strategy", gen.Name()),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down trading session")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	return engine.Stop(ctx)
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	development := debug || cfg.Logging.Development
	if cfg.Logging.File != "" {
		return logger.NewWithFile(development, cfg.Logging.File)
	}
	return logger.New(development)
}

func buildObserver(cfg *config.Config) observer.Observer {
	if cfg.Observer.Webhook.Enabled {
		return webhook.New(cfg.Observer.Webhook.URL, cfg.Observer.Webhook.Headers)
	}
	return observer.Nop{}
}

func buildArchiver(cfg *config.Config) (*archive.Archiver, error) {
	if !cfg.Storage.Archive.Enabled {
		return nil, nil
	}
	switch cfg.Storage.Archive.Type {
	case "s3":
		st, err := archive.NewS3(archive.S3Config{
			Bucket:    cfg.Storage.Archive.S3.Bucket,
			Endpoint:  cfg.Storage.Archive.S3.Endpoint,
			Region:    cfg.Storage.Archive.S3.Region,
			AccessKey: cfg.Storage.Archive.S3.AccessKey,
			SecretKey: cfg.Storage.Archive.S3.SecretKey,
			Prefix:    cfg.Storage.Archive.S3.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return archive.NewArchiver(st), nil
	default:
		st, err := archive.NewLocalFS(cfg.Storage.Archive.Path)
		if err != nil {
			return nil, err
		}
		return archive.NewArchiver(st), nil
	}
}

func serveMetrics(cfg *config.Config, reg *metrics.Registry, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	log.Info("metrics listening", zap.String("addr", cfg.Metrics.Addr), zap.String("path", cfg.Metrics.Path))
	if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
		log.Error("metrics server error", zap.Error(err))
	}
}
