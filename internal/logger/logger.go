package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a new zap logger. In development mode output is colorized
// console encoding, otherwise production JSON.
func New(development bool) (*zap.Logger, error) {
	return config(development).Build()
}

// NewWithFile creates a logger that also appends to the given log file,
// mirroring console output. The bot keeps a durable trading log alongside
// whatever the observer layer displays.
func NewWithFile(development bool, path string) (*zap.Logger, error) {
	cfg := config(development)
	cfg.OutputPaths = append(cfg.OutputPaths, path)
	cfg.ErrorOutputPaths = append(cfg.ErrorOutputPaths, path)
	return cfg.Build()
}

// Must creates a logger or panics
func Must(development bool) *zap.Logger {
	log, err := New(development)
	if err != nil {
		panic(err)
	}
	return log
}

func config(development bool) zap.Config {
	if development {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg
	}
	return zap.NewProductionConfig()
}
