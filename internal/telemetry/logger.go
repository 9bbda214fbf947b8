// Package telemetry provides the engine's logging and metrics ambient
// stack: a zap logger factory writing to console and/or file cores, and
// a prometheus metrics registry for the engine's hot-path counters.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig configures the logger factory.
type LoggerConfig struct {
	Level        string
	Dir          string
	ToConsole    bool
	ToFile       bool
}

// NewLogger builds a zap.Logger writing JSON to any combination of
// console and the file hfmm.log under Dir, tee'd together. The file is
// opened in append mode and is not rotated. With neither output
// selected, it writes to the console.
func NewLogger(cfg LoggerConfig) (*zap.Logger, error) {
	level := parseLevel(cfg.Level)
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	var cores []zapcore.Core
	if cfg.ToConsole || (!cfg.ToConsole && !cfg.ToFile) {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level))
	}
	if cfg.ToFile {
		if cfg.Dir == "" {
			cfg.Dir = "."
		}
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(cfg.Dir, "hfmm.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(f), level))
	}

	core := zapcore.NewTee(cores...)
	return zap.New(core, zap.AddCaller()), nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
