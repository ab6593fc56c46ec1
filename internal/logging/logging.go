// Package logging builds the structured zap.Logger used throughout
// core/ledger: one JSON core writing to a size/age-rotated file via
// lumberjack, plus an optional human-readable console core for local
// development.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New. A zero Options yields a console-only logger
// at info level, suitable for tests.
type Options struct {
	// FilePath, if set, rotates JSON-encoded logs through lumberjack.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Console    bool
	Level      zapcore.Level
}

// New builds a logger from opts. Callers own the returned logger's
// lifetime and should call Sync before process exit.
func New(opts Options) *zap.Logger {
	level := zap.NewAtomicLevelAt(opts.Level)
	var cores []zapcore.Core

	if opts.FilePath != "" {
		writer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    nonZero(opts.MaxSizeMB, 100),
			MaxBackups: nonZero(opts.MaxBackups, 5),
			MaxAge:     nonZero(opts.MaxAgeDays, 28),
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), writer, level))
	}
	if opts.Console || len(cores) == 0 {
		encoderCfg := zap.NewDevelopmentEncoderConfig()
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(os.Stderr), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

func nonZero(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
