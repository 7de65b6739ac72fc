// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the zap logger used across els-search. Console
// output goes to the supplied writer (stderr in the CLI, keeping stdout for
// results); a configured file adds a rotating JSON sink.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pdiddy/els-search/pkg/types"
)

// New returns a logger for cfg writing console output to w, and a cleanup
// function that flushes and closes the file sink.
func New(cfg types.LogConfig, w io.Writer) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfgOr(cfg.Level, "info")))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing log level: %w", err)
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}

	var consoleEnc zapcore.Encoder
	switch cfgOr(cfg.Format, "console") {
	case "json":
		consoleEnc = zapcore.NewJSONEncoder(encCfg)
	case "console":
		consoleCfg := encCfg
		consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		consoleEnc = zapcore.NewConsoleEncoder(consoleCfg)
	default:
		return nil, nil, fmt.Errorf("unknown log format %q (want console or json)", cfg.Format)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, zapcore.AddSync(w), level),
	}
	cleanup := func() {}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(lj), level))
		cleanup = func() { lj.Close() }
	}

	logger := zap.New(zapcore.NewTee(cores...))
	return logger, func() {
		_ = logger.Sync()
		cleanup()
	}, nil
}

func cfgOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
