/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package logs

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Logs *zap.SugaredLogger

// Init builds the process logger. Production environments get JSON output,
// everything else the human readable console encoder.
func Init(name string) {
	InitWith(name, "development", "info")
}

// InitWith is Init with an explicit environment and level.
func InitWith(name string, environment string, level string) {
	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.OutputPaths = []string{"stderr"}

	logger, err := cfg.Build(
		zap.AddCallerSkip(1),
		zap.Fields(zap.String("service", name)),
	)
	if err != nil {
		logger = zap.NewNop()
	}

	Logs = logger.Sugar()
}

// Log writes a tagged message, e.g. "[ERROR][DB] ping failed". The level is
// taken from the first tag, defaulting to info.
func Log(message string) {
	if Logs == nil {
		Init("client-portal")
	}

	switch {
	case strings.HasPrefix(message, "[CRITICAL]"), strings.HasPrefix(message, "[ERROR]"), strings.HasPrefix(message, "[ERR]"):
		Logs.Error(message)
	case strings.HasPrefix(message, "[WARNING]"), strings.HasPrefix(message, "[WARN]"):
		Logs.Warn(message)
	case strings.HasPrefix(message, "[DEBUG]"):
		Logs.Debug(message)
	default:
		Logs.Info(message)
	}
}

// Sync flushes buffered entries.
func Sync() {
	if Logs != nil {
		_ = Logs.Sync()
	}
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
