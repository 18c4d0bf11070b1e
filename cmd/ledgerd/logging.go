// Copyright (C) 2024-2026, The Walletchain Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"log/slog"
	"os"
	"strings"

	luxlog "github.com/luxfi/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/walletchain/ledger/config"
)

// setupLogging wires the root logger per spec §6's LOG_LEVEL/LOG_FILE
// keys: a rotating file sink via lumberjack when LogFile is set,
// falling back to the teacher's terminal handler otherwise (spec
// SPEC_FULL §6, grounded on cmd/evm-node/main.go's
// log.NewTerminalHandlerWithLevel usage).
func setupLogging(cfg *config.Config) {
	level := parseLevel(cfg.LogLevel)

	var handler slog.Handler
	if cfg.LogFile != "" {
		sink := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		handler = slog.NewJSONHandler(sink, &slog.HandlerOptions{Level: level})
	} else {
		handler = luxlog.NewTerminalHandlerWithLevel(os.Stderr, level, true)
	}
	luxlog.SetDefault(luxlog.NewLogger(handler))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "crit", "critical":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
