// Copyright (C) 2024-2026, The Walletchain Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config loads the engine's tunables from spec.md §6's
// Configuration table, grounded on the teacher's cmd/simulator
// pflag+viper pattern (cmd/simulator/main/main.go): a pflag.FlagSet
// declares every key with its default, viper.BindPFlags binds it, and
// viper.AutomaticEnv lets every key also be set by its literal
// environment variable name (the spec's keys are already
// upper-snake-case, so no replacer is needed beyond viper's default
// case folding).
package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/walletchain/ledger/ledgererr"
)

// Flag/env key names, normative per spec.md §6.
const (
	KeyBatchSize      = "TX_PROCESSOR_BATCH_SIZE"
	KeyBlockTimeMS    = "TX_PROCESSOR_BLOCK_TIME_MS"
	KeyMinTxsPerBlock = "TX_PROCESSOR_MIN_TXS_PER_BLOCK"
	KeyIntervalMS     = "TX_PROCESSOR_INTERVAL_MS"
	KeyMempoolName    = "TX_MEMPOOL_NAME"
	KeyDLQName        = "TX_DLQ_NAME"
	KeyCacheTTLSec    = "CACHE_BALANCE_TTL_SECONDS"
	KeyRunProcessor   = "RUN_TX_PROCESSOR"
	KeyLogLevel       = "LOG_LEVEL"
	KeyLogFile        = "LOG_FILE"
)

// Defaults, per spec.md §6.
const (
	DefaultBatchSize      = 10
	DefaultBlockTimeMS    = 15000
	DefaultMinTxsPerBlock = 3
	DefaultIntervalMS     = 5000
	DefaultMempoolName    = "tx:mempool"
	DefaultDLQName        = "tx:dead_letter"
	DefaultCacheTTLSec    = 30
	DefaultRunProcessor   = false
	DefaultLogLevel       = "info"
)

// Config is the engine's resolved, validated configuration.
type Config struct {
	BatchSize      int
	BlockTime      time.Duration
	MinTxsPerBlock int
	Interval       time.Duration
	LeaseTTL       time.Duration
	MempoolName    string
	DLQName        string
	CacheTTL       time.Duration
	RunProcessor   bool
	LogLevel       string
	LogFile        string
}

// LeaseTTLSeconds is the per-tx lease TTL from spec §4.6 — fixed, not
// independently configurable, since the spec names it as a constant
// ("lease ... with TTL 60 s") rather than a Configuration-table key.
const LeaseTTLSeconds = 60

// BuildFlagSet declares every Configuration-table key as a pflag, with
// its spec-mandated default, so `ledgerd --help` documents the full
// surface and BuildConfig can bind the same set to viper.
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("ledgerd", pflag.ContinueOnError)
	fs.Int(KeyBatchSize, DefaultBatchSize, "max mempool ids popped per pipeline cycle")
	fs.Int(KeyBlockTimeMS, DefaultBlockTimeMS, "force-seal interval in milliseconds")
	fs.Int(KeyMinTxsPerBlock, DefaultMinTxsPerBlock, "size-based seal threshold")
	fs.Int(KeyIntervalMS, DefaultIntervalMS, "pipeline cycle cadence in milliseconds")
	fs.String(KeyMempoolName, DefaultMempoolName, "queue list key for the mempool")
	fs.String(KeyDLQName, DefaultDLQName, "queue list key for the dead-letter list")
	fs.Int(KeyCacheTTLSec, DefaultCacheTTLSec, "balance cache TTL in seconds")
	fs.Bool(KeyRunProcessor, DefaultRunProcessor, "enable the pipeline loop in this process")
	fs.String(KeyLogLevel, DefaultLogLevel, "log level (trace|debug|info|warn|error)")
	fs.String(KeyLogFile, "", "rotate logs to this file instead of the terminal")
	return fs
}

// BuildViper binds fs, parses args against it, and layers
// viper.AutomaticEnv on top so every key may also come from its
// environment variable.
func BuildViper(fs *pflag.FlagSet, args []string) (*viper.Viper, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("config: bind flags: %w", err)
	}
	v.AutomaticEnv()
	return v, nil
}

// Load reads fs/args/env into a validated Config. Any missing or
// out-of-range required value is a FatalConfigError (spec §7: "Refuse
// to start").
func Load(args []string) (*Config, error) {
	fs := BuildFlagSet()
	v, err := BuildViper(fs, args)
	if err != nil {
		return nil, ledgererr.Wrap(ledgererr.ErrFatalConfig, "parse flags: %v", err)
	}
	return BuildConfig(v)
}

// BuildConfig validates and assembles a Config from an already-bound
// viper instance. Split from Load so tests can construct a Viper
// directly (e.g. via v.Set) without going through flag parsing.
func BuildConfig(v *viper.Viper) (*Config, error) {
	batchSize := v.GetInt(KeyBatchSize)
	if batchSize <= 0 {
		return nil, ledgererr.Wrap(ledgererr.ErrFatalConfig, "%s must be positive, got %d", KeyBatchSize, batchSize)
	}
	minTxs := v.GetInt(KeyMinTxsPerBlock)
	if minTxs <= 0 {
		return nil, ledgererr.Wrap(ledgererr.ErrFatalConfig, "%s must be positive, got %d", KeyMinTxsPerBlock, minTxs)
	}
	blockTimeMS := v.GetInt(KeyBlockTimeMS)
	if blockTimeMS <= 0 {
		return nil, ledgererr.Wrap(ledgererr.ErrFatalConfig, "%s must be positive, got %d", KeyBlockTimeMS, blockTimeMS)
	}
	intervalMS := v.GetInt(KeyIntervalMS)
	if intervalMS <= 0 {
		return nil, ledgererr.Wrap(ledgererr.ErrFatalConfig, "%s must be positive, got %d", KeyIntervalMS, intervalMS)
	}
	cacheTTLSec := v.GetInt(KeyCacheTTLSec)
	if cacheTTLSec <= 0 {
		return nil, ledgererr.Wrap(ledgererr.ErrFatalConfig, "%s must be positive, got %d", KeyCacheTTLSec, cacheTTLSec)
	}
	mempoolName := v.GetString(KeyMempoolName)
	if mempoolName == "" {
		return nil, ledgererr.Wrap(ledgererr.ErrFatalConfig, "%s must not be empty", KeyMempoolName)
	}
	dlqName := v.GetString(KeyDLQName)
	if dlqName == "" {
		return nil, ledgererr.Wrap(ledgererr.ErrFatalConfig, "%s must not be empty", KeyDLQName)
	}

	return &Config{
		BatchSize:      batchSize,
		BlockTime:      time.Duration(blockTimeMS) * time.Millisecond,
		MinTxsPerBlock: minTxs,
		Interval:       time.Duration(intervalMS) * time.Millisecond,
		LeaseTTL:       LeaseTTLSeconds * time.Second,
		MempoolName:    mempoolName,
		DLQName:        dlqName,
		CacheTTL:       time.Duration(cacheTTLSec) * time.Second,
		RunProcessor:   v.GetBool(KeyRunProcessor),
		LogLevel:       v.GetString(KeyLogLevel),
		LogFile:        v.GetString(KeyLogFile),
	}, nil
}
