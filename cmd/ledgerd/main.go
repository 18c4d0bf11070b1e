// Copyright (C) 2024-2026, The Walletchain Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// ledgerd is the engine's daemon binary: it wires the collaborators
// (memstore, memqueue, clock), starts the PipelineLoop if
// RUN_TX_PROCESSOR is set, and otherwise only exposes the operator CLI
// surface spec §7 asks for (stuck-txs, dead-letter, seed). Per the
// spec's Non-goals this binary never opens an HTTP port; it is meant
// to be linked into a host process or driven by its CLI for local
// operation and tests, grounded on the teacher's cmd/evm-node/main.go
// urfave/cli.App shape.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/walletchain/ledger/config"
)

const clientIdentifier = "ledgerd"

func main() {
	app := &cli.App{
		Name:    clientIdentifier,
		Usage:   "walletchain ledger engine: intake, pipeline, and recovery operator commands",
		Version: "0.1.0",
		Flags:   cliFlags(),
		Before: func(cctx *cli.Context) error {
			cfg, err := configFromCLI(cctx)
			if err != nil {
				return err
			}
			setupLogging(cfg)
			return nil
		},
		Action: runDaemon,
		Commands: []*cli.Command{
			stuckTxsCommand,
			deadLetterCommand,
			seedCommand,
			transferCommand,
			balanceCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cliFlags mirrors config.BuildFlagSet's keys as urfave/cli flags so
// `ledgerd --help` documents the full Configuration-table surface
// regardless of entry point; config.Load (pflag+viper) remains the
// single source of truth for validation and defaults.
func cliFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: config.KeyBatchSize, Value: config.DefaultBatchSize, EnvVars: []string{config.KeyBatchSize}},
		&cli.IntFlag{Name: config.KeyBlockTimeMS, Value: config.DefaultBlockTimeMS, EnvVars: []string{config.KeyBlockTimeMS}},
		&cli.IntFlag{Name: config.KeyMinTxsPerBlock, Value: config.DefaultMinTxsPerBlock, EnvVars: []string{config.KeyMinTxsPerBlock}},
		&cli.IntFlag{Name: config.KeyIntervalMS, Value: config.DefaultIntervalMS, EnvVars: []string{config.KeyIntervalMS}},
		&cli.StringFlag{Name: config.KeyMempoolName, Value: config.DefaultMempoolName, EnvVars: []string{config.KeyMempoolName}},
		&cli.StringFlag{Name: config.KeyDLQName, Value: config.DefaultDLQName, EnvVars: []string{config.KeyDLQName}},
		&cli.IntFlag{Name: config.KeyCacheTTLSec, Value: config.DefaultCacheTTLSec, EnvVars: []string{config.KeyCacheTTLSec}},
		&cli.BoolFlag{Name: config.KeyRunProcessor, Value: config.DefaultRunProcessor, EnvVars: []string{config.KeyRunProcessor}},
		&cli.StringFlag{Name: config.KeyLogLevel, Value: config.DefaultLogLevel, EnvVars: []string{config.KeyLogLevel}},
		&cli.StringFlag{Name: config.KeyLogFile, EnvVars: []string{config.KeyLogFile}},
	}
}

// configFromCLI builds a config.Config from the already-parsed
// urfave/cli flags by round-tripping them through config.BuildConfig's
// viper-based validation, so both entry points share one validation
// path.
func configFromCLI(cctx *cli.Context) (*config.Config, error) {
	fs := config.BuildFlagSet()
	v, err := config.BuildViper(fs, []string{})
	if err != nil {
		return nil, err
	}
	v.Set(config.KeyBatchSize, cctx.Int(config.KeyBatchSize))
	v.Set(config.KeyBlockTimeMS, cctx.Int(config.KeyBlockTimeMS))
	v.Set(config.KeyMinTxsPerBlock, cctx.Int(config.KeyMinTxsPerBlock))
	v.Set(config.KeyIntervalMS, cctx.Int(config.KeyIntervalMS))
	v.Set(config.KeyMempoolName, cctx.String(config.KeyMempoolName))
	v.Set(config.KeyDLQName, cctx.String(config.KeyDLQName))
	v.Set(config.KeyCacheTTLSec, cctx.Int(config.KeyCacheTTLSec))
	v.Set(config.KeyRunProcessor, cctx.Bool(config.KeyRunProcessor))
	v.Set(config.KeyLogLevel, cctx.String(config.KeyLogLevel))
	v.Set(config.KeyLogFile, cctx.String(config.KeyLogFile))
	return config.BuildConfig(v)
}
