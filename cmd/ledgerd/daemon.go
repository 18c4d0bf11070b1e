// Copyright (C) 2024-2026, The Walletchain Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/luxfi/log"
	"github.com/urfave/cli/v2"
)

// runDaemon is the app's default action: it wires the engine and, if
// RUN_TX_PROCESSOR is set, starts the PipelineLoop and blocks until a
// termination signal arrives (spec §6: RUN_TX_PROCESSOR "enable/disable
// loop in this instance"). With the flag unset, the process has
// nothing to run on its own — it exists so a host process can import
// this package's engine type directly instead of shelling out, per
// SPEC_FULL §1's "linked into a host process" process shape.
func runDaemon(cctx *cli.Context) error {
	cfg, err := configFromCLI(cctx)
	if err != nil {
		return err
	}
	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}

	if !cfg.RunProcessor {
		log.Info("ledgerd: RUN_TX_PROCESSOR unset, exiting without a pipeline loop")
		return nil
	}

	ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("ledgerd: starting pipeline loop",
		"batchSize", cfg.BatchSize, "interval", cfg.Interval, "blockTime", cfg.BlockTime,
		"minTxsPerBlock", cfg.MinTxsPerBlock)
	eng.loop.Start(ctx)
	<-ctx.Done()
	log.Info("ledgerd: shutting down")
	eng.loop.Stop()
	return nil
}
