// Copyright (C) 2024-2026, The Walletchain Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/walletchain/ledger/balance"
	"github.com/walletchain/ledger/clock"
	"github.com/walletchain/ledger/config"
	"github.com/walletchain/ledger/executor"
	"github.com/walletchain/ledger/iface"
	"github.com/walletchain/ledger/intake"
	"github.com/walletchain/ledger/memqueue"
	"github.com/walletchain/ledger/memstore"
	"github.com/walletchain/ledger/metrics"
	"github.com/walletchain/ledger/pipeline"
)

// engine bundles every wired collaborator and component a CLI command
// or the daemon action needs. There is no persistent process-wide
// singleton beyond this struct (spec §9: "no background singletons" —
// one PipelineLoop per engine, gated by config.RunProcessor).
type engine struct {
	cfg     *config.Config
	store   *memstore.Store
	queue   *memqueue.Queue
	clk     iface.Clock
	metrics metrics.Recorder
	intake  *intake.Intake
	balance *balance.View
	loop    *pipeline.Loop
	janitor *pipeline.Janitor
}

// newEngine wires the in-memory reference collaborators — the
// production AccountStore/Queue are external collaborators per spec
// §1 and aren't part of this module; memstore/memqueue are the
// deterministic stand-ins the spec's design notes (§9) call for.
func newEngine(cfg *config.Config) (*engine, error) {
	store := memstore.New()
	queue := memqueue.New(nil)
	clk := clock.NewReal()
	rec := metrics.NewProm(prometheus.NewRegistry())

	balances, err := balance.New(store, clk, rec, 4096, cfg.CacheTTL)
	if err != nil {
		return nil, err
	}

	in := intake.New(store, queue, clk, balances, rec, cfg.MempoolName)
	exec := executor.New(store, queue, rec, cfg.DLQName)

	loop := pipeline.New(store, queue, clk, exec, balances, rec, pipeline.Config{
		BatchSize:      cfg.BatchSize,
		BlockTime:      cfg.BlockTime,
		MinTxsPerBlock: cfg.MinTxsPerBlock,
		Interval:       cfg.Interval,
		MempoolName:    cfg.MempoolName,
		DLQName:        cfg.DLQName,
		LeaseTTL:       cfg.LeaseTTL,
	})
	janitor := pipeline.NewJanitor(store, queue, clk, cfg.MempoolName)

	return &engine{
		cfg: cfg, store: store, queue: queue, clk: clk, metrics: rec,
		intake: in, balance: balances, loop: loop, janitor: janitor,
	}, nil
}
