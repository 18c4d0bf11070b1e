// Copyright (C) 2024-2026, The Walletchain Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package pipeline

import (
	"context"
	"time"

	"github.com/luxfi/log"
	"github.com/walletchain/ledger/iface"
	"github.com/walletchain/ledger/ledger"
)

// Janitor implements the orphan-enqueue sweep and the operator-facing
// stuck-transaction query (spec §7): the post-commit enqueue in
// TransferIntake is a separate step from the commit itself, so a crash
// between the two can leave a PENDING row that was never pushed to the
// mempool. The janitor re-enqueues it.
type Janitor struct {
	Store       iface.AccountStore
	Queue       iface.Queue
	Clock       iface.Clock
	MempoolName string
}

// NewJanitor constructs a Janitor.
func NewJanitor(store iface.AccountStore, queue iface.Queue, clk iface.Clock, mempoolName string) *Janitor {
	return &Janitor{Store: store, Queue: queue, Clock: clk, MempoolName: mempoolName}
}

// Sweep re-enqueues every PENDING transaction created before
// olderThan ago, returning how many it pushed. Safe to call
// repeatedly: LPush-ing an id already in the mempool just means the
// pipeline pops it twice, and ExecuteSingle's idempotency absorbs that.
func (j *Janitor) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := j.Clock.Now().Add(-olderThan)
	storeTx, err := j.Store.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	pending, err := storeTx.PendingOlderThan(ctx, cutoff)
	if err != nil {
		_ = storeTx.Rollback(ctx)
		return 0, err
	}
	if err := storeTx.Rollback(ctx); err != nil {
		return 0, err
	}

	pushed := 0
	for _, txn := range pending {
		if _, err := j.Queue.LPush(ctx, j.MempoolName, txn.ID); err != nil {
			log.Error("janitor: re-enqueue failed", "txID", txn.ID, "err", err)
			continue
		}
		pushed++
	}
	return pushed, nil
}

// StuckTransactions is a pure read query for PROCESSING rows with no
// block assignment older than olderThan — surfaced by the `ledgerd
// stuck-txs` operator command (spec §7), never mutated by the janitor
// itself.
func (j *Janitor) StuckTransactions(ctx context.Context, olderThan time.Duration) ([]*ledger.Transaction, error) {
	cutoff := j.Clock.Now().Add(-olderThan)
	storeTx, err := j.Store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	stuck, err := storeTx.StuckProcessing(ctx, cutoff)
	if err != nil {
		_ = storeTx.Rollback(ctx)
		return nil, err
	}
	if err := storeTx.Rollback(ctx); err != nil {
		return nil, err
	}
	return stuck, nil
}
