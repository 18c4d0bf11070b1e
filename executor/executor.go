// Copyright (C) 2024-2026, The Walletchain Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package executor implements TransactionExecutor (spec §4.2,
// component C5): the lease-guarded single-transaction execution that
// flips PENDING to PROCESSING and applies the debit/credit under the
// locked/balance invariants. Callers must already hold the per-tx
// lease (spec §4.6) before calling ExecuteSingle; the executor itself
// never touches leases.
package executor

import (
	"context"
	"errors"

	"github.com/davecgh/go-spew/spew"
	"github.com/luxfi/log"
	"github.com/walletchain/ledger/amount"
	"github.com/walletchain/ledger/iface"
	"github.com/walletchain/ledger/ledger"
	"github.com/walletchain/ledger/ledgererr"
	"github.com/walletchain/ledger/metrics"
)

// Executor is the TransactionExecutor component.
type Executor struct {
	Store   iface.AccountStore
	Queue   iface.Queue
	Metrics metrics.Recorder
	DLQName string
}

// New constructs an Executor. dlqName is the Queue list key failed ids
// are pushed to (TX_DLQ_NAME, default "tx:dead_letter").
func New(store iface.AccountStore, queue iface.Queue, rec metrics.Recorder, dlqName string) *Executor {
	return &Executor{Store: store, Queue: queue, Metrics: rec, DLQName: dlqName}
}

// ExecuteSingle implements spec §4.2. A nil, nil return means "nothing
// to do this call" (the row was missing, already terminal, or was just
// marked FAILED, in which case the id is also pushed to the dead-letter
// list after commit) — not an error. A non-nil Transaction is returned for
// both a fresh PENDING->PROCESSING flip and a row this or an earlier
// cycle already left PROCESSING, per spec §4.2 step 2's "idempotent
// executor" contract (spec §8 property 7).
func (e *Executor) ExecuteSingle(ctx context.Context, txID string) (*ledger.Transaction, error) {
	storeTx, err := e.Store.BeginTx(ctx)
	if err != nil {
		return nil, ledgererr.Wrap(ledgererr.ErrTransientStore, "begin tx: %v", err)
	}

	result, execErr := e.executeWithinTx(ctx, storeTx, txID)
	if execErr != nil {
		_ = storeTx.Rollback(ctx)
		e.handleStoreException(ctx, txID, execErr)
		return nil, execErr
	}
	if err := storeTx.Commit(ctx); err != nil {
		wrapped := ledgererr.Wrap(ledgererr.ErrTransientStore, "commit: %v", err)
		e.handleStoreException(ctx, txID, wrapped)
		return nil, wrapped
	}
	if result.executed {
		if e.Metrics != nil {
			e.Metrics.IncTxExecuted()
		}
	}
	if result.failed {
		if e.Metrics != nil {
			e.Metrics.IncTxFailed()
			e.Metrics.IncDeadLetter()
		}
		if e.Queue != nil {
			if _, err := e.Queue.LPush(ctx, e.DLQName, txID); err != nil {
				log.Error("executor: dead-letter push failed", "txID", txID, "err", err)
			}
		}
	}
	return result.txn, nil
}

type execResult struct {
	txn      *ledger.Transaction
	executed bool
	failed   bool
}

func (e *Executor) executeWithinTx(ctx context.Context, storeTx iface.Tx, txID string) (execResult, error) {
	txn, err := storeTx.TransactionByID(ctx, txID)
	if errors.Is(err, iface.ErrNotFound) {
		return execResult{}, nil
	}
	if err != nil {
		return execResult{}, ledgererr.Wrap(ledgererr.ErrTransientStore, "load transaction %s: %v", txID, err)
	}

	switch txn.Status {
	case ledger.TxProcessing:
		return execResult{txn: txn}, nil
	case ledger.TxPending:
		// fall through to execution below
	default:
		return execResult{}, nil
	}

	txn.Status = ledger.TxProcessing
	if err := storeTx.SaveTransaction(ctx, txn); err != nil {
		return execResult{}, ledgererr.Wrap(ledgererr.ErrTransientStore, "flip to PROCESSING: %v", err)
	}

	sender, err := storeTx.AccountByID(ctx, txn.FromAccountID, iface.PessimisticWrite)
	if err != nil {
		return execResult{}, ledgererr.Wrap(ledgererr.ErrTransientStore, "load sender: %v", err)
	}
	recipient, err := storeTx.AccountByID(ctx, txn.ToAccountID, iface.PessimisticWrite)
	if err != nil {
		return execResult{}, ledgererr.Wrap(ledgererr.ErrTransientStore, "load recipient: %v", err)
	}

	if sender.Locked.LessThan(txn.Amount) {
		log.Error("invariant violation: sender locked below transaction amount", "txID", txID)
		log.Debug("invariant violation detail", "tx", spew.Sdump(txn), "sender", spew.Sdump(sender), "recipient", spew.Sdump(recipient))
		txn.Status = ledger.TxFailed
		if err := storeTx.SaveTransaction(ctx, txn); err != nil {
			return execResult{}, ledgererr.Wrap(ledgererr.ErrTransientStore, "mark failed: %v", err)
		}
		return execResult{failed: true}, nil
	}

	if sender.Balance.LessThan(txn.Amount) {
		log.Error("invariant violation: sender balance below transaction amount", "txID", txID)
		log.Debug("invariant violation detail", "tx", spew.Sdump(txn), "sender", spew.Sdump(sender), "recipient", spew.Sdump(recipient))
		reverted, err := amount.Sub(sender.Locked, txn.Amount)
		if err != nil {
			return execResult{}, ledgererr.Wrap(ledgererr.ErrInvariantViolation, "revert lock: %v", err)
		}
		sender.Locked = reverted
		if err := storeTx.SaveAccount(ctx, sender); err != nil {
			return execResult{}, ledgererr.Wrap(ledgererr.ErrTransientStore, "revert lock: %v", err)
		}
		txn.Status = ledger.TxFailed
		if err := storeTx.SaveTransaction(ctx, txn); err != nil {
			return execResult{}, ledgererr.Wrap(ledgererr.ErrTransientStore, "mark failed: %v", err)
		}
		return execResult{failed: true}, nil
	}

	newSenderBalance, err := amount.Sub(sender.Balance, txn.Amount)
	if err != nil {
		return execResult{}, ledgererr.Wrap(ledgererr.ErrInvariantViolation, "debit sender: %v", err)
	}
	newSenderLocked, err := amount.Sub(sender.Locked, txn.Amount)
	if err != nil {
		return execResult{}, ledgererr.Wrap(ledgererr.ErrInvariantViolation, "release sender lock: %v", err)
	}
	newRecipientBalance, err := amount.Add(recipient.Balance, txn.Amount)
	if err != nil {
		return execResult{}, ledgererr.Wrap(ledgererr.ErrInvariantViolation, "credit recipient: %v", err)
	}

	sender.Balance = newSenderBalance
	sender.Locked = newSenderLocked
	recipient.Balance = newRecipientBalance

	if err := storeTx.SaveAccount(ctx, sender); err != nil {
		return execResult{}, ledgererr.Wrap(ledgererr.ErrTransientStore, "save sender: %v", err)
	}
	if err := storeTx.SaveAccount(ctx, recipient); err != nil {
		return execResult{}, ledgererr.Wrap(ledgererr.ErrTransientStore, "save recipient: %v", err)
	}

	return execResult{txn: txn, executed: true}, nil
}

// handleStoreException implements spec §4.2's "On any store-level
// exception" clause: in a separate store transaction, mark the tx
// FAILED and attempt a best-effort lock reversion on the sender, then
// push the id to the dead-letter list.
func (e *Executor) handleStoreException(ctx context.Context, txID string, cause error) {
	log.Error("executor: store exception, moving to dead letter", "txID", txID, "err", cause)
	if e.Metrics != nil {
		e.Metrics.IncTxFailed()
		e.Metrics.IncDeadLetter()
	}

	storeTx, err := e.Store.BeginTx(ctx)
	if err != nil {
		log.Error("executor: could not open recovery tx", "txID", txID, "err", err)
	} else {
		if txn, lerr := storeTx.TransactionByID(ctx, txID); lerr == nil && !ledger.IsTerminal(txn.Status) {
			if sender, serr := storeTx.AccountByID(ctx, txn.FromAccountID, iface.PessimisticWrite); serr == nil {
				if reverted, aerr := amount.Sub(sender.Locked, txn.Amount); aerr == nil {
					sender.Locked = reverted
					_ = storeTx.SaveAccount(ctx, sender)
				}
			}
			txn.Status = ledger.TxFailed
			_ = storeTx.SaveTransaction(ctx, txn)
		}
		if err := storeTx.Commit(ctx); err != nil {
			log.Error("executor: recovery tx commit failed", "txID", txID, "err", err)
			_ = storeTx.Rollback(ctx)
		}
	}

	if e.Queue != nil {
		if _, err := e.Queue.LPush(ctx, e.DLQName, txID); err != nil {
			log.Error("executor: dead-letter push failed", "txID", txID, "err", err)
		}
	}
}
