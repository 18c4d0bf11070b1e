// Copyright (C) 2024-2026, The Walletchain Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package intake implements TransferIntake (spec §4.1, component C4):
// the submission path that validates a transfer, reserves funds by
// locking the sender's account, durably records a PENDING transaction,
// and — after commit — enqueues it for execution.
package intake

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/walletchain/ledger/amount"
	"github.com/walletchain/ledger/iface"
	"github.com/walletchain/ledger/ledger"
	"github.com/walletchain/ledger/ledgererr"
	"github.com/walletchain/ledger/metrics"

	"github.com/luxfi/log"
)

// CacheInvalidator is the subset of balance.View's surface Intake needs
// to invalidate a just-debited (well, just-locked) account's cached
// snapshot after commit (spec §4.1 step 8). Defined here rather than
// imported from package balance to avoid a cyclic dependency between
// the two components.
type CacheInvalidator interface {
	Invalidate(systemAddress string)
}

// Result is the outcome of a successful submission.
type Result struct {
	TxID       string
	SystemHash string
	Status     ledger.TxStatus
}

// Intake is the TransferIntake component.
type Intake struct {
	Store       iface.AccountStore
	Queue       iface.Queue
	Clock       iface.Clock
	Balances    CacheInvalidator
	Metrics     metrics.Recorder
	MempoolName string
}

// New constructs an Intake. mempoolName is the Queue list key new
// transaction ids are pushed onto (TX_MEMPOOL_NAME, default
// "tx:mempool").
func New(store iface.AccountStore, queue iface.Queue, clk iface.Clock, balances CacheInvalidator, rec metrics.Recorder, mempoolName string) *Intake {
	return &Intake{Store: store, Queue: queue, Clock: clk, Balances: balances, Metrics: rec, MempoolName: mempoolName}
}

// SubmitTransfer implements spec §4.1. currency is case-insensitive on
// input and normalized to uppercase before comparison and storage.
func (in *Intake) SubmitTransfer(ctx context.Context, userID, fromAddr, toAddr, amountStr, currency, description string) (Result, error) {
	if fromAddr == toAddr {
		return Result{}, ledgererr.Wrap(ledgererr.ErrInput, "self-transfer: %s", fromAddr)
	}
	amt, err := amount.Parse(amountStr)
	if err != nil || amt.IsZero() {
		return Result{}, ledgererr.Wrap(ledgererr.ErrInput, "invalid amount %q", amountStr)
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))

	storeTx, err := in.Store.BeginTx(ctx)
	if err != nil {
		return Result{}, ledgererr.Wrap(ledgererr.ErrTransientStore, "begin tx: %v", err)
	}
	result, commitErr := in.submitWithinTx(ctx, storeTx, userID, fromAddr, toAddr, amt, currency, description)
	if commitErr != nil {
		_ = storeTx.Rollback(ctx)
		return Result{}, commitErr
	}
	if err := storeTx.Commit(ctx); err != nil {
		return Result{}, ledgererr.Wrap(ledgererr.ErrTransientStore, "commit: %v", err)
	}

	// Steps after commit (spec §4.1 step 8): a visible PENDING row is
	// now a guarantee that an enqueued id is valid, so enqueue and
	// invalidate strictly after the commit above, never before.
	in.afterCommit(ctx, result, fromAddr)
	return result, nil
}

func (in *Intake) submitWithinTx(ctx context.Context, storeTx iface.Tx, userID, fromAddr, toAddr string, amt amount.Amount, currency, description string) (Result, error) {
	sender, err := storeTx.AccountByAddressForUser(ctx, fromAddr, userID, iface.PessimisticWrite)
	if err != nil {
		if errors.Is(err, iface.ErrNotFound) {
			return Result{}, ledgererr.Wrap(ledgererr.ErrAccess, "sender %s not owned by user", fromAddr)
		}
		return Result{}, ledgererr.Wrap(ledgererr.ErrTransientStore, "load sender: %v", err)
	}
	if sender.Currency != currency {
		return Result{}, ledgererr.Wrap(ledgererr.ErrInput, "sender currency %s != %s", sender.Currency, currency)
	}

	recipient, err := storeTx.AccountByAddress(ctx, toAddr, iface.NoLock)
	if err != nil {
		if errors.Is(err, iface.ErrNotFound) {
			return Result{}, ledgererr.Wrap(ledgererr.ErrInput, "recipient %s does not exist", toAddr)
		}
		return Result{}, ledgererr.Wrap(ledgererr.ErrTransientStore, "load recipient: %v", err)
	}
	if recipient.Currency != currency {
		return Result{}, ledgererr.Wrap(ledgererr.ErrInput, "recipient currency %s != %s", recipient.Currency, currency)
	}

	available, err := sender.Available()
	if err != nil {
		return Result{}, ledgererr.Wrap(ledgererr.ErrInvariantViolation, "sender %s: %v", fromAddr, err)
	}
	if available.LessThan(amt) {
		return Result{}, ledgererr.Wrap(ledgererr.ErrInsufficientFunds, "available %s < requested %s", available, amt)
	}

	newLocked, err := amount.Add(sender.Locked, amt)
	if err != nil {
		return Result{}, ledgererr.Wrap(ledgererr.ErrInvariantViolation, "%v", err)
	}
	prevNonce := sender.Nonce
	sender.Locked = newLocked
	sender.Nonce = prevNonce + 1
	if err := storeTx.SaveAccount(ctx, sender); err != nil {
		return Result{}, ledgererr.Wrap(ledgererr.ErrTransientStore, "save sender: %v", err)
	}

	systemHash, err := randomToken("txn_")
	if err != nil {
		return Result{}, ledgererr.Wrap(ledgererr.ErrTransientStore, "generate systemHash: %v", err)
	}

	txn := &ledger.Transaction{
		ID:            uuid.NewString(),
		SystemHash:    systemHash,
		FromAccountID: sender.ID,
		ToAccountID:   recipient.ID,
		Amount:        amt,
		Currency:      currency,
		Fee:           amount.Zero,
		Status:        ledger.TxPending,
		Type:          ledger.TxTypeTransfer,
		AccountNonce:  prevNonce,
		Description:   description,
		CreatedAt:     in.Clock.Now(),
	}
	if err := storeTx.CreateTransaction(ctx, txn); err != nil {
		return Result{}, ledgererr.Wrap(ledgererr.ErrTransientStore, "create transaction: %v", err)
	}

	return Result{TxID: txn.ID, SystemHash: txn.SystemHash, Status: ledger.TxPending}, nil
}

func (in *Intake) afterCommit(ctx context.Context, result Result, fromAddr string) {
	if _, err := in.Queue.LPush(ctx, in.MempoolName, result.TxID); err != nil {
		log.Error("intake: enqueue failed, tx is orphaned pending a janitor sweep",
			"txID", result.TxID, "systemHash", result.SystemHash, "err", err)
		if in.Metrics != nil {
			in.Metrics.IncEnqueueFailure()
		}
	}
	if in.Balances != nil {
		in.Balances.Invalidate(fromAddr)
	}
	if in.Metrics != nil {
		in.Metrics.IncTransfersSubmitted()
	}
}

func randomToken(prefix string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return prefix + hex.EncodeToString(buf), nil
}
