// Copyright (C) 2024-2026, The Walletchain Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package iface defines the three collaborator contracts the core
// consumes (spec §6): AccountStore, Queue, and Clock. Per the spec's
// scope (§1), the concrete Postgres-backed store and Redis-backed
// queue are external collaborators and live outside this module; only
// the seams and in-memory reference fakes (memstore, memqueue) live
// here, following the teacher's wrapper-over-collaborator shape
// (plugin/evm/database_wrapper.go).
package iface

import (
	"context"
	"errors"
	"time"

	"github.com/walletchain/ledger/ledger"
)

// Store-level error kinds, distinguishable per spec §6 ("Constraint
// violations ... must propagate as a distinguishable error kind").
var (
	ErrNotFound            = errors.New("store: not found")
	ErrConstraintViolation = errors.New("store: constraint violation")
)

// LockMode selects whether a read takes a pessimistic write lock.
type LockMode int

const (
	NoLock LockMode = iota
	PessimisticWrite
)

// AccountStore is a transactional KV store over accounts, transactions,
// and blocks with row-level pessimistic locking (spec §6).
type AccountStore interface {
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx is a single AccountStore transaction. Every method must be called
// between BeginTx and Commit/Rollback; callers always end a Tx with
// exactly one of Commit or Rollback.
type Tx interface {
	// AccountByAddress loads an account by its external handle. When
	// lock is PessimisticWrite, the row is locked for the duration of
	// the transaction — used by TransferIntake to serialize concurrent
	// submissions from the same sender (spec §4.1 step 1, §5).
	AccountByAddress(ctx context.Context, systemAddress string, lock LockMode) (*ledger.Account, error)

	// AccountByAddressForUser is AccountByAddress additionally filtered
	// to accounts owned by userID; returns ErrNotFound if the address
	// exists but belongs to a different user (spec §4.1 step 1).
	AccountByAddressForUser(ctx context.Context, systemAddress, userID string, lock LockMode) (*ledger.Account, error)

	// AccountByID loads an account by its row id, optionally taking a
	// pessimistic write lock — the executor locks both endpoints
	// before debiting/crediting so concurrent executions never race on
	// the same account (spec §5: "each execution ... takes its own
	// store transaction that re-reads and conditionally updates
	// endpoint rows").
	AccountByID(ctx context.Context, id string, lock LockMode) (*ledger.Account, error)

	// SaveAccount persists a full account row (balance/locked/nonce
	// mutations go through this).
	SaveAccount(ctx context.Context, account *ledger.Account) error

	// CreateTransaction inserts a new Transaction row. Returns
	// ErrConstraintViolation if SystemHash collides.
	CreateTransaction(ctx context.Context, tx *ledger.Transaction) error

	// TransactionByID loads a Transaction row, with its endpoints
	// resolvable via AccountByID. Returns ErrNotFound if absent.
	TransactionByID(ctx context.Context, id string) (*ledger.Transaction, error)

	// SaveTransaction persists a full Transaction row (status/blockID
	// mutations go through this).
	SaveTransaction(ctx context.Context, tx *ledger.Transaction) error

	// ConfirmTransactions bulk-flips the given transaction ids from
	// PROCESSING to CONFIRMED, assigning blockID/blockHeight to each,
	// as one atomic step of the block-sealing transaction (spec §4.4
	// step 5).
	ConfirmTransactions(ctx context.Context, ids []string, blockID string, blockHeight uint64) error

	// PendingOlderThan returns PENDING transactions created before
	// cutoff, for the janitor's orphan-enqueue sweep (spec §7).
	PendingOlderThan(ctx context.Context, cutoff time.Time) ([]*ledger.Transaction, error)

	// StuckProcessing returns PROCESSING transactions with no block
	// assignment created before cutoff, for the operator-facing stuck
	// transaction query (spec §7) — a pure read, never a mutation.
	StuckProcessing(ctx context.Context, cutoff time.Time) ([]*ledger.Transaction, error)

	// LatestBlock returns the highest-height block, or nil if the
	// chain is empty (spec §4.3 step 1).
	LatestBlock(ctx context.Context) (*ledger.Block, error)

	// BlockByHeight returns the block at the given height, or
	// ErrNotFound.
	BlockByHeight(ctx context.Context, height uint64) (*ledger.Block, error)

	// CreateBlock inserts a new Block row. Returns
	// ErrConstraintViolation if height or blockHash collides — the
	// mechanism spec §5 names for rejecting a concurrent sealer's
	// losing commit.
	CreateBlock(ctx context.Context, block *ledger.Block) error

	// Commit finalizes the transaction.
	Commit(ctx context.Context) error

	// Rollback aborts the transaction. Safe to call after Commit has
	// already succeeded only if the store documents it as a no-op;
	// callers in this repo call Rollback after Commit only when that
	// Commit returned an error.
	Rollback(ctx context.Context) error
}

// Queue is a durable FIFO list with atomic push/pop and per-key leases
// (spec §6). The mempool and dead-letter lists are both ordinary lists
// addressed by name (TX_MEMPOOL_NAME, TX_DLQ_NAME).
type Queue interface {
	// LPush pushes value onto the head of list, returning the new
	// length. Used by TransferIntake to enqueue newly-submitted ids
	// (spec §4.1 step 8), by the janitor to re-enqueue orphaned PENDING
	// ids (spec §7), and to requeue ids after a failed seal (spec §4.4
	// step 7) — paired with RPop at the other end, this is what makes
	// the list FIFO.
	LPush(ctx context.Context, list, value string) (newLen int64, err error)

	// RPop pops from the tail of list, mirroring the PipelineLoop's
	// drain direction (spec §4.4 step 1: "pop up to BATCH_SIZE ids from
	// the Queue FIFO tail"). ok is false if the list was empty.
	RPop(ctx context.Context, list string) (value string, ok bool, err error)

	// SetNXEx sets key to value with the given TTL only if key is
	// currently absent or expired, reporting whether it acquired the
	// lease (spec §4.6).
	SetNXEx(ctx context.Context, key, value string, ttl time.Duration) (acquired bool, err error)

	// Del deletes key, releasing a lease regardless of ownership.
	Del(ctx context.Context, key string) error
}

// Clock returns monotonically nondecreasing wall-clock UTC timestamps
// (spec §6).
type Clock interface {
	Now() time.Time
}
