// Copyright (C) 2024-2026, The Walletchain Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package memstore is the in-memory reference implementation of
// iface.AccountStore, grounded on the teacher's wrapper-over-
// collaborator pattern (plugin/evm/database_wrapper.go): a small
// adapter type that satisfies the seam interface exactly, with
// interface-satisfaction asserted at the bottom of the file. It exists
// so the §8 properties and the S1-S6 scenarios are deterministic and
// runnable without a real Postgres collaborator (spec §9 design note:
// "tests use in-memory fakes").
//
// Pessimistic locking is modeled with one sync.Mutex per account id,
// acquired the first time a transaction touches that account (by
// reading it with PessimisticWrite or by saving it) and held until the
// transaction commits or rolls back — the same hold-for-transaction-
// lifetime discipline a real row lock gives.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/walletchain/ledger/iface"
	"github.com/walletchain/ledger/ledger"
)

// Store is the in-memory AccountStore.
type Store struct {
	mu sync.Mutex

	accountsByID map[string]*ledger.Account
	addrToID     map[string]string

	txByID   map[string]*ledger.Transaction
	hashToID map[string]string

	blocksByHeight map[uint64]*ledger.Block
	topHeight      int64 // -1 means empty

	accountLocks map[string]*sync.Mutex
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		accountsByID:   make(map[string]*ledger.Account),
		addrToID:       make(map[string]string),
		txByID:         make(map[string]*ledger.Transaction),
		hashToID:       make(map[string]string),
		blocksByHeight: make(map[uint64]*ledger.Block),
		topHeight:      -1,
		accountLocks:   make(map[string]*sync.Mutex),
	}
}

// SeedAccount installs an account directly, bypassing any transaction —
// for test setup and the `ledgerd seed` operator command only.
func (s *Store) SeedAccount(a ledger.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := a
	s.accountsByID[a.ID] = &cp
	s.addrToID[a.SystemAddress] = a.ID
}

func (s *Store) accountLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.accountLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.accountLocks[id] = l
	}
	return l
}

// BeginTx implements iface.AccountStore.
func (s *Store) BeginTx(ctx context.Context) (iface.Tx, error) {
	return &tx{
		store:           s,
		lockedAccountID: make(map[string]bool),
		pendingAccounts: make(map[string]*ledger.Account),
		pendingTxs:      make(map[string]*ledger.Transaction),
	}, nil
}

type tx struct {
	store *Store

	mu     sync.Mutex
	closed bool

	lockedAccountID map[string]bool
	heldLocks       []*sync.Mutex

	pendingAccounts map[string]*ledger.Account
	pendingTxs      map[string]*ledger.Transaction
	pendingBlocks   []*ledger.Block

	confirmIDs         []string
	confirmBlockID     string
	confirmBlockHeight uint64
	didConfirm         bool
}

func (t *tx) lockAccount(id string) {
	if t.lockedAccountID[id] {
		return
	}
	l := t.store.accountLock(id)
	l.Lock()
	t.lockedAccountID[id] = true
	t.heldLocks = append(t.heldLocks, l)
}

func (t *tx) readAccount(id string) (*ledger.Account, error) {
	if a, ok := t.pendingAccounts[id]; ok {
		cp := *a
		return &cp, nil
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	a, ok := t.store.accountsByID[id]
	if !ok {
		return nil, iface.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// AccountByAddress implements iface.Tx.
func (t *tx) AccountByAddress(ctx context.Context, systemAddress string, lock iface.LockMode) (*ledger.Account, error) {
	t.store.mu.Lock()
	id, ok := t.store.addrToID[systemAddress]
	t.store.mu.Unlock()
	if !ok {
		return nil, iface.ErrNotFound
	}
	if lock == iface.PessimisticWrite {
		t.lockAccount(id)
	}
	return t.readAccount(id)
}

// AccountByAddressForUser implements iface.Tx.
func (t *tx) AccountByAddressForUser(ctx context.Context, systemAddress, userID string, lock iface.LockMode) (*ledger.Account, error) {
	acc, err := t.AccountByAddress(ctx, systemAddress, lock)
	if err != nil {
		return nil, err
	}
	if acc.UserID != userID {
		return nil, iface.ErrNotFound
	}
	return acc, nil
}

// AccountByID implements iface.Tx.
func (t *tx) AccountByID(ctx context.Context, id string, lock iface.LockMode) (*ledger.Account, error) {
	if lock == iface.PessimisticWrite {
		t.lockAccount(id)
	}
	return t.readAccount(id)
}

// SaveAccount implements iface.Tx.
func (t *tx) SaveAccount(ctx context.Context, account *ledger.Account) error {
	t.lockAccount(account.ID)
	cp := *account
	t.pendingAccounts[account.ID] = &cp
	return nil
}

// CreateTransaction implements iface.Tx.
func (t *tx) CreateTransaction(ctx context.Context, txn *ledger.Transaction) error {
	t.store.mu.Lock()
	_, collides := t.store.hashToID[txn.SystemHash]
	t.store.mu.Unlock()
	if collides {
		return fmt.Errorf("transaction %s: %w", txn.SystemHash, iface.ErrConstraintViolation)
	}
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	cp := *txn
	t.pendingTxs[txn.ID] = &cp
	return nil
}

// TransactionByID implements iface.Tx.
func (t *tx) TransactionByID(ctx context.Context, id string) (*ledger.Transaction, error) {
	if txn, ok := t.pendingTxs[id]; ok {
		cp := *txn
		return &cp, nil
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	txn, ok := t.store.txByID[id]
	if !ok {
		return nil, iface.ErrNotFound
	}
	cp := *txn
	return &cp, nil
}

// SaveTransaction implements iface.Tx.
func (t *tx) SaveTransaction(ctx context.Context, txn *ledger.Transaction) error {
	cp := *txn
	t.pendingTxs[txn.ID] = &cp
	return nil
}

// ConfirmTransactions implements iface.Tx.
func (t *tx) ConfirmTransactions(ctx context.Context, ids []string, blockID string, blockHeight uint64) error {
	t.confirmIDs = append(t.confirmIDs, ids...)
	t.confirmBlockID = blockID
	t.confirmBlockHeight = blockHeight
	t.didConfirm = true
	return nil
}

// PendingOlderThan implements iface.Tx.
func (t *tx) PendingOlderThan(ctx context.Context, cutoff time.Time) ([]*ledger.Transaction, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	var out []*ledger.Transaction
	for _, txn := range t.store.txByID {
		if txn.Status == ledger.TxPending && txn.CreatedAt.Before(cutoff) {
			cp := *txn
			out = append(out, &cp)
		}
	}
	return out, nil
}

// StuckProcessing implements iface.Tx.
func (t *tx) StuckProcessing(ctx context.Context, cutoff time.Time) ([]*ledger.Transaction, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	var out []*ledger.Transaction
	for _, txn := range t.store.txByID {
		if txn.Status == ledger.TxProcessing && txn.BlockID == nil && txn.CreatedAt.Before(cutoff) {
			cp := *txn
			out = append(out, &cp)
		}
	}
	return out, nil
}

// LatestBlock implements iface.Tx.
func (t *tx) LatestBlock(ctx context.Context) (*ledger.Block, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.store.topHeight < 0 {
		return nil, nil
	}
	b := t.store.blocksByHeight[uint64(t.store.topHeight)]
	cp := *b
	return &cp, nil
}

// BlockByHeight implements iface.Tx.
func (t *tx) BlockByHeight(ctx context.Context, height uint64) (*ledger.Block, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	b, ok := t.store.blocksByHeight[height]
	if !ok {
		return nil, iface.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

// CreateBlock implements iface.Tx.
func (t *tx) CreateBlock(ctx context.Context, block *ledger.Block) error {
	t.store.mu.Lock()
	if _, exists := t.store.blocksByHeight[block.Height]; exists {
		t.store.mu.Unlock()
		return fmt.Errorf("block height %d: %w", block.Height, iface.ErrConstraintViolation)
	}
	t.store.mu.Unlock()
	if block.ID == "" {
		block.ID = uuid.NewString()
	}
	cp := *block
	t.pendingBlocks = append(t.pendingBlocks, &cp)
	return nil
}

// Commit implements iface.Tx.
func (t *tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("memstore: transaction already closed")
	}
	t.closed = true
	defer t.release()

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	for _, b := range t.pendingBlocks {
		if _, exists := t.store.blocksByHeight[b.Height]; exists {
			return fmt.Errorf("block height %d: %w", b.Height, iface.ErrConstraintViolation)
		}
	}
	for id, a := range t.pendingAccounts {
		t.store.accountsByID[id] = a
		t.store.addrToID[a.SystemAddress] = id
	}
	for id, txn := range t.pendingTxs {
		t.store.txByID[id] = txn
		t.store.hashToID[txn.SystemHash] = id
	}
	for _, b := range t.pendingBlocks {
		t.store.blocksByHeight[b.Height] = b
		if int64(b.Height) > t.store.topHeight {
			t.store.topHeight = int64(b.Height)
		}
	}
	if t.didConfirm {
		for _, id := range t.confirmIDs {
			txn, ok := t.store.txByID[id]
			if !ok || txn.Status != ledger.TxProcessing {
				continue
			}
			updated := *txn
			updated.Status = ledger.TxConfirmed
			blockID := t.confirmBlockID
			blockHeight := t.confirmBlockHeight
			updated.BlockID = &blockID
			updated.BlockHeight = &blockHeight
			t.store.txByID[id] = &updated
		}
	}
	return nil
}

// Rollback implements iface.Tx.
func (t *tx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.release()
	return nil
}

// release drops every lock this transaction acquired, in acquisition
// order reversed is unnecessary for plain mutexes — order doesn't
// matter for unlocking distinct mutexes.
func (t *tx) release() {
	for _, l := range t.heldLocks {
		l.Unlock()
	}
	t.heldLocks = nil
}

var (
	_ iface.AccountStore = (*Store)(nil)
	_ iface.Tx           = (*tx)(nil)
)
