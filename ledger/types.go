// Copyright (C) 2024-2026, The Walletchain Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ledger defines the persisted row types the core operates
// over — Account, Transaction, Block — and the closed transaction
// status lattice, per spec §3 and §4.5. These are arena rows keyed by
// UUID: the cyclic Account/Transaction/Block reference graph is
// represented with foreign keys (AccountID, FromAccountID, BlockID, ...)
// rather than embedded pointers, so a row hydrates only as deep as the
// operation touching it requires.
package ledger

import (
	"time"

	"github.com/walletchain/ledger/amount"
)

// Account is a user-owned, currency-scoped balance.
type Account struct {
	ID            string // UUID
	SystemAddress string // external handle, "acc_<hex>"
	WalletID      string
	UserID        string // owning wallet's user; enforced at intake time
	Currency      string // uppercase ISO-ish code
	Balance       amount.Amount
	Locked        amount.Amount
	Nonce         uint64
}

// Available is the spendable portion of the balance.
func (a Account) Available() (amount.Amount, error) {
	return amount.Sub(a.Balance, a.Locked)
}

// TxStatus is the closed set of states a Transaction may occupy. It is
// a tagged enum, not a type hierarchy: transitions are validated by
// CanTransition, a pure function, rather than virtual dispatch.
type TxStatus string

const (
	TxPending    TxStatus = "PENDING"
	TxProcessing TxStatus = "PROCESSING"
	TxConfirmed  TxStatus = "CONFIRMED"
	TxFailed     TxStatus = "FAILED"
	TxCancelled  TxStatus = "CANCELLED"
)

// legalTransitions encodes the lattice from spec §4.5. CANCELLED is
// reserved but not driven by the core, so nothing transitions into it
// here; it exists only as a valid terminal value a collaborator may set
// out of band.
var legalTransitions = map[TxStatus]map[TxStatus]bool{
	TxPending:    {TxProcessing: true, TxFailed: true},
	TxProcessing: {TxConfirmed: true, TxFailed: true},
	TxConfirmed:  {},
	TxFailed:     {},
	TxCancelled:  {},
}

// CanTransition reports whether the lattice permits moving a
// transaction from `from` to `to`.
func CanTransition(from, to TxStatus) bool {
	return legalTransitions[from][to]
}

// IsTerminal reports whether status is one a transaction never leaves.
func IsTerminal(status TxStatus) bool {
	return status == TxConfirmed || status == TxFailed || status == TxCancelled
}

// TxType distinguishes the kind of ledger movement a Transaction
// represents. The spec only requires the field exist; TRANSFER is the
// only type TransferIntake produces.
type TxType string

const (
	TxTypeTransfer TxType = "TRANSFER"
)

// Transaction is a single debit/credit movement between two accounts.
type Transaction struct {
	ID            string // UUID
	SystemHash    string // external handle, "txn_<hex>"
	FromAccountID string
	ToAccountID   string
	Amount        amount.Amount
	Currency      string
	Fee           amount.Amount
	Status        TxStatus
	Type          TxType
	AccountNonce  uint64 // sender's nonce at submission time
	Description   string
	BlockID       *string
	BlockHeight   *uint64
	CreatedAt     time.Time
}

// Block is an immutable, height-ordered, hash-linked batch of
// CONFIRMED transactions.
type Block struct {
	ID                 string // UUID
	Height             uint64
	BlockHash          string // lower-case 64-hex
	PreviousBlockHash   *string
	Timestamp          time.Time
	MerkleRoot         string
	TransactionIDs     []string
}

// GenesisPreviousHashPlaceholder is hashed in place of a previous hash
// when sealing height 0, per spec §4.3 step 4.
const GenesisPreviousHashPlaceholder = "GENESIS_BLOCK_PREV_HASH_0000000000000"
