// Copyright (C) 2024-2026, The Walletchain Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ledgererr defines the error taxonomy the pipeline uses to
// decide how to react to a failure: surface it untouched, roll back and
// retry, or mark a transaction FAILED and route it to the dead letter
// list. Kinds are a closed set of sentinel errors, not a type
// hierarchy — callers branch on them with errors.Is.
package ledgererr

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per taxonomy kind in spec §7. Wrap these with
// fmt.Errorf("...: %w", ErrX) at the call site to add context; classify
// with ClassifyOf.
var (
	// ErrInput covers bad amount, bad currency, self-transfer, or a
	// nonexistent recipient account. No state change.
	ErrInput = errors.New("input error")

	// ErrAccess covers a sender not owned by the caller, or a
	// transaction not visible to the caller. No state change.
	ErrAccess = errors.New("access error")

	// ErrInsufficientFunds covers available balance below the
	// requested transfer amount. No state change.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvariantViolation covers locked < amount or balance < amount
	// discovered at execution time. The transaction is marked FAILED,
	// lock reversion is attempted, and the id moves to the dead letter
	// list.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrTransientStore covers deadlock, lock timeout, or connection
	// loss from the AccountStore. Roll back; the caller decides how to
	// retry.
	ErrTransientStore = errors.New("transient store error")

	// ErrEnqueueFailure covers a committed PENDING row whose post-commit
	// queue push failed. The row is durable but orphaned until a
	// janitor sweep re-enqueues it.
	ErrEnqueueFailure = errors.New("enqueue failure")

	// ErrFatalConfig covers missing or invalid required configuration
	// at boot. The process must refuse to start.
	ErrFatalConfig = errors.New("fatal config error")
)

// Kind identifies which taxonomy bucket an error falls into.
type Kind int

const (
	KindUnknown Kind = iota
	KindInput
	KindAccess
	KindInsufficientFunds
	KindInvariantViolation
	KindTransientStore
	KindEnqueueFailure
	KindFatalConfig
)

var sentinelsByKind = []struct {
	kind Kind
	err  error
}{
	{KindInput, ErrInput},
	{KindAccess, ErrAccess},
	{KindInsufficientFunds, ErrInsufficientFunds},
	{KindInvariantViolation, ErrInvariantViolation},
	{KindTransientStore, ErrTransientStore},
	{KindEnqueueFailure, ErrEnqueueFailure},
	{KindFatalConfig, ErrFatalConfig},
}

// ClassifyOf reports which Kind err belongs to by unwrapping it against
// the known sentinels, or KindUnknown if none match.
func ClassifyOf(err error) Kind {
	for _, s := range sentinelsByKind {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}
	return KindUnknown
}

// Wrap annotates a sentinel with call-site context, e.g.
// ledgererr.Wrap(ErrInput, "currency mismatch: sender=%s tx=%s", a, b).
func Wrap(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel)
}
