// Copyright (C) 2024-2026, The Walletchain Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package balance implements BalanceView (component C7): a cached
// available/locked/total read path over an account's systemAddress.
// Reads are keyed by systemAddress alone; the view does not check which
// user owns the account. The cache is an in-process
// github.com/hashicorp/golang-lru.Cache; the vendored major version
// predates that library's TTL-aware "expirable" variant, so expiry is
// layered on top of its plain LRU eviction by stamping each entry with
// its own expiry time and checking it on Get.
package balance

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/walletchain/ledger/amount"
	"github.com/walletchain/ledger/iface"
	"github.com/walletchain/ledger/metrics"
)

// Snapshot is the cached read-path result, matching the Redis-cached
// JSON shape spec §6 names for `balance:{systemAddress}`.
type Snapshot struct {
	Available amount.Amount
	Locked    amount.Amount
	Total     amount.Amount
	Currency  string
	Nonce     uint64
}

type cacheEntry struct {
	snapshot  Snapshot
	expiresAt time.Time
}

// View is the BalanceView component.
type View struct {
	Store   iface.AccountStore
	Clock   iface.Clock
	Metrics metrics.Recorder
	TTL     time.Duration

	cache *lru.Cache
}

// New constructs a View with the given cache capacity (entries) and
// TTL (CACHE_BALANCE_TTL_SECONDS).
func New(store iface.AccountStore, clk iface.Clock, rec metrics.Recorder, capacity int, ttl time.Duration) (*View, error) {
	cache, err := lru.New(capacity)
	if err != nil {
		return nil, fmt.Errorf("balance: new cache: %w", err)
	}
	return &View{Store: store, Clock: clk, Metrics: rec, TTL: ttl, cache: cache}, nil
}

// View returns the available/locked/total snapshot for systemAddress,
// serving from cache when the entry hasn't expired and falling back to
// the AccountStore on miss (spec §2 responsibility table, C7).
func (v *View) View(ctx context.Context, systemAddress string) (Snapshot, error) {
	if entry, ok := v.cache.Get(systemAddress); ok {
		e := entry.(cacheEntry)
		if v.Clock.Now().Before(e.expiresAt) {
			if v.Metrics != nil {
				v.Metrics.IncCacheHit()
			}
			return e.snapshot, nil
		}
		v.cache.Remove(systemAddress)
	}
	if v.Metrics != nil {
		v.Metrics.IncCacheMiss()
	}

	storeTx, err := v.Store.BeginTx(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("balance: begin tx: %w", err)
	}
	acc, err := storeTx.AccountByAddress(ctx, systemAddress, iface.NoLock)
	if err != nil {
		_ = storeTx.Rollback(ctx)
		return Snapshot{}, err
	}
	if err := storeTx.Rollback(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("balance: rollback read-only tx: %w", err)
	}

	available, err := acc.Available()
	if err != nil {
		return Snapshot{}, fmt.Errorf("balance: %s: %w", systemAddress, err)
	}
	snapshot := Snapshot{
		Available: available,
		Locked:    acc.Locked,
		Total:     acc.Balance,
		Currency:  acc.Currency,
		Nonce:     acc.Nonce,
	}
	v.cache.Add(systemAddress, cacheEntry{snapshot: snapshot, expiresAt: v.Clock.Now().Add(v.TTL)})
	return snapshot, nil
}

// Invalidate drops systemAddress's cached entry, if any. Called by
// intake after a commit that locks funds (spec §4.1 step 8) and by the
// pipeline after a successful seal (spec §4.4 step 6).
func (v *View) Invalidate(systemAddress string) {
	v.cache.Remove(systemAddress)
}
