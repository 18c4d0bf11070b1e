// Copyright (C) 2024-2026, The Walletchain Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package memqueue is the in-memory reference implementation of
// iface.Queue: a durable-in-process FIFO list plus a per-key lease map
// with TTL, exactly the shape spec §4.6 describes for the production
// Redis collaborator (SETNX + EX), minus the durability and the network
// hop. It is the fake the spec's design notes (§9) call for tests to
// use to make the §8 properties deterministic; Redis itself is an
// out-of-scope collaborator (spec §1).
package memqueue

import (
	"context"
	"sync"
	"time"

	"github.com/walletchain/ledger/iface"
)

type lease struct {
	value     string
	expiresAt time.Time
}

// Queue is the in-memory Queue.
type Queue struct {
	mu     sync.Mutex
	lists  map[string][]string
	leases map[string]lease
	now    func() time.Time
}

// New constructs an empty Queue. nowFn defaults to time.Now when nil;
// tests may inject a deterministic clock to control lease expiry.
func New(nowFn func() time.Time) *Queue {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Queue{
		lists:  make(map[string][]string),
		leases: make(map[string]lease),
		now:    nowFn,
	}
}

// LPush implements iface.Queue.
func (q *Queue) LPush(ctx context.Context, list, value string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lists[list] = append([]string{value}, q.lists[list]...)
	return int64(len(q.lists[list])), nil
}

// RPop implements iface.Queue.
func (q *Queue) RPop(ctx context.Context, list string) (string, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.lists[list]
	if len(items) == 0 {
		return "", false, nil
	}
	last := items[len(items)-1]
	q.lists[list] = items[:len(items)-1]
	return last, true, nil
}

// Len reports the current length of list — a test/inspection helper,
// not part of iface.Queue.
func (q *Queue) Len(list string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lists[list])
}

// Peek returns a snapshot of list's contents without consuming them —
// an inspection helper for the `ledgerd dead-letter` operator command
// (spec §7), not part of iface.Queue.
func (q *Queue) Peek(list string) []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.lists[list]))
	copy(out, q.lists[list])
	return out
}

// SetNXEx implements iface.Queue.
func (q *Queue) SetNXEx(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	if existing, ok := q.leases[key]; ok && existing.expiresAt.After(now) {
		return false, nil
	}
	q.leases[key] = lease{value: value, expiresAt: now.Add(ttl)}
	return true, nil
}

// Del implements iface.Queue.
func (q *Queue) Del(ctx context.Context, key string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.leases, key)
	return nil
}

var _ iface.Queue = (*Queue)(nil)
