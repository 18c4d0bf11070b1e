// Copyright (C) 2024-2026, The Walletchain Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package clock implements iface.Clock, grounded on the teacher's
// plugin/evm/clock_wrapper.go — a thin wrapper that lets tests
// substitute a controllable clock without changing any call site's
// type.
package clock

import (
	"sync"
	"time"

	"github.com/walletchain/ledger/iface"
)

// Real returns the wall-clock time, UTC, millisecond precision (the
// ledger never needs sub-millisecond resolution and serializing a
// timestamp to ISO-8601 for block hashing is defined at ms precision,
// spec §4.3 step 3).
type Real struct{}

// NewReal constructs the wall-clock Clock used in production.
func NewReal() iface.Clock { return Real{} }

// Now implements iface.Clock.
func (Real) Now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

// Mock is a settable clock for deterministic tests — the spec's
// "in-memory fakes ... to achieve the §8 properties deterministically"
// design note (§9) applied to the Clock seam.
type Mock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMock constructs a Mock fixed at t.
func NewMock(t time.Time) *Mock {
	return &Mock{now: t.UTC()}
}

// Now implements iface.Clock.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the mock clock forward by d.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Set pins the mock clock to t.
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t.UTC()
}

var (
	_ iface.Clock = Real{}
	_ iface.Clock = (*Mock)(nil)
)
