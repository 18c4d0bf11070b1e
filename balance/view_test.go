package balance_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/walletchain/ledger/amount"
	"github.com/walletchain/ledger/balance"
	"github.com/walletchain/ledger/clock"
	"github.com/walletchain/ledger/ledger"
	"github.com/walletchain/ledger/memstore"
	"github.com/walletchain/ledger/metrics"
)

func seed(t *testing.T, store *memstore.Store) string {
	t.Helper()
	addr := "acc_a"
	store.SeedAccount(ledger.Account{
		ID: uuid.NewString(), SystemAddress: addr, WalletID: "w-a", UserID: "user-a",
		Currency: "NGN", Balance: amount.MustParse("1000"), Locked: amount.MustParse("100"), Nonce: 3,
	})
	return addr
}

func TestViewServesFromStoreOnMiss(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	addr := seed(t, store)
	mclk := clock.NewMock(time.Now())
	v, err := balance.New(store, mclk, metrics.NoOp(), 16, time.Minute)
	require.NoError(t, err)

	snap, err := v.View(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, "900.00000000", snap.Available.String())
	require.Equal(t, "100.00000000", snap.Locked.String())
	require.Equal(t, "1000.00000000", snap.Total.String())
	require.Equal(t, uint64(3), snap.Nonce)
}

func TestViewServesCachedValueUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	addr := seed(t, store)
	mclk := clock.NewMock(time.Now())
	v, err := balance.New(store, mclk, metrics.NoOp(), 16, time.Minute)
	require.NoError(t, err)

	_, err = v.View(ctx, addr)
	require.NoError(t, err)

	storeTx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	acc, err := storeTx.AccountByAddress(ctx, addr, 0)
	require.NoError(t, err)
	acc.Balance = amount.MustParse("500")
	require.NoError(t, storeTx.SaveAccount(ctx, acc))
	require.NoError(t, storeTx.Commit(ctx))

	stale, err := v.View(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, "1000.00000000", stale.Total.String())

	v.Invalidate(addr)
	fresh, err := v.View(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, "500.00000000", fresh.Total.String())
}

func TestViewExpiresEntryAfterTTL(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	addr := seed(t, store)
	mclk := clock.NewMock(time.Now())
	v, err := balance.New(store, mclk, metrics.NoOp(), 16, time.Minute)
	require.NoError(t, err)

	_, err = v.View(ctx, addr)
	require.NoError(t, err)

	storeTx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	acc, err := storeTx.AccountByAddress(ctx, addr, 0)
	require.NoError(t, err)
	acc.Balance = amount.MustParse("420")
	require.NoError(t, storeTx.SaveAccount(ctx, acc))
	require.NoError(t, storeTx.Commit(ctx))

	mclk.Advance(2 * time.Minute)
	snap, err := v.View(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, "420.00000000", snap.Total.String())
}
