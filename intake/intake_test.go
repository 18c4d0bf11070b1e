package intake_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/walletchain/ledger/amount"
	"github.com/walletchain/ledger/clock"
	"github.com/walletchain/ledger/intake"
	"github.com/walletchain/ledger/ledger"
	"github.com/walletchain/ledger/ledgererr"
	"github.com/walletchain/ledger/memqueue"
	"github.com/walletchain/ledger/memstore"
	"github.com/walletchain/ledger/metrics"
)

type noopInvalidator struct{ mu sync.Mutex; calls []string }

func (n *noopInvalidator) Invalidate(addr string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, addr)
}

func seedPair(t *testing.T, store *memstore.Store, balanceA, balanceB string) (aAddr, bAddr, userA string) {
	t.Helper()
	userA = "user-a"
	aAddr, bAddr = "acc_a", "acc_b"
	store.SeedAccount(ledger.Account{
		ID: uuid.NewString(), SystemAddress: aAddr, WalletID: "wallet-a", UserID: userA,
		Currency: "NGN", Balance: amount.MustParse(balanceA), Locked: amount.Zero,
	})
	store.SeedAccount(ledger.Account{
		ID: uuid.NewString(), SystemAddress: bAddr, WalletID: "wallet-b", UserID: "user-b",
		Currency: "NGN", Balance: amount.MustParse(balanceB), Locked: amount.Zero,
	})
	return
}

func TestSubmitTransferHappyPath(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	aAddr, bAddr, userA := seedPair(t, store, "1000", "0")
	q := memqueue.New(nil)
	inv := &noopInvalidator{}
	in := intake.New(store, q, clock.NewReal(), inv, metrics.NoOp(), "tx:mempool")

	res, err := in.SubmitTransfer(ctx, userA, aAddr, bAddr, "150.75", "ngn", "")
	require.NoError(t, err)
	require.Equal(t, ledger.TxPending, res.Status)

	txTx, _ := store.BeginTx(ctx)
	sender, err := txTx.AccountByAddress(ctx, aAddr, 0)
	require.NoError(t, err)
	require.Equal(t, "1000.00000000", sender.Balance.String())
	require.Equal(t, "150.75000000", sender.Locked.String())
	require.Equal(t, uint64(1), sender.Nonce)

	require.Equal(t, 1, q.Len("tx:mempool"))
	require.Contains(t, inv.calls, aAddr)
}

func TestSubmitTransferInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	aAddr, bAddr, userA := seedPair(t, store, "10", "0")
	q := memqueue.New(nil)
	in := intake.New(store, q, clock.NewReal(), &noopInvalidator{}, metrics.NoOp(), "tx:mempool")

	_, err := in.SubmitTransfer(ctx, userA, aAddr, bAddr, "50", "NGN", "")
	require.Error(t, err)
	require.Equal(t, ledgererr.KindInsufficientFunds, ledgererr.ClassifyOf(err))
	require.Equal(t, 0, q.Len("tx:mempool"))
}

func TestSubmitTransferConcurrentDoubleSpend(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	aAddr, bAddr, userA := seedPair(t, store, "100", "0")
	q := memqueue.New(nil)
	in := intake.New(store, q, clock.NewReal(), &noopInvalidator{}, metrics.NoOp(), "tx:mempool")

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := in.SubmitTransfer(ctx, userA, aAddr, bAddr, "80", "NGN", "")
			results[i] = err
		}(i)
	}
	wg.Wait()

	successes, failures := 0, 0
	for _, err := range results {
		if err == nil {
			successes++
		} else {
			require.Equal(t, ledgererr.KindInsufficientFunds, ledgererr.ClassifyOf(err))
			failures++
		}
	}
	require.Equal(t, 1, successes)
	require.Equal(t, 1, failures)

	txTx, _ := store.BeginTx(ctx)
	sender, err := txTx.AccountByAddress(ctx, aAddr, 0)
	require.NoError(t, err)
	require.Equal(t, "80.00000000", sender.Locked.String())
	require.Equal(t, uint64(1), sender.Nonce)
}

func TestSubmitTransferSelfTransferRejected(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	aAddr, _, userA := seedPair(t, store, "100", "0")
	q := memqueue.New(nil)
	in := intake.New(store, q, clock.NewReal(), &noopInvalidator{}, metrics.NoOp(), "tx:mempool")

	_, err := in.SubmitTransfer(ctx, userA, aAddr, aAddr, "1", "NGN", "")
	require.Error(t, err)
	require.Equal(t, ledgererr.KindInput, ledgererr.ClassifyOf(err))
}
