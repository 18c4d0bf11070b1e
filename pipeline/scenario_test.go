package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/walletchain/ledger/amount"
	"github.com/walletchain/ledger/balance"
	"github.com/walletchain/ledger/clock"
	"github.com/walletchain/ledger/executor"
	"github.com/walletchain/ledger/intake"
	"github.com/walletchain/ledger/ledger"
	"github.com/walletchain/ledger/memqueue"
	"github.com/walletchain/ledger/memstore"
	"github.com/walletchain/ledger/metrics"
	"github.com/walletchain/ledger/pipeline"
)

const mempool = "tx:mempool"
const dlq = "tx:dead_letter"

func newHarness(t *testing.T, minTxs int, blockTime time.Duration) (*memstore.Store, *memqueue.Queue, *clock.Mock, *pipeline.Loop, *intake.Intake, string, string) {
	t.Helper()
	store := memstore.New()
	q := memqueue.New(nil)
	mclk := clock.NewMock(time.Now())

	aAddr, bAddr := "acc_a", "acc_b"
	store.SeedAccount(ledger.Account{
		ID: uuid.NewString(), SystemAddress: aAddr, WalletID: "w-a", UserID: "user-a",
		Currency: "NGN", Balance: amount.MustParse("10000"),
	})
	store.SeedAccount(ledger.Account{
		ID: uuid.NewString(), SystemAddress: bAddr, WalletID: "w-b", UserID: "user-b",
		Currency: "NGN", Balance: amount.Zero,
	})

	bv, err := balance.New(store, mclk, metrics.NoOp(), 64, time.Minute)
	require.NoError(t, err)
	in := intake.New(store, q, mclk, bv, metrics.NoOp(), mempool)
	ex := executor.New(store, q, metrics.NoOp(), dlq)
	loop := pipeline.New(store, q, mclk, ex, bv, metrics.NoOp(), pipeline.Config{
		BatchSize: 50, BlockTime: blockTime, MinTxsPerBlock: minTxs,
		Interval: time.Second, MempoolName: mempool, DLQName: dlq, LeaseTTL: time.Minute,
	})
	return store, q, mclk, loop, in, aAddr, bAddr
}

func TestPipelineSealsOnceMinTxsPerBlockReached(t *testing.T) {
	ctx := context.Background()
	store, _, _, loop, in, aAddr, bAddr := newHarness(t, 3, time.Hour)

	for i := 0; i < 3; i++ {
		_, err := in.SubmitTransfer(ctx, "user-a", aAddr, bAddr, "10", "NGN", "")
		require.NoError(t, err)
	}

	require.NoError(t, loop.RunCycle(ctx))

	storeTx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	block, err := storeTx.LatestBlock(ctx)
	require.NoError(t, err)
	require.NotNil(t, block)
	require.Equal(t, uint64(0), block.Height)
	require.Len(t, block.TransactionIDs, 3)

	recipient, err := storeTx.AccountByAddress(ctx, bAddr, 0)
	require.NoError(t, err)
	require.Equal(t, "30.00000000", recipient.Balance.String())
}

func TestPipelineSealsOnBlockTimeElapsedEvenBelowMinTxs(t *testing.T) {
	ctx := context.Background()
	store, _, mclk, loop, in, aAddr, bAddr := newHarness(t, 10, time.Second)

	_, err := in.SubmitTransfer(ctx, "user-a", aAddr, bAddr, "5", "NGN", "")
	require.NoError(t, err)

	mclk.Advance(2 * time.Second)
	require.NoError(t, loop.RunCycle(ctx))

	storeTx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	block, err := storeTx.LatestBlock(ctx)
	require.NoError(t, err)
	require.NotNil(t, block)
	require.Len(t, block.TransactionIDs, 1)
}

func TestPipelineChainsBlocksAcrossCycles(t *testing.T) {
	ctx := context.Background()
	store, _, _, loop, in, aAddr, bAddr := newHarness(t, 1, time.Hour)

	_, err := in.SubmitTransfer(ctx, "user-a", aAddr, bAddr, "5", "NGN", "")
	require.NoError(t, err)
	require.NoError(t, loop.RunCycle(ctx))

	_, err = in.SubmitTransfer(ctx, "user-a", aAddr, bAddr, "5", "NGN", "")
	require.NoError(t, err)
	require.NoError(t, loop.RunCycle(ctx))

	storeTx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	second, err := storeTx.BlockByHeight(ctx, 1)
	require.NoError(t, err)
	first, err := storeTx.BlockByHeight(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, first.BlockHash, *second.PreviousBlockHash)
}

func TestJanitorSweepReenqueuesOrphanedPending(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	q := memqueue.New(nil)
	mclk := clock.NewMock(time.Now().Add(-time.Hour))

	senderID, recipientID := uuid.NewString(), uuid.NewString()
	store.SeedAccount(ledger.Account{ID: senderID, SystemAddress: "acc_a", UserID: "user-a", Currency: "NGN", Balance: amount.MustParse("100")})
	store.SeedAccount(ledger.Account{ID: recipientID, SystemAddress: "acc_b", UserID: "user-b", Currency: "NGN", Balance: amount.Zero})

	txn := &ledger.Transaction{
		ID: uuid.NewString(), SystemHash: "txn_orphan", FromAccountID: senderID, ToAccountID: recipientID,
		Amount: amount.MustParse("10"), Currency: "NGN", Status: ledger.TxPending, Type: ledger.TxTypeTransfer,
		CreatedAt: mclk.Now(),
	}
	storeTx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, storeTx.CreateTransaction(ctx, txn))
	require.NoError(t, storeTx.Commit(ctx))

	mclk.Set(time.Now())
	j := pipeline.NewJanitor(store, q, mclk, mempool)
	pushed, err := j.Sweep(ctx, 10*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, pushed)

	id, ok, err := q.RPop(ctx, mempool)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, txn.ID, id)
}
