package executor_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/walletchain/ledger/amount"
	"github.com/walletchain/ledger/executor"
	"github.com/walletchain/ledger/ledger"
	"github.com/walletchain/ledger/memqueue"
	"github.com/walletchain/ledger/memstore"
	"github.com/walletchain/ledger/metrics"
)

func setup(t *testing.T) (*memstore.Store, *memqueue.Queue, *executor.Executor, string, string, *ledger.Transaction) {
	t.Helper()
	store := memstore.New()
	senderID, recipientID := uuid.NewString(), uuid.NewString()
	store.SeedAccount(ledger.Account{
		ID: senderID, SystemAddress: "acc_a", WalletID: "w-a", UserID: "user-a",
		Currency: "NGN", Balance: amount.MustParse("1000"), Locked: amount.MustParse("150.75"), Nonce: 1,
	})
	store.SeedAccount(ledger.Account{
		ID: recipientID, SystemAddress: "acc_b", WalletID: "w-b", UserID: "user-b",
		Currency: "NGN", Balance: amount.Zero,
	})

	txn := &ledger.Transaction{
		ID: uuid.NewString(), SystemHash: "txn_abc", FromAccountID: senderID, ToAccountID: recipientID,
		Amount: amount.MustParse("150.75"), Currency: "NGN", Fee: amount.Zero,
		Status: ledger.TxPending, Type: ledger.TxTypeTransfer, AccountNonce: 0,
	}
	ctx := context.Background()
	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateTransaction(ctx, txn))
	require.NoError(t, tx.Commit(ctx))

	q := memqueue.New(nil)
	ex := executor.New(store, q, metrics.NoOp(), "tx:dead_letter")
	return store, q, ex, senderID, recipientID, txn
}

func TestExecuteSingleHappyPath(t *testing.T) {
	ctx := context.Background()
	store, _, ex, senderID, recipientID, txn := setup(t)

	result, err := ex.ExecuteSingle(ctx, txn.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, ledger.TxProcessing, result.Status)

	storeTx, _ := store.BeginTx(ctx)
	sender, err := storeTx.AccountByID(ctx, senderID, 0)
	require.NoError(t, err)
	require.Equal(t, "849.25000000", sender.Balance.String())
	require.True(t, sender.Locked.IsZero())

	recipient, err := storeTx.AccountByID(ctx, recipientID, 0)
	require.NoError(t, err)
	require.Equal(t, "150.75000000", recipient.Balance.String())
}

func TestExecuteSingleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	_, _, ex, _, _, txn := setup(t)

	first, err := ex.ExecuteSingle(ctx, txn.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.TxProcessing, first.Status)

	second, err := ex.ExecuteSingle(ctx, txn.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.TxProcessing, second.Status)
}

func TestExecuteSingleMissingRowReturnsNil(t *testing.T) {
	ctx := context.Background()
	_, _, ex, _, _, _ := setup(t)

	result, err := ex.ExecuteSingle(ctx, "does-not-exist")
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestExecuteSingleInsufficientBalanceMarksFailedAndRevertsLock(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	senderID, recipientID := uuid.NewString(), uuid.NewString()
	store.SeedAccount(ledger.Account{
		ID: senderID, SystemAddress: "acc_a", WalletID: "w-a", UserID: "user-a",
		Currency: "NGN", Balance: amount.MustParse("10"), Locked: amount.MustParse("150.75"), Nonce: 1,
	})
	store.SeedAccount(ledger.Account{
		ID: recipientID, SystemAddress: "acc_b", WalletID: "w-b", UserID: "user-b",
		Currency: "NGN", Balance: amount.Zero,
	})
	txn := &ledger.Transaction{
		ID: uuid.NewString(), SystemHash: "txn_abc", FromAccountID: senderID, ToAccountID: recipientID,
		Amount: amount.MustParse("150.75"), Currency: "NGN", Status: ledger.TxPending, Type: ledger.TxTypeTransfer,
	}
	tx, _ := store.BeginTx(ctx)
	require.NoError(t, tx.CreateTransaction(ctx, txn))
	require.NoError(t, tx.Commit(ctx))

	ex := executor.New(store, memqueue.New(nil), metrics.NoOp(), "tx:dead_letter")
	result, err := ex.ExecuteSingle(ctx, txn.ID)
	require.NoError(t, err)
	require.Nil(t, result)

	storeTx, _ := store.BeginTx(ctx)
	sender, err := storeTx.AccountByID(ctx, senderID, 0)
	require.NoError(t, err)
	require.True(t, sender.Locked.IsZero())

	saved, err := storeTx.TransactionByID(ctx, txn.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.TxFailed, saved.Status)
}
