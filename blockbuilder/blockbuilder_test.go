package blockbuilder_test

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/walletchain/ledger/blockbuilder"
	"github.com/walletchain/ledger/clock"
	"github.com/walletchain/ledger/memstore"
)

func TestMerkleRootIsPermutationInvariant(t *testing.T) {
	hashes := []string{"txn_c", "txn_a", "txn_b"}
	sorted1 := []string{"txn_a", "txn_b", "txn_c"}
	sorted2 := slices.Clone(hashes)
	slices.Sort(sorted2)

	require.Equal(t, blockbuilder.MerkleRoot(sorted1), blockbuilder.MerkleRoot(sorted2))
}

func TestMerkleRootOddCountDuplicatesLast(t *testing.T) {
	root := blockbuilder.MerkleRoot([]string{"a", "b", "c"})
	require.Len(t, root, 64)
	require.Equal(t, blockbuilder.MerkleRoot([]string{"a", "b", "c", "c"}), root)
}

func TestMerkleRootEmptyIsSHA256Empty(t *testing.T) {
	root := blockbuilder.MerkleRoot(nil)
	require.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", root)
}

func TestSealBlockGenesisAndChainLinkage(t *testing.T) {
	ctx := context.Background()
	mclk := clock.NewMock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	store := memstore.New()

	tx0, err := store.BeginTx(ctx)
	require.NoError(t, err)
	block0, err := blockbuilder.SealBlock(ctx, mclk, tx0, []blockbuilder.ConfirmedTx{{ID: "id1", SystemHash: "txn_aaa"}})
	require.NoError(t, err)
	require.NoError(t, tx0.Commit(ctx))

	require.Equal(t, uint64(0), block0.Height)
	require.Nil(t, block0.PreviousBlockHash)
	require.Len(t, block0.BlockHash, 64)

	mclk.Advance(2 * time.Second)
	tx1, err := store.BeginTx(ctx)
	require.NoError(t, err)
	block1, err := blockbuilder.SealBlock(ctx, mclk, tx1, []blockbuilder.ConfirmedTx{{ID: "id2", SystemHash: "txn_bbb"}})
	require.NoError(t, err)
	require.NoError(t, tx1.Commit(ctx))

	require.Equal(t, uint64(1), block1.Height)
	require.NotNil(t, block1.PreviousBlockHash)
	require.Equal(t, block0.BlockHash, *block1.PreviousBlockHash)
}

func TestSealBlockRejectsEmptyBatch(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	_, err = blockbuilder.SealBlock(ctx, clock.NewReal(), tx, nil)
	require.Error(t, err)
}
