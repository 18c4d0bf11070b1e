package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/walletchain/ledger/ledger"
)

func TestCanTransition(t *testing.T) {
	require.True(t, ledger.CanTransition(ledger.TxPending, ledger.TxProcessing))
	require.True(t, ledger.CanTransition(ledger.TxPending, ledger.TxFailed))
	require.True(t, ledger.CanTransition(ledger.TxProcessing, ledger.TxConfirmed))
	require.True(t, ledger.CanTransition(ledger.TxProcessing, ledger.TxFailed))

	require.False(t, ledger.CanTransition(ledger.TxProcessing, ledger.TxPending))
	require.False(t, ledger.CanTransition(ledger.TxConfirmed, ledger.TxProcessing))
	require.False(t, ledger.CanTransition(ledger.TxFailed, ledger.TxPending))
}

func TestIsTerminal(t *testing.T) {
	require.True(t, ledger.IsTerminal(ledger.TxConfirmed))
	require.True(t, ledger.IsTerminal(ledger.TxFailed))
	require.True(t, ledger.IsTerminal(ledger.TxCancelled))
	require.False(t, ledger.IsTerminal(ledger.TxPending))
	require.False(t, ledger.IsTerminal(ledger.TxProcessing))
}
