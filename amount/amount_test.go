package amount_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/walletchain/ledger/amount"
)

func TestParseAndString(t *testing.T) {
	cases := map[string]string{
		"150.75":   "150.75000000",
		"0":        "0.00000000",
		"1000":     "1000.00000000",
		"0.00000001": "0.00000001",
	}
	for in, want := range cases {
		a, err := amount.Parse(in)
		require.NoError(t, err)
		require.Equal(t, want, a.String())
	}
}

func TestParseRejectsNegativeAndOverPrecision(t *testing.T) {
	_, err := amount.Parse("-1")
	require.Error(t, err)

	_, err = amount.Parse("1.123456789")
	require.Error(t, err)
}

func TestAddSub(t *testing.T) {
	a := amount.MustParse("1000")
	locked := amount.MustParse("150.75")

	sum, err := amount.Add(a, locked)
	require.NoError(t, err)
	require.Equal(t, "1150.75000000", sum.String())

	diff, err := amount.Sub(a, locked)
	require.NoError(t, err)
	require.Equal(t, "849.25000000", diff.String())

	_, err = amount.Sub(locked, a)
	require.Error(t, err)
}

func TestCmp(t *testing.T) {
	a := amount.MustParse("10")
	b := amount.MustParse("50")
	require.True(t, a.LessThan(b))
	require.False(t, a.GreaterThanOrEqual(b))
	require.True(t, b.GreaterThanOrEqual(a))
}
