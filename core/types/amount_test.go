package types

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCredo(t *testing.T) {
	v, err := ParseCredo("12345678901234567890123456789")
	require.NoError(t, err)
	require.Equal(t, "12345678901234567890123456789", v.String())

	_, err = ParseCredo("-1")
	require.EqualError(t, err, NegativeNumberErr)

	_, err = ParseCredo("12x")
	require.EqualError(t, err, InvalidNumberFormatErr)

	_, err = ParseCredo("")
	require.EqualError(t, err, InvalidNumberFormatErr)
}

func TestParseSigned(t *testing.T) {
	v, err := ParseSigned("-42")
	require.NoError(t, err)
	require.Equal(t, int64(-42), v.Int64())

	_, err = ParseSigned("nope")
	require.EqualError(t, err, InvalidNumberFormatErr)
}

func TestCalcInterestZeroTicks(t *testing.T) {
	got := CalcInterest(big.NewInt(1000), big.NewInt(100000), 0)
	require.Zero(t, got.Sign())
}

func TestCalcInterestCompounds(t *testing.T) {
	// 10% per tick on 1000: one tick 100, two ticks 210.
	rate := big.NewInt(100_000)
	require.Equal(t, int64(100), CalcInterest(big.NewInt(1000), rate, 1).Int64())
	require.Equal(t, int64(210), CalcInterest(big.NewInt(1000), rate, 2).Int64())
}

func TestCalcInterestZeroRate(t *testing.T) {
	require.Zero(t, CalcInterest(big.NewInt(1000), new(big.Int), 5).Sign())
}

func TestWalletBalanceDefaultsToZero(t *testing.T) {
	var w *Wallet
	require.Zero(t, w.Balance().Sign())
	require.Zero(t, (&Wallet{}).Balance().Sign())
}
