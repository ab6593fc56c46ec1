package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAmountAddSub(t *testing.T) {
	a := NewAmount(10)
	b := NewAmount(3)

	sum, err := a.Add(b)
	require.NoError(t, err)
	require.Equal(t, 0, sum.Cmp(NewAmount(13)))

	diff, err := a.Sub(b)
	require.NoError(t, err)
	require.Equal(t, 0, diff.Cmp(NewAmount(7)))
}

func TestAmountSubNegativeIsOverflow(t *testing.T) {
	_, err := NewAmount(3).Sub(NewAmount(10))
	require.ErrorIs(t, err, ErrAmountOverflow)
}

func TestAmountAddOverflowsAt128Bits(t *testing.T) {
	max := MaxAmount()
	_, err := max.Add(NewAmount(1))
	require.ErrorIs(t, err, ErrAmountOverflow)
}

func TestAmountRoundTripBytes(t *testing.T) {
	want := NewAmount(123456789)
	got, err := AmountFromBytes(want.Bytes())
	require.NoError(t, err)
	require.Equal(t, 0, want.Cmp(got))
}

func TestAmountFromBytesWrongLength(t *testing.T) {
	_, err := AmountFromBytes([]byte{1, 2, 3})
	require.Error(t, err)
}
