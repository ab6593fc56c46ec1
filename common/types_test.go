package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashCmpOrdersByBytesOnly(t *testing.T) {
	var a, b Hash
	a[31] = 1
	b[31] = 2
	require.Equal(t, -1, a.Cmp(b))
	require.Equal(t, 1, b.Cmp(a))
	require.Equal(t, 0, a.Cmp(a))
}

func TestHashRoundTripBytes(t *testing.T) {
	var h Hash
	h[0] = 0xAB
	got, err := HashFromBytes(h.Bytes())
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestEpochOrdering(t *testing.T) {
	require.True(t, Epoch0.Before(Epoch1))
	require.True(t, Epoch1.Before(Epoch2))
	require.False(t, Epoch2.Before(Epoch0))
	require.Equal(t, Epoch2, Max(Epoch0, Epoch2))
}
