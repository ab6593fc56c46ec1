package epoch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/btcnew-node/ledger/common"
)

func TestRegistryLookupAndAuthorityFor(t *testing.T) {
	tag1 := common.Link{1}
	tag2 := common.Link{2}
	r := NewRegistry([]Authority{
		{Epoch: common.Epoch1, Tag: tag1, Key: [32]byte{0xAA}},
		{Epoch: common.Epoch2, Tag: tag2, Key: [32]byte{0xBB}},
	})

	a, ok := r.Lookup(tag1)
	require.True(t, ok)
	require.Equal(t, common.Epoch1, a.Epoch)

	_, ok = r.Lookup(common.Link{9})
	require.False(t, ok)

	a, ok = r.AuthorityFor(common.Epoch2)
	require.True(t, ok)
	require.Equal(t, tag2, a.Tag)
}

func TestNewRegistryPanicsOnOutOfOrderAuthorities(t *testing.T) {
	require.Panics(t, func() {
		NewRegistry([]Authority{
			{Epoch: common.Epoch2, Tag: common.Link{1}},
			{Epoch: common.Epoch1, Tag: common.Link{2}},
		})
	})
}

func TestIsSequential(t *testing.T) {
	require.True(t, IsSequential(common.Epoch0, common.Epoch1))
	require.True(t, IsSequential(common.Epoch1, common.Epoch2))
	require.False(t, IsSequential(common.Epoch0, common.Epoch2))
	require.False(t, IsSequential(common.Epoch1, common.Epoch1))
}
