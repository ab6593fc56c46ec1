package confirmheight

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/btcnew-node/ledger/common"
	"github.com/btcnew-node/ledger/core/types"
)

type fakeWriter struct {
	blocks  map[common.Hash]types.Block
	sides   map[common.Hash]*types.Sideband
	heights map[common.Account]uint64
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{
		blocks:  map[common.Hash]types.Block{},
		sides:   map[common.Hash]*types.Sideband{},
		heights: map[common.Account]uint64{},
	}
}

func (f *fakeWriter) ReadBlock(hash common.Hash) (types.Block, *types.Sideband, error) {
	return f.blocks[hash], f.sides[hash], nil
}

func (f *fakeWriter) ReadConfirmationHeight(account common.Account) (uint64, error) {
	return f.heights[account], nil
}

func (f *fakeWriter) WriteConfirmationHeight(account common.Account, height uint64) error {
	f.heights[account] = height
	return nil
}

func (f *fakeWriter) put(hash common.Hash, account common.Account, height uint64) {
	f.blocks[hash] = &types.StateBlock{Account: account}
	f.sides[hash] = &types.Sideband{BlockType: types.BlockTypeState, Height: height}
}

func TestSubmitAdvancesOnlyWhenHigher(t *testing.T) {
	w := newFakeWriter()
	account := common.Account{1}
	hashLow := common.Hash{1}
	hashHigh := common.Hash{2}
	w.put(hashLow, account, 5)
	w.put(hashHigh, account, 9)
	w.heights[account] = 5

	p := NewProcessor(w)

	require.NoError(t, p.Submit(hashLow))
	require.Equal(t, uint64(5), w.heights[account], "a height no higher than the recorded one must not move it")

	require.NoError(t, p.Submit(hashHigh))
	require.Equal(t, uint64(9), w.heights[account])
}

func TestSubmitOnMissingBlockIsNoop(t *testing.T) {
	w := newFakeWriter()
	p := NewProcessor(w)
	require.NoError(t, p.Submit(common.Hash{0xFF}))
}

func TestSubmitOnlyTouchesTheSubmittedBlocksOwnAccount(t *testing.T) {
	w := newFakeWriter()
	accountA := common.Account{1}
	accountB := common.Account{2}
	hashA := common.Hash{1}
	w.put(hashA, accountA, 3)
	w.heights[accountB] = 0

	p := NewProcessor(w)
	require.NoError(t, p.Submit(hashA))

	require.Equal(t, uint64(3), w.heights[accountA])
	require.Equal(t, uint64(0), w.heights[accountB], "submitting one account's block must not touch another account's height")
}
