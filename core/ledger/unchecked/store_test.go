package unchecked

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/btcnew-node/ledger/common"
	"github.com/btcnew-node/ledger/core/types"
	"github.com/btcnew-node/ledger/kv/memdb"
)

func fixedClock(t uint64) Clock { return func() uint64 { return t } }

func sendBlock(previous, destination common.Hash) *types.SendBlock {
	return &types.SendBlock{Previous: previous, Destination: destination, Balance: common.NewAmount(1)}
}

func TestStoreBufferAndWakeProgresses(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	ctx := context.Background()
	tx, err := db.BeginRw(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	s := New(fixedClock(100))
	dep := common.Hash{1}
	b := sendBlock(common.Hash{9}, common.Hash{2})
	blockHash := types.Hash(b)

	require.NoError(t, s.Buffer(tx, dep, blockHash, b))

	count, err := s.Count(tx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)

	var resubmitted []types.Block
	resubmit := func(blk types.Block) (bool, common.Hash, error) {
		resubmitted = append(resubmitted, blk)
		return true, common.ZeroHash, nil
	}
	require.NoError(t, s.Wake(tx, dep, resubmit))
	require.Len(t, resubmitted, 1)

	count, err = s.Count(tx)
	require.NoError(t, err)
	require.Equal(t, uint64(0), count)
}

func TestStoreWakeReBuffersStillBlockedEntryUnderNewDependency(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	ctx := context.Background()
	tx, err := db.BeginRw(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	s := New(fixedClock(100))
	depA := common.Hash{1}
	depB := common.Hash{2}
	b := sendBlock(common.Hash{9}, common.Hash{3})

	require.NoError(t, s.Buffer(tx, depA, types.Hash(b), b))

	calls := 0
	resubmit := func(blk types.Block) (bool, common.Hash, error) {
		calls++
		return false, depB, nil
	}
	require.NoError(t, s.Wake(tx, depA, resubmit))
	require.Equal(t, 1, calls)

	// Still buffered, now keyed under depB instead of depA.
	count, err := s.Count(tx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)

	var woke []types.Block
	require.NoError(t, s.Wake(tx, depB, func(blk types.Block) (bool, common.Hash, error) {
		woke = append(woke, blk)
		return true, common.ZeroHash, nil
	}))
	require.Len(t, woke, 1)
}

func TestStoreWakeDropsOutrightRejection(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	ctx := context.Background()
	tx, err := db.BeginRw(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	s := New(fixedClock(100))
	dep := common.Hash{1}
	b := sendBlock(common.Hash{9}, common.Hash{3})
	require.NoError(t, s.Buffer(tx, dep, types.Hash(b), b))

	require.NoError(t, s.Wake(tx, dep, func(blk types.Block) (bool, common.Hash, error) {
		return false, common.ZeroHash, nil
	}))

	count, err := s.Count(tx)
	require.NoError(t, err)
	require.Equal(t, uint64(0), count)
}

func TestStoreWakeOnEmptyDependencyIsNoop(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	ctx := context.Background()
	tx, err := db.BeginRw(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	s := New(fixedClock(100))
	require.NoError(t, s.Wake(tx, common.Hash{1}, func(types.Block) (bool, common.Hash, error) {
		t.Fatal("resubmit should not be called for an empty dependency")
		return false, common.ZeroHash, nil
	}))
}
