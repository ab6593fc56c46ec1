package unchecked

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/btcnew-node/ledger/common"
	"github.com/btcnew-node/ledger/core/rawdb"
	"github.com/btcnew-node/ledger/kv/memdb"
)

func TestGCSweepRemovesOnlyEntriesOlderThanCutoff(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	ctx := context.Background()
	tx, err := db.BeginRw(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	old := sendBlock(common.Hash{1}, common.Hash{1})
	fresh := sendBlock(common.Hash{2}, common.Hash{2})

	require.NoError(t, rawdb.UncheckedPut(tx, common.Hash{0xA}, common.Hash{1}, &rawdb.UncheckedInfo{
		Block: old, ArrivalTime: 10,
	}))
	require.NoError(t, rawdb.UncheckedPut(tx, common.Hash{0xB}, common.Hash{2}, &rawdb.UncheckedInfo{
		Block: fresh, ArrivalTime: 95,
	}))

	g := NewGC(fixedClock(100))
	removed, more, err := g.Sweep(tx, 50, 10)
	require.NoError(t, err)
	require.False(t, more)
	require.Equal(t, 1, removed)

	count, err := rawdb.UncheckedCount(tx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)
}

func TestGCSweepReportsMoreWhenBatchCapped(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	ctx := context.Background()
	tx, err := db.BeginRw(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	for i := 0; i < 3; i++ {
		dep := common.Hash{byte(i + 1)}
		bh := common.Hash{byte(i + 10)}
		require.NoError(t, rawdb.UncheckedPut(tx, dep, bh, &rawdb.UncheckedInfo{
			Block:       sendBlock(common.Hash{byte(i)}, common.Hash{byte(i)}),
			ArrivalTime: 1,
		}))
	}

	g := NewGC(fixedClock(100))
	removed, more, err := g.Sweep(tx, 10, 2)
	require.NoError(t, err)
	require.True(t, more)
	require.Equal(t, 2, removed)

	count, err := rawdb.UncheckedCount(tx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)
}

func TestSchedulerResetsOnMoreAndBacksOffWhenIdle(t *testing.T) {
	s := NewScheduler()

	require.Equal(t, time.Duration(0), s.Next(true))
	require.Equal(t, time.Duration(0), s.Next(true))

	first := s.Next(false)
	require.True(t, first > 0)
	second := s.Next(false)
	require.True(t, second >= first, "backoff interval must not shrink between idle cycles")

	require.Equal(t, time.Duration(0), s.Next(true), "a fresh sweep with more work resets the backoff")
}
