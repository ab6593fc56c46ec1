package repweight

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/btcnew-node/ledger/common"
	"github.com/btcnew-node/ledger/kv/memdb"
)

func TestVoteCacheSequenceBumpRule(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	tx, err := db.BeginRw(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()

	vc, err := NewVoteCache(16)
	require.NoError(t, err)

	rep := common.Account{1}
	hashA := common.Hash{0xA}
	hashB := common.Hash{0xB}

	replaced, err := vc.Observe(tx, rep, hashA, 5)
	require.NoError(t, err)
	require.True(t, replaced, "first vote for a representative always replaces the absent entry")

	replaced, err = vc.Observe(tx, rep, hashA, 5)
	require.NoError(t, err)
	require.False(t, replaced, "same hash, same sequence must not bump")

	replaced, err = vc.Observe(tx, rep, hashA, 3)
	require.NoError(t, err)
	require.False(t, replaced, "same hash, lower sequence must not bump")

	replaced, err = vc.Observe(tx, rep, hashA, 6)
	require.NoError(t, err)
	require.True(t, replaced, "same hash, strictly higher sequence bumps")

	replaced, err = vc.Observe(tx, rep, hashB, 1)
	require.NoError(t, err)
	require.True(t, replaced, "a different hash always supersedes, regardless of sequence")

	cur, ok := vc.Current(rep)
	require.True(t, ok)
	require.Equal(t, hashB, cur.Hash)
	require.Equal(t, uint64(1), cur.Sequence)
}

func TestVoteCacheWarmSeedsFromDurableTable(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	ctx := context.Background()

	rep := common.Account{2}
	hash := common.Hash{0xC}

	tx, err := db.BeginRw(ctx)
	require.NoError(t, err)
	seed, err := NewVoteCache(16)
	require.NoError(t, err)
	_, err = seed.Observe(tx, rep, hash, 9)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	ro, err := db.BeginRo(ctx)
	require.NoError(t, err)
	defer ro.Rollback()

	fresh, err := NewVoteCache(16)
	require.NoError(t, err)
	require.NoError(t, fresh.Warm(ro))

	cur, ok := fresh.Current(rep)
	require.True(t, ok)
	require.Equal(t, hash, cur.Hash)
	require.Equal(t, uint64(9), cur.Sequence)
}
