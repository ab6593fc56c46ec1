package node

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/btcnew-node/ledger/common"
	"github.com/btcnew-node/ledger/core/epoch"
	"github.com/btcnew-node/ledger/core/ledger"
	"github.com/btcnew-node/ledger/core/ledger/writequeue"
	"github.com/btcnew-node/ledger/core/types"
)

func fixedNow() uint64 { return 1000 }

func TestOpenProcessCloseSmoke(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Options{Clock: fixedNow})
	require.NoError(t, err)
	defer s.Close()

	// A state block with a nonzero previous but no existing chain can't
	// progress: it should come back as a gap and land in the unchecked
	// store so a later commit of its previous can wake it.
	gap := &types.StateBlock{
		Account:  common.Account{1},
		Previous: common.Hash{0xAA},
		Link:     common.Hash{0xBB},
		Balance:  common.NewAmount(5),
	}
	result, err := s.Process(ctx, gap, ledger.VerificationInvalid, writequeue.PriorityBlockProcessing)
	require.NoError(t, err)
	require.Equal(t, ledger.ResultGapPrevious, result)

	require.Equal(t, common.ZeroAmount.Cmp(s.Weight(common.Account{9})), 0)
}

func TestOpenProcessesEpochUpgradeOnFreshAccount(t *testing.T) {
	ctx := context.Background()

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var key [32]byte
	copy(key[:], pub)
	tag := common.Link{0xE1}

	s, err := Open(ctx, Options{
		Clock:  fixedNow,
		Epochs: []epoch.Authority{{Epoch: common.Epoch1, Tag: tag, Key: key}},
	})
	require.NoError(t, err)
	defer s.Close()

	account := common.Account{7}
	b := &types.StateBlock{
		Account: account,
		Link:    common.Hash(tag),
	}
	types.Sign(b, priv)

	result, err := s.Process(ctx, b, ledger.VerificationUnknown, writequeue.PriorityBlockProcessing)
	require.NoError(t, err)
	require.Equal(t, ledger.ResultProgress, result)
}
