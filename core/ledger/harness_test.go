package ledger

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/btcnew-node/ledger/common"
	"github.com/btcnew-node/ledger/core/epoch"
	"github.com/btcnew-node/ledger/core/ledger/repweight"
	"github.com/btcnew-node/ledger/core/rawdb"
	"github.com/btcnew-node/ledger/core/state"
	"github.com/btcnew-node/ledger/core/types"
	"github.com/btcnew-node/ledger/kv/memdb"
)

// harness wires one in-memory write transaction to a Processor and
// Rollback that share it, the same shape turbo/node.Store assembles
// around one kv.RwTx per call.
type harness struct {
	writer  *state.AccountWriter
	weights *repweight.Cache
	epochs  *epoch.Registry
	proc    *Processor
	rb      *Rollback
	clock   uint64
}

func newHarness(t *testing.T, authorities []epoch.Authority) *harness {
	t.Helper()
	db := memdb.New()
	t.Cleanup(func() { db.Close() })
	tx, err := db.BeginRw(context.Background())
	require.NoError(t, err)
	t.Cleanup(tx.Rollback)

	writer := state.NewAccountWriter(types.SidebandFull)
	writer.SetRwTx(tx)

	h := &harness{
		writer:  writer,
		weights: repweight.New(),
		epochs:  epoch.NewRegistry(authorities),
		clock:   1000,
	}
	clock := func() uint64 { return h.clock }
	h.proc = NewProcessor(writer, h.epochs, h.weights, clock, nil)
	h.rb = NewRollback(writer, h.weights, h.epochs, clock, nil)
	return h
}

// openGenesis directly seeds a funded account (bypassing Process, since
// nothing can legitimately send to the very first account) with an open
// block of its own, so scenario tests have a live account to send from.
func (h *harness) openGenesis(t *testing.T, account common.Account, representative common.Account, balance common.Amount) common.Hash {
	t.Helper()
	b := &types.OpenBlock{Account: account, Representative: representative, Source: common.Hash{0xF0}}
	hash := types.Hash(b)
	sb := &types.Sideband{BlockType: types.BlockTypeOpen, Account: account, Balance: balance, Height: 1, Timestamp: h.clock, Epoch: common.Epoch0}
	require.NoError(t, h.writer.WriteBlock(hash, b, sb))
	require.NoError(t, h.writer.WriteFrontier(hash, account))
	require.NoError(t, h.writer.WriteAccount(account, &rawdb.AccountInfo{
		Head:           hash,
		Representative: representative,
		OpenBlock:      hash,
		Balance:        balance,
		Modified:       h.clock,
		BlockCount:     1,
		Epoch:          common.Epoch0,
	}))
	require.NoError(t, h.weights.Add(representative, balance))
	return hash
}

func genKey(t *testing.T) (common.Account, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var acct common.Account
	copy(acct[:], pub)
	return acct, priv
}
