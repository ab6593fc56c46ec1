package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/btcnew-node/ledger/common"
	"github.com/btcnew-node/ledger/core/rawdb"
	"github.com/btcnew-node/ledger/core/types"
)

func TestRollbackUndoesOpenAndRestoresPending(t *testing.T) {
	h := newHarness(t, nil)
	genesisAcct, genesisPriv := genKey(t)
	destAcct, _ := genKey(t)
	rep := common.Account{0xAA}
	genesisHash := h.openGenesis(t, genesisAcct, rep, common.NewAmount(1000))

	send := &types.SendBlock{Previous: genesisHash, Destination: destAcct, Balance: common.NewAmount(400)}
	types.Sign(send, genesisPriv)
	result, err := h.proc.Process(send, VerificationUnknown)
	require.NoError(t, err)
	require.Equal(t, ResultProgress, result)
	sendHash := types.Hash(send)

	destRep := common.Account{0xBB}
	open := &types.OpenBlock{Source: sendHash, Representative: destRep, Account: destAcct}
	result, err = h.proc.Process(open, VerificationValid)
	require.NoError(t, err)
	require.Equal(t, ResultProgress, result)
	openHash := types.Hash(open)

	rolled, err := h.rb.Rollback(openHash)
	require.NoError(t, err)
	require.Len(t, rolled, 1)
	require.Equal(t, openHash, rolled[0].Hash)

	_, exists, err := h.writer.ReadAccount(destAcct)
	require.NoError(t, err)
	require.False(t, exists, "rolling back the only block on a chain removes the account entirely")

	pk := rawdb.PendingKey{Destination: destAcct, Hash: sendHash}
	pending, ok, err := h.writer.ReadPending(pk)
	require.NoError(t, err)
	require.True(t, ok, "undoing open must recreate the pending entry it consumed")
	require.Equal(t, 0, pending.Amount.Cmp(common.NewAmount(600)))

	require.True(t, h.weights.Weight(destRep).IsZero(), "weight credited by open must be reversed")
}

func TestRollbackCascadesIntoDownstreamReceiver(t *testing.T) {
	h := newHarness(t, nil)
	genesisAcct, genesisPriv := genKey(t)
	destAcct, _ := genKey(t)
	rep := common.Account{0xAA}
	genesisHash := h.openGenesis(t, genesisAcct, rep, common.NewAmount(1000))

	sendA := &types.SendBlock{Previous: genesisHash, Destination: destAcct, Balance: common.NewAmount(700)}
	types.Sign(sendA, genesisPriv)
	_, err := h.proc.Process(sendA, VerificationUnknown)
	require.NoError(t, err)
	sendAHash := types.Hash(sendA)

	destRep := common.Account{0xBB}
	open := &types.OpenBlock{Source: sendAHash, Representative: destRep, Account: destAcct}
	_, err = h.proc.Process(open, VerificationValid)
	require.NoError(t, err)

	sendB := &types.SendBlock{Previous: sendAHash, Destination: destAcct, Balance: common.NewAmount(300)}
	types.Sign(sendB, genesisPriv)
	result, err := h.proc.Process(sendB, VerificationUnknown)
	require.NoError(t, err)
	require.Equal(t, ResultProgress, result)

	// Rolling back sendA must first unwind destAcct's open block, which
	// consumed sendA's pending entry, before sendA itself can be undone.
	rolled, err := h.rb.Rollback(sendAHash)
	require.NoError(t, err)
	require.True(t, len(rolled) >= 2)

	_, exists, err := h.writer.ReadAccount(destAcct)
	require.NoError(t, err)
	require.False(t, exists)

	acct, ok, err := h.writer.ReadAccount(genesisAcct)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, genesisHash, acct.Head)
	require.Equal(t, 0, acct.Balance.Cmp(common.NewAmount(1000)))
}

func TestRollbackRejectsCrossingConfirmationHeight(t *testing.T) {
	h := newHarness(t, nil)
	genesisAcct, genesisPriv := genKey(t)
	destAcct, _ := genKey(t)
	rep := common.Account{0xAA}
	genesisHash := h.openGenesis(t, genesisAcct, rep, common.NewAmount(1000))

	send := &types.SendBlock{Previous: genesisHash, Destination: destAcct, Balance: common.NewAmount(400)}
	types.Sign(send, genesisPriv)
	_, err := h.proc.Process(send, VerificationUnknown)
	require.NoError(t, err)
	sendHash := types.Hash(send)

	require.NoError(t, h.writer.WriteConfirmationHeight(genesisAcct, 2))

	_, err = h.rb.Rollback(sendHash)
	require.ErrorIs(t, err, ErrConfirmedBlock)
}
