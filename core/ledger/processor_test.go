package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/btcnew-node/ledger/common"
	"github.com/btcnew-node/ledger/core/epoch"
	"github.com/btcnew-node/ledger/core/types"
)

func TestProcessSendThenOpenCommitsAndMovesWeight(t *testing.T) {
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
	require.Equal(t, 0, h.weights.Weight(rep).Cmp(common.NewAmount(400)), "600 left the rep and is pending for destAcct; the remaining 400 stays with the rep")

	sendHash := types.Hash(send)
	destRep := common.Account{0xBB}
	open := &types.OpenBlock{Source: sendHash, Representative: destRep, Account: destAcct}
	result, err = h.proc.Process(open, VerificationValid)
	require.NoError(t, err)
	require.Equal(t, ResultProgress, result)
	require.Equal(t, 0, h.weights.Weight(destRep).Cmp(common.NewAmount(600)))
}

func TestProcessSendForkIsRejected(t *testing.T) {
	h := newHarness(t, nil)
	genesisAcct, genesisPriv := genKey(t)
	destAcct, _ := genKey(t)
	rep := common.Account{0xAA}
	genesisHash := h.openGenesis(t, genesisAcct, rep, common.NewAmount(1000))

	sendA := &types.SendBlock{Previous: genesisHash, Destination: destAcct, Balance: common.NewAmount(900)}
	types.Sign(sendA, genesisPriv)
	result, err := h.proc.Process(sendA, VerificationUnknown)
	require.NoError(t, err)
	require.Equal(t, ResultProgress, result)

	// A second send still rooted at genesisHash is a fork: the account's
	// head has already moved to sendA's hash.
	sendB := &types.SendBlock{Previous: genesisHash, Destination: destAcct, Balance: common.NewAmount(800)}
	types.Sign(sendB, genesisPriv)
	result, err = h.proc.Process(sendB, VerificationUnknown)
	require.NoError(t, err)
	require.Equal(t, ResultFork, result)
}

func TestProcessReceiveRejectsAlreadyConsumedPending(t *testing.T) {
	h := newHarness(t, nil)
	genesisAcct, genesisPriv := genKey(t)
	destAcct, _ := genKey(t)
	rep := common.Account{0xAA}
	genesisHash := h.openGenesis(t, genesisAcct, rep, common.NewAmount(1000))

	send := &types.SendBlock{Previous: genesisHash, Destination: destAcct, Balance: common.NewAmount(900)}
	types.Sign(send, genesisPriv)
	_, err := h.proc.Process(send, VerificationUnknown)
	require.NoError(t, err)

	destRep := common.Account{0xBB}
	open := &types.OpenBlock{Source: types.Hash(send), Representative: destRep, Account: destAcct}
	result, err := h.proc.Process(open, VerificationValid)
	require.NoError(t, err)
	require.Equal(t, ResultProgress, result)

	// Receiving the same source hash again is unreceivable: the pending
	// entry was already consumed by open.
	receive := &types.ReceiveBlock{Previous: types.Hash(open), Source: types.Hash(send)}
	result, err = h.proc.Process(receive, VerificationValid)
	require.NoError(t, err)
	require.Equal(t, ResultUnreceivable, result)
}

func TestProcessStateOpenZeroLinkIsGapSource(t *testing.T) {
	h := newHarness(t, nil)
	account, priv := genKey(t)

	open := &types.StateBlock{Account: account, Representative: common.Account{0xAA}}
	types.Sign(open, priv)
	result, err := h.proc.Process(open, VerificationUnknown)
	require.NoError(t, err)
	require.Equal(t, ResultGapSource, result, "a zero link on an unopened account's first block is a missing dependency, not an unreceivable claim")
}

func TestProcessStateWithEpochLinkButMovedBalanceIsRegularSend(t *testing.T) {
	account, priv := genKey(t)
	authAcct, _ := genKey(t)
	tag := common.Link{0x01}
	authority := epoch.Authority{Epoch: common.Epoch1, Tag: tag, Key: [32]byte(authAcct)}

	h := newHarness(t, []epoch.Authority{authority})
	rep := common.Account{0xAA}
	genesisHash := h.openGenesis(t, account, rep, common.NewAmount(1000))

	// Link coincides with the registered epoch tag, but the balance moved:
	// this is an ordinary send, not an epoch upgrade, and must be processed
	// (and signed) as such rather than routed through processEpoch.
	send := &types.StateBlock{
		Account:        account,
		Previous:       genesisHash,
		Link:           common.Hash(tag),
		Balance:        common.NewAmount(600),
		Representative: rep,
	}
	types.Sign(send, priv)
	result, err := h.proc.Process(send, VerificationUnknown)
	require.NoError(t, err)
	require.Equal(t, ResultProgress, result, "balance moved under an epoch-tagged link: must fall through to the regular send path, not processEpoch's BalanceMismatch")

	acct, ok, err := h.writer.ReadAccount(account)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, acct.Balance.Cmp(common.NewAmount(600)))
	require.Equal(t, common.Epoch0, acct.Epoch, "a regular send must not advance the account's epoch")
}

func TestProcessEpochUpgradeThenRejectsLegacyBlockAfterward(t *testing.T) {
	account, priv := genKey(t)
	authAcct, authPriv := genKey(t)
	tag := common.Link{0x01}
	authority := epoch.Authority{Epoch: common.Epoch1, Tag: tag, Key: [32]byte(authAcct)}

	h := newHarness(t, []epoch.Authority{authority})
	rep := common.Account{0xCC}
	genesisHash := h.openGenesis(t, account, rep, common.NewAmount(1000))

	epochBlock := &types.StateBlock{Account: account, Previous: genesisHash, Link: common.Hash(tag), Balance: common.NewAmount(1000), Representative: rep}
	types.Sign(epochBlock, authPriv)
	result, err := h.proc.Process(epochBlock, VerificationUnknown)
	require.NoError(t, err)
	require.Equal(t, ResultProgress, result)

	// Once on Epoch1, a legacy-format send rooted at the new head is out
	// of position: legacyHeadAccount sees the head's sideband is not a
	// legacy block type and rejects it rather than treating it as the
	// chain owner.
	legacySend := &types.SendBlock{Previous: types.Hash(epochBlock), Destination: common.Account{0xDD}, Balance: common.NewAmount(500)}
	types.Sign(legacySend, priv)
	result, err = h.proc.Process(legacySend, VerificationUnknown)
	require.NoError(t, err)
	require.Equal(t, ResultBlockPosition, result)
}
