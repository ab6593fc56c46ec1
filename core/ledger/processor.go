package ledger

import (
	"go.uber.org/zap"

	"github.com/btcnew-node/ledger/common"
	"github.com/btcnew-node/ledger/core/epoch"
	"github.com/btcnew-node/ledger/core/rawdb"
	"github.com/btcnew-node/ledger/core/state"
	"github.com/btcnew-node/ledger/core/types"
)

// Clock returns wall-clock seconds since the Unix epoch. Sideband
// timestamps are stamped through this indirection, never time.Now()
// directly, so commit tests can supply a fixed clock.
type Clock func() uint64

// Processor is the visitor that decides a Result for one block and,
// on ResultProgress, performs every mutation the commit requires
// against the single write transaction bound to w.
type Processor struct {
	w       *state.AccountWriter
	epochs  *epoch.Registry
	weights WeightSink
	now     Clock
	log     *zap.Logger
}

// NewProcessor builds a Processor. w's sideband version was already
// fixed when it was constructed (state.NewAccountWriter); the
// processor never needs to know it directly. A nil logger is replaced
// with zap.NewNop(), so tests can omit it.
func NewProcessor(w *state.AccountWriter, epochs *epoch.Registry, weights WeightSink, now Clock, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{w: w, epochs: epochs, weights: weights, now: now, log: log}
}

// Process decides the outcome for b. A non-nil error means a store
// failure, not a protocol rejection — the caller must treat the
// transaction as unusable and roll it back; the Result return is only
// meaningful when err is nil (spec.md §7: protocol errors are result
// codes, store errors are surfaced to the caller separately).
func (p *Processor) Process(b types.Block, verification Verification) (Result, error) {
	hash := types.Hash(b)
	exists, err := p.w.BlockExists(hash)
	if err != nil {
		return 0, err
	}
	if exists {
		return ResultOld, nil
	}
	v := &processVisitor{p: p, hash: hash, verification: verification}
	types.Accept(b, v)
	if v.err != nil {
		p.log.Error("process: store failure", zap.Stringer("hash", hash), zap.Error(v.err))
	} else if !v.result.IsProgress() {
		p.log.Debug("process: rejected", zap.Stringer("hash", hash), zap.Stringer("result", v.result))
	}
	return v.result, v.err
}

type processVisitor struct {
	p            *Processor
	hash         common.Hash
	verification Verification
	result       Result
	err          error
}

func (v *processVisitor) VisitOpen(b *types.OpenBlock) {
	v.result, v.err = v.p.processOpen(v.hash, b, v.verification)
}
func (v *processVisitor) VisitSend(b *types.SendBlock) {
	v.result, v.err = v.p.processSend(v.hash, b, v.verification)
}
func (v *processVisitor) VisitReceive(b *types.ReceiveBlock) {
	v.result, v.err = v.p.processReceive(v.hash, b, v.verification)
}
func (v *processVisitor) VisitChange(b *types.ChangeBlock) {
	v.result, v.err = v.p.processChange(v.hash, b, v.verification)
}
func (v *processVisitor) VisitState(b *types.StateBlock) {
	v.result, v.err = v.p.processState(v.hash, b, v.verification)
}

func (p *Processor) verify(b types.Block, signer common.Hash, verification Verification) bool {
	switch verification {
	case VerificationValid, VerificationValidEpoch:
		return true
	case VerificationInvalid:
		return false
	default:
		return types.Verify(b, [32]byte(signer))
	}
}

// legacyHeadAccount resolves the account that owns a legacy chain head,
// via the head block's own sideband (denormalized there precisely so
// this lookup doesn't need the frontier index).
func (p *Processor) legacyHeadAccount(previous common.Hash) (common.Account, *types.Sideband, bool, error) {
	blk, sb, err := p.w.ReadBlock(previous)
	if err != nil || blk == nil {
		return common.ZeroHash, nil, false, err
	}
	if !types.IsLegacy(sb.BlockType) {
		return common.ZeroHash, sb, false, nil
	}
	return sb.Account, sb, true, nil
}

func (p *Processor) processSend(hash common.Hash, b *types.SendBlock, verification Verification) (Result, error) {
	account, predSb, legacy, err := p.legacyHeadAccount(b.Previous)
	if err != nil {
		return 0, err
	}
	if predSb == nil {
		return ResultGapPrevious, nil
	}
	if !legacy {
		return ResultBlockPosition, nil
	}
	acct, ok, err := p.w.ReadAccount(account)
	if err != nil {
		return 0, err
	}
	if !ok || acct.Head != b.Previous {
		return ResultFork, nil
	}
	if !p.verify(b, account, verification) {
		return ResultBadSignature, nil
	}
	if b.Balance.Cmp(acct.Balance) > 0 {
		return ResultNegativeSpend, nil
	}
	amount, err := acct.Balance.Sub(b.Balance)
	if err != nil {
		return 0, err
	}

	sb := &types.Sideband{
		BlockType: types.BlockTypeSend,
		Account:   account,
		Balance:   b.Balance,
		Height:    acct.BlockCount + 1,
		Successor: common.ZeroHash,
		Timestamp: p.now(),
		Epoch:     acct.Epoch,
	}
	if err := p.w.WriteBlock(hash, b, sb); err != nil {
		return 0, err
	}
	if err := p.w.SetSuccessor(b.Previous, hash); err != nil {
		return 0, err
	}
	pk := rawdb.PendingKey{Destination: b.Destination, Hash: hash}
	if err := p.w.WritePending(pk, &rawdb.PendingInfo{Source: account, Amount: amount, Epoch: common.Epoch0}); err != nil {
		return 0, err
	}
	if err := p.w.DeleteFrontier(b.Previous); err != nil {
		return 0, err
	}
	if err := p.w.WriteFrontier(hash, account); err != nil {
		return 0, err
	}
	acct.Head = hash
	acct.Balance = b.Balance
	acct.BlockCount++
	acct.Modified = p.now()
	if err := p.w.WriteAccount(account, acct); err != nil {
		return 0, err
	}
	if err := p.weights.Sub(acct.Representative, amount); err != nil {
		return 0, err
	}
	return ResultProgress, nil
}

func (p *Processor) processReceive(hash common.Hash, b *types.ReceiveBlock, verification Verification) (Result, error) {
	account, predSb, legacy, err := p.legacyHeadAccount(b.Previous)
	if err != nil {
		return 0, err
	}
	if predSb == nil {
		return ResultGapPrevious, nil
	}
	if !legacy {
		return ResultBlockPosition, nil
	}
	srcExists, err := p.w.BlockExists(b.Source)
	if err != nil {
		return 0, err
	}
	if !srcExists {
		return ResultGapSource, nil
	}
	acct, ok, err := p.w.ReadAccount(account)
	if err != nil {
		return 0, err
	}
	if !ok || acct.Head != b.Previous {
		return ResultFork, nil
	}
	if !p.verify(b, account, verification) {
		return ResultBadSignature, nil
	}
	pk := rawdb.PendingKey{Destination: account, Hash: b.Source}
	pending, ok, err := p.w.ReadPending(pk)
	if err != nil {
		return 0, err
	}
	if !ok || pending.Epoch != common.Epoch0 {
		return ResultUnreceivable, nil
	}
	newBalance, err := acct.Balance.Add(pending.Amount)
	if err != nil {
		return 0, err
	}

	sb := &types.Sideband{
		BlockType: types.BlockTypeReceive,
		Account:   account,
		Balance:   newBalance,
		Height:    acct.BlockCount + 1,
		Successor: common.ZeroHash,
		Timestamp: p.now(),
		Epoch:     acct.Epoch,
	}
	if err := p.w.WriteBlock(hash, b, sb); err != nil {
		return 0, err
	}
	if err := p.w.SetSuccessor(b.Previous, hash); err != nil {
		return 0, err
	}
	if err := p.w.DeletePending(pk); err != nil {
		return 0, err
	}
	if err := p.w.DeleteFrontier(b.Previous); err != nil {
		return 0, err
	}
	if err := p.w.WriteFrontier(hash, account); err != nil {
		return 0, err
	}
	acct.Head = hash
	acct.Balance = newBalance
	acct.BlockCount++
	acct.Modified = p.now()
	if err := p.w.WriteAccount(account, acct); err != nil {
		return 0, err
	}
	if err := p.weights.Add(acct.Representative, pending.Amount); err != nil {
		return 0, err
	}
	return ResultProgress, nil
}

func (p *Processor) processOpen(hash common.Hash, b *types.OpenBlock, verification Verification) (Result, error) {
	if b.Account.IsZero() {
		return ResultOpenedBurnAccount, nil
	}
	_, exists, err := p.w.ReadAccount(b.Account)
	if err != nil {
		return 0, err
	}
	if exists {
		return ResultFork, nil
	}
	srcExists, err := p.w.BlockExists(b.Source)
	if err != nil {
		return 0, err
	}
	if !srcExists {
		return ResultGapSource, nil
	}
	if !p.verify(b, b.Account, verification) {
		return ResultBadSignature, nil
	}
	pk := rawdb.PendingKey{Destination: b.Account, Hash: b.Source}
	pending, ok, err := p.w.ReadPending(pk)
	if err != nil {
		return 0, err
	}
	if !ok || pending.Epoch != common.Epoch0 {
		return ResultUnreceivable, nil
	}

	sb := &types.Sideband{
		BlockType: types.BlockTypeOpen,
		Account:   b.Account,
		Balance:   pending.Amount,
		Height:    1,
		Successor: common.ZeroHash,
		Timestamp: p.now(),
		Epoch:     common.Epoch0,
	}
	if err := p.w.WriteBlock(hash, b, sb); err != nil {
		return 0, err
	}
	if err := p.w.DeletePending(pk); err != nil {
		return 0, err
	}
	if err := p.w.WriteFrontier(hash, b.Account); err != nil {
		return 0, err
	}
	info := &rawdb.AccountInfo{
		Head:           hash,
		Representative: b.Representative,
		OpenBlock:      hash,
		Balance:        pending.Amount,
		Modified:       p.now(),
		BlockCount:     1,
		Epoch:          common.Epoch0,
	}
	if err := p.w.WriteAccount(b.Account, info); err != nil {
		return 0, err
	}
	if err := p.weights.Add(b.Representative, pending.Amount); err != nil {
		return 0, err
	}
	return ResultProgress, nil
}

func (p *Processor) processChange(hash common.Hash, b *types.ChangeBlock, verification Verification) (Result, error) {
	account, predSb, legacy, err := p.legacyHeadAccount(b.Previous)
	if err != nil {
		return 0, err
	}
	if predSb == nil {
		return ResultGapPrevious, nil
	}
	if !legacy {
		return ResultBlockPosition, nil
	}
	acct, ok, err := p.w.ReadAccount(account)
	if err != nil {
		return 0, err
	}
	if !ok || acct.Head != b.Previous {
		return ResultFork, nil
	}
	if !p.verify(b, account, verification) {
		return ResultBadSignature, nil
	}
	oldRep := acct.Representative

	sb := &types.Sideband{
		BlockType: types.BlockTypeChange,
		Account:   account,
		Balance:   acct.Balance,
		Height:    acct.BlockCount + 1,
		Successor: common.ZeroHash,
		Timestamp: p.now(),
		Epoch:     acct.Epoch,
	}
	if err := p.w.WriteBlock(hash, b, sb); err != nil {
		return 0, err
	}
	if err := p.w.SetSuccessor(b.Previous, hash); err != nil {
		return 0, err
	}
	if err := p.w.DeleteFrontier(b.Previous); err != nil {
		return 0, err
	}
	if err := p.w.WriteFrontier(hash, account); err != nil {
		return 0, err
	}
	acct.Head = hash
	acct.Representative = b.Representative
	acct.BlockCount++
	acct.Modified = p.now()
	if err := p.w.WriteAccount(account, acct); err != nil {
		return 0, err
	}
	if err := p.weights.Sub(oldRep, acct.Balance); err != nil {
		return 0, err
	}
	if err := p.weights.Add(b.Representative, acct.Balance); err != nil {
		return 0, err
	}
	return ResultProgress, nil
}

func (p *Processor) processState(hash common.Hash, b *types.StateBlock, verification Verification) (Result, error) {
	if authority, isEpoch := p.epochs.Lookup(b.Link); isEpoch {
		unchanged, err := p.stateBalanceUnchanged(b)
		if err != nil {
			return 0, err
		}
		if unchanged {
			return p.processEpoch(hash, b, authority, verification)
		}
		// Balance moved even though Link matches a registered epoch tag:
		// a regular send/receive, not an epoch marker.
	}
	if b.Previous.IsZero() {
		return p.processStateOpen(hash, b, verification)
	}
	return p.processStateContinuing(hash, b, verification)
}

// stateBalanceUnchanged reports whether b's balance equals the balance
// already on b.Account's chain (zero, for an account that doesn't exist
// yet): the condition that, together with a link matching a registered
// epoch tag, marks b as an epoch upgrade rather than an ordinary send or
// receive that happens to reuse the tag as its link.
func (p *Processor) stateBalanceUnchanged(b *types.StateBlock) (bool, error) {
	acct, ok, err := p.w.ReadAccount(b.Account)
	if err != nil {
		return false, err
	}
	if !ok {
		return b.Balance.IsZero(), nil
	}
	return b.Balance.Cmp(acct.Balance) == 0, nil
}

func (p *Processor) processStateContinuing(hash common.Hash, b *types.StateBlock, verification Verification) (Result, error) {
	predExists, err := p.w.BlockExists(b.Previous)
	if err != nil {
		return 0, err
	}
	if !predExists {
		return ResultGapPrevious, nil
	}
	acct, ok, err := p.w.ReadAccount(b.Account)
	if err != nil {
		return 0, err
	}
	if !ok || acct.Head != b.Previous {
		return ResultFork, nil
	}
	if !p.verify(b, b.Account, verification) {
		return ResultBadSignature, nil
	}

	cmp := b.Balance.Cmp(acct.Balance)
	switch {
	case cmp == 0:
		return p.commitStateRepresentativeChange(hash, b, acct)
	case cmp < 0:
		return p.commitStateSend(hash, b, acct)
	default:
		return p.commitStateReceive(hash, b, acct)
	}
}

func (p *Processor) commitStateRepresentativeChange(hash common.Hash, b *types.StateBlock, acct *rawdb.AccountInfo) (Result, error) {
	if !b.Link.IsZero() {
		return ResultBalanceMismatch, nil
	}
	oldRep := acct.Representative
	sb := &types.Sideband{BlockType: types.BlockTypeState, Height: acct.BlockCount + 1, Timestamp: p.now(), Epoch: acct.Epoch}
	if err := p.w.WriteBlock(hash, b, sb); err != nil {
		return 0, err
	}
	if err := p.w.SetSuccessor(b.Previous, hash); err != nil {
		return 0, err
	}
	acct.Head = hash
	acct.Representative = b.Representative
	acct.BlockCount++
	acct.Modified = p.now()
	if err := p.w.WriteAccount(b.Account, acct); err != nil {
		return 0, err
	}
	if oldRep != b.Representative {
		if err := p.weights.Sub(oldRep, acct.Balance); err != nil {
			return 0, err
		}
		if err := p.weights.Add(b.Representative, acct.Balance); err != nil {
			return 0, err
		}
	}
	return ResultProgress, nil
}

func (p *Processor) commitStateSend(hash common.Hash, b *types.StateBlock, acct *rawdb.AccountInfo) (Result, error) {
	if b.Link.IsZero() {
		return ResultBalanceMismatch, nil
	}
	amount, err := acct.Balance.Sub(b.Balance)
	if err != nil {
		return 0, err
	}
	sb := &types.Sideband{BlockType: types.BlockTypeState, Height: acct.BlockCount + 1, Timestamp: p.now(), Epoch: acct.Epoch}
	if err := p.w.WriteBlock(hash, b, sb); err != nil {
		return 0, err
	}
	if err := p.w.SetSuccessor(b.Previous, hash); err != nil {
		return 0, err
	}
	pk := rawdb.PendingKey{Destination: b.Link, Hash: hash}
	if err := p.w.WritePending(pk, &rawdb.PendingInfo{Source: b.Account, Amount: amount, Epoch: acct.Epoch}); err != nil {
		return 0, err
	}
	oldRep := acct.Representative
	acct.Head = hash
	acct.Balance = b.Balance
	acct.Representative = b.Representative
	acct.BlockCount++
	acct.Modified = p.now()
	if err := p.w.WriteAccount(b.Account, acct); err != nil {
		return 0, err
	}
	if oldRep == b.Representative {
		if err := p.weights.Sub(oldRep, amount); err != nil {
			return 0, err
		}
	} else {
		// old balance (before the send) leaves the old representative
		// entirely; the reduced balance lands under the new one.
		oldBalance, addErr := acct.Balance.Add(amount)
		if addErr != nil {
			return 0, addErr
		}
		if err := p.weights.Sub(oldRep, oldBalance); err != nil {
			return 0, err
		}
		if err := p.weights.Add(b.Representative, acct.Balance); err != nil {
			return 0, err
		}
	}
	return ResultProgress, nil
}

func (p *Processor) commitStateReceive(hash common.Hash, b *types.StateBlock, acct *rawdb.AccountInfo) (Result, error) {
	if b.Link.IsZero() {
		return ResultBalanceMismatch, nil
	}
	srcExists, err := p.w.BlockExists(b.Link)
	if err != nil {
		return 0, err
	}
	if !srcExists {
		return ResultGapSource, nil
	}
	pk := rawdb.PendingKey{Destination: b.Account, Hash: b.Link}
	pending, ok, err := p.w.ReadPending(pk)
	if err != nil {
		return 0, err
	}
	if !ok || pending.Epoch > acct.Epoch {
		return ResultUnreceivable, nil
	}
	delta, err := b.Balance.Sub(acct.Balance)
	if err != nil {
		return 0, err
	}
	if delta.Cmp(pending.Amount) != 0 {
		return ResultBalanceMismatch, nil
	}
	newEpoch := common.Max(acct.Epoch, pending.Epoch)

	sb := &types.Sideband{BlockType: types.BlockTypeState, Height: acct.BlockCount + 1, Timestamp: p.now(), Epoch: newEpoch}
	if err := p.w.WriteBlock(hash, b, sb); err != nil {
		return 0, err
	}
	if err := p.w.SetSuccessor(b.Previous, hash); err != nil {
		return 0, err
	}
	if err := p.w.DeletePending(pk); err != nil {
		return 0, err
	}
	oldRep := acct.Representative
	oldBalance := acct.Balance
	acct.Head = hash
	acct.Balance = b.Balance
	acct.Representative = b.Representative
	acct.BlockCount++
	acct.Epoch = newEpoch
	acct.Modified = p.now()
	if err := p.w.WriteAccount(b.Account, acct); err != nil {
		return 0, err
	}
	if oldRep == b.Representative {
		if err := p.weights.Add(oldRep, delta); err != nil {
			return 0, err
		}
	} else {
		if err := p.weights.Sub(oldRep, oldBalance); err != nil {
			return 0, err
		}
		if err := p.weights.Add(b.Representative, b.Balance); err != nil {
			return 0, err
		}
	}
	return ResultProgress, nil
}

func (p *Processor) processStateOpen(hash common.Hash, b *types.StateBlock, verification Verification) (Result, error) {
	if b.Account.IsZero() {
		return ResultOpenedBurnAccount, nil
	}
	_, exists, err := p.w.ReadAccount(b.Account)
	if err != nil {
		return 0, err
	}
	if exists {
		return ResultFork, nil
	}
	if b.Link.IsZero() {
		return ResultGapSource, nil
	}
	srcExists, err := p.w.BlockExists(b.Link)
	if err != nil {
		return 0, err
	}
	if !srcExists {
		return ResultGapSource, nil
	}
	if !p.verify(b, b.Account, verification) {
		return ResultBadSignature, nil
	}
	pk := rawdb.PendingKey{Destination: b.Account, Hash: b.Link}
	pending, ok, err := p.w.ReadPending(pk)
	if err != nil {
		return 0, err
	}
	if !ok {
		return ResultUnreceivable, nil
	}
	if b.Balance.Cmp(pending.Amount) != 0 {
		return ResultBalanceMismatch, nil
	}

	sb := &types.Sideband{BlockType: types.BlockTypeState, Height: 1, Timestamp: p.now(), Epoch: pending.Epoch}
	if err := p.w.WriteBlock(hash, b, sb); err != nil {
		return 0, err
	}
	if err := p.w.DeletePending(pk); err != nil {
		return 0, err
	}
	info := &rawdb.AccountInfo{
		Head:           hash,
		Representative: b.Representative,
		OpenBlock:      hash,
		Balance:        b.Balance,
		Modified:       p.now(),
		BlockCount:     1,
		Epoch:          pending.Epoch,
	}
	if err := p.w.WriteAccount(b.Account, info); err != nil {
		return 0, err
	}
	if err := p.weights.Add(b.Representative, b.Balance); err != nil {
		return 0, err
	}
	return ResultProgress, nil
}

func (p *Processor) processEpoch(hash common.Hash, b *types.StateBlock, authority epoch.Authority, verification Verification) (Result, error) {
	if !p.verify(b, authority.Key, verificationForEpoch(verification)) {
		return ResultBadSignature, nil
	}
	acct, exists, err := p.w.ReadAccount(b.Account)
	if err != nil {
		return 0, err
	}
	if exists {
		if acct.Head != b.Previous {
			return ResultFork, nil
		}
		if b.Balance.Cmp(acct.Balance) != 0 {
			return ResultBalanceMismatch, nil
		}
		if b.Representative != acct.Representative {
			return ResultRepresentativeMismatch, nil
		}
		if !epoch.IsSequential(acct.Epoch, authority.Epoch) {
			return ResultBlockPosition, nil
		}
		sb := &types.Sideband{BlockType: types.BlockTypeState, Height: acct.BlockCount + 1, Timestamp: p.now(), Epoch: authority.Epoch}
		if err := p.w.WriteBlock(hash, b, sb); err != nil {
			return 0, err
		}
		if err := p.w.SetSuccessor(b.Previous, hash); err != nil {
			return 0, err
		}
		acct.Head = hash
		acct.BlockCount++
		acct.Epoch = authority.Epoch
		acct.Modified = p.now()
		if err := p.w.WriteAccount(b.Account, acct); err != nil {
			return 0, err
		}
		return ResultProgress, nil
	}

	if !b.Previous.IsZero() {
		return ResultGapPrevious, nil
	}
	if !b.Representative.IsZero() {
		return ResultRepresentativeMismatch, nil
	}
	if authority.Epoch < common.Epoch1 {
		return ResultBlockPosition, nil
	}
	if !b.Balance.IsZero() {
		return ResultBalanceMismatch, nil
	}
	sb := &types.Sideband{BlockType: types.BlockTypeState, Height: 1, Timestamp: p.now(), Epoch: authority.Epoch}
	if err := p.w.WriteBlock(hash, b, sb); err != nil {
		return 0, err
	}
	info := &rawdb.AccountInfo{
		Head:       hash,
		OpenBlock:  hash,
		Modified:   p.now(),
		BlockCount: 1,
		Epoch:      authority.Epoch,
	}
	if err := p.w.WriteAccount(b.Account, info); err != nil {
		return 0, err
	}
	return ResultProgress, nil
}

func verificationForEpoch(v Verification) Verification {
	if v == VerificationValidEpoch {
		return VerificationValid
	}
	if v == VerificationValid {
		// A caller-supplied "Valid" hint was computed against the
		// account key, not the epoch authority; it does not apply here.
		return VerificationUnknown
	}
	return v
}
