package ledger

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/btcnew-node/ledger/common"
	"github.com/btcnew-node/ledger/core/epoch"
	"github.com/btcnew-node/ledger/core/rawdb"
	"github.com/btcnew-node/ledger/core/state"
	"github.com/btcnew-node/ledger/core/types"
)

// ErrConfirmedBlock is returned when a rollback would cross an
// account's confirmation-height barrier (spec.md §4.3): the operation
// aborts atomically and the store is left exactly as it was.
var ErrConfirmedBlock = errors.New("ledger: cannot roll back a confirmed block")

// ErrUnknownBlock means the block named for rollback, or one it
// transitively depends on, is not in the store.
var ErrUnknownBlock = errors.New("ledger: block not found")

// RolledBlock is one entry of a rollback's reverse-chronological
// result list (spec.md §4.3 "for observers").
type RolledBlock struct {
	Hash    common.Hash
	Account common.Account
	Block   types.Block
}

// Rollback is the inverse of Processor: it walks an account chain
// backward from its head, undoing one block at a time, down to and
// including a named target block.
type Rollback struct {
	w       *state.AccountWriter
	weights WeightSink
	epochs  *epoch.Registry
	now     Clock
	log     *zap.Logger
}

func NewRollback(w *state.AccountWriter, weights WeightSink, epochs *epoch.Registry, now Clock, log *zap.Logger) *Rollback {
	if log == nil {
		log = zap.NewNop()
	}
	return &Rollback{w: w, weights: weights, epochs: epochs, now: now, log: log}
}

// Rollback undoes target and every block committed after it on the
// same account chain, cascading into any other chain that received a
// send this range produced, so the pending entries those sends
// created can be correctly recreated.
func (rb *Rollback) Rollback(target common.Hash) ([]RolledBlock, error) {
	b, sb, err := rb.w.ReadBlock(target)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrUnknownBlock
	}
	account, err := ownerOf(b, sb)
	if err != nil {
		return nil, err
	}
	return rb.rollbackChainDownTo(account, target)
}

func (rb *Rollback) rollbackChainDownTo(account common.Account, target common.Hash) ([]RolledBlock, error) {
	acct, ok, err := rb.w.ReadAccount(account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnknownBlock
	}
	_, targetSb, err := rb.w.ReadBlock(target)
	if err != nil {
		return nil, err
	}
	if targetSb == nil {
		return nil, ErrUnknownBlock
	}
	height, err := rb.w.ReadConfirmationHeight(account)
	if err != nil {
		return nil, err
	}
	if targetSb.Height <= height {
		rb.log.Debug("rollback: target behind confirmation height",
			zap.Stringer("target", target), zap.Uint64("confirmationHeight", height), zap.Uint64("targetHeight", targetSb.Height))
		return nil, ErrConfirmedBlock
	}

	var rolled []RolledBlock
	cur := acct.Head
	for {
		curBlock, curSb, err := rb.w.ReadBlock(cur)
		if err != nil {
			return nil, err
		}
		if curBlock == nil {
			return nil, ErrUnknownBlock
		}
		rv := &rollbackVisitor{rb: rb, hash: cur, account: account, sb: curSb}
		types.Accept(curBlock, rv)
		if rv.err != nil {
			rb.log.Error("rollback: undo failed", zap.Stringer("hash", cur), zap.Error(rv.err))
			return nil, rv.err
		}
		rolled = append(rolled, RolledBlock{Hash: cur, Account: account, Block: curBlock})
		if cur == target {
			break
		}
		cur = rv.previous
	}
	rb.log.Info("rollback: complete", zap.Stringer("target", target), zap.Int("blocksRolledBack", len(rolled)))
	return rolled, nil
}

func ownerOf(b types.Block, sb *types.Sideband) (common.Account, error) {
	if sblk, ok := b.(*types.StateBlock); ok {
		return sblk.Account, nil
	}
	if sb == nil {
		return common.ZeroHash, ErrUnknownBlock
	}
	return sb.Account, nil
}

// senderOf recovers the account that committed a send/open/state-send,
// for pending entries rollback must recreate. Legacy sidebands
// denormalize the owning account; state blocks already carry it.
func senderOf(b types.Block, sb *types.Sideband) common.Account {
	if sblk, ok := b.(*types.StateBlock); ok {
		return sblk.Account
	}
	return sb.Account
}

type rollbackVisitor struct {
	rb       *Rollback
	hash     common.Hash
	account  common.Account
	sb       *types.Sideband
	previous common.Hash
	err      error
}

func (v *rollbackVisitor) VisitOpen(b *types.OpenBlock) {
	v.previous = common.ZeroHash
	v.err = v.rb.undoOpen(v.hash, b, v.account)
}
func (v *rollbackVisitor) VisitSend(b *types.SendBlock) {
	v.previous = b.Previous
	v.err = v.rb.undoSend(v.hash, b, v.account)
}
func (v *rollbackVisitor) VisitReceive(b *types.ReceiveBlock) {
	v.previous = b.Previous
	v.err = v.rb.undoReceive(v.hash, b, v.account)
}
func (v *rollbackVisitor) VisitChange(b *types.ChangeBlock) {
	v.previous = b.Previous
	v.err = v.rb.undoChange(v.hash, b, v.account)
}
func (v *rollbackVisitor) VisitState(b *types.StateBlock) {
	v.previous = b.Previous
	v.err = v.rb.undoState(v.hash, b, v.sb)
}

// findConsumer scans destination's chain for the block that consumed
// a pending entry keyed by sourceHash, walking back from the current
// head. Bounded by the account's own block count.
func (rb *Rollback) findConsumer(destination common.Account, sourceHash common.Hash) (common.Hash, error) {
	acct, ok, err := rb.w.ReadAccount(destination)
	if err != nil || !ok {
		return common.ZeroHash, err
	}
	cur := acct.Head
	for i := uint64(0); i < acct.BlockCount && !cur.IsZero(); i++ {
		blk, _, err := rb.w.ReadBlock(cur)
		if err != nil {
			return common.ZeroHash, err
		}
		if blk == nil {
			break
		}
		switch t := blk.(type) {
		case *types.ReceiveBlock:
			if t.Source == sourceHash {
				return cur, nil
			}
			cur = t.Previous
		case *types.OpenBlock:
			if t.Source == sourceHash {
				return cur, nil
			}
			cur = common.ZeroHash
		case *types.StateBlock:
			if t.Link == sourceHash {
				return cur, nil
			}
			cur = t.Previous
		case *types.SendBlock:
			cur = t.Previous
		case *types.ChangeBlock:
			cur = t.Previous
		default:
			cur = common.ZeroHash
		}
	}
	return common.ZeroHash, nil
}

// representativeBefore recovers the representative in effect at hash,
// walking back through legacy send/receive blocks (which carry no
// representative field of their own) to the nearest open or change
// block.
func (rb *Rollback) representativeBefore(hash common.Hash) (common.Hash, error) {
	cur := hash
	for !cur.IsZero() {
		blk, _, err := rb.w.ReadBlock(cur)
		if err != nil {
			return common.ZeroHash, err
		}
		if blk == nil {
			return common.ZeroHash, ErrUnknownBlock
		}
		switch t := blk.(type) {
		case *types.OpenBlock:
			return t.Representative, nil
		case *types.ChangeBlock:
			return t.Representative, nil
		case *types.SendBlock:
			cur = t.Previous
		case *types.ReceiveBlock:
			cur = t.Previous
		default:
			return common.ZeroHash, ErrUnknownBlock
		}
	}
	return common.ZeroHash, ErrUnknownBlock
}

func (rb *Rollback) undoSend(hash common.Hash, b *types.SendBlock, account common.Account) error {
	pk := rawdb.PendingKey{Destination: b.Destination, Hash: hash}
	_, stillPending, err := rb.w.ReadPending(pk)
	if err != nil {
		return err
	}
	if !stillPending {
		consumer, err := rb.findConsumer(b.Destination, hash)
		if err != nil {
			return err
		}
		if !consumer.IsZero() {
			if _, err := rb.rollbackChainDownTo(b.Destination, consumer); err != nil {
				return err
			}
		}
	}

	acct, ok, err := rb.w.ReadAccount(account)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownBlock
	}
	predBlock, predSb, err := rb.w.ReadBlock(b.Previous)
	if err != nil {
		return err
	}
	if predBlock == nil {
		return ErrUnknownBlock
	}
	previousBalance := predSb.Balance
	amount, err := previousBalance.Sub(acct.Balance)
	if err != nil {
		return err
	}
	if err := rb.w.WritePending(pk, &rawdb.PendingInfo{Source: account, Amount: amount, Epoch: common.Epoch0}); err != nil {
		return err
	}
	if err := rb.w.WriteFrontier(b.Previous, account); err != nil {
		return err
	}
	if err := rb.w.DeleteFrontier(hash); err != nil {
		return err
	}
	if err := rb.w.ClearSuccessor(b.Previous); err != nil {
		return err
	}
	if err := rb.w.DeleteBlock(hash); err != nil {
		return err
	}
	acct.Head = b.Previous
	acct.Balance = previousBalance
	acct.BlockCount--
	acct.Modified = rb.now()
	if err := rb.w.WriteAccount(account, acct); err != nil {
		return err
	}
	return rb.weights.Add(acct.Representative, amount)
}

func (rb *Rollback) undoReceive(hash common.Hash, b *types.ReceiveBlock, account common.Account) error {
	acct, ok, err := rb.w.ReadAccount(account)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownBlock
	}
	srcBlock, srcSb, err := rb.w.ReadBlock(b.Source)
	if err != nil {
		return err
	}
	if srcBlock == nil {
		return ErrUnknownBlock
	}
	predBlock, predSb, err := rb.w.ReadBlock(b.Previous)
	if err != nil {
		return err
	}
	if predBlock == nil {
		return ErrUnknownBlock
	}
	previousBalance := predSb.Balance
	amount, err := acct.Balance.Sub(previousBalance)
	if err != nil {
		return err
	}
	pk := rawdb.PendingKey{Destination: account, Hash: b.Source}
	if err := rb.w.WritePending(pk, &rawdb.PendingInfo{Source: senderOf(srcBlock, srcSb), Amount: amount, Epoch: common.Epoch0}); err != nil {
		return err
	}
	if err := rb.w.WriteFrontier(b.Previous, account); err != nil {
		return err
	}
	if err := rb.w.DeleteFrontier(hash); err != nil {
		return err
	}
	if err := rb.w.ClearSuccessor(b.Previous); err != nil {
		return err
	}
	if err := rb.w.DeleteBlock(hash); err != nil {
		return err
	}
	acct.Head = b.Previous
	acct.Balance = previousBalance
	acct.BlockCount--
	acct.Modified = rb.now()
	if err := rb.w.WriteAccount(account, acct); err != nil {
		return err
	}
	return rb.weights.Sub(acct.Representative, amount)
}

func (rb *Rollback) undoOpen(hash common.Hash, b *types.OpenBlock, account common.Account) error {
	acct, ok, err := rb.w.ReadAccount(account)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownBlock
	}
	srcBlock, srcSb, err := rb.w.ReadBlock(b.Source)
	if err != nil {
		return err
	}
	if srcBlock == nil {
		return ErrUnknownBlock
	}
	pk := rawdb.PendingKey{Destination: account, Hash: b.Source}
	if err := rb.w.WritePending(pk, &rawdb.PendingInfo{Source: senderOf(srcBlock, srcSb), Amount: acct.Balance, Epoch: common.Epoch0}); err != nil {
		return err
	}
	if err := rb.w.DeleteFrontier(hash); err != nil {
		return err
	}
	if err := rb.w.DeleteBlock(hash); err != nil {
		return err
	}
	if err := rb.w.DeleteAccount(account); err != nil {
		return err
	}
	return rb.weights.Sub(acct.Representative, acct.Balance)
}

func (rb *Rollback) undoChange(hash common.Hash, b *types.ChangeBlock, account common.Account) error {
	acct, ok, err := rb.w.ReadAccount(account)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownBlock
	}
	previousRep, err := rb.representativeBefore(b.Previous)
	if err != nil {
		return err
	}
	newRep := acct.Representative
	if err := rb.w.WriteFrontier(b.Previous, account); err != nil {
		return err
	}
	if err := rb.w.DeleteFrontier(hash); err != nil {
		return err
	}
	if err := rb.w.ClearSuccessor(b.Previous); err != nil {
		return err
	}
	if err := rb.w.DeleteBlock(hash); err != nil {
		return err
	}
	acct.Head = b.Previous
	acct.Representative = previousRep
	acct.BlockCount--
	acct.Modified = rb.now()
	if err := rb.w.WriteAccount(account, acct); err != nil {
		return err
	}
	if err := rb.weights.Sub(newRep, acct.Balance); err != nil {
		return err
	}
	return rb.weights.Add(previousRep, acct.Balance)
}

func (rb *Rollback) undoState(hash common.Hash, b *types.StateBlock, sb *types.Sideband) error {
	if _, isEpoch := rb.epochs.Lookup(b.Link); isEpoch {
		return rb.undoStateEpoch(hash, b)
	}
	if b.Previous.IsZero() {
		return rb.undoStateOpen(hash, b)
	}
	acct, ok, err := rb.w.ReadAccount(b.Account)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownBlock
	}
	predBlock, predSb, err := rb.w.ReadBlock(b.Previous)
	if err != nil {
		return err
	}
	predState, ok := predBlock.(*types.StateBlock)
	if !ok {
		return ErrUnknownBlock
	}
	cmp := acct.Balance.Cmp(predState.Balance)
	switch {
	case cmp == 0:
		return rb.undoStateRepChange(hash, b, acct, predState)
	case cmp < 0:
		return rb.undoStateSend(hash, b, acct, predState)
	default:
		return rb.undoStateReceive(hash, b, acct, predState, predSb)
	}
}

func (rb *Rollback) undoStateRepChange(hash common.Hash, b *types.StateBlock, acct *rawdb.AccountInfo, pred *types.StateBlock) error {
	oldRep := pred.Representative
	newRep := acct.Representative
	if err := rb.w.ClearSuccessor(b.Previous); err != nil {
		return err
	}
	if err := rb.w.DeleteBlock(hash); err != nil {
		return err
	}
	acct.Head = b.Previous
	acct.Representative = oldRep
	acct.BlockCount--
	acct.Modified = rb.now()
	if err := rb.w.WriteAccount(b.Account, acct); err != nil {
		return err
	}
	if oldRep == newRep {
		return nil
	}
	if err := rb.weights.Sub(newRep, acct.Balance); err != nil {
		return err
	}
	return rb.weights.Add(oldRep, acct.Balance)
}

func (rb *Rollback) undoStateSend(hash common.Hash, b *types.StateBlock, acct *rawdb.AccountInfo, pred *types.StateBlock) error {
	destination := b.Link
	pk := rawdb.PendingKey{Destination: destination, Hash: hash}
	_, stillPending, err := rb.w.ReadPending(pk)
	if err != nil {
		return err
	}
	if !stillPending {
		consumer, err := rb.findConsumer(destination, hash)
		if err != nil {
			return err
		}
		if !consumer.IsZero() {
			if _, err := rb.rollbackChainDownTo(destination, consumer); err != nil {
				return err
			}
		}
	}
	amount, err := pred.Balance.Sub(b.Balance)
	if err != nil {
		return err
	}
	if err := rb.w.WritePending(pk, &rawdb.PendingInfo{Source: b.Account, Amount: amount, Epoch: acct.Epoch}); err != nil {
		return err
	}
	if err := rb.w.ClearSuccessor(b.Previous); err != nil {
		return err
	}
	if err := rb.w.DeleteBlock(hash); err != nil {
		return err
	}
	currentRep := acct.Representative
	currentBalance := acct.Balance
	oldRep := pred.Representative
	acct.Head = b.Previous
	acct.Balance = pred.Balance
	acct.Representative = oldRep
	acct.BlockCount--
	acct.Modified = rb.now()
	if err := rb.w.WriteAccount(b.Account, acct); err != nil {
		return err
	}
	if oldRep == currentRep {
		return rb.weights.Add(oldRep, amount)
	}
	if err := rb.weights.Sub(currentRep, currentBalance); err != nil {
		return err
	}
	return rb.weights.Add(oldRep, pred.Balance)
}

func (rb *Rollback) undoStateReceive(hash common.Hash, b *types.StateBlock, acct *rawdb.AccountInfo, pred *types.StateBlock, predSb *types.Sideband) error {
	srcBlock, srcSb, err := rb.w.ReadBlock(b.Link)
	if err != nil {
		return err
	}
	if srcBlock == nil {
		return ErrUnknownBlock
	}
	amount, err := acct.Balance.Sub(pred.Balance)
	if err != nil {
		return err
	}
	pk := rawdb.PendingKey{Destination: b.Account, Hash: b.Link}
	if err := rb.w.WritePending(pk, &rawdb.PendingInfo{Source: senderOf(srcBlock, srcSb), Amount: amount, Epoch: srcSb.Epoch}); err != nil {
		return err
	}
	if err := rb.w.ClearSuccessor(b.Previous); err != nil {
		return err
	}
	if err := rb.w.DeleteBlock(hash); err != nil {
		return err
	}
	currentRep := acct.Representative
	currentBalance := acct.Balance
	oldRep := pred.Representative
	acct.Head = b.Previous
	acct.Balance = pred.Balance
	acct.Representative = oldRep
	acct.Epoch = predSb.Epoch
	acct.BlockCount--
	acct.Modified = rb.now()
	if err := rb.w.WriteAccount(b.Account, acct); err != nil {
		return err
	}
	if oldRep == currentRep {
		return rb.weights.Sub(oldRep, amount)
	}
	if err := rb.weights.Sub(currentRep, currentBalance); err != nil {
		return err
	}
	return rb.weights.Add(oldRep, pred.Balance)
}

func (rb *Rollback) undoStateOpen(hash common.Hash, b *types.StateBlock) error {
	acct, ok, err := rb.w.ReadAccount(b.Account)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownBlock
	}
	srcBlock, srcSb, err := rb.w.ReadBlock(b.Link)
	if err != nil {
		return err
	}
	if srcBlock == nil {
		return ErrUnknownBlock
	}
	pk := rawdb.PendingKey{Destination: b.Account, Hash: b.Link}
	if err := rb.w.WritePending(pk, &rawdb.PendingInfo{Source: senderOf(srcBlock, srcSb), Amount: acct.Balance, Epoch: srcSb.Epoch}); err != nil {
		return err
	}
	if err := rb.w.DeleteBlock(hash); err != nil {
		return err
	}
	if err := rb.w.DeleteAccount(b.Account); err != nil {
		return err
	}
	return rb.weights.Sub(acct.Representative, acct.Balance)
}

func (rb *Rollback) undoStateEpoch(hash common.Hash, b *types.StateBlock) error {
	acct, ok, err := rb.w.ReadAccount(b.Account)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownBlock
	}
	if b.Previous.IsZero() {
		if err := rb.w.DeleteBlock(hash); err != nil {
			return err
		}
		return rb.w.DeleteAccount(b.Account)
	}
	_, predSb, err := rb.w.ReadBlock(b.Previous)
	if err != nil {
		return err
	}
	if predSb == nil {
		return ErrUnknownBlock
	}
	if err := rb.w.ClearSuccessor(b.Previous); err != nil {
		return err
	}
	if err := rb.w.DeleteBlock(hash); err != nil {
		return err
	}
	acct.Head = b.Previous
	acct.Epoch = predSb.Epoch
	acct.BlockCount--
	acct.Modified = rb.now()
	return rb.w.WriteAccount(b.Account, acct)
}
