// Package confirmheight implements the confirmation-height processor
// described as "interface only" in spec.md §4.5: the ledger owns the
// confirmation-height table, but the policy deciding which blocks are
// confirmed belongs to an external collaborator (election/consensus),
// which calls Submit.
package confirmheight

import (
	"github.com/btcnew-node/ledger/common"
	"github.com/btcnew-node/ledger/core/types"
)

// Writer is the minimal store surface Submit needs; *state.AccountWriter
// satisfies it.
type Writer interface {
	ReadBlock(hash common.Hash) (types.Block, *types.Sideband, error)
	ReadConfirmationHeight(account common.Account) (uint64, error)
	WriteConfirmationHeight(account common.Account, height uint64) error
}

// Processor advances confirmation height for the account chain that
// hash belongs to.
type Processor struct {
	w Writer
}

func NewProcessor(w Writer) *Processor { return &Processor{w: w} }

// Submit records hash as confirmed: the account it belongs to has its
// confirmation height advanced to hash's own height, provided that is
// higher than what is already recorded (spec.md: "walks back ... until
// it reaches a height it has already recorded, then atomically
// advances the height"). Previous blocks reached by walking Previous
// pointers always belong to the same account, so a single read/compare/
// write pair against that one account fully implements the contract;
// no other account is "touched" by a single submission.
func (p *Processor) Submit(hash common.Hash) error {
	blk, sb, err := p.w.ReadBlock(hash)
	if err != nil {
		return err
	}
	if blk == nil {
		return nil
	}
	account, err := accountOf(blk, sb)
	if err != nil {
		return err
	}
	height, err := p.w.ReadConfirmationHeight(account)
	if err != nil {
		return err
	}
	if sb.Height <= height {
		return nil
	}
	return p.w.WriteConfirmationHeight(account, sb.Height)
}

func accountOf(b types.Block, sb *types.Sideband) (common.Account, error) {
	if sblk, ok := b.(*types.StateBlock); ok {
		return sblk.Account, nil
	}
	return sb.Account, nil
}
