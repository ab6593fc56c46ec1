// Package types defines the closed block taxonomy of the account-chain
// protocol — open, send, receive, change and state blocks — their
// canonical wire encoding, their hash, and the per-block sideband
// metadata persisted alongside each block.
//
// The taxonomy is closed and dispatch over it is exhaustive (spec.md §9
// "Design Notes"): rather than modelling the five kinds with an open
// inheritance hierarchy, every consumer that needs to branch on kind
// implements the Visitor interface below and calls Accept, the same
// tagged-union-with-visitor shape the teacher uses for closed taxonomies
// elsewhere in the pack (e.g. state-test subtests keyed by fork name).
package types

import (
	"github.com/btcnew-node/ledger/common"
)

// BlockType enumerates the five wire block kinds.
type BlockType uint8

const (
	BlockTypeInvalid BlockType = iota
	BlockTypeOpen
	BlockTypeSend
	BlockTypeReceive
	BlockTypeChange
	BlockTypeState
)

func (t BlockType) String() string {
	switch t {
	case BlockTypeOpen:
		return "open"
	case BlockTypeSend:
		return "send"
	case BlockTypeReceive:
		return "receive"
	case BlockTypeChange:
		return "change"
	case BlockTypeState:
		return "state"
	default:
		return "invalid"
	}
}

// Block is implemented by all five block kinds. Root, signature and work
// are common to every kind; everything else is kind-specific and reached
// through Accept/Visitor double dispatch or a type switch.
type Block interface {
	Type() BlockType
	Root() common.Root
	Signature() common.Signature
	SetSignature(common.Signature)
	Work() common.Work
	SetWork(common.Work)
	// SigningInput returns the bytes that are hashed to produce the
	// block hash and that are Ed25519-verified against the signature:
	// the canonical field layout of spec.md §6, excluding signature and
	// work.
	SigningInput() []byte
}

// Visitor is implemented by each consumer that dispatches on block kind
// (the ledger processor, the rollback engine). Accept performs the
// double dispatch; each Visit method is expected to stash its outcome on
// the visitor itself rather than return it, since a single return type
// shared across five heterogeneous operations would defeat the purpose
// of a closed, exhaustive switch.
type Visitor interface {
	VisitOpen(*OpenBlock)
	VisitSend(*SendBlock)
	VisitReceive(*ReceiveBlock)
	VisitChange(*ChangeBlock)
	VisitState(*StateBlock)
}

// Accept dispatches b to the matching Visit method of v. It panics on an
// unrecognized concrete type, which can only happen if a new Block
// implementation is added without updating Visitor — a compile-time
// taxonomy change, not a runtime condition.
func Accept(b Block, v Visitor) {
	switch t := b.(type) {
	case *OpenBlock:
		v.VisitOpen(t)
	case *SendBlock:
		v.VisitSend(t)
	case *ReceiveBlock:
		v.VisitReceive(t)
	case *ChangeBlock:
		v.VisitChange(t)
	case *StateBlock:
		v.VisitState(t)
	default:
		panic("types: unrecognized block kind in Accept")
	}
}

// OpenBlock is the first block of a legacy (pre-state) account chain.
type OpenBlock struct {
	Source         common.Hash
	Representative common.Hash
	Account        common.Hash
	Sig            common.Signature
	W              common.Work
}

func (b *OpenBlock) Type() BlockType              { return BlockTypeOpen }
func (b *OpenBlock) Root() common.Root            { return b.Account }
func (b *OpenBlock) Signature() common.Signature  { return b.Sig }
func (b *OpenBlock) SetSignature(s common.Signature) { b.Sig = s }
func (b *OpenBlock) Work() common.Work            { return b.W }
func (b *OpenBlock) SetWork(w common.Work)        { b.W = w }

// SendBlock debits an account's legacy chain and creates a pending entry
// for the destination.
type SendBlock struct {
	Previous    common.Hash
	Destination common.Hash
	Balance     common.Amount
	Sig         common.Signature
	W           common.Work
}

func (b *SendBlock) Type() BlockType                 { return BlockTypeSend }
func (b *SendBlock) Root() common.Root               { return b.Previous }
func (b *SendBlock) Signature() common.Signature     { return b.Sig }
func (b *SendBlock) SetSignature(s common.Signature) { b.Sig = s }
func (b *SendBlock) Work() common.Work               { return b.W }
func (b *SendBlock) SetWork(w common.Work)           { b.W = w }

// ReceiveBlock consumes a pending entry created by a legacy send.
type ReceiveBlock struct {
	Previous common.Hash
	Source   common.Hash
	Sig      common.Signature
	W        common.Work
}

func (b *ReceiveBlock) Type() BlockType                 { return BlockTypeReceive }
func (b *ReceiveBlock) Root() common.Root               { return b.Previous }
func (b *ReceiveBlock) Signature() common.Signature     { return b.Sig }
func (b *ReceiveBlock) SetSignature(s common.Signature) { b.Sig = s }
func (b *ReceiveBlock) Work() common.Work               { return b.W }
func (b *ReceiveBlock) SetWork(w common.Work)           { b.W = w }

// ChangeBlock replaces an account's representative without moving funds.
type ChangeBlock struct {
	Previous       common.Hash
	Representative common.Hash
	Sig            common.Signature
	W              common.Work
}

func (b *ChangeBlock) Type() BlockType                 { return BlockTypeChange }
func (b *ChangeBlock) Root() common.Root               { return b.Previous }
func (b *ChangeBlock) Signature() common.Signature     { return b.Sig }
func (b *ChangeBlock) SetSignature(s common.Signature) { b.Sig = s }
func (b *ChangeBlock) Work() common.Work               { return b.W }
func (b *ChangeBlock) SetWork(w common.Work)           { b.W = w }

// StateBlock is the unified modern block kind: open, send, receive,
// change and epoch-upgrade all share this shape, disambiguated by
// comparing Balance/Link against the predecessor (core/ledger does that
// comparison; this type only carries the fields).
type StateBlock struct {
	Account        common.Hash
	Previous       common.Hash
	Representative common.Hash
	Balance        common.Amount
	Link           common.Hash
	Sig            common.Signature
	W              common.Work
}

func (b *StateBlock) Type() BlockType { return BlockTypeState }

// Root is Previous for a continuing chain, or Account for the opening
// block of a chain (spec.md §3 table).
func (b *StateBlock) Root() common.Root {
	if b.Previous.IsZero() {
		return b.Account
	}
	return b.Previous
}
func (b *StateBlock) Signature() common.Signature     { return b.Sig }
func (b *StateBlock) SetSignature(s common.Signature) { b.Sig = s }
func (b *StateBlock) Work() common.Work               { return b.W }
func (b *StateBlock) SetWork(w common.Work)           { b.W = w }

// IsLegacy reports whether t is one of the four pre-state block kinds.
func IsLegacy(t BlockType) bool {
	switch t {
	case BlockTypeOpen, BlockTypeSend, BlockTypeReceive, BlockTypeChange:
		return true
	default:
		return false
	}
}
