// Package unchecked buffers blocks that arrived before a dependency
// they need (spec.md §4.6): a previous, source, or link hash the store
// does not yet have. Entries wake and re-submit themselves once their
// dependency commits, and age out via a bounded batch GC.
package unchecked

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/btcnew-node/ledger/common"
	"github.com/btcnew-node/ledger/core/rawdb"
	"github.com/btcnew-node/ledger/core/types"
	"github.com/btcnew-node/ledger/kv"
)

// Clock returns wall-clock seconds, the same indirection core/ledger's
// Clock uses, so arrival times are stampable with a fixed clock in
// tests.
type Clock func() uint64

// Resubmit is the caller-supplied hook that attempts to process a
// previously-blocked block again. The caller adapts ledger.Processor's
// Result into this shape: ResultProgress maps to progressed=true;
// ResultGapPrevious/ResultGapSource map to progressed=false with
// blockedOn set to the still-missing hash; every other result maps to
// progressed=false with a zero blockedOn, meaning the block is
// rejected outright and should not be re-buffered.
type Resubmit func(b types.Block) (progressed bool, blockedOn common.Hash, err error)

// Store is a thin, test-friendly wrapper over core/rawdb's unchecked
// accessors.
type Store struct {
	now Clock
}

func New(now Clock) *Store { return &Store{now: now} }

// Buffer records b as waiting on dependency.
func (s *Store) Buffer(tx kv.RwTx, dependency, blockHash common.Hash, b types.Block) error {
	return rawdb.UncheckedPut(tx, dependency, blockHash, &rawdb.UncheckedInfo{
		Block:       b,
		ArrivalTime: s.now(),
	})
}

// Wake re-submits every entry blocked on dependency, which has just
// committed. An entry whose resubmission still reports a (possibly
// different) missing dependency is re-buffered under that new key
// rather than left under the stale one; an entry that progresses is
// dropped. The entries are read once, before any resubmission, so an
// entry re-buffered under dependency itself is not revisited in the same
// call; visited additionally ensures each block hash is resubmitted at
// most once per Wake call.
func (s *Store) Wake(tx kv.RwTx, dependency common.Hash, resubmit Resubmit) error {
	pending, err := rawdb.UncheckedGet(tx, dependency)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	visited := mapset.NewSet[common.Hash]()
	for _, info := range pending {
		blockHash := types.Hash(info.Block)
		if err := rawdb.UncheckedDel(tx, dependency, blockHash); err != nil {
			return err
		}
		if err := s.resubmitOne(tx, blockHash, info, resubmit, visited); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) resubmitOne(tx kv.RwTx, blockHash common.Hash, info *rawdb.UncheckedInfo, resubmit Resubmit, visited mapset.Set[common.Hash]) error {
	if visited.Contains(blockHash) {
		return nil
	}
	visited.Add(blockHash)
	progressed, blockedOn, err := resubmit(info.Block)
	if err != nil {
		return err
	}
	if progressed {
		// A commit may itself unblock entries keyed on blockHash; the
		// caller's commit-observer loop drives that, not this call.
		return nil
	}
	if blockedOn.IsZero() {
		// Rejected outright (bad signature, fork, ...): drop it, it will
		// never become valid by waiting longer.
		return nil
	}
	return rawdb.UncheckedPut(tx, blockedOn, blockHash, &rawdb.UncheckedInfo{
		Block:       info.Block,
		ArrivalTime: info.ArrivalTime,
	})
}

// Count returns the number of buffered orphans.
func (s *Store) Count(tx kv.Tx) (uint64, error) {
	return rawdb.UncheckedCount(tx)
}
