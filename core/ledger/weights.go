package ledger

import "github.com/btcnew-node/ledger/common"

// WeightSink is the representative-weight cache's write side, as seen
// by the processor and rollback engine (core/ledger/repweight.Cache
// implements it). Kept as a narrow interface here so this package
// never imports core/ledger/repweight, and repweight in turn imports
// nothing from core/ledger.
type WeightSink interface {
	Add(rep common.Account, amount common.Amount) error
	Sub(rep common.Account, amount common.Amount) error
}
