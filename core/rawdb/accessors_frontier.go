package rawdb

import (
	"github.com/btcnew-node/ledger/common"
	"github.com/btcnew-node/ledger/kv"
)

// FrontierPut indexes a legacy chain head to its owning account.
// State-block heads are deliberately never written here — that
// omission is the mechanism that prevents legacy blocks from being
// threaded onto a chain after it has published a state block (spec.md
// §3, §4.2).
func FrontierPut(tx kv.RwTx, head common.Hash, account common.Account) error {
	return tx.Put(kv.Frontier, head[:], account[:])
}

func FrontierGet(tx kv.Tx, head common.Hash) (common.Account, bool, error) {
	raw, err := tx.GetOne(kv.Frontier, head[:])
	if err != nil || raw == nil {
		return common.ZeroHash, false, err
	}
	acc, err := common.HashFromBytes(raw)
	return acc, err == nil, err
}

func FrontierDel(tx kv.RwTx, head common.Hash) error {
	return tx.Delete(kv.Frontier, head[:])
}
