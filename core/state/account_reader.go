// Package state is the rebindable read/write facade the ledger
// processor and rollback engine call through, shielding them from the
// table layout core/rawdb exposes. The shape is the same one
// core/state/history_reader_v3.go uses: a single struct holding the
// current transaction, rebound per call via SetTx rather than
// constructed fresh, so the processor can reuse one reader across an
// entire batch of blocks in the same write transaction.
package state

import (
	"github.com/btcnew-node/ledger/common"
	"github.com/btcnew-node/ledger/core/rawdb"
	"github.com/btcnew-node/ledger/core/types"
	"github.com/btcnew-node/ledger/kv"
)

// AccountReader answers every read the processor and rollback engine
// need against a read-only (or read-write, via RwTx's Tx embedding)
// transaction.
type AccountReader struct {
	tx      kv.Tx
	version types.SidebandVersion
	trace   bool
}

func NewAccountReader(version types.SidebandVersion) *AccountReader {
	return &AccountReader{version: version}
}

func (r *AccountReader) SetTx(tx kv.Tx)      { r.tx = tx }
func (r *AccountReader) SetTrace(trace bool) { r.trace = trace }

func (r *AccountReader) ReadAccount(account common.Account) (*rawdb.AccountInfo, bool, error) {
	info, err := rawdb.AccountGet(r.tx, account)
	if err != nil || info == nil {
		return nil, false, err
	}
	return info, true, nil
}

func (r *AccountReader) ReadBlock(hash common.Hash) (types.Block, *types.Sideband, error) {
	return rawdb.BlockGet(r.tx, hash, r.version)
}

func (r *AccountReader) BlockExists(hash common.Hash) (bool, error) {
	return rawdb.BlockExists(r.tx, hash)
}

func (r *AccountReader) ReadPending(key rawdb.PendingKey) (*rawdb.PendingInfo, bool, error) {
	info, err := rawdb.PendingGet(r.tx, key)
	if err != nil || info == nil {
		return nil, false, err
	}
	return info, true, nil
}

func (r *AccountReader) ReadFrontier(head common.Hash) (common.Account, bool, error) {
	return rawdb.FrontierGet(r.tx, head)
}

func (r *AccountReader) ReadConfirmationHeight(account common.Account) (uint64, error) {
	return rawdb.ConfirmationHeightGet(r.tx, account)
}

// AccountWriter extends AccountReader with the mutating calls the
// processor and rollback engine issue, all against the one RwTx the
// write queue hands out at a time (spec.md §5).
type AccountWriter struct {
	AccountReader
	rwtx kv.RwTx
}

func NewAccountWriter(version types.SidebandVersion) *AccountWriter {
	return &AccountWriter{AccountReader: AccountReader{version: version}}
}

func (w *AccountWriter) SetRwTx(tx kv.RwTx) {
	w.rwtx = tx
	w.AccountReader.SetTx(tx)
}

func (w *AccountWriter) WriteAccount(account common.Account, info *rawdb.AccountInfo) error {
	return rawdb.AccountPut(w.rwtx, account, info)
}

func (w *AccountWriter) DeleteAccount(account common.Account) error {
	return rawdb.AccountDel(w.rwtx, account)
}

func (w *AccountWriter) WriteBlock(hash common.Hash, b types.Block, sb *types.Sideband) error {
	return rawdb.BlockPut(w.rwtx, hash, b, sb, w.version)
}

func (w *AccountWriter) DeleteBlock(hash common.Hash) error {
	return rawdb.BlockDel(w.rwtx, hash)
}

func (w *AccountWriter) SetSuccessor(hash, successor common.Hash) error {
	return rawdb.BlockSuccessorSet(w.rwtx, hash, successor, w.version)
}

func (w *AccountWriter) ClearSuccessor(hash common.Hash) error {
	return rawdb.BlockSuccessorClear(w.rwtx, hash, w.version)
}

func (w *AccountWriter) WritePending(key rawdb.PendingKey, info *rawdb.PendingInfo) error {
	return rawdb.PendingPut(w.rwtx, key, info)
}

func (w *AccountWriter) DeletePending(key rawdb.PendingKey) error {
	return rawdb.PendingDel(w.rwtx, key)
}

func (w *AccountWriter) WriteFrontier(head common.Hash, account common.Account) error {
	return rawdb.FrontierPut(w.rwtx, head, account)
}

func (w *AccountWriter) DeleteFrontier(head common.Hash) error {
	return rawdb.FrontierDel(w.rwtx, head)
}

func (w *AccountWriter) WriteConfirmationHeight(account common.Account, height uint64) error {
	return rawdb.ConfirmationHeightPut(w.rwtx, account, height)
}
