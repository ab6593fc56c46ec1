package rawdb

import (
	"bytes"
	"encoding/binary"

	"github.com/btcnew-node/ledger/common"
	"github.com/btcnew-node/ledger/core/types"
	"github.com/btcnew-node/ledger/kv"
)

// UncheckedInfo is the value recorded for an orphan block waiting on a
// missing dependency (spec.md §3 "Unchecked store").
type UncheckedInfo struct {
	Block       types.Block
	ArrivalTime uint64
	Verified    bool
}

// uncheckedKey is the table's dup-emulated composite key: the missing
// dependency hash, followed by the waiting block's own hash, so that a
// single dependency can block more than one orphan (kv.Unchecked is
// marked dup-sort in kv.DupSortTable; kv/mdbx opens it with MDBX's
// native dup-sort flag, kv/memdb relies on this composite key to get
// the same multi-valued behavior from a single-valued btree).
func uncheckedKey(dependency, blockHash common.Hash) []byte {
	out := make([]byte, 0, 64)
	out = append(out, dependency[:]...)
	out = append(out, blockHash[:]...)
	return out
}

func encodeUnchecked(info *UncheckedInfo) []byte {
	out := make([]byte, 0, 17+64)
	var buf8 [8]byte
	binary.BigEndian.PutUint64(buf8[:], info.ArrivalTime)
	out = append(out, buf8[:]...)
	if info.Verified {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	out = append(out, byte(info.Block.Type()))
	out = append(out, types.Encode(info.Block)...)
	return out
}

func decodeUnchecked(data []byte) (*UncheckedInfo, error) {
	if len(data) < 10 {
		return nil, ErrCorrupted("unchecked row too short")
	}
	arrival := binary.BigEndian.Uint64(data[0:8])
	verified := data[8] != 0
	bt := types.BlockType(data[9])
	b, err := types.Decode(bt, data[10:])
	if err != nil {
		return nil, err
	}
	return &UncheckedInfo{Block: b, ArrivalTime: arrival, Verified: verified}, nil
}

// UncheckedPut buffers blockHash as waiting on dependency.
func UncheckedPut(tx kv.RwTx, dependency, blockHash common.Hash, info *UncheckedInfo) error {
	return tx.Put(kv.Unchecked, uncheckedKey(dependency, blockHash), encodeUnchecked(info))
}

// UncheckedGet returns every orphan waiting on dependency.
func UncheckedGet(tx kv.Tx, dependency common.Hash) ([]*UncheckedInfo, error) {
	c, err := tx.Cursor(kv.Unchecked)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	var out []*UncheckedInfo
	k, v, err := c.Seek(dependency[:])
	for k != nil && err == nil {
		if len(k) < 32 || !bytes.Equal(k[:32], dependency[:]) {
			break
		}
		info, derr := decodeUnchecked(v)
		if derr != nil {
			return nil, derr
		}
		out = append(out, info)
		k, v, err = c.Next()
	}
	return out, err
}

// UncheckedDel removes the single orphan entry keyed by (dependency,
// blockHash) — used once that orphan has been re-validated.
func UncheckedDel(tx kv.RwTx, dependency, blockHash common.Hash) error {
	return tx.Delete(kv.Unchecked, uncheckedKey(dependency, blockHash))
}

// UncheckedCount returns the total number of buffered orphan rows.
func UncheckedCount(tx kv.Tx) (uint64, error) {
	return tx.Count(kv.Unchecked)
}

// UncheckedRow is a full (dependency, blockHash, info) triple, used by
// UncheckedBegin to walk the whole table for GC.
type UncheckedRow struct {
	Dependency common.Hash
	BlockHash  common.Hash
	Info       *UncheckedInfo
}

func UncheckedBegin(tx kv.Tx) (*UncheckedCursor, error) {
	c, err := tx.Cursor(kv.Unchecked)
	if err != nil {
		return nil, err
	}
	return &UncheckedCursor{c: c}, nil
}

type UncheckedCursor struct {
	c kv.Cursor
}

func (uc *UncheckedCursor) First() (*UncheckedRow, error) {
	k, v, err := uc.c.First()
	return uncheckedRowDecode(k, v, err)
}

func (uc *UncheckedCursor) Next() (*UncheckedRow, error) {
	k, v, err := uc.c.Next()
	return uncheckedRowDecode(k, v, err)
}

func (uc *UncheckedCursor) Close() { uc.c.Close() }

func uncheckedRowDecode(k, v []byte, err error) (*UncheckedRow, error) {
	if err != nil || k == nil {
		return nil, err
	}
	if len(k) != 64 {
		return nil, ErrCorrupted("unchecked key wrong length")
	}
	var dep, bh common.Hash
	copy(dep[:], k[0:32])
	copy(bh[:], k[32:64])
	info, err := decodeUnchecked(v)
	if err != nil {
		return nil, err
	}
	return &UncheckedRow{Dependency: dep, BlockHash: bh, Info: info}, nil
}
