package rawdb

import (
	"encoding/binary"

	"github.com/btcnew-node/ledger/common"
	"github.com/btcnew-node/ledger/kv"
)

// AccountInfo is one row per account (spec.md §3).
type AccountInfo struct {
	Head           common.Hash
	Representative common.Hash
	OpenBlock      common.Hash
	Balance        common.Amount
	Modified       uint64
	BlockCount     uint64
	Epoch          common.Epoch
}

const accountInfoLen = 32 + 32 + 32 + common.AmountLength + 8 + 8 + 1

func encodeAccountInfo(a *AccountInfo) []byte {
	out := make([]byte, 0, accountInfoLen)
	out = append(out, a.Head[:]...)
	out = append(out, a.Representative[:]...)
	out = append(out, a.OpenBlock[:]...)
	out = append(out, a.Balance.Bytes()...)
	var buf8 [8]byte
	binary.BigEndian.PutUint64(buf8[:], a.Modified)
	out = append(out, buf8[:]...)
	binary.BigEndian.PutUint64(buf8[:], a.BlockCount)
	out = append(out, buf8[:]...)
	out = append(out, byte(a.Epoch))
	return out
}

func decodeAccountInfo(data []byte) (*AccountInfo, error) {
	if len(data) != accountInfoLen {
		return nil, ErrCorrupted("account info wrong length")
	}
	a := &AccountInfo{}
	copy(a.Head[:], data[0:32])
	copy(a.Representative[:], data[32:64])
	copy(a.OpenBlock[:], data[64:96])
	amt, err := common.AmountFromBytes(data[96:112])
	if err != nil {
		return nil, err
	}
	a.Balance = amt
	a.Modified = binary.BigEndian.Uint64(data[112:120])
	a.BlockCount = binary.BigEndian.Uint64(data[120:128])
	a.Epoch = common.Epoch(data[128])
	return a, nil
}

func AccountPut(tx kv.RwTx, account common.Account, info *AccountInfo) error {
	return tx.Put(kv.AccountInfo, account[:], encodeAccountInfo(info))
}

func AccountGet(tx kv.Tx, account common.Account) (*AccountInfo, error) {
	raw, err := tx.GetOne(kv.AccountInfo, account[:])
	if err != nil || raw == nil {
		return nil, err
	}
	return decodeAccountInfo(raw)
}

func AccountDel(tx kv.RwTx, account common.Account) error {
	return tx.Delete(kv.AccountInfo, account[:])
}

func AccountExists(tx kv.Tx, account common.Account) (bool, error) {
	return tx.Has(kv.AccountInfo, account[:])
}

// LatestCursor is the ordered cursor over account_info used by
// latest_begin/latest_end.
type LatestCursor struct {
	c kv.Cursor
}

func LatestBegin(tx kv.Tx) (*LatestCursor, error) {
	c, err := tx.Cursor(kv.AccountInfo)
	if err != nil {
		return nil, err
	}
	return &LatestCursor{c: c}, nil
}

// First seeks to the first account in the index.
func (lc *LatestCursor) First() (common.Account, *AccountInfo, error) {
	k, v, err := lc.c.First()
	return latestDecode(k, v, err)
}

// Next advances to the next account.
func (lc *LatestCursor) Next() (common.Account, *AccountInfo, error) {
	k, v, err := lc.c.Next()
	return latestDecode(k, v, err)
}

func (lc *LatestCursor) Close() { lc.c.Close() }

func latestDecode(k, v []byte, err error) (common.Account, *AccountInfo, error) {
	if err != nil || k == nil {
		return common.ZeroHash, nil, err
	}
	acc, err := common.HashFromBytes(k)
	if err != nil {
		return common.ZeroHash, nil, err
	}
	info, err := decodeAccountInfo(v)
	if err != nil {
		return common.ZeroHash, nil, err
	}
	return acc, info, nil
}
