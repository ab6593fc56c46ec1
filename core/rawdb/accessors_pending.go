package rawdb

import (
	"github.com/btcnew-node/ledger/common"
	"github.com/btcnew-node/ledger/kv"
)

// PendingKey is (destination_account, send_block_hash); pending's
// iteration order is the lexicographic order of these 64 bytes
// concatenated, nothing else — see kv's ordering contract and the
// historical value-as-tiebreak bug spec.md §4.1 documents.
type PendingKey struct {
	Destination common.Account
	Hash        common.Hash
}

func (k PendingKey) bytes() []byte {
	out := make([]byte, 0, 64)
	out = append(out, k.Destination[:]...)
	out = append(out, k.Hash[:]...)
	return out
}

func pendingKeyFromBytes(b []byte) (PendingKey, error) {
	if len(b) != 64 {
		return PendingKey{}, ErrCorrupted("pending key wrong length")
	}
	var k PendingKey
	copy(k.Destination[:], b[0:32])
	copy(k.Hash[:], b[32:64])
	return k, nil
}

// PendingInfo is the value stored at a pending key.
type PendingInfo struct {
	Source common.Account
	Amount common.Amount
	Epoch  common.Epoch
}

const pendingInfoLen = 32 + common.AmountLength + 1

func encodePendingInfo(p *PendingInfo) []byte {
	out := make([]byte, 0, pendingInfoLen)
	out = append(out, p.Source[:]...)
	out = append(out, p.Amount.Bytes()...)
	out = append(out, byte(p.Epoch))
	return out
}

func decodePendingInfo(data []byte) (*PendingInfo, error) {
	if len(data) != pendingInfoLen {
		return nil, ErrCorrupted("pending info wrong length")
	}
	p := &PendingInfo{}
	copy(p.Source[:], data[0:32])
	amt, err := common.AmountFromBytes(data[32:48])
	if err != nil {
		return nil, err
	}
	p.Amount = amt
	p.Epoch = common.Epoch(data[48])
	return p, nil
}

func PendingPut(tx kv.RwTx, key PendingKey, info *PendingInfo) error {
	return tx.Put(kv.Pending, key.bytes(), encodePendingInfo(info))
}

func PendingGet(tx kv.Tx, key PendingKey) (*PendingInfo, error) {
	raw, err := tx.GetOne(kv.Pending, key.bytes())
	if err != nil || raw == nil {
		return nil, err
	}
	return decodePendingInfo(raw)
}

func PendingDel(tx kv.RwTx, key PendingKey) error {
	return tx.Delete(kv.Pending, key.bytes())
}

func PendingExists(tx kv.Tx, key PendingKey) (bool, error) {
	return tx.Has(kv.Pending, key.bytes())
}

// PendingCursor iterates pending in (destination, hash) order. Seek
// positions it at the first key at or after from; PendingBegin returns
// it unpositioned and does not use its from argument.
type PendingCursor struct {
	c kv.Cursor
}

func PendingBegin(tx kv.Tx, from PendingKey) (*PendingCursor, error) {
	c, err := tx.Cursor(kv.Pending)
	if err != nil {
		return nil, err
	}
	return &PendingCursor{c: c}, nil
}

func (pc *PendingCursor) Seek(from PendingKey) (PendingKey, *PendingInfo, error) {
	k, v, err := pc.c.Seek(from.bytes())
	return pendingDecode(k, v, err)
}

func (pc *PendingCursor) Next() (PendingKey, *PendingInfo, error) {
	k, v, err := pc.c.Next()
	return pendingDecode(k, v, err)
}

func (pc *PendingCursor) Close() { pc.c.Close() }

func pendingDecode(k, v []byte, err error) (PendingKey, *PendingInfo, error) {
	if err != nil || k == nil {
		return PendingKey{}, nil, err
	}
	key, err := pendingKeyFromBytes(k)
	if err != nil {
		return PendingKey{}, nil, err
	}
	info, err := decodePendingInfo(v)
	if err != nil {
		return PendingKey{}, nil, err
	}
	return key, info, nil
}
