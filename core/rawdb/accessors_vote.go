package rawdb

import (
	"encoding/binary"

	"github.com/btcnew-node/ledger/common"
	"github.com/btcnew-node/ledger/kv"
)

// VoteInfo is the durable half of the write-through vote cache: the
// last hash a representative voted for and the sequence number that
// vote carried (spec.md §3 "vote_current/vote_max/vote_generate").
type VoteInfo struct {
	Hash     common.Hash
	Sequence uint64
}

const voteInfoLen = 32 + 8

func encodeVoteInfo(v *VoteInfo) []byte {
	out := make([]byte, voteInfoLen)
	copy(out[0:32], v.Hash[:])
	binary.BigEndian.PutUint64(out[32:40], v.Sequence)
	return out
}

func decodeVoteInfo(data []byte) (*VoteInfo, error) {
	if len(data) != voteInfoLen {
		return nil, ErrCorrupted("vote info wrong length")
	}
	v := &VoteInfo{}
	copy(v.Hash[:], data[0:32])
	v.Sequence = binary.BigEndian.Uint64(data[32:40])
	return v, nil
}

// VoteCachePut persists the cached vote for representative. Callers
// are responsible for the sequence-bump rule (core/ledger/repweight):
// this accessor writes whatever it is given.
func VoteCachePut(tx kv.RwTx, representative common.Account, info *VoteInfo) error {
	return tx.Put(kv.VoteCache, representative[:], encodeVoteInfo(info))
}

func VoteCacheGet(tx kv.Tx, representative common.Account) (*VoteInfo, error) {
	raw, err := tx.GetOne(kv.VoteCache, representative[:])
	if err != nil || raw == nil {
		return nil, err
	}
	return decodeVoteInfo(raw)
}

func VoteCacheDel(tx kv.RwTx, representative common.Account) error {
	return tx.Delete(kv.VoteCache, representative[:])
}

// VoteCacheForEach walks every cached vote, used to warm the in-memory
// LRU on startup.
func VoteCacheForEach(tx kv.Tx, fn func(representative common.Account, info *VoteInfo) (bool, error)) error {
	return tx.ForEach(kv.VoteCache, func(k, v []byte) (bool, error) {
		rep, err := common.HashFromBytes(k)
		if err != nil {
			return false, err
		}
		info, err := decodeVoteInfo(v)
		if err != nil {
			return false, err
		}
		return fn(rep, info)
	})
}
