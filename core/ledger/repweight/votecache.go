package repweight

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/btcnew-node/ledger/common"
	"github.com/btcnew-node/ledger/core/rawdb"
	"github.com/btcnew-node/ledger/kv"
)

// VoteCache is a write-through LRU in front of the durable vote table
// (core/rawdb/accessors_vote.go). It enforces the sequence-bump rule: a
// cached vote for a representative is replaced only by a strictly
// greater sequence number for the same hash, or by a vote for a
// different hash at any sequence (switching targets always supersedes
// a stale one).
type VoteCache struct {
	lru *lru.Cache[common.Account, rawdb.VoteInfo]
}

func NewVoteCache(size int) (*VoteCache, error) {
	c, err := lru.New[common.Account, rawdb.VoteInfo](size)
	if err != nil {
		return nil, err
	}
	return &VoteCache{lru: c}, nil
}

// Warm seeds the LRU from the durable table at startup.
func (vc *VoteCache) Warm(tx kv.Tx) error {
	return rawdb.VoteCacheForEach(tx, func(rep common.Account, info *rawdb.VoteInfo) (bool, error) {
		vc.lru.Add(rep, *info)
		return true, nil
	})
}

// Observe applies the sequence-bump rule to an incoming vote, writing
// through to tx when it is accepted. It reports whether the vote
// replaced the cached one.
func (vc *VoteCache) Observe(tx kv.RwTx, representative common.Account, hash common.Hash, sequence uint64) (bool, error) {
	if cur, ok := vc.lru.Get(representative); ok && hash == cur.Hash && sequence <= cur.Sequence {
		return false, nil
	}
	info := &rawdb.VoteInfo{Hash: hash, Sequence: sequence}
	if err := rawdb.VoteCachePut(tx, representative, info); err != nil {
		return false, err
	}
	vc.lru.Add(representative, *info)
	return true, nil
}

// Current returns the last hash/sequence cached for representative.
func (vc *VoteCache) Current(representative common.Account) (rawdb.VoteInfo, bool) {
	return vc.lru.Get(representative)
}
