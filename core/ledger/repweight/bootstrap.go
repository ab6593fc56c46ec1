package repweight

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/btcnew-node/ledger/common"
)

// ErrBootstrapBlobTruncated means the blob ended mid-tuple.
var ErrBootstrapBlobTruncated = errors.New("repweight: bootstrap blob truncated")

// Bootstrap is the static rep-weight override table served while the
// ledger is syncing from zero (spec.md §4.4/§6). It latches off
// permanently the first time Check observes block_count crossing the
// threshold recorded in the blob, so the cache is authoritative for the
// remainder of the process's lifetime.
type Bootstrap struct {
	mu        sync.RWMutex
	active    bool
	maxBlocks uint64
	override  map[common.Account]common.Amount
}

// Load parses a bootstrap-weight blob: a big-endian u128 max_block_count
// followed by repeated account(32) || weight(16) tuples until EOF. The
// high 64 bits of max_block_count are required to be zero — no real
// chain will run bootstrap for 2^64 blocks — so it fits the same
// uint64 block_count the store already tracks.
func Load(r io.Reader) (*Bootstrap, error) {
	var head [16]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, errors.Wrap(err, "repweight: reading max_block_count")
	}
	if binary.BigEndian.Uint64(head[:8]) != 0 {
		return nil, errors.New("repweight: max_block_count exceeds 64 bits")
	}
	maxBlocks := binary.BigEndian.Uint64(head[8:16])

	b := &Bootstrap{active: true, maxBlocks: maxBlocks, override: make(map[common.Account]common.Amount)}
	for {
		var tuple [32 + common.AmountLength]byte
		n, err := io.ReadFull(r, tuple[:])
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF || n != len(tuple) {
			return nil, ErrBootstrapBlobTruncated
		}
		if err != nil {
			return nil, err
		}
		var account common.Account
		copy(account[:], tuple[:32])
		weight, err := common.AmountFromBytes(tuple[32:])
		if err != nil {
			return nil, err
		}
		b.override[account] = weight
	}
	return b, nil
}

// Check reports whether the override table should still be served given
// the store's current block_count, updating the latch as a side effect.
// Once the threshold is crossed the answer is false for the rest of the
// process's lifetime, even if block_count somehow appeared to drop back
// below it (which should never happen, since block_count only grows).
func (b *Bootstrap) Check(blockCount uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.active {
		return false
	}
	if blockCount >= b.maxBlocks {
		b.active = false
		return false
	}
	return true
}

// Weight returns the overridden weight for rep, if the bootstrap table
// is still active and carries an entry for it.
func (b *Bootstrap) Weight(rep common.Account) (common.Amount, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.active {
		return common.Amount{}, false
	}
	w, ok := b.override[rep]
	return w, ok
}
