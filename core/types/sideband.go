package types

import (
	"encoding/binary"
	"fmt"

	"github.com/btcnew-node/ledger/common"
)

// SidebandVersion selects which historical on-disk sideband layout to
// encode/decode. The store picks the version implied by the schema
// version recorded in the version table (core/rawdb/schema.go); callers
// never choose a version directly except in migration code.
type SidebandVersion int

const (
	// SidebandLegacy is the pre-height layout: block_type, account
	// (legacy kinds only), successor, balance (legacy kinds only). No
	// height, no timestamp, no epoch.
	SidebandLegacy SidebandVersion = iota
	// SidebandWithHeight adds the 8-byte height field (schema v4->v5:
	// "add successor field to blocks" plus the subsequent block-count
	// era that made per-block height meaningful).
	SidebandWithHeight
	// SidebandFull is the current layout (schema v11->v15 "full
	// sideband"): adds timestamp and epoch after the height field, which
	// (as in SidebandWithHeight) is present for every block kind.
	SidebandFull
)

// Sideband is the per-block metadata computed at commit time and
// persisted alongside the block itself (spec.md §3).
type Sideband struct {
	BlockType BlockType
	// Account is denormalized onto the sideband so that receive/change
	// lookups don't need to resolve the account from the frontier
	// index; legacy-only on the wire (state blocks already carry
	// Account in the block body).
	Account common.Hash
	// Balance is denormalized for every legacy kind (open, receive and
	// change do not otherwise carry a balance field); legacy-only on the
	// wire.
	Balance common.Amount
	// Height is the 1-based chain height of this block in its account.
	Height uint64
	// Successor is the hash of the child block on the same chain, or
	// the zero hash if this is still the chain head.
	Successor common.Hash
	// Timestamp is the commit-time wall clock, in seconds.
	Timestamp uint64
	Epoch     common.Epoch
}

// EncodeSideband renders sb in the on-disk layout for the given version.
func EncodeSideband(sb *Sideband, version SidebandVersion) ([]byte, error) {
	legacy := IsLegacy(sb.BlockType)
	out := make([]byte, 0, 96)
	out = append(out, byte(sb.BlockType))
	if legacy {
		out = append(out, sb.Account[:]...)
	}
	out = append(out, sb.Successor[:]...)
	if legacy {
		out = append(out, sb.Balance.Bytes()...)
	}
	if version >= SidebandWithHeight {
		var h [8]byte
		binary.BigEndian.PutUint64(h[:], sb.Height)
		out = append(out, h[:]...)
	}
	if version >= SidebandFull {
		var ts [8]byte
		binary.BigEndian.PutUint64(ts[:], sb.Timestamp)
		out = append(out, ts[:]...)
		out = append(out, byte(sb.Epoch))
	}
	return out, nil
}

// DecodeSideband parses a sideband row encoded at the given version. The
// block type is read from the first byte so that callers iterating a
// table-agnostic cursor (block_get) don't need to know the type ahead of
// time.
func DecodeSideband(data []byte, version SidebandVersion) (*Sideband, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("types: empty sideband")
	}
	sb := &Sideband{BlockType: BlockType(data[0])}
	off := 1
	legacy := IsLegacy(sb.BlockType)
	if legacy {
		if len(data) < off+32 {
			return nil, fmt.Errorf("types: sideband truncated (account)")
		}
		copy(sb.Account[:], data[off:off+32])
		off += 32
	}
	if len(data) < off+32 {
		return nil, fmt.Errorf("types: sideband truncated (successor)")
	}
	copy(sb.Successor[:], data[off:off+32])
	off += 32
	if legacy {
		if len(data) < off+common.AmountLength {
			return nil, fmt.Errorf("types: sideband truncated (balance)")
		}
		amt, err := common.AmountFromBytes(data[off : off+common.AmountLength])
		if err != nil {
			return nil, err
		}
		sb.Balance = amt
		off += common.AmountLength
	}
	if version >= SidebandWithHeight {
		if len(data) < off+8 {
			return nil, fmt.Errorf("types: sideband truncated (height)")
		}
		sb.Height = binary.BigEndian.Uint64(data[off : off+8])
		off += 8
	}
	if version >= SidebandFull {
		if len(data) < off+9 {
			return nil, fmt.Errorf("types: sideband truncated (timestamp/epoch)")
		}
		sb.Timestamp = binary.BigEndian.Uint64(data[off : off+8])
		off += 8
		sb.Epoch = common.Epoch(data[off])
		off++
	}
	return sb, nil
}
