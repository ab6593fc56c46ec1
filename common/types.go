// Package common holds the primitive value types shared by every layer of
// the ledger core: opaque 256-bit identifiers, the 128-bit balance type,
// signatures, proof-of-work nonces and the protocol epoch enum.
package common

import (
	"encoding/hex"
	"errors"
)

// HashLength is the width, in bytes, of every opaque identifier in the
// protocol (Hash, Account, Root, Link all share this width).
const HashLength = 32

// SignatureLength is the width, in bytes, of an Ed25519 signature.
const SignatureLength = 64

// Hash is a 256-bit opaque identifier: a block hash, unless aliased below
// to carry a more specific meaning at a given call site.
type Hash [HashLength]byte

// Account identifies a chain by its public key. Aliased from Hash because
// the wire encoding and comparison semantics are identical; only the
// documented meaning differs.
type Account = Hash

// Root is either an account (the first block of a chain) or a previous
// block hash, depending on where the chain is in its lifecycle.
type Root = Hash

// Link is context-dependent: a receive source, a send destination, or an
// epoch tag, depending on the block kind that carries it.
type Link = Hash

// ZeroHash is the all-zero identifier: burn account, absent previous, and
// "no dependency" all share this sentinel.
var ZeroHash = Hash{}

// IsZero reports whether h is the all-zero sentinel.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Cmp returns -1, 0 or 1 comparing the byte representations of h and o,
// establishing the total order tables are iterated in. It never inspects
// anything but the bytes of h and o — see kv's pending-table ordering
// contract.
func (h Hash) Cmp(o Hash) int {
	for i := range h {
		if h[i] != o[i] {
			if h[i] < o[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a fresh copy of the hash bytes.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashLength)
	copy(b, h[:])
	return b
}

// HashFromBytes builds a Hash from a byte slice of exactly HashLength
// bytes, returning an error otherwise.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashLength {
		return h, errors.New("common: wrong length for hash")
	}
	copy(h[:], b)
	return h, nil
}

// Signature is a 512-bit Ed25519 signature.
type Signature [SignatureLength]byte

func (s Signature) Bytes() []byte {
	b := make([]byte, SignatureLength)
	copy(b, s[:])
	return b
}

// Work is a 64-bit proof-of-work nonce. It is validated against a root
// and a difficulty threshold by the caller (work generation itself is a
// wallet concern and out of scope for the ledger core).
type Work uint64

// Epoch is the small, strictly ordered protocol-version marker carried by
// account_info and by sideband rows.
type Epoch uint8

const (
	// EpochInvalid marks an account that has not yet been opened; it is
	// never stored, only used as the "none" value of account epoch.
	EpochInvalid Epoch = iota
	Epoch0
	Epoch1
	Epoch2
)

// Before reports whether e predates o in the protocol's strict epoch
// ordering.
func (e Epoch) Before(o Epoch) bool { return e < o }

// Max returns the later of two epochs.
func Max(a, b Epoch) Epoch {
	if a > b {
		return a
	}
	return b
}

func (e Epoch) String() string {
	switch e {
	case EpochInvalid:
		return "epoch_invalid"
	case Epoch0:
		return "epoch_0"
	case Epoch1:
		return "epoch_1"
	case Epoch2:
		return "epoch_2"
	default:
		return "epoch_unknown"
	}
}
