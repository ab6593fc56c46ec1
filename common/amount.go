package common

import (
	"errors"

	"github.com/holiman/uint256"
)

// AmountLength is the wire width, in bytes, of an Amount/Balance field.
const AmountLength = 16

// ErrAmountOverflow is returned whenever an arithmetic operation on an
// Amount would not fit in 128 bits, or whenever a 256-bit intermediate
// (from uint256.Int) carries bits above the low two words. The protocol
// treats this as a protocol error, never as silent wraparound.
var ErrAmountOverflow = errors.New("common: amount overflow")

// Amount is a 128-bit unsigned integer. It is backed by a uint256.Int,
// with the invariant that the high two 64-bit words are always zero;
// any operation that would set them returns ErrAmountOverflow instead.
type Amount struct {
	v uint256.Int
}

// ZeroAmount is the additive identity.
var ZeroAmount = Amount{}

// NewAmount builds an Amount from a uint64, which always fits.
func NewAmount(v uint64) Amount {
	var a Amount
	a.v.SetUint64(v)
	return a
}

// MaxAmount is the largest representable 128-bit value (genesis_amount in
// the protocol equals this constant).
func MaxAmount() Amount {
	var a Amount
	a.v.SetAllOne()
	// SetAllOne sets all 256 bits; mask down to the low 128 bits.
	a.v[2], a.v[3] = 0, 0
	return a
}

// AmountFromBytes decodes a big-endian 16-byte balance field.
func AmountFromBytes(b []byte) (Amount, error) {
	var a Amount
	if len(b) != AmountLength {
		return a, errors.New("common: wrong length for amount")
	}
	a.v.SetBytes(b)
	return a, nil
}

// Bytes encodes the amount as a big-endian 16-byte field.
func (a Amount) Bytes() []byte {
	full := a.v.Bytes32()
	out := make([]byte, AmountLength)
	copy(out, full[16:32])
	return out
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a.v.IsZero() }

// Cmp compares two amounts: -1, 0, 1.
func (a Amount) Cmp(o Amount) int { return a.v.Cmp(&o.v) }

// Add returns a+b, or ErrAmountOverflow if the sum does not fit in 128
// bits.
func (a Amount) Add(b Amount) (Amount, error) {
	var sum uint256.Int
	overflowed := sum.AddOverflow(&a.v, &b.v)
	out := Amount{v: sum}
	if overflowed || exceeds128(&out.v) {
		return Amount{}, ErrAmountOverflow
	}
	return out, nil
}

// Sub returns a-b, or ErrAmountOverflow if b > a (the protocol has no
// negative amounts; a negative result is always a caller bug, surfaced as
// NegativeSpend by the processor rather than this low-level overflow).
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.Cmp(b) < 0 {
		return Amount{}, ErrAmountOverflow
	}
	var diff uint256.Int
	diff.Sub(&a.v, &b.v)
	return Amount{v: diff}, nil
}

// exceeds128 reports whether x has any bit set above bit 127.
func exceeds128(x *uint256.Int) bool {
	return x[2] != 0 || x[3] != 0
}

func (a Amount) String() string { return a.v.Dec() }
