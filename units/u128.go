// Package units provides the fixed-width saturating integer type the
// ledger uses for Night and Dust quantities. Go has no native 128-bit
// integer, so U128 wraps github.com/holiman/uint256.Int (itself pulled
// in across the retrieved example pack for exactly this purpose) and
// layers saturating semantics on top, since balances must never wrap
// around on overflow the way a raw machine integer would.
package units

import "github.com/holiman/uint256"

// u128Max is the maximum representable U128 value, 2^128 - 1.
var u128Max = func() uint256.Int {
	var max uint256.Int
	max.SetAllOne()
	var shift uint256.Int
	shift.Lsh(&max, 128)
	max.Sub(&max, &shift)
	return max
}()

// U128 is an unsigned 128-bit integer with saturating arithmetic:
// Add and Mul clamp to the maximum value instead of wrapping, and Sub
// clamps to zero instead of underflowing.
type U128 struct {
	v uint256.Int
}

// Zero is the additive identity.
var Zero = U128{}

// FromUint64 lifts a machine integer into U128.
func FromUint64(v uint64) U128 {
	var x uint256.Int
	x.SetUint64(v)
	return U128{v: x}
}

// Add returns a+b, saturating at the U128 maximum on overflow.
func (a U128) Add(b U128) U128 {
	var sum uint256.Int
	overflow := sum.AddOverflow(&a.v, &b.v)
	if overflow || sum.Gt(&u128Max) {
		return U128{v: u128Max}
	}
	return U128{v: sum}
}

// Sub returns a-b, saturating at zero on underflow.
func (a U128) Sub(b U128) U128 {
	if a.v.Lt(&b.v) {
		return Zero
	}
	var diff uint256.Int
	diff.Sub(&a.v, &b.v)
	return U128{v: diff}
}

// Mul returns a*b, saturating at the U128 maximum on overflow.
func (a U128) Mul(b U128) U128 {
	var product uint256.Int
	overflow := product.MulOverflow(&a.v, &b.v)
	if overflow || product.Gt(&u128Max) {
		return U128{v: u128Max}
	}
	return U128{v: product}
}

// Div returns a/b, truncated toward zero. Dividing by zero returns
// Zero rather than panicking, matching uint256.Int's own convention.
func (a U128) Div(b U128) U128 {
	if b.IsZero() {
		return Zero
	}
	var quotient uint256.Int
	quotient.Div(&a.v, &b.v)
	return U128{v: quotient}
}

// Cmp returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func (a U128) Cmp(b U128) int { return a.v.Cmp(&b.v) }

// LessThan reports whether a < b.
func (a U128) LessThan(b U128) bool { return a.v.Lt(&b.v) }

// IsZero reports whether a is zero.
func (a U128) IsZero() bool { return a.v.IsZero() }

// Uint64 returns a truncated to the low 64 bits, for callers that have
// already bounded the value (e.g. fee computations).
func (a U128) Uint64() uint64 { return a.v.Uint64() }

// Bytes returns the big-endian 16-byte encoding of a.
func (a U128) Bytes() [16]byte {
	full := a.v.Bytes32()
	var out [16]byte
	copy(out[:], full[16:])
	return out
}

// FromBytes decodes a big-endian 16-byte U128.
func FromBytes(b [16]byte) U128 {
	var full [32]byte
	copy(full[16:], b[:])
	var x uint256.Int
	x.SetBytes(full[:])
	return U128{v: x}
}

// String returns a's decimal representation.
func (a U128) String() string { return a.v.Dec() }
