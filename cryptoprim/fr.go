package cryptoprim

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// frModulus is the scalar field modulus notes and commitments are
// defined over. The exact curve is out of scope here; what matters to
// every caller in this module is the field's arithmetic (addition,
// subtraction, multiplication, and equality), so a large prime of the
// right bit width stands in for the production curve's scalar field order.
var frModulus = *uint256.MustFromHex("0x73eda753299d7d483339d80809a1d80553bda402fffe5bfeffffffff00000001")

// Fr is an element of the ledger's scalar field, represented as a
// 256-bit integer reduced modulo frModulus.
type Fr struct {
	v uint256.Int
}

// FrFromUint64 lifts a small integer into the field.
func FrFromUint64(v uint64) Fr {
	var x uint256.Int
	x.SetUint64(v)
	return Fr{v: x}
}

// FrFromBytes interprets 32 big-endian bytes as a field element,
// reducing modulo frModulus.
func FrFromBytes(b [32]byte) Fr {
	var x uint256.Int
	x.SetBytes(b[:])
	x.Mod(&x, &frModulus)
	return Fr{v: x}
}

// Bytes returns the big-endian 32-byte encoding of r.
func (r Fr) Bytes() [32]byte {
	return r.v.Bytes32()
}

// Add returns r+other mod frModulus.
func (r Fr) Add(other Fr) Fr {
	var out uint256.Int
	out.AddMod(&r.v, &other.v, &frModulus)
	return Fr{v: out}
}

// Sub returns r-other mod frModulus.
func (r Fr) Sub(other Fr) Fr {
	var out uint256.Int
	out.SubMod(&r.v, &other.v, &frModulus)
	return Fr{v: out}
}

// Mul returns r*other mod frModulus.
func (r Fr) Mul(other Fr) Fr {
	var out uint256.Int
	out.MulMod(&r.v, &other.v, &frModulus)
	return Fr{v: out}
}

// Equal reports whether r and other are the same field element.
func (r Fr) Equal(other Fr) bool { return r.v.Eq(&other.v) }

// IsZero reports whether r is the additive identity.
func (r Fr) IsZero() bool { return r.v.IsZero() }

// RandomFr draws a field element from the given entropy source,
// rejecting samples at or above frModulus to avoid modulo bias the way
// the production prover's field sampler does.
func RandomFr(randomBytes func(n int) ([]byte, error)) (Fr, error) {
	for i := 0; i < 256; i++ {
		raw, err := randomBytes(32)
		if err != nil {
			return Fr{}, errors.Wrap(err, "cryptoprim: sample Fr")
		}
		var candidate uint256.Int
		candidate.SetBytes(raw)
		if candidate.Lt(&frModulus) {
			return Fr{v: candidate}, nil
		}
	}
	return Fr{}, errors.New("cryptoprim: failed to sample Fr below modulus after 256 attempts")
}
