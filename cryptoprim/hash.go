// Package cryptoprim collects the opaque cryptographic primitives the
// ledger layers build on: a persistent hash used for identifiers that
// must stay stable across sessions, a transient (ZK-circuit-friendly) hash used inside
// Merkle trees that get proven over in zero-knowledge, and the scalar
// field the Dust and note commitments are defined over.
//
// Grounded on the hash-writer idiom in the teacher's
// domain/consensus/utils/hashes package (a small wrapper streaming
// writes into a digest and finalizing to a fixed-size array) and on the
// blake2b usage found elsewhere in the retrieved pack.
package cryptoprim

import (
	"encoding/hex"
	"hash"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
	"lukechampine.com/blake3"
)

// PersistentHashSize is the width, in bytes, of a PersistentHash.
const PersistentHashSize = 32

// PersistentHash is the hash, reached through HashPersistent, behind
// intent hashes, transaction hashes and Dust initial nonces: values that
// must survive across sessions and never need to be cheap inside a SNARK
// circuit. It is backed by BLAKE2b-256. The arena keys its nodes with
// SHA-256, and the Merkle trees use TransientHash.
type PersistentHash [PersistentHashSize]byte

// String renders the hash as lowercase hex.
func (h PersistentHash) String() string { return hex.EncodeToString(h[:]) }

// IsZero reports whether h is the all-zero hash.
func (h PersistentHash) IsZero() bool { return h == PersistentHash{} }

// PersistentHashWriter incrementally hashes a sequence of byte strings
// into a single PersistentHash, mirroring the streaming hash-writer
// idiom used throughout the storage layer for multi-field digests.
type PersistentHashWriter struct {
	state hash.Hash
}

// NewPersistentHashWriter returns a writer ready to accept Write calls.
func NewPersistentHashWriter() *PersistentHashWriter {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(errors.Wrap(err, "cryptoprim: blake2b-256 init should never fail"))
	}
	return &PersistentHashWriter{state: h}
}

// Write appends p to the hash state. It never returns an error.
func (w *PersistentHashWriter) Write(p []byte) (int, error) {
	return w.state.Write(p)
}

// WriteLengthPrefixed writes a 64-bit little-endian length prefix
// followed by p, disambiguating concatenated variable-length fields the
// way the arena's content address does for node payloads.
func (w *PersistentHashWriter) WriteLengthPrefixed(p []byte) {
	var lenBuf [8]byte
	putUint64LE(lenBuf[:], uint64(len(p)))
	_, _ = w.Write(lenBuf[:])
	_, _ = w.Write(p)
}

// Finalize returns the accumulated hash.
func (w *PersistentHashWriter) Finalize() PersistentHash {
	var out PersistentHash
	copy(out[:], w.state.Sum(nil))
	return out
}

// HashPersistent hashes a sequence of byte strings, each length-prefixed,
// with domain separation tag
// domain, so callers never need to worry about two different logical
// fields colliding under concatenation.
func HashPersistent(domain string, parts ...[]byte) PersistentHash {
	w := NewPersistentHashWriter()
	w.WriteLengthPrefixed([]byte(domain))
	for _, p := range parts {
		w.WriteLengthPrefixed(p)
	}
	return w.Finalize()
}

func putUint64LE(b []byte, v uint64) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	b[4] = byte(v >> 32)
	b[5] = byte(v >> 40)
	b[6] = byte(v >> 48)
	b[7] = byte(v >> 56)
}

// TransientHashSize is the width, in bytes, of a TransientHash.
const TransientHashSize = 32

// TransientHash is the algebraic, circuit-friendly hash used inside the
// note commitment Merkle tree and anywhere else a value must be
// re-derived inside a zero-knowledge proof. BLAKE3 stands in for the
// production arithmetization-friendly permutation: both are fixed-size,
// fast, tree-friendly hashes, and swapping the real permutation in
// later is a one-function change confined to this file.
type TransientHash [TransientHashSize]byte

// IsZero reports whether h is the all-zero hash.
func (h TransientHash) IsZero() bool { return h == TransientHash{} }

// String renders the hash as lowercase hex.
func (h TransientHash) String() string { return hex.EncodeToString(h[:]) }

// HashTransient hashes a domain tag and a sequence of 32-byte-aligned
// field elements into a single TransientHash, the shape every Merkle
// node combiner in merkletree needs.
func HashTransient(domain string, parts ...[]byte) TransientHash {
	h := blake3.New(TransientHashSize, nil)
	_, _ = h.Write([]byte(domain))
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	var out TransientHash
	copy(out[:], h.Sum(nil))
	return out
}

// CombineTransient hashes two children together for a binary Merkle
// tree node, under a fixed domain tag distinguishing inner nodes from
// leaves.
func CombineTransient(left, right TransientHash) TransientHash {
	return HashTransient("node", left[:], right[:])
}
