// Package merkletree implements the fixed-depth hashed binary tree and
// the TTL-indexed TimeFilterMap used throughout the ledger's storage
// layer: the commitment tree, the Dust generation tree, and the
// root-history sets that remember recently valid Merkle roots.
//
// Grounded on the teacher's domain/consensus/utils/merkle package for
// the array-backed binary-tree shape (parent index derived from child
// offset, duplicate-last-leaf-on-odd-width) and generalized from a
// one-shot root calculation into a mutable, lazily-rehashed structure
// with collapse and authentication-path support.
package merkletree

import (
	"github.com/pkg/errors"

	"github.com/duskchain/ledgercore/cryptoprim"
)

// ErrNotRehashed is returned by Root when the tree has pending updates
// that have not been folded in by Rehash.
var ErrNotRehashed = errors.New("merkletree: tree has pending updates, call Rehash first")

// Hash is the digest type used throughout the tree: the transient,
// circuit-friendly hash so Merkle paths can be verified inside a proof.
type Hash = cryptoprim.TransientHash

// Tree is a fixed-depth binary Merkle tree of 2^Depth leaf slots,
// addressed by a dense u64 index. Internal nodes are recomputed lazily:
// callers batch UpdateHash calls and then call Rehash once before
// reading Root or a path.
type Tree struct {
	depth   int
	leaves  map[uint64]leafSlot
	dirty   bool
	levels  []map[uint64]Hash // levels[0] = leaf hashes by index, levels[depth] = root
	rootVal Hash
}

type leafSlot struct {
	hash  Hash
	value []byte
}

// New returns an empty tree of the given depth (leaf count = 2^depth).
func New(depth int) *Tree {
	return &Tree{
		depth:  depth,
		leaves: make(map[uint64]leafSlot),
		dirty:  true,
		levels: make([]map[uint64]Hash, depth+1),
	}
}

// Clone returns an independent copy of t: mutating the clone's leaves
// (via UpdateHash) never affects t, and vice versa. Cached internal
// levels are carried over by reference since Rehash always replaces
// them wholesale rather than mutating in place, so sharing them between
// clones until the next Rehash is safe.
func (t *Tree) Clone() *Tree {
	leaves := make(map[uint64]leafSlot, len(t.leaves))
	for i, s := range t.leaves {
		leaves[i] = s
	}
	levels := make([]map[uint64]Hash, len(t.levels))
	copy(levels, t.levels)
	return &Tree{
		depth:   t.depth,
		leaves:  leaves,
		dirty:   t.dirty,
		levels:  levels,
		rootVal: t.rootVal,
	}
}

// Depth returns the tree's configured depth.
func (t *Tree) Depth() int { return t.depth }

// Capacity returns 2^Depth, the number of addressable leaf slots.
func (t *Tree) Capacity() uint64 { return uint64(1) << uint(t.depth) }

// UpdateHash sets the leaf hash and associated opaque value at index i,
// marking the tree dirty until the next Rehash.
func (t *Tree) UpdateHash(i uint64, h Hash, value []byte) error {
	if i >= t.Capacity() {
		return errors.Errorf("merkletree: index %d out of range for depth %d", i, t.depth)
	}
	t.leaves[i] = leafSlot{hash: h, value: append([]byte(nil), value...)}
	t.dirty = true
	return nil
}

// Leaf returns the stored value at index i, if present (and not yet
// collapsed away).
func (t *Tree) Leaf(i uint64) ([]byte, bool) {
	s, ok := t.leaves[i]
	if !ok || s.value == nil {
		return nil, false
	}
	return s.value, true
}

// Rehash recomputes every internal level from the current leaves. It is
// idempotent: calling it again with no intervening updates leaves the
// tree unchanged.
func (t *Tree) Rehash() {
	if !t.dirty {
		return
	}
	level0 := make(map[uint64]Hash, len(t.leaves))
	for i, s := range t.leaves {
		level0[i] = s.hash
	}
	t.levels[0] = level0

	width := t.Capacity()
	for d := 0; d < t.depth; d++ {
		width = (width + 1) / 2
		cur := t.levels[d]
		next := make(map[uint64]Hash, len(cur))
		seen := make(map[uint64]bool)
		for idx := range cur {
			parent := idx / 2
			if seen[parent] {
				continue
			}
			seen[parent] = true
			left, lok := cur[parent*2]
			right, rok := cur[parent*2+1]
			switch {
			case lok && rok:
				next[parent] = cryptoprim.CombineTransient(left, right)
			case lok:
				next[parent] = cryptoprim.CombineTransient(left, left)
			case rok:
				next[parent] = cryptoprim.CombineTransient(right, right)
			}
		}
		t.levels[d+1] = next
	}

	if root, ok := t.levels[t.depth][0]; ok {
		t.rootVal = root
	} else {
		t.rootVal = Hash{}
	}
	t.dirty = false
}

// Root returns the tree's top digest. It returns ErrNotRehashed if
// UpdateHash calls are pending a Rehash.
func (t *Tree) Root() (Hash, error) {
	if t.dirty {
		return Hash{}, ErrNotRehashed
	}
	return t.rootVal, nil
}

// PathEntry is one step of an authentication path: the sibling hash and
// whether the sibling is the right-hand child (i.e. the current node
// was the left child at this level).
type PathEntry struct {
	Sibling      Hash
	SiblingOnRight bool
}

// PathForLeaf returns the authentication path from leaf i to the root,
// verifying it hashes to leafHash at the bottom. The tree must be
// freshly rehashed.
func (t *Tree) PathForLeaf(i uint64, leafHash Hash) ([]PathEntry, error) {
	if t.dirty {
		return nil, ErrNotRehashed
	}
	if i >= t.Capacity() {
		return nil, errors.Errorf("merkletree: index %d out of range", i)
	}
	path := make([]PathEntry, 0, t.depth)
	idx := i
	level := t.levels[0]
	cur, ok := level[idx]
	if !ok || cur != leafHash {
		return nil, errors.New("merkletree: leaf hash does not match stored leaf")
	}
	for d := 0; d < t.depth; d++ {
		level = t.levels[d]
		isRight := idx%2 == 1
		var siblingIdx uint64
		if isRight {
			siblingIdx = idx - 1
		} else {
			siblingIdx = idx + 1
		}
		self := level[idx]
		sib, sok := level[siblingIdx]
		if !sok {
			sib = self
		}
		path = append(path, PathEntry{Sibling: sib, SiblingOnRight: !isRight})
		idx /= 2
	}
	return path, nil
}

// VerifyPath recomputes the root implied by leafHash and path, for use
// by callers that only hold a path, not the full tree.
func VerifyPath(leafHash Hash, path []PathEntry) Hash {
	cur := leafHash
	for _, entry := range path {
		if entry.SiblingOnRight {
			cur = cryptoprim.CombineTransient(cur, entry.Sibling)
		} else {
			cur = cryptoprim.CombineTransient(entry.Sibling, cur)
		}
	}
	return cur
}

// InsertionEvidence is the structural update a light client needs to
// fold a single new leaf into its own locally-held incremental tree
// state, without holding the rest of the tree.
type InsertionEvidence struct {
	Index     uint64
	LeafHash  Hash
	Neighbors []PathEntry
}

// InsertionEvidence returns the structural update for leaf i, assuming
// the tree has just been rehashed after UpdateHash(i, ...).
func (t *Tree) InsertionEvidence(i uint64) (InsertionEvidence, error) {
	s, ok := t.leaves[i]
	if !ok {
		return InsertionEvidence{}, errors.Errorf("merkletree: no leaf at index %d", i)
	}
	path, err := t.PathForLeaf(i, s.hash)
	if err != nil {
		return InsertionEvidence{}, err
	}
	return InsertionEvidence{Index: i, LeafHash: s.hash, Neighbors: path}, nil
}

// Collapse discards leaf data (but not hashes) for every index in
// [lo, hi), for light-client-style callers that only need digests. The
// tree remains fully functional for Root/PathForLeaf computations since
// those only ever need the retained level hashes, but Leaf lookups for
// a collapsed index return false thereafter.
func (t *Tree) Collapse(lo, hi uint64) {
	for i := lo; i < hi; i++ {
		if s, ok := t.leaves[i]; ok {
			s.value = nil
			t.leaves[i] = s
		}
	}
}
