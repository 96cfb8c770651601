// Package arena implements a content-addressed storage DAG. The trie,
// the Merkle trees and the ledger state in this module are held in
// ordinary Go memory and are not stored here. Nodes are identified by the digest of their payload and their
// children's keys; the backend storing those nodes is pluggable and is
// not required to enforce DAG consistency — that is the caller's job,
// guaranteed only after an explicit Flush.
package arena

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"sort"
	"sync/atomic"

	"github.com/pkg/errors"
)

// KeySize is the width of an ArenaKey in bytes.
const KeySize = 32

// ArenaKey is the content-addressed identifier of a node in the storage
// DAG. It is derived from the node's payload and the keys of its
// children; the node's ref-count is metadata and never enters the hash.
type ArenaKey [KeySize]byte

// IsZero reports whether k is the zero key, used as a sentinel for
// "no node" in call sites that can't use a pointer.
func (k ArenaKey) IsZero() bool {
	return k == ArenaKey{}
}

func (k ArenaKey) String() string {
	return hexEncode(k[:])
}

func hexEncode(b []byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hextable[c>>4]
		out[i*2+1] = hextable[c&0x0f]
	}
	return string(out)
}

// Node is the on-disk representation of an arena entry. RefCount is
// metadata: it is not included in the computation of the node's key, so
// that bumping or dropping a reference never forces a cascading re-hash
// of ancestors.
type Node struct {
	Payload  []byte
	Children []ArenaKey
	RefCount uint32
}

// ComputeKey derives the ArenaKey for a payload and a set of children.
// Children are sorted before hashing so that key derivation does not
// depend on the order in which a caller happened to list them.
func ComputeKey(payload []byte, children []ArenaKey) ArenaKey {
	sorted := make([]ArenaKey, len(children))
	copy(sorted, children)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})

	h := sha256.New()
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(payload)))
	h.Write(lenBuf[:])
	h.Write(payload)
	for _, c := range sorted {
		h.Write(c[:])
	}
	var out ArenaKey
	copy(out[:], h.Sum(nil))
	return out
}

// Op is one operation in a BatchUpdate transaction.
type Op interface {
	isOp()
}

// InsertNode inserts or overwrites a node at Key.
type InsertNode struct {
	Key  ArenaKey
	Node Node
}

// DeleteNode removes the node at Key.
type DeleteNode struct {
	Key ArenaKey
}

// SetRootCount sets the root-count metadata for Key. A node is eligible
// for garbage collection once both its ref-count and root-count are zero.
type SetRootCount struct {
	Key   ArenaKey
	Count uint32
}

func (InsertNode) isOp()   {}
func (DeleteNode) isOp()   {}
func (SetRootCount) isOp() {}

// Backend is the storage interface an Arena is built on. Implementations
// are not required to validate cross-node consistency: dangling child
// references and mismatched ref-counts are tolerated until FlushAll is
// called, mirroring the teacher's Database/DataAccessor split where the
// backend only ever promises atomicity of a single BatchUpdate.
type Backend interface {
	Get(key ArenaKey) (Node, bool, error)
	BatchUpdate(ops []Op) error
	RootCount(key ArenaKey) (uint32, error)
	UnreachableKeys() ([]ArenaKey, error)
	FlushAll() error
	Close() error
}

// ErrNotFound is returned by backends when a key has no stored node.
var ErrNotFound = errors.New("arena: node not found")

// Arena is a content-addressed DAG store over a pluggable Backend.
type Arena struct {
	backend Backend
	loads   uint64 // instrumentation only, bumped on every Load
}

// New wraps backend in an Arena.
func New(backend Backend) *Arena {
	return &Arena{backend: backend}
}

// Sp is an owning handle to an arena-allocated value of type T. Cloning
// an Sp is cheap: it only bumps the logical reference to the same
// ArenaKey, it never re-serializes T.
type Sp[T any] struct {
	key   ArenaKey
	value *T
	arena *Arena
}

// Key returns the ArenaKey identifying this value's content.
func (s Sp[T]) Key() ArenaKey { return s.key }

// Get returns the in-memory value the handle holds; it does not read
// the backend.
func (s *Sp[T]) Get() *T { return s.value }

// Clone bumps the logical ref-count for this handle's key and returns a
// new handle pointing at the same content.
func (s Sp[T]) Clone() (Sp[T], error) {
	if s.arena == nil {
		return s, nil
	}
	if err := s.arena.bumpRefCount(s.key, 1); err != nil {
		return Sp[T]{}, err
	}
	return s, nil
}

// Drop decrements the logical ref-count for this handle's key. It is
// always safe to call, including mid-traversal: dropping never mutates
// the value this handle still points at in memory.
func (s Sp[T]) Drop() error {
	if s.arena == nil {
		return nil
	}
	return s.arena.bumpRefCount(s.key, -1)
}

func (a *Arena) bumpRefCount(key ArenaKey, delta int32) error {
	n, ok, err := a.backend.Get(key)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(ErrNotFound, "bump ref-count on %s", key)
	}
	next := int64(n.RefCount) + int64(delta)
	if next < 0 {
		next = 0
	}
	n.RefCount = uint32(next)
	return a.backend.BatchUpdate([]Op{InsertNode{Key: key, Node: n}})
}

// Encoder serializes a value of type T to bytes and lists the ArenaKeys
// of any children it references, so Alloc can compute a content key.
type Encoder[T any] func(v T) (payload []byte, children []ArenaKey)

// Decoder is the inverse of Encoder, given already-resolved children.
type Decoder[T any] func(payload []byte, children []ArenaKey) (T, error)

// Alloc serializes value, computes its ArenaKey, inserts it into the
// backend if not already present, and returns an owning handle.
func Alloc[T any](a *Arena, enc Encoder[T], value T) (Sp[T], error) {
	payload, children := enc(value)
	key := ComputeKey(payload, children)

	existing, ok, err := a.backend.Get(key)
	if err != nil {
		return Sp[T]{}, err
	}
	if ok {
		existing.RefCount++
		if err := a.backend.BatchUpdate([]Op{InsertNode{Key: key, Node: existing}}); err != nil {
			return Sp[T]{}, err
		}
	} else {
		if err := a.backend.BatchUpdate([]Op{InsertNode{Key: key, Node: Node{
			Payload:  payload,
			Children: children,
			RefCount: 1,
		}}}); err != nil {
			return Sp[T]{}, err
		}
	}

	v := value
	return Sp[T]{key: key, value: &v, arena: a}, nil
}

// Load reads a node on demand from the backend and decodes it, resolving
// children lazily (a caller asking only for the root pays only for the
// root's payload plus the child key list).
func Load[T any](a *Arena, dec Decoder[T], key ArenaKey) (Sp[T], bool, error) {
	atomic.AddUint64(&a.loads, 1)
	n, ok, err := a.backend.Get(key)
	if err != nil {
		return Sp[T]{}, false, err
	}
	if !ok {
		return Sp[T]{}, false, nil
	}
	v, err := dec(n.Payload, n.Children)
	if err != nil {
		return Sp[T]{}, false, err
	}
	return Sp[T]{key: key, value: &v, arena: a}, true, nil
}

// BatchUpdate applies ops atomically with respect to concurrent readers
// of the same backend handle.
func (a *Arena) BatchUpdate(ops []Op) error {
	return a.backend.BatchUpdate(ops)
}

// SetRoot marks key as a GC root by setting its root-count.
func (a *Arena) SetRoot(key ArenaKey, count uint32) error {
	return a.backend.BatchUpdate([]Op{SetRootCount{Key: key, Count: count}})
}

// GetUnreachableKeys returns every node whose ref-count and root-count
// are both zero: candidates for garbage collection.
func (a *Arena) GetUnreachableKeys() ([]ArenaKey, error) {
	return a.backend.UnreachableKeys()
}

// FlushAll durably persists all pending backend state and is the only
// point at which cross-node consistency (ref-counts, root-counts,
// reachability from a root) is guaranteed to hold.
func (a *Arena) FlushAll() error {
	return a.backend.FlushAll()
}

// Close releases the underlying backend.
func (a *Arena) Close() error {
	return a.backend.Close()
}

// BFSEntry is one node visited by BFSGetNodes, in traversal order.
type BFSEntry struct {
	Key  ArenaKey
	Node Node
}

// BFSGetNodes performs a breadth-first retrieval from root, stopping a
// branch early whenever cacheLookup reports a hit (the caller already
// has that subtree materialized, typically via an LRU in front of the
// arena) or when maxDepth/maxCount is exceeded. It is used for wallet
// and contract-state prefetching.
func BFSGetNodes(a *Arena, root ArenaKey, cacheLookup func(ArenaKey) bool, maxDepth, maxCount int) ([]BFSEntry, error) {
	type queued struct {
		key   ArenaKey
		depth int
	}

	var out []BFSEntry
	seen := map[ArenaKey]bool{}
	queue := []queued{{key: root, depth: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if seen[cur.key] {
			continue
		}
		seen[cur.key] = true

		if cacheLookup != nil && cacheLookup(cur.key) {
			continue
		}
		if maxDepth >= 0 && cur.depth > maxDepth {
			continue
		}
		if maxCount >= 0 && len(out) >= maxCount {
			break
		}

		n, ok, err := a.backend.Get(cur.key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, BFSEntry{Key: cur.key, Node: n})

		for _, child := range n.Children {
			queue = append(queue, queued{key: child, depth: cur.depth + 1})
		}
	}

	return out, nil
}
