// Package mpt implements the annotated Merkle Patricia Trie described by
// the storage layer: a nibble-path trie where every internal node carries
// a monoidal annotation equal to the fold of its descendant leaves'
// annotations, supporting insert/remove/lookup/prune/predecessor search
// with persistent (structure-sharing) updates.
//
// Grounded on original_source/storage/src/merkle_patricia_trie.rs for the
// exact algorithms, and on other_examples' iotaledger trie.go for the Go
// nibble-path idiom. The Rust implementation threads every node through
// an arena Sp<Node> for serialization and structural sharing; this
// translation shares structure the ordinary Go way — unchanged subtrees
// are the same pointer — and does not store tries in the arena; no
// package in this module persists a trie there. See DESIGN.md for the
// full rationale.
package mpt

import "github.com/pkg/errors"

// MaxExtensionNibbles is the hard cap on a single Extension node's
// compressed path length. Longer paths are represented as nested
// Extensions, the outer one always filled to this length.
const MaxExtensionNibbles = 255

// Annotation is the monoid every annotation type must implement. Empty
// is the identity element and Append must be associative; Trie
// construction additionally takes a FromValue function lifting a leaf
// value to its annotation.
type Annotation[A any] interface {
	Empty() A
	Append(other A) A
}

// FromValueFunc lifts a leaf value to its annotation.
type FromValueFunc[V any, A any] func(value V) A

// node is the internal sum type for trie nodes: empty, leaf, branch,
// extension, or midBranchLeaf. All five implement annotation().
type node[V any, A Annotation[A]] interface {
	annotation() A
}

type emptyNode[V any, A Annotation[A]] struct{}

func (emptyNode[V, A]) annotation() A {
	var zero A
	return zero.Empty()
}

type leafNode[V any, A Annotation[A]] struct {
	ann   A
	value V
}

func (n leafNode[V, A]) annotation() A { return n.ann }

// branchNode has exactly 16 children, indexed by nibble value. At least
// two must be non-empty in a well-formed trie.
type branchNode[V any, A Annotation[A]] struct {
	ann      A
	children [16]node[V, A]
}

func (n branchNode[V, A]) annotation() A { return n.ann }

// extensionNode compresses a run of nibbles with no branching. path has
// length in [1, MaxExtensionNibbles]; child may itself be an Extension
// only when len(path) == MaxExtensionNibbles.
type extensionNode[V any, A Annotation[A]] struct {
	ann   A
	path  []byte
	child node[V, A]
}

func (n extensionNode[V, A]) annotation() A { return n.ann }

// midBranchLeafNode holds a value whose path ends exactly where a
// Branch or Extension would otherwise continue; child must be a Branch
// or Extension.
type midBranchLeafNode[V any, A Annotation[A]] struct {
	ann   A
	value V
	child node[V, A]
}

func (n midBranchLeafNode[V, A]) annotation() A { return n.ann }

func isEmpty[V any, A Annotation[A]](n node[V, A]) bool {
	_, ok := n.(emptyNode[V, A])
	return ok
}

func emptyOf[V any, A Annotation[A]]() node[V, A] {
	return emptyNode[V, A]{}
}

func foldAnnotations[V any, A Annotation[A]](ns []node[V, A]) A {
	var zero A
	acc := zero.Empty()
	for _, n := range ns {
		acc = acc.Append(n.annotation())
	}
	return acc
}

func foldChildren[V any, A Annotation[A]](children [16]node[V, A]) A {
	var zero A
	acc := zero.Empty()
	for _, c := range children {
		acc = acc.Append(c.annotation())
	}
	return acc
}

// wrapInExtensions wraps leaf in a chain of Extension nodes covering
// remaining, chunked to MaxExtensionNibbles with the outermost chunk
// filled first.
func wrapInExtensions[V any, A Annotation[A]](remaining []byte, leaf node[V, A]) node[V, A] {
	if len(remaining) == 0 {
		return leaf
	}
	if len(remaining) <= MaxExtensionNibbles {
		return extensionNode[V, A]{ann: leaf.annotation(), path: append([]byte(nil), remaining...), child: leaf}
	}
	inner := wrapInExtensions[V, A](remaining[MaxExtensionNibbles:], leaf)
	return extensionNode[V, A]{
		ann:   inner.annotation(),
		path:  append([]byte(nil), remaining[:MaxExtensionNibbles]...),
		child: inner,
	}
}

func validateNibbles(path []byte) error {
	for _, b := range path {
		if b >= 16 {
			return errors.Errorf("mpt: invalid nibble %d in path", b)
		}
	}
	return nil
}
