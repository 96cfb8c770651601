package mpt

import "github.com/pkg/errors"

// ErrNotFound is returned by Remove when the given key is absent.
var ErrNotFound = errors.New("mpt: key not found")

// Trie is an immutable-node, persistent annotated Merkle Patricia Trie.
// Every mutating operation returns a new Trie sharing unmodified
// subtrees with the receiver.
type Trie[V any, A Annotation[A]] struct {
	root      node[V, A]
	fromValue FromValueFunc[V, A]
}

// New returns an empty trie. fromValue lifts a leaf value to its
// annotation and is invoked on every Insert.
func New[V any, A Annotation[A]](fromValue FromValueFunc[V, A]) *Trie[V, A] {
	return &Trie[V, A]{root: emptyOf[V, A](), fromValue: fromValue}
}

// Annotation returns the root annotation, i.e. the fold of every stored
// value's annotation.
func (t *Trie[V, A]) Annotation() A { return t.root.annotation() }

// IsEmpty reports whether the trie holds no values.
func (t *Trie[V, A]) IsEmpty() bool { return isEmpty(t.root) }

// Insert returns a new trie with value stored at path, overwriting any
// existing value there. path is a sequence of nibbles (0-15).
func (t *Trie[V, A]) Insert(path []byte, value V) (*Trie[V, A], error) {
	if err := validateNibbles(path); err != nil {
		return nil, err
	}
	newRoot := t.insertNode(t.root, path, value)
	return &Trie[V, A]{root: newRoot, fromValue: t.fromValue}, nil
}

func (t *Trie[V, A]) insertNode(n node[V, A], path []byte, value V) node[V, A] {
	switch cur := n.(type) {
	case emptyNode[V, A]:
		ann := t.fromValue(value)
		leaf := leafNode[V, A]{ann: ann, value: value}
		if len(path) == 0 {
			return leaf
		}
		return wrapInExtensions[V, A](path, leaf)

	case leafNode[V, A]:
		ann := t.fromValue(value)
		if len(path) == 0 {
			return leafNode[V, A]{ann: ann, value: value}
		}
		child := wrapInExtensions[V, A](path, leafNode[V, A]{ann: ann, value: value})
		return midBranchLeafNode[V, A]{ann: cur.ann.Append(child.annotation()), value: cur.value, child: child}

	case midBranchLeafNode[V, A]:
		if len(path) == 0 {
			ann := t.fromValue(value).Append(cur.child.annotation())
			return midBranchLeafNode[V, A]{ann: ann, value: value, child: cur.child}
		}
		newChild := t.insertNode(cur.child, path, value)
		ann := t.fromValue(cur.value).Append(newChild.annotation())
		return midBranchLeafNode[V, A]{ann: ann, value: cur.value, child: newChild}

	case branchNode[V, A]:
		if len(path) == 0 {
			ann := t.fromValue(value).Append(cur.annotation())
			return midBranchLeafNode[V, A]{ann: ann, value: value, child: cur}
		}
		nibble := path[0]
		children := cur.children
		children[nibble] = t.insertNode(children[nibble], path[1:], value)
		return branchNode[V, A]{ann: foldChildren[V, A](children), children: children}

	case extensionNode[V, A]:
		index := commonPrefixLen(cur.path, path)
		if index == len(cur.path) {
			newChild := t.insertNode(cur.child, path[index:], value)
			return extensionNode[V, A]{ann: newChild.annotation(), path: cur.path, child: newChild}
		}
		if index == len(path) {
			rest := mergeExtension[V, A](cur.path[index:], cur.child)
			mbl := midBranchLeafNode[V, A]{ann: t.fromValue(value).Append(rest.annotation()), value: value, child: rest}
			if index == 0 {
				return mbl
			}
			return extensionNode[V, A]{ann: mbl.ann, path: append([]byte(nil), cur.path[:index]...), child: mbl}
		}

		var tailPath []byte
		if index+1 < len(cur.path) {
			tailPath = append([]byte(nil), cur.path[index+1:]...)
		}
		var remaining node[V, A]
		if len(tailPath) == 0 {
			remaining = cur.child
		} else {
			remaining = extensionNode[V, A]{ann: cur.child.annotation(), path: tailPath, child: cur.child}
		}

		var freshChildren [16]node[V, A]
		for i := range freshChildren {
			freshChildren[i] = emptyOf[V, A]()
		}
		freshChildren[cur.path[index]] = remaining
		freshBranch := branchNode[V, A]{ann: foldChildren[V, A](freshChildren), children: freshChildren}

		result := t.insertNode(freshBranch, path[index:], value)
		if index == 0 {
			return result
		}
		return extensionNode[V, A]{ann: result.annotation(), path: append([]byte(nil), cur.path[:index]...), child: result}

	default:
		panic("mpt: unknown node type")
	}
}

// commonPrefixLen returns the length of the shared prefix of a and b.
func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// extendWithNibble prepends nibble to child, merging into an existing
// Extension rather than creating a degenerate one-level-deeper Extension
// chain where possible.
func extendWithNibble[V any, A Annotation[A]](nibble byte, child node[V, A]) node[V, A] {
	if ext, ok := child.(extensionNode[V, A]); ok {
		combined := append([]byte{nibble}, ext.path...)
		if len(combined) <= MaxExtensionNibbles {
			return extensionNode[V, A]{ann: ext.child.annotation(), path: combined, child: ext.child}
		}
		return extensionNode[V, A]{
			ann:  child.annotation(),
			path: combined[:MaxExtensionNibbles],
			child: extensionNode[V, A]{
				ann:   ext.child.annotation(),
				path:  combined[MaxExtensionNibbles:],
				child: ext.child,
			},
		}
	}
	return extensionNode[V, A]{ann: child.annotation(), path: []byte{nibble}, child: child}
}

// mergeExtension joins a fresh outer compressed path with a child that
// may itself be an Extension, collapsing the two into one (re-chunked
// if the combined path exceeds MaxExtensionNibbles).
func mergeExtension[V any, A Annotation[A]](outer []byte, child node[V, A]) node[V, A] {
	if isEmpty[V, A](child) {
		return child
	}
	if ext, ok := child.(extensionNode[V, A]); ok {
		combined := append(append([]byte(nil), outer...), ext.path...)
		return wrapInExtensions[V, A](combined, ext.child)
	}
	if len(outer) == 0 {
		return child
	}
	return wrapInExtensions[V, A](outer, child)
}

// Remove returns a new trie with the value at path removed. It returns
// ErrNotFound if no value is stored there.
func (t *Trie[V, A]) Remove(path []byte) (*Trie[V, A], error) {
	if err := validateNibbles(path); err != nil {
		return nil, err
	}
	newRoot, err := t.removeNode(t.root, path)
	if err != nil {
		return nil, err
	}
	return &Trie[V, A]{root: newRoot, fromValue: t.fromValue}, nil
}

func (t *Trie[V, A]) removeNode(n node[V, A], path []byte) (node[V, A], error) {
	switch cur := n.(type) {
	case emptyNode[V, A]:
		return nil, ErrNotFound

	case leafNode[V, A]:
		if len(path) != 0 {
			return nil, ErrNotFound
		}
		return emptyOf[V, A](), nil

	case midBranchLeafNode[V, A]:
		if len(path) == 0 {
			return cur.child, nil
		}
		newChild, err := t.removeNode(cur.child, path)
		if err != nil {
			return nil, err
		}
		if isEmpty[V, A](newChild) {
			return leafNode[V, A]{ann: t.fromValue(cur.value), value: cur.value}, nil
		}
		ann := t.fromValue(cur.value).Append(newChild.annotation())
		return midBranchLeafNode[V, A]{ann: ann, value: cur.value, child: newChild}, nil

	case branchNode[V, A]:
		if len(path) == 0 {
			return nil, ErrNotFound
		}
		nibble := path[0]
		newChild, err := t.removeNode(cur.children[nibble], path[1:])
		if err != nil {
			return nil, err
		}
		children := cur.children
		children[nibble] = newChild

		remainingIdx := -1
		count := 0
		for i, c := range children {
			if !isEmpty[V, A](c) {
				count++
				remainingIdx = i
			}
		}
		if count >= 2 {
			return branchNode[V, A]{ann: foldChildren[V, A](children), children: children}, nil
		}
		if count == 1 {
			return extendWithNibble[V, A](byte(remainingIdx), children[remainingIdx]), nil
		}
		return emptyOf[V, A](), nil

	case extensionNode[V, A]:
		if len(path) < len(cur.path) || commonPrefixLen(cur.path, path) != len(cur.path) {
			return nil, ErrNotFound
		}
		newChild, err := t.removeNode(cur.child, path[len(cur.path):])
		if err != nil {
			return nil, err
		}
		return mergeExtension[V, A](cur.path, newChild), nil

	default:
		panic("mpt: unknown node type")
	}
}

// Lookup returns the value stored at path, if any.
func (t *Trie[V, A]) Lookup(path []byte) (V, bool) {
	return lookupNode[V, A](t.root, path)
}

func lookupNode[V any, A Annotation[A]](n node[V, A], path []byte) (V, bool) {
	switch cur := n.(type) {
	case emptyNode[V, A]:
		var zero V
		return zero, false
	case leafNode[V, A]:
		if len(path) == 0 {
			return cur.value, true
		}
		var zero V
		return zero, false
	case midBranchLeafNode[V, A]:
		if len(path) == 0 {
			return cur.value, true
		}
		return lookupNode[V, A](cur.child, path)
	case branchNode[V, A]:
		if len(path) == 0 {
			var zero V
			return zero, false
		}
		return lookupNode[V, A](cur.children[path[0]], path[1:])
	case extensionNode[V, A]:
		if len(path) < len(cur.path) || commonPrefixLen(cur.path, path) != len(cur.path) {
			var zero V
			return zero, false
		}
		return lookupNode[V, A](cur.child, path[len(cur.path):])
	default:
		var zero V
		return zero, false
	}
}

// Prune discards every stored entry whose key sorts strictly before
// path, keeping entries at or after it untouched. It is used to drop
// history a component no longer needs to retain while keeping recent
// and future entries (and the structure needed to prove non-membership
// against them) intact.
func (t *Trie[V, A]) Prune(path []byte) (*Trie[V, A], error) {
	if err := validateNibbles(path); err != nil {
		return nil, err
	}
	return &Trie[V, A]{root: t.pruneNode(t.root, path), fromValue: t.fromValue}, nil
}

func (t *Trie[V, A]) pruneNode(n node[V, A], path []byte) node[V, A] {
	if len(path) == 0 {
		return n
	}
	switch cur := n.(type) {
	case emptyNode[V, A]:
		return cur
	case leafNode[V, A]:
		return emptyOf[V, A]()
	case midBranchLeafNode[V, A]:
		newChild := t.pruneNode(cur.child, path)
		if _, stillEmpty := newChild.(emptyNode[V, A]); stillEmpty {
			return emptyOf[V, A]()
		}
		return newChild
	case branchNode[V, A]:
		head := path[0]
		children := cur.children
		for i := byte(0); i < head; i++ {
			children[i] = emptyOf[V, A]()
		}
		children[head] = t.pruneNode(children[head], path[1:])

		remainingIdx := -1
		count := 0
		for i, c := range children {
			if !isEmpty[V, A](c) {
				count++
				remainingIdx = i
			}
		}
		if count == 0 {
			return emptyOf[V, A]()
		}
		if count == 1 {
			return extendWithNibble[V, A](byte(remainingIdx), children[remainingIdx])
		}
		return branchNode[V, A]{ann: foldChildren[V, A](children), children: children}
	case extensionNode[V, A]:
		overlap := commonPrefixLen(cur.path, path)
		switch {
		case overlap == len(cur.path):
			// path reaches into (or exactly to) this extension's child;
			// recursing with an empty remainder is a no-op, correctly
			// keeping everything at or after the watermark.
			newChild := t.pruneNode(cur.child, path[overlap:])
			return mergeExtension[V, A](cur.path, newChild)
		case overlap == len(path):
			// path ends inside this extension: everything here sorts
			// after it.
			return cur
		case cur.path[overlap] < path[overlap]:
			return emptyOf[V, A]()
		default:
			return cur
		}
	default:
		panic("mpt: unknown node type")
	}
}

// Entry is a decoded (key, value) pair, key given as a nibble path.
type Entry[V any] struct {
	Path  []byte
	Value V
}

// Iter returns every stored entry in ascending key order.
func (t *Trie[V, A]) Iter() []Entry[V] {
	var out []Entry[V]
	collect[V, A](t.root, nil, &out)
	return out
}

func collect[V any, A Annotation[A]](n node[V, A], prefix []byte, out *[]Entry[V]) {
	switch cur := n.(type) {
	case emptyNode[V, A]:
	case leafNode[V, A]:
		*out = append(*out, Entry[V]{Path: append([]byte(nil), prefix...), Value: cur.value})
	case midBranchLeafNode[V, A]:
		*out = append(*out, Entry[V]{Path: append([]byte(nil), prefix...), Value: cur.value})
		collect[V, A](cur.child, prefix, out)
	case branchNode[V, A]:
		for i, c := range cur.children {
			collect[V, A](c, append(prefix, byte(i)), out)
		}
	case extensionNode[V, A]:
		collect[V, A](cur.child, append(prefix, cur.path...), out)
	}
}

// FindPredecessor returns the entry with the largest key strictly less
// than path, if one exists.
func (t *Trie[V, A]) FindPredecessor(path []byte) (Entry[V], bool) {
	return findPredecessor[V, A](t.root, path, nil)
}

func findPredecessor[V any, A Annotation[A]](n node[V, A], path []byte, explored []byte) (Entry[V], bool) {
	switch cur := n.(type) {
	case emptyNode[V, A]:
		return Entry[V]{}, false

	case leafNode[V, A]:
		if len(path) == 0 {
			return Entry[V]{}, false
		}
		return Entry[V]{Path: append([]byte(nil), explored...), Value: cur.value}, true

	case midBranchLeafNode[V, A]:
		if len(path) == 0 {
			return Entry[V]{}, false
		}
		if e, ok := findPredecessor[V, A](cur.child, path, explored); ok {
			return e, true
		}
		return Entry[V]{Path: append([]byte(nil), explored...), Value: cur.value}, true

	case branchNode[V, A]:
		if len(path) == 0 {
			return Entry[V]{}, false
		}
		head := path[0]
		if e, ok := findPredecessor[V, A](cur.children[head], path[1:], append(explored, head)); ok {
			return e, true
		}
		for i := int(head) - 1; i >= 0; i-- {
			if !isEmpty[V, A](cur.children[i]) {
				return largestInSubtree[V, A](cur.children[i], append(explored, byte(i))), true
			}
		}
		return Entry[V]{}, false

	case extensionNode[V, A]:
		overlap := commonPrefixLen(cur.path, path)
		switch {
		case overlap == len(cur.path) && overlap == len(path):
			return Entry[V]{}, false
		case overlap == len(cur.path):
			return findPredecessor[V, A](cur.child, path[overlap:], append(explored, cur.path...))
		case overlap == len(path):
			return Entry[V]{}, false
		case cur.path[overlap] < path[overlap]:
			e := largestInSubtree[V, A](cur, explored)
			return e, true
		default:
			return Entry[V]{}, false
		}

	default:
		panic("mpt: unknown node type")
	}
}

func largestInSubtree[V any, A Annotation[A]](n node[V, A], explored []byte) Entry[V] {
	switch cur := n.(type) {
	case leafNode[V, A]:
		return Entry[V]{Path: append([]byte(nil), explored...), Value: cur.value}
	case midBranchLeafNode[V, A]:
		return largestInSubtree[V, A](cur.child, explored)
	case branchNode[V, A]:
		for i := 15; i >= 0; i-- {
			if !isEmpty[V, A](cur.children[i]) {
				return largestInSubtree[V, A](cur.children[i], append(explored, byte(i)))
			}
		}
		panic("mpt: branch invariant violated: no non-empty children")
	case extensionNode[V, A]:
		return largestInSubtree[V, A](cur.child, append(explored, cur.path...))
	default:
		panic("mpt: unknown node type")
	}
}
