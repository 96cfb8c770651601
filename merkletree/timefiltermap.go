package merkletree

import (
	"github.com/google/btree"
)

// Timestamp is a block-time value, matching the ledger's notion of
// logical time used for TTLs and root-history retention.
type Timestamp int64

// TimeFilterMap is a multiset of comparable values V, each tagged with
// an expiry Timestamp, supporting efficient "drop everything expired"
// filtering. It is backed by a google/btree ordered by (expiry, value)
// so Filter can walk and delete the expired prefix in order instead of
// scanning the whole set.
type TimeFilterMap[V comparable] struct {
	tree     *btree.BTreeG[tfmEntry[V]]
	expiryOf map[V]Timestamp
}

type tfmEntry[V comparable] struct {
	expiry Timestamp
	value  V
}

func lessEntry[V comparable](less func(a, b V) bool) btree.LessFunc[tfmEntry[V]] {
	return func(a, b tfmEntry[V]) bool {
		if a.expiry != b.expiry {
			return a.expiry < b.expiry
		}
		return less(a.value, b.value)
	}
}

// NewTimeFilterMap returns an empty TimeFilterMap. less must be a strict total order
// over V, used only to break ties between entries sharing an expiry.
func NewTimeFilterMap[V comparable](less func(a, b V) bool) *TimeFilterMap[V] {
	return &TimeFilterMap[V]{
		tree:     btree.NewG(32, lessEntry[V](less)),
		expiryOf: make(map[V]Timestamp),
	}
}

// Clone returns an independent copy of m. The btree is cloned through
// its own copy-on-write Clone (paid for lazily per touched node), but
// the value-to-expiry index is copied eagerly, so Clone is O(n) in the
// number of entries.
func (m *TimeFilterMap[V]) Clone() *TimeFilterMap[V] {
	expiryOf := make(map[V]Timestamp, len(m.expiryOf))
	for k, v := range m.expiryOf {
		expiryOf[k] = v
	}
	return &TimeFilterMap[V]{
		tree:     m.tree.Clone(),
		expiryOf: expiryOf,
	}
}

// UpsertOne inserts v with the given expiry, or updates its expiry if
// already present.
func (m *TimeFilterMap[V]) UpsertOne(expiry Timestamp, v V) {
	if old, ok := m.expiryOf[v]; ok {
		if old == expiry {
			return
		}
		m.tree.Delete(tfmEntry[V]{expiry: old, value: v})
	}
	m.expiryOf[v] = expiry
	m.tree.ReplaceOrInsert(tfmEntry[V]{expiry: expiry, value: v})
}

// Contains reports whether v is present, regardless of expiry.
func (m *TimeFilterMap[V]) Contains(v V) bool {
	_, ok := m.expiryOf[v]
	return ok
}

// Get returns every value whose expiry equals exactly the given
// timestamp.
func (m *TimeFilterMap[V]) Get(expiry Timestamp) []V {
	var out []V
	m.tree.AscendRange(
		tfmEntry[V]{expiry: expiry},
		tfmEntry[V]{expiry: expiry + 1},
		func(e tfmEntry[V]) bool {
			out = append(out, e.value)
			return true
		},
	)
	return out
}

// Len returns the number of entries currently stored.
func (m *TimeFilterMap[V]) Len() int { return m.tree.Len() }

// Filter drops every entry with expiry < cutoff. Filter is monotone:
// calling Filter(c1) then Filter(c2) with c2 >= c1 yields the same
// result as calling Filter(c2) directly, since expired entries are
// removed outright rather than merely hidden.
func (m *TimeFilterMap[V]) Filter(cutoff Timestamp) {
	var expired []tfmEntry[V]
	m.tree.Ascend(func(e tfmEntry[V]) bool {
		if e.expiry >= cutoff {
			return false
		}
		expired = append(expired, e)
		return true
	})
	for _, e := range expired {
		m.tree.Delete(e)
		delete(m.expiryOf, e.value)
	}
}
