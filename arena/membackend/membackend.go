// Package membackend is an in-memory arena.Backend, grounded on the
// hash-map-backed stores the teacher uses throughout
// domain/consensus/datastructures before a real on-disk store is wired
// in behind them.
package membackend

import (
	"sync"

	"github.com/duskchain/ledgercore/arena"
)

type entry struct {
	node      arena.Node
	rootCount uint32
}

// Backend is an in-memory implementation of arena.Backend: a plain map
// guarded by a sync.RWMutex.
type Backend struct {
	mu    sync.RWMutex
	nodes map[arena.ArenaKey]entry
}

// New returns an empty in-memory backend.
func New() *Backend {
	return &Backend{nodes: make(map[arena.ArenaKey]entry)}
}

// Get implements arena.Backend.
func (b *Backend) Get(key arena.ArenaKey) (arena.Node, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.nodes[key]
	if !ok {
		return arena.Node{}, false, nil
	}
	return e.node, true, nil
}

// RootCount implements arena.Backend.
func (b *Backend) RootCount(key arena.ArenaKey) (uint32, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nodes[key].rootCount, nil
}

// BatchUpdate implements arena.Backend. All ops in a single call take
// effect atomically with respect to concurrent Get/BatchUpdate callers,
// since the whole mutation runs under the write lock.
func (b *Backend) BatchUpdate(ops []arena.Op) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, op := range ops {
		switch o := op.(type) {
		case arena.InsertNode:
			e := b.nodes[o.Key]
			e.node = o.Node
			b.nodes[o.Key] = e
		case arena.DeleteNode:
			delete(b.nodes, o.Key)
		case arena.SetRootCount:
			e := b.nodes[o.Key]
			e.rootCount = o.Count
			b.nodes[o.Key] = e
		}
	}
	return nil
}

// UnreachableKeys implements arena.Backend.
func (b *Backend) UnreachableKeys() ([]arena.ArenaKey, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []arena.ArenaKey
	for k, e := range b.nodes {
		if e.node.RefCount == 0 && e.rootCount == 0 {
			out = append(out, k)
		}
	}
	return out, nil
}

// FlushAll is a no-op: the in-memory backend has no write-behind buffer.
func (b *Backend) FlushAll() error { return nil }

// Close is a no-op for the in-memory backend.
func (b *Backend) Close() error { return nil }
