// Package boltbackend is an arena.Backend on top of go.etcd.io/bbolt, an
// embedded ordered key-value store. It stands in for the ParityDB option
// named in the spec: ParityDB itself has no maintained Go binding, and
// bbolt offers the same properties the arena actually needs from that
// option — single-writer ACID transactions and out-of-core storage.
package boltbackend

import (
	"encoding/binary"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/duskchain/ledgercore/arena"
)

var (
	nodesBucket = []byte("nodes")
	rootsBucket = []byte("roots")
)

// Backend is a bbolt-backed arena.Backend.
type Backend struct {
	db *bolt.DB
}

// Open opens (creating if necessary) a bbolt database at path.
func Open(path string) (*Backend, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "boltbackend: open")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(nodesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(rootsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "boltbackend: create buckets")
	}
	return &Backend{db: db}, nil
}

func encodeNode(n arena.Node) []byte {
	out := make([]byte, 0, 4+4+len(n.Payload)+len(n.Children)*arena.KeySize)
	var refCountBuf, payloadLenBuf [4]byte
	binary.LittleEndian.PutUint32(refCountBuf[:], n.RefCount)
	binary.LittleEndian.PutUint32(payloadLenBuf[:], uint32(len(n.Payload)))
	out = append(out, refCountBuf[:]...)
	out = append(out, payloadLenBuf[:]...)
	out = append(out, n.Payload...)
	for _, c := range n.Children {
		out = append(out, c[:]...)
	}
	return out
}

func decodeNode(raw []byte) (arena.Node, error) {
	if len(raw) < 8 {
		return arena.Node{}, errors.New("boltbackend: corrupt node record")
	}
	refCount := binary.LittleEndian.Uint32(raw[0:4])
	payloadLen := binary.LittleEndian.Uint32(raw[4:8])
	rest := raw[8:]
	if uint32(len(rest)) < payloadLen {
		return arena.Node{}, errors.New("boltbackend: truncated payload")
	}
	payload := append([]byte(nil), rest[:payloadLen]...)
	childBytes := rest[payloadLen:]
	if len(childBytes)%arena.KeySize != 0 {
		return arena.Node{}, errors.New("boltbackend: corrupt children")
	}
	children := make([]arena.ArenaKey, len(childBytes)/arena.KeySize)
	for i := range children {
		copy(children[i][:], childBytes[i*arena.KeySize:(i+1)*arena.KeySize])
	}
	return arena.Node{Payload: payload, Children: children, RefCount: refCount}, nil
}

// Get implements arena.Backend.
func (b *Backend) Get(key arena.ArenaKey) (arena.Node, bool, error) {
	var n arena.Node
	found := false
	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(nodesBucket).Get(key[:])
		if raw == nil {
			return nil
		}
		found = true
		var decodeErr error
		n, decodeErr = decodeNode(raw)
		return decodeErr
	})
	return n, found, err
}

// RootCount implements arena.Backend.
func (b *Backend) RootCount(key arena.ArenaKey) (uint32, error) {
	var rc uint32
	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(rootsBucket).Get(key[:])
		if raw == nil {
			return nil
		}
		rc = binary.LittleEndian.Uint32(raw)
		return nil
	})
	return rc, err
}

// BatchUpdate implements arena.Backend inside a single bbolt read-write
// transaction, giving callers all-or-nothing semantics across ops.
func (b *Backend) BatchUpdate(ops []arena.Op) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		nodes := tx.Bucket(nodesBucket)
		roots := tx.Bucket(rootsBucket)
		for _, op := range ops {
			switch o := op.(type) {
			case arena.InsertNode:
				if err := nodes.Put(o.Key[:], encodeNode(o.Node)); err != nil {
					return err
				}
			case arena.DeleteNode:
				if err := nodes.Delete(o.Key[:]); err != nil {
					return err
				}
			case arena.SetRootCount:
				var buf [4]byte
				binary.LittleEndian.PutUint32(buf[:], o.Count)
				if err := roots.Put(o.Key[:], buf[:]); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// UnreachableKeys implements arena.Backend.
func (b *Backend) UnreachableKeys() ([]arena.ArenaKey, error) {
	var out []arena.ArenaKey
	err := b.db.View(func(tx *bolt.Tx) error {
		nodes := tx.Bucket(nodesBucket)
		roots := tx.Bucket(rootsBucket)
		return nodes.ForEach(func(k, v []byte) error {
			n, err := decodeNode(v)
			if err != nil {
				return err
			}
			if n.RefCount != 0 {
				return nil
			}
			rootRaw := roots.Get(k)
			if rootRaw != nil && binary.LittleEndian.Uint32(rootRaw) != 0 {
				return nil
			}
			var key arena.ArenaKey
			copy(key[:], k)
			out = append(out, key)
			return nil
		})
	})
	return out, err
}

// FlushAll commits an empty read-write transaction. bbolt transactions
// are already durable on commit (absent NoSync), so this is a
// consistency checkpoint rather than a real buffered-write flush.
func (b *Backend) FlushAll() error {
	return b.db.Update(func(tx *bolt.Tx) error { return nil })
}

// Close closes the underlying database file.
func (b *Backend) Close() error {
	return b.db.Close()
}
