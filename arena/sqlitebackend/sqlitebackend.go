// Package sqlitebackend is an arena.Backend on top of a SQLite file,
// using the pure-Go modernc.org/sqlite driver so the arena has an
// out-of-core option with no cgo dependency, mirroring the role the
// teacher's database/ffldb package plays for kaspad's block index.
package sqlitebackend

import (
	"database/sql"

	"github.com/pkg/errors"

	_ "modernc.org/sqlite"

	"github.com/duskchain/ledgercore/arena"
)

const schema = `
CREATE TABLE IF NOT EXISTS arena_nodes (
	key        BLOB PRIMARY KEY,
	payload    BLOB NOT NULL,
	children   BLOB NOT NULL,
	ref_count  INTEGER NOT NULL,
	root_count INTEGER NOT NULL DEFAULT 0
);`

// Backend is a SQLite-backed arena.Backend.
type Backend struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite database at path and
// ensures the arena_nodes table exists.
func Open(path string) (*Backend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "sqlitebackend: open")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "sqlitebackend: create schema")
	}
	return &Backend{db: db}, nil
}

func encodeChildren(children []arena.ArenaKey) []byte {
	buf := make([]byte, 0, len(children)*arena.KeySize)
	for _, c := range children {
		buf = append(buf, c[:]...)
	}
	return buf
}

func decodeChildren(raw []byte) ([]arena.ArenaKey, error) {
	if len(raw)%arena.KeySize != 0 {
		return nil, errors.New("sqlitebackend: corrupt children column")
	}
	n := len(raw) / arena.KeySize
	out := make([]arena.ArenaKey, n)
	for i := 0; i < n; i++ {
		copy(out[i][:], raw[i*arena.KeySize:(i+1)*arena.KeySize])
	}
	return out, nil
}

// Get implements arena.Backend.
func (b *Backend) Get(key arena.ArenaKey) (arena.Node, bool, error) {
	row := b.db.QueryRow(`SELECT payload, children, ref_count FROM arena_nodes WHERE key = ?`, key[:])
	var payload, childrenRaw []byte
	var refCount uint32
	err := row.Scan(&payload, &childrenRaw, &refCount)
	if errors.Is(err, sql.ErrNoRows) {
		return arena.Node{}, false, nil
	}
	if err != nil {
		return arena.Node{}, false, errors.Wrap(err, "sqlitebackend: get")
	}
	children, err := decodeChildren(childrenRaw)
	if err != nil {
		return arena.Node{}, false, err
	}
	return arena.Node{Payload: payload, Children: children, RefCount: refCount}, true, nil
}

// RootCount implements arena.Backend.
func (b *Backend) RootCount(key arena.ArenaKey) (uint32, error) {
	row := b.db.QueryRow(`SELECT root_count FROM arena_nodes WHERE key = ?`, key[:])
	var rc uint32
	err := row.Scan(&rc)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "sqlitebackend: root count")
	}
	return rc, nil
}

// BatchUpdate implements arena.Backend by running all ops inside one
// SQL transaction, so a concurrent reader never observes a partial
// batch.
func (b *Backend) BatchUpdate(ops []arena.Op) error {
	tx, err := b.db.Begin()
	if err != nil {
		return errors.Wrap(err, "sqlitebackend: begin")
	}
	defer tx.Rollback()

	for _, op := range ops {
		switch o := op.(type) {
		case arena.InsertNode:
			_, err = tx.Exec(`
				INSERT INTO arena_nodes(key, payload, children, ref_count, root_count)
				VALUES (?, ?, ?, ?, COALESCE((SELECT root_count FROM arena_nodes WHERE key = ?), 0))
				ON CONFLICT(key) DO UPDATE SET payload=excluded.payload, children=excluded.children, ref_count=excluded.ref_count`,
				o.Key[:], o.Node.Payload, encodeChildren(o.Node.Children), o.Node.RefCount, o.Key[:])
		case arena.DeleteNode:
			_, err = tx.Exec(`DELETE FROM arena_nodes WHERE key = ?`, o.Key[:])
		case arena.SetRootCount:
			_, err = tx.Exec(`
				INSERT INTO arena_nodes(key, payload, children, ref_count, root_count)
				VALUES (?, x'', x'', 0, ?)
				ON CONFLICT(key) DO UPDATE SET root_count=excluded.root_count`,
				o.Key[:], o.Count)
		}
		if err != nil {
			return errors.Wrap(err, "sqlitebackend: apply op")
		}
	}

	return errors.Wrap(tx.Commit(), "sqlitebackend: commit")
}

// UnreachableKeys implements arena.Backend.
func (b *Backend) UnreachableKeys() ([]arena.ArenaKey, error) {
	rows, err := b.db.Query(`SELECT key FROM arena_nodes WHERE ref_count = 0 AND root_count = 0`)
	if err != nil {
		return nil, errors.Wrap(err, "sqlitebackend: unreachable keys")
	}
	defer rows.Close()

	var out []arena.ArenaKey
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var k arena.ArenaKey
		copy(k[:], raw)
		out = append(out, k)
	}
	return out, rows.Err()
}

// FlushAll forces a WAL checkpoint so writes become durable.
func (b *Backend) FlushAll() error {
	_, err := b.db.Exec(`PRAGMA wal_checkpoint(FULL)`)
	return errors.Wrap(err, "sqlitebackend: flush")
}

// Close closes the underlying database handle.
func (b *Backend) Close() error {
	return b.db.Close()
}
