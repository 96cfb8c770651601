package arena_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duskchain/ledgercore/arena"
	"github.com/duskchain/ledgercore/arena/membackend"
)

func intEncoder(v int) (payload []byte, children []arena.ArenaKey) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(v))
	return buf, nil
}

func intDecoder(payload []byte, _ []arena.ArenaKey) (int, error) {
	return int(binary.LittleEndian.Uint64(payload)), nil
}

func TestAllocLoadRoundTrip(t *testing.T) {
	a := arena.New(membackend.New())

	sp, err := arena.Alloc(a, intEncoder, 42)
	require.NoError(t, err)

	loaded, ok, err := arena.Load(a, intDecoder, sp.Key())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 42, *loaded.Get())
}

func TestAllocIsContentAddressed(t *testing.T) {
	a := arena.New(membackend.New())

	sp1, err := arena.Alloc(a, intEncoder, 7)
	require.NoError(t, err)
	sp2, err := arena.Alloc(a, intEncoder, 7)
	require.NoError(t, err)

	require.Equal(t, sp1.Key(), sp2.Key(), "identical content must hash to the same key")
}

func TestRefCountExcludedFromKey(t *testing.T) {
	a := arena.New(membackend.New())
	sp, err := arena.Alloc(a, intEncoder, 1)
	require.NoError(t, err)
	key1 := sp.Key()

	cloned, err := sp.Clone()
	require.NoError(t, err)
	require.Equal(t, key1, cloned.Key(), "bumping ref-count must not change the content key")
}

func TestUnreachableKeysRequireBothCountsZero(t *testing.T) {
	a := arena.New(membackend.New())
	sp, err := arena.Alloc(a, intEncoder, 99)
	require.NoError(t, err)

	require.NoError(t, sp.Drop()) // ref-count back to 0

	unreachable, err := a.GetUnreachableKeys()
	require.NoError(t, err)
	require.Contains(t, unreachable, sp.Key())

	require.NoError(t, a.SetRoot(sp.Key(), 1))
	unreachable, err = a.GetUnreachableKeys()
	require.NoError(t, err)
	require.NotContains(t, unreachable, sp.Key())
}

func TestBFSGetNodesTruncatesOnCacheHit(t *testing.T) {
	a := arena.New(membackend.New())

	leaf, err := arena.Alloc(a, intEncoder, 1)
	require.NoError(t, err)

	parentEnc := func(v int) ([]byte, []arena.ArenaKey) {
		return intEncoderPayloadOnly(v), []arena.ArenaKey{leaf.Key()}
	}
	parent, err := arena.Alloc(a, parentEnc, 2)
	require.NoError(t, err)

	hits := map[arena.ArenaKey]bool{leaf.Key(): true}
	entries, err := arena.BFSGetNodes(a, parent.Key(), func(k arena.ArenaKey) bool { return hits[k] }, -1, -1)
	require.NoError(t, err)
	require.Len(t, entries, 1, "the cached leaf should be truncated out of the traversal")
	require.Equal(t, parent.Key(), entries[0].Key)
}

func intEncoderPayloadOnly(v int) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(v))
	return buf
}
