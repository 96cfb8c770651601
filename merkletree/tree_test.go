package merkletree_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duskchain/ledgercore/cryptoprim"
	"github.com/duskchain/ledgercore/merkletree"
)

func leafHash(tag byte) cryptoprim.TransientHash {
	return cryptoprim.HashTransient("leaf", []byte{tag})
}

func TestRootRequiresRehash(t *testing.T) {
	tr := merkletree.New(4)
	require.NoError(t, tr.UpdateHash(0, leafHash(1), []byte("a")))
	_, err := tr.Root()
	require.ErrorIs(t, err, merkletree.ErrNotRehashed)

	tr.Rehash()
	_, err = tr.Root()
	require.NoError(t, err)
}

func TestRehashIsIdempotent(t *testing.T) {
	tr := merkletree.New(4)
	require.NoError(t, tr.UpdateHash(0, leafHash(1), []byte("a")))
	tr.Rehash()
	root1, err := tr.Root()
	require.NoError(t, err)

	tr.Rehash()
	root2, err := tr.Root()
	require.NoError(t, err)
	require.Equal(t, root1, root2)
}

func TestPathForLeafVerifies(t *testing.T) {
	tr := merkletree.New(3)
	for i := uint64(0); i < 5; i++ {
		require.NoError(t, tr.UpdateHash(i, leafHash(byte(i)), []byte{byte(i)}))
	}
	tr.Rehash()

	root, err := tr.Root()
	require.NoError(t, err)

	for i := uint64(0); i < 5; i++ {
		path, err := tr.PathForLeaf(i, leafHash(byte(i)))
		require.NoError(t, err)
		require.Equal(t, root, merkletree.VerifyPath(leafHash(byte(i)), path))
	}
}

func TestOutOfRangeIndexRejected(t *testing.T) {
	tr := merkletree.New(2)
	err := tr.UpdateHash(4, leafHash(0), nil)
	require.Error(t, err)
}

func TestCollapseDropsDataKeepsDigests(t *testing.T) {
	tr := merkletree.New(3)
	require.NoError(t, tr.UpdateHash(0, leafHash(1), []byte("payload")))
	tr.Rehash()
	rootBefore, err := tr.Root()
	require.NoError(t, err)

	tr.Collapse(0, 1)

	_, ok := tr.Leaf(0)
	require.False(t, ok)

	tr.Rehash()
	rootAfter, err := tr.Root()
	require.NoError(t, err)
	require.Equal(t, rootBefore, rootAfter)
}

func TestTimeFilterMapUpsertAndGet(t *testing.T) {
	m := merkletree.NewTimeFilterMap[int](func(a, b int) bool { return a < b })
	m.UpsertOne(10, 1)
	m.UpsertOne(10, 2)
	m.UpsertOne(20, 3)

	require.True(t, m.Contains(1))
	require.ElementsMatch(t, []int{1, 2}, m.Get(10))
	require.ElementsMatch(t, []int{3}, m.Get(20))
}

func TestTimeFilterMapUpsertUpdatesExpiry(t *testing.T) {
	m := merkletree.NewTimeFilterMap[int](func(a, b int) bool { return a < b })
	m.UpsertOne(10, 1)
	m.UpsertOne(20, 1)

	require.Empty(t, m.Get(10))
	require.ElementsMatch(t, []int{1}, m.Get(20))
	require.Equal(t, 1, m.Len())
}

func TestTimeFilterMapFilterIsMonotone(t *testing.T) {
	fresh := merkletree.NewTimeFilterMap[int](func(a, b int) bool { return a < b })
	fresh.UpsertOne(5, 1)
	fresh.UpsertOne(15, 2)
	fresh.UpsertOne(25, 3)
	fresh.Filter(20)

	twoStep := merkletree.NewTimeFilterMap[int](func(a, b int) bool { return a < b })
	twoStep.UpsertOne(5, 1)
	twoStep.UpsertOne(15, 2)
	twoStep.UpsertOne(25, 3)
	twoStep.Filter(10)
	twoStep.Filter(20)

	require.Equal(t, fresh.Len(), twoStep.Len())
	require.False(t, fresh.Contains(1))
	require.False(t, fresh.Contains(2))
	require.True(t, fresh.Contains(3))
	require.False(t, twoStep.Contains(1))
	require.False(t, twoStep.Contains(2))
	require.True(t, twoStep.Contains(3))
}
