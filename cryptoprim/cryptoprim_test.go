package cryptoprim_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duskchain/ledgercore/cryptoprim"
)

func TestHashPersistentIsDeterministic(t *testing.T) {
	a := cryptoprim.HashPersistent("tag", []byte("x"), []byte("y"))
	b := cryptoprim.HashPersistent("tag", []byte("x"), []byte("y"))
	require.Equal(t, a, b)
}

func TestHashPersistentDomainSeparates(t *testing.T) {
	a := cryptoprim.HashPersistent("one", []byte("x"))
	b := cryptoprim.HashPersistent("two", []byte("x"))
	require.NotEqual(t, a, b)
}

func TestLengthPrefixAvoidsConcatenationCollision(t *testing.T) {
	a := cryptoprim.HashPersistent("t", []byte("ab"), []byte("c"))
	b := cryptoprim.HashPersistent("t", []byte("a"), []byte("bc"))
	require.NotEqual(t, a, b)
}

func TestCombineTransientIsOrderSensitive(t *testing.T) {
	a := cryptoprim.HashTransient("leaf", []byte{1})
	b := cryptoprim.HashTransient("leaf", []byte{2})
	require.NotEqual(t, cryptoprim.CombineTransient(a, b), cryptoprim.CombineTransient(b, a))
}

func TestFrArithmetic(t *testing.T) {
	one := cryptoprim.FrFromUint64(1)
	two := cryptoprim.FrFromUint64(2)
	require.True(t, one.Add(one).Equal(two))
	require.True(t, two.Sub(one).Equal(one))
	require.False(t, one.IsZero())
	require.True(t, one.Sub(one).IsZero())
}

func TestCommitIsDomainSeparatedAndDeterministic(t *testing.T) {
	v := cryptoprim.FrFromUint64(42)
	b := cryptoprim.FrFromUint64(7)

	c1 := cryptoprim.Commit("dust", v, b)
	c2 := cryptoprim.Commit("dust", v, b)
	require.True(t, c1.Equal(c2))

	c3 := cryptoprim.Commit("note", v, b)
	require.False(t, c1.Equal(c3))
}
