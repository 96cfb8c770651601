package units_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duskchain/ledgercore/units"
)

func TestAddSaturates(t *testing.T) {
	max := units.FromBytes([16]byte{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	})
	one := units.FromUint64(1)
	require.Equal(t, 0, max.Add(one).Cmp(max))
}

func TestSubSaturatesAtZero(t *testing.T) {
	one := units.FromUint64(1)
	two := units.FromUint64(2)
	require.True(t, one.Sub(two).IsZero())
}

func TestMulSaturates(t *testing.T) {
	max := units.FromBytes([16]byte{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	})
	two := units.FromUint64(2)
	require.Equal(t, 0, max.Mul(two).Cmp(max))
}

func TestBytesRoundTrip(t *testing.T) {
	v := units.FromUint64(123456789)
	rt := units.FromBytes(v.Bytes())
	require.Equal(t, 0, v.Cmp(rt))
}

func TestOrdinaryArithmetic(t *testing.T) {
	a := units.FromUint64(10)
	b := units.FromUint64(3)
	require.Equal(t, uint64(13), a.Add(b).Uint64())
	require.Equal(t, uint64(7), a.Sub(b).Uint64())
	require.Equal(t, uint64(30), a.Mul(b).Uint64())
	require.True(t, b.LessThan(a))
}
